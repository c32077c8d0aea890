// pkg/notifier/channel.go
package notifier

import (
	"context"
	"errors"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
)

// Channel delivers a rendered notification to one target.
type Channel interface {
	Name() string
	Send(ctx context.Context, job *domain.NotificationJob) error
}

// PermanentError marks a channel rejection that retrying cannot fix, such as a bad credential.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
