// internal/usecase/notify.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"go.uber.org/zap"
)

// notifyTimeout bounds one fan-out, retries included.
const notifyTimeout = 2 * time.Minute

// Notifier delivers a job to every configured target.
type Notifier interface {
	Notify(ctx context.Context, job *domain.NotificationJob) (*domain.DispatchReport, error)
	Targets() []string
}

// notificationRunner runs notifications inline or detached from the request.
// Neither mode is cut short when the caller hangs up; detached runs are tracked
// so shutdown can drain them.
type notificationRunner struct {
	notifier Notifier
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func newNotificationRunner(notifier Notifier, logger *zap.Logger) *notificationRunner {
	return &notificationRunner{notifier: notifier, logger: logger}
}

func (r *notificationRunner) run(ctx context.Context, job *domain.NotificationJob) (*domain.DispatchReport, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	return r.notifier.Notify(ctx, job)
}

func (r *notificationRunner) detach(ctx context.Context, job *domain.NotificationJob) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		report, err := r.notifier.Notify(ctx, job)
		if err != nil {
			r.logger.Error("background notification failed",
				zap.String("operation_id", job.OperationID.String()),
				zap.String("payment_id", job.ProviderPaymentID),
				zap.Error(err))
			return
		}
		r.logger.Info("background notification delivered",
			zap.String("operation_id", job.OperationID.String()),
			zap.String("payment_id", job.ProviderPaymentID),
			zap.Int("attempts", report.Attempts))
	}()
}

func (r *notificationRunner) wait() {
	r.wg.Wait()
}
