package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generate returns prefix_<ULID>, or the bare ULID when prefix is empty.
func Generate(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	if prefix == "" {
		return id.String()
	}
	return prefix + "_" + id.String()
}

// IdempotencyKey is sent with provider writes so a retried request cannot create a second payment.
func IdempotencyKey(operationID string) string {
	return operationID + "-" + Generate("")
}
