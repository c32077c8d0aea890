// pkg/notifier/dispatcher.go
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher fans a job out to every channel, retrying each target on its own.
// Retries live only inside one Notify call; nothing is queued.
type Dispatcher struct {
	channels    []Channel
	renderer    *Renderer
	maxAttempts int
	baseDelay   time.Duration
	sendTimeout time.Duration
	logger      *zap.Logger
}

func NewDispatcher(channels []Channel, renderer *Renderer, cfg config.NotifyConfig, logger *zap.Logger) *Dispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	sendTimeout := cfg.Timeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	return &Dispatcher{
		channels:    channels,
		renderer:    renderer,
		maxAttempts: maxAttempts,
		baseDelay:   cfg.BaseDelay,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Targets lists the configured channel names.
func (d *Dispatcher) Targets() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Notify renders the job (unless it already carries a message) and delivers it.
// The report is always returned; the error wraps domain.ErrNotificationFailed
// when no target succeeded.
func (d *Dispatcher) Notify(ctx context.Context, job *domain.NotificationJob) (*domain.DispatchReport, error) {
	report := &domain.DispatchReport{Targets: []domain.TargetResult{}}

	if len(d.channels) == 0 {
		return report, fmt.Errorf("%w: %w", domain.ErrNotificationFailed, domain.ErrNotificationTarget)
	}

	if job.Message == "" {
		message, err := d.renderer.Render(job)
		if err != nil {
			return report, fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
		}
		job.Message = message
	}

	results := make([]domain.TargetResult, len(d.channels))
	var g errgroup.Group
	for i, ch := range d.channels {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = d.deliver(ctx, ch, job)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		report.Attempts += r.Attempts
		if r.Success {
			report.Delivered = true
		}
	}
	report.Targets = results
	job.Attempts = report.Attempts

	metrics.NotificationDispatches.WithLabelValues(strconv.FormatBool(report.Delivered)).Inc()

	if !report.Delivered {
		d.logger.Error("notification failed on every target",
			zap.String("operation_id", job.OperationID.String()),
			zap.String("payment_id", job.ProviderPaymentID),
			zap.Int("attempts", report.Attempts),
			zap.Any("targets", report.Targets))
		return report, fmt.Errorf("%w: all %d targets failed", domain.ErrNotificationFailed, len(results))
	}

	if failures := report.Failures(); len(failures) > 0 {
		d.logger.Warn("notification delivered with partial failures",
			zap.String("operation_id", job.OperationID.String()),
			zap.String("payment_id", job.ProviderPaymentID),
			zap.Any("failures", failures))
	}

	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, job *domain.NotificationJob) domain.TargetResult {
	result := domain.TargetResult{Target: ch.Name()}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result.Attempts = attempt

		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := ch.Send(sendCtx, job)
		cancel()

		if err == nil {
			metrics.NotificationAttempts.WithLabelValues(ch.Name(), "success").Inc()
			result.Success = true
			return result
		}

		metrics.NotificationAttempts.WithLabelValues(ch.Name(), "failure").Inc()
		lastErr = err
		d.logger.Warn("notification attempt failed",
			zap.String("target", ch.Name()),
			zap.String("operation_id", job.OperationID.String()),
			zap.String("payment_id", job.ProviderPaymentID),
			zap.Int("attempt", attempt),
			zap.Bool("permanent", IsPermanent(err)),
			zap.Error(err))

		if IsPermanent(err) || attempt == d.maxAttempts {
			break
		}
		if err := sleep(ctx, d.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	result.Error = lastErr.Error()
	return result
}

// backoff is baseDelay * 2^attempt.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	return d.baseDelay * time.Duration(1<<attempt)
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
