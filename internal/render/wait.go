package render

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WaitPolicy decides when a freshly loaded page has finished rendering.
type WaitPolicy interface {
	Settle(ctx context.Context, r Renderer) error
}

// FixedDelay waits a constant interval after navigation.
type FixedDelay time.Duration

// Settle sleeps for the delay or until ctx is done.
func (d FixedDelay) Settle(ctx context.Context, _ Renderer) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UntilSelector polls the current document until Selector matches, giving up
// after Timeout so extraction can still run on whatever has rendered. The
// timeout is logged at debug level to Logger, or the global logger when nil.
type UntilSelector struct {
	Selector string
	Timeout  time.Duration
	Poll     time.Duration
	Logger   *zap.Logger
}

// Settle polls the renderer's document.
func (u UntilSelector) Settle(ctx context.Context, r Renderer) error {
	poll := u.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	deadline := time.Now().Add(u.Timeout)

	for {
		doc, err := r.CurrentDocument(ctx)
		if err != nil && IsFatal(err) {
			return err
		}
		if err == nil && doc.Find(u.Selector).Length() > 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			u.logger().Debug("render: ready selector not found before timeout",
				zap.String("selector", u.Selector),
				zap.Duration("timeout", u.Timeout),
			)
			return nil
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (u UntilSelector) logger() *zap.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return zap.L()
}

// NewWaitPolicy picks UntilSelector when a selector is configured and a fixed
// delay otherwise.
func NewWaitPolicy(settle time.Duration, readySelector string, readyTimeout time.Duration) WaitPolicy {
	if readySelector != "" {
		return UntilSelector{Selector: readySelector, Timeout: readyTimeout}
	}
	return FixedDelay(settle)
}
