package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/recoverly/recovery-engine/internal/channel"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/observability"
	"github.com/recoverly/recovery-engine/internal/ratelimit"
	"github.com/recoverly/recovery-engine/internal/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Terminal result codes for one dispatch invocation.
const (
	CodeSuccess          = "success"
	CodeChannelDisabled  = "channel_disabled"
	CodeMissingRecipient = "missing_recipient"
	CodeRateLimited      = "rate_limited"
	CodeSendFailed       = "send_failed"
)

// Result is the terminal outcome of dispatching one message on one channel.
// Err is populated only for CodeSendFailed.
type Result struct {
	Channel   domain.Channel `json:"channel"`
	OK        bool           `json:"ok"`
	Code      string         `json:"code"`
	MessageID string         `json:"message_id,omitempty"`
	Err       error          `json:"-"`
}

// ChannelPolicy reports the administrative enable flag per channel.
type ChannelPolicy interface {
	ChannelEnabled(channel domain.Channel) bool
}

// Dispatcher routes rendered messages to channel senders. Each channel gets a
// bounded concurrency slot pool; policy and rate checks run before a token is
// consumed or a provider is called. Dispatch never returns an error: every
// failure mode collapses into a terminal Result code.
type Dispatcher struct {
	senders    map[domain.Channel]channel.Sender
	recipients map[domain.Channel]string
	policy     ChannelPolicy
	limiter    ratelimit.RateLimiter
	retrier    *retry.Executor
	metrics    *observability.Metrics
	logger     *zap.Logger

	concurrency int
	mu          sync.Mutex
	slots       map[domain.Channel]chan struct{}
}

func NewDispatcher(
	senders map[domain.Channel]channel.Sender,
	recipients map[domain.Channel]string,
	policy ChannelPolicy,
	limiter ratelimit.RateLimiter,
	retrier *retry.Executor,
	concurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if policy == nil {
		return nil, fmt.Errorf("channel policy is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if retrier == nil {
		return nil, fmt.Errorf("retry executor is required")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		senders:     senders,
		recipients:  recipients,
		policy:      policy,
		limiter:     limiter,
		retrier:     retrier,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
		slots:       make(map[domain.Channel]chan struct{}),
	}, nil
}

// Fanout dispatches to every supported channel concurrently and returns one
// Result per channel in the fixed channel order. The build callback renders
// the channel-specific message, since tracked links differ per channel.
// Per-channel failures never abort the rest of the fan-out.
func (d *Dispatcher) Fanout(ctx context.Context, user *domain.User, build func(ch domain.Channel) domain.Message) []Result {
	channels := domain.Channels()
	results := make([]Result, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = d.Send(gctx, ch, user, build(ch))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Send dispatches the message on a single channel and reports the terminal
// outcome. Disabled channels and missing recipients short-circuit without
// consuming a rate token.
func (d *Dispatcher) Send(ctx context.Context, ch domain.Channel, user *domain.User, message domain.Message) Result {
	result := d.send(ctx, ch, user, message)
	d.metrics.IncDispatchResult(ch.Key(), result.Code)

	if result.OK {
		d.logger.Info("dispatched message",
			zap.String("channel", ch.Key()),
			zap.String("message_id", result.MessageID),
		)
	} else {
		fields := []zap.Field{
			zap.String("channel", ch.Key()),
			zap.String("code", result.Code),
		}
		if result.Err != nil {
			fields = append(fields, zap.Error(result.Err))
		}
		d.logger.Warn("dispatch did not deliver", fields...)
	}

	return result
}

func (d *Dispatcher) send(ctx context.Context, ch domain.Channel, user *domain.User, message domain.Message) Result {
	result := Result{Channel: ch}

	release, err := d.acquireSlot(ctx, ch)
	if err != nil {
		result.Code = CodeSendFailed
		result.Err = err
		return result
	}
	defer release()

	sender, ok := d.senders[ch]
	if !d.policy.ChannelEnabled(ch) || !ok {
		result.Code = CodeChannelDisabled
		return result
	}

	recipient := d.resolveRecipient(ch, user)
	if recipient == "" {
		result.Code = CodeMissingRecipient
		return result
	}

	if !d.limiter.Allow(ch.Key()) {
		result.Code = CodeRateLimited
		return result
	}

	var resp *channel.ProviderResponse
	sendErr := d.retrier.Do(ctx, func(ctx context.Context) error {
		d.metrics.IncDispatchInFlight(ch.Key())
		start := time.Now()

		var err error
		resp, err = sender.Send(ctx, recipient, message)

		d.metrics.ObserveSendDuration(ch.Key(), time.Since(start))
		d.metrics.DecDispatchInFlight(ch.Key())
		return err
	})
	if sendErr != nil {
		result.Code = CodeSendFailed
		result.Err = sendErr
		return result
	}

	result.OK = true
	result.Code = CodeSuccess
	if resp != nil {
		result.MessageID = resp.MessageID
	}
	return result
}

// resolveRecipient prefers the statically configured recipient for the
// channel, falling back to the user's own handle.
func (d *Dispatcher) resolveRecipient(ch domain.Channel, user *domain.User) string {
	if static := strings.TrimSpace(d.recipients[ch]); static != "" {
		return static
	}
	if handle := user.Handle(ch); handle != nil {
		return strings.TrimSpace(*handle)
	}
	return ""
}

func (d *Dispatcher) acquireSlot(ctx context.Context, ch domain.Channel) (func(), error) {
	slot := d.slotFor(ch)

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("gave up waiting for a %s slot: %w", ch.Key(), ctx.Err())
	}
}

func (d *Dispatcher) slotFor(ch domain.Channel) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.slots[ch]
	if !ok {
		slot = make(chan struct{}, d.concurrency)
		d.slots[ch] = slot
	}
	return slot
}
