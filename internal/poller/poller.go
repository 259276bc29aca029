// Package poller owns the update cursor and the blocking long-poll cycle
// against the transport. Delivery is at-least-once: the cursor advances
// only after an event is handled, so a crash between handling and advance
// replays that event on restart. Downstream registration and summary
// recompute are idempotent under replay; message appends are not and may
// duplicate log entries. That is a documented property, not masked here.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hyejuteao/pineveilbot/internal/metrics"
	"github.com/hyejuteao/pineveilbot/relay"
)

const (
	DefaultPollTimeout = 30 * time.Second
	DefaultBackoff     = 5 * time.Second
)

// Source fetches inbound events with sequence ids >= cursor, blocking up
// to timeout for at least one event.
type Source interface {
	FetchEvents(ctx context.Context, cursor int64, timeout time.Duration) ([]relay.Event, error)
	// IsWaitTimeout reports whether err is the bounded wait elapsing
	// with nothing to return, which is not a failure.
	IsWaitTimeout(err error) bool
}

// Handler processes one event. A non-nil error leaves the cursor on the
// previous event so the failed one is fetched again.
type Handler interface {
	HandleEvent(ctx context.Context, ev relay.Event) error
}

type state int

const (
	stateWaiting state = iota
	stateProcessing
	stateBackoff
)

type Options struct {
	Source      Source
	Handler     Handler
	Logger      *slog.Logger
	PollTimeout time.Duration
	Backoff     time.Duration
	// StartCursor seeds the cursor, usually 0 for a fresh process.
	StartCursor int64
}

type Poller struct {
	source      Source
	handler     Handler
	logger      *slog.Logger
	pollTimeout time.Duration
	backoff     time.Duration

	mu     sync.Mutex
	cursor int64
}

func New(opts Options) (*Poller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Poller{
		source:      opts.Source,
		handler:     opts.Handler,
		logger:      logger,
		pollTimeout: pollTimeout,
		backoff:     backoff,
		cursor:      opts.StartCursor,
	}, nil
}

// Cursor returns the highest successfully processed sequence id.
func (p *Poller) Cursor() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *Poller) setCursor(seq int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq > p.cursor {
		p.cursor = seq
	}
}

// Run drives the waiting -> processing -> (waiting | backoff) loop until
// ctx is canceled. Transport failures never terminate the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller_start", "cursor", p.Cursor(), "poll_timeout", p.pollTimeout.String())
	st := stateWaiting
	for {
		if ctx.Err() != nil {
			p.logger.Info("poller_stop", "reason", "context_canceled", "cursor", p.Cursor())
			return nil
		}
		switch st {
		case stateBackoff:
			if !sleepCtx(ctx, p.backoff) {
				continue
			}
			st = stateWaiting
		default:
			st = p.cycle(ctx)
		}
	}
}

// cycle performs one fetch-and-process pass and reports the next state.
func (p *Poller) cycle(ctx context.Context) state {
	events, err := p.source.FetchEvents(ctx, p.Cursor()+1, p.pollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return stateWaiting
		}
		if p.source.IsWaitTimeout(err) {
			p.logger.Debug("poller_wait_timeout")
			return stateWaiting
		}
		metrics.TransportErrors.Inc()
		p.logger.Warn("poller_fetch_error", "error", err.Error(), "backoff", p.backoff.String())
		return stateBackoff
	}
	metrics.PollCycles.Inc()

	for _, ev := range events {
		if ctx.Err() != nil {
			return stateWaiting
		}
		if err := p.handler.HandleEvent(ctx, ev); err != nil {
			p.logger.Warn("poller_handle_error", "sequence_id", ev.SequenceID, "error", err.Error())
			return stateBackoff
		}
		p.setCursor(ev.SequenceID)
		metrics.EventsProcessed.Inc()
	}
	return stateWaiting
}

// sleepCtx waits d unless ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
