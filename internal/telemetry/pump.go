package telemetry

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"vr-hmd-renderer/internal/logging"
)

// DefaultRetry is the wait between reconnect attempts.
const DefaultRetry = time.Second

// Sink receives parsed samples. The pose controller is the usual sink.
type Sink interface {
	Apply(Message) error
}

// Stats counts what a pump has seen.
type Stats struct {
	Applied    int64
	Dropped    int64
	Ignored    int64
	Reconnects int64
}

type counters struct {
	applied, dropped, ignored, reconnects atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Applied:    c.applied.Load(),
		Dropped:    c.dropped.Load(),
		Ignored:    c.ignored.Load(),
		Reconnects: c.reconnects.Load(),
	}
}

// Drain feeds every message of src into sink until src ends or ctx is done.
// Malformed samples are counted and skipped. It returns nil at io.EOF.
func Drain(ctx context.Context, src Source, sink Sink) (Stats, error) {
	var c counters
	err := drain(ctx, src, sink, &c)
	return c.snapshot(), err
}

func drain(ctx context.Context, src Source, sink Sink, c *counters) error {
	log := logging.Logger()
	stop := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stop()

	for {
		line, err := src.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		m, err := Parse(line)
		if err != nil {
			c.dropped.Add(1)
			log.Debug("telemetry: drop sample", "line", line, "err", err)
			continue
		}
		if m.Kind == Unknown {
			c.ignored.Add(1)
			continue
		}
		if err := sink.Apply(m); err != nil {
			c.dropped.Add(1)
			log.Debug("telemetry: sample rejected", "tag", m.Tag, "err", err)
			continue
		}
		c.applied.Add(1)
	}
}

// Reconnecting keeps a source connected: whenever dialing fails or the feed
// ends it waits Retry and dials again, until the context is done.
type Reconnecting struct {
	Dial  DialFunc
	Sink  Sink
	Retry time.Duration

	// OnConnect, when set, is told about every connection change.
	OnConnect func(connected bool)

	c counters
}

// Stats returns the counters accumulated over all connections so far.
func (r *Reconnecting) Stats() Stats { return r.c.snapshot() }

// Run blocks until ctx is done and then returns nil.
func (r *Reconnecting) Run(ctx context.Context) error {
	log := logging.Logger()
	retry := r.Retry
	if retry <= 0 {
		retry = DefaultRetry
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			r.c.reconnects.Add(1)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retry):
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		src, err := r.Dial(ctx)
		if err != nil {
			log.Warn("telemetry: connect failed", "err", err, "retry", retry)
			continue
		}
		log.Info("telemetry: connected")
		r.notify(true)

		err = drain(ctx, src, r.Sink, &r.c)
		_ = src.Close()
		r.notify(false)
		if ctx.Err() != nil {
			return nil
		}
		log.Info("telemetry: connection lost", "err", err, "retry", retry)
	}
}

func (r *Reconnecting) notify(connected bool) {
	if r.OnConnect != nil {
		r.OnConnect(connected)
	}
}
