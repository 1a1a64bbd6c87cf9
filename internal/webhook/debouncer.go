// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"sync"
	"time"
)

// DebounceConfig holds debouncer configuration.
type DebounceConfig struct {
	// Interval is the quiet period after the last event before it is sent.
	Interval time.Duration
	// MaxWait caps how long a continuously updated event can be held back.
	MaxWait time.Duration
}

// DefaultDebounceConfig returns default debounce configuration.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Interval: 2 * time.Second,
		MaxWait:  10 * time.Second,
	}
}

type heldEvent struct {
	event    *Event
	deadline time.Time // never later than first seen + MaxWait
	first    time.Time
}

// Debouncer coalesces bursts of events about the same entity into one
// delivery carrying the latest payload. An editor saving the about page
// five times in a row produces a single page.updated notification.
//
// A single goroutine releases held events as their deadlines pass.
type Debouncer struct {
	dispatcher *Dispatcher
	cfg        DebounceConfig

	mu     sync.Mutex
	held   map[string]*heldEvent
	closed bool

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDebouncer starts a debouncer in front of dispatcher.
func NewDebouncer(dispatcher *Dispatcher, cfg DebounceConfig) *Debouncer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultDebounceConfig().Interval
	}
	if cfg.MaxWait < cfg.Interval {
		cfg.MaxWait = cfg.Interval
	}
	d := &Debouncer{
		dispatcher: dispatcher,
		cfg:        cfg,
		held:       make(map[string]*heldEvent),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go d.loop()
	return d
}

// Dispatch holds event until no newer event about the same entity arrives
// for Interval. Once stopped, events go straight to the dispatcher.
func (d *Debouncer) Dispatch(ctx context.Context, event *Event) error {
	key := event.coalesceKey()
	now := time.Now()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return d.dispatcher.Dispatch(ctx, event)
	}
	h, ok := d.held[key]
	if !ok {
		h = &heldEvent{first: now}
		d.held[key] = h
	}
	h.event = event
	h.deadline = now.Add(d.cfg.Interval)
	if limit := h.first.Add(d.cfg.MaxWait); h.deadline.After(limit) {
		h.deadline = limit
	}
	d.mu.Unlock()

	d.dispatcher.logger.Debug("event held for debounce",
		"key", key, "event_type", event.Type, "held_for", now.Sub(h.first))

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// DispatchEvent wraps data in an event and holds it.
func (d *Debouncer) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

func (d *Debouncer) loop() {
	defer close(d.done)

	timer := time.NewTimer(0)
	timer.Stop()
	defer timer.Stop()

	for {
		next, pending := d.releaseDue(time.Now())
		if pending {
			timer.Reset(time.Until(next))
		} else {
			timer.Stop()
		}

		select {
		case <-d.quit:
			return
		case <-d.wake:
		case <-timer.C:
		}
	}
}

// releaseDue sends every held event whose deadline has passed and reports
// the earliest remaining deadline.
func (d *Debouncer) releaseDue(now time.Time) (time.Time, bool) {
	var due []*Event
	var next time.Time

	d.mu.Lock()
	for key, h := range d.held {
		if !h.deadline.After(now) {
			due = append(due, h.event)
			delete(d.held, key)
			continue
		}
		if next.IsZero() || h.deadline.Before(next) {
			next = h.deadline
		}
	}
	d.mu.Unlock()

	d.send(due)
	return next, !next.IsZero()
}

func (d *Debouncer) send(events []*Event) {
	for _, event := range events {
		if err := d.dispatcher.Dispatch(context.Background(), event); err != nil {
			d.dispatcher.logger.Error("failed to dispatch debounced event",
				"error", err, "event_type", event.Type)
		}
	}
}

// Flush sends every held event now.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	events := make([]*Event, 0, len(d.held))
	for key, h := range d.held {
		events = append(events, h.event)
		delete(d.held, key)
	}
	d.mu.Unlock()

	d.send(events)
}

// Stop ends the release loop and flushes what is still held. Call it
// before stopping the dispatcher.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.quit)
		<-d.done
		d.Flush()
	})
}

// PendingCount returns the number of events currently held.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.held)
}
