// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/util"
)

// ErrQueueFull is returned when an event cannot be queued.
var ErrQueueFull = errors.New("webhook queue full")

// Dispatcher fans events out to subscribed endpoints through a worker pool.
type Dispatcher struct {
	endpoints []model.Webhook
	client    *http.Client
	logger    *slog.Logger
	cfg       Config
	queue     chan *QueuedDelivery
	wg        sync.WaitGroup
	done      chan struct{}
	mu        sync.RWMutex
	running   bool
	sleep     func(ctx context.Context, d time.Duration) bool
}

// QueuedDelivery represents a delivery queued for processing.
type QueuedDelivery struct {
	EventID string
	Event   string
	Payload []byte
	URL     string
	Secret  string
}

// Config holds dispatcher configuration.
type Config struct {
	Workers        int           // Number of concurrent delivery workers
	QueueSize      int           // Deliveries buffered before Dispatch reports ErrQueueFull
	MaxAttempts    int           // Attempts per delivery including the first
	InitialBackoff time.Duration // Delay before the first retry
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
	// AllowPrivate permits loopback and private endpoints. Development only.
	AllowPrivate bool
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        3,
		QueueSize:      100,
		MaxAttempts:    MaxAttempts,
		InitialBackoff: InitialBackoff,
		MaxBackoff:     MaxBackoff,
		RequestTimeout: RequestTimeout,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	return c
}

// NewDispatcher creates a dispatcher for the given endpoints. Endpoints with
// an unsafe URL are rejected.
func NewDispatcher(endpoints []model.Webhook, logger *slog.Logger, cfg Config) (*Dispatcher, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	policy := util.EndpointPolicy{AllowPrivate: cfg.AllowPrivate}
	for _, ep := range endpoints {
		if err := util.ValidateEndpointURL(ep.URL, policy); err != nil {
			return nil, fmt.Errorf("webhook endpoint %q: %w", ep.URL, err)
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !cfg.AllowPrivate {
		transport.DialContext = util.SSRFSafeDialContext(&net.Dialer{Timeout: 10 * time.Second})
	}

	return &Dispatcher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: cfg.RequestTimeout, Transport: transport},
		logger:    logger,
		cfg:       cfg,
		queue:     make(chan *QueuedDelivery, cfg.QueueSize),
		done:      make(chan struct{}),
		sleep:     sleepContext,
	}, nil
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers, "endpoints", len(d.endpoints))

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish.
// Deliveries still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	// Deliveries outlive the request that produced them but not the dispatcher.
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	go func() {
		select {
		case <-d.done:
		case <-ctx.Done():
		}
		cancel()
	}()

	for {
		select {
		case <-workCtx.Done():
			d.logger.Debug("webhook worker stopping", "worker_id", id)
			return
		case delivery := <-d.queue:
			d.processDelivery(workCtx, delivery)
		}
	}
}

// Dispatch queues an event for every subscribed endpoint.
func (d *Dispatcher) Dispatch(_ context.Context, event *Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.logger.Warn("dispatcher not running, cannot dispatch event", "event_type", event.Type)
		return nil
	}

	var payload []byte
	var queued, dropped int
	for _, ep := range d.endpoints {
		if !ep.HasEvent(event.Type) {
			continue
		}
		if payload == nil {
			var err error
			if payload, err = json.Marshal(event); err != nil {
				return fmt.Errorf("encoding %s event: %w", event.Type, err)
			}
		}

		qd := &QueuedDelivery{
			EventID: event.ID,
			Event:   event.Type,
			Payload: payload,
			URL:     ep.URL,
			Secret:  ep.Secret,
		}
		select {
		case d.queue <- qd:
			queued++
		default:
			dropped++
			d.logger.Warn("delivery queue full, dropping delivery",
				"event_id", event.ID, "event_type", event.Type, "url", ep.URL)
		}
	}

	if queued == 0 && dropped == 0 {
		d.logger.Debug("no webhooks subscribed to event", "event_type", event.Type)
	}
	if dropped > 0 {
		return ErrQueueFull
	}
	return nil
}

// DispatchEvent is a convenience method to dispatch an event with the given type and data.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
