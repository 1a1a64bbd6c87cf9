// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/olegiv/portal-go/internal/version"
)

// Delivery defaults
const (
	MaxAttempts    = 5                // Maximum number of delivery attempts
	InitialBackoff = 2 * time.Second  // Initial backoff delay
	MaxBackoff     = 5 * time.Minute  // Maximum backoff delay
	RequestTimeout = 10 * time.Second // HTTP request timeout
	MaxResponseLen = 4 * 1024         // Maximum response body kept for logs
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        error
	ShouldRetry  bool
}

// processDelivery delivers a payload, retrying with exponential backoff
// until it succeeds, fails permanently or runs out of attempts.
func (d *Dispatcher) processDelivery(ctx context.Context, delivery *QueuedDelivery) {
	for attempt := 1; ; attempt++ {
		result := d.attemptDelivery(ctx, delivery)
		if result.Success {
			d.logger.Info("webhook delivered",
				"event_id", delivery.EventID,
				"event_type", delivery.Event,
				"url", delivery.URL,
				"status_code", result.StatusCode,
				"attempt", attempt)
			return
		}

		if !result.ShouldRetry || attempt >= d.cfg.MaxAttempts {
			d.logger.Warn("webhook delivery abandoned",
				"event_id", delivery.EventID,
				"event_type", delivery.Event,
				"url", delivery.URL,
				"attempts", attempt,
				"status_code", result.StatusCode,
				"error", result.Error)
			return
		}

		backoff := calculateBackoff(attempt, d.cfg.InitialBackoff, d.cfg.MaxBackoff)
		d.logger.Info("webhook delivery scheduled for retry",
			"event_id", delivery.EventID,
			"url", delivery.URL,
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", result.Error)
		if !d.sleep(ctx, backoff) {
			d.logger.Warn("webhook delivery cancelled",
				"event_id", delivery.EventID, "url", delivery.URL, "attempts", attempt)
			return
		}
	}
}

// attemptDelivery performs the actual HTTP POST request.
func (d *Dispatcher) attemptDelivery(ctx context.Context, delivery *QueuedDelivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("failed to create request: %w", err),
			ShouldRetry: false,
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "portal/"+version.Version)
	req.Header.Set("X-Webhook-Event", delivery.Event)
	req.Header.Set("X-Webhook-Delivery-ID", delivery.EventID)
	if delivery.Secret != "" {
		req.Header.Set("X-Webhook-Signature", GenerateSignature(delivery.Payload, delivery.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: ctx.Err() == nil,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	result := DeliveryResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: string(body),
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Success = true
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Client errors are permanent except timeouts and throttling.
		result.Error = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		result.ShouldRetry = resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests
	default:
		result.Error = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		result.ShouldRetry = true
	}
	return result
}

// calculateBackoff doubles the delay on each attempt, capped at maxBackoff.
// Attempt 1 waits initial, attempt 2 waits 2*initial, and so on.
func calculateBackoff(attempt int, initial, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	backoff := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	return backoff
}
