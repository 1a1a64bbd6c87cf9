// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"
)

// Notifier publishes domain events to outbound subscribers.
// *webhook.Dispatcher satisfies it.
type Notifier interface {
	DispatchEvent(ctx context.Context, eventType string, data any) error
}

type nopNotifier struct{}

func (nopNotifier) DispatchEvent(context.Context, string, any) error { return nil }

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// notify dispatches an event; failures are logged and never fail the caller.
func notify(ctx context.Context, n Notifier, logger *slog.Logger, eventType string, data any) {
	if err := n.DispatchEvent(ctx, eventType, data); err != nil {
		logger.Warn("failed to dispatch event", "event_type", eventType, "error", err)
	}
}
