// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", invalid("title", "is required"), ErrValidation},
		{"not found", notFound("content", 7), ErrNotFound},
		{"conflict", staleVersion("content", 7), ErrConflict},
		{"permission", &PermissionError{Action: "edit"}, ErrPermission},
		{"external", &ExternalServiceError{Op: "verify", Err: errors.New("timeout")}, ErrExternalService},
	}

	sentinels := []error{ErrValidation, ErrNotFound, ErrConflict, ErrPermission, ErrExternalService}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			for _, s := range sentinels {
				assert.Equal(t, s == tt.want, errors.Is(wrapped, s), "errors.Is(%v, %v)", tt.err, s)
			}
		})
	}
}

func TestExternalServiceError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ExternalServiceError{Op: "create checkout session", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
	assert.Equal(t, "create checkout session: connection refused", err.Error())
}

func TestFromValidation(t *testing.T) {
	assert.NoError(t, fromValidation(nil))

	err := fromValidation(validation.Errors{
		"title": errors.New("cannot be blank"),
		"slug":  errors.New("must be valid"),
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"title": "cannot be blank", "slug": "must be valid"}, ve.Details())
	assert.Equal(t, "validation failed: slug: must be valid; title: cannot be blank", ve.Error())

	single := fromValidation(validation.Errors{"title": errors.New("cannot be blank")})
	assert.ErrorAs(t, single, &ve)
	assert.Equal(t, "title", ve.Field)
	assert.Equal(t, map[string]string{"title": "cannot be blank"}, ve.Details())
}

func TestValidationError_Details(t *testing.T) {
	assert.Equal(t, map[string]string{"data": "must be a JSON object"}, invalid("data", "must be a JSON object").Details())
	assert.Nil(t, (&ValidationError{Message: "bad"}).Details())
}
