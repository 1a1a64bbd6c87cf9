// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrPermission      = errors.New("permission denied")
	ErrExternalService = errors.New("external service unavailable")
)

// ValidationError reports malformed input. Fields maps field names to
// messages when more than one field failed.
type ValidationError struct {
	Field   string
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return "validation failed: " + strings.Join(parts, "; ")
	}
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Details returns field messages suitable for an API response.
func (e *ValidationError) Details() map[string]string {
	if len(e.Fields) > 0 {
		return maps.Clone(e.Fields)
	}
	if e.Field != "" {
		return map[string]string{e.Field: e.Message}
	}
	return nil
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// fromValidation converts ozzo-validation errors into a ValidationError.
// Internal rule errors are returned unchanged.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fe := range fieldErrs {
			if fe != nil {
				fields[name] = fe.Error()
			}
		}
		if len(fields) == 1 {
			for name, msg := range fields {
				return &ValidationError{Field: name, Message: msg, Fields: fields}
			}
		}
		return &ValidationError{Message: "validation failed", Fields: fields}
	}
	return &ValidationError{Message: err.Error()}
}

// NotFoundError reports a missing or hidden entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

// ConflictError reports a uniqueness or version precondition failure.
type ConflictError struct {
	Resource string
	ID       string
	Message  string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func staleVersion(resource string, id any) *ConflictError {
	return &ConflictError{
		Resource: resource,
		ID:       fmt.Sprint(id),
		Message:  fmt.Sprintf("%s %v was modified by someone else; reload and retry", resource, id),
	}
}

// PermissionError reports that the actor may not perform an action.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return "not allowed to " + e.Action
}

// Is matches ErrPermission.
func (e *PermissionError) Is(target error) bool { return target == ErrPermission }

// ExternalServiceError wraps a failure of the payment processor or asset
// store. Callers may retry.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Is matches ErrExternalService.
func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

// Retryable reports that the operation may succeed if repeated.
func (e *ExternalServiceError) Retryable() bool { return true }
