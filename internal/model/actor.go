// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Roles granted by the identity provider.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Actor is the caller of an operation as seen by the services. Identity and
// role management live outside the portal; only the capability is consulted.
type Actor struct {
	Subject       string
	Email         string
	Role          string
	Authenticated bool
	CanWrite      bool
}

// Anonymous is the actor for unauthenticated public requests.
var Anonymous = Actor{}

// NewActor builds an authenticated actor. Admins and editors may write.
func NewActor(subject, email, role string) Actor {
	return Actor{
		Subject:       subject,
		Email:         email,
		Role:          role,
		Authenticated: true,
		CanWrite:      role == RoleAdmin || role == RoleEditor,
	}
}
