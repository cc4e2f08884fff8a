// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session hosts town networks for remote travellers.
//
// A session belongs to one username and owns one command stream: the
// network built by its "roads" command and every character placed since.
// Sessions are journaled so a restarted server can replay them.
//
// # Thread Safety
//
// Manager and Session are safe for concurrent use. Commands on one session
// are serialised by the session's mutex; different sessions run in
// parallel.
package session

import "errors"

// Sentinel errors for the session package.
var (
	// ErrSessionNotFound is returned when no live session has the given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidUsername is returned when a session is created without a username.
	ErrInvalidUsername = errors.New("username is required")

	// ErrTooManySessions is returned when the live session cap is reached.
	ErrTooManySessions = errors.New("too many sessions")

	// ErrRateLimited is returned when a session sends commands too quickly.
	ErrRateLimited = errors.New("command rate limit exceeded")

	// ErrJournal wraps failures to persist a session.
	ErrJournal = errors.New("session journal failure")
)
