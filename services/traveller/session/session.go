// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/traveller/services/traveller/command"
)

// Session is one traveller's command stream and its town network.
type Session struct {
	id        string
	username  string
	createdAt time.Time
	limiter   *rate.Limiter

	mu       sync.Mutex
	executor *command.Executor
	seq      uint64
	closed   bool

	// history holds the journaled commands in order; executor state is
	// always the result of replaying it.
	history []command.Command
}

// Summary describes a session without exposing its network.
type Summary struct {
	ID         string    `json:"session_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	Commands   uint64    `json:"commands"`
	Towns      int       `json:"towns"`
	Roads      int       `json:"roads"`
	Characters int       `json:"characters"`
}

func newSession(id, username string, createdAt time.Time, limiter *rate.Limiter) *Session {
	return &Session{
		id:        id,
		username:  username,
		createdAt: createdAt,
		limiter:   limiter,
		executor:  command.NewExecutor(),
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Username returns the owner of the session.
func (s *Session) Username() string { return s.username }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Summary returns a snapshot of the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		ID:        s.id,
		Username:  s.username,
		CreatedAt: s.createdAt,
		Commands:  s.seq,
	}
	if network := s.executor.Network(); network != nil {
		sum.Towns = network.TownCount()
		sum.Roads = network.RoadCount()
		for _, t := range network.Towns() {
			if t.HasOccupant() {
				sum.Characters++
			}
		}
	}
	return sum
}

// apply runs cmd and keeps it in history when it is not a protocol error.
// Caller holds s.mu.
func (s *Session) apply(cmd command.Command) (*command.Response, error) {
	resp, err := s.executor.Execute(cmd)
	if err != nil {
		return nil, err
	}
	s.seq++
	s.history = append(s.history, cmd)
	return resp, nil
}

// rollback undoes the last applied command by replaying the rest of the
// history into a fresh executor. Caller holds s.mu.
func (s *Session) rollback() {
	if len(s.history) == 0 {
		return
	}
	s.history = s.history[:len(s.history)-1]
	s.seq--

	s.executor = command.NewExecutor()
	for _, cmd := range s.history {
		// Every command in history already applied once against the same
		// prefix, so replay cannot fail.
		_, _ = s.executor.Execute(cmd)
	}
}
