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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/traveller/services/traveller/command"
	"github.com/AleutianAI/traveller/services/traveller/storage/badger"
	"github.com/AleutianAI/traveller/services/traveller/telemetry"
)

// Journal persists sessions and the commands they accepted.
//
// *badger.Store implements Journal.
type Journal interface {
	PutSession(ctx context.Context, rec badger.SessionRecord) error
	AppendCommand(ctx context.Context, id string, seq uint64, data []byte) error
	Sessions(ctx context.Context) ([]badger.SessionRecord, error)
	Commands(ctx context.Context, id string) ([][]byte, error)
	DeleteSession(ctx context.Context, id string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithRateLimit limits each session to perSecond commands with the given
// burst. perSecond <= 0 means unlimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(m *Manager) {
		if perSecond <= 0 {
			m.limit = rate.Inf
		} else {
			m.limit = rate.Limit(perSecond)
		}
		if burst < 1 {
			burst = 1
		}
		m.burst = burst
	}
}

// WithMaxSessions caps the number of live sessions. Zero means unlimited.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the live sessions.
type Manager struct {
	journal     Journal
	limit       rate.Limit
	burst       int
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
//
// Inputs:
//
//	journal - Where sessions are persisted. Nil keeps sessions in memory only.
//	opts - Functional options.
func NewManager(journal Journal, opts ...Option) *Manager {
	m := &Manager{
		journal:  journal,
		limit:    rate.Inf,
		burst:    1,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) newLimiter() *rate.Limiter {
	return rate.NewLimiter(m.limit, m.burst)
}

// Create starts a new session for username.
//
// Outputs:
//
//	*Session - The new session with a fresh UUID.
//	error - ErrInvalidUsername, ErrTooManySessions, or a wrapped ErrJournal.
func (m *Manager) Create(ctx context.Context, username string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	s := newSession(uuid.NewString(), username, m.now().UTC(), m.newLimiter())

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, m.maxSessions)
	}
	m.sessions[s.id] = s
	m.mu.Unlock()

	if m.journal != nil {
		rec := badger.SessionRecord{ID: s.id, Username: username, CreatedAtMilli: s.createdAt.UnixMilli()}
		if err := m.journal.PutSession(ctx, rec); err != nil {
			m.mu.Lock()
			delete(m.sessions, s.id)
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrJournal, err)
		}
	}

	recordSessions(ctx, 1)
	telemetry.LoggerWithTrace(ctx, m.logger).Info("Session created",
		slog.String("session_id", s.id),
		slog.String("username", username),
	)
	return s, nil
}

// Get returns the live session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns summaries of all live sessions, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete ends a session and removes it from the journal.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	// Wait out any command in flight so nothing is journaled after removal.
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	recordSessions(ctx, -1)
	telemetry.LoggerWithTrace(ctx, m.logger).Info("Session deleted", slog.String("session_id", id))

	if m.journal != nil {
		if err := m.journal.DeleteSession(ctx, id); err != nil {
			return fmt.Errorf("%w: %w", ErrJournal, err)
		}
	}
	return nil
}

// Exec runs one command in the session with the given ID.
//
// Description:
//
//	Checks the session's rate limit, runs the command under the session
//	mutex and journals it unless it was rejected as a protocol error.
//	Commands whose response reports a domain failure are journaled too,
//	so a replay reaches the same state. When the journal write fails the
//	command is rolled back, leaving the session as the journal holds it.
//
// Inputs:
//
//	ctx - Context for tracing and the journal write.
//	id - The session ID.
//	cmd - The command to run.
//
// Outputs:
//
//	*command.Response - The answer. Nil when error is non-nil.
//	error - ErrSessionNotFound, ErrRateLimited, a protocol error from the
//	  command package, or a wrapped ErrJournal.
//
// Thread Safety: Safe for concurrent use.
func (m *Manager) Exec(ctx context.Context, id string, cmd command.Command) (*command.Response, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !s.limiter.Allow() {
		recordCommand(ctx, cmd.Command, "RATE_LIMITED", 0)
		return nil, fmt.Errorf("%w: session %s", ErrRateLimited, id)
	}

	ctx, span := startCommandSpan(ctx, id, cmd.Command)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, m.logger).With(slog.String("session_id", id))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	start := time.Now()
	resp, err := s.apply(cmd)
	duration := time.Since(start)

	if err != nil {
		recordCommand(ctx, cmd.Command, command.Code(err), duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("Command rejected", slog.String("command", cmd.Command), slog.String("error", err.Error()))
		return nil, err
	}

	recordCommand(ctx, cmd.Command, resp.Code, duration)
	span.SetAttributes(attribute.Bool("command.ok", resp.OK))
	if resp.Safe != nil {
		recordPassage(ctx, *resp.Safe)
		span.SetAttributes(attribute.Bool("passage.safe", *resp.Safe))
	}

	if err := m.journalCommand(ctx, s, cmd); err != nil {
		s.rollback()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Failed to journal command", slog.String("command", cmd.Command), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Debug("Command executed",
		slog.String("command", cmd.Command),
		slog.Bool("ok", resp.OK),
		slog.Duration("duration", duration),
	)
	return resp, nil
}

// journalCommand appends cmd under the session's current sequence number.
// Caller holds s.mu and has applied cmd.
func (m *Manager) journalCommand(ctx context.Context, s *Session, cmd command.Command) error {
	if m.journal == nil {
		return nil
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: encode command: %w", ErrJournal, err)
	}
	if err := m.journal.AppendCommand(ctx, s.id, s.seq, data); err != nil {
		return fmt.Errorf("%w: %w", ErrJournal, err)
	}
	return nil
}

// Restore rebuilds sessions from the journal.
//
// Description:
//
//	Replays every journaled command of every journaled session. Sessions
//	already live are skipped. A command that no longer applies is logged
//	and skipped; the rest of the session still replays.
//
// Outputs:
//
//	int - Number of sessions restored.
//	error - Non-nil if the journal cannot be read.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.journal == nil {
		return 0, nil
	}
	ctx, span := tracer.Start(ctx, "Manager.Restore")
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, m.logger)

	records, err := m.journal.Sessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list sessions: %w", ErrJournal, err)
	}

	restored := 0
	for _, rec := range records {
		if _, err := m.Get(rec.ID); err == nil {
			continue
		}

		commands, err := m.journal.Commands(ctx, rec.ID)
		if err != nil {
			if errors.Is(err, badger.ErrSessionNotFound) {
				continue
			}
			return restored, fmt.Errorf("%w: commands of %s: %w", ErrJournal, rec.ID, err)
		}

		s := newSession(rec.ID, rec.Username, time.UnixMilli(rec.CreatedAtMilli).UTC(), m.newLimiter())
		for i, data := range commands {
			cmd, err := command.Parse(data)
			if err == nil {
				_, err = s.apply(cmd)
			}
			if err != nil {
				s.seq++
				logger.Warn("Skipping journaled command",
					slog.String("session_id", rec.ID),
					slog.Int("index", i),
					slog.String("error", err.Error()),
				)
			}
		}

		m.mu.Lock()
		m.sessions[s.id] = s
		m.mu.Unlock()
		recordSessions(ctx, 1)
		restored++
	}

	span.SetAttributes(attribute.Int("sessions.restored", restored))
	logger.Info("Sessions restored", slog.Int("count", restored))
	return restored, nil
}
