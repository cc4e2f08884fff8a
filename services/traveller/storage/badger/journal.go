// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrSessionNotFound is returned when a session has no metadata record.
var ErrSessionNotFound = errors.New("session not found in store")

const (
	sessionPrefix = "session/"
	metaSuffix    = "/meta"
	cmdInfix      = "/cmd/"
)

// SessionRecord is the persisted metadata of a session.
type SessionRecord struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	CreatedAtMilli int64  `json:"created_at_milli"`
}

func metaKey(id string) []byte {
	return []byte(sessionPrefix + id + metaSuffix)
}

func commandPrefix(id string) []byte {
	return []byte(sessionPrefix + id + cmdInfix)
}

func commandKey(id string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s%s%020d", sessionPrefix, id, cmdInfix, seq))
}

// PutSession stores a session's metadata, replacing any previous record.
func (s *Store) PutSession(ctx context.Context, rec SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return errors.New("session record has empty id")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", rec.ID, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(rec.ID), data)
	}); err != nil {
		return fmt.Errorf("put session %s: %w", rec.ID, err)
	}
	return nil
}

// AppendCommand stores the seq-th command accepted by a session.
//
// Sequence numbers order replay; they need not be contiguous.
func (s *Store) AppendCommand(ctx context.Context, id string, seq uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(commandKey(id, seq), data)
	}); err != nil {
		return fmt.Errorf("append command %d to session %s: %w", seq, id, err)
	}
	return nil
}

// Sessions returns the metadata of every stored session, ordered by id.
func (s *Store) Sessions(ctx context.Context) ([]SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), metaSuffix) {
				continue
			}
			var rec SessionRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return records, nil
}

// Commands returns the commands of a session in sequence order.
//
// Outputs:
//
//	[][]byte - Raw command JSON, oldest first.
//	error - Wraps ErrSessionNotFound if the session has no metadata.
func (s *Store) Commands(ctx context.Context, id string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var commands [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = commandPrefix(id)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			commands = append(commands, data)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load commands of session %s: %w", id, err)
	}
	return commands, nil
}

// DeleteSession removes a session's metadata and commands.
//
// Deleting an unknown session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The trailing slash keeps "session/ab" from matching "session/abc".
	prefix := []byte(sessionPrefix + id + "/")
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
