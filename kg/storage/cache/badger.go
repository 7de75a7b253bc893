// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache implements the optional storage.Cache contract on a
// BadgerDB instance separate from the property graph's, so cache
// eviction pressure never competes with graph durability.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kraklabs/kgsync/kg/storage"
)

// Adapter is a BadgerDB-backed storage.Cache.
type Adapter struct {
	db *badger.DB
}

// Open opens (or creates) a BadgerDB cache at dir. An empty dir opens
// an in-memory database.
func Open(dir string) (*Adapter, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (a *Adapter) Close() error { return a.db.Close() }

var _ storage.Cache = (*Adapter)(nil)

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	found := false
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			val = append([]byte(nil), v...)
			return nil
		})
	})
	return val, found, err
}

func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return a.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (a *Adapter) Del(ctx context.Context, key string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
