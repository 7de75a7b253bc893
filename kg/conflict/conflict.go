// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package conflict detects and resolves divergence between an incoming
// entity or relationship and its currently persisted form: a deep diff
// via go-cmp, a signature-based dedup of repeat conflicts, and a
// priority-ordered, pluggable list of resolution strategies.
package conflict

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Target discriminates whether a conflict is over an entity or a
// relationship, since the applicable strategies differ.
type Target int

const (
	TargetEntity Target = iota
	TargetRelationship
)

// Action classifies what kind of change produced the conflict, needed
// by strategies like skip-deletions that only apply to one action.
type Action int

const (
	ActionUpsert Action = iota
	ActionDelete
)

// ignoreFields are dropped from both sides before diffing: purely
// timestamp-like bookkeeping that changes on every sync regardless of
// whether anything meaningful changed.
var ignoreFields = map[string]bool{
	"CreatedAtMilli":     true,
	"LastModifiedMilli":  true,
}

// Record is one detected conflict between a persisted value and an
// incoming one.
type Record struct {
	TargetID     string
	Target       Target
	Action       Action
	Signature    string
	Diff         string
	Current      any
	Incoming     any
	Resolved     bool
	ManualOverride bool
}

// Detector loads the currently persisted form of a target, normalizes
// both sides, computes a deep diff, and reuses an open conflict record
// with the same signature instead of creating a duplicate.
type Detector struct {
	mu               sync.Mutex
	openBySignature  map[string]*Record
	manualOverrides  map[string]bool
}

// NewDetector returns an empty Detector.
func NewDetector() *Detector {
	return &Detector{
		openBySignature: map[string]*Record{},
		manualOverrides: map[string]bool{},
	}
}

// Detect compares current against incoming. It returns nil if they are
// equivalent once normalized. A non-nil Record is either a reused open
// conflict (same signature already pending) or a fresh one; its
// ManualOverride field is true if an operator previously resolved this
// exact divergence, which callers should treat as already decided.
func (d *Detector) Detect(targetID string, target Target, action Action, current, incoming any) (*Record, error) {
	diff := cmp.Diff(normalize(current), normalize(incoming), cmpopts.EquateEmpty())
	if diff == "" {
		return nil, nil
	}

	sig, err := signature(targetID, diff)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.openBySignature[sig]; ok {
		return existing, nil
	}

	rec := &Record{
		TargetID:       targetID,
		Target:         target,
		Action:         action,
		Signature:      sig,
		Diff:           diff,
		Current:        current,
		Incoming:       incoming,
		ManualOverride: d.manualOverrides[sig],
	}
	d.openBySignature[sig] = rec
	return rec, nil
}

// RecordManualOverride remembers that an operator resolved the
// divergence with this signature, so future detections of the exact
// same diff do not surface again.
func (d *Detector) RecordManualOverride(sig string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manualOverrides[sig] = true
	delete(d.openBySignature, sig)
}

// Resolve marks a conflict resolved and removes it from the open set.
func (d *Detector) Resolve(sig string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.openBySignature, sig)
}

func signature(targetID, diff string) (string, error) {
	payload, err := json.Marshal(struct {
		TargetID string
		Diff     string
	}{targetID, diff})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// normalize drops ignored fields from a JSON-roundtripped copy of v so
// the diff is never polluted by bookkeeping timestamps that always
// change between persisted and incoming forms.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return v
	}
	for k := range ignoreFields {
		delete(m, k)
	}
	return m
}

// sortedKeys is a small helper used by strategies that need
// deterministic iteration over a metadata map when merging.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
