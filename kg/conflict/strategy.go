// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package conflict

import (
	"fmt"
	"sort"
)

// Resolution is the outcome a Strategy produces for a Record: the
// value that should actually be persisted, and whether resolution
// requires a human to look at it regardless.
type Resolution struct {
	Value             any
	RequiresManualReview bool
	StrategyName      string
}

// Strategy is a named, prioritized conflict-resolution rule. Consumers
// may register additional strategies via Registry.Register; the
// strategy with the lowest Priority number whose CanHandle returns true
// wins.
type Strategy struct {
	Name      string
	Priority  int
	CanHandle func(rec *Record) bool
	Resolve   func(rec *Record) (Resolution, error)
}

// Registry holds the ordered set of strategies consulted to resolve a
// Record. Strategies are tried lowest Priority number first.
type Registry struct {
	strategies []Strategy
}

// NewRegistry builds a Registry seeded with the three built-in
// strategies: last-write-wins, property-merge, skip-deletions.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(lastWriteWinsStrategy)
	r.Register(propertyMergeStrategy)
	r.Register(skipDeletionsStrategy)
	return r
}

// Register appends a strategy and keeps the set sorted by ascending
// priority number, so the most specific strategies (lowest number) are
// tried before the catch-all (last-write-wins, 100).
func (r *Registry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
	sort.SliceStable(r.strategies, func(i, j int) bool {
		return r.strategies[i].Priority < r.strategies[j].Priority
	})
}

// Resolve tries each registered strategy in priority order (most
// specific first) and returns the first applicable resolution.
func (r *Registry) Resolve(rec *Record) (Resolution, error) {
	for _, s := range r.strategies {
		if s.CanHandle(rec) {
			return s.Resolve(rec)
		}
	}
	return Resolution{}, fmt.Errorf("conflict: no strategy can handle target %s", rec.TargetID)
}

// lastWriteWinsStrategy always applies: the incoming value simply
// overwrites whatever is currently persisted. It sits at the bottom of
// the priority order so more specific strategies get first refusal.
var lastWriteWinsStrategy = Strategy{
	Name:     "last-write-wins",
	Priority: 100,
	CanHandle: func(rec *Record) bool {
		return true
	},
	Resolve: func(rec *Record) (Resolution, error) {
		return Resolution{Value: rec.Incoming, StrategyName: "last-write-wins"}, nil
	},
}

// propertyMergeStrategy only applies to entity upserts. It merges the
// two property maps key by key: incoming wins on direct collisions
// except for a "Metadata" sub-object, which is merged rather than
// replaced, and LastModifiedMilli, which always takes the later value.
var propertyMergeStrategy = Strategy{
	Name:     "property-merge",
	Priority: 50,
	CanHandle: func(rec *Record) bool {
		return rec.Target == TargetEntity && rec.Action == ActionUpsert
	},
	Resolve: func(rec *Record) (Resolution, error) {
		current, _ := rec.Current.(map[string]any)
		incoming, _ := rec.Incoming.(map[string]any)
		merged := map[string]any{}
		for k, v := range current {
			merged[k] = v
		}
		for _, k := range sortedKeys(incoming) {
			v := incoming[k]
			if k == "Metadata" {
				merged[k] = mergeMetadata(current[k], v)
				continue
			}
			merged[k] = v
		}
		milli := func(v any) float64 {
			switch n := v.(type) {
			case int64:
				return float64(n)
			case int:
				return float64(n)
			case float64:
				return n
			}
			return 0
		}
		if cur, ok := current["LastModifiedMilli"]; ok && milli(cur) > milli(incoming["LastModifiedMilli"]) {
			merged["LastModifiedMilli"] = cur
		}
		return Resolution{Value: merged, StrategyName: "property-merge"}, nil
	},
}

func mergeMetadata(current, incoming any) any {
	currentMap, _ := current.(map[string]any)
	incomingMap, _ := incoming.(map[string]any)
	if currentMap == nil {
		return incomingMap
	}
	merged := map[string]any{}
	for k, v := range currentMap {
		merged[k] = v
	}
	for k, v := range incomingMap {
		merged[k] = v
	}
	return merged
}

// skipDeletionsStrategy only applies to entity deletions: it keeps the
// currently persisted value, refusing to let an incoming delete win
// over a concurrently modified entity.
var skipDeletionsStrategy = Strategy{
	Name:     "skip-deletions",
	Priority: 25,
	CanHandle: func(rec *Record) bool {
		return rec.Target == TargetEntity && rec.Action == ActionDelete
	},
	Resolve: func(rec *Record) (Resolution, error) {
		return Resolution{Value: rec.Current, RequiresManualReview: true, StrategyName: "skip-deletions"}, nil
	},
}
