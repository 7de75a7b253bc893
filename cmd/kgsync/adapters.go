// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kraklabs/kgsync/kg/embedprovider"
	"github.com/kraklabs/kgsync/kg/kgcontext"
	"github.com/kraklabs/kgsync/kg/storage"
	"github.com/kraklabs/kgsync/kg/storage/cache"
	"github.com/kraklabs/kgsync/kg/storage/propertygraph"
	"github.com/kraklabs/kgsync/kg/storage/relational"
	"github.com/kraklabs/kgsync/kg/storage/vectorstore"
)

// closer is the aggregate teardown handle for every adapter openAdapters
// constructs. Call it once, after the pipeline has finished, regardless
// of whether the run succeeded.
type closer func() error

// openAdapters opens the property graph, cache, relational, vector, and
// embedding backends named by cfg and bundles them into a
// kgcontext.Adapters. The returned closer releases every handle it
// managed to open, even if a later adapter failed -- so a half-open set
// never leaks file locks.
func openAdapters(cfg Config) (kgcontext.Adapters, closer, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []string
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("close adapters: %s", strings.Join(errs, "; "))
		}
		return nil
	}

	graphDir, err := expandPath(cfg.Storage.GraphDir)
	if err != nil {
		return kgcontext.Adapters{}, closeAll, err
	}
	graph, err := propertygraph.Open(graphDir)
	if err != nil {
		return kgcontext.Adapters{}, closeAll, fmt.Errorf("open property graph %s: %w", graphDir, err)
	}
	closers = append(closers, graph.Close)

	var cacheAdapter *cache.Adapter
	if cfg.Storage.CacheDir != "" {
		cacheDir, err := expandPath(cfg.Storage.CacheDir)
		if err != nil {
			return kgcontext.Adapters{}, closeAll, err
		}
		cacheAdapter, err = cache.Open(cacheDir)
		if err != nil {
			return kgcontext.Adapters{}, closeAll, fmt.Errorf("open cache %s: %w", cacheDir, err)
		}
		closers = append(closers, cacheAdapter.Close)
	}

	var rel *relational.Adapter
	if cfg.Storage.RelationalDSN != "" {
		dsn, err := expandPath(cfg.Storage.RelationalDSN)
		if err != nil {
			return kgcontext.Adapters{}, closeAll, err
		}
		rel, err = relational.Open(dsn)
		if err != nil {
			return kgcontext.Adapters{}, closeAll, fmt.Errorf("open relational store %s: %w", dsn, err)
		}
		closers = append(closers, rel.Close)
	}

	vectors, vectorCloser, err := openVectorStore(cfg.Vector)
	if err != nil {
		return kgcontext.Adapters{}, closeAll, err
	}
	if vectorCloser != nil {
		closers = append(closers, vectorCloser)
	}

	embed, err := openEmbedProvider(cfg.Embed)
	if err != nil {
		return kgcontext.Adapters{}, closeAll, err
	}

	adapters := kgcontext.Adapters{
		Graph:   graph,
		Vectors: vectors,
		Embed:   embed,
	}
	if cacheAdapter != nil {
		adapters.Cache = cacheAdapter
	}
	if rel != nil {
		adapters.Relational = rel
	}
	return adapters, closeAll, nil
}

func openVectorStore(cfg VectorConfig) (storage.VectorStore, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sqlite":
		path, err := expandPath(valueOr(cfg.SQLitePath, "~/.kgsync/vectors.db"))
		if err != nil {
			return nil, nil, err
		}
		adapter, err := vectorstore.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite vector store %s: %w", path, err)
		}
		return adapter, adapter.Close, nil
	case "weaviate":
		scheme := valueOr(cfg.WeaviateHTTP, "http")
		adapter, err := vectorstore.DialWeaviate(cfg.WeaviateHost, scheme)
		if err != nil {
			return nil, nil, fmt.Errorf("dial weaviate %s: %w", cfg.WeaviateHost, err)
		}
		return adapter, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q (want sqlite or weaviate)", cfg.Backend)
	}
}

// openEmbedProvider falls back to the deterministic pseudo-random
// provider when OPENAI_API_KEY is unset, same as OpenAIProvider's own
// per-request degrade path on a failed call.
func openEmbedProvider(cfg EmbedConfig) (embedprovider.Provider, error) {
	model := openai.EmbeddingModel(cfg.Model)
	provider, err := embedprovider.NewOpenAIProvider(model)
	if err != nil {
		return embedprovider.FallbackProvider{}, nil
	}
	return provider, nil
}

// expandPath resolves a leading "~" to the user's home directory, the
// same convention pkg/logging uses for LogDir.
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
