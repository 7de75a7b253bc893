// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedprovider wraps the OpenAI embeddings API behind the
// single Embed(content) -> vec<f32;1536> contract the knowledge graph
// service depends on, with a deterministic pseudo-random fallback so a
// degraded or unconfigured provider never stalls a sync operation.
package embedprovider

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Dimensions is the fixed vector width every collection expects.
const Dimensions = 1536

// Provider embeds text content into a fixed-width vector.
type Provider interface {
	Embed(ctx context.Context, content string) ([]float32, error)
}

var memguardInitOnce sync.Once

// OpenAIProvider calls OpenAI's embeddings endpoint and degrades to a
// FallbackProvider on any request failure. Concurrent calls for the
// same content share a single in-flight request, and all requests are
// rate limited to stay under OpenAI's per-key request ceiling.
type OpenAIProvider struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	fallback Provider
	limiter  *rate.Limiter
	flight   singleflight.Group
}

// NewOpenAIProvider builds a client from OPENAI_API_KEY. model defaults
// to text-embedding-3-small, whose native width matches Dimensions.
//
// The key is briefly held in a memguard LockedBuffer -- locked out of
// swap and zeroed on release -- while the client is constructed, the
// same convention the orchestrator's secure token accumulator uses for
// credentials that pass through process memory.
func NewOpenAIProvider(model openai.EmbeddingModel) (*OpenAIProvider, error) {
	memguardInitOnce.Do(memguard.CatchInterrupt)

	raw := os.Getenv("OPENAI_API_KEY")
	if raw == "" {
		return nil, fmt.Errorf("embedprovider: OPENAI_API_KEY environment variable not set")
	}
	enclave := memguard.NewEnclave([]byte(raw))
	buf, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("embedprovider: unseal API key: %w", err)
	}
	apiKey := buf.String()
	buf.Destroy()

	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIProvider{
		client:   openai.NewClient(apiKey),
		model:    model,
		fallback: FallbackProvider{},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, content string) ([]float32, error) {
	v, err, _ := p.flight.Do(content, func() (any, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{content},
			Model: p.model,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embedprovider: empty embeddings response")
		}
		return resizeToDimensions(resp.Data[0].Embedding), nil
	})
	if err != nil {
		slog.Warn("embedprovider: OpenAI request failed, degrading to pseudo-random vector", "error", err)
		return p.fallback.Embed(ctx, content)
	}
	return v.([]float32), nil
}

func resizeToDimensions(vec []float32) []float32 {
	if len(vec) == Dimensions {
		return vec
	}
	out := make([]float32, Dimensions)
	copy(out, vec)
	return out
}

// FallbackProvider produces a deterministic pseudo-random unit vector
// from the sha256 digest of content, so a degraded embedding pipeline
// keeps producing syntactically valid (if semantically meaningless)
// vectors instead of stalling the sync operation.
type FallbackProvider struct{}

func (FallbackProvider) Embed(ctx context.Context, content string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := sha256.Sum256([]byte(content))
	out := make([]float32, Dimensions)

	state := seed
	var sumSq float64
	for i := 0; i < Dimensions; i++ {
		if i%len(state) == 0 && i != 0 {
			state = sha256.Sum256(state[:])
		}
		b := state[i%len(state)]
		v := float32(b)/127.5 - 1 // map byte to roughly [-1, 1]
		out[i] = v
		sumSq += float64(v) * float64(v)
	}

	norm := float32(math.Sqrt(sumSq))
	if norm > 0 {
		for i := range out {
			out[i] /= norm
		}
	}
	return out, nil
}
