// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/resolve"
)

// GenericParser handles any file extension with no dedicated language
// parser registered. It produces a File entity (so the file still
// shows up in directory containment and content-hash diffing) and
// nothing else: no symbols and no relationships; the directory CONTAINS
// edges come from SynthesizeDirectoryEdges.
type GenericParser struct {
	MaxFileSize int
}

// NewGenericParser returns a GenericParser with the documented default
// size limit.
func NewGenericParser() *GenericParser {
	return &GenericParser{MaxFileSize: 10 * 1024 * 1024}
}

func (p *GenericParser) Language() string    { return "text" }
func (p *GenericParser) Extensions() []string { return nil }

func (p *GenericParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) > p.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	hash := ids.Sha256Hex(content)
	lineCount := 0
	isBinary := !utf8.Valid(content)
	if !isBinary {
		lineCount = strings.Count(string(content), "\n") + 1
	}

	return &ParseResult{
		FilePath:      filePath,
		Language:      "text",
		ContentHash:   hash,
		ParsedAtMilli: time.Now().UnixMilli(),
		Exports:       resolve.FileExports{Named: map[string]struct{}{}},
		File: &entity.File{
			Base: entity.Base{
				ID:                ids.FileID(filePath),
				Path:              filePath,
				ContentHash:       hash,
				Language:          "text",
				LastModifiedMilli: time.Now().UnixMilli(),
			},
			Extension: extOf(filePath),
			Size:      int64(len(content)),
			LineCount: lineCount,
			IsConfig:  looksLikeConfigFile(filePath),
		},
	}, nil
}

func looksLikeConfigFile(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".json", ".yaml", ".yml", ".toml", ".ini", ".env"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
