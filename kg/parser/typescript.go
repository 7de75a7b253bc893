// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/noise"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/resolve"
)

// TypeScriptOptions configures TypeScriptParser.
type TypeScriptOptions struct {
	MaxFileSize    int
	IncludePrivate bool
	NoiseConfig    noise.Config
}

// DefaultTypeScriptOptions returns the parser's documented defaults.
func DefaultTypeScriptOptions() TypeScriptOptions {
	return TypeScriptOptions{
		MaxFileSize:    10 * 1024 * 1024,
		IncludePrivate: true,
		NoiseConfig:    noise.Default(),
	}
}

// TypeScriptOption is a functional option for TypeScriptParser.
type TypeScriptOption func(*TypeScriptOptions)

func WithTSMaxFileSize(n int) TypeScriptOption {
	return func(o *TypeScriptOptions) { o.MaxFileSize = n }
}

func WithTSIncludePrivate(include bool) TypeScriptOption {
	return func(o *TypeScriptOptions) { o.IncludePrivate = include }
}

func WithTSNoiseConfig(cfg noise.Config) TypeScriptOption {
	return func(o *TypeScriptOptions) { o.NoiseConfig = cfg }
}

// TypeScriptParser extracts entities and relationships from TypeScript
// and TSX source using tree-sitter. JavaScript/JSX files (which this
// grammar also accepts) are routed through the same implementation
// under the "javascript" language tag by NewJavaScriptParser.
type TypeScriptParser struct {
	options  TypeScriptOptions
	language string
	tsx      bool
}

// NewTypeScriptParser builds a parser for .ts/.mts/.cts files.
func NewTypeScriptParser(opts ...TypeScriptOption) *TypeScriptParser {
	o := DefaultTypeScriptOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TypeScriptParser{options: o, language: "typescript"}
}

// NewTSXParser builds a parser for .tsx files using the TSX grammar
// variant, which additionally accepts JSX elements in expressions.
func NewTSXParser(opts ...TypeScriptOption) *TypeScriptParser {
	o := DefaultTypeScriptOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TypeScriptParser{options: o, language: "typescript", tsx: true}
}

// NewJavaScriptParser builds a parser for .js/.jsx/.mjs/.cjs files. It
// reuses the TSX grammar (a superset of JavaScript and JSX for our
// purposes) and reports its language as "javascript".
func NewJavaScriptParser(opts ...TypeScriptOption) *TypeScriptParser {
	o := DefaultTypeScriptOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TypeScriptParser{options: o, language: "javascript", tsx: true}
}

func (p *TypeScriptParser) Language() string { return p.language }

func (p *TypeScriptParser) Extensions() []string {
	switch p.language {
	case "javascript":
		return []string{".js", ".jsx", ".mjs", ".cjs"}
	default:
		if p.tsx {
			return []string{".tsx"}
		}
		return []string{".ts", ".mts", ".cts"}
	}
}

func (p *TypeScriptParser) grammar() *sitter.Language {
	if p.tsx {
		return tsx.GetLanguage()
	}
	return typescript.GetLanguage()
}

// Parse implements Parser.
func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s parse canceled before start: %w", p.language, err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	hash := ids.Sha256Hex(content)

	result := &ParseResult{
		FilePath:      filePath,
		Language:      p.language,
		ContentHash:   hash,
		ParsedAtMilli: time.Now().UnixMilli(),
		Exports:       resolve.FileExports{Named: map[string]struct{}{}},
	}

	sp := sitter.NewParser()
	sp.SetLanguage(p.grammar())

	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s parse canceled after tree-sitter: %w", p.language, err)
	}

	lineCount := strings.Count(string(content), "\n") + 1
	result.File = &entity.File{
		Base: entity.Base{
			ID:                ids.FileID(filePath),
			Path:              filePath,
			ContentHash:       hash,
			Language:          p.language,
			LastModifiedMilli: result.ParsedAtMilli,
		},
		Extension: extOf(filePath),
		Size:      int64(len(content)),
		LineCount: lineCount,
		IsTest:    looksLikeTestFile(filePath),
	}

	w := &tsWalker{
		p:        p,
		content:  content,
		filePath: filePath,
		result:   result,
		byName:   map[string]string{},
	}
	w.declarePass(tree.RootNode())
	w.extractPass(tree.RootNode(), true)
	w.bodyPass(tree.RootNode())

	return result, nil
}

// tsWalker carries the per-parse mutable state the declare, extract and
// body passes share: byName lets the later passes resolve same-file
// targets the declare pass already found.
type tsWalker struct {
	p        *TypeScriptParser
	content  []byte
	filePath string
	result   *ParseResult
	byName   map[string]string // declaration name -> entity id, this file only
}

func extOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[idx:]
}

func looksLikeTestFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec.") || strings.HasSuffix(lower, "_test.ts")
}

func (w *tsWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *tsWalker) loc(n *sitter.Node) relationship.Location {
	return relationship.Location{
		Path:   w.filePath,
		Line:   int(n.StartPoint().Row) + 1,
		Column: int(n.StartPoint().Column),
	}
}

// declarePass does a shallow pre-scan collecting every top-level and
// class-member declaration's name -> id, so the later body pass can
// resolve same-file call targets regardless of declaration order.
func (w *tsWalker) declarePass(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case tsNodeProgram:
		for i := 0; i < int(node.ChildCount()); i++ {
			w.declarePass(node.Child(i))
		}
	case tsNodeExportStatement:
		for i := 0; i < int(node.ChildCount()); i++ {
			w.declarePass(node.Child(i))
		}
	case tsNodeFunctionDeclaration, tsNodeGeneratorFunction:
		if name := w.declName(node); name != "" {
			sig := w.text(node)
			w.byName[name] = ids.SymbolID(w.filePath, name, sig)
		}
	case tsNodeClassDeclaration:
		if name := w.declName(node); name != "" {
			sig := w.text(node)
			classID := ids.SymbolID(w.filePath, name, sig)
			w.byName[name] = classID
			if body := w.fieldOrLastChildOfType(node, tsNodeClassBody); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					member := body.Child(i)
					if member.Type() == tsNodeMethodDef {
						if mname := w.declName(member); mname != "" {
							methodID := ids.SymbolID(w.filePath, name+"."+mname, w.text(member))
							w.byName[name+"."+mname] = methodID
							w.byName[mname] = methodID
						}
					}
				}
			}
		}
	case tsNodeInterfaceDeclaration, tsNodeTypeAliasDeclaration:
		if name := w.declName(node); name != "" {
			w.byName[name] = ids.SymbolID(w.filePath, name, w.text(node))
		}
	}
}

// declName returns the identifier/type_identifier child that names a
// declaration node.
func (w *tsWalker) declName(node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == tsNodeIdentifier || child.Type() == tsNodeTypeIdentifier || child.Type() == tsNodePropertyID {
			return w.text(child)
		}
	}
	return ""
}

func (w *tsWalker) fieldOrLastChildOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == typ {
			return c
		}
	}
	return nil
}
