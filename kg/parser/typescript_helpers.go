// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/noise"
	"github.com/kraklabs/kgsync/kg/relationship"
)

// headline trims a multi-line declaration down to its first line plus
// an ellipsis, which is what Symbol.Signature stores; the full text is
// recoverable from source, not worth duplicating in the graph.
func headline(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx]) + " ..."
	}
	return strings.TrimSpace(text)
}

// branchingNodeTypes are node kinds that add one to cyclomatic
// complexity: every one introduces an additional path through the
// function body.
var branchingNodeTypes = map[string]bool{
	"if_statement":         true,
	"for_statement":        true,
	"for_in_statement":     true,
	"while_statement":      true,
	"do_statement":         true,
	"case_clause":          true,
	"catch_clause":         true,
	"ternary_expression":   true,
	"binary_expression":    false, // only && / || count, handled separately below
}

func cyclomaticComplexity(node *sitter.Node) int {
	complexity := 1
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if branchingNodeTypes[n.Type()] {
			complexity++
		}
		if n.Type() == "binary_expression" {
			op := ""
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				if c.Type() == "&&" || c.Type() == "||" {
					op = c.Type()
				}
			}
			if op != "" {
				complexity++
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return complexity
}

func (w *tsWalker) extractParameters(node *sitter.Node) []entity.Parameter {
	params := w.fieldOrLastChildOfType(node, tsNodeFormalParameters)
	if params == nil {
		return nil
	}
	var out []entity.Parameter
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case tsNodeRequiredParam, tsNodeOptionalParam, tsNodeIdentifier:
			out = append(out, w.extractOneParam(child, child.Type() == tsNodeOptionalParam))
		}
	}
	return out
}

func (w *tsWalker) extractOneParam(node *sitter.Node, optional bool) entity.Parameter {
	p := entity.Parameter{Optional: optional}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case tsNodeIdentifier:
			if p.Name == "" {
				p.Name = w.text(child)
			}
		case tsNodeTypeAnnotation:
			p.Type = strings.TrimPrefix(strings.TrimSpace(w.text(child)), ":")
			p.Type = strings.TrimSpace(p.Type)
		}
	}
	if p.Name == "" {
		p.Name = w.text(node)
	}
	return p
}

func (w *tsWalker) extractReturnType(node *sitter.Node) string {
	ann := w.fieldOrLastChildOfType(node, tsNodeTypeAnnotation)
	if ann == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(w.text(ann), ":"))
}

func (w *tsWalker) extractMemberType(node *sitter.Node) string {
	ann := w.fieldOrLastChildOfType(node, tsNodeTypeAnnotation)
	if ann == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(w.text(ann), ":"))
}

// primitiveTypeNames holds TypeScript's built-in type keywords, which
// are never worth a DEPENDS_ON/RETURNS_TYPE/PARAM_TYPE edge of their own.
var primitiveTypeNames = map[string]bool{
	"string": true, "number": true, "boolean": true, "void": true,
	"any": true, "unknown": true, "never": true, "object": true,
	"undefined": true, "null": true, "this": true, "symbol": true, "bigint": true,
}

// typeBaseName extracts the leading type identifier out of a type
// annotation's text, stripping array/union/generic decoration: "Foo[]"
// and "Promise<Foo>" both yield "Foo"-shaped roots ("Promise" for the
// latter, since the generic argument isn't this declaration's direct
// dependency). Built-in primitives report ok=false.
func typeBaseName(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "", false
	}
	for _, sep := range []string{"|", "&"} {
		if idx := strings.IndexByte(t, sep[0]); idx >= 0 {
			t = t[:idx]
		}
	}
	t = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "[]"))
	if idx := strings.IndexAny(t, "<("); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)
	if t == "" || primitiveTypeNames[strings.ToLower(t)] {
		return "", false
	}
	return t, true
}

// scoreRel scores a relationship that hasn't been resolved by the type
// checker yet, using the shared noise heuristic. An edge already marked
// Resolved (its target was found in this file's own declaration table)
// scores 1.0.
func scoreRel(cfg noise.Config, rel *relationship.Relationship, targetName string, usedTypeChecker bool) float64 {
	if rel.Resolved {
		return 1.0
	}
	return noise.ScoreInferredEdge(noise.EdgeContext{
		ToID:            rel.To,
		UsedTypeChecker: usedTypeChecker,
		IsExported:      rel.IsExported,
		NameLength:      len([]rune(targetName)),
		ImportDepth:     1,
	})
}
