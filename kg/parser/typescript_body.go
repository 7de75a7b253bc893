// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/kgsync/kg/relationship"
)

// bodyPass walks every node in the file looking for call expressions,
// throw statements, assignments, and instantiations, emitting
// CALLS/THROWS/WRITES/READS/REFERENCES edges from the enclosing
// declaration to their heuristically-resolved targets. Scoped at file
// granularity rather than needing a dedicated traversal per symbol kind.
func (w *tsWalker) bodyPass(node *sitter.Node) {
	w.walkBody(node, "")
}

func (w *tsWalker) walkBody(node *sitter.Node, enclosingID string) {
	if node == nil {
		return
	}

	switch node.Type() {
	case tsNodeFunctionDeclaration, tsNodeGeneratorFunction, tsNodeMethodDef:
		if name := w.declName(node); name != "" {
			if id, ok := w.byName[name]; ok {
				enclosingID = id
			} else if qualified, ok := w.qualifiedMethodID(node, name); ok {
				enclosingID = qualified
			}
		}

	case tsNodeCallExpression:
		w.emitCall(node, enclosingID)
		w.emitArgumentReferences(node, enclosingID)

	case tsNodeThrowStatement:
		w.emitThrow(node, enclosingID)

	case tsNodeAssignmentExpression:
		w.emitWrite(node, enclosingID)

	case tsNodeNewExpression:
		w.emitInstantiation(node, enclosingID)
		w.emitArgumentReferences(node, enclosingID)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.walkBody(node.Child(i), enclosingID)
	}
}

// qualifiedMethodID looks up a class method by Class.method key when
// the method's bare name isn't unique enough to be in byName directly
// (methods are stored under "Class.method" in declarePass).
func (w *tsWalker) qualifiedMethodID(node *sitter.Node, name string) (string, bool) {
	body := node.Parent()
	if body == nil || body.Parent() == nil {
		return "", false
	}
	id, ok := w.byName[w.declName(body.Parent())+"."+name]
	return id, ok
}

func (w *tsWalker) emitCall(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	callee := node.Child(0)
	if callee == nil {
		return
	}

	name, accessPath, isMethod := w.calleeName(callee)
	if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
		return
	}

	args := w.fieldOrLastChildOfType(node, "arguments")
	arity := 0
	if args != nil {
		arity = int(args.NamedChildCount())
	}

	toID := "external:" + name
	resolved := false
	if id, ok := w.byName[name]; ok && !isMethod {
		toID = id
		resolved = true
	}

	rel := relationship.New(fromID, toID, relationship.Calls, w.loc(node))
	rel.Source = relationship.SourceAST
	rel.Arity = arity
	rel.AccessPath = accessPath
	awaited := isAwaited(node)
	rel.Awaited = awaited
	if resolved {
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Resolved = true
		rel.Confidence = 1.0
	} else {
		rel.Resolution = relationship.ResolutionHeuristic
		rel.Scope = relationship.ScopeUnknown
		rel.Inferred = true
		rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, name, false)
		if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence {
			return
		}
	}
	w.result.Relationships = append(w.result.Relationships, rel)
}

// calleeName extracts the invoked name from a call expression's
// function position: a bare identifier ("foo()"), or the rightmost
// property of a member expression ("a.b.c()" -> "c", accessPath "a.b.c").
func (w *tsWalker) calleeName(node *sitter.Node) (name, accessPath string, isMethod bool) {
	switch node.Type() {
	case tsNodeIdentifier:
		return w.text(node), w.text(node), false
	case tsNodeMemberExpression:
		full := w.text(node)
		var last *sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c.Type() == tsNodePropertyID {
				last = c
			}
		}
		if last == nil {
			return "", full, true
		}
		return w.text(last), full, true
	default:
		return "", "", false
	}
}

func isAwaited(node *sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Type() == tsNodeAwaitExpression
}

func (w *tsWalker) emitThrow(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	var typeName string
	if node.ChildCount() > 0 {
		arg := node.Child(node.ChildCount() - 1)
		if arg.Type() == tsNodeNewExpression {
			for i := 0; i < int(arg.ChildCount()); i++ {
				if c := arg.Child(i); c.Type() == tsNodeIdentifier {
					typeName = w.text(c)
					break
				}
			}
		}
	}
	if typeName == "" {
		return
	}

	toID := "external:" + typeName
	resolved := false
	if id, ok := w.byName[typeName]; ok {
		toID = id
		resolved = true
	}

	rel := relationship.New(fromID, toID, relationship.Throws, w.loc(node))
	rel.Source = relationship.SourceAST
	if resolved {
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Resolved = true
		rel.Confidence = 1.0
	} else {
		rel.Resolution = relationship.ResolutionHeuristic
		rel.Scope = relationship.ScopeUnknown
		rel.Inferred = true
		rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, typeName, false)
		if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence {
			return
		}
	}
	w.result.Relationships = append(w.result.Relationships, rel)
}

func (w *tsWalker) emitWrite(node *sitter.Node, fromID string) {
	if fromID == "" || node.ChildCount() == 0 {
		return
	}
	target := node.Child(0)
	operator := ""
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() != tsNodeIdentifier && c.Type() != tsNodeMemberExpression && c != target {
			operator = w.text(c)
		}
	}

	name, accessPath, _ := w.calleeName(target)
	if name == "" {
		name = w.text(target)
		accessPath = name
	}
	if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
		return
	}

	toID := "external:" + name
	resolved := false
	if id, ok := w.byName[name]; ok {
		toID = id
		resolved = true
	}

	rel := relationship.New(fromID, toID, relationship.Writes, w.loc(node))
	rel.Source = relationship.SourceAST
	rel.Operator = operator
	rel.AccessPath = accessPath
	if resolved {
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Resolved = true
		rel.Confidence = 1.0
	} else {
		rel.Resolution = relationship.ResolutionHeuristic
		rel.Scope = relationship.ScopeUnknown
		rel.Inferred = true
		rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, name, false)
		if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence {
			return
		}
	}
	w.result.Relationships = append(w.result.Relationships, rel)

	if node.ChildCount() > 2 {
		w.emitReads(node.Child(2), fromID)
	}
}

// emitReads walks the right-hand side of an assignment emitting READS
// for every identifier it references (skipping keywords, literals, and
// property-access member names -- only base identifiers count).
func (w *tsWalker) emitReads(node *sitter.Node, fromID string) {
	if node == nil || fromID == "" {
		return
	}
	if node.Type() == tsNodeIdentifier {
		name := w.text(node)
		if name != "" && !w.p.options.NoiseConfig.ShouldDropName(name) {
			w.emitReadOf(fromID, name, w.loc(node))
		}
		return
	}
	if node.Type() == tsNodeMemberExpression {
		base := node.Child(0)
		if base != nil && base.Type() == tsNodeIdentifier {
			name := w.text(base)
			if name != "" && !w.p.options.NoiseConfig.ShouldDropName(name) {
				w.emitReadOf(fromID, name, w.loc(node))
			}
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		w.emitReads(node.Child(i), fromID)
	}
}

func (w *tsWalker) emitReadOf(fromID, name string, loc relationship.Location) {
	toID := "external:" + name
	resolved := false
	if id, ok := w.byName[name]; ok {
		toID = id
		resolved = true
	}
	rel := relationship.New(fromID, toID, relationship.Reads, loc)
	rel.Source = relationship.SourceAST
	if resolved {
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Resolved = true
		rel.Confidence = 1.0
	} else {
		rel.Resolution = relationship.ResolutionHeuristic
		rel.Scope = relationship.ScopeUnknown
		rel.Inferred = true
		rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, name, false)
		if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence {
			return
		}
	}
	w.result.Relationships = append(w.result.Relationships, rel)
}

// emitInstantiation records a `new X(...)` expression as a REFERENCES
// edge of kind instantiation.
func (w *tsWalker) emitInstantiation(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	var name string
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == tsNodeIdentifier {
			name = w.text(c)
			break
		}
	}
	if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
		return
	}
	w.emitReference(fromID, name, "instantiation", w.loc(node))
}

// emitArgumentReferences records each bare-identifier call argument as a
// REFERENCES edge of kind identifier -- the "general identifiers"
// extraction rule, scoped to the one unambiguous non-callee,
// non-declaration-name position a call site offers without a full
// scope/declaration tracker.
func (w *tsWalker) emitArgumentReferences(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	args := w.fieldOrLastChildOfType(node, "arguments")
	if args == nil {
		return
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		arg := args.Child(i)
		if arg.Type() != tsNodeIdentifier {
			continue
		}
		name := w.text(arg)
		if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
			continue
		}
		w.emitReference(fromID, name, "identifier", w.loc(arg))
	}
}

func (w *tsWalker) emitReference(fromID, name, kind string, loc relationship.Location) {
	toID := "external:" + name
	resolved := false
	if id, ok := w.byName[name]; ok {
		toID = id
		resolved = true
	}
	rel := relationship.New(fromID, toID, relationship.References, loc)
	rel.Source = relationship.SourceAST
	rel.Kind = kind
	if resolved {
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Resolved = true
		rel.Confidence = 1.0
	} else {
		rel.Resolution = relationship.ResolutionHeuristic
		rel.Scope = relationship.ScopeUnknown
		rel.Inferred = true
		rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, name, false)
		if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence {
			return
		}
	}
	w.result.Relationships = append(w.result.Relationships, rel)
}
