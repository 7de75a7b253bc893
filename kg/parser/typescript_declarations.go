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
	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/relationship"
)

// extractPass walks the tree emitting Symbol entities and the
// structural relationships (DEFINES, CONTAINS, EXTENDS, IMPLEMENTS,
// EXPORTS) that don't require body-level analysis; import statements
// are recorded as RawImports, not as relationships.
func (w *tsWalker) extractPass(node *sitter.Node, exported bool) {
	if node == nil {
		return
	}

	switch node.Type() {
	case tsNodeProgram:
		for i := 0; i < int(node.ChildCount()); i++ {
			w.extractPass(node.Child(i), false)
		}

	case tsNodeImportStatement:
		w.extractImport(node)

	case tsNodeExportStatement:
		w.extractExport(node)

	case tsNodeFunctionDeclaration, tsNodeGeneratorFunction:
		if sym := w.extractFunction(node, exported); sym != nil {
			w.emitSymbol(sym)
		}

	case tsNodeClassDeclaration:
		if sym := w.extractClass(node, exported); sym != nil {
			w.emitSymbol(sym)
		}

	case tsNodeInterfaceDeclaration:
		if sym := w.extractInterface(node, exported); sym != nil {
			w.emitSymbol(sym)
		}

	case tsNodeTypeAliasDeclaration:
		if sym := w.extractTypeAlias(node, exported); sym != nil {
			w.emitSymbol(sym)
		}

	case tsNodeLexicalDeclaration, tsNodeVariableDeclaration:
		for _, sym := range w.extractVariables(node, exported) {
			w.emitSymbol(sym)
		}
	}
}

func (w *tsWalker) emitSymbol(sym *entity.Symbol) {
	if !w.p.options.IncludePrivate && !sym.IsExported {
		return
	}
	w.result.Symbols = append(w.result.Symbols, sym)
	rel := relationship.New(w.result.File.ID, sym.ID, relationship.Defines, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	rel.Resolution = relationship.ResolutionDirect
	rel.Scope = relationship.ScopeLocal
	rel.Confidence = 1.0
	rel.Resolved = true
	w.result.Relationships = append(w.result.Relationships, rel)
	w.emitContains(w.result.File.ID, sym.ID)

	w.emitTypeRelationships(sym)

	if sym.IsExported {
		w.result.Exports.Named[sym.Name] = struct{}{}
		erel := relationship.New(w.result.File.ID, sym.ID, relationship.Exports, relationship.Location{Path: w.filePath, Line: 1})
		erel.Source = relationship.SourceAST
		erel.Resolution = relationship.ResolutionDirect
		erel.Scope = relationship.ScopeLocal
		erel.Confidence = 1.0
		erel.Resolved = true
		erel.IsExported = true
		w.result.Relationships = append(w.result.Relationships, erel)
	}

	for _, extended := range sym.Extends {
		w.emitNameRelationship(sym.ID, extended, relationship.Extends)
	}
	for _, impl := range sym.Implements {
		w.emitNameRelationship(sym.ID, impl, relationship.Implements)
	}
}

// emitNameRelationship emits an edge from fromID to a name that has
// only been seen textually (e.g. "extends Base"). A name declared in
// this file resolves directly to its symbol; any other name targets a
// class:/interface: placeholder, unresolved and heuristically scored.
func (w *tsWalker) emitNameRelationship(fromID, name string, typ relationship.Type) {
	placeholder := "class:" + name
	if typ == relationship.Implements {
		placeholder = "interface:" + name
	}

	toID := placeholder
	resolved := false
	if resolvedID, ok := w.byName[name]; ok {
		toID = resolvedID
		resolved = true
	}
	rel := relationship.New(fromID, toID, typ, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	if resolved {
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Resolved = true
	} else {
		rel.Resolution = relationship.ResolutionHeuristic
		rel.Scope = relationship.ScopeUnknown
		rel.Inferred = true
	}
	rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, name, false)
	if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence && rel.Inferred {
		return
	}
	w.result.Relationships = append(w.result.Relationships, rel)
}

// emitOverrides emits OVERRIDES from a method to the same-named member
// on an ancestor class, when the ancestor is declared in this file (its
// members are keyed "Ancestor.method" in byName by declarePass, which
// runs before any symbol is extracted). Cross-file ancestors aren't
// resolvable without a project-wide symbol index, so they're left
// unemitted rather than guessed at.
func (w *tsWalker) emitOverrides(method *entity.Symbol, ancestors []string) {
	for _, ancestor := range ancestors {
		ancestorMethodID, ok := w.byName[ancestor+"."+method.Name]
		if !ok {
			continue
		}
		rel := relationship.New(method.ID, ancestorMethodID, relationship.Overrides, relationship.Location{Path: w.filePath, Line: 1})
		rel.Source = relationship.SourceAST
		rel.Resolution = relationship.ResolutionDirect
		rel.Scope = relationship.ScopeLocal
		rel.Confidence = 1.0
		rel.Resolved = true
		w.result.Relationships = append(w.result.Relationships, rel)
		return
	}
}

// emitContains records the CONTAINS edge mandated alongside every
// DEFINES(file->symbol) edge, and alongside every class member symbol
// from its owning class.
func (w *tsWalker) emitContains(fromID, toID string) {
	rel := relationship.New(fromID, toID, relationship.Contains, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	rel.Resolution = relationship.ResolutionDirect
	rel.Scope = relationship.ScopeLocal
	rel.Confidence = 1.0
	rel.Resolved = true
	w.result.Relationships = append(w.result.Relationships, rel)
}

// emitTypeRelationships emits RETURNS_TYPE, PARAM_TYPE, and DEPENDS_ON
// edges from the type text extractFunction/extractMethod/extractField
// already captured. No new AST extraction is needed; this only adds
// the emission spec.md section 4.4 requires alongside it.
func (w *tsWalker) emitTypeRelationships(sym *entity.Symbol) {
	switch sym.Kind {
	case entity.SymbolFunction, entity.SymbolMethod:
		if base, ok := typeBaseName(sym.ReturnType); ok && !w.p.options.NoiseConfig.ShouldDropName(base) {
			w.emitTypeRel(sym.ID, base, relationship.ReturnsType, "")
		}
		for _, param := range sym.Parameters {
			if base, ok := typeBaseName(param.Type); ok && !w.p.options.NoiseConfig.ShouldDropName(base) {
				w.emitTypeRel(sym.ID, base, relationship.ParamType, param.Name)
			}
		}
	case entity.SymbolProperty, entity.SymbolVariable:
		if base, ok := typeBaseName(sym.ReturnType); ok && !w.p.options.NoiseConfig.ShouldDropName(base) {
			w.emitTypeRel(sym.ID, base, relationship.DependsOn, "")
		}
	}
}

func (w *tsWalker) emitTypeRel(fromID, name string, typ relationship.Type, paramName string) {
	toID := "external:" + name
	resolved := false
	if id, ok := w.byName[name]; ok {
		toID = id
		resolved = true
	}
	rel := relationship.New(fromID, toID, typ, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	rel.ParamName = paramName
	if typ == relationship.DependsOn {
		rel.Kind = "type"
	}
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

func (w *tsWalker) extractFunction(node *sitter.Node, exported bool) *entity.Symbol {
	name := w.declName(node)
	if name == "" {
		return nil
	}
	sig := w.text(node)
	sym := &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, name, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          w.p.language,
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:                 name,
		Kind:                 entity.SymbolFunction,
		Signature:            headline(sig),
		IsExported:           exported,
		Parameters:           w.extractParameters(node),
		ReturnType:           w.extractReturnType(node),
		IsAsync:              strings.HasPrefix(sig, "async "),
		IsGenerator:          node.Type() == tsNodeGeneratorFunction,
		CyclomaticComplexity: cyclomaticComplexity(node),
	}
	if exported {
		sym.Visibility = entity.VisibilityPublic
	}
	return sym
}

func (w *tsWalker) extractClass(node *sitter.Node, exported bool) *entity.Symbol {
	name := w.declName(node)
	if name == "" {
		return nil
	}
	sig := w.text(node)
	sym := &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, name, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          w.p.language,
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:       name,
		Kind:       entity.SymbolClass,
		Signature:  headline(sig),
		IsExported: exported,
	}

	if heritage := w.fieldOrLastChildOfType(node, tsNodeClassHeritage); heritage != nil {
		sym.Extends, sym.Implements = w.extractClassHeritage(heritage)
	}

	if body := w.fieldOrLastChildOfType(node, tsNodeClassBody); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			switch member.Type() {
			case tsNodeMethodDef:
				if methodSym := w.extractMethod(member, name); methodSym != nil {
					w.emitSymbol(methodSym)
					w.emitContains(sym.ID, methodSym.ID)
					w.emitOverrides(methodSym, sym.Extends)
					sym.Methods = append(sym.Methods, methodSym.ID)
				}
			case tsNodePublicField:
				if propSym := w.extractField(member, name); propSym != nil {
					w.emitSymbol(propSym)
					w.emitContains(sym.ID, propSym.ID)
					sym.Properties = append(sym.Properties, propSym.ID)
				}
			}
		}
	}
	return sym
}

func (w *tsWalker) extractClassHeritage(node *sitter.Node) (extends []string, implements []string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case tsNodeExtendsClause:
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == tsNodeIdentifier || gc.Type() == tsNodeTypeIdentifier {
					extends = append(extends, w.text(gc))
				}
			}
		case tsNodeImplementsClause:
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == tsNodeTypeIdentifier {
					implements = append(implements, w.text(gc))
				}
			}
		}
	}
	return
}

func (w *tsWalker) extractMethod(node *sitter.Node, className string) *entity.Symbol {
	name := w.declName(node)
	if name == "" {
		return nil
	}
	sig := w.text(node)
	qualified := className + "." + name
	sym := &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, qualified, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          w.p.language,
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:                 name,
		Kind:                 entity.SymbolMethod,
		Signature:            headline(sig),
		IsExported:           !strings.HasPrefix(name, "#") && !strings.HasPrefix(name, "_"),
		Parameters:           w.extractParameters(node),
		ReturnType:           w.extractReturnType(node),
		IsAsync:              strings.HasPrefix(sig, "async "),
		CyclomaticComplexity: cyclomaticComplexity(node),
	}
	if strings.HasPrefix(name, "#") {
		sym.Visibility = entity.VisibilityPrivate
	}
	return sym
}

func (w *tsWalker) extractField(node *sitter.Node, className string) *entity.Symbol {
	name := w.declName(node)
	if name == "" {
		return nil
	}
	sig := w.text(node)
	qualified := className + "." + name
	return &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, qualified, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          w.p.language,
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:       name,
		Kind:       entity.SymbolProperty,
		Signature:  headline(sig),
		IsExported: !strings.HasPrefix(name, "#") && !strings.HasPrefix(name, "_"),
		ReturnType: w.extractMemberType(node),
	}
}

func (w *tsWalker) extractInterface(node *sitter.Node, exported bool) *entity.Symbol {
	name := w.declName(node)
	if name == "" {
		return nil
	}
	sig := w.text(node)
	sym := &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, name, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          w.p.language,
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:       name,
		Kind:       entity.SymbolInterface,
		Signature:  headline(sig),
		IsExported: exported,
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == tsNodeExtendsTypeClause {
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == tsNodeTypeIdentifier {
					sym.Extends = append(sym.Extends, w.text(gc))
				}
			}
		}
	}
	return sym
}

func (w *tsWalker) extractTypeAlias(node *sitter.Node, exported bool) *entity.Symbol {
	name := w.declName(node)
	if name == "" {
		return nil
	}
	sig := w.text(node)
	aliased := ""
	if len(sig) > 0 {
		if idx := strings.Index(sig, "="); idx >= 0 {
			aliased = strings.TrimSpace(strings.TrimSuffix(sig[idx+1:], ";"))
		}
	}
	return &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, name, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          w.p.language,
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:           name,
		Kind:           entity.SymbolTypeAlias,
		Signature:      headline(sig),
		IsExported:     exported,
		AliasedType:    aliased,
		IsUnion:        strings.Contains(aliased, "|"),
		IsIntersection: strings.Contains(aliased, "&"),
	}
}

func (w *tsWalker) extractVariables(node *sitter.Node, exported bool) []*entity.Symbol {
	var out []*entity.Symbol
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != tsNodeVariableDeclarator {
			continue
		}
		name := w.declName(child)
		if name == "" {
			continue
		}
		sig := w.text(child)
		out = append(out, &entity.Symbol{
			Base: entity.Base{
				ID:                ids.SymbolID(w.filePath, name, sig),
				Path:              w.filePath,
				ContentHash:       ids.Sha1Hex([]byte(sig)),
				Language:          w.p.language,
				LastModifiedMilli: w.result.ParsedAtMilli,
			},
			Name:       name,
			Kind:       entity.SymbolVariable,
			Signature:  headline(sig),
			IsExported: exported,
			ReturnType: w.extractMemberType(child),
		})
	}
	return out
}
