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
	"github.com/kraklabs/kgsync/kg/resolve"
)

func reExport(specifier string, isStar bool, names map[string]string) resolve.ReExport {
	return resolve.ReExport{Specifier: specifier, IsStar: isStar, Names: names}
}

// emitExportOf records an EXPORTS edge from the file to a locally
// declared symbol that is exported via a named export clause rather
// than an inline `export` modifier on its declaration.
func (w *tsWalker) emitExportOf(symbolID, exportedName string) {
	rel := relationship.New(w.result.File.ID, symbolID, relationship.Exports, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	rel.Resolution = relationship.ResolutionDirect
	rel.Scope = relationship.ScopeLocal
	rel.Confidence = 1.0
	rel.Resolved = true
	rel.IsExported = true
	w.result.Relationships = append(w.result.Relationships, rel)
}

// extractImport records one `import ... from '...'` statement as a
// RawImport; resolution against the project's file layout happens
// later via kg/resolve, which is the only component with filesystem
// visibility.
func (w *tsWalker) extractImport(node *sitter.Node) {
	imp := RawImport{Location: w.loc(node)}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case tsNodeString:
			imp.Specifier = w.extractStringContent(child)
		case tsNodeImportClause:
			w.extractImportClause(child, &imp)
		}
	}

	if imp.Specifier != "" {
		w.result.RawImports = append(w.result.RawImports, imp)
	}
}

func (w *tsWalker) extractImportClause(node *sitter.Node, imp *RawImport) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case tsNodeIdentifier:
			imp.DefaultName = w.text(child)
		case tsNodeNamespaceImport:
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == tsNodeIdentifier {
					imp.NamespaceName = w.text(gc)
				}
			}
		case tsNodeNamedImports:
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == tsNodeImportSpecifier {
					imp.Named = append(imp.Named, w.extractImportSpecifier(gc))
				}
			}
		}
	}
}

func (w *tsWalker) extractImportSpecifier(node *sitter.Node) ImportedName {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == tsNodeIdentifier {
			names = append(names, w.text(child))
		}
	}
	switch len(names) {
	case 0:
		return ImportedName{}
	case 1:
		return ImportedName{Name: names[0]}
	default:
		return ImportedName{Name: names[0], Alias: names[len(names)-1]}
	}
}

func (w *tsWalker) extractStringContent(node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == tsNodeStringFragment {
			return w.text(child)
		}
	}
	text := w.text(node)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

// extractExport handles `export <decl>`, `export { a, b }`,
// `export { a } from './x'`, `export * from './x'`, and
// `export default <expr>`.
func (w *tsWalker) extractExport(node *sitter.Node) {
	var specifier string
	isStar := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case tsNodeString:
			specifier = w.extractStringContent(child)
		case "*":
			isStar = true
		case tsNodeExportClause:
			if specifier == "" {
				// Recheck siblings after this point for a trailing "from '...'" string;
				// tree-sitter places it as a later sibling of export_clause.
				for j := i + 1; j < int(node.ChildCount()); j++ {
					if s := node.Child(j); s.Type() == tsNodeString {
						specifier = w.extractStringContent(s)
					}
				}
			}
			w.extractExportClause(child, specifier)
			return
		case tsNodeFunctionDeclaration, tsNodeGeneratorFunction, tsNodeClassDeclaration,
			tsNodeInterfaceDeclaration, tsNodeTypeAliasDeclaration, tsNodeLexicalDeclaration,
			tsNodeVariableDeclaration:
			w.extractPass(child, true)
			return
		}
	}

	if specifier != "" && isStar {
		w.result.Exports.ReExports = append(w.result.Exports.ReExports, reExport(specifier, true, nil))
	}
}

func (w *tsWalker) extractExportClause(node *sitter.Node, specifier string) {
	names := map[string]string{}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == tsNodeExportSpecifier {
			in := w.extractImportSpecifier(child)
			exportedName := in.Name
			if in.Alias != "" {
				exportedName = in.Alias
			}
			if specifier != "" {
				names[exportedName] = in.Name
			} else {
				w.result.Exports.Named[exportedName] = struct{}{}
				if toID, ok := w.byName[in.Name]; ok {
					w.emitExportOf(toID, exportedName)
				}
			}
		}
	}
	if specifier != "" && len(names) > 0 {
		w.result.Exports.ReExports = append(w.result.Exports.ReExports, reExport(specifier, false, names))
	}
}
