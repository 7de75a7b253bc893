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
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/noise"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/resolve"
)

// GoOptions configures GoParser.
type GoOptions struct {
	MaxFileSize int
	NoiseConfig noise.Config
}

func DefaultGoOptions() GoOptions {
	return GoOptions{MaxFileSize: 10 * 1024 * 1024, NoiseConfig: noise.Default()}
}

// GoParser extracts entities and relationships from Go source using
// tree-sitter's golang grammar. It is the project's second "native
// typed AST" language alongside TypeScript, covering functions,
// methods, struct/interface type declarations, imports, and calls.
type GoParser struct {
	options GoOptions
}

func NewGoParser(opts ...func(*GoOptions)) *GoParser {
	o := DefaultGoOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &GoParser{options: o}
}

func (p *GoParser) Language() string    { return "go" }
func (p *GoParser) Extensions() []string { return []string{".go"} }

func (p *GoParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("go parse canceled before start: %w", err)
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
		Language:      "go",
		ContentHash:   hash,
		ParsedAtMilli: time.Now().UnixMilli(),
		Exports:       resolve.FileExports{Named: map[string]struct{}{}},
	}

	sp := sitter.NewParser()
	sp.SetLanguage(golang.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	lineCount := strings.Count(string(content), "\n") + 1
	result.File = &entity.File{
		Base: entity.Base{
			ID:                ids.FileID(filePath),
			Path:              filePath,
			ContentHash:       hash,
			Language:          "go",
			LastModifiedMilli: result.ParsedAtMilli,
		},
		Extension: ".go",
		Size:      int64(len(content)),
		LineCount: lineCount,
		IsTest:    strings.HasSuffix(filePath, "_test.go"),
	}

	w := &goWalker{p: p, content: content, filePath: filePath, result: result, byName: map[string]string{}, fieldTypes: map[string][]entity.Parameter{}}
	w.declarePass(tree.RootNode())
	w.extractPass(tree.RootNode())
	w.bodyPass(tree.RootNode(), "")

	return result, nil
}

type goWalker struct {
	p        *GoParser
	content  []byte
	filePath string
	result   *ParseResult
	byName   map[string]string

	// fieldTypes holds each struct symbol's field name/type pairs,
	// keyed by the symbol's id, so emitSymbol can emit DEPENDS_ON edges
	// once the symbol (and its id) exists.
	fieldTypes map[string][]entity.Parameter
}

func (w *goWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *goWalker) loc(n *sitter.Node) relationship.Location {
	return relationship.Location{Path: w.filePath, Line: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column)}
}

func isExportedGoName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return r >= 'A' && r <= 'Z'
}

func (w *goWalker) declarePass(node *sitter.Node) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "function_declaration":
			if name := w.text(child.ChildByFieldName("name")); name != "" {
				w.byName[name] = ids.SymbolID(w.filePath, name, w.text(child))
			}
		case "method_declaration":
			if name := w.text(child.ChildByFieldName("name")); name != "" {
				recv := w.receiverTypeName(child)
				key := name
				if recv != "" {
					key = recv + "." + name
				}
				w.byName[key] = ids.SymbolID(w.filePath, key, w.text(child))
				w.byName[name] = w.byName[key]
			}
		case "type_declaration":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "type_spec" {
					if name := w.text(spec.ChildByFieldName("name")); name != "" {
						w.byName[name] = ids.SymbolID(w.filePath, name, w.text(spec))
					}
				}
			}
		}
	}
}

func (w *goWalker) receiverTypeName(method *sitter.Node) string {
	recv := method.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := strings.TrimSpace(strings.Trim(w.text(recv), "()"))
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	return strings.TrimPrefix(typ, "*")
}

func (w *goWalker) extractPass(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_declaration":
			w.extractImportDecl(child)
		case "function_declaration":
			if sym := w.extractFunction(child); sym != nil {
				w.emitSymbol(sym)
			}
		case "method_declaration":
			if sym := w.extractMethod(child); sym != nil {
				w.emitSymbol(sym)
			}
		case "type_declaration":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "type_spec" {
					if sym := w.extractTypeSpec(spec); sym != nil {
						w.emitSymbol(sym)
					}
				}
			}
		}
	}
}

func (w *goWalker) emitSymbol(sym *entity.Symbol) {
	w.result.Symbols = append(w.result.Symbols, sym)
	rel := relationship.New(w.result.File.ID, sym.ID, relationship.Defines, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	rel.Resolution = relationship.ResolutionDirect
	rel.Scope = relationship.ScopeLocal
	rel.Confidence = 1.0
	rel.Resolved = true
	w.result.Relationships = append(w.result.Relationships, rel)

	crel := relationship.New(w.result.File.ID, sym.ID, relationship.Contains, relationship.Location{Path: w.filePath, Line: 1})
	crel.Source = relationship.SourceAST
	crel.Resolution = relationship.ResolutionDirect
	crel.Scope = relationship.ScopeLocal
	crel.Confidence = 1.0
	crel.Resolved = true
	w.result.Relationships = append(w.result.Relationships, crel)

	if sym.Kind == entity.SymbolFunction || sym.Kind == entity.SymbolMethod {
		w.emitTypeRelationships(sym)
	}
	if fields, ok := w.fieldTypes[sym.ID]; ok {
		w.emitFieldDependsOn(sym.ID, fields)
	}

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
}

func (w *goWalker) extractImportDecl(node *sitter.Node) {
	var specs []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_spec":
			specs = append(specs, child)
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == "import_spec" {
					specs = append(specs, gc)
				}
			}
		}
	}
	for _, spec := range specs {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		rawPath := strings.Trim(w.text(pathNode), `"`)
		alias := ""
		if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
			alias = w.text(nameNode)
		}
		w.result.RawImports = append(w.result.RawImports, RawImport{
			Specifier:     rawPath,
			NamespaceName: alias,
			Location:      w.loc(spec),
		})
	}
}

func (w *goWalker) extractFunction(node *sitter.Node) *entity.Symbol {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return nil
	}
	sig := w.text(node)
	return &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, name, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          "go",
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:                 name,
		Kind:                 entity.SymbolFunction,
		Signature:            headline(sig),
		IsExported:           isExportedGoName(name),
		Parameters:           w.extractGoParams(node.ChildByFieldName("parameters")),
		ReturnType:           w.text(node.ChildByFieldName("result")),
		CyclomaticComplexity: cyclomaticComplexity(node),
	}
}

func (w *goWalker) extractMethod(node *sitter.Node) *entity.Symbol {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return nil
	}
	recv := w.receiverTypeName(node)
	qualified := name
	if recv != "" {
		qualified = recv + "." + name
	}
	sig := w.text(node)
	return &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, qualified, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          "go",
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:                 name,
		Kind:                 entity.SymbolMethod,
		Signature:            headline(sig),
		IsExported:           isExportedGoName(name),
		Parameters:           w.extractGoParams(node.ChildByFieldName("parameters")),
		ReturnType:           w.text(node.ChildByFieldName("result")),
		CyclomaticComplexity: cyclomaticComplexity(node),
	}
}

func (w *goWalker) extractGoParams(params *sitter.Node) []entity.Parameter {
	if params == nil {
		return nil
	}
	var out []entity.Parameter
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		if child.Type() != "parameter_declaration" && child.Type() != "variadic_parameter_declaration" {
			continue
		}
		name := w.text(child.ChildByFieldName("name"))
		typ := w.text(child.ChildByFieldName("type"))
		out = append(out, entity.Parameter{Name: name, Type: typ})
	}
	return out
}

func (w *goWalker) extractTypeSpec(spec *sitter.Node) *entity.Symbol {
	name := w.text(spec.ChildByFieldName("name"))
	if name == "" {
		return nil
	}
	typeNode := spec.ChildByFieldName("type")
	sig := w.text(spec)
	sym := &entity.Symbol{
		Base: entity.Base{
			ID:                ids.SymbolID(w.filePath, name, sig),
			Path:              w.filePath,
			ContentHash:       ids.Sha1Hex([]byte(sig)),
			Language:          "go",
			LastModifiedMilli: w.result.ParsedAtMilli,
		},
		Name:       name,
		Signature:  headline(sig),
		IsExported: isExportedGoName(name),
	}

	if typeNode != nil && typeNode.Type() == "interface_type" {
		sym.Kind = entity.SymbolInterface
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			if elem := typeNode.Child(i); elem.Type() == "method_elem" {
				if mname := w.text(elem.ChildByFieldName("name")); mname != "" {
					sym.Methods = append(sym.Methods, mname)
				}
			}
		}
		return sym
	}

	sym.Kind = entity.SymbolClass
	if typeNode != nil && typeNode.Type() == "struct_type" {
		if fields := typeNode.ChildByFieldName("body"); fields != nil {
			for i := 0; i < int(fields.ChildCount()); i++ {
				if fd := fields.Child(i); fd.Type() == "field_declaration" {
					if fname := w.text(fd.ChildByFieldName("name")); fname != "" {
						sym.Properties = append(sym.Properties, fname)
						ftype := w.text(fd.ChildByFieldName("type"))
						w.fieldTypes[sym.ID] = append(w.fieldTypes[sym.ID], entity.Parameter{Name: fname, Type: ftype})
					}
				}
			}
		}
	} else {
		sym.AliasedType = w.text(typeNode)
	}
	return sym
}

func (w *goWalker) bodyPass(node *sitter.Node, enclosingID string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		if name := w.text(node.ChildByFieldName("name")); name != "" {
			if id, ok := w.byName[name]; ok {
				enclosingID = id
			}
		}
	case "method_declaration":
		if name := w.text(node.ChildByFieldName("name")); name != "" {
			recv := w.receiverTypeName(node)
			key := name
			if recv != "" {
				key = recv + "." + name
			}
			if id, ok := w.byName[key]; ok {
				enclosingID = id
			}
		}
	case "call_expression":
		w.emitCall(node, enclosingID)
		w.emitArgumentReferences(node, enclosingID)
		w.emitBuiltinInstantiation(node, enclosingID)
	case "composite_lit":
		w.emitInstantiation(node, enclosingID)
	case "assignment_statement":
		w.emitWrite(node, enclosingID)
	case "short_var_declaration":
		w.emitReads(node.ChildByFieldName("right"), enclosingID)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		w.bodyPass(node.Child(i), enclosingID)
	}
}

func (w *goWalker) emitCall(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil {
		return
	}

	var name, accessPath string
	switch funcNode.Type() {
	case "identifier":
		name = w.text(funcNode)
		accessPath = name
	case "selector_expression":
		field := funcNode.ChildByFieldName("field")
		name = w.text(field)
		accessPath = w.text(funcNode)
	default:
		return
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

	rel := relationship.New(fromID, toID, relationship.Calls, w.loc(node))
	rel.Source = relationship.SourceAST
	rel.AccessPath = accessPath
	if args := node.ChildByFieldName("arguments"); args != nil {
		rel.Arity = int(args.NamedChildCount())
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

// emitWrite handles an assignment_statement's left-hand targets as
// WRITES edges and its right-hand side as READS, mirroring the
// TypeScript walker's emitWrite/emitReads split.
func (w *goWalker) emitWrite(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	left := node.ChildByFieldName("left")
	if left != nil {
		for i := 0; i < int(left.ChildCount()); i++ {
			w.emitWriteTarget(left.Child(i), fromID)
		}
	}
	if right := node.ChildByFieldName("right"); right != nil {
		w.emitReads(right, fromID)
	}
}

func (w *goWalker) emitWriteTarget(node *sitter.Node, fromID string) {
	if node == nil {
		return
	}
	var name, accessPath string
	switch node.Type() {
	case "identifier":
		name = w.text(node)
		accessPath = name
	case "selector_expression":
		field := node.ChildByFieldName("field")
		name = w.text(field)
		accessPath = w.text(node)
	default:
		return
	}
	if name == "" || name == "_" || w.p.options.NoiseConfig.ShouldDropName(name) {
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
}

// emitReads walks an expression_list (or any expression) emitting READS
// for bare identifiers and selector-expression bases, same scope
// decision as the TypeScript walker: no full scope/declaration tracker,
// so only base identifiers count, not every nested name.
func (w *goWalker) emitReads(node *sitter.Node, fromID string) {
	if node == nil || fromID == "" {
		return
	}
	switch node.Type() {
	case "identifier":
		name := w.text(node)
		if name != "" && name != "_" && !w.p.options.NoiseConfig.ShouldDropName(name) {
			w.emitReadOf(fromID, name, w.loc(node))
		}
		return
	case "selector_expression":
		if base := node.ChildByFieldName("operand"); base != nil && base.Type() == "identifier" {
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

func (w *goWalker) emitReadOf(fromID, name string, loc relationship.Location) {
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

// emitInstantiation records a composite literal (Foo{...}) as a
// REFERENCES edge of kind instantiation.
func (w *goWalker) emitInstantiation(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	name := w.text(typeNode)
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimPrefix(name, "*")
	if idx := strings.IndexAny(name, "[]{"); idx == 0 {
		return
	}
	if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
		return
	}
	w.emitReference(fromID, name, "instantiation", w.loc(node))
}

// emitBuiltinInstantiation records new(T)/make(T, ...) calls as
// REFERENCES edges of kind instantiation, since Go has no `new X(...)`
// expression form -- construction goes through these two builtins (or
// composite literals, handled separately) instead.
func (w *goWalker) emitBuiltinInstantiation(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil || funcNode.Type() != "identifier" {
		return
	}
	callee := w.text(funcNode)
	if callee != "new" && callee != "make" {
		return
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	arg := args.NamedChild(0)
	name := w.text(arg)
	name = strings.TrimPrefix(name, "*")
	if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
		return
	}
	w.emitReference(fromID, name, "instantiation", w.loc(node))
}

// emitArgumentReferences records each bare-identifier call argument as
// a REFERENCES edge of kind identifier, the same scope decision the
// TypeScript walker makes for call arguments.
func (w *goWalker) emitArgumentReferences(node *sitter.Node, fromID string) {
	if fromID == "" {
		return
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "identifier" {
			continue
		}
		name := w.text(arg)
		if name == "" || w.p.options.NoiseConfig.ShouldDropName(name) {
			continue
		}
		w.emitReference(fromID, name, "identifier", w.loc(arg))
	}
}

func (w *goWalker) emitReference(fromID, name, kind string, loc relationship.Location) {
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

// goPrimitiveTypes holds Go's predeclared type names, which never
// merit a RETURNS_TYPE/PARAM_TYPE edge of their own.
var goPrimitiveTypes = map[string]bool{
	"string": true, "bool": true, "byte": true, "rune": true, "error": true, "any": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

// goTypeBaseName strips pointer, slice, and map decoration off a Go
// type expression's text and returns its named-type root: "*Foo" and
// "[]Foo" and "map[string]Foo" all yield "Foo". Predeclared types and
// multi-result signatures with no single named type report ok=false.
func goTypeBaseName(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "", false
	}
	t = strings.Trim(t, "()")
	if idx := strings.IndexByte(t, ','); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)
	for {
		switch {
		case strings.HasPrefix(t, "*"):
			t = t[1:]
			continue
		case strings.HasPrefix(t, "[]"):
			t = t[2:]
			continue
		}
		break
	}
	if strings.HasPrefix(t, "map[") {
		if idx := strings.IndexByte(t, ']'); idx >= 0 {
			t = t[idx+1:]
		}
	}
	t = strings.TrimSpace(t)
	if t == "" {
		return "", false
	}
	if idx := strings.LastIndexByte(t, '.'); idx >= 0 {
		t = t[idx+1:]
	}
	if goPrimitiveTypes[t] {
		return "", false
	}
	return t, true
}

// emitTypeRelationships emits RETURNS_TYPE and PARAM_TYPE edges from
// the type text extractFunction/extractMethod already captured.
// OVERRIDES has no Go equivalent: Go has no class inheritance, only
// interface satisfaction (already modeled via IMPLEMENTS at the
// type-declaration level), so it is deliberately never emitted here.
func (w *goWalker) emitTypeRelationships(sym *entity.Symbol) {
	if base, ok := goTypeBaseName(sym.ReturnType); ok && !w.p.options.NoiseConfig.ShouldDropName(base) {
		w.emitTypeRel(sym.ID, base, relationship.ReturnsType, "")
	}
	for _, param := range sym.Parameters {
		if base, ok := goTypeBaseName(param.Type); ok && !w.p.options.NoiseConfig.ShouldDropName(base) {
			w.emitTypeRel(sym.ID, base, relationship.ParamType, param.Name)
		}
	}
}

// emitFieldDependsOn emits a DEPENDS_ON edge of kind "type" from a
// struct symbol to each field's named type, the struct-field
// counterpart of emitTypeRelationships' function-signature edges.
func (w *goWalker) emitFieldDependsOn(structID string, fields []entity.Parameter) {
	for _, f := range fields {
		base, ok := goTypeBaseName(f.Type)
		if !ok || w.p.options.NoiseConfig.ShouldDropName(base) {
			continue
		}
		toID := "external:" + base
		resolved := false
		if id, ok := w.byName[base]; ok {
			toID = id
			resolved = true
		}
		rel := relationship.New(structID, toID, relationship.DependsOn, relationship.Location{Path: w.filePath, Line: 1})
		rel.Source = relationship.SourceAST
		rel.Kind = "type"
		if resolved {
			rel.Resolution = relationship.ResolutionDirect
			rel.Scope = relationship.ScopeLocal
			rel.Resolved = true
			rel.Confidence = 1.0
		} else {
			rel.Resolution = relationship.ResolutionHeuristic
			rel.Scope = relationship.ScopeUnknown
			rel.Inferred = true
			rel.Confidence = scoreRel(w.p.options.NoiseConfig, rel, base, false)
			if rel.Confidence < w.p.options.NoiseConfig.MinInferredConfidence {
				continue
			}
		}
		w.result.Relationships = append(w.result.Relationships, rel)
	}
}

func (w *goWalker) emitTypeRel(fromID, name string, typ relationship.Type, paramName string) {
	toID := "external:" + name
	resolved := false
	if id, ok := w.byName[name]; ok {
		toID = id
		resolved = true
	}
	rel := relationship.New(fromID, toID, typ, relationship.Location{Path: w.filePath, Line: 1})
	rel.Source = relationship.SourceAST
	rel.ParamName = paramName
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
