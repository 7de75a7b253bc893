// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"context"
	"testing"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
)

func TestGoParser_FunctionAndMethod(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package widget

type Widget struct {
	Name string
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func (w *Widget) Render() string {
	return w.Name
}
`)
	result, err := p.Parse(context.Background(), content, "widget.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var structSym, ctorSym, methodSym *entity.Symbol
	for _, s := range result.Symbols {
		switch {
		case s.Name == "Widget" && s.Kind == entity.SymbolClass:
			structSym = s
		case s.Name == "NewWidget":
			ctorSym = s
		case s.Name == "Render":
			methodSym = s
		}
	}
	if structSym == nil {
		t.Fatal("expected a Widget struct symbol")
	}
	if len(structSym.Properties) != 1 || structSym.Properties[0] != "Name" {
		t.Fatalf("Properties = %v, want [Name]", structSym.Properties)
	}
	if ctorSym == nil || !ctorSym.IsExported {
		t.Fatal("expected an exported NewWidget function symbol")
	}
	if methodSym == nil || methodSym.Kind != entity.SymbolMethod {
		t.Fatal("expected a Render method symbol")
	}
}

func TestGoParser_Import(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package main

import (
	"fmt"
	alias "strings"
)

func main() {
	fmt.Println(alias.ToUpper("hi"))
}
`)
	result, err := p.Parse(context.Background(), content, "main.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.RawImports) != 2 {
		t.Fatalf("RawImports = %d, want 2", len(result.RawImports))
	}
}

func TestGoParser_CallWithinFunctionResolvesSameFileTarget(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package main

func helper() {}

func main() {
	helper()
}
`)
	result, err := p.Parse(context.Background(), content, "main.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var helperID string
	for _, s := range result.Symbols {
		if s.Name == "helper" {
			helperID = s.ID
		}
	}
	if helperID == "" {
		t.Fatal("expected a helper symbol")
	}

	found := false
	for _, rel := range result.Relationships {
		if rel.Type == relationship.Calls && rel.To == helperID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a CALLS relationship to helper")
	}
}

func TestGoParser_FunctionEmitsContainsAndReturnsType(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package widget

type Widget struct {
	Name string
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}
`)
	result, err := p.Parse(context.Background(), content, "widget.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var widgetSym, ctorSym *entity.Symbol
	for _, s := range result.Symbols {
		switch s.Name {
		case "Widget":
			widgetSym = s
		case "NewWidget":
			ctorSym = s
		}
	}
	if widgetSym == nil || ctorSym == nil {
		t.Fatalf("expected Widget and NewWidget symbols, got widget=%v ctor=%v", widgetSym, ctorSym)
	}

	foundContains := false
	foundReturns := false
	for _, rel := range result.Relationships {
		if rel.Type == relationship.Contains && rel.From == result.File.ID && rel.To == ctorSym.ID {
			foundContains = true
		}
		if rel.Type == relationship.ReturnsType && rel.From == ctorSym.ID {
			foundReturns = true
			if rel.To != widgetSym.ID || !rel.Resolved {
				t.Fatalf("RETURNS_TYPE should resolve *Widget to the same-file Widget symbol, got To=%q resolved=%v", rel.To, rel.Resolved)
			}
		}
	}
	if !foundContains {
		t.Fatal("expected a CONTAINS relationship from File to NewWidget")
	}
	if !foundReturns {
		t.Fatal("expected a RETURNS_TYPE relationship from NewWidget to Widget")
	}
}

func TestGoParser_StructFieldDependsOnNamedType(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package store

type Cache struct {
	Size int
}

type Store struct {
	Backing *Cache
}
`)
	result, err := p.Parse(context.Background(), content, "store.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var storeSym, cacheSym *entity.Symbol
	for _, s := range result.Symbols {
		switch s.Name {
		case "Store":
			storeSym = s
		case "Cache":
			cacheSym = s
		}
	}
	if storeSym == nil || cacheSym == nil {
		t.Fatalf("expected Store and Cache symbols, got store=%v cache=%v", storeSym, cacheSym)
	}

	found := false
	for _, rel := range result.Relationships {
		if rel.Type == relationship.DependsOn && rel.From == storeSym.ID {
			found = true
			if rel.Kind != "type" {
				t.Fatalf("DEPENDS_ON.Kind = %q, want type", rel.Kind)
			}
			if rel.To != cacheSym.ID || !rel.Resolved {
				t.Fatalf("DEPENDS_ON should resolve *Cache to the same-file Cache symbol, got To=%q resolved=%v", rel.To, rel.Resolved)
			}
		}
	}
	if !found {
		t.Fatal("expected a DEPENDS_ON relationship from Store to Cache")
	}
}

func TestGoParser_UnresolvedCallUsesExternalPlaceholder(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package main

func main() {
	doSomethingElsewhere()
}
`)
	result, err := p.Parse(context.Background(), content, "main.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	found := false
	for _, rel := range result.Relationships {
		if rel.Type == relationship.Calls && rel.To == "external:doSomethingElsewhere" {
			found = true
			if rel.Resolved {
				t.Fatal("unresolved call should not be marked Resolved")
			}
		}
	}
	if !found {
		t.Fatal("expected a CALLS relationship to the external: placeholder, not the bare name")
	}
}

func TestGoParser_CompositeLiteralEmitsInstantiationReference(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package main

type Widget struct {
	Name string
}

func main() {
	w := Widget{Name: "a"}
	_ = w
}
`)
	result, err := p.Parse(context.Background(), content, "main.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	found := false
	for _, rel := range result.Relationships {
		if rel.Type == relationship.References && rel.Kind == "instantiation" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a REFERENCES(kind=instantiation) edge for the Widget{} composite literal")
	}
}

func TestGoParser_Interface(t *testing.T) {
	p := NewGoParser()
	content := []byte(`
package main

type Renderer interface {
	Render() string
}
`)
	result, err := p.Parse(context.Background(), content, "main.go")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var iface *entity.Symbol
	for _, s := range result.Symbols {
		if s.Name == "Renderer" {
			iface = s
		}
	}
	if iface == nil || iface.Kind != entity.SymbolInterface {
		t.Fatal("expected a Renderer interface symbol")
	}
	if len(iface.Methods) != 1 || iface.Methods[0] != "Render" {
		t.Fatalf("Methods = %v, want [Render]", iface.Methods)
	}
}
