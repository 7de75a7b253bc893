// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"sort"
	"strings"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/relationship"
)

// SynthesizeDirectories derives every ancestor Directory entity implied
// by a set of file paths, with each Directory's Children already
// populated (immediate child files and subdirectories). No parser
// observes directories directly; they only exist because files live in
// them, so this runs once per batch rather than per file.
func SynthesizeDirectories(filePaths []string) []*entity.Directory {
	dirs := make(map[string]*entity.Directory)
	children := make(map[string]map[string]struct{})

	ensureDir := func(path string) *entity.Directory {
		if d, ok := dirs[path]; ok {
			return d
		}
		depth := 0
		if path != "" {
			depth = strings.Count(path, "/") + 1
		}
		d := &entity.Directory{
			Base: entity.Base{ID: ids.DirID(path), Path: path},
			Depth: depth,
		}
		dirs[path] = d
		return d
	}

	addChild := func(parent, child string) {
		if children[parent] == nil {
			children[parent] = make(map[string]struct{})
		}
		children[parent][child] = struct{}{}
	}

	for _, fp := range filePaths {
		dir := parentDir(fp)
		ensureDir(dir)
		addChild(dir, fp)

		for dir != "" {
			parent := parentDir(dir)
			ensureDir(parent)
			addChild(parent, dir)
			dir = parent
		}
	}

	out := make([]*entity.Directory, 0, len(dirs))
	for path, d := range dirs {
		var kids []string
		for c := range children[path] {
			kids = append(kids, c)
		}
		sort.Strings(kids)
		d.Children = kids
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// SynthesizeDirectoryEdges mints the CONTAINS edges the directory
// synthesis rule requires: parent directory to child directory, and
// last directory to each file it directly holds. dirs must be the
// output of SynthesizeDirectories over the same batch.
func SynthesizeDirectoryEdges(dirs []*entity.Directory) []*relationship.Relationship {
	dirPaths := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		dirPaths[d.Path] = struct{}{}
	}

	var out []*relationship.Relationship
	for _, d := range dirs {
		for _, child := range d.Children {
			toID := ids.FileID(child)
			if _, isDir := dirPaths[child]; isDir {
				toID = ids.DirID(child)
			}
			rel := relationship.New(d.ID, toID, relationship.Contains, relationship.Location{Path: child, Line: 1})
			rel.Source = relationship.SourceAST
			rel.Resolution = relationship.ResolutionDirect
			rel.Scope = relationship.ScopeLocal
			rel.Confidence = 1.0
			rel.Resolved = true
			out = append(out, rel)
		}
	}
	return out
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}
