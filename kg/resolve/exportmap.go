// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

// ReExport describes one `export ... from '<specifier>'` statement.
// IsStar is true for `export * from './x'`; otherwise Names maps the
// re-exported name to the name it had in the source module (usually
// identical).
type ReExport struct {
	Specifier string
	IsStar    bool
	Names     map[string]string
}

// FileExports is the raw export shape the AST Parser extracts from one
// file: its own named declarations plus any re-export statements.
type FileExports struct {
	// Named maps an exported name to itself; present for declarations
	// exported directly from this file (not re-exported).
	Named map[string]struct{}

	ReExports []ReExport
}

// FileExportsProvider supplies the raw FileExports for a resolved
// absolute file path, along with that file's current content hash
// (used to invalidate ExportMap's cache). ok is false if the file is
// unknown (e.g. an external package with no parsed exports).
type FileExportsProvider interface {
	FileExports(absPath string) (exports FileExports, contentHash string, ok bool)
}

// ExportMap resolves every name a file re-exports (directly or
// transitively) down to the absolute file path that actually declares
// it. The returned map is keyed by the exported name as seen from
// absPath; the value is the declaring file's absolute path, or
// absPath itself for names declared locally.
//
// Re-export chains are followed up to MaxExportDepth hops; a cycle or
// an over-deep chain simply stops following further and the name maps
// to the last file reached. Results are cached per absPath, keyed on
// that file's content hash, so re-parsing an unchanged file is free.
func (r *Resolver) ExportMap(absPath string, provider FileExportsProvider) map[string]string {
	exports, hash, ok := provider.FileExports(absPath)
	if !ok {
		return map[string]string{}
	}

	r.cacheMu.RLock()
	entry, cached := r.cache[absPath]
	r.cacheMu.RUnlock()
	if cached && entry.hash == hash {
		return entry.m
	}

	visited := map[string]bool{absPath: true}
	result := r.followExports(absPath, exports, provider, visited, 0)

	r.cacheMu.Lock()
	r.cache[absPath] = exportCacheEntry{hash: hash, m: result}
	r.cacheMu.Unlock()

	return result
}

func (r *Resolver) followExports(
	absPath string,
	exports FileExports,
	provider FileExportsProvider,
	visited map[string]bool,
	depth int,
) map[string]string {
	result := make(map[string]string, len(exports.Named))
	for name := range exports.Named {
		result[name] = absPath
	}

	if depth >= MaxExportDepth {
		return result
	}

	for _, re := range exports.ReExports {
		target, ok := r.ResolveSpecifier(absPath, re.Specifier)
		if !ok || visited[target] {
			continue
		}

		targetExports, _, ok := provider.FileExports(target)
		if !ok {
			continue
		}

		nextVisited := make(map[string]bool, len(visited)+1)
		for k, v := range visited {
			nextVisited[k] = v
		}
		nextVisited[target] = true

		targetMap := r.followExports(target, targetExports, provider, nextVisited, depth+1)

		if re.IsStar {
			for name, declFile := range targetMap {
				if _, exists := result[name]; !exists {
					result[name] = declFile
				}
			}
			continue
		}

		for exportedName, originalName := range re.Names {
			if declFile, ok := targetMap[originalName]; ok {
				result[exportedName] = declFile
			} else {
				result[exportedName] = target
			}
		}
	}

	return result
}
