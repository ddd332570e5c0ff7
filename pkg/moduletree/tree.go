// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package moduletree is the second half of Phase 3: resolving `mod foo;`
// declarations to the file that defines them, detecting cycles, assigning
// every reachable item its canonical module path, and pruning whatever the
// resolved tree never reaches. Like merge, it runs single-threaded: the
// resolution order matters (first declaration wins a file-path tie) and
// that order must be fixed across runs.
package moduletree

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

// Warning is a recoverable condition: an unresolved or ambiguous module
// declaration, or an orphaned file never linked into the tree.
type Warning struct {
	Kind   string // "UnresolvedModule", "AmbiguousModulePath", "OrphanFile"
	Detail string
}

// Tree is the resolved module tree plus the canonical path assigned to
// every item reachable from the crate root.
type Tree struct {
	RootID         graph.NodeID
	CanonicalPaths map[graph.NodeID][]string
	Reachable      map[graph.NodeID]bool
}

type itemInfo struct {
	kind graph.ItemKind
	name string
	file string
	line int
	col  int
}

// Build resolves the module tree for a merged graph. crateName seeds every
// canonical path (canonical paths are crate-root-relative, with the crate
// name as their first segment).
func Build(g *graph.ParsedCodeGraph, crateName string, logger *slog.Logger) (*Tree, []Warning, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info := indexItems(g)
	children := indexContains(g)

	var root *graph.Module
	fileModByPath := map[string][]*graph.Module{} // joined logical path -> candidates
	fileModByFile := map[string]*graph.Module{}
	declByID := map[graph.NodeID]*graph.Module{}

	mods := make([]*graph.Module, len(g.Modules))
	for i := range g.Modules {
		mods[i] = &g.Modules[i]
	}
	for _, m := range mods {
		switch m.Origin {
		case graph.ModuleFileBased:
			if m.IsCrateRoot {
				root = m
			}
			full := append(append([]string(nil), m.ModulePath...), m.Name)
			key := strings.Join(full, "::")
			fileModByPath[key] = append(fileModByPath[key], m)
			fileModByFile[filepath.Clean(m.File)] = m
		case graph.ModuleDeclaration:
			declByID[m.ID] = m
		}
	}
	if root == nil {
		return nil, nil, fmt.Errorf("moduletree: no crate-root file-based module found")
	}

	var warnings []Warning
	for _, decl := range mods {
		if decl.Origin != graph.ModuleDeclaration {
			continue
		}
		resolved, w := resolveDeclaration(decl, fileModByPath, fileModByFile)
		if w != nil {
			warnings = append(warnings, *w)
			logger.Warn("moduletree."+w.Kind, "detail", w.Detail)
		}
		if resolved == nil {
			continue
		}
		decl.DefiningID = resolved.ID
		g.Relations = append(g.Relations, graph.Relation{
			Kind: graph.ResolvesToDefinition, From: decl.ID, To: resolved.ID, Ordinal: -1,
		})
		if decl.PathAttr != "" {
			// CustomPath marks that decl resolved via an explicit #[path=...]
			// override rather than the filesystem convention; the override
			// text itself lives on decl.PathAttr and the resolved file path
			// on resolved.File, since Relation.To is a node id, not free text.
			g.Relations = append(g.Relations, graph.Relation{
				Kind: graph.CustomPath, From: decl.ID, To: resolved.ID, Ordinal: -1,
			})
		}
	}

	tree := &Tree{
		RootID:         root.ID,
		CanonicalPaths: map[graph.NodeID][]string{},
		Reachable:      map[graph.NodeID]bool{},
	}

	visiting := map[graph.NodeID]bool{} // current DFS stack, for cycle detection
	if err := walk(root.ID, []string{crateName}, children, declByID, info, tree, visiting); err != nil {
		return nil, warnings, err
	}

	for _, m := range mods {
		if m.Origin == graph.ModuleFileBased && !tree.Reachable[m.ID] {
			w := Warning{Kind: "OrphanFile", Detail: fmt.Sprintf("file %s is never reached from the crate root", m.File)}
			warnings = append(warnings, w)
			logger.Warn("moduletree.OrphanFile", "file", m.File)
		}
	}

	logger.Info("moduletree.complete", "reachable", len(tree.Reachable), "warnings", len(warnings))
	return tree, warnings, nil
}

// resolveDeclaration applies the three-step resolution policy: explicit
// #[path=...] override, then conventional file lookup (preferring a
// sibling "foo.rs" over "foo/mod.rs" when both exist — the documented
// tie-break, reported with an AmbiguousModulePath warning alongside the
// chosen module), then unresolved.
func resolveDeclaration(decl *graph.Module, byPath map[string][]*graph.Module, byFile map[string]*graph.Module) (*graph.Module, *Warning) {
	if decl.PathAttr != "" {
		target := filepath.Clean(filepath.Join(filepath.Dir(decl.File), decl.PathAttr))
		if m, ok := byFile[target]; ok {
			return m, nil
		}
		return nil, &Warning{Kind: "UnresolvedModule", Detail: fmt.Sprintf("#[path = %q] on `mod %s;` in %s did not resolve to any discovered file", decl.PathAttr, decl.Name, decl.File)}
	}

	full := append(append([]string(nil), decl.ModulePath...), decl.Name)
	key := strings.Join(full, "::")
	candidates := byPath[key]
	switch len(candidates) {
	case 0:
		return nil, &Warning{Kind: "UnresolvedModule", Detail: fmt.Sprintf("`mod %s;` in %s has no matching %s.rs or %s/mod.rs", decl.Name, decl.File, decl.Name, decl.Name)}
	case 1:
		return candidates[0], nil
	default:
		sort.Slice(candidates, func(i, j int) bool {
			iSibling := !strings.HasSuffix(filepath.ToSlash(candidates[i].File), "/mod.rs")
			jSibling := !strings.HasSuffix(filepath.ToSlash(candidates[j].File), "/mod.rs")
			if iSibling != jSibling {
				return iSibling // sibling file sorts first
			}
			return candidates[i].File < candidates[j].File
		})
		return candidates[0], &Warning{Kind: "AmbiguousModulePath", Detail: fmt.Sprintf("`mod %s;` in %s matches both %s.rs and %s/mod.rs; using %s", decl.Name, decl.File, decl.Name, decl.Name, candidates[0].File)}
	}
}

func indexItems(g *graph.ParsedCodeGraph) map[graph.NodeID]itemInfo {
	m := map[graph.NodeID]itemInfo{}
	add := func(id graph.NodeID, kind graph.ItemKind, name, file string, span graph.Span) {
		m[id] = itemInfo{kind: kind, name: name, file: file, line: span.StartLine, col: span.StartCol}
	}
	for _, n := range g.Modules {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Functions {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Structs {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Enums {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Variants {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Unions {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Traits {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Impls {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.TypeAliases {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Consts {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Statics {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Macros {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Imports {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	for _, n := range g.Fields {
		add(n.ID, n.Kind, n.Name, n.File, n.Span)
	}
	return m
}

func indexContains(g *graph.ParsedCodeGraph) map[graph.NodeID][]graph.NodeID {
	m := map[graph.NodeID][]graph.NodeID{}
	for _, r := range g.Relations {
		if r.Kind == graph.Contains {
			m[r.From] = append(m[r.From], r.To)
		}
	}
	return m
}

// walk performs the single deterministic pre-order traversal that assigns
// canonical paths, grafting a declaration's resolved defining module in
// place of its (empty) own child list. visiting is the current DFS stack;
// revisiting a module already on it is a cycle, which is fatal.
func walk(id graph.NodeID, path []string, children map[graph.NodeID][]graph.NodeID, declByID map[graph.NodeID]*graph.Module, info map[graph.NodeID]itemInfo, tree *Tree, visiting map[graph.NodeID]bool) error {
	if visiting[id] {
		return fmt.Errorf("moduletree: module cycle detected at %s", id)
	}
	if tree.Reachable[id] {
		return nil // already visited via another path (e.g. re-export); not a cycle
	}
	visiting[id] = true
	defer delete(visiting, id)

	tree.Reachable[id] = true
	tree.CanonicalPaths[id] = path

	kids := append([]graph.NodeID(nil), children[id]...)
	sort.Slice(kids, func(i, j int) bool {
		a, b := info[kids[i]], info[kids[j]]
		if a.file != b.file {
			return a.file < b.file
		}
		if a.line != b.line {
			return a.line < b.line
		}
		return a.col < b.col
	})

	for _, kid := range kids {
		ki := info[kid]
		childPath := append(append([]string(nil), path...), ki.name)

		if decl, ok := declByID[kid]; ok {
			tree.Reachable[kid] = true
			tree.CanonicalPaths[kid] = childPath
			if decl.DefiningID.Nil() {
				continue // UnresolvedModule: already warned by Build
			}
			if err := walk(decl.DefiningID, childPath, children, declByID, info, tree, visiting); err != nil {
				return err
			}
			continue
		}

		if ki.kind == graph.KindModule {
			// Inline module, or a file-based module reached directly
			// (only the crate root should be, but handle defensively).
			if err := walk(kid, childPath, children, declByID, info, tree, visiting); err != nil {
				return err
			}
			continue
		}

		if err := walk(kid, childPath, children, declByID, info, tree, visiting); err != nil {
			return err
		}
	}
	return nil
}
