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

// Package visitor is Phase 2: the per-file AST visitor. Each call to
// AnalyzeFile is pure and touches no shared mutable state, so the pipeline
// can run arbitrarily many of them concurrently; the only shared resource
// is the tree-sitter parser pool, which is safe for concurrent checkout.
package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/google/uuid"

	"github.com/kraklabs/rustgraph/pkg/graph"
	"github.com/kraklabs/rustgraph/pkg/identity"
)

var rustPool = sync.Pool{
	New: func() interface{} {
		p := sitter.NewParser()
		p.SetLanguage(rust.GetLanguage())
		return p
	},
}

// Visitor holds the per-crate state shared read-only across concurrent
// AnalyzeFile calls: the crate namespace and a logger. It carries no
// mutable fields, matching "never share mutable state between tasks".
type Visitor struct {
	CrateNamespace uuid.UUID
	Logger         *slog.Logger
	MaxCodeTextBytes int
}

// New builds a Visitor for one crate.
func New(crateNS uuid.UUID, logger *slog.Logger) *Visitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Visitor{CrateNamespace: crateNS, Logger: logger, MaxCodeTextBytes: 102400}
}

// AnalyzeFile parses one Rust source file and returns its fragment of the
// code graph. modulePath is the file's own conventional module path
// (nil for the crate root file; a submodule file's is its parent's path
// plus its own segment), computed by Discovery from filesystem location
// per the documented convention — it is presumptive until the module tree
// builder corroborates it with a resolved `mod` declaration; unreached
// files are pruned.
//
// Every file produces exactly one file-based Module node representing
// itself (ModuleFileBased, or the crate root flag set for the root file),
// which becomes the implicit parent scope for every top-level item in the
// file. This is a distinct node from any `mod foo;` declaration elsewhere
// that may eventually resolve to this file; the module tree builder links
// the two via Module.DefiningID rather than unifying their ids, so a
// declaration's synthetic id (computed from the declaring file's context)
// and the defining file's own synthetic id (computed from its own path)
// never collide.
func (v *Visitor) AnalyzeFile(path string, src []byte, modulePath []string) (*graph.ParsedCodeGraph, error) {
	parser := rustPool.Get().(*sitter.Parser)
	defer rustPool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("visitor: parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		v.Logger.Warn("visitor.syntax_errors", "path", path)
	}

	w := &walker{
		v:          v,
		src:        src,
		path:       path,
		frag:       &graph.ParsedCodeGraph{File: path},
		modPath:    append([]string(nil), modulePath...),
		scopeStack: []graph.NodeID{},
		cfgStack:   nil,
	}

	fileModName := ""
	parentPath := w.modPath
	if len(modulePath) > 0 {
		fileModName = modulePath[len(modulePath)-1]
		parentPath = modulePath[:len(modulePath)-1]
	}
	fileModCtx := identity.Context{FilePath: path, ModulePath: parentPath, Kind: graph.KindModule, Name: fileModName}
	fileModID := identity.SynthID(v.CrateNamespace, fileModCtx)
	w.frag.Modules = append(w.frag.Modules, graph.Module{
		ItemCommon: graph.ItemCommon{
			ID: fileModID, Kind: graph.KindModule, Name: fileModName, File: path,
			ModulePath: append([]string(nil), parentPath...),
		},
		Origin:      graph.ModuleFileBased,
		IsCrateRoot: len(modulePath) == 0,
	})
	w.pushScope(fileModID)

	w.walkChildren(root)
	return w.frag, nil
}

// walker carries the mutable visitation state for exactly one file. It is
// never shared across goroutines; each AnalyzeFile call builds its own.
type walker struct {
	v    *Visitor
	src  []byte
	path string
	frag *graph.ParsedCodeGraph

	modPath    []string
	scopeStack []graph.NodeID // definition-scope stack, innermost last
	cfgStack   []string       // inherited cfg predicates, innermost last
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *walker) span(n *sitter.Node) graph.Span {
	return graph.Span{
		StartLine: int(n.StartPoint().Row) + 1,
		StartCol:  int(n.StartPoint().Column) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		EndCol:    int(n.EndPoint().Column) + 1,
	}
}

func (w *walker) parentScope() graph.NodeID {
	if len(w.scopeStack) == 0 {
		return graph.NodeID{}
	}
	return w.scopeStack[len(w.scopeStack)-1]
}

func (w *walker) ctx(kind graph.ItemKind, name string) identity.Context {
	return identity.Context{
		FilePath:    w.path,
		ModulePath:  append([]string(nil), w.modPath...),
		ParentScope: w.parentScope(),
		Kind:        kind,
		Name:        name,
		CfgStack:    append([]string(nil), w.cfgStack...),
	}
}

func (w *walker) synthID(kind graph.ItemKind, name string) graph.NodeID {
	return identity.SynthID(w.v.CrateNamespace, w.ctx(kind, name))
}

func (w *walker) addRelation(kind graph.RelationKind, from, to graph.NodeID, ordinal int) {
	w.frag.Relations = append(w.frag.Relations, graph.Relation{Kind: kind, From: from, To: to, Ordinal: ordinal})
}

func (w *walker) truncate(s string) string {
	if w.v.MaxCodeTextBytes <= 0 || len(s) <= w.v.MaxCodeTextBytes {
		return s
	}
	return s[:w.v.MaxCodeTextBytes]
}

// pushScope/popScope/pushCfg/popCfg implement explicit push/pop stacks in
// place of dynamic scoping: every recursive call that enters a new lexical
// item pushes before recursing and pops on return, so no goroutine-unsafe
// global state is ever touched.
func (w *walker) pushScope(id graph.NodeID) { w.scopeStack = append(w.scopeStack, id) }
func (w *walker) popScope()                 { w.scopeStack = w.scopeStack[:len(w.scopeStack)-1] }
func (w *walker) pushCfg(cfgs []string)     { w.cfgStack = append(w.cfgStack, cfgs...) }
func (w *walker) popCfg(n int) {
	w.cfgStack = w.cfgStack[:len(w.cfgStack)-n]
}
func (w *walker) pushMod(seg string) { w.modPath = append(w.modPath, seg) }
func (w *walker) popMod()            { w.modPath = w.modPath[:len(w.modPath)-1] }

// walkChildren recurses into every child of node, first collecting any
// attribute_item siblings that precede an item so their cfg predicates can
// be pushed for exactly that item's recursion. inner_attribute_item nodes
// are dispatched like items and contribute no cfg.
func (w *walker) walkChildren(node *sitter.Node) {
	var pendingCfgs []string
	var pendingVis graph.Visibility
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "attribute_item":
			pendingCfgs = append(pendingCfgs, extractCfgPredicates(child, w.src)...)
			continue
		case "visibility_modifier":
			pendingVis = graph.Visibility(w.text(child))
			continue
		case "line_comment", "block_comment":
			continue
		}
		w.visitItem(child, pendingCfgs, pendingVis)
		pendingCfgs = nil
		pendingVis = ""
	}
}

// visitItem dispatches one top-level node kind to its extractor, pushing
// cfg before and popping after so nested items inherit it.
func (w *walker) visitItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	w.pushCfg(cfgs)
	defer w.popCfg(len(cfgs))

	switch node.Type() {
	case "mod_item":
		w.visitModItem(node, cfgs, vis)
	case "function_item":
		w.visitFunctionItem(node, cfgs, vis, graph.NodeID{})
	case "struct_item":
		w.visitStructItem(node, cfgs, vis)
	case "enum_item":
		w.visitEnumItem(node, cfgs, vis)
	case "union_item":
		w.visitUnionItem(node, cfgs, vis)
	case "trait_item":
		w.visitTraitItem(node, cfgs, vis)
	case "impl_item":
		w.visitImplItem(node, cfgs, vis)
	case "type_item":
		w.visitTypeAliasItem(node, cfgs, vis)
	case "const_item":
		w.visitConstItem(node, cfgs, vis)
	case "static_item":
		w.visitStaticItem(node, cfgs, vis)
	case "macro_definition":
		w.visitMacroItem(node, cfgs, vis)
	case "use_declaration":
		w.visitUseDeclaration(node, cfgs, vis)
	case "extern_crate_declaration":
		w.visitExternCrate(node, cfgs, vis)
	case "inner_attribute_item":
		// Crate/module-level inner attributes (e.g. #![allow(...)]) carry
		// no items of their own; nothing to do.
	default:
		// Unhandled node kinds (expressions, statements inside fn bodies
		// that this visitor never descends into, etc.) are not items.
	}
}
