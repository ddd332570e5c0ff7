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

package visitor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

// visitUseDeclaration flattens a `use` tree into one Import node per leaf
// path, recursing through scoped_use_list / use_list / use_as_clause /
// use_wildcard shapes. Identity is computed from the original path, never
// the alias, so `use a::b;` and `use a::b as _;` in the same module
// collapse onto the same node (the alias-collapse invariant).
func (w *walker) visitUseDeclaration(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	w.flattenUseTree(arg, nil, cfgs, vis)
}

func (w *walker) flattenUseTree(node *sitter.Node, prefix []string, cfgs []string, vis graph.Visibility) {
	switch node.Type() {
	case "scoped_use_list":
		p := node.ChildByFieldName("path")
		var base []string
		if p != nil {
			base = append(append([]string(nil), prefix...), pathSegments(p, w)...)
		} else {
			base = prefix
		}
		if list := node.ChildByFieldName("list"); list != nil {
			for i := 0; i < int(list.ChildCount()); i++ {
				c := list.Child(i)
				if c.Type() == "," || c.Type() == "{" || c.Type() == "}" {
					continue
				}
				w.flattenUseTree(c, base, cfgs, vis)
			}
		}
	case "use_list":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() == "," || c.Type() == "{" || c.Type() == "}" {
				continue
			}
			w.flattenUseTree(c, prefix, cfgs, vis)
		}
	case "use_as_clause":
		p := node.ChildByFieldName("path")
		aliasNode := node.ChildByFieldName("alias")
		full := append(append([]string(nil), prefix...), pathSegments(p, w)...)
		alias := ""
		if aliasNode != nil {
			alias = w.text(aliasNode)
		}
		w.emitImport(full, alias, false, cfgs, vis, node)
	case "use_wildcard":
		p := node.ChildByFieldName("path")
		var full []string
		if p != nil {
			full = append(append([]string(nil), prefix...), pathSegments(p, w)...)
		} else {
			full = prefix
		}
		w.emitImport(full, "*", true, cfgs, vis, node)
	default:
		full := append(append([]string(nil), prefix...), pathSegments(node, w)...)
		w.emitImport(full, "", false, cfgs, vis, node)
	}
}

// pathSegments renders a `scoped_identifier`/`identifier`/`crate`/`self`/
// `super` path node into its dotted segments.
func pathSegments(node *sitter.Node, w *walker) []string {
	text := w.text(node)
	if text == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		if text[i] == ':' && text[i+1] == ':' {
			segs = append(segs, text[start:i])
			i++
			start = i + 1
		}
	}
	segs = append(segs, text[start:])
	return segs
}

func (w *walker) emitImport(path []string, alias string, isGlob bool, cfgs []string, vis graph.Visibility, node *sitter.Node) {
	if len(path) == 0 {
		return
	}
	originalName := path[len(path)-1]
	if alias == "" {
		alias = originalName
	}
	// Identity uses the original path/name, not the alias: `use a::b;`
	// and `use a::b as _;` must produce the same Import node.
	id := w.synthID(graph.KindImport, joinPath(path))

	imp := graph.Import{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindImport, Name: originalName, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Path:   path,
		Alias:  alias,
		IsGlob: isGlob,
	}

	for _, existing := range w.frag.Imports {
		if existing.ID == id {
			return
		}
	}
	w.frag.Imports = append(w.frag.Imports, imp)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Imports))
	w.addRelation(graph.ModuleImports, w.parentScope(), id, 0)
}

func joinPath(path []string) string {
	out := ""
	for i, s := range path {
		if i > 0 {
			out += "::"
		}
		out += s
	}
	return out
}

func (w *walker) visitExternCrate(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	alias := name
	if aliasNode := node.ChildByFieldName("alias"); aliasNode != nil {
		alias = w.text(aliasNode)
	}
	id := w.synthID(graph.KindImport, name)

	imp := graph.Import{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindImport, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Path:          []string{name},
		Alias:         alias,
		IsExternCrate: true,
	}
	w.frag.Imports = append(w.frag.Imports, imp)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Imports))
	w.addRelation(graph.ModuleImports, w.parentScope(), id, 0)
}
