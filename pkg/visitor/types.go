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
	"github.com/kraklabs/rustgraph/pkg/identity"
)

// typeNodeKinds lists every tree-sitter-rust node type that denotes a type
// position, as opposed to an expression or pattern. Kept as a set literal
// rather than a prefix check since Rust's type grammar has no common
// naming convention across these productions.
var typeNodeKinds = map[string]bool{
	"type_identifier":          true,
	"scoped_type_identifier":   true,
	"generic_type":             true,
	"reference_type":           true,
	"pointer_type":             true,
	"tuple_type":               true,
	"array_type":               true,
	"unit_type":                true,
	"dynamic_type":             true,
	"abstract_type":            true,
	"function_type":            true,
	"primitive_type":            true,
	"bounded_type":              true,
	"removed_trait_bound":       true,
	"higher_ranked_trait_bound": true,
	"never_type":                true,
	"self_parameter":            true,
	"self":                      true,
}

func isTypeNode(kind string) bool { return typeNodeKinds[kind] }

// typeRef records a structural TypeRef node for a type-position subtree,
// recursing into its syntactic arguments (generic args, tuple elements,
// reference/pointer inner type, function type params/return) so that
// e.g. `Vec<u32>` becomes one TypeRef for "Vec<u32>" with one nested
// TypeRef argument for "u32". scope is the enclosing item's id, which
// participates in TypeRef identity so the same text in two different
// items is two different nodes.
func (w *walker) typeRef(scope graph.NodeID, node *sitter.Node) graph.NodeID {
	text := w.text(node)
	var args []graph.NodeID

	switch node.Type() {
	case "generic_type":
		if targs := node.ChildByFieldName("type_arguments"); targs != nil {
			for i := 0; i < int(targs.ChildCount()); i++ {
				c := targs.Child(i)
				if isTypeNode(c.Type()) {
					args = append(args, w.typeRef(scope, c))
				}
			}
		}
	case "reference_type", "pointer_type":
		if inner := node.ChildByFieldName("type"); inner != nil {
			args = append(args, w.typeRef(scope, inner))
		}
	case "tuple_type", "array_type", "dynamic_type", "abstract_type":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if isTypeNode(c.Type()) {
				args = append(args, w.typeRef(scope, c))
			}
		}
	case "function_type":
		if params := node.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.ChildCount()); i++ {
				c := params.Child(i)
				if isTypeNode(c.Type()) {
					args = append(args, w.typeRef(scope, c))
				}
			}
		}
		if ret := node.ChildByFieldName("return_type"); ret != nil {
			args = append(args, w.typeRef(scope, ret))
		}
	}

	id := identity.TypeRefID(w.v.CrateNamespace, scope, text, args)
	w.frag.TypeRefs = append(w.frag.TypeRefs, graph.TypeRef{ID: id, Text: text, Args: args})
	return id
}
