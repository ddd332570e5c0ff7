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

package moduletree

import "github.com/kraklabs/rustgraph/pkg/graph"

// Prune removes every node the tree never reached (unlinked file-based
// modules and everything they transitively contain) along with any
// relation touching a removed node. TypeRefs are kept only if still
// referenced by a surviving relation.
func (t *Tree) Prune(g *graph.ParsedCodeGraph) *graph.ParsedCodeGraph {
	out := &graph.ParsedCodeGraph{}

	for _, n := range g.Modules {
		if t.Reachable[n.ID] {
			out.Modules = append(out.Modules, n)
		}
	}
	for _, n := range g.Functions {
		if t.Reachable[n.ID] {
			out.Functions = append(out.Functions, n)
		}
	}
	for _, n := range g.Structs {
		if t.Reachable[n.ID] {
			out.Structs = append(out.Structs, n)
		}
	}
	for _, n := range g.Enums {
		if t.Reachable[n.ID] {
			out.Enums = append(out.Enums, n)
		}
	}
	for _, n := range g.Variants {
		if t.Reachable[n.ID] {
			out.Variants = append(out.Variants, n)
		}
	}
	for _, n := range g.Unions {
		if t.Reachable[n.ID] {
			out.Unions = append(out.Unions, n)
		}
	}
	for _, n := range g.Traits {
		if t.Reachable[n.ID] {
			out.Traits = append(out.Traits, n)
		}
	}
	for _, n := range g.Impls {
		if t.Reachable[n.ID] {
			out.Impls = append(out.Impls, n)
		}
	}
	for _, n := range g.TypeAliases {
		if t.Reachable[n.ID] {
			out.TypeAliases = append(out.TypeAliases, n)
		}
	}
	for _, n := range g.Consts {
		if t.Reachable[n.ID] {
			out.Consts = append(out.Consts, n)
		}
	}
	for _, n := range g.Statics {
		if t.Reachable[n.ID] {
			out.Statics = append(out.Statics, n)
		}
	}
	for _, n := range g.Macros {
		if t.Reachable[n.ID] {
			out.Macros = append(out.Macros, n)
		}
	}
	for _, n := range g.Imports {
		if t.Reachable[n.ID] {
			out.Imports = append(out.Imports, n)
		}
	}
	for _, n := range g.Fields {
		if t.Reachable[n.ID] {
			out.Fields = append(out.Fields, n)
		}
	}

	typeRefIDs := map[graph.NodeID]bool{}
	for _, tr := range g.TypeRefs {
		typeRefIDs[tr.ID] = true
	}
	keepRelation := func(id graph.NodeID) bool {
		return id.Nil() || t.Reachable[id] || typeRefIDs[id]
	}
	typeRefTouched := map[graph.NodeID]bool{}
	for _, r := range g.Relations {
		if !keepRelation(r.From) || !keepRelation(r.To) {
			continue
		}
		// A declaration's own Contains edge survives (the declaration
		// node itself is kept if its enclosing module is reachable,
		// even when unresolved); a relation into a pruned module never
		// does, since keepRelation already filtered that above.
		out.Relations = append(out.Relations, r)
		typeRefTouched[r.To] = true
		typeRefTouched[r.From] = true
	}
	for _, tr := range g.TypeRefs {
		if typeRefTouched[tr.ID] {
			out.TypeRefs = append(out.TypeRefs, tr)
		}
	}

	return out
}
