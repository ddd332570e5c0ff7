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

// Package canonical is the last step of Phase 3: turning the module tree's
// resolved canonical paths into canonical node IDs, and building the
// synthetic-to-canonical lookup the rest of the pipeline consults.
package canonical

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/kraklabs/rustgraph/pkg/graph"
	"github.com/kraklabs/rustgraph/pkg/identity"
	"github.com/kraklabs/rustgraph/pkg/moduletree"
)

// Resolve derives a canonical ID for every item the tree reached and
// returns the synthetic-to-canonical lookup. Canonical IDs are computed
// purely from (crate namespace, canonical path, kind, the item's own cfg
// predicates) — never from the synthetic ID — so they survive file
// reorganizations that preserve the logical module path (moving foo.rs to
// foo/mod.rs doesn't change it). Only the cfgs written on the item itself
// (its CfgStrings) are mixed in; cfgs inherited from enclosing modules,
// impls or `mod foo;` declarations are not, so two items that share a
// canonical path and kind and differ only in an inherited cfg get the same
// canonical id.
func Resolve(tree *moduletree.Tree, g *graph.ParsedCodeGraph, crateNS uuid.UUID, logger *slog.Logger) identity.Map {
	if logger == nil {
		logger = slog.Default()
	}

	out := make(identity.Map, len(tree.Reachable))
	assign := func(id graph.NodeID, kind graph.ItemKind, cfgs []string) {
		path, ok := tree.CanonicalPaths[id]
		if !ok {
			return
		}
		out[id] = identity.CanonicalID(crateNS, path, kind, cfgs)
	}

	for _, n := range g.Modules {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Functions {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Structs {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Enums {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Variants {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Unions {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Traits {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Impls {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.TypeAliases {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Consts {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Statics {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Macros {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Imports {
		assign(n.ID, n.Kind, n.CfgStrings)
	}
	for _, n := range g.Fields {
		assign(n.ID, n.Kind, n.CfgStrings)
	}

	logger.Info("canonical.complete", "resolved", len(out))
	return out
}
