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

// Package merge is the first half of Phase 3: folding every file fragment
// from Phase 2 into one crate-wide graph, in a fixed, deterministic order.
// Merge never runs concurrently with itself; it is the single-threaded
// rendezvous point the parallel visitors converge on.
package merge

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

// Warning is a recoverable, per-item condition surfaced during merge. A
// merge-time uniqueness violation outside the documented Impl exception
// is promoted to an error instead of a warning.
type Warning struct {
	Kind   string
	Detail string
}

// Merge concatenates fragments in file-path-sorted order — not the order
// Phase 2 happened to finish them in — so that re-running the pipeline
// over an unchanged tree always produces byte-identical output regardless
// of worker-pool scheduling.
func Merge(fragments []*graph.ParsedCodeGraph, logger *slog.Logger) (*graph.ParsedCodeGraph, []Warning, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := append([]*graph.ParsedCodeGraph(nil), fragments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	out := &graph.ParsedCodeGraph{}
	seen := map[graph.NodeID]graph.ItemKind{}
	seenTypeRefs := map[graph.NodeID]bool{}
	type relKey struct {
		kind     graph.RelationKind
		from, to graph.NodeID
	}
	seenRelations := map[relKey]bool{}
	var warnings []Warning

	checkUnique := func(id graph.NodeID, kind graph.ItemKind) error {
		if existing, ok := seen[id]; ok {
			// Impl nodes are the documented exception: Rust permits
			// multiple impl blocks for one type, so identical-shape
			// Impl ids are tolerated, not an error.
			if kind == graph.KindImpl && existing == graph.KindImpl {
				return nil
			}
			return fmt.Errorf("merge: duplicate node id %s (kind %s, previously %s)", id, kind, existing)
		}
		seen[id] = kind
		return nil
	}

	checkUniqueRelation := func(r graph.Relation) error {
		key := relKey{r.Kind, r.From, r.To}
		if seenRelations[key] {
			// A relation rooted at a tolerated-duplicate Impl node (see
			// checkUnique above) necessarily repeats itself too: two
			// identical-shape impl blocks emit the same
			// ImplementsTrait/ImplementsFor/InherentImpl triple. That
			// repetition is a consequence of the Impl exception, not a
			// fresh violation.
			if seen[r.From] == graph.KindImpl {
				return nil
			}
			return fmt.Errorf("merge: duplicate relation (%s, %s, %s)", r.Kind, r.From, r.To)
		}
		seenRelations[key] = true
		return nil
	}

	for _, f := range sorted {
		for _, n := range f.Modules {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Modules = append(out.Modules, n)
		}
		for _, n := range f.Functions {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Functions = append(out.Functions, n)
		}
		for _, n := range f.Structs {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Structs = append(out.Structs, n)
		}
		for _, n := range f.Enums {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Enums = append(out.Enums, n)
		}
		for _, n := range f.Variants {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Variants = append(out.Variants, n)
		}
		for _, n := range f.Unions {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Unions = append(out.Unions, n)
		}
		for _, n := range f.Traits {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Traits = append(out.Traits, n)
		}
		for _, n := range f.Impls {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Impls = append(out.Impls, n)
		}
		for _, n := range f.TypeAliases {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.TypeAliases = append(out.TypeAliases, n)
		}
		for _, n := range f.Consts {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Consts = append(out.Consts, n)
		}
		for _, n := range f.Statics {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Statics = append(out.Statics, n)
		}
		for _, n := range f.Macros {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Macros = append(out.Macros, n)
		}
		for _, n := range f.Imports {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Imports = append(out.Imports, n)
		}
		for _, n := range f.Fields {
			if err := checkUnique(n.ID, n.Kind); err != nil {
				return nil, warnings, err
			}
			out.Fields = append(out.Fields, n)
		}
		for _, tr := range f.TypeRefs {
			if seenTypeRefs[tr.ID] {
				continue // structurally identical within scope: dedup, not an error
			}
			seenTypeRefs[tr.ID] = true
			out.TypeRefs = append(out.TypeRefs, tr)
		}
		for _, r := range f.Relations {
			if err := checkUniqueRelation(r); err != nil {
				return nil, warnings, err
			}
			out.Relations = append(out.Relations, r)
		}
	}

	logger.Info("merge.complete",
		"files", len(sorted),
		"items", len(seen),
		"typerefs", len(out.TypeRefs),
		"relations", len(out.Relations),
		"warnings", len(warnings),
	)
	return out, warnings, nil
}
