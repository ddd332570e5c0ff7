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

package merge

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

func id(seed string) graph.NodeID {
	return graph.NodeID(uuid.NewSHA1(uuid.Nil, []byte(seed)))
}

func TestMerge_FixedOrderRegardlessOfInputOrder(t *testing.T) {
	a := &graph.ParsedCodeGraph{File: "src/a.rs", Structs: []graph.Struct{{ItemCommon: graph.ItemCommon{ID: id("a"), Name: "A"}}}}
	b := &graph.ParsedCodeGraph{File: "src/b.rs", Structs: []graph.Struct{{ItemCommon: graph.ItemCommon{ID: id("b"), Name: "B"}}}}

	m1, _, err := Merge([]*graph.ParsedCodeGraph{a, b}, nil)
	require.NoError(t, err)
	m2, _, err := Merge([]*graph.ParsedCodeGraph{b, a}, nil)
	require.NoError(t, err)

	require.Equal(t, m1.Structs, m2.Structs, "merge must concatenate in sorted-file-path order regardless of input order")
}

func TestMerge_DuplicateNonImplIsAnError(t *testing.T) {
	dupID := id("dup")
	a := &graph.ParsedCodeGraph{File: "src/a.rs", Structs: []graph.Struct{{ItemCommon: graph.ItemCommon{ID: dupID, Name: "A"}}}}
	b := &graph.ParsedCodeGraph{File: "src/b.rs", Structs: []graph.Struct{{ItemCommon: graph.ItemCommon{ID: dupID, Name: "A"}}}}

	_, _, err := Merge([]*graph.ParsedCodeGraph{a, b}, nil)
	require.Error(t, err)
}

func TestMerge_DuplicateImplIsTolerated(t *testing.T) {
	dupID := id("impl-dup")
	a := &graph.ParsedCodeGraph{File: "src/a.rs", Impls: []graph.Impl{{ItemCommon: graph.ItemCommon{ID: dupID, Kind: graph.KindImpl}}}}
	b := &graph.ParsedCodeGraph{File: "src/b.rs", Impls: []graph.Impl{{ItemCommon: graph.ItemCommon{ID: dupID, Kind: graph.KindImpl}}}}

	merged, _, err := Merge([]*graph.ParsedCodeGraph{a, b}, nil)
	require.NoError(t, err)
	require.Len(t, merged.Impls, 2)
}

func TestMerge_DuplicateRelationTripleIsAnError(t *testing.T) {
	from, to := id("from"), id("to")
	a := &graph.ParsedCodeGraph{
		File:      "src/a.rs",
		Structs:   []graph.Struct{{ItemCommon: graph.ItemCommon{ID: from, Name: "A"}}},
		Relations: []graph.Relation{{Kind: graph.Contains, From: from, To: to, Ordinal: -1}},
	}
	b := &graph.ParsedCodeGraph{
		File:      "src/b.rs",
		Relations: []graph.Relation{{Kind: graph.Contains, From: from, To: to, Ordinal: -1}},
	}

	_, _, err := Merge([]*graph.ParsedCodeGraph{a, b}, nil)
	require.Error(t, err, "the same (kind, src, dst) relation triple appearing twice is an invariant violation")
}

func TestMerge_DuplicateRelationFromToleratedImplIsTolerated(t *testing.T) {
	dupID := id("impl-dup")
	selfRef := id("self-type")
	a := &graph.ParsedCodeGraph{
		File:      "src/a.rs",
		Impls:     []graph.Impl{{ItemCommon: graph.ItemCommon{ID: dupID, Kind: graph.KindImpl}}},
		Relations: []graph.Relation{{Kind: graph.ImplementsFor, From: dupID, To: selfRef, Ordinal: -1}},
	}
	b := &graph.ParsedCodeGraph{
		File:      "src/b.rs",
		Impls:     []graph.Impl{{ItemCommon: graph.ItemCommon{ID: dupID, Kind: graph.KindImpl}}},
		Relations: []graph.Relation{{Kind: graph.ImplementsFor, From: dupID, To: selfRef, Ordinal: -1}},
	}

	merged, _, err := Merge([]*graph.ParsedCodeGraph{a, b}, nil)
	require.NoError(t, err, "two identical-shape impl blocks repeating the same ImplementsFor triple is a consequence of the Impl exception, not a fresh violation")
	require.Len(t, merged.Relations, 2)
}

func TestMerge_TypeRefsDedup(t *testing.T) {
	trID := id("typeref")
	a := &graph.ParsedCodeGraph{File: "src/a.rs", TypeRefs: []graph.TypeRef{{ID: trID, Text: "u32"}}}
	b := &graph.ParsedCodeGraph{File: "src/b.rs", TypeRefs: []graph.TypeRef{{ID: trID, Text: "u32"}}}

	merged, _, err := Merge([]*graph.ParsedCodeGraph{a, b}, nil)
	require.NoError(t, err)
	require.Len(t, merged.TypeRefs, 1)
}
