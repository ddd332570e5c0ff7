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

package canonical

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rustgraph/pkg/graph"
	"github.com/kraklabs/rustgraph/pkg/identity"
	"github.com/kraklabs/rustgraph/pkg/merge"
	"github.com/kraklabs/rustgraph/pkg/moduletree"
	"github.com/kraklabs/rustgraph/pkg/visitor"
)

func buildCrate(t *testing.T, crateNS uuid.UUID, files map[string][]string, modulePaths map[string][]string) *graph.ParsedCodeGraph {
	t.Helper()
	v := visitor.New(crateNS, nil)
	var frags []*graph.ParsedCodeGraph
	for path, lines := range files {
		src := []byte("")
		for _, l := range lines {
			src = append(src, []byte(l+"\n")...)
		}
		frag, err := v.AnalyzeFile(path, src, modulePaths[path])
		require.NoError(t, err)
		frags = append(frags, frag)
	}
	merged, _, err := merge.Merge(frags, nil)
	require.NoError(t, err)
	return merged
}

func TestResolve_StableAcrossFileReorganization(t *testing.T) {
	crateNS := identity.CrateNamespace("demo", "0.1.0")

	layoutA := map[string][]string{
		"src/lib.rs": {"mod net;"},
		"src/net.rs": {"pub fn connect() {}"},
	}
	pathsA := map[string][]string{
		"src/lib.rs": nil,
		"src/net.rs": {"net"},
	}
	gA := buildCrate(t, crateNS, layoutA, pathsA)
	treeA, _, err := moduletree.Build(gA, "demo", nil)
	require.NoError(t, err)
	mapA := Resolve(treeA, gA, crateNS, nil)

	layoutB := map[string][]string{
		"src/lib.rs":        {"mod net;"},
		"src/net/mod.rs": {"pub fn connect() {}"},
	}
	pathsB := map[string][]string{
		"src/lib.rs":        nil,
		"src/net/mod.rs": {"net"},
	}
	gB := buildCrate(t, crateNS, layoutB, pathsB)
	treeB, _, err := moduletree.Build(gB, "demo", nil)
	require.NoError(t, err)
	mapB := Resolve(treeB, gB, crateNS, nil)

	var fnA, fnB *graph.Function
	for i := range gA.Functions {
		if gA.Functions[i].Name == "connect" {
			fnA = &gA.Functions[i]
		}
	}
	for i := range gB.Functions {
		if gB.Functions[i].Name == "connect" {
			fnB = &gB.Functions[i]
		}
	}
	require.NotNil(t, fnA)
	require.NotNil(t, fnB)

	require.NotEqual(t, fnA.ID, fnB.ID, "synthetic ids differ because FilePath differs")
	require.Equal(t, mapA.Canonicalize(fnA.ID), mapB.Canonicalize(fnB.ID), "canonical ids must be stable across file reorganization preserving module path")
}

func TestResolve_CfgDisambiguatesSameNameItems(t *testing.T) {
	crateNS := identity.CrateNamespace("demo", "0.1.0")
	layout := map[string][]string{
		"src/lib.rs": {
			`#[cfg(unix)]`,
			`fn f() {}`,
			``,
			`#[cfg(windows)]`,
			`fn f() {}`,
		},
	}
	paths := map[string][]string{"src/lib.rs": nil}
	g := buildCrate(t, crateNS, layout, paths)
	tree, _, err := moduletree.Build(g, "demo", nil)
	require.NoError(t, err)
	m := Resolve(tree, g, crateNS, nil)

	require.Len(t, g.Functions, 2)
	unixID := m.Canonicalize(g.Functions[0].ID)
	windowsID := m.Canonicalize(g.Functions[1].ID)
	require.NotEqual(t, unixID, windowsID,
		"#[cfg(unix)] fn f() and #[cfg(windows)] fn f() in the same module must get distinct canonical ids")
}

func TestResolve_UnreachedItemHasNoCanonicalID(t *testing.T) {
	crateNS := identity.CrateNamespace("demo", "0.1.0")
	layout := map[string][]string{
		"src/lib.rs":     {"fn main_fn() {}"},
		"src/unused.rs": {"pub fn dead() {}"},
	}
	paths := map[string][]string{
		"src/lib.rs":     nil,
		"src/unused.rs": {"unused"},
	}
	g := buildCrate(t, crateNS, layout, paths)
	tree, _, err := moduletree.Build(g, "demo", nil)
	require.NoError(t, err)
	m := Resolve(tree, g, crateNS, nil)

	var dead *graph.Function
	for i := range g.Functions {
		if g.Functions[i].Name == "dead" {
			dead = &g.Functions[i]
		}
	}
	require.NotNil(t, dead)
	_, ok := m[dead.ID]
	require.False(t, ok, "an item never reached by the module tree gets no canonical id")
}
