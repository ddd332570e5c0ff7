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

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rustgraph/pkg/graph"
	"github.com/kraklabs/rustgraph/pkg/merge"
	"github.com/kraklabs/rustgraph/pkg/visitor"
)

func nid(seed string) graph.NodeID {
	return graph.NodeID(uuid.NewSHA1(uuid.Nil, []byte(seed)))
}

// buildCrate runs the visitor + merge over a tiny in-memory crate, the way
// the pipeline would, without touching the filesystem.
func buildCrate(t *testing.T, files map[string]string, rootFile string, modulePaths map[string][]string) *graph.ParsedCodeGraph {
	t.Helper()
	v := visitor.New(uuid.NewSHA1(uuid.Nil, []byte("demo")), nil)
	var frags []*graph.ParsedCodeGraph
	for path, src := range files {
		frag, err := v.AnalyzeFile(path, []byte(src), modulePaths[path])
		require.NoError(t, err)
		frags = append(frags, frag)
	}
	merged, _, err := merge.Merge(frags, nil)
	require.NoError(t, err)
	return merged
}

func TestBuild_ResolvesConventionalDeclaration(t *testing.T) {
	files := map[string]string{
		"src/lib.rs": "mod net;\n",
		"src/net.rs": "pub fn connect() {}\n",
	}
	paths := map[string][]string{
		"src/lib.rs": nil,
		"src/net.rs": {"net"},
	}
	g := buildCrate(t, files, "src/lib.rs", paths)

	tree, warnings, err := Build(g, "demo", nil)
	require.NoError(t, err)
	require.Empty(t, warnings)

	var fn *graph.Function
	for i := range g.Functions {
		if g.Functions[i].Name == "connect" {
			fn = &g.Functions[i]
		}
	}
	require.NotNil(t, fn)
	require.True(t, tree.Reachable[fn.ID])
	require.Equal(t, []string{"demo", "net", "connect"}, tree.CanonicalPaths[fn.ID])
}

func TestBuild_OrphanFileWarning(t *testing.T) {
	files := map[string]string{
		"src/lib.rs":     "fn main_fn() {}\n",
		"src/unused.rs": "pub fn dead() {}\n",
	}
	paths := map[string][]string{
		"src/lib.rs":     nil,
		"src/unused.rs": {"unused"},
	}
	g := buildCrate(t, files, "src/lib.rs", paths)

	_, warnings, err := Build(g, "demo", nil)
	require.NoError(t, err)

	var sawOrphan bool
	for _, w := range warnings {
		if w.Kind == "OrphanFile" {
			sawOrphan = true
		}
	}
	require.True(t, sawOrphan, "a file never reached by any mod declaration must warn OrphanFile")
}

func TestBuild_UnresolvedModuleWarning(t *testing.T) {
	files := map[string]string{
		"src/lib.rs": "mod missing;\n",
	}
	paths := map[string][]string{"src/lib.rs": nil}
	g := buildCrate(t, files, "src/lib.rs", paths)

	_, warnings, err := Build(g, "demo", nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, "UnresolvedModule", warnings[0].Kind)
}

func TestPrune_RemovesOrphanedItems(t *testing.T) {
	files := map[string]string{
		"src/lib.rs":     "fn main_fn() {}\n",
		"src/unused.rs": "pub fn dead() {}\n",
	}
	paths := map[string][]string{
		"src/lib.rs":     nil,
		"src/unused.rs": {"unused"},
	}
	g := buildCrate(t, files, "src/lib.rs", paths)

	tree, _, err := Build(g, "demo", nil)
	require.NoError(t, err)

	pruned := tree.Prune(g)
	var names []string
	for _, f := range pruned.Functions {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "main_fn")
	require.NotContains(t, names, "dead")
}

func TestBuild_EmitsResolvesToDefinitionForConventionalDeclaration(t *testing.T) {
	files := map[string]string{
		"src/lib.rs": "mod net;\n",
		"src/net.rs": "pub fn connect() {}\n",
	}
	paths := map[string][]string{
		"src/lib.rs": nil,
		"src/net.rs": {"net"},
	}
	g := buildCrate(t, files, "src/lib.rs", paths)

	_, warnings, err := Build(g, "demo", nil)
	require.NoError(t, err)
	require.Empty(t, warnings)

	var decl, defining *graph.Module
	for i := range g.Modules {
		m := &g.Modules[i]
		switch {
		case m.Origin == graph.ModuleDeclaration && m.Name == "net":
			decl = m
		case m.Origin == graph.ModuleFileBased && m.Name == "net":
			defining = m
		}
	}
	require.NotNil(t, decl)
	require.NotNil(t, defining)

	var sawResolves bool
	for _, r := range g.Relations {
		if r.Kind == graph.ResolvesToDefinition && r.From == decl.ID && r.To == defining.ID {
			sawResolves = true
		}
	}
	require.True(t, sawResolves, "a resolved `mod foo;` declaration must record ResolvesToDefinition(decl, defining)")
}

func TestBuild_EmitsCustomPathForPathOverride(t *testing.T) {
	files := map[string]string{
		"src/lib.rs": "#[path = \"bar.rs\"]\nmod foo;\n",
		"src/bar.rs": "pub fn q() {}\n",
	}
	paths := map[string][]string{
		"src/lib.rs": nil,
		"src/bar.rs": {"bar"},
	}
	g := buildCrate(t, files, "src/lib.rs", paths)

	tree, warnings, err := Build(g, "demo", nil)
	require.NoError(t, err)
	require.Empty(t, warnings)

	var decl, defining *graph.Module
	for i := range g.Modules {
		m := &g.Modules[i]
		switch m.Origin {
		case graph.ModuleDeclaration:
			decl = m
		case graph.ModuleFileBased:
			if m.File == "src/bar.rs" {
				defining = m
			}
		}
	}
	require.NotNil(t, decl)
	require.NotNil(t, defining)
	require.Equal(t, "bar.rs", decl.PathAttr)

	var sawResolves, sawCustom bool
	for _, r := range g.Relations {
		if r.Kind == graph.ResolvesToDefinition && r.From == decl.ID && r.To == defining.ID {
			sawResolves = true
		}
		if r.Kind == graph.CustomPath && r.From == decl.ID && r.To == defining.ID {
			sawCustom = true
		}
	}
	require.True(t, sawResolves)
	require.True(t, sawCustom, "a #[path=...] override must also record CustomPath(decl, defining)")

	var fn *graph.Function
	for i := range g.Functions {
		if g.Functions[i].Name == "q" {
			fn = &g.Functions[i]
		}
	}
	require.NotNil(t, fn)
	require.Equal(t, []string{"demo", "foo", "q"}, tree.CanonicalPaths[fn.ID])
}

func TestBuild_CycleDetected(t *testing.T) {
	// Two files, each declaring the other as a submodule: their canonical
	// paths would need to resolve through one another forever. This can't
	// literally happen with Rust's path-segment convention (a's declared
	// submodule "b" can't itself contain a declaration named "a" that
	// resolves back to "a.rs" at the crate root under normal resolution),
	// so this test constructs the condition directly against the
	// resolver's internals via two nested declarations that graft back to
	// an ancestor's own defining id.
	root := &graph.Module{ItemCommon: graph.ItemCommon{ID: nid("root"), Kind: graph.KindModule, Name: "", File: "src/lib.rs"}, Origin: graph.ModuleFileBased, IsCrateRoot: true}
	declA := &graph.Module{ItemCommon: graph.ItemCommon{ID: nid("declA"), Kind: graph.KindModule, Name: "a", File: "src/lib.rs"}, Origin: graph.ModuleDeclaration}
	fileA := &graph.Module{ItemCommon: graph.ItemCommon{ID: nid("fileA"), Kind: graph.KindModule, Name: "a", ModulePath: nil, File: "src/a.rs"}, Origin: graph.ModuleFileBased}
	declBack := &graph.Module{ItemCommon: graph.ItemCommon{ID: nid("declBack"), Kind: graph.KindModule, Name: "back", File: "src/a.rs", ModulePath: []string{"a"}}, Origin: graph.ModuleDeclaration}

	declA.DefiningID = fileA.ID
	declBack.DefiningID = root.ID // points back at the root: a cycle

	g := &graph.ParsedCodeGraph{
		Modules: []graph.Module{*root, *declA, *fileA, *declBack},
		Relations: []graph.Relation{
			{Kind: graph.Contains, From: root.ID, To: declA.ID},
			{Kind: graph.Contains, From: fileA.ID, To: declBack.ID},
		},
	}

	_, _, err := Build(g, "demo", nil)
	require.Error(t, err)
}
