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

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

func TestSynthID_Deterministic(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	ctx := Context{FilePath: "src/lib.rs", ModulePath: []string{"demo"}, Kind: graph.KindFunction, Name: "run"}

	id1 := SynthID(ns, ctx)
	id2 := SynthID(ns, ctx)

	require.Equal(t, id1, id2, "SynthID must be deterministic for identical context")
}

func TestSynthID_DifferentNames(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	base := Context{FilePath: "src/lib.rs", ModulePath: []string{"demo"}, Kind: graph.KindFunction}

	a := base
	a.Name = "run"
	b := base
	b.Name = "walk"

	require.NotEqual(t, SynthID(ns, a), SynthID(ns, b))
}

func TestSynthID_DifferentKindsSameName(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	base := Context{FilePath: "src/lib.rs", ModulePath: []string{"demo"}, Name: "Point"}

	structCtx := base
	structCtx.Kind = graph.KindStruct
	enumCtx := base
	enumCtx.Kind = graph.KindEnum

	require.NotEqual(t, SynthID(ns, structCtx), SynthID(ns, enumCtx),
		"a struct and an enum with the same name must not collide")
}

func TestSynthID_CfgDisambiguation(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	base := Context{FilePath: "src/lib.rs", ModulePath: []string{"demo"}, Kind: graph.KindFunction, Name: "f"}

	unix := base
	unix.CfgStack = []string{"unix"}
	windows := base
	windows.CfgStack = []string{"windows"}
	noCfg := base

	ids := map[graph.NodeID]bool{
		SynthID(ns, unix):    true,
		SynthID(ns, windows): true,
		SynthID(ns, noCfg):   true,
	}
	require.Len(t, ids, 3, "cfg(unix), cfg(windows), and no-cfg variants of the same fn must all differ")
}

func TestSynthID_DifferentFiles(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	a := Context{FilePath: "src/a.rs", ModulePath: []string{"demo", "a"}, Kind: graph.KindStruct, Name: "S"}
	b := Context{FilePath: "src/b.rs", ModulePath: []string{"demo", "a"}, Kind: graph.KindStruct, Name: "S"}

	require.NotEqual(t, SynthID(ns, a), SynthID(ns, b))
}

func TestCanonicalID_StableAcrossFileReorganization(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	path := []string{"demo", "net", "Connection"}

	before := CanonicalID(ns, path, graph.KindStruct, nil) // declared in src/net.rs
	after := CanonicalID(ns, path, graph.KindStruct, nil)  // moved to src/net/mod.rs

	require.Equal(t, before, after,
		"canonical id must not depend on the declaring file, only the canonical path, kind, and cfg")
}

func TestCanonicalID_DifferentPaths(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")

	a := CanonicalID(ns, []string{"demo", "a", "Thing"}, graph.KindStruct, nil)
	b := CanonicalID(ns, []string{"demo", "b", "Thing"}, graph.KindStruct, nil)

	require.NotEqual(t, a, b)
}

func TestCanonicalID_CfgDisambiguatesSamePathAndKind(t *testing.T) {
	ns := CrateNamespace("demo", "0.1.0")
	path := []string{"demo", "f"}

	unix := CanonicalID(ns, path, graph.KindFunction, []string{"unix"})
	windows := CanonicalID(ns, path, graph.KindFunction, []string{"windows"})
	noCfg := CanonicalID(ns, path, graph.KindFunction, nil)

	ids := map[graph.NodeID]bool{unix: true, windows: true, noCfg: true}
	require.Len(t, ids, 3,
		"#[cfg(unix)] fn f() and #[cfg(windows)] fn f() sharing a canonical path must still get distinct canonical ids")
}

func TestCrateNamespace_DifferentVersionsDiffer(t *testing.T) {
	a := CrateNamespace("demo", "0.1.0")
	b := CrateNamespace("demo", "0.2.0")

	require.NotEqual(t, a, b)
}

func TestCfgDigest_OrderIndependent(t *testing.T) {
	a := CfgDigest([]string{"unix", "feature = \"x\""})
	b := CfgDigest([]string{"feature = \"x\"", "unix"})

	require.Equal(t, a, b)
}

func TestCfgDigest_EmptyIsEmptyString(t *testing.T) {
	require.Equal(t, "", CfgDigest(nil))
	require.Equal(t, "", CfgDigest([]string{}))
}

func TestMap_CanonicalizeFallsBackToSynthetic(t *testing.T) {
	m := Map{}
	var synth graph.NodeID
	synth = graph.NodeID(CrateNamespace("x", "1")) // any stand-in id

	require.Equal(t, synth, m.Canonicalize(synth), "an id absent from the map must round-trip unchanged")
}
