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

// Package identity derives the deterministic, content-addressed node IDs
// the rest of the pipeline relies on. Every ID is a namespaced v5 UUID:
// the same (namespace, context bytes) always produces the same ID, and
// different context bytes produce, with overwhelming probability,
// different IDs. Nothing here is randomized and nothing here touches the
// wall clock.
package identity

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

// projectNamespace roots every UUID this module ever produces. It is
// itself a v5 UUID derived from a fixed string, the same way
// inspector/graph.Hash in the reference pack derives a fixed highwayhash
// key: a constant seed, not a random one, so the namespace is stable
// across builds and machines.
var projectNamespace = uuid.NewSHA1(uuid.Nil, []byte("rustgraph"))

// sep is the sentinel joining context segments before hashing. 0x1F (ASCII
// Unit Separator) cannot appear in any of the strings being joined (paths,
// identifiers, cfg predicates), so it cannot introduce an accidental
// collision between e.g. ["a", "bc"] and ["ab", "c"].
const sep = "\x1f"

// CrateNamespace derives the namespace every node ID in one crate is
// rooted under, from the crate's name and version. Two crates of the same
// name but different versions never share a namespace.
func CrateNamespace(crateName, crateVersion string) uuid.UUID {
	return uuid.NewSHA1(projectNamespace, []byte(crateName+sep+crateVersion))
}

// CfgDigest returns the deterministic digest of a set of raw cfg predicate
// strings: sorted, deduplicated, then sentinel-joined. An empty or nil set
// returns "", which is deliberately distinguishable from any non-empty
// digest becoming "" by never empty-string-joining zero elements into one.
func CfgDigest(cfgs []string) string {
	if len(cfgs) == 0 {
		return ""
	}
	sorted := append([]string(nil), cfgs...)
	sort.Strings(sorted)
	dedup := sorted[:0:0]
	var last string
	for i, s := range sorted {
		if i == 0 || s != last {
			dedup = append(dedup, s)
			last = s
		}
	}
	return strings.Join(dedup, sep)
}

// Context is the full set of inputs mixed into a synthetic item ID, in the
// fixed order this type's fields are declared in: crate namespace is
// supplied separately to SynthID, then FilePath, then ModulePath segments,
// then ParentScope, then Kind, then Name, then the cfg digest of CfgStack.
type Context struct {
	FilePath    string
	ModulePath  []string
	ParentScope graph.NodeID // zero value if no lexical parent (crate root)
	Kind        graph.ItemKind
	Name        string
	CfgStack    []string // all cfg predicates inherited down to this point
}

// contextBytes renders a Context into the fixed-order byte sequence that
// SynthID hashes. Every segment is sentinel-terminated so that, for
// instance, ModulePath=["ab"], Name="c" can never collide with
// ModulePath=["a"], Name="bc".
func contextBytes(crateNS uuid.UUID, ctx Context) []byte {
	var b strings.Builder
	b.WriteString(crateNS.String())
	b.WriteString(sep)
	b.WriteString(ctx.FilePath)
	b.WriteString(sep)
	b.WriteString(strings.Join(ctx.ModulePath, "::"))
	b.WriteString(sep)
	b.WriteString(ctx.ParentScope.String())
	b.WriteString(sep)
	b.WriteByte(byte(ctx.Kind))
	b.WriteString(sep)
	b.WriteString(ctx.Name)
	b.WriteString(sep)
	b.WriteString(CfgDigest(ctx.CfgStack))
	return []byte(b.String())
}

// SynthID derives a Phase-2 synthetic node ID from syntactic context. Two
// items that differ only in an inherited cfg predicate get different IDs
// (cfg disambiguation); an item and its un-cfg'd twin in another file never
// collide because FilePath participates too.
func SynthID(crateNS uuid.UUID, ctx Context) graph.NodeID {
	return graph.NodeID(uuid.NewSHA1(crateNS, contextBytes(crateNS, ctx)))
}

// CanonicalID derives a Phase-3 canonical node ID from the item's resolved
// canonical module path, its kind, and the cfg string set passed in
// (canonical.Resolve passes the item's own CfgStrings) —
// never from its synthetic id and never from the file it happened to be
// declared in. This is what makes CanonicalID stable across file
// reorganizations that preserve the logical module path: moving `foo.rs`
// to `foo/mod.rs` without renaming the module changes SynthID (FilePath
// differs) but not CanonicalID. Mixing in the cfg digest the same way
// SynthID does means two items sharing a canonical path and kind but
// differing in cfg (e.g. `#[cfg(unix)] fn f()` vs. `#[cfg(windows)] fn
// f()` in the same module) still get distinct canonical ids.
func CanonicalID(crateNS uuid.UUID, canonicalPath []string, kind graph.ItemKind, cfgs []string) graph.NodeID {
	var b strings.Builder
	b.WriteString(crateNS.String())
	b.WriteString(sep)
	b.WriteString(strings.Join(canonicalPath, "::"))
	b.WriteString(sep)
	b.WriteByte(byte(kind))
	b.WriteString(sep)
	b.WriteString(CfgDigest(cfgs))
	return graph.NodeID(uuid.NewSHA1(crateNS, []byte(b.String())))
}

// TypeRefID derives the identity of a structural TypeRef, scoped to the
// declaring item's synthetic id so that `Vec<u32>` written in two different
// functions is two different TypeRef nodes, but written twice within the
// same function signature is one.
func TypeRefID(crateNS uuid.UUID, scope graph.NodeID, text string, argIDs []graph.NodeID) graph.NodeID {
	var b strings.Builder
	b.WriteString(scope.String())
	b.WriteString(sep)
	b.WriteString(text)
	for _, a := range argIDs {
		b.WriteString(sep)
		b.WriteString(a.String())
	}
	return graph.NodeID(uuid.NewSHA1(crateNS, []byte(b.String())))
}

// Map is the crate-wide table from synthetic ID to canonical ID, produced
// by Phase 3's canonical resolver and consulted by anything downstream
// that needs to compare identity across a reorganization.
type Map map[graph.NodeID]graph.NodeID

// Canonicalize looks up the canonical ID for a synthetic ID, returning the
// synthetic ID unchanged if it was pruned or never resolved (e.g. a
// TypeRef, which has no separate canonical identity).
func (m Map) Canonicalize(synth graph.NodeID) graph.NodeID {
	if canon, ok := m[synth]; ok {
		return canon
	}
	return synth
}
