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

// Package graph holds the code graph's data model: typed item nodes, type
// references, directed relations, and the per-file fragment produced by
// the visitor.
package graph

import "github.com/google/uuid"

// NodeID is a deterministic, content-addressed identifier. Two NodeIDs
// compare equal only when derived from identical (crate namespace, scope,
// kind, name, cfg) context; see pkg/identity.
type NodeID uuid.UUID

// Nil reports whether the id was never assigned.
func (id NodeID) Nil() bool { return id == NodeID{} }

func (id NodeID) String() string { return uuid.UUID(id).String() }

// MarshalText renders the id in its canonical UUID string form, so NodeIDs
// encode as JSON strings and can key JSON objects.
func (id NodeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// ItemKind discriminates the tagged sum of item node kinds. It is mixed
// into identity derivation so that two items sharing every other context
// byte but differing in kind never collide.
type ItemKind byte

const (
	KindModule ItemKind = iota + 1
	KindFunction
	KindStruct
	KindEnum
	KindUnion
	KindTrait
	KindImpl
	KindTypeAlias
	KindConst
	KindStatic
	KindMacro
	KindImport
	KindField
	KindVariant
)

func (k ItemKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	case KindTrait:
		return "trait"
	case KindImpl:
		return "impl"
	case KindTypeAlias:
		return "type_alias"
	case KindConst:
		return "const"
	case KindStatic:
		return "static"
	case KindMacro:
		return "macro"
	case KindImport:
		return "import"
	case KindField:
		return "field"
	case KindVariant:
		return "variant"
	default:
		return "unknown"
	}
}

// ModuleOrigin discriminates how a Module item node came to exist.
type ModuleOrigin byte

const (
	// ModuleFileBased is a module defined by a separate source file
	// (either a sibling "foo.rs" or a "foo/mod.rs").
	ModuleFileBased ModuleOrigin = iota + 1
	// ModuleInline is "mod foo { ... }" with a body in the same file.
	ModuleInline
	// ModuleDeclaration is "mod foo;" with no body in the declaring file.
	// The module tree builder keeps these nodes and, on resolution, sets
	// their DefiningID to the defining file-based module (or leaves it
	// zero, with an UnresolvedModule warning, if no defining file was found).
	ModuleDeclaration
)

// Span is a 1-indexed, inclusive source location, matching the convention
// editors and diagnostics use.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Visibility is the syntactic visibility annotation on an item, recorded
// verbatim (e.g. "pub", "pub(crate)", "pub(super)", "pub(in crate::foo)",
// "" for private). No semantic visibility checking is performed.
type Visibility string

const (
	VisPrivate Visibility = ""
	VisPublic  Visibility = "pub"
)
