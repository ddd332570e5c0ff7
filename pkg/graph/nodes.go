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

package graph

// ItemCommon is embedded by every item node. It carries the fields every
// node kind shares: identity, source location, declared name, and the raw
// predicates of the #[cfg(...)] attributes written on the item itself (used
// for canonical identity and for later cfg-aware queries, never evaluated
// against a target). Predicates inherited from enclosing scopes are mixed
// into the synthetic id but are not repeated here.
type ItemCommon struct {
	ID         NodeID
	Kind       ItemKind
	Name       string
	File       string
	Span       Span
	Visibility Visibility
	CfgStrings []string // raw predicate text, e.g. "unix", "feature = \"x\""
	ModulePath []string // declaring module path segments, root-first
}

// Module is a module item: either file-based, inline, or an
// as-yet-unresolved declaration.
type Module struct {
	ItemCommon
	Origin      ModuleOrigin
	PathAttr    string // explicit #[path = "..."] override, if any
	DefiningID  NodeID // set once resolved to a defining file/inline body
	IsCrateRoot bool
}

// Function is a free function, associated function, method, or closure-free
// fn item. Parameters and return are recorded as relations
// (FunctionParameter / FunctionReturn) to TypeRef nodes, not inline, so
// that identical type shapes can be shared by identity.
type Function struct {
	ItemCommon
	IsUnsafe   bool
	IsAsync    bool
	Generics   []string // raw generic parameter names, declaration order
	ReceiverID NodeID   // enclosing Impl item for a method in an impl block; zero for a free function and for a function in a trait body
}

// Struct is a struct item. Kind of struct (named-field / tuple / unit) is
// recorded so queries can distinguish `struct S(u32)` from `struct S{f:u32}`.
type Struct struct {
	ItemCommon
	Generics []string
	Tuple    bool
	Unit     bool
}

// Enum is an enum item; its variants are separate Variant nodes connected
// by EnumVariant relations, in declaration order.
type Enum struct {
	ItemCommon
	Generics []string
}

// Variant is one arm of an Enum.
type Variant struct {
	ItemCommon
	Tuple        bool
	Unit         bool
	Discriminant string // raw source text of "= N", empty if none
}

// Union is a union item (field shape identical to a named-field struct).
type Union struct {
	ItemCommon
	Generics []string
}

// Trait is a trait item. SuperTraits are syntactic TypeRefs recorded via
// the Uses relation, not resolved.
type Trait struct {
	ItemCommon
	Generics []string
	IsUnsafe bool
}

// Impl is `impl [Trait for] Type { ... }`. SelfType is always set;
// TraitType is the zero TypeRef for an inherent impl. Duplicate Impl nodes
// of identical shape are tolerated (not deduplicated) because Rust permits
// multiple impl blocks for the same type.
type Impl struct {
	ItemCommon
	Generics  []string
	SelfType  NodeID // TypeRef id
	TraitType NodeID // TypeRef id; zero for inherent impls
	IsNegative bool  // `impl !Trait for T {}`
}

// TypeAlias is `type Name = Type;` or an associated type in a trait/impl.
type TypeAlias struct {
	ItemCommon
	Generics []string
	Aliased  NodeID // TypeRef id; zero for an unbound associated-type decl
}

// Const is a `const NAME: T = expr;` item.
type Const struct {
	ItemCommon
	TypeRef NodeID
}

// Static is a `static NAME: T = expr;` item.
type Static struct {
	ItemCommon
	TypeRef  NodeID
	IsMut    bool
}

// Macro is a `macro_rules! name { ... }` definition. Invocation sites are
// not modeled; macro expansion is out of scope.
type Macro struct {
	ItemCommon
}

// Import is one `use` tree leaf or an `extern crate` declaration. Its
// identity is computed from the *original* imported path, never the local
// alias, so `use a::b;` and `use a::b as _;` in the same module collapse
// to a single node (the alias-collapse invariant).
type Import struct {
	ItemCommon
	Path        []string // the imported path, as written, root-first
	Alias       string    // local binding name; equals last Path segment if unaliased
	IsGlob      bool      // `use a::b::*;`
	IsExternCrate bool
}

// Field is a named or positional (tuple-index) struct/union field.
type Field struct {
	ItemCommon
	TypeRef NodeID
	Index   int // positional index for tuple structs/variants; -1 for named
}
