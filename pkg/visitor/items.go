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

package visitor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/rustgraph/pkg/graph"
)

func generics(node *sitter.Node, w *walker) []string {
	tp := node.ChildByFieldName("type_parameters")
	if tp == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(tp.ChildCount()); i++ {
		c := tp.Child(i)
		if c.Type() == "type_identifier" || c.Type() == "constrained_type_parameter" || c.Type() == "lifetime" {
			names = append(names, w.text(c))
		}
	}
	return names
}

// visitModItem handles both `mod foo { ... }` (inline) and `mod foo;`
// (a declaration the module tree builder must resolve to a defining
// file). #[path = "..."] is recorded verbatim for the tree builder.
func (w *walker) visitModItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindModule, name)

	body := node.ChildByFieldName("body")
	m := graph.Module{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindModule, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		PathAttr: pathAttrOf(node, w),
	}
	if body != nil {
		m.Origin = graph.ModuleInline
	} else {
		m.Origin = graph.ModuleDeclaration
	}
	w.frag.Modules = append(w.frag.Modules, m)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Modules))

	if body != nil {
		w.pushScope(id)
		w.pushMod(name)
		w.walkChildren(body)
		w.popMod()
		w.popScope()
	}
}

// pathAttrOf re-scans the node's preceding attribute siblings for
// #[path = "..."]. walkChildren's attribute accumulation only forwards cfg
// predicates to the caller, so #[path] (which never carries one) has to be
// looked up separately, directly off the raw attribute text.
func pathAttrOf(node *sitter.Node, w *walker) string {
	prev := node.PrevSibling()
	for prev != nil {
		if prev.Type() == "attribute_item" {
			if p, ok := extractPathAttr(prev, w.src); ok {
				return p
			}
		} else if prev.Type() != "line_comment" && prev.Type() != "block_comment" {
			break
		}
		prev = prev.PrevSibling()
	}
	return ""
}

func (w *walker) visitFunctionItem(node *sitter.Node, cfgs []string, vis graph.Visibility, receiver graph.NodeID) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindFunction, name)

	fn := graph.Function{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindFunction, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		IsUnsafe:   hasModifierKeyword(node, "unsafe"),
		IsAsync:    hasModifierKeyword(node, "async"),
		Generics:   generics(node, w),
		ReceiverID: receiver,
	}
	w.frag.Functions = append(w.frag.Functions, fn)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Functions))

	if params := node.ChildByFieldName("parameters"); params != nil {
		ordinal := 0
		for i := 0; i < int(params.ChildCount()); i++ {
			p := params.Child(i)
			if p.Type() != "parameter" && p.Type() != "self_parameter" {
				continue
			}
			var typeNode *sitter.Node
			if p.Type() == "self_parameter" {
				typeNode = p
			} else {
				typeNode = p.ChildByFieldName("type")
			}
			if typeNode == nil {
				continue
			}
			ref := w.typeRef(id, typeNode)
			w.addRelation(graph.FunctionParameter, id, ref, ordinal)
			ordinal++
		}
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		ref := w.typeRef(id, ret)
		w.addRelation(graph.FunctionReturn, id, ref, 0)
	}
}

func hasModifierKeyword(node *sitter.Node, kw string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == kw {
			return true
		}
		if c.Type() == "function_modifiers" {
			for j := 0; j < int(c.ChildCount()); j++ {
				if c.Child(j).Type() == kw {
					return true
				}
			}
		}
	}
	return false
}

func (w *walker) visitStructItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindStruct, name)

	body := node.ChildByFieldName("body")
	tuple := body != nil && body.Type() == "ordered_field_declaration_list"
	unit := body == nil

	s := graph.Struct{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindStruct, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Generics: generics(node, w),
		Tuple:    tuple,
		Unit:     unit,
	}
	w.frag.Structs = append(w.frag.Structs, s)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Structs))

	if body != nil {
		w.visitFieldList(id, body)
	}
}

func (w *walker) visitUnionItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindUnion, name)

	u := graph.Union{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindUnion, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Generics: generics(node, w),
	}
	w.frag.Unions = append(w.frag.Unions, u)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Unions))

	if body := node.ChildByFieldName("body"); body != nil {
		w.visitFieldList(id, body)
	}
}

// visitFieldList handles both named-field ("field_declaration_list") and
// tuple ("ordered_field_declaration_list") field bodies, producing a Field
// node and a StructField relation per field, in declaration order.
func (w *walker) visitFieldList(owner graph.NodeID, body *sitter.Node) {
	idx := 0
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		switch c.Type() {
		case "field_declaration":
			nameNode := c.ChildByFieldName("name")
			typeNode := c.ChildByFieldName("type")
			if nameNode == nil || typeNode == nil {
				continue
			}
			fname := w.text(nameNode)
			fid := w.synthID(graph.KindField, fname)
			f := graph.Field{
				ItemCommon: graph.ItemCommon{
					ID: fid, Kind: graph.KindField, Name: fname, File: w.path,
					Span: w.span(c), ModulePath: append([]string(nil), w.modPath...),
				},
				TypeRef: w.typeRef(owner, typeNode),
				Index:   -1,
			}
			w.frag.Fields = append(w.frag.Fields, f)
			w.addRelation(graph.StructField, owner, fid, idx)
			idx++
		case "visibility_modifier":
			// Tuple-struct fields can carry their own `pub`; field
			// identity doesn't depend on visibility so nothing to do
			// beyond letting the loop continue to the type node.
		default:
			if isTypeNode(c.Type()) {
				// Positional (tuple-struct/tuple-variant) fields have no
				// name; the index stands in for it in identity context.
				fid := w.synthID(graph.KindField, positionalFieldName(idx))
				f := graph.Field{
					ItemCommon: graph.ItemCommon{
						ID: fid, Kind: graph.KindField, Name: "", File: w.path,
						Span: w.span(c), ModulePath: append([]string(nil), w.modPath...),
					},
					TypeRef: w.typeRef(owner, c),
					Index:   idx,
				}
				w.frag.Fields = append(w.frag.Fields, f)
				w.addRelation(graph.StructField, owner, fid, idx)
				idx++
			}
		}
	}
}

func positionalFieldName(idx int) string {
	digits := "0123456789"
	if idx < 10 {
		return "$" + string(digits[idx])
	}
	// Tuple structs with >=10 fields are rare; fall back to a simple
	// decimal rendering rather than pulling in strconv for one call site.
	var out []byte
	n := idx
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}
	return "$" + string(out)
}

func (w *walker) visitEnumItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindEnum, name)

	e := graph.Enum{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindEnum, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Generics: generics(node, w),
	}
	w.frag.Enums = append(w.frag.Enums, e)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Enums))

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	w.pushScope(id)
	ordinal := 0
	var pendingCfgs []string
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		if c.Type() == "attribute_item" {
			pendingCfgs = append(pendingCfgs, extractCfgPredicates(c, w.src)...)
			continue
		}
		if c.Type() != "enum_variant" {
			continue
		}
		w.visitEnumVariant(id, c, pendingCfgs, ordinal)
		pendingCfgs = nil
		ordinal++
	}
	w.popScope()
}

func (w *walker) visitEnumVariant(owner graph.NodeID, node *sitter.Node, cfgs []string, ordinal int) {
	w.pushCfg(cfgs)
	defer w.popCfg(len(cfgs))

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindVariant, name)

	vbody := node.ChildByFieldName("body")
	tuple := vbody != nil && vbody.Type() == "ordered_field_declaration_list"
	unit := vbody == nil

	discriminant := ""
	if val := node.ChildByFieldName("value"); val != nil {
		discriminant = "= " + w.text(val)
	}

	v := graph.Variant{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindVariant, Name: name, File: w.path,
			Span: w.span(node), CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Tuple:        tuple,
		Unit:         unit,
		Discriminant: discriminant,
	}
	w.frag.Variants = append(w.frag.Variants, v)
	w.addRelation(graph.EnumVariant, owner, id, ordinal)

	if vbody != nil {
		w.visitFieldList(id, vbody)
	}
}

func (w *walker) visitTraitItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindTrait, name)

	tr := graph.Trait{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindTrait, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Generics: generics(node, w),
		IsUnsafe: hasModifierKeyword(node, "unsafe"),
	}
	w.frag.Traits = append(w.frag.Traits, tr)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Traits))

	if bounds := node.ChildByFieldName("bounds"); bounds != nil {
		for i := 0; i < int(bounds.ChildCount()); i++ {
			c := bounds.Child(i)
			if isTypeNode(c.Type()) {
				ref := w.typeRef(id, c)
				w.addRelation(graph.Uses, id, ref, i)
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		w.pushScope(id)
		w.walkChildren(body)
		w.popScope()
	}
}

func (w *walker) visitImplItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	selfNode := node.ChildByFieldName("type")
	if selfNode == nil {
		return
	}
	traitNode := node.ChildByFieldName("trait")

	// Impls have no declared name; identity is scoped by self/trait text so
	// distinct impl blocks for the same type are tolerated as duplicates
	// (the documented Impl exception), not collapsed.
	discriminant := w.text(selfNode)
	if traitNode != nil {
		discriminant = w.text(traitNode) + " for " + discriminant
	}
	id := w.synthID(graph.KindImpl, discriminant)

	isNegative := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "!" {
			isNegative = true
			break
		}
	}

	im := graph.Impl{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindImpl, Name: discriminant, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Generics:   generics(node, w),
		IsNegative: isNegative,
	}
	im.SelfType = w.typeRef(id, selfNode)
	if traitNode != nil {
		im.TraitType = w.typeRef(id, traitNode)
	}
	w.frag.Impls = append(w.frag.Impls, im)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Impls))

	w.addRelation(graph.ImplementsFor, id, im.SelfType, 0)
	if traitNode != nil {
		w.addRelation(graph.ImplementsTrait, id, im.TraitType, 0)
	} else {
		w.addRelation(graph.InherentImpl, id, im.SelfType, 0)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		w.pushScope(id)
		// Methods inside an impl are functions whose receiver is this impl.
		var pendingCfgs []string
		var pendingVis graph.Visibility
		for i := 0; i < int(body.ChildCount()); i++ {
			c := body.Child(i)
			switch c.Type() {
			case "attribute_item":
				pendingCfgs = append(pendingCfgs, extractCfgPredicates(c, w.src)...)
				continue
			case "visibility_modifier":
				pendingVis = graph.Visibility(w.text(c))
				continue
			}
			w.pushCfg(pendingCfgs)
			if c.Type() == "function_item" {
				w.visitFunctionItem(c, pendingCfgs, pendingVis, id)
			} else {
				w.visitItem(c, pendingCfgs, pendingVis)
			}
			w.popCfg(len(pendingCfgs))
			pendingCfgs = nil
			pendingVis = ""
		}
		w.popScope()
	}
}

func (w *walker) visitTypeAliasItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindTypeAlias, name)

	ta := graph.TypeAlias{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindTypeAlias, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		Generics: generics(node, w),
	}
	if val := node.ChildByFieldName("type"); val != nil {
		ta.Aliased = w.typeRef(id, val)
	}
	w.frag.TypeAliases = append(w.frag.TypeAliases, ta)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.TypeAliases))
}

func (w *walker) visitConstItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindConst, name)

	c := graph.Const{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindConst, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
	}
	if t := node.ChildByFieldName("type"); t != nil {
		c.TypeRef = w.typeRef(id, t)
	}
	w.frag.Consts = append(w.frag.Consts, c)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Consts))
	if !c.TypeRef.Nil() {
		w.addRelation(graph.ValueType, id, c.TypeRef, 0)
	}
}

func (w *walker) visitStaticItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindStatic, name)

	isMut := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "mutable_specifier" {
			isMut = true
			break
		}
	}

	s := graph.Static{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindStatic, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
		IsMut: isMut,
	}
	if t := node.ChildByFieldName("type"); t != nil {
		s.TypeRef = w.typeRef(id, t)
	}
	w.frag.Statics = append(w.frag.Statics, s)
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Statics))
	if !s.TypeRef.Nil() {
		w.addRelation(graph.ValueType, id, s.TypeRef, 0)
	}
}

func (w *walker) visitMacroItem(node *sitter.Node, cfgs []string, vis graph.Visibility) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	id := w.synthID(graph.KindMacro, name)

	w.frag.Macros = append(w.frag.Macros, graph.Macro{
		ItemCommon: graph.ItemCommon{
			ID: id, Kind: graph.KindMacro, Name: name, File: w.path,
			Span: w.span(node), Visibility: vis, CfgStrings: cfgs,
			ModulePath: append([]string(nil), w.modPath...),
		},
	})
	w.addRelation(graph.Contains, w.parentScope(), id, len(w.frag.Macros))
}
