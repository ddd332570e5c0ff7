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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractCfgPredicates pulls the raw predicate text out of a
// #[cfg(...)] attribute item. Attributes that are not cfg (derive,
// allow, doc, custom) contribute nothing; cfg_attr is intentionally not
// expanded (non-goal). The predicate is recorded verbatim, as written
// (e.g. "unix", "feature = \"x\"", "all(unix, feature = \"y\")"), never
// evaluated against a target triple.
func extractCfgPredicates(attrItem *sitter.Node, src []byte) []string {
	raw := string(src[attrItem.StartByte():attrItem.EndByte()])
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "#["), "]"))
	if !strings.HasPrefix(inner, "cfg(") || !strings.HasSuffix(inner, ")") {
		return nil
	}
	pred := strings.TrimSuffix(strings.TrimPrefix(inner, "cfg("), ")")
	pred = strings.TrimSpace(pred)
	if pred == "" {
		return nil
	}
	return []string{pred}
}

// extractPathAttr pulls the string literal out of a #[path = "..."]
// attribute item, if that's what it is.
func extractPathAttr(attrItem *sitter.Node, src []byte) (string, bool) {
	raw := string(src[attrItem.StartByte():attrItem.EndByte()])
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "#["), "]"))
	if !strings.HasPrefix(inner, "path") {
		return "", false
	}
	eq := strings.Index(inner, "=")
	if eq < 0 {
		return "", false
	}
	val := strings.TrimSpace(inner[eq+1:])
	val = strings.TrimPrefix(val, "\"")
	val = strings.TrimSuffix(val, "\"")
	if val == "" {
		return "", false
	}
	return val, true
}
