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

// Package discovery is Phase 1: single-threaded, reads the crate manifest,
// enumerates source files, and applies size/exclude filtering. Nothing
// here runs concurrently; determinism of the file list other phases rely
// on comes entirely from this package sorting it once.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/kraklabs/rustgraph/pkg/graphconfig"
)

// Manifest is the subset of Cargo.toml this module reads. Everything else
// in a real Cargo.toml (dependencies, features, profiles) is irrelevant to
// the code graph and is not parsed.
type Manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// LoadManifest reads and parses Cargo.toml from crateRoot.
func LoadManifest(crateRoot string) (Manifest, error) {
	path := filepath.Join(crateRoot, "Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("discovery: reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("discovery: parsing manifest %s: %w", path, err)
	}
	if m.Package.Name == "" {
		return Manifest{}, fmt.Errorf("discovery: manifest %s has no [package] name", path)
	}
	if m.Package.Version == "" {
		m.Package.Version = "0.0.0"
	}
	return m, nil
}

// RootFile returns the crate's root module file, preferring src/lib.rs (a
// library crate) and falling back to src/main.rs (a binary crate) — the
// same precedence cargo and rustc apply.
func RootFile(crateRoot string) (string, error) {
	lib := filepath.Join(crateRoot, "src", "lib.rs")
	if _, err := os.Stat(lib); err == nil {
		return lib, nil
	}
	main := filepath.Join(crateRoot, "src", "main.rs")
	if _, err := os.Stat(main); err == nil {
		return main, nil
	}
	return "", fmt.Errorf("discovery: neither src/lib.rs nor src/main.rs found under %s", crateRoot)
}

// Result is Discovery's output: the sorted, filtered file list other
// phases consume, plus a tally of why anything was skipped.
type Result struct {
	RootPath    string
	RootFile    string
	ManifestName    string
	ManifestVersion string
	Files       []string // paths joined under RootPath (absolute when RootPath is), sorted
	SkipReasons map[string]int
}

// Discover runs Phase 1: load the manifest, find the root file, walk
// src/ collecting .rs files, apply ExcludeGlobs and MaxFileSizeBytes, and
// return the sorted result that Phase 2 fans out over.
//
// Sorting here — not at Merge time — is what makes Merge's fixed-order
// fold actually fixed: Phase 2 may finish files in any order, but it
// always starts from this same ordered list.
func Discover(cfg graphconfig.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	manifest, err := LoadManifest(cfg.CrateRoot)
	if err != nil {
		return nil, err
	}
	rootFile, err := RootFile(cfg.CrateRoot)
	if err != nil {
		return nil, err
	}

	logger.Info("discovery.start", "crate", manifest.Package.Name, "version", manifest.Package.Version, "root", cfg.CrateRoot)

	res := &Result{
		RootPath:        cfg.CrateRoot,
		RootFile:        rootFile,
		ManifestName:    manifest.Package.Name,
		ManifestVersion: manifest.Package.Version,
		SkipReasons:     map[string]int{},
	}

	srcDir := filepath.Join(cfg.CrateRoot, "src")
	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("discovery: walking %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(cfg.CrateRoot, path)
		if relErr != nil {
			rel = path
		}
		if info.IsDir() {
			if excluded(rel, cfg.ExcludeGlobs) {
				res.SkipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".rs" {
			return nil
		}
		if excluded(rel, cfg.ExcludeGlobs) {
			res.SkipReasons["excluded_file"]++
			return nil
		}
		if cfg.MaxFileSizeBytes > 0 && info.Size() > cfg.MaxFileSizeBytes {
			logger.Warn("discovery.file_too_large", "path", path, "size", info.Size(), "limit", cfg.MaxFileSizeBytes)
			res.SkipReasons["too_large"]++
			return nil
		}
		res.Files = append(res.Files, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(res.Files)

	logger.Info("discovery.complete", "files", len(res.Files), "skipped", sumSkips(res.SkipReasons))
	return res, nil
}

// excluded reports whether rel matches any of globs. Each glob may contain
// "**" meaning "any number of path segments"; this is implemented directly
// rather than via a third-party doublestar matcher because no example repo
// in this corpus imports one — path/filepath.Match covers the single-"*"
// case and "**" is handled by splitting on it and matching prefix/suffix.
func excluded(rel string, globs []string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range globs {
		if globMatch(rel, filepath.ToSlash(g)) {
			return true
		}
	}
	return false
}

func globMatch(path, pattern string) bool {
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := strings.TrimPrefix(parts[1], "/")
		if prefix != "" && !strings.HasPrefix(path, prefix) {
			return false
		}
		if suffix == "" {
			return true
		}
		rest := strings.TrimPrefix(path, prefix)
		rest = strings.TrimPrefix(rest, "/")
		segs := strings.Split(rest, "/")
		for i := range segs {
			if globMatch(strings.Join(segs[i:], "/"), suffix) {
				return true
			}
		}
		return false
	}
	ok, _ := filepath.Match(pattern, path)
	if ok {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(pattern, "/*"))
}

func sumSkips(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// ConventionalModulePath derives the module path a file would occupy if
// reached purely by Rust's filesystem convention: the crate root file has
// no path segments of its own; "foo.rs" sibling
// to its parent is segment "foo"; "foo/mod.rs" is also segment "foo"; any
// deeper file is every intervening directory name plus the final segment.
// This is the presumptive path the module tree builder either confirms
// (a `mod foo;` declaration resolves to this file) or rejects (the file is
// pruned as an orphan) — it is never identity-affecting on its own, only
// once corroborated by a resolved declaration.
func ConventionalModulePath(rootFile, path string) []string {
	if path == rootFile {
		return nil
	}
	srcDir := filepath.Dir(rootFile)
	rel, err := filepath.Rel(srcDir, path)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, ".rs")
	segs := strings.Split(rel, "/")
	if len(segs) > 0 && segs[len(segs)-1] == "mod" {
		segs = segs[:len(segs)-1]
	}
	return segs
}
