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

// Package graphconfig holds the configuration the pipeline accepts. It is
// the full extent of configuration plumbing the core owns; loading it from
// a file or flags is a surrounding-tooling concern (cmd/rustgraph does
// both, via yaml.v3 and pflag respectively).
package graphconfig

// Config controls discovery, parsing, and the worker pool.
type Config struct {
	// CrateRoot is the directory containing the crate's Cargo.toml.
	CrateRoot string

	// MaxFileSizeBytes is the largest .rs file Discovery will hand to the
	// visitor; larger files are skipped with a warning.
	MaxFileSizeBytes int64

	// ExcludeGlobs are glob patterns (relative to CrateRoot) Discovery
	// never walks into or enumerates.
	ExcludeGlobs []string

	// Concurrency controls the Phase 2 worker pool.
	Concurrency ConcurrencyConfig
}

// ConcurrencyConfig controls the Phase 2 worker pool size.
type ConcurrencyConfig struct {
	// ParseWorkers is the number of goroutines visiting files in parallel.
	// Zero or negative means the pipeline picks runtime.NumCPU().
	ParseWorkers int
}

// DefaultConfig returns a Config with sensible defaults: a conservative
// file-size cap, a worker count tuned for a parse-bound workload, and
// exclude globs for the directories a Cargo workspace never wants walked.
func DefaultConfig() Config {
	return Config{
		MaxFileSizeBytes: 1048576, // 1MB
		ExcludeGlobs: []string{
			".git/**",
			"target/**",
			"**/target/**",
			".cargo/**",
			"*.rs.bk",
		},
		Concurrency: ConcurrencyConfig{ParseWorkers: 4},
	}
}
