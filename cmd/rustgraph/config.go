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

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/rustgraph/pkg/graphconfig"
)

// fileConfig is the on-disk shape of rustgraph.yaml, a thin overlay over
// graphconfig.Config for anything a user wants to pin outside of flags.
type fileConfig struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes,omitempty"`
	ExcludeGlobs     []string `yaml:"exclude,omitempty"`
	ParseWorkers     int      `yaml:"parse_workers,omitempty"`
}

// loadFileConfig reads path if it exists and overlays it onto base. A
// missing file is not an error — flags and defaults are enough on their
// own.
func loadFileConfig(path string, base graphconfig.Config) (graphconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("rustgraph: reading config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("rustgraph: parsing config %s: %w", path, err)
	}

	if fc.MaxFileSizeBytes > 0 {
		base.MaxFileSizeBytes = fc.MaxFileSizeBytes
	}
	if len(fc.ExcludeGlobs) > 0 {
		base.ExcludeGlobs = fc.ExcludeGlobs
	}
	if fc.ParseWorkers > 0 {
		base.Concurrency.ParseWorkers = fc.ParseWorkers
	}
	return base, nil
}
