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

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rustgraph/pkg/graphconfig"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRun_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"demo\"\nversion = \"0.1.0\"\n")
	writeFile(t, filepath.Join(root, "src", "lib.rs"), "mod net;\n\npub fn top() {}\n")
	writeFile(t, filepath.Join(root, "src", "net.rs"), "pub struct Conn { pub addr: String }\n\nimpl Conn {\n    pub fn open() -> Conn { todo!() }\n}\n")

	cfg := graphconfig.DefaultConfig()
	cfg.CrateRoot = root

	var progressed []int64
	res, err := Run(context.Background(), Options{
		Config: cfg,
		OnProgress: func(current, total int64, phase string) {
			progressed = append(progressed, current)
		},
	})
	require.NoError(t, err)
	require.Equal(t, "demo", res.CrateName)
	require.Equal(t, 2, res.FilesParsed)
	require.Zero(t, res.ParseErrors)
	require.Zero(t, res.TreeWarnings)

	var names []string
	for _, fn := range res.Graph.Functions {
		names = append(names, fn.Name)
	}
	require.Contains(t, names, "top")
	require.Contains(t, names, "open")

	var conn *string
	for _, s := range res.Graph.Structs {
		if s.Name == "Conn" {
			name := s.Name
			conn = &name
		}
	}
	require.NotNil(t, conn)
	require.NotEmpty(t, progressed)
}

func TestRun_MissingManifestFails(t *testing.T) {
	root := t.TempDir()
	cfg := graphconfig.DefaultConfig()
	cfg.CrateRoot = root

	_, err := Run(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}

func TestRun_SmallCrateUsesSequentialPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"tiny\"\nversion = \"0.1.0\"\n")
	writeFile(t, filepath.Join(root, "src", "main.rs"), "fn main() {}\n")

	cfg := graphconfig.DefaultConfig()
	cfg.CrateRoot = root
	cfg.Concurrency.ParseWorkers = 8 // more workers than files, exercising the len<10 fallback

	res, err := Run(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	require.Equal(t, 1, res.FilesParsed)
}
