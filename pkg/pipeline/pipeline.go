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

// Package pipeline wires the three phases together into the one entrypoint
// callers use: Discover, fan out the visitor across a worker pool, Merge,
// build and prune the module tree, then resolve canonical IDs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/rustgraph/pkg/canonical"
	"github.com/kraklabs/rustgraph/pkg/discovery"
	"github.com/kraklabs/rustgraph/pkg/graph"
	"github.com/kraklabs/rustgraph/pkg/graphconfig"
	"github.com/kraklabs/rustgraph/pkg/identity"
	"github.com/kraklabs/rustgraph/pkg/merge"
	"github.com/kraklabs/rustgraph/pkg/moduletree"
	"github.com/kraklabs/rustgraph/pkg/visitor"
)

// ProgressCallback reports progress during Run; current and total are
// 1-based file counts, reported once per file visited in Phase 2, and
// phase is always "parsing".
type ProgressCallback func(current, total int64, phase string)

// Result summarizes one pipeline run: the pruned, canonically-resolved
// graph plus per-phase timings and warning/error tallies.
type Result struct {
	Graph       *graph.ParsedCodeGraph
	Tree        *moduletree.Tree
	Canonical   identity.Map
	CrateName   string
	CrateNamespace string

	FilesDiscovered int
	FilesParsed     int
	ParseErrors     int
	MergeWarnings   int
	TreeWarnings    int

	DiscoverDuration time.Duration
	ParseDuration    time.Duration
	MergeDuration    time.Duration
	TreeDuration     time.Duration
	CanonicalDuration time.Duration
	TotalDuration    time.Duration
}

// Metrics are the Prometheus collectors Run updates as it executes. Callers
// register these once (typically with a single process-wide registry) and
// pass the same *Metrics into every Run call.
type Metrics struct {
	FilesParsed   prometheus.Counter
	ParseErrors   prometheus.Counter
	Warnings      *prometheus.CounterVec // label "phase": "merge" | "moduletree"
	PhaseDuration *prometheus.HistogramVec
}

// NewMetrics builds a Metrics set registered under the "rustgraph" namespace.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rustgraph", Name: "files_parsed_total",
			Help: "Number of Rust source files successfully parsed.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rustgraph", Name: "parse_errors_total",
			Help: "Number of Rust source files that failed to parse.",
		}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rustgraph", Name: "warnings_total",
			Help: "Recoverable warnings emitted, by phase.",
		}, []string{"phase"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rustgraph", Name: "phase_duration_seconds",
			Help:    "Wall-clock duration of each pipeline phase.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(m.FilesParsed, m.ParseErrors, m.Warnings, m.PhaseDuration)
	}
	return m
}

// Options configures one Run call.
type Options struct {
	Config     graphconfig.Config
	Logger     *slog.Logger
	Metrics    *Metrics
	OnProgress ProgressCallback
}

type fileFragment struct {
	index int
	frag  *graph.ParsedCodeGraph
	err   error
}

// Run executes the full pipeline: Discover -> parallel visitor -> Merge ->
// moduletree.Build -> Tree.Prune -> canonical.Resolve.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	start := time.Now()

	discStart := time.Now()
	disc, err := discovery.Discover(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: discover: %w", err)
	}
	discDuration := time.Since(discStart)
	observe(opts.Metrics, "discover", discDuration)

	crateNS := identity.CrateNamespace(disc.ManifestName, disc.ManifestVersion)
	v := visitor.New(crateNS, logger)

	parseStart := time.Now()
	frags, parseErrors := parseFilesParallel(ctx, v, disc, cfg.Concurrency.ParseWorkers, opts.OnProgress, logger)
	parseDuration := time.Since(parseStart)
	observe(opts.Metrics, "parse", parseDuration)
	if opts.Metrics != nil {
		opts.Metrics.FilesParsed.Add(float64(len(frags)))
		opts.Metrics.ParseErrors.Add(float64(parseErrors))
	}

	mergeStart := time.Now()
	merged, mergeWarnings, err := merge.Merge(frags, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: merge: %w", err)
	}
	mergeDuration := time.Since(mergeStart)
	observe(opts.Metrics, "merge", mergeDuration)
	if opts.Metrics != nil {
		opts.Metrics.Warnings.WithLabelValues("merge").Add(float64(len(mergeWarnings)))
	}

	treeStart := time.Now()
	tree, treeWarnings, err := moduletree.Build(merged, disc.ManifestName, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build module tree: %w", err)
	}
	pruned := tree.Prune(merged)
	treeDuration := time.Since(treeStart)
	observe(opts.Metrics, "moduletree", treeDuration)
	if opts.Metrics != nil {
		opts.Metrics.Warnings.WithLabelValues("moduletree").Add(float64(len(treeWarnings)))
	}

	canonStart := time.Now()
	canonMap := canonical.Resolve(tree, pruned, crateNS, logger)
	canonDuration := time.Since(canonStart)
	observe(opts.Metrics, "canonical", canonDuration)

	result := &Result{
		Graph:             pruned,
		Tree:              tree,
		Canonical:         canonMap,
		CrateName:         disc.ManifestName,
		CrateNamespace:    crateNS.String(),
		FilesDiscovered:   len(disc.Files),
		FilesParsed:       len(frags),
		ParseErrors:       parseErrors,
		MergeWarnings:     len(mergeWarnings),
		TreeWarnings:      len(treeWarnings),
		DiscoverDuration:  discDuration,
		ParseDuration:     parseDuration,
		MergeDuration:     mergeDuration,
		TreeDuration:      treeDuration,
		CanonicalDuration: canonDuration,
		TotalDuration:     time.Since(start),
	}

	logger.Info("pipeline.complete",
		"crate", result.CrateName,
		"files_parsed", result.FilesParsed,
		"parse_errors", result.ParseErrors,
		"merge_warnings", result.MergeWarnings,
		"tree_warnings", result.TreeWarnings,
		"total_duration_ms", result.TotalDuration.Milliseconds(),
	)
	return result, nil
}

// parseFilesParallel fans AnalyzeFile calls out across a bounded worker
// pool, falling back to sequential parsing for small file counts — the
// same len(files) < 10 threshold the reference pipeline uses, since a
// worker pool's setup cost dominates for a handful of files.
func parseFilesParallel(ctx context.Context, v *visitor.Visitor, disc *discovery.Result, workers int, onProgress ProgressCallback, logger *slog.Logger) ([]*graph.ParsedCodeGraph, int) {
	files := disc.Files
	if len(files) == 0 {
		return nil, 0
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if len(files) < 10 || workers == 1 {
		return parseFilesSequential(v, disc, onProgress, logger)
	}

	jobs := make(chan int, len(files))
	results := make(chan fileFragment, len(files))

	var errCount int32
	var progress int64
	total := int64(len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				path := files[idx]
				src, err := readFile(path)
				if err == nil {
					var frag *graph.ParsedCodeGraph
					frag, err = v.AnalyzeFile(path, src, modulePathFor(disc, path))
					if err == nil {
						results <- fileFragment{index: idx, frag: frag}
						cur := atomic.AddInt64(&progress, 1)
						reportProgress(onProgress, cur, total)
						continue
					}
				}
				atomic.AddInt32(&errCount, 1)
				logger.Warn("pipeline.parse_file.error", "path", path, "err", err)
				results <- fileFragment{index: idx, err: err}
				cur := atomic.AddInt64(&progress, 1)
				reportProgress(onProgress, cur, total)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*graph.ParsedCodeGraph, len(files))
	for r := range results {
		if r.err == nil {
			ordered[r.index] = r.frag
		}
	}

	var out []*graph.ParsedCodeGraph
	for _, f := range ordered {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, int(errCount)
}

func parseFilesSequential(v *visitor.Visitor, disc *discovery.Result, onProgress ProgressCallback, logger *slog.Logger) ([]*graph.ParsedCodeGraph, int) {
	var out []*graph.ParsedCodeGraph
	var errCount int
	total := int64(len(disc.Files))
	for i, path := range disc.Files {
		src, err := readFile(path)
		if err == nil {
			var frag *graph.ParsedCodeGraph
			frag, err = v.AnalyzeFile(path, src, modulePathFor(disc, path))
			if err == nil {
				out = append(out, frag)
				reportProgress(onProgress, int64(i+1), total)
				continue
			}
		}
		errCount++
		logger.Warn("pipeline.parse_file.error", "path", path, "err", err)
		reportProgress(onProgress, int64(i+1), total)
	}
	return out, errCount
}

func modulePathFor(disc *discovery.Result, path string) []string {
	return discovery.ConventionalModulePath(disc.RootFile, path)
}

func reportProgress(cb ProgressCallback, current, total int64) {
	if cb != nil {
		cb(current, total, "parsing")
	}
}

func observe(m *Metrics, phase string, d time.Duration) {
	if m != nil {
		m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	}
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
