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

// Command rustgraph is a thin demonstration harness around pkg/pipeline.
// It is not part of the module's contract — everything it does is
// reachable directly through pkg/pipeline.Run for anyone embedding the
// graph builder in their own tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rustgraph/pkg/graphconfig"
	"github.com/kraklabs/rustgraph/pkg/pipeline"
)

func main() {
	crateRoot := flag.StringP("crate", "c", ".", "Path to the crate root (the directory containing Cargo.toml)")
	workers := flag.IntP("workers", "w", 4, "Number of parallel visitor workers")
	jsonOut := flag.Bool("json", false, "Print the result summary as JSON instead of text")
	metricsAddr := flag.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	configPath := flag.String("config", "rustgraph.yaml", "Optional YAML config overlay (missing file is not an error)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	cfg := graphconfig.DefaultConfig()
	cfg.CrateRoot = *crateRoot
	cfg.Concurrency.ParseWorkers = *workers
	cfg, err := loadFileConfig(*configPath, cfg)
	if err != nil {
		logger.Error("rustgraph.config.error", "err", err)
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	useBar := isatty.IsTerminal(os.Stderr.Fd()) && !*jsonOut

	res, err := pipeline.Run(ctx, pipeline.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		OnProgress: func(current, total int64, phase string) {
			if !useBar {
				return
			}
			if bar == nil {
				bar = progressbar.NewOptions64(total, progressbar.OptionSetDescription(phase))
			}
			_ = bar.Set64(current)
		},
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		warn := color.New(color.FgRed, color.Bold)
		warn.Fprintf(os.Stderr, "rustgraph: %v\n", err)
		os.Exit(1)
	}

	printResult(res, *jsonOut)
}

func printResult(res *pipeline.Result, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}

	ok := color.New(color.FgGreen, color.Bold)
	label := color.New(color.Faint)

	ok.Printf("crate %s indexed\n", res.CrateName)
	label.Printf("  files discovered:  %d\n", res.FilesDiscovered)
	label.Printf("  files parsed:      %d\n", res.FilesParsed)
	if res.ParseErrors > 0 {
		color.New(color.FgYellow).Printf("  parse errors:      %d\n", res.ParseErrors)
	}
	if res.MergeWarnings > 0 {
		color.New(color.FgYellow).Printf("  merge warnings:    %d\n", res.MergeWarnings)
	}
	if res.TreeWarnings > 0 {
		color.New(color.FgYellow).Printf("  tree warnings:     %d\n", res.TreeWarnings)
	}
	label.Printf("  functions:         %d\n", len(res.Graph.Functions))
	label.Printf("  structs:           %d\n", len(res.Graph.Structs))
	label.Printf("  enums:             %d\n", len(res.Graph.Enums))
	label.Printf("  traits:            %d\n", len(res.Graph.Traits))
	label.Printf("  impls:             %d\n", len(res.Graph.Impls))
	label.Printf("  total duration:    %s\n", res.TotalDuration)
	fmt.Println()
}
