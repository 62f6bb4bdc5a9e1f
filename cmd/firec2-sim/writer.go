package main

import (
	"errors"
	"os"

	"golang.org/x/term"

	"firec2-sim/internal/config"
	"firec2-sim/internal/sim"
)

// writerOptions selects the sinks a run (or replay) writes to. Exactly
// one console mode is active; storage sinks stack on top of it.
type writerOptions struct {
	outDir     string
	sqlitePath string
	greptime   string
	greptimeDB string
	json       bool
	quiet      bool
	tui        bool
}

// buildWriters assembles the writer stack. The returned cleanup closes
// file-backed sinks and must run after the simulation has stopped.
func buildWriters(cfg *config.Config, opts writerOptions) (*sim.MultiWriter, *sim.TUIWriter, func(), error) {
	var (
		sinks   []any
		closers []func() error
		tui     *sim.TUIWriter
	)

	switch {
	case opts.tui:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, nil, errors.New("--tui needs an interactive terminal, use --json for piped output")
		}
		tui = sim.NewTUIWriter(cfg)
		sinks = append(sinks, tui)
	case opts.json || opts.quiet:
		sinks = append(sinks, sim.NewStdoutWriter(opts.quiet))
	default:
		sinks = append(sinks, sim.NewColorStdoutWriter(cfg))
	}

	if opts.outDir != "" {
		fw, err := sim.NewFileWriter(opts.outDir)
		if err != nil {
			return nil, nil, nil, err
		}
		sinks = append(sinks, fw)
		closers = append(closers, fw.Close)
	}

	if opts.sqlitePath != "" {
		sw, err := sim.NewSQLiteWriter(opts.sqlitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		sinks = append(sinks, sw)
		closers = append(closers, sw.Close)
	}

	if endpoint := greptimeEndpoint(opts); endpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(endpoint, opts.greptimeDB)
		if err != nil {
			return nil, nil, nil, err
		}
		sinks = append(sinks, gw)
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return sim.NewMultiWriter(sinks...), tui, cleanup, nil
}

// greptimeEndpoint resolves the ingest endpoint from the flag or the
// GREPTIMEDB_ENDPOINT environment variable.
func greptimeEndpoint(opts writerOptions) string {
	if opts.greptime != "" {
		return opts.greptime
	}
	return os.Getenv("GREPTIMEDB_ENDPOINT")
}
