package main

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"ngmeta/internal/modkit"
	"ngmeta/internal/services/collector/domain"
	collectormod "ngmeta/internal/services/collector/module"
	resolvermod "ngmeta/internal/services/resolver/module"
	"ngmeta/internal/services/stats"

	"github.com/spf13/cobra"
)

// Collector names; each keeps its own front cursor and lease
const (
	resolverCollector = "catalog2resolver"
	countCollector    = "catalog2count"
)

// closeTimeout bounds the final pipeline flush after the loop ends
const closeTimeout = 2 * time.Minute

type collectFlags struct {
	once      bool
	interval  time.Duration
	source    string
	front     string
	back      string
	batchSize int
}

func newCollectCmd(name string) *cobra.Command {
	var f collectFlags
	cmd := &cobra.Command{
		Use:  name,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setEnv("NGMETA_COLLECTOR_INDEX", f.source)
			setEnv("NGMETA_CURSOR_FRONT", f.front)
			setEnv("NGMETA_CURSOR_BACK", f.back)
			if f.batchSize > 0 {
				setEnv("NGMETA_COLLECTOR_BATCH_SIZE", strconv.Itoa(f.batchSize))
			}
			return runCollector(cmd, name, f)
		},
	}
	switch name {
	case resolverCollector:
		cmd.Short = "Merge catalog commits into per package documents"
	case countCollector:
		cmd.Short = "Count catalog items by type and distinct id"
	}

	fl := cmd.Flags()
	fl.BoolVar(&f.once, "once", false, "exit after the first pass that makes no progress")
	fl.DurationVar(&f.interval, "interval", 0, "sleep between passes once caught up (default NGMETA_COLLECTOR_INTERVAL)")
	fl.StringVar(&f.source, "source", "", "catalog index URI (default NGMETA_COLLECTOR_INDEX)")
	fl.StringVar(&f.front, "front", "", "front cursor spec (default NGMETA_CURSOR_FRONT)")
	fl.StringVar(&f.back, "back", "", "back cursor spec (default NGMETA_CURSOR_BACK)")
	fl.IntVar(&f.batchSize, "batch-size", 0, "items per batch, commits are never split (default NGMETA_COLLECTOR_BATCH_SIZE, else 1000)")
	return cmd
}

func runCollector(cmd *cobra.Command, name string, f collectFlags) error {
	ctx := cmd.Context()
	e, err := bootstrap(ctx, name, name == resolverCollector)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	sink, _, err := e.sink(ctx)
	if err != nil {
		return err
	}
	deps := e.deps()

	var (
		proc    domain.BatchProcessor
		counter *stats.Counter
		finish  func(context.Context) error
	)
	if name == resolverCollector {
		rm, err := resolvermod.New(deps)
		if err != nil {
			return err
		}
		modkit.Register(rm)
		proc, finish = rm.Processor(), rm.Close
	} else {
		counter = stats.NewCounter()
		proc = counter
	}

	cm, err := collectormod.New(ctx, deps, proc, modkit.WithName(name), modkit.WithPorts(sink))
	if err != nil {
		return err
	}
	modkit.Register(cm)

	sum, runErr := cm.Loop(ctx, f.interval, f.once)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	var closeErr error
	if finish != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		closeErr = finish(cctx)
		cancel()
		// an aborted pipeline reports the batch error that aborted it
		if runErr != nil && errors.Is(runErr, closeErr) {
			closeErr = nil
		}
	}

	e.log.Info().
		Str("collector", name).
		Int("runs", sum.Runs).
		Int("commits", sum.Commits).
		Int("items", sum.Items).
		Int("batches", sum.Batches).
		Int("created", sum.Processed.Created).
		Int("merged", sum.Processed.Merged).
		Msg("collector stopped")

	if counter != nil && runErr == nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(counter.Totals()); err != nil {
			return err
		}
	}
	return errors.Join(runErr, closeErr)
}
