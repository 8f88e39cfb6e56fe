// Package jobs runs scheduled generation passes.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
)

// runTimeout bounds one scheduled pass.
const runTimeout = 5 * time.Minute

type generator interface {
	Generate(ctx context.Context) (*core.GenerateResult, error)
}

// Cron triggers generation on cfg.Schedule in cfg.Location. A pass that is
// still running when the next tick fires causes that tick to be skipped.
type Cron struct {
	log     zerolog.Logger
	gen     generator
	c       *cron.Cron
	timeout time.Duration
}

// NewCron registers the generation job. cfg.Schedule must be non-empty.
func NewCron(cfg *contract.Config, log zerolog.Logger, gen generator) (*Cron, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(contract.ScheduleParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	cr := &Cron{log: log, gen: gen, c: c, timeout: runTimeout}
	if _, err := c.AddFunc(cfg.Schedule, cr.generate); err != nil {
		return nil, fmt.Errorf("invalid schedule '%s': %w", cfg.Schedule, err)
	}
	return cr, nil
}

// Start runs the scheduler in its own goroutine.
func (cr *Cron) Start() {
	cr.log.Info().Msg("cron: scheduler started")
	cr.c.Start()
}

// Stop halts the scheduler and waits for a running pass to finish.
func (cr *Cron) Stop() {
	<-cr.c.Stop().Done()
	cr.log.Info().Msg("cron: scheduler stopped")
}

func (cr *Cron) generate() {
	ctx, cancel := context.WithTimeout(context.Background(), cr.timeout)
	defer cancel()
	cr.log.Info().Msg("cron: scheduled generation")
	res, err := cr.gen.Generate(ctx)
	if err != nil {
		cr.log.Error().Err(err).Msg("cron: scheduled generation failed")
		return
	}
	cr.log.Info().Int("open_insights", len(res.Insights)).Str("run_uuid", res.Run.RunUUID).Msg("cron: scheduled generation finished")
}
