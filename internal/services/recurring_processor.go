package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"planner/internal/core"
	"planner/internal/metrics"
)

// RecurringProcessor runs generation passes for the worker and the CLI.
// Overlapping calls for the same day (a cron tick during the startup run)
// share one pass.
type RecurringProcessor struct {
	registry *ObligationRegistry
	metrics  *metrics.Metrics
	group    singleflight.Group
}

func NewRecurringProcessor(registry *ObligationRegistry, m *metrics.Metrics) *RecurringProcessor {
	return &RecurringProcessor{
		registry: registry,
		metrics:  m,
	}
}

// ProcessDue checks every active obligation against now. The returned
// report may be shared with a concurrent caller asking for the same day.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (GenerationReport, error) {
	if p.registry == nil {
		return GenerationReport{}, fmt.Errorf("processor not properly initialized")
	}

	v, err, shared := p.group.Do(core.DateOf(now).String(), func() (any, error) {
		return p.run(ctx, now)
	})
	if shared {
		slog.DebugContext(ctx, "Joined in-flight generation pass")
	}
	report, _ := v.(GenerationReport)
	return report, err
}

func (p *RecurringProcessor) run(ctx context.Context, now time.Time) (GenerationReport, error) {
	start := time.Now()
	slog.InfoContext(ctx, "Processing obligations", "processing_date", now.Format("2006-01-02"))

	report, err := p.registry.CheckAndGenerateAll(ctx, now)
	p.metrics.RecordGenerationRun(time.Since(start), err)
	if err != nil {
		return report, fmt.Errorf("generation pass: %w", err)
	}

	skipped := make(map[string]int, len(report.Skipped))
	for reason, n := range report.Skipped {
		skipped[string(reason)] = n
	}
	p.metrics.RecordGenerationCounts(report.Generated, report.Reconciled, len(report.Failures), skipped)

	slog.InfoContext(ctx, "Obligation processing complete",
		"generated", report.Generated,
		"reconciled", report.Reconciled,
		"failed", len(report.Failures),
		"total_checked", report.Checked,
		"duration", time.Since(start))
	return report, nil
}
