// Package pipeline orchestrates one full recomputation pass:
// filter -> aggregate -> evaluate -> grouped summaries.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/corridor"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/refdata"
)

var tracer = otel.Tracer("kestrel-pipeline")

// Pipeline recomputes the risk tables for a calc table. It is stateless
// between runs: every call starts from the given table and the request, so
// identical inputs produce identical outputs.
type Pipeline struct {
	cfg       domain.EngineConfig
	corridors *refdata.CorridorIndex
	env       *cel.Env
}

// New creates a pipeline for one engine configuration. The corridor index
// must be built from the same corridor table the calc table was resolved
// against.
func New(cfg domain.EngineConfig, corridors *refdata.CorridorIndex) (*Pipeline, error) {
	env, err := newFilterEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}
	return &Pipeline{cfg: cfg, corridors: corridors, env: env}, nil
}

// Request describes one recomputation pass.
type Request struct {
	Filter       Filter              `json:"filter"`
	GroupingMode domain.GroupingMode `json:"groupingMode"`
}

// Result is the complete output of one pass.
type Result struct {
	Rows              []domain.RiskRow `json:"rows"`
	ByCountry         domain.Summary   `json:"byCountry"`
	ByCountryCategory domain.Summary   `json:"byCountryCategory"`
}

// Run executes filter -> aggregate -> evaluate -> summarize on the calc
// table. The table is read-only; concurrent runs over the same table are
// safe because every stage returns fresh slices.
func (p *Pipeline) Run(ctx context.Context, table *domain.CalcTable, req *Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	mode := req.GroupingMode
	if mode == "" {
		mode = domain.GroupSuffered
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unsupported grouping mode: %s", mode)
	}

	matcher, err := p.compileFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.CalcRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		ok, err := matcher(row)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, row)
		}
	}

	span.SetAttributes(
		attribute.String("dataset.id", table.DatasetID),
		attribute.Int("rows.total", len(table.Rows)),
		attribute.Int("rows.filtered", len(filtered)),
		attribute.String("grouping.mode", string(mode)),
	)

	// Minimum prices and generating locations come from the filtered
	// subset only. Re-aggregating here, not reusing resolver-time values,
	// is what keeps filtered views correct.
	aggregated := aggregate.Recompute(filtered)

	evaluator := corridor.NewEvaluator(p.cfg.CorridorPolicy, p.corridors)
	rows := evaluator.Evaluate(aggregated)

	return &Result{
		Rows:              rows,
		ByCountry:         summarizeByCountry(rows, mode),
		ByCountryCategory: summarizeByCountryCategory(rows, mode),
	}, nil
}
