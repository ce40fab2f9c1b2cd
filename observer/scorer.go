package observer

import (
	"context"
	"time"

	"github.com/nevindra/quiver"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedScorer wraps a quiver.Scorer with OTEL instrumentation.
type ObservedScorer struct {
	inner quiver.Scorer
	inst  *Instruments
	model string
}

// WrapScorer returns an instrumented cross-encoder scorer.
func WrapScorer(inner quiver.Scorer, model string, inst *Instruments) *ObservedScorer {
	return &ObservedScorer{inner: inner, inst: inst, model: model}
}

func (o *ObservedScorer) Name() string { return o.inner.Name() }

func (o *ObservedScorer) Score(ctx context.Context, query, candidate string) (float32, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "rerank.score", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrScoreQueryLength.Int(len(query)),
		AttrScoreCandidateLength.Int(len(candidate)),
	))
	defer span.End()
	start := time.Now()

	score, err := o.inner.Score(ctx, query, candidate)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.inst.ScoreRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("status", status),
	))
	o.inst.ScoreDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))

	// Structured log
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("rerank score completed"))
	rec.AddAttributes(
		otellog.String("llm.model", o.model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)

	return score, err
}

var _ quiver.Scorer = (*ObservedScorer)(nil)
