package application

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Probe owns the RED instruments of one service and opens a Run per use case call.
type Probe struct {
	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewProbe(tel observability.Observability, service string) *Probe {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Probe{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

func (p *Probe) Logger() observability.Logger { return p.log }

func (p *Probe) Metrics() observability.Metrics { return p.tel.Metrics() }

// Run tracks a single use case execution. Callers set the outcome through Fail
// or Status and finish with End, usually deferred.
type Run struct {
	probe   *Probe
	useCase string
	span    trace.Span
	log     observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Begin starts the span and binds a request-scoped logger that carries
// use_case plus the trace identifiers. The returned context holds both.
func (p *Probe) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := p.tel.Tracer().Start(ctx, spanPrefix+spanName, attrs...)

	fields := append([]observability.Field{observability.F("use_case", useCase)}, observability.SpanFields(ctx)...)
	ctx, logger := logctx.Enrich(ctx, p.log, fields...)

	return ctx, &Run{
		probe:   p,
		useCase: useCase,
		span:    span,
		log:     logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (r *Run) Logger() observability.Logger { return r.log }

func (r *Run) Span() trace.Span { return r.span }

// Fail marks the run as an error with the given status code.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Status replaces the status code without changing the outcome.
func (r *Run) Status(status string) {
	r.status = status
}

// With adds fields to the final use_case_done line.
func (r *Run) With(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.outcome == "success" {
		r.outcome = "error"
		if r.status == "OK" {
			r.status = "INTERNAL"
		}
	}

	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, r.status)
	} else {
		r.span.SetStatus(codes.Ok, r.status)
	}
	r.span.End()

	r.probe.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.probe.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.log.Info("use_case_done", fields...)
}

// External records one call to a dependency outside the process.
func (p *Probe) External(peer, endpoint string, start time.Time, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	p.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	p.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}
