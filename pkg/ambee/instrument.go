package ambee

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/breatheroute/ambee/pkg/ambee"

type instruments struct {
	tracer          trace.Tracer
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) *instruments {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"ambee.client.request.duration",
		metric.WithDescription("Duration of Ambee API requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		requestDuration = noop.Float64Histogram{}
	}

	requestTotal, err := meter.Int64Counter(
		"ambee.client.request.total",
		metric.WithDescription("Total number of Ambee API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		requestTotal = noop.Int64Counter{}
	}

	return &instruments{
		tracer:          tp.Tracer(instrumentationName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}
}

func (i *instruments) startSpan(ctx context.Context, uri string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "ambee.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ambee.uri", uri),
			attribute.String("http.request.method", "GET"),
		),
	)
}

func (i *instruments) record(ctx context.Context, span trace.Span, uri string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("ambee.uri", uri),
	}

	if err != nil {
		kind, _ := KindOf(err)
		attrs = append(attrs,
			attribute.Bool("error", true),
			attribute.String("ambee.error.kind", kind.String()),
		)
		if e, ok := err.(*Error); ok && e.StatusCode != 0 { //nolint:errorlint // always a direct *Error here
			span.SetAttributes(attribute.Int("http.response.status_code", e.StatusCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	// Metrics use a context detached from cancellation of the request.
	mctx := context.WithoutCancel(ctx)
	i.requestDuration.Record(mctx, duration.Seconds(), metric.WithAttributes(attrs...))
	i.requestTotal.Add(mctx, 1, metric.WithAttributes(attrs...))
}
