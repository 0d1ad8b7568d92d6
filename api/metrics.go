package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName    = "kanban-api"
	aiSpanName    = "ai.board.request"
	aiEventName   = "kanban.ai.board"
	aiEventDomain = "kanban"
	aiRoute       = "/api/ai/board"
)

// aiRequestMetrics collects per-stage timings for one AI board request and
// emits them once as an otel span plus a mirrored structured log entry.
type aiRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration     time.Duration
	loadDuration     time.Duration
	completeDuration time.Duration
	validateDuration time.Duration
	applyDuration    time.Duration
	persistDuration  time.Duration
	summaryShortcut  bool
	operationCount   int
	errorStage       string
}

func newAIRequestMetrics(ctx context.Context, logger *log.Logger) (*aiRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, aiSpanName)
	return &aiRequestMetrics{logger: logger, span: span, start: time.Now()}, spanCtx
}

func (m *aiRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *aiRequestMetrics) ObserveLoad(d time.Duration) {
	if d > 0 {
		m.loadDuration = d
	}
}

func (m *aiRequestMetrics) ObserveComplete(d time.Duration) {
	if d > 0 {
		m.completeDuration = d
	}
}

func (m *aiRequestMetrics) ObserveValidate(d time.Duration) {
	if d > 0 {
		m.validateDuration = d
	}
}

func (m *aiRequestMetrics) ObserveApply(d time.Duration) {
	if d > 0 {
		m.applyDuration = d
	}
}

func (m *aiRequestMetrics) ObservePersist(d time.Duration) {
	if d > 0 {
		m.persistDuration = d
	}
}

func (m *aiRequestMetrics) SetSummaryShortcut(v bool) {
	m.summaryShortcut = v
}

func (m *aiRequestMetrics) SetOperationCount(n int) {
	if n < 0 {
		n = 0
	}
	m.operationCount = n
}

func (m *aiRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log emits the collected metrics and ends the span. Call exactly once per
// request, after the response status is known.
func (m *aiRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", aiRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("kanban.ai.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Bool("kanban.ai.summary_shortcut", m.summaryShortcut),
		attribute.Int("kanban.ai.operations", m.operationCount),
	}
	for _, stage := range []struct {
		key string
		d   time.Duration
	}{
		{"kanban.ai.auth_ms", m.authDuration},
		{"kanban.ai.load_ms", m.loadDuration},
		{"kanban.ai.complete_ms", m.completeDuration},
		{"kanban.ai.validate_ms", m.validateDuration},
		{"kanban.ai.apply_ms", m.applyDuration},
		{"kanban.ai.persist_ms", m.persistDuration},
	} {
		if stage.d > 0 {
			attrs = append(attrs, attribute.Float64(stage.key, durationToMillis(stage.d)))
		}
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("kanban.ai.error_stage", m.errorStage))
	}

	eventAttrs := []attribute.KeyValue{
		attribute.String("event.name", aiEventName),
		attribute.String("event.domain", aiEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}
	eventAttrs = append(eventAttrs, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := severityText
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      aiEventName,
		"event.domain":    aiEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attributesToFields(attrs),
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.IsValid() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error("observability.event")
	case "WARN":
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func attributesToFields(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
