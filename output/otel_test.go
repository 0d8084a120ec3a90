package output

import (
	"testing"
	"time"

	"docprobe/config"

	otelLog "go.opentelemetry.io/otel/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

func findAttr(kvs []otelLog.KeyValue, key string) (otelLog.Value, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return otelLog.Value{}, false
}

func TestNewOtelLoggerDisabledAndInvalid(t *testing.T) {
	if l, err := newOtelLogger(&config.Config{}); l != nil || err != nil {
		t.Fatalf("expected disabled exporter, got %v %v", l, err)
	}
	if _, err := newOtelLogger(&config.Config{OtelEndpoint: "collector:4318"}); err == nil {
		t.Fatal("expected error for endpoint without scheme")
	}
}

func TestNewOtelLoggerDefaultsShutdownTimeout(t *testing.T) {
	l, err := newOtelLogger(&config.Config{OtelEndpoint: "http://127.0.0.1:4318", OtelServiceName: "docprobe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Shutdown()
	if l.timeout != defaultShutdownTimeout {
		t.Fatalf("expected default timeout, got %v", l.timeout)
	}

	l2, err := newOtelLogger(&config.Config{OtelEndpoint: "http://127.0.0.1:4318", OtelTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l2.Shutdown()
	if l2.timeout != time.Second {
		t.Fatalf("expected configured timeout, got %v", l2.timeout)
	}
}

func TestOutcomeEventOmitsLocalFields(t *testing.T) {
	r := sampleReport(t)
	success := r.Categories[1].Outcomes[0]
	if success.Category != "word_document" {
		t.Fatalf("unexpected fixture order: %s", success.Category)
	}
	ev := outcomeEvent(success)
	if ev.severity != otelLog.SeverityInfo || ev.name != eventOutcome {
		t.Fatalf("unexpected event header %s %v", ev.name, ev.severity)
	}
	if _, ok := findAttr(ev.body, "preview"); ok {
		t.Error("preview must not be exported")
	}
	if _, ok := findAttr(ev.body, "path"); ok {
		t.Error("path must not be exported")
	}
	if v, ok := findAttr(ev.body, "text_length"); !ok || v.AsInt64() != 5 {
		t.Errorf("unexpected text_length %v", v)
	}

	failed := outcomeEvent(r.Categories[0].Outcomes[0])
	if failed.severity != otelLog.SeverityWarn {
		t.Errorf("failed outcomes are warnings, got %v", failed.severity)
	}
	if v, ok := findAttr(failed.body, "error_type"); !ok || v.AsString() != "UnsupportedFormat" {
		t.Errorf("unexpected failure body %v", failed.body)
	}
	if _, ok := findAttr(failed.body, "text_length"); ok {
		t.Error("failed outcomes carry no lengths")
	}
}

func TestOutcomeEventSemanticAttributes(t *testing.T) {
	ev := outcomeEvent(sampleReport(t).Categories[1].Outcomes[0])

	name, ok := findAttr(ev.attrs, string(semconv.FileNameKey))
	if !ok || name.AsString() != "report.docx" {
		t.Fatalf("missing file name attribute")
	}
	ext, ok := findAttr(ev.attrs, string(semconv.FileExtensionKey))
	if !ok || ext.AsString() != "docx" {
		t.Fatalf("missing extension attribute")
	}
	size, ok := findAttr(ev.attrs, string(semconv.FileSizeKey))
	if !ok || size.AsInt64() != 100 {
		t.Fatalf("missing size attribute")
	}
	if v, ok := findAttr(ev.attrs, "docprobe.conversion.successful"); !ok || !v.AsBool() {
		t.Fatal("missing success attribute")
	}
}

func TestSummaryEvent(t *testing.T) {
	ev := summaryEvent(sampleReport(t))
	if v, ok := findAttr(ev.attrs, "docprobe.summary.total_documents"); !ok || v.AsInt64() != 2 {
		t.Fatal("missing total documents attribute")
	}
	if v, ok := findAttr(ev.attrs, "docprobe.summary.success_rate"); !ok || v.AsFloat64() != 50 {
		t.Fatal("missing success rate attribute")
	}
	if v, ok := findAttr(ev.attrs, "docprobe.readiness.ready"); !ok || v.AsBool() {
		t.Fatal("expected not-ready attribute")
	}
	rates, ok := findAttr(ev.body, "category_rates")
	if !ok || rates.Kind() != otelLog.KindMap || len(rates.AsMap()) != 2 {
		t.Fatalf("unexpected category rates %v", rates)
	}
}

func TestNilOtelLoggerIsNoop(t *testing.T) {
	var l *otelLogger
	l.emit(otelEvent{name: eventSummary})
	l.Shutdown()
}
