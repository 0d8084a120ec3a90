package output

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"docprobe/config"
	"docprobe/logger"
	"docprobe/report"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

const (
	eventOutcome = "docprobe.outcome"
	eventSummary = "docprobe.summary"

	defaultShutdownTimeout = 5 * time.Second
)

// otelEvent is one log record bound for the collector.
type otelEvent struct {
	name     string
	severity otelLog.Severity
	attrs    []otelLog.KeyValue
	body     []otelLog.KeyValue
}

// otelLogger streams outcomes and the run summary as OTLP log records.
type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
}

// newOtelLogger returns nil without error when no endpoint is configured.
func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	if cfg == nil || strings.TrimSpace(cfg.OtelEndpoint) == "" {
		return nil, nil
	}
	endpoint := strings.TrimSpace(cfg.OtelEndpoint)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	exp, err := otlploghttp.New(context.Background(), exporterOptions(endpoint, cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.OtelServiceName),
		)),
	)
	timeout := cfg.OtelTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &otelLogger{
		provider: provider,
		logger:   provider.Logger("docprobe"),
		timeout:  timeout,
	}, nil
}

func exporterOptions(endpoint string, cfg *config.Config) []otlploghttp.Option {
	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}
	return opts
}

func (o *otelLogger) emit(ev otelEvent) {
	if o == nil || o.logger == nil {
		return
	}
	now := time.Now()

	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName(ev.name)
	record.SetSeverity(ev.severity)
	record.AddAttributes(otelLog.String("docprobe.schema_version", report.SchemaVersion))
	record.AddAttributes(ev.attrs...)
	record.SetBody(otelLog.MapValue(ev.body...))

	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

// outcomeEvent is the exported view of an outcome. Previews and paths stay
// local.
func outcomeEvent(o report.FileOutcome) otelEvent {
	ev := otelEvent{name: eventOutcome, severity: otelLog.SeverityInfo}

	ev.attrs = append(ev.attrs,
		otelLog.String(string(semconv.FileNameKey), o.FileName),
		otelLog.Int64(string(semconv.FileSizeKey), o.FileSize),
		otelLog.String("docprobe.category", string(o.Category)),
		otelLog.Bool("docprobe.conversion.successful", o.Successful),
	)
	if ext := strings.TrimPrefix(filepath.Ext(o.FileName), "."); ext != "" {
		ev.attrs = append(ev.attrs, otelLog.String(string(semconv.FileExtensionKey), ext))
	}
	if o.MimeType != "" {
		ev.attrs = append(ev.attrs, otelLog.String("docprobe.file.mime_type", o.MimeType))
	}

	ev.body = append(ev.body,
		otelLog.String("file_name", o.FileName),
		otelLog.String("category", string(o.Category)),
		otelLog.Int64("file_size", o.FileSize),
		otelLog.Bool("conversion_successful", o.Successful),
		otelLog.String("timestamp", o.Timestamp),
	)
	if o.Successful {
		ev.body = append(ev.body,
			otelLog.Int("markdown_length", o.MarkdownLength),
			otelLog.Int("text_length", o.TextLength),
			otelLog.Bool("has_content", o.HasContent),
		)
	} else {
		ev.severity = otelLog.SeverityWarn
		ev.attrs = append(ev.attrs, otelLog.String("docprobe.error.type", string(o.ErrorType)))
		ev.body = append(ev.body,
			otelLog.String("error", o.Error),
			otelLog.String("error_type", string(o.ErrorType)),
		)
	}
	if len(o.Hashes) > 0 {
		ev.body = append(ev.body, otelLog.Map("hashes", stringPairs(o.Hashes)...))
	}
	return ev
}

func summaryEvent(r *report.RunReport) otelEvent {
	rates := make([]otelLog.KeyValue, 0, len(r.CategorySummaries))
	for _, cr := range r.CategorySummaries {
		rates = append(rates, otelLog.Float64(string(cr.Category), cr.SuccessRate))
	}
	return otelEvent{
		name:     eventSummary,
		severity: otelLog.SeverityInfo,
		attrs: []otelLog.KeyValue{
			otelLog.Int("docprobe.summary.total_documents", r.TotalDocuments),
			otelLog.Int("docprobe.summary.total_successful", r.Summary.TotalSuccessful),
			otelLog.Int("docprobe.summary.total_failed", r.Summary.TotalFailed),
			otelLog.Float64("docprobe.summary.success_rate", r.Summary.SuccessRate),
			otelLog.Bool("docprobe.readiness.ready", r.Readiness.Ready),
		},
		body: []otelLog.KeyValue{
			otelLog.String("test_timestamp", r.TestTimestamp),
			otelLog.String("input_dir", r.InputDir),
			otelLog.Map("category_rates", rates...),
			otelLog.String("recommendation", r.Readiness.Recommendation),
		},
	}
}

func stringPairs(m map[string]string) []otelLog.KeyValue {
	kvs := make([]otelLog.KeyValue, 0, len(m))
	for k, v := range m {
		kvs = append(kvs, otelLog.String(k, v))
	}
	return kvs
}
