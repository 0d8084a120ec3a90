package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docprobe/batch"
	"docprobe/classifier"
	"docprobe/config"
	"docprobe/converter"
	"docprobe/logger"
	"docprobe/output"
	"docprobe/report"
	"docprobe/samples"
	"docprobe/scanner"
	"docprobe/systeminfo"
	"docprobe/tracing"
	"docprobe/version"

	"github.com/spf13/afero"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

const versionProbeTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(exitConfigError)
	}

	logger.Init(cfg.LogLevel)

	if err := tracing.Start("trace.out"); err != nil {
		logger.Warnf("Failed to start trace: %v", err)
	} else {
		defer tracing.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go handleSignalEvent(cancel, sigChan)

	code := run(ctx, cfg, afero.NewOsFs(), os.Stdout)
	if code != exitOK {
		tracing.Stop()
		os.Exit(code)
	}
}

func handleSignalEvent(cancelFunc context.CancelFunc, sigChan <-chan os.Signal) {
	if _, ok := <-sigChan; !ok {
		return
	}
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}

// run executes the selected command and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, fs afero.Fs, stdout io.Writer) int {
	switch cfg.Command {
	case config.CommandVersion:
		fmt.Fprintln(stdout, version.Version)
		return exitOK
	case config.CommandSamples:
		return runSamples(fs, cfg)
	case config.CommandExport:
		return runExport(ctx, fs, cfg)
	default:
		return runBatch(ctx, fs, cfg, stdout)
	}
}

func runSamples(fs afero.Fs, cfg *config.Config) int {
	written, err := samples.Generate(fs, cfg.SamplesDir)
	if err != nil {
		logger.Errorf("Failed to write samples: %v", err)
		return exitFailure
	}
	logger.Infof("Wrote %d sample documents to %s", len(written), cfg.SamplesDir)
	return exitOK
}

func runExport(ctx context.Context, fs afero.Fs, cfg *config.Config) int {
	conv := newConverter(fs, cfg)
	res, err := conv.Convert(ctx, cfg.ExportFile)
	if err != nil {
		logger.Errorf("Failed to convert %s (%s): %v", cfg.ExportFile, converter.KindOf(err), err)
		return exitFailure
	}
	path, err := output.WriteExport(fs, cfg.ResultsDir, cfg.ExportFile, cfg.ExportFormat, res)
	if err != nil {
		logger.Errorf("Export failed: %v", err)
		return exitFailure
	}
	logger.Infof("Exported %s to %s", cfg.ExportFile, path)
	return exitOK
}

func runBatch(ctx context.Context, fs afero.Fs, cfg *config.Config, stdout io.Writer) int {
	writer := output.New(fs, cfg)
	defer writer.Close()

	opts := batch.Options{
		Fs:             fs,
		Dir:            cfg.InputDir,
		Converter:      newConverter(fs, cfg),
		CLISampleLimit: cfg.CLISampleLimit,
		CLITimeout:     cfg.CLITimeout,
		Concurrency:    cfg.ConcurrencyLevel,
		MaxPerSecond:   cfg.MaxConversionsPerSecond,
		PreviewLength:  cfg.PreviewLength,
		SearchTerms:    cfg.SearchTerms,
		Scan: scanner.Options{
			IncludePatterns:  cfg.IncludePatterns,
			ExcludePatterns:  cfg.ExcludePatterns,
			HashAlgorithms:   cfg.HashAlgorithms,
			CollectMetadata:  true,
			MetadataMaxBytes: cfg.MetadataMaxBytes,
		},
		Policy:         policyFromConfig(cfg),
		ShowProgress:   !cfg.ShowReport,
		StallThreshold: cfg.DiagSlowThreshold,
		DiagDir:        cfg.DiagDir,
		OnOutcome:      writer.EmitOutcome,
	}

	usesCommand := cfg.ConverterMode == "command"
	if !cfg.SkipCLI && cfg.CLISampleLimit > 0 {
		opts.CLIConverter = converter.NewCommand(cfg.CLICommand, cfg.CLITimeout)
		usesCommand = true
	}
	if usesCommand {
		if v, err := converter.ProbeVersion(ctx, cfg.CLICommand, versionProbeTimeout); err == nil {
			opts.ConverterVersion = &v
		} else {
			logger.Warnf("Could not determine converter version: %v", err)
		}
	}
	if cfg.CollectSystemInfo {
		info, err := systeminfo.GetSystemInfo()
		if err != nil {
			logger.Warnf("Failed to gather system information: %v", err)
		}
		opts.Environment = info
	}

	r, err := batch.Run(ctx, opts)
	if err != nil {
		var scanErr *scanner.ScanError
		if errors.As(err, &scanErr) {
			logger.Errorf("Cannot read input directory: %v", err)
		} else {
			logger.Errorf("Run aborted: %v", err)
		}
		return exitFailure
	}

	if err := writer.WriteReport(r); err != nil {
		logger.Errorf("%v", err)
		return exitFailure
	}
	logger.Infof("Report written to %s", writer.Path())

	if cfg.ShowReport {
		if err := output.RenderConsole(stdout, r, true, 100); err != nil {
			logger.Warnf("Failed to render report: %v", err)
		}
	} else {
		logSummary(r)
	}
	return exitOK
}

func newConverter(fs afero.Fs, cfg *config.Config) converter.Converter {
	if cfg.ConverterMode == "command" {
		return converter.NewCommand(cfg.CLICommand, cfg.CLITimeout)
	}
	return converter.NewNative(fs, converter.NewOCREngine(), cfg.OCRLanguages)
}

func policyFromConfig(cfg *config.Config) report.Policy {
	critical := make([]classifier.Category, 0, len(cfg.CriticalCategories))
	for _, c := range cfg.CriticalCategories {
		critical = append(critical, classifier.Category(c))
	}
	return report.Policy{
		CriticalCategories: critical,
		ReadinessThreshold: cfg.ReadinessThreshold,
		OCRReadyRate:       cfg.OCRReadyRate,
	}
}

func logSummary(r *report.RunReport) {
	logger.Infof("Documents: %d, successful: %d, failed: %d (%.1f%%)",
		r.TotalDocuments, r.Summary.TotalSuccessful, r.Summary.TotalFailed, r.Summary.SuccessRate)
	for _, cr := range r.CategorySummaries {
		logger.Infof("%s: %d/%d (%.1f%%)", cr.Category, cr.Successful, cr.Total, cr.SuccessRate)
	}
	if len(r.CLIResults) > 0 {
		cli := r.CLISummary()
		logger.Infof("Command-line converter: %d/%d (%.1f%%)", cli.Successful, cli.Attempted, cli.SuccessRate)
	}
	logger.Infof("Recommendation: %s", r.Readiness.Recommendation)
}
