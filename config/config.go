package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"docprobe/classifier"
	"docprobe/utils"
)

const (
	CommandRun     = "run"
	CommandExport  = "export"
	CommandSamples = "samples"
	CommandVersion = "version"
)

type Config struct {
	Command                 string            `json:"-"`
	InputDir                string            `json:"input_dir"`
	OutputFileName          string            `json:"output_file_name"`
	LogLevel                string            `json:"log_level"`
	ConverterMode           string            `json:"converter"`
	CLICommand              string            `json:"cli_command"`
	CLITimeout              time.Duration     `json:"cli_timeout"`
	CLISampleLimit          int               `json:"cli_sample_limit"`
	SkipCLI                 bool              `json:"skip_cli"`
	ConcurrencyLevel        int               `json:"concurrency_level"`
	MaxConversionsPerSecond int               `json:"max_conversions_per_second"`
	PreviewLength           int               `json:"preview_length"`
	ReadinessThreshold      float64           `json:"readiness_threshold"`
	OCRReadyRate            float64           `json:"ocr_ready_rate"`
	CriticalCategories      []string          `json:"critical_categories"`
	OCRLanguages            []string          `json:"ocr_languages"`
	IncludePatterns         []string          `json:"include_patterns"`
	ExcludePatterns         []string          `json:"exclude_patterns"`
	HashAlgorithms          []string          `json:"hash_algorithms"`
	SearchTerms             []string          `json:"search_terms"`
	MetadataMaxBytes        int64             `json:"metadata_max_bytes"`
	CollectSystemInfo       bool              `json:"collect_system_info"`
	ShowReport              bool              `json:"show_report"`
	DiagSlowThreshold       time.Duration     `json:"diag_slow_threshold"`
	DiagDir                 string            `json:"diag_dir"`
	OtelEndpoint            string            `json:"otel_endpoint"`
	OtelHeaders             map[string]string `json:"otel_headers"`
	OtelServiceName         string            `json:"otel_service_name"`
	OtelTimeout             time.Duration     `json:"otel_timeout"`
	ExportFile              string            `json:"export_file"`
	ExportFormat            string            `json:"export_format"`
	ResultsDir              string            `json:"results_dir"`
	SamplesDir              string            `json:"samples_dir"`
	ConfigFile              string            `json:"config_file"`
}

// Default returns the configuration used when no flags or config file are given.
func Default() *Config {
	return &Config{
		Command:                 CommandRun,
		InputDir:                "test-docs",
		OutputFileName:          "docprobe_test_results.json",
		LogLevel:                "info",
		ConverterMode:           "native",
		CLICommand:              "docling",
		CLITimeout:              30 * time.Second,
		CLISampleLimit:          3,
		ConcurrencyLevel:        1,
		MaxConversionsPerSecond: 0,
		PreviewLength:           200,
		ReadinessThreshold:      0.7,
		OCRReadyRate:            50,
		CriticalCategories:      []string{"word_document", "powerpoint_presentation", "data_file"},
		OCRLanguages:            []string{"eng", "mal"},
		IncludePatterns:         []string{},
		ExcludePatterns:         []string{},
		HashAlgorithms:          []string{},
		SearchTerms:             []string{},
		MetadataMaxBytes:        1 * 1024 * 1024,
		DiagDir:                 ".",
		OtelHeaders:             map[string]string{},
		OtelServiceName:         "docprobe",
		OtelTimeout:             5 * time.Second,
		ExportFormat:            "md",
		ResultsDir:              "results",
		SamplesDir:              "test-docs",
	}
}

// LoadConfig parses os.Args. The first argument selects the command when it
// does not start with a dash; "run" is assumed otherwise.
func LoadConfig() (*Config, error) {
	cfg := Default()

	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.Command = strings.ToLower(args[0])
		args = args[1:]
	}

	dir := flag.String("dir", cfg.InputDir, fmt.Sprintf("Directory of documents to convert, scanned non-recursively (default: %s).", cfg.InputDir))
	output := flag.String("output", cfg.OutputFileName, fmt.Sprintf("Report file name (default: %s).", cfg.OutputFileName))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	converterMode := flag.String("converter", cfg.ConverterMode, fmt.Sprintf("Converter used for the batch: native or command (default: %s).", cfg.ConverterMode))
	cliCommand := flag.String("cli-command", cfg.CLICommand, "Converter command line; {file} is replaced by the input path, otherwise the path is appended (default: docling).")
	cliTimeout := flag.Duration("cli-timeout", cfg.CLITimeout, "Timeout for each command-line conversion (default: 30s).")
	cliSampleLimit := flag.Int("cli-sample-limit", cfg.CLISampleLimit, fmt.Sprintf("Maximum number of .txt/.csv/.md files used for the CLI check (default: %d).", cfg.CLISampleLimit))
	skipCLI := flag.Bool("skip-cli", cfg.SkipCLI, "Skip the command-line converter check.")
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, fmt.Sprintf("Number of concurrent conversions (default: %d).", cfg.ConcurrencyLevel))
	maxRate := flag.Int("max-conversions-per-second", cfg.MaxConversionsPerSecond, "Maximum conversions started per second, 0 means unlimited (default: 0).")
	previewLength := flag.Int("preview-length", cfg.PreviewLength, fmt.Sprintf("Characters of extracted text kept as preview (default: %d).", cfg.PreviewLength))
	readiness := flag.Float64("readiness-threshold", cfg.ReadinessThreshold, "Overall success fraction required for a ready verdict (default: 0.7).")
	ocrRate := flag.Float64("ocr-ready-rate", cfg.OCRReadyRate, "OCR success rate in percent considered acceptable (default: 50).")
	critical := flag.String("critical-categories", strings.Join(cfg.CriticalCategories, ","), "Comma-separated categories that need at least one success to be ready.")
	ocrLanguages := flag.String("ocr-languages", strings.Join(cfg.OCRLanguages, ","), "Comma-separated OCR languages (default: eng,mal).")
	includes := flag.String("include", "", "Comma-separated list of include patterns (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns (default: none).")
	hashes := flag.String("hashes", "", "Comma-separated fingerprint algorithms: md5, sha1, sha256, blake3, xxhash (default: none).")
	searches := flag.String("search", "", "Comma-separated terms counted in extracted text (default: none).")
	metadataMaxBytes := flag.Int64("metadata-max-bytes", cfg.MetadataMaxBytes, fmt.Sprintf("Maximum bytes metadata parsers may read per file, 0 means unlimited (default: %d).", cfg.MetadataMaxBytes))
	collectSystemInfo := flag.Bool("collect-system-info", cfg.CollectSystemInfo, "Record host information in the report (default: false).")
	showReport := flag.Bool("show-report", cfg.ShowReport, "Print the rendered report to stdout (default: false).")
	diagSlow := flag.Duration("diag-slow-threshold", cfg.DiagSlowThreshold, "If positive, write diagnostics when no conversion completes for this long (default: 0/off).")
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: docprobe).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	exportFile := flag.String("file", cfg.ExportFile, "Input file for the export command.")
	exportFormat := flag.String("format", cfg.ExportFormat, "Export format: txt, md, or json (default: md).")
	resultsDir := flag.String("results-dir", cfg.ResultsDir, fmt.Sprintf("Directory for exported files (default: %s).", cfg.ResultsDir))
	samplesDir := flag.String("samples-dir", cfg.SamplesDir, fmt.Sprintf("Directory the samples command writes to (default: %s).", cfg.SamplesDir))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	if err := flag.CommandLine.Parse(args); err != nil {
		return nil, err
	}

	if *showVersion {
		cfg.Command = CommandVersion
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.InputDir = *dir
		case "output":
			cfg.OutputFileName = *output
		case "log-level":
			cfg.LogLevel = *logLevel
		case "converter":
			cfg.ConverterMode = *converterMode
		case "cli-command":
			cfg.CLICommand = *cliCommand
		case "cli-timeout":
			cfg.CLITimeout = *cliTimeout
		case "cli-sample-limit":
			cfg.CLISampleLimit = *cliSampleLimit
		case "skip-cli":
			cfg.SkipCLI = *skipCLI
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
		case "max-conversions-per-second":
			cfg.MaxConversionsPerSecond = *maxRate
		case "preview-length":
			cfg.PreviewLength = *previewLength
		case "readiness-threshold":
			cfg.ReadinessThreshold = *readiness
		case "ocr-ready-rate":
			cfg.OCRReadyRate = *ocrRate
		case "critical-categories":
			cfg.CriticalCategories = parseCommaSeparated(*critical)
		case "ocr-languages":
			cfg.OCRLanguages = parseCommaSeparated(*ocrLanguages)
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "hashes":
			cfg.HashAlgorithms = parseCommaSeparated(*hashes)
		case "search":
			cfg.SearchTerms = parseCommaSeparated(*searches)
		case "metadata-max-bytes":
			cfg.MetadataMaxBytes = *metadataMaxBytes
		case "collect-system-info":
			cfg.CollectSystemInfo = *collectSystemInfo
		case "show-report":
			cfg.ShowReport = *showReport
		case "diag-slow-threshold":
			cfg.DiagSlowThreshold = *diagSlow
		case "diag-dir":
			cfg.DiagDir = strings.TrimSpace(*diagDir)
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "file":
			cfg.ExportFile = *exportFile
		case "format":
			cfg.ExportFormat = *exportFormat
		case "results-dir":
			cfg.ResultsDir = *resultsDir
		case "samples-dir":
			cfg.SamplesDir = *samplesDir
		}
	})

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("docprobe - document conversion validation")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  docprobe [run|export|samples|version] [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  docprobe run --dir test-docs --output results.json")
	fmt.Println("  docprobe run --dir test-docs --cli-command \"python3 -m docling {file}\" --show-report")
	fmt.Println("  docprobe export --file test-docs/report.docx --format json")
	fmt.Println("  docprobe samples --samples-dir test-docs")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.Command = strings.ToLower(strings.TrimSpace(cfg.Command))
	cfg.ConverterMode = strings.ToLower(strings.TrimSpace(cfg.ConverterMode))
	cfg.ExportFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.ExportFormat), "."))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.CriticalCategories = normalizeList(cfg.CriticalCategories)
	cfg.HashAlgorithms = normalizeList(cfg.HashAlgorithms)
	if cfg.Command == "" {
		cfg.Command = CommandRun
	}
	if cfg.ConverterMode == "" {
		cfg.ConverterMode = "native"
	}
	if strings.TrimSpace(cfg.DiagDir) == "" {
		cfg.DiagDir = "."
	}
	if strings.TrimSpace(cfg.ResultsDir) == "" {
		cfg.ResultsDir = "results"
	}
	if cfg.OtelHeaders == nil {
		cfg.OtelHeaders = map[string]string{}
	}
}

func (cfg *Config) validate() error {
	switch cfg.Command {
	case CommandRun, CommandExport, CommandSamples, CommandVersion:
	default:
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}
	if cfg.Command == CommandRun && strings.TrimSpace(cfg.InputDir) == "" {
		return fmt.Errorf("--dir must be specified")
	}
	if cfg.Command == CommandRun && strings.TrimSpace(cfg.OutputFileName) == "" {
		return fmt.Errorf("--output must be specified")
	}
	if cfg.Command == CommandExport {
		if strings.TrimSpace(cfg.ExportFile) == "" {
			return fmt.Errorf("--file must be specified for export")
		}
		if cfg.ExportFormat != "txt" && cfg.ExportFormat != "md" && cfg.ExportFormat != "json" {
			return fmt.Errorf("invalid export format: %s (txt, md or json)", cfg.ExportFormat)
		}
	}
	if cfg.Command == CommandSamples && strings.TrimSpace(cfg.SamplesDir) == "" {
		return fmt.Errorf("--samples-dir must be specified")
	}
	if cfg.ConverterMode != "native" && cfg.ConverterMode != "command" {
		return fmt.Errorf("invalid converter: %s", cfg.ConverterMode)
	}
	if cfg.ConverterMode == "command" && strings.TrimSpace(cfg.CLICommand) == "" {
		return fmt.Errorf("--cli-command is required when --converter=command")
	}
	if cfg.CLITimeout <= 0 {
		return fmt.Errorf("cli-timeout must be positive")
	}
	if cfg.CLISampleLimit < 0 {
		return fmt.Errorf("cli-sample-limit must be zero or positive")
	}
	if cfg.ConcurrencyLevel <= 0 {
		return fmt.Errorf("concurrency level must be positive")
	}
	if cfg.MaxConversionsPerSecond < 0 {
		return fmt.Errorf("max-conversions-per-second must be zero or positive")
	}
	if cfg.PreviewLength <= 0 {
		return fmt.Errorf("preview-length must be positive")
	}
	if cfg.ReadinessThreshold < 0 || cfg.ReadinessThreshold > 1 {
		return fmt.Errorf("readiness-threshold must be between 0 and 1")
	}
	if cfg.OCRReadyRate < 0 || cfg.OCRReadyRate > 100 {
		return fmt.Errorf("ocr-ready-rate must be between 0 and 100")
	}
	for _, algo := range cfg.HashAlgorithms {
		switch algo {
		case "md5", "sha1", "sha256", "blake3", "xxhash":
		default:
			return fmt.Errorf("unsupported hash algorithm: %s", algo)
		}
	}
	for _, name := range cfg.CriticalCategories {
		if !slices.Contains(classifier.Order(), classifier.Category(name)) {
			return fmt.Errorf("unknown critical category: %s", name)
		}
	}
	if _, err := utils.NewNameFilter(cfg.IncludePatterns, cfg.ExcludePatterns); err != nil {
		return err
	}
	if cfg.MetadataMaxBytes < 0 {
		return fmt.Errorf("metadata-max-bytes must be zero or positive")
	}
	if cfg.DiagSlowThreshold < 0 {
		return fmt.Errorf("diag-slow-threshold must be zero or positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers
}

func normalizeList(items []string) []string {
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		normalized = append(normalized, item)
	}
	return normalized
}
