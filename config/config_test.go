package config

import (
	"flag"
	"os"
	"testing"
	"time"
)

func resetFlags(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	oldFlag := flag.CommandLine
	t.Cleanup(func() {
		os.Args = oldArgs
		flag.CommandLine = oldFlag
	})
	flag.CommandLine = flag.NewFlagSet("docprobe", flag.ContinueOnError)
	os.Args = append([]string{"docprobe"}, args...)
}

func TestParseCommaSeparated(t *testing.T) {
	res := parseCommaSeparated("a,b , c")
	if len(res) != 3 || res[1] != "b" {
		t.Fatalf("unexpected result: %v", res)
	}
	if res := parseCommaSeparated(""); len(res) != 0 {
		t.Fatalf("expected empty slice")
	}
}

func TestParseHeaders(t *testing.T) {
	res := parseHeaders("Authorization=Bearer x, bad, =skip,Env=prod")
	if len(res) != 2 || res["Authorization"] != "Bearer x" || res["Env"] != "prod" {
		t.Fatalf("unexpected headers: %v", res)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "cfg*.json")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	tmp.WriteString(`{"input_dir":"/tmp/docs","skip_cli":true,"readiness_threshold":0.5}`)
	tmp.Close()
	defer os.Remove(tmp.Name())

	cfg := &Config{}
	if err := cfg.loadFromFile(tmp.Name()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InputDir != "/tmp/docs" || !cfg.SkipCLI || cfg.ReadinessThreshold != 0.5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}

	if err := cfg.loadFromFile("/does/not/exist.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cases := map[string]func(c *Config){
		"unknown command":   func(c *Config) { c.Command = "serve" },
		"empty dir":         func(c *Config) { c.InputDir = " " },
		"bad converter":     func(c *Config) { c.ConverterMode = "magic" },
		"command no cli":    func(c *Config) { c.ConverterMode = "command"; c.CLICommand = "" },
		"zero timeout":      func(c *Config) { c.CLITimeout = 0 },
		"zero concurrency":  func(c *Config) { c.ConcurrencyLevel = 0 },
		"zero preview":      func(c *Config) { c.PreviewLength = 0 },
		"threshold > 1":     func(c *Config) { c.ReadinessThreshold = 1.5 },
		"ocr rate > 100":    func(c *Config) { c.OCRReadyRate = 101 },
		"bad hash":          func(c *Config) { c.HashAlgorithms = []string{"crc32"} },
		"bad log level":     func(c *Config) { c.LogLevel = "bad" },
		"bad include regex": func(c *Config) { c.IncludePatterns = []string{"re:("} },
		"unknown critical":  func(c *Config) { c.CriticalCategories = []string{"word_documents"} },
		"otel no scheme":    func(c *Config) { c.OtelEndpoint = "collector:4318" },
		"export no file":    func(c *Config) { c.Command = CommandExport },
		"export bad format": func(c *Config) { c.Command = CommandExport; c.ExportFile = "a.docx"; c.ExportFormat = "pdf" },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(c)
		if err := c.validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	resetFlags(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Command != CommandRun {
		t.Fatalf("expected run command, got %s", cfg.Command)
	}
	if cfg.CLITimeout != 30*time.Second || cfg.CLISampleLimit != 3 {
		t.Fatalf("unexpected cli defaults: %v %d", cfg.CLITimeout, cfg.CLISampleLimit)
	}
	if cfg.ConcurrencyLevel != 1 || cfg.PreviewLength != 200 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReadinessThreshold != 0.7 || cfg.OCRReadyRate != 50 {
		t.Fatalf("unexpected readiness defaults: %v %v", cfg.ReadinessThreshold, cfg.OCRReadyRate)
	}
	if len(cfg.CriticalCategories) != 3 {
		t.Fatalf("unexpected critical categories: %v", cfg.CriticalCategories)
	}
	if cfg.CollectSystemInfo {
		t.Fatal("system info should be off by default")
	}
}

func TestRunFlags(t *testing.T) {
	resetFlags(t, "run",
		"--dir", "docs",
		"--output", "out.json",
		"--concurrency", "4",
		"--cli-timeout", "5s",
		"--hashes", "SHA256, blake3",
		"--critical-categories", "word_document",
		"--search", "invoice,metro",
		"--skip-cli",
	)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InputDir != "docs" || cfg.OutputFileName != "out.json" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.ConcurrencyLevel != 4 || cfg.CLITimeout != 5*time.Second || !cfg.SkipCLI {
		t.Fatalf("unexpected run flags: %+v", cfg)
	}
	if len(cfg.HashAlgorithms) != 2 || cfg.HashAlgorithms[0] != "sha256" {
		t.Fatalf("hash algorithms not normalized: %v", cfg.HashAlgorithms)
	}
	if len(cfg.CriticalCategories) != 1 || len(cfg.SearchTerms) != 2 {
		t.Fatalf("unexpected lists: %v %v", cfg.CriticalCategories, cfg.SearchTerms)
	}
}

func TestExportCommand(t *testing.T) {
	resetFlags(t, "export", "--file", "a.docx", "--format", ".JSON")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Command != CommandExport || cfg.ExportFormat != "json" {
		t.Fatalf("unexpected export cfg: %+v", cfg)
	}
	if cfg.ResultsDir != "results" {
		t.Fatalf("unexpected results dir: %s", cfg.ResultsDir)
	}
}

func TestVersionFlag(t *testing.T) {
	resetFlags(t, "--version")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Command != CommandVersion {
		t.Fatalf("expected version command, got %s", cfg.Command)
	}
}

func TestConfigFileOverriddenByFlags(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg*.json")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	tmp.WriteString(`{"input_dir":"from-file","concurrency_level":2}`)
	tmp.Close()

	resetFlags(t, "--config", tmp.Name(), "--concurrency", "6")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InputDir != "from-file" {
		t.Fatalf("expected dir from file, got %s", cfg.InputDir)
	}
	if cfg.ConcurrencyLevel != 6 {
		t.Fatalf("expected flag to win, got %d", cfg.ConcurrencyLevel)
	}
}

func TestOtelFlags(t *testing.T) {
	resetFlags(t,
		"--otel-endpoint", "https://otel.example.com/v1/logs",
		"--otel-headers", "Authorization=Bearer test,Env=prod",
		"--otel-service-name", "docprobe-ci",
		"--otel-timeout", "10s",
	)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OtelEndpoint != "https://otel.example.com/v1/logs" {
		t.Fatalf("unexpected otel endpoint: %s", cfg.OtelEndpoint)
	}
	if cfg.OtelServiceName != "docprobe-ci" || cfg.OtelTimeout != 10*time.Second {
		t.Fatalf("unexpected otel cfg: %+v", cfg)
	}
	if cfg.OtelHeaders["Authorization"] != "Bearer test" || cfg.OtelHeaders["Env"] != "prod" {
		t.Fatalf("unexpected otel headers: %v", cfg.OtelHeaders)
	}
}

func TestInvalidFlagValue(t *testing.T) {
	resetFlags(t, "--readiness-threshold", "2")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}
