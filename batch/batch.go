// Package batch runs one conversion pass over a directory and reduces the
// outcomes into a report.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"docprobe/classifier"
	"docprobe/converter"
	"docprobe/diag"
	"docprobe/logger"
	"docprobe/report"
	"docprobe/scanner"
	"docprobe/systeminfo"
	"docprobe/tracing"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// CLIExtensions are the file types exercised through the command-line
// converter.
var CLIExtensions = []string{".txt", ".csv", ".md"}

const DefaultCLISampleLimit = 3

type Options struct {
	Fs        afero.Fs
	Dir       string
	Converter converter.Converter
	// CLIConverter is exercised on a sample of text-like files. Nil skips
	// the exercise.
	CLIConverter   converter.Converter
	CLISampleLimit int
	CLITimeout     time.Duration

	Concurrency   int
	MaxPerSecond  int
	PreviewLength int
	SearchTerms   []string
	Scan          scanner.Options
	Policy        report.Policy

	ConverterVersion *string
	Environment      *systeminfo.SystemInfo

	ShowProgress   bool
	StallThreshold time.Duration
	DiagDir        string

	NowFn func() time.Time
	// OnOutcome is called once per main-pass outcome, possibly from several
	// goroutines at once.
	OnOutcome func(report.FileOutcome)
}

type task struct {
	record   scanner.FileRecord
	category classifier.Category
}

// Run scans opts.Dir, converts every file exactly once and returns the
// reduced report. Per-file failures are recorded, never returned; only a
// scan failure or cancellation of ctx aborts the run.
func Run(ctx context.Context, opts Options) (*report.RunReport, error) {
	opts = withDefaults(opts)

	records, err := scanner.ScanDirectory(ctx, opts.Fs, opts.Dir, opts.Scan)
	if err != nil {
		return nil, err
	}
	tasks := plan(records)
	logger.Infof("Found %d documents in %s", len(tasks), opts.Dir)

	outcomes, err := convertAll(ctx, opts, tasks)
	if err != nil {
		return nil, err
	}

	acc := report.NewAccumulator()
	for _, o := range outcomes {
		acc.Add(o)
	}

	if opts.CLIConverter != nil {
		for _, o := range exerciseCLI(ctx, opts, records) {
			acc.AddCLI(o)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return acc.Finish(report.Meta{
		Timestamp:        timestamp(opts.NowFn),
		ConverterVersion: opts.ConverterVersion,
		InputDir:         ResolveDir(opts.Dir),
		Environment:      opts.Environment,
	}, opts.Policy), nil
}

func withDefaults(opts Options) Options {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = 200
	}
	if opts.CLISampleLimit <= 0 {
		opts.CLISampleLimit = DefaultCLISampleLimit
	}
	if opts.NowFn == nil {
		opts.NowFn = time.Now
	}
	if opts.Policy.ReadinessThreshold == 0 && opts.Policy.OCRReadyRate == 0 && opts.Policy.CriticalCategories == nil {
		opts.Policy = report.DefaultPolicy()
	}
	return opts
}

// plan classifies every record once and orders the work by category, then
// by name.
func plan(records []scanner.FileRecord) []task {
	tasks := make([]task, len(records))
	for i, rec := range records {
		tasks[i] = task{record: rec, category: classifier.ClassifyRecord(rec)}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := classifier.Rank(tasks[i].category), classifier.Rank(tasks[j].category)
		if ri != rj {
			return ri < rj
		}
		return tasks[i].record.Name < tasks[j].record.Name
	})
	return tasks
}

// convertAll runs the worker pool. Each worker writes into the slot of its
// task, so the result order does not depend on scheduling.
func convertAll(ctx context.Context, opts Options, tasks []task) ([]report.FileOutcome, error) {
	slots := make([]report.FileOutcome, len(tasks))
	if len(tasks) == 0 {
		return slots, ctx.Err()
	}

	bar := progressbar.NewOptions(len(tasks),
		progressbar.OptionSetDescription("Converting documents"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetVisibility(opts.ShowProgress && progressVisible()),
		progressbar.OptionFullWidth(),
	)
	defer bar.Finish()

	var limiter *rate.Limiter
	if opts.MaxPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxPerSecond), opts.MaxPerSecond)
	}
	counter := converter.NewSearchCounter(opts.SearchTerms)

	var completed atomic.Int64
	var current atomic.Value
	current.Store("")
	watchdog := diag.NewController(diag.Options{
		Fs:             opts.Fs,
		StallThreshold: opts.StallThreshold,
		Dir:            opts.DiagDir,
		CompletedFn:    completed.Load,
		CurrentFileFn:  func() string { return current.Load().(string) },
	})
	watchdog.Start(ctx)
	defer watchdog.Close()

	indexes := make(chan int, opts.Concurrency)
	var wg sync.WaitGroup
	for range min(opts.Concurrency, len(tasks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if ctx.Err() != nil {
					continue
				}
				current.Store(tasks[i].record.Name)
				o := convertOne(ctx, opts, counter, tasks[i])
				slots[i] = o
				completed.Add(1)
				_ = bar.Add(1)
				if opts.OnOutcome != nil {
					opts.OnOutcome(o)
				}
			}
		}()
	}

feed:
	for i := range tasks {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

func convertOne(ctx context.Context, opts Options, counter *converter.SearchCounter, t task) report.FileOutcome {
	ctx, endTask := tracing.StartTask(ctx, "convert")
	defer endTask()
	tracing.Log(ctx, "file", t.record.Name)

	fields := logrus.Fields{"file": t.record.Name, "category": t.category}
	ts := timestamp(opts.NowFn)

	endRegion := tracing.StartRegion(ctx, string(t.category))
	res, err := opts.Converter.Convert(ctx, t.record.Path)
	endRegion()

	if err != nil {
		o := report.Failure(t.record, t.category, err, ts)
		fields["kind"] = o.ErrorType
		logger.WithFields(fields).Warnf("Conversion failed: %s", o.Error)
		return o
	}
	o := report.Success(t.record, t.category, res, opts.PreviewLength, ts)
	o.SearchHits = counter.Count(res.Text)
	fields["text_length"] = o.TextLength
	logger.WithFields(fields).Info("Converted")
	return o
}

// exerciseCLI converts up to CLISampleLimit text-like files, in name order,
// through the command-line converter. A timeout on one file does not stop
// the others.
func exerciseCLI(ctx context.Context, opts Options, records []scanner.FileRecord) []report.FileOutcome {
	var picked []scanner.FileRecord
	for _, rec := range records {
		if len(picked) == opts.CLISampleLimit {
			break
		}
		if isCLIExtension(rec.Extension) {
			picked = append(picked, rec)
		}
	}
	if len(picked) == 0 {
		logger.Info("No text-like files found for the command-line check")
		return nil
	}
	logger.Infof("Checking the command-line converter on %d files", len(picked))

	outcomes := make([]report.FileOutcome, 0, len(picked))
	for _, rec := range picked {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, convertCLI(ctx, opts, rec))
	}
	return outcomes
}

func convertCLI(ctx context.Context, opts Options, rec scanner.FileRecord) report.FileOutcome {
	if opts.CLITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.CLITimeout)
		defer cancel()
	}
	category := classifier.ClassifyRecord(rec)
	fields := logrus.Fields{"file": rec.Name, "converter": "cli"}

	res, err := opts.CLIConverter.Convert(ctx, rec.Path)
	ts := timestamp(opts.NowFn)
	if err != nil {
		o := report.Failure(rec, category, err, ts)
		fields["kind"] = o.ErrorType
		logger.WithFields(fields).Warnf("Command-line conversion failed: %s", o.Error)
		return o
	}
	logger.WithFields(fields).Info("Command-line conversion succeeded")
	return report.Success(rec, category, res, opts.PreviewLength, ts)
}

func isCLIExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range CLIExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339Nano)
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("DOCPROBE_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}

// ResolveDir makes dir absolute for the report header. It falls back to dir
// unchanged.
func ResolveDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
