package batch

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"docprobe/classifier"
	"docprobe/converter"
	"docprobe/logger"
	"docprobe/report"
	"docprobe/scanner"

	"github.com/spf13/afero"
)

func init() {
	logger.Init("error")
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

func writeFiles(t *testing.T, fs afero.Fs, dir string, names ...string) {
	t.Helper()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := afero.WriteFile(fs, filepath.Join(dir, name), []byte("content of "+name), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// stubConverter succeeds on everything except .dwg files and any path listed
// in fail.
func stubConverter(fail ...string) converter.Converter {
	return converter.Func(func(ctx context.Context, path string) (converter.Result, error) {
		for _, f := range fail {
			if filepath.Base(path) == f {
				return converter.Result{}, &converter.ConversionError{Kind: converter.KindCorruptContent, Path: path, Err: errors.New("broken")}
			}
		}
		if strings.HasSuffix(path, ".dwg") {
			return converter.Result{}, &converter.ConversionError{Kind: converter.KindUnsupportedFormat, Path: path, Err: converter.ErrUnsupportedFormat}
		}
		text := "text of " + filepath.Base(path)
		return converter.Result{Text: text, Markdown: "# " + text}, nil
	})
}

func baseOptions(fs afero.Fs, conv converter.Converter) Options {
	return Options{
		Fs:        fs,
		Dir:       "/docs",
		Converter: conv,
		NowFn:     fixedNow,
		Policy:    report.DefaultPolicy(),
	}
}

func TestRunFourFileScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "report.docx", "plan.dwg", "scan_page.png", "data.csv")

	r, err := Run(context.Background(), baseOptions(fs, stubConverter()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.TotalDocuments != 4 || r.Summary.TotalSuccessful != 3 || r.Summary.TotalFailed != 1 {
		t.Fatalf("unexpected summary %+v", r.Summary)
	}
	if r.Summary.SuccessRate != 75 {
		t.Errorf("expected 75.0, got %v", r.Summary.SuccessRate)
	}

	dwg := r.CategorySummary(classifier.EngineeringDrawing)
	if dwg.Failed != 1 || dwg.FailedFiles[0] != "plan.dwg" {
		t.Errorf("unexpected drawing summary %+v", dwg)
	}
	failed := r.Categories[1].Outcomes[0]
	if failed.ErrorType != converter.KindUnsupportedFormat || failed.Error != "unsupported format" {
		t.Errorf("unexpected failure outcome %+v", failed)
	}
	if r.CategorySummary(classifier.ScannedDocument).Successful != 1 {
		t.Errorf("scan_page.png must be a scanned document")
	}
	if !r.Readiness.Ready || r.Readiness.OverallFraction != 0.75 {
		t.Errorf("unexpected readiness %+v", r.Readiness)
	}
	if r.TestTimestamp != "2026-03-01T09:30:00Z" {
		t.Errorf("unexpected timestamp %q", r.TestTimestamp)
	}
}

func TestRunConvertsEachFileExactlyOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	var names []string
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		names = append(names, n+".csv", n+".docx", n+".txt")
	}
	writeFiles(t, fs, "/docs", names...)

	var mu sync.Mutex
	calls := map[string]int{}
	conv := converter.Func(func(ctx context.Context, path string) (converter.Result, error) {
		mu.Lock()
		calls[path]++
		mu.Unlock()
		return converter.Result{Text: "x", Markdown: "x"}, nil
	})

	var emitted sync.Map
	opts := baseOptions(fs, conv)
	opts.Concurrency = 4
	opts.OnOutcome = func(o report.FileOutcome) {
		if _, dup := emitted.LoadOrStore(o.FileName, true); dup {
			t.Errorf("outcome for %s emitted twice", o.FileName)
		}
	}

	r, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(calls) != len(names) {
		t.Fatalf("expected %d converted files, got %d", len(names), len(calls))
	}
	for path, n := range calls {
		if n != 1 {
			t.Errorf("%s converted %d times", path, n)
		}
	}
	total := 0
	for _, c := range r.Categories {
		total += len(c.Outcomes)
	}
	if total != len(names) || r.TotalDocuments != len(names) {
		t.Errorf("expected %d outcomes, got %d", len(names), total)
	}
}

func TestRunIsIdempotentAndConcurrencyIndependent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "z.csv", "a.csv", "mal_notice.jpg", "slides.pptx", "notes.txt", "plan.dwg", "memo.docx")

	sequential := baseOptions(fs, stubConverter("a.csv"))
	first, err := Run(context.Background(), sequential)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Run(context.Background(), sequential)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two runs over the same directory differ")
	}

	parallel := sequential
	parallel.Concurrency = 8
	third, err := Run(context.Background(), parallel)
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}
	if !reflect.DeepEqual(first, third) {
		t.Fatal("concurrent run differs from sequential run")
	}
}

func TestRunGroupsByCategoryThenName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "b.docx", "a.docx", "zz_mal.png", "c.csv", "readme.txt")

	r, err := Run(context.Background(), baseOptions(fs, stubConverter()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got []string
	for _, c := range r.Categories {
		for _, o := range c.Outcomes {
			got = append(got, string(c.Category)+"/"+o.FileName)
		}
	}
	want := "malayalam_ocr/zz_mal.png,word_document/a.docx,word_document/b.docx,data_file/c.csv,other/readme.txt"
	if strings.Join(got, ",") != want {
		t.Fatalf("unexpected order:\n got %s\nwant %s", strings.Join(got, ","), want)
	}
}

func TestRunCategoryRates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "a.csv", "b.csv", "c.csv", "notes.txt")

	r, err := Run(context.Background(), baseOptions(fs, stubConverter("b.csv")))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data := r.CategorySummary(classifier.DataFile)
	if data.SuccessRate != 66.7 || data.Successful != 2 || data.Failed != 1 {
		t.Errorf("unexpected data summary %+v", data)
	}
	if empty := r.CategorySummary(classifier.HandwrittenOCR); empty.Total != 0 || empty.SuccessRate != 0 {
		t.Errorf("unexpected empty category %+v", empty)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs")

	r, err := Run(context.Background(), baseOptions(fs, stubConverter()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.TotalDocuments != 0 || r.Summary.SuccessRate != 0 || r.Readiness.Ready {
		t.Errorf("unexpected empty report %+v", r.Summary)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	r, err := Run(context.Background(), baseOptions(afero.NewMemMapFs(), stubConverter()))
	var scanErr *scanner.ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("expected ScanError, got %v", err)
	}
	if r != nil {
		t.Fatal("no report may be produced on scan failure")
	}
}

func TestRunCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "a.txt", "b.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, baseOptions(fs, stubConverter())); err == nil {
		t.Fatal("expected an error for a cancelled run")
	}
}

func TestRunSearchHits(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "notes.txt")
	opts := baseOptions(fs, converter.Func(func(ctx context.Context, path string) (converter.Result, error) {
		return converter.Result{Text: "Invoice total; invoice due", Markdown: "x"}, nil
	}))
	opts.SearchTerms = []string{"invoice", "missing"}

	r, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	hits := r.Categories[0].Outcomes[0].SearchHits
	if hits["invoice"] != 2 {
		t.Errorf("unexpected hits %v", hits)
	}
	if _, ok := hits["missing"]; ok {
		t.Errorf("absent term must not be reported: %v", hits)
	}
}

func TestCLIExerciseTimeoutIsolation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "a_slow.txt", "b.csv", "c.md", "d.txt", "e.docx")

	var mu sync.Mutex
	var attempted []string
	cli := converter.Func(func(ctx context.Context, path string) (converter.Result, error) {
		mu.Lock()
		attempted = append(attempted, filepath.Base(path))
		mu.Unlock()
		if strings.Contains(path, "slow") {
			<-ctx.Done()
			return converter.Result{}, ctx.Err()
		}
		return converter.Result{Text: "ok", Markdown: "ok"}, nil
	})

	opts := baseOptions(fs, stubConverter())
	opts.CLIConverter = cli
	opts.CLITimeout = 50 * time.Millisecond

	r, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(attempted, ",") != "a_slow.txt,b.csv,c.md" {
		t.Fatalf("unexpected CLI sample %v", attempted)
	}
	if len(r.CLIResults) != 3 {
		t.Fatalf("expected 3 CLI outcomes, got %d", len(r.CLIResults))
	}
	slow := r.CLIResults[0]
	if slow.Successful || slow.ErrorType != converter.KindTimeout || slow.Error != "Timeout" {
		t.Errorf("unexpected timeout outcome %+v", slow)
	}
	for _, o := range r.CLIResults[1:] {
		if !o.Successful {
			t.Errorf("%s should have succeeded after the timeout", o.FileName)
		}
	}
	s := r.CLISummary()
	if s.TimedOut != 1 || s.Successful != 2 || s.SuccessRate != 66.7 {
		t.Errorf("unexpected CLI summary %+v", s)
	}
	if r.TotalDocuments != 5 {
		t.Errorf("CLI outcomes must not change the main totals, got %d", r.TotalDocuments)
	}
}

func TestCLIExerciseCommandTimeout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "a_slow.txt", "b.csv")

	opts := baseOptions(fs, stubConverter())
	opts.CLIConverter = converter.NewCommand(`sh -c 'case "$1" in *slow*) sleep 5;; *) echo ok;; esac' sh {file}`, 200*time.Millisecond)
	opts.CLITimeout = 200 * time.Millisecond

	start := time.Now()
	r, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("timeout not enforced: %v", time.Since(start))
	}
	if len(r.CLIResults) != 2 {
		t.Fatalf("expected 2 CLI outcomes, got %d", len(r.CLIResults))
	}
	slow := r.CLIResults[0]
	if slow.Successful || slow.ErrorType != converter.KindTimeout || slow.Error != "Timeout" {
		t.Errorf("unexpected timeout outcome %+v", slow)
	}
	if !r.CLIResults[1].Successful {
		t.Errorf("b.csv should have succeeded after the timeout: %+v", r.CLIResults[1])
	}
}

func TestCLIExerciseSkippedWithoutCandidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "a.docx")
	opts := baseOptions(fs, stubConverter())
	opts.CLIConverter = stubConverter()

	r, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(r.CLIResults) != 0 {
		t.Errorf("expected no CLI outcomes, got %d", len(r.CLIResults))
	}
}

func TestRunRateLimited(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs", "a.txt", "b.txt", "c.txt")
	opts := baseOptions(fs, stubConverter())
	opts.MaxPerSecond = 1000

	r, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Summary.TotalSuccessful != 3 {
		t.Errorf("unexpected summary %+v", r.Summary)
	}
}

func TestIsCLIExtension(t *testing.T) {
	for ext, want := range map[string]bool{".txt": true, ".CSV": true, ".md": true, ".docx": false, "": false} {
		if got := isCLIExtension(ext); got != want {
			t.Errorf("isCLIExtension(%q) = %v, want %v", ext, got, want)
		}
	}
}
