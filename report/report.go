// Package report folds per-file conversion outcomes into category and run
// level statistics and a readiness verdict.
package report

import (
	"math"
	"strings"
	"unicode/utf8"

	"docprobe/classifier"
	"docprobe/converter"
	"docprobe/scanner"
	"docprobe/systeminfo"
)

const SchemaVersion = "1.0.0"

const previewEllipsis = "..."

// FileOutcome is the terminal state of one conversion attempt.
type FileOutcome struct {
	FileName   string
	Path       string
	Category   classifier.Category
	FileSize   int64
	Successful bool
	Timestamp  string

	MarkdownLength int
	TextLength     int
	HasContent     bool
	Preview        string

	Error     string
	ErrorType converter.Kind

	ModTime      string
	CreationTime string

	MimeType   string
	Hashes     map[string]string
	Metadata   map[string]interface{}
	SearchHits map[string]int
}

func newOutcome(rec scanner.FileRecord, category classifier.Category, timestamp string) FileOutcome {
	return FileOutcome{
		FileName:     rec.Name,
		Path:         rec.Path,
		Category:     category,
		FileSize:     rec.Size,
		Timestamp:    timestamp,
		ModTime:      rec.ModTime,
		CreationTime: rec.CreationTime,
		MimeType:     rec.MimeType,
		Hashes:       rec.Hashes,
		Metadata:     rec.Metadata,
	}
}

// Success records a converted file. Lengths count Unicode code points.
func Success(rec scanner.FileRecord, category classifier.Category, res converter.Result, previewLength int, timestamp string) FileOutcome {
	o := newOutcome(rec, category, timestamp)
	o.Successful = true
	o.MarkdownLength = utf8.RuneCountInString(res.Markdown)
	o.TextLength = utf8.RuneCountInString(res.Text)
	o.HasContent = strings.TrimSpace(res.Text) != ""
	o.Preview = Preview(res.Text, previewLength)
	o.Metadata = mergeMetadata(rec.Metadata, res.Metadata)
	return o
}

// Failure records a file whose conversion returned err.
func Failure(rec scanner.FileRecord, category classifier.Category, err error, timestamp string) FileOutcome {
	o := newOutcome(rec, category, timestamp)
	o.Successful = false
	o.ErrorType = converter.KindOf(err)
	if err != nil {
		o.Error = err.Error()
	}
	if o.ErrorType == converter.KindTimeout {
		o.Error = string(converter.KindTimeout)
	}
	return o
}

// Preview returns the first n characters of text, with "..." appended when
// text is longer.
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i] + previewEllipsis
		}
		count++
	}
	return text
}

// SuccessRate is successful/total as a percentage rounded to one decimal.
// An empty population has rate 0.
func SuccessRate(successful, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*1000) / 10
}

func mergeMetadata(scanned, converted map[string]interface{}) map[string]interface{} {
	if len(scanned) == 0 && len(converted) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(scanned)+len(converted))
	for k, v := range scanned {
		merged[k] = v
	}
	for k, v := range converted {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return merged
}

// CategoryReport aggregates the outcomes of one category.
type CategoryReport struct {
	Category    classifier.Category `json:"-"`
	Total       int                 `json:"total"`
	Successful  int                 `json:"successful"`
	Failed      int                 `json:"failed"`
	SuccessRate float64             `json:"success_rate"`
	FailedFiles []string            `json:"failed_files"`
}

// Summarize builds the CategoryReport for outcomes.
func Summarize(category classifier.Category, outcomes []FileOutcome) CategoryReport {
	cr := CategoryReport{Category: category, Total: len(outcomes), FailedFiles: []string{}}
	for _, o := range outcomes {
		if o.Successful {
			cr.Successful++
			continue
		}
		cr.Failed++
		cr.FailedFiles = append(cr.FailedFiles, o.FileName)
	}
	cr.SuccessRate = SuccessRate(cr.Successful, cr.Total)
	return cr
}

// CategoryOutcomes holds the outcomes of one category, ordered by file name.
type CategoryOutcomes struct {
	Category classifier.Category
	Outcomes []FileOutcome
}

type Summary struct {
	TotalSuccessful int     `json:"total_successful"`
	TotalFailed     int     `json:"total_failed"`
	SuccessRate     float64 `json:"success_rate"`
}

// CLISummary aggregates the command-line exercise.
type CLISummary struct {
	Attempted   int     `json:"attempted"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	TimedOut    int     `json:"timed_out"`
	SuccessRate float64 `json:"success_rate"`
}

// RunReport is everything one run produced.
type RunReport struct {
	SchemaVersion     string
	TestTimestamp     string
	ConverterVersion  *string
	InputDir          string
	TotalDocuments    int
	Categories        []CategoryOutcomes
	CategorySummaries []CategoryReport
	CLIResults        []FileOutcome
	Summary           Summary
	Readiness         Readiness
	Environment       *systeminfo.SystemInfo
}

// CategorySummary returns the report for c, or a zero report when c had no
// files in this run.
func (r *RunReport) CategorySummary(c classifier.Category) CategoryReport {
	for _, cr := range r.CategorySummaries {
		if cr.Category == c {
			return cr
		}
	}
	return Summarize(c, nil)
}

// CLISummary aggregates CLIResults.
func (r *RunReport) CLISummary() CLISummary {
	s := CLISummary{Attempted: len(r.CLIResults)}
	for _, o := range r.CLIResults {
		switch {
		case o.Successful:
			s.Successful++
		case o.ErrorType == converter.KindTimeout:
			s.TimedOut++
			s.Failed++
		default:
			s.Failed++
		}
	}
	s.SuccessRate = SuccessRate(s.Successful, s.Attempted)
	return s
}
