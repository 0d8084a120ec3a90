package report

import (
	"sort"

	"docprobe/classifier"
	"docprobe/systeminfo"
)

// Meta carries the run-level fields that do not come from outcomes.
type Meta struct {
	Timestamp        string
	ConverterVersion *string
	InputDir         string
	Environment      *systeminfo.SystemInfo
}

// Accumulator folds outcomes into a RunReport. It is a plain value owned
// by one run; callers add outcomes from a single goroutine.
type Accumulator struct {
	byCategory map[classifier.Category][]FileOutcome
	cli        []FileOutcome
	total      int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{byCategory: make(map[classifier.Category][]FileOutcome)}
}

// Add records the outcome of one main-pass conversion.
func (a *Accumulator) Add(o FileOutcome) {
	a.byCategory[o.Category] = append(a.byCategory[o.Category], o)
	a.total++
}

// AddCLI records the outcome of one command-line conversion. CLI outcomes
// do not count towards the run summary.
func (a *Accumulator) AddCLI(o FileOutcome) {
	a.cli = append(a.cli, o)
}

// Len reports how many main-pass outcomes have been added.
func (a *Accumulator) Len() int { return a.total }

// Finish builds the RunReport. Categories follow classifier.Order and files
// inside a category are ordered by name, whatever order they were added in.
func (a *Accumulator) Finish(meta Meta, policy Policy) *RunReport {
	r := &RunReport{
		SchemaVersion:    SchemaVersion,
		TestTimestamp:    meta.Timestamp,
		ConverterVersion: meta.ConverterVersion,
		InputDir:         meta.InputDir,
		TotalDocuments:   a.total,
		CLIResults:       append([]FileOutcome{}, a.cli...),
		Environment:      meta.Environment,
	}

	for _, c := range classifier.Order() {
		outcomes := a.byCategory[c]
		if len(outcomes) == 0 {
			continue
		}
		sorted := append([]FileOutcome(nil), outcomes...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FileName < sorted[j].FileName })

		r.Categories = append(r.Categories, CategoryOutcomes{Category: c, Outcomes: sorted})
		cr := Summarize(c, sorted)
		r.CategorySummaries = append(r.CategorySummaries, cr)
		r.Summary.TotalSuccessful += cr.Successful
		r.Summary.TotalFailed += cr.Failed
	}
	r.Summary.SuccessRate = SuccessRate(r.Summary.TotalSuccessful, r.TotalDocuments)
	r.Readiness = Assess(r.CategorySummaries, r.TotalDocuments, r.Summary.TotalSuccessful, policy)
	return r
}
