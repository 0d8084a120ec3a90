package report

import (
	"slices"

	"docprobe/classifier"
)

const (
	DefaultReadinessThreshold = 0.7
	DefaultOCRReadyRate       = 50.0
)

// Policy holds the thresholds the readiness verdict is judged against.
type Policy struct {
	CriticalCategories []classifier.Category
	// ReadinessThreshold is the minimum overall successful fraction.
	ReadinessThreshold float64
	// OCRReadyRate is the minimum OCR success rate, as a percentage.
	OCRReadyRate float64
}

func DefaultPolicy() Policy {
	return Policy{
		CriticalCategories: slices.Clone(classifier.CriticalDefaults),
		ReadinessThreshold: DefaultReadinessThreshold,
		OCRReadyRate:       DefaultOCRReadyRate,
	}
}

type CriticalStatus struct {
	Category   classifier.Category `json:"category"`
	Present    bool                `json:"present"`
	Successful int                 `json:"successful"`
	Ready      bool                `json:"ready"`
}

type OCRAssessment struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	SuccessRate float64 `json:"success_rate"`
	Ready       bool    `json:"ready"`
	Message     string  `json:"message"`
}

type DrawingAssessment struct {
	Total     int    `json:"total"`
	Supported bool   `json:"supported"`
	Message   string `json:"message"`
}

// Readiness is an advisory verdict. It never changes the exit status.
type Readiness struct {
	Ready              bool              `json:"ready"`
	CriticalReady      bool              `json:"critical_ready"`
	Critical           []CriticalStatus  `json:"critical"`
	OverallFraction    float64           `json:"overall_fraction"`
	Threshold          float64           `json:"threshold"`
	OCR                OCRAssessment     `json:"ocr"`
	EngineeringDrawing DrawingAssessment `json:"engineering_drawing"`
	Recommendation     string            `json:"recommendation"`
	NextSteps          []string          `json:"next_steps"`
}

const (
	RecommendationReady    = "READY FOR PRODUCTION"
	RecommendationNotReady = "NEEDS MORE TESTING"
)

var readySteps = []string{
	"Set up the batch processing pipeline",
	"Configure OCR languages for the document set",
	"Integrate with the upstream document sources",
	"Train staff on the document processing workflow",
}

var notReadySteps = []string{
	"Test with more representative document samples",
	"Configure OCR for the languages in use",
	"Set up a document preprocessing pipeline",
	"Consider additional tools for CAD files",
}

// Assess judges readiness from the category summaries of a run. A critical
// category that is absent from the run does not block readiness.
func Assess(summaries []CategoryReport, total, successful int, p Policy) Readiness {
	byCategory := make(map[classifier.Category]CategoryReport, len(summaries))
	for _, cr := range summaries {
		byCategory[cr.Category] = cr
	}

	r := Readiness{
		CriticalReady: true,
		Critical:      make([]CriticalStatus, 0, len(p.CriticalCategories)),
		Threshold:     p.ReadinessThreshold,
	}
	for _, c := range p.CriticalCategories {
		cr, present := byCategory[c]
		status := CriticalStatus{Category: c, Present: present, Successful: cr.Successful}
		status.Ready = !present || cr.Successful > 0
		if !status.Ready {
			r.CriticalReady = false
		}
		r.Critical = append(r.Critical, status)
	}

	if total > 0 {
		r.OverallFraction = float64(successful) / float64(total)
	}
	r.Ready = r.CriticalReady && r.OverallFraction >= p.ReadinessThreshold

	for _, cr := range summaries {
		if !classifier.IsOCR(cr.Category) {
			continue
		}
		r.OCR.Total += cr.Total
		r.OCR.Successful += cr.Successful
	}
	r.OCR.SuccessRate = SuccessRate(r.OCR.Successful, r.OCR.Total)
	switch {
	case r.OCR.Total == 0:
		r.OCR.Message = "No image documents tested"
	case r.OCR.SuccessRate >= p.OCRReadyRate:
		r.OCR.Ready = true
		r.OCR.Message = "OCR ready for image documents"
	default:
		r.OCR.Message = "OCR may need improvement"
	}

	drawings := byCategory[classifier.EngineeringDrawing]
	r.EngineeringDrawing.Total = drawings.Total
	switch {
	case drawings.Total == 0:
		r.EngineeringDrawing.Message = "No engineering drawings tested"
	case drawings.Successful > 0:
		r.EngineeringDrawing.Supported = true
		r.EngineeringDrawing.Message = "Basic CAD file support available"
	default:
		r.EngineeringDrawing.Message = "CAD files (.dwg) not directly supported"
	}

	if r.Ready {
		r.Recommendation = RecommendationReady
		r.NextSteps = slices.Clone(readySteps)
	} else {
		r.Recommendation = RecommendationNotReady
		r.NextSteps = slices.Clone(notReadySteps)
	}
	return r
}
