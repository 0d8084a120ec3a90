// Package classifier assigns every input file exactly one category using a
// single ordered rule table. The first matching rule wins.
package classifier

import (
	"path/filepath"
	"slices"
	"strings"

	"docprobe/scanner"
)

type Category string

const (
	MalayalamOCR           Category = "malayalam_ocr"
	HandwrittenOCR         Category = "handwritten_ocr"
	ScannedDocument        Category = "scanned_document"
	ImageOCR               Category = "image_ocr"
	EngineeringDrawing     Category = "engineering_drawing"
	WordDocument           Category = "word_document"
	PowerPointPresentation Category = "powerpoint_presentation"
	DataFile               Category = "data_file"
	Other                  Category = "other"
)

// CriticalDefaults are the categories that must each have one successful
// conversion, when present, for a run to be judged ready.
var CriticalDefaults = []Category{WordDocument, PowerPointPresentation, DataFile}

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

type rule struct {
	category   Category
	extensions []string
	// any one of these substrings must occur in the lower-cased name; empty
	// means the extension alone decides.
	nameContains []string
}

var rules = []rule{
	{category: MalayalamOCR, extensions: imageExtensions, nameContains: []string{"mal"}},
	{category: HandwrittenOCR, extensions: imageExtensions, nameContains: []string{"handwrite", "handwritten"}},
	{category: ScannedDocument, extensions: imageExtensions, nameContains: []string{"scan"}},
	{category: ImageOCR, extensions: imageExtensions},
	{category: EngineeringDrawing, extensions: []string{".dwg"}},
	{category: WordDocument, extensions: []string{".docx"}},
	{category: PowerPointPresentation, extensions: []string{".pptx"}},
	{category: DataFile, extensions: []string{".csv"}},
}

func (r rule) matches(name, ext string) bool {
	if !slices.Contains(r.extensions, ext) {
		return false
	}
	if len(r.nameContains) == 0 {
		return true
	}
	for _, s := range r.nameContains {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// Classify maps a file name and extension to its category. An empty ext is
// derived from name.
func Classify(name, ext string) Category {
	name = strings.ToLower(name)
	if ext == "" {
		ext = filepath.Ext(name)
	}
	ext = strings.ToLower(ext)
	for _, r := range rules {
		if r.matches(name, ext) {
			return r.category
		}
	}
	return Other
}

func ClassifyRecord(rec scanner.FileRecord) Category {
	return Classify(rec.Name, rec.Extension)
}

// Order returns every category in rule-table order, Other last.
func Order() []Category {
	order := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		if !slices.Contains(order, r.category) {
			order = append(order, r.category)
		}
	}
	return append(order, Other)
}

// OCRCategories lists the categories whose conversion depends on OCR.
func OCRCategories() []Category {
	return []Category{MalayalamOCR, HandwrittenOCR, ScannedDocument, ImageOCR}
}

func IsOCR(c Category) bool {
	return slices.Contains(OCRCategories(), c)
}

// Rank is the position of c in Order; unknown categories sort last.
func Rank(c Category) int {
	if i := slices.Index(Order(), c); i >= 0 {
		return i
	}
	return len(rules) + 1
}
