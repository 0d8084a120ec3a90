package metadata

import (
	"archive/zip"
	"encoding/xml"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"maps"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MinImageDimension is the smallest width or height that is not flagged as
// low resolution for OCR.
const MinImageDimension = 500

const (
	AdvisoryLowResolution = "image smaller than 500px"
	AdvisoryNotRGB        = "colour model is not RGB"
)

var officeExtensions = map[string]struct{}{
	".docx": {},
	".pptx": {},
	".xlsx": {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// ExtractMetadata returns format-specific metadata for path. It never fails:
// unreadable or unrecognised files yield an empty map.
func ExtractMetadata(fs afero.Fs, path, ext, mimeType string, maxBytes int64) map[string]interface{} {
	metadata := make(map[string]interface{})
	ext = strings.ToLower(ext)

	switch {
	case isImage(ext, mimeType):
		maps.Copy(metadata, extractImageMetadata(fs, path, maxBytes))
		maps.Copy(metadata, AnalyzeImage(fs, path))
	case ext == ".pdf" || mimeType == "application/pdf":
		maps.Copy(metadata, extractPDFMetadata(fs, path, maxBytes))
	case isOffice(ext, mimeType):
		maps.Copy(metadata, extractOfficeMetadata(fs, path, maxBytes))
	}

	return metadata
}

func isImage(ext, mimeType string) bool {
	if _, ok := imageExtensions[ext]; ok {
		return true
	}
	return strings.HasPrefix(mimeType, "image/")
}

func isOffice(ext, mimeType string) bool {
	if _, ok := officeExtensions[ext]; ok {
		return true
	}
	return strings.HasPrefix(mimeType, "application/vnd.openxmlformats-officedocument.")
}

// extractImageMetadata extracts a subset of EXIF tags from images.
func extractImageMetadata(fs afero.Fs, path string, maxBytes int64) map[string]interface{} {
	f, err := fs.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var reader io.Reader = f
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes)
	}
	x, err := exif.Decode(reader)
	if err != nil {
		return nil
	}

	meta := make(map[string]interface{})
	if tm, err := x.DateTime(); err == nil {
		meta["datetime"] = tm.Format(time.RFC3339)
	}
	if makeTag, err := x.Get(exif.Make); err == nil {
		meta["make"] = makeTag.String()
	}
	if modelTag, err := x.Get(exif.Model); err == nil {
		meta["model"] = modelTag.String()
	}
	return meta
}

// AnalyzeImage reports the dimensions and colour model of an image together
// with OCR advisories. Only the image header is decoded.
func AnalyzeImage(fs afero.Fs, path string) map[string]interface{} {
	f, err := fs.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil
	}

	model := colorModelName(cfg.ColorModel)
	advisories := make([]string, 0, 2)
	if cfg.Width < MinImageDimension || cfg.Height < MinImageDimension {
		advisories = append(advisories, AdvisoryLowResolution)
	}
	if model != "RGB" {
		advisories = append(advisories, AdvisoryNotRGB)
	}

	meta := map[string]interface{}{
		"format":      format,
		"width":       cfg.Width,
		"height":      cfg.Height,
		"color_model": model,
	}
	if len(advisories) > 0 {
		meta["advisories"] = advisories
	}
	return meta
}

func colorModelName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.YCbCrModel, color.RGBAModel, color.RGBA64Model:
		return "RGB"
	case color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.CMYKModel:
		return "CMYK"
	case color.NYCbCrAModel:
		return "RGBA"
	}
	return "unknown"
}

// extractPDFMetadata reads standard PDF document information.
func extractPDFMetadata(fs afero.Fs, path string, maxBytes int64) map[string]interface{} {
	if maxBytes > 0 {
		info, err := fs.Stat(path)
		if err != nil || info.Size() > maxBytes {
			return nil
		}
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := api.PDFInfo(f, path, nil, false, nil)
	if err != nil {
		return nil
	}

	meta := make(map[string]interface{})
	if info.Title != "" {
		meta["title"] = info.Title
	}
	if info.Author != "" {
		meta["author"] = info.Author
	}
	if info.Creator != "" {
		meta["creator"] = info.Creator
	}
	if info.Producer != "" {
		meta["producer"] = info.Producer
	}
	if info.PageCount > 0 {
		meta["pages"] = info.PageCount
	}
	return meta
}

type coreProperties struct {
	Title       string `xml:"title"`
	Subject     string `xml:"subject"`
	Creator     string `xml:"creator"`
	Keywords    string `xml:"keywords"`
	Description string `xml:"description"`
}

// extractOfficeMetadata parses docProps/core.xml from an OOXML package.
func extractOfficeMetadata(fs afero.Fs, path string, maxBytes int64) map[string]interface{} {
	f, err := fs.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil
	}

	var coreFile *zip.File
	for _, zf := range r.File {
		if zf.Name == "docProps/core.xml" {
			if maxBytes > 0 && zf.UncompressedSize64 > uint64(maxBytes) {
				return nil
			}
			coreFile = zf
			break
		}
	}
	if coreFile == nil {
		return nil
	}

	rc, err := coreFile.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	var props coreProperties
	var reader io.Reader = rc
	if maxBytes > 0 {
		reader = io.LimitReader(rc, maxBytes)
	}
	if err := xml.NewDecoder(reader).Decode(&props); err != nil {
		return nil
	}

	meta := make(map[string]interface{})
	if props.Title != "" {
		meta["title"] = props.Title
	}
	if props.Subject != "" {
		meta["subject"] = props.Subject
	}
	if props.Creator != "" {
		meta["creator"] = props.Creator
	}
	if props.Keywords != "" {
		meta["keywords"] = props.Keywords
	}
	if props.Description != "" {
		meta["description"] = props.Description
	}
	return meta
}
