package samples

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsWord    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsDrawing = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresent = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsSheet   = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRel     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRel  = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
	relOffice = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relCore   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
)

// Paragraph is one Word paragraph. Style is a built-in style id such as
// "Title", "Heading1" or "ListBullet"; empty means Normal.
type Paragraph struct {
	Style string
	Text  string
}

type part struct {
	name string
	body string
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func corePart(title string) part {
	return part{
		name: "docProps/core.xml",
		body: xmlHeader + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
			`<dc:title>` + escape(title) + `</dc:title><dc:creator>docprobe</dc:creator></cp:coreProperties>`,
	}
}

func rootRels(main string) part {
	return part{
		name: "_rels/.rels",
		body: xmlHeader + `<Relationships xmlns="` + nsPkgRel + `">` +
			`<Relationship Id="rId1" Type="` + relOffice + `" Target="` + main + `"/>` +
			`<Relationship Id="rId2" Type="` + relCore + `" Target="docProps/core.xml"/>` +
			`</Relationships>`,
	}
}

func contentTypes(overrides map[string]string) part {
	var b strings.Builder
	b.WriteString(xmlHeader + `<Types xmlns="` + nsTypes + `">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		fmt.Fprintf(&b, `<Override PartName="/%s" ContentType="%s"/>`, name, overrides[name])
	}
	b.WriteString(`</Types>`)
	return part{name: "[Content_Types].xml", body: b.String()}
}

func pack(parts []part) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DOCX builds a minimal WordprocessingML package.
func DOCX(title string, paragraphs []Paragraph) ([]byte, error) {
	var body strings.Builder
	body.WriteString(xmlHeader + `<w:document xmlns:w="` + nsWord + `"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p>`)
		if p.Style != "" {
			body.WriteString(`<w:pPr><w:pStyle w:val="` + escape(p.Style) + `"/></w:pPr>`)
		}
		body.WriteString(`<w:r><w:t xml:space="preserve">` + escape(p.Text) + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	return pack([]part{
		contentTypes(map[string]string{
			"word/document.xml": "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml",
		}),
		rootRels("word/document.xml"),
		corePart(title),
		{name: "word/document.xml", body: body.String()},
	})
}

// PPTX builds a presentation with one text box per slide; each string in a
// slide becomes one paragraph.
func PPTX(title string, slides [][]string) ([]byte, error) {
	overrides := map[string]string{
		"ppt/presentation.xml": "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml",
	}
	var pres, presRels strings.Builder
	pres.WriteString(xmlHeader + `<p:presentation xmlns:p="` + nsPresent + `" xmlns:r="` + nsRel + `"><p:sldIdLst>`)
	presRels.WriteString(xmlHeader + `<Relationships xmlns="` + nsPkgRel + `">`)

	parts := make([]part, 0, len(slides)+5)
	for i, lines := range slides {
		n := i + 1
		name := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		overrides[name] = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
		fmt.Fprintf(&pres, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, n)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="%s/slide" Target="slides/slide%d.xml"/>`, n, nsRel, n)

		var slide strings.Builder
		slide.WriteString(xmlHeader + `<p:sld xmlns:a="` + nsDrawing + `" xmlns:p="` + nsPresent + `"><p:cSld><p:spTree><p:sp><p:txBody><a:bodyPr/>`)
		for _, line := range lines {
			slide.WriteString(`<a:p><a:r><a:t>` + escape(line) + `</a:t></a:r></a:p>`)
		}
		slide.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
		parts = append(parts, part{name: name, body: slide.String()})
	}
	pres.WriteString(`</p:sldIdLst></p:presentation>`)
	presRels.WriteString(`</Relationships>`)

	return pack(append([]part{
		contentTypes(overrides),
		rootRels("ppt/presentation.xml"),
		corePart(title),
		{name: "ppt/presentation.xml", body: pres.String()},
		{name: "ppt/_rels/presentation.xml.rels", body: presRels.String()},
	}, parts...))
}

// XLSX builds a single-sheet workbook. Cells that parse as numbers are
// stored as numbers, everything else goes through the shared string table.
func XLSX(sheetName string, rows [][]string) ([]byte, error) {
	var shared []string
	index := map[string]int{}
	var sheet strings.Builder
	sheet.WriteString(xmlHeader + `<worksheet xmlns="` + nsSheet + `"><sheetData>`)
	for r, row := range rows {
		fmt.Fprintf(&sheet, `<row r="%d">`, r+1)
		for c, value := range row {
			ref := fmt.Sprintf("%s%d", columnName(c), r+1)
			if isNumber(value) {
				fmt.Fprintf(&sheet, `<c r="%s"><v>%s</v></c>`, ref, value)
				continue
			}
			idx, ok := index[value]
			if !ok {
				idx = len(shared)
				index[value] = idx
				shared = append(shared, value)
			}
			fmt.Fprintf(&sheet, `<c r="%s" t="s"><v>%d</v></c>`, ref, idx)
		}
		sheet.WriteString(`</row>`)
	}
	sheet.WriteString(`</sheetData></worksheet>`)

	var sst strings.Builder
	fmt.Fprintf(&sst, xmlHeader+`<sst xmlns="%s" count="%d" uniqueCount="%d">`, nsSheet, len(shared), len(shared))
	for _, s := range shared {
		sst.WriteString(`<si><t>` + escape(s) + `</t></si>`)
	}
	sst.WriteString(`</sst>`)

	workbook := xmlHeader + `<workbook xmlns="` + nsSheet + `" xmlns:r="` + nsRel + `"><sheets>` +
		`<sheet name="` + escape(sheetName) + `" sheetId="1" r:id="rId1"/></sheets></workbook>`
	workbookRels := xmlHeader + `<Relationships xmlns="` + nsPkgRel + `">` +
		`<Relationship Id="rId1" Type="` + nsRel + `/worksheet" Target="worksheets/sheet1.xml"/>` +
		`<Relationship Id="rId2" Type="` + nsRel + `/sharedStrings" Target="sharedStrings.xml"/>` +
		`</Relationships>`

	return pack([]part{
		contentTypes(map[string]string{
			"xl/workbook.xml":          "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml",
			"xl/worksheets/sheet1.xml": "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml",
			"xl/sharedStrings.xml":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml",
		}),
		rootRels("xl/workbook.xml"),
		corePart(sheetName),
		{name: "xl/workbook.xml", body: workbook},
		{name: "xl/_rels/workbook.xml.rels", body: workbookRels},
		{name: "xl/worksheets/sheet1.xml", body: sheet.String()},
		{name: "xl/sharedStrings.xml", body: sst.String()},
	})
}

func columnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		case r == '-' && i == 0 && len(s) > 1:
		default:
			return false
		}
	}
	return true
}
