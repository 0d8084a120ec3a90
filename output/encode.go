package output

import (
	"bytes"

	"docprobe/report"
)

// jsonContainer writes a JSON object or array whose members are added in
// call order. Values are marshalled with jsonMarshalIndent so nested output
// lines up with the surrounding indentation.
type jsonContainer struct {
	buf    *bytes.Buffer
	indent string
	closer byte
	empty  bool
	err    error
}

func openObject(buf *bytes.Buffer, indent string) *jsonContainer {
	buf.WriteByte('{')
	return &jsonContainer{buf: buf, indent: indent, closer: '}', empty: true}
}

func openArray(buf *bytes.Buffer, indent string) *jsonContainer {
	buf.WriteByte('[')
	return &jsonContainer{buf: buf, indent: indent, closer: ']', empty: true}
}

func (c *jsonContainer) next() {
	if !c.empty {
		c.buf.WriteByte(',')
	}
	c.buf.WriteString("\n" + c.indent + "  ")
	c.empty = false
}

func (c *jsonContainer) key(k string) bool {
	if c.err != nil {
		return false
	}
	kb, err := jsonMarshal(k)
	if err != nil {
		c.err = err
		return false
	}
	c.next()
	c.buf.Write(kb)
	c.buf.WriteString(": ")
	return true
}

func (c *jsonContainer) value(v any) {
	b, err := jsonMarshalIndent(v, c.indent+"  ", "  ")
	if err != nil {
		c.err = err
		return
	}
	c.buf.Write(b)
}

func (c *jsonContainer) field(k string, v any) {
	if c.key(k) {
		c.value(v)
	}
}

// nested adds a member whose value is written by fn at the next indentation
// level.
func (c *jsonContainer) nested(k string, fn func(indent string) error) {
	if !c.key(k) {
		return
	}
	if err := fn(c.indent + "  "); err != nil {
		c.err = err
	}
}

func (c *jsonContainer) item(fn func(indent string) error) {
	if c.err != nil {
		return
	}
	c.next()
	if err := fn(c.indent + "  "); err != nil {
		c.err = err
	}
}

func (c *jsonContainer) close() error {
	if !c.empty {
		c.buf.WriteString("\n" + c.indent)
	}
	c.buf.WriteByte(c.closer)
	return c.err
}

// encodeReport renders r with its keys in a fixed order.
func encodeReport(r *report.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	root := openObject(&buf, "")
	root.field("schema_version", r.SchemaVersion)
	root.field("test_timestamp", r.TestTimestamp)
	root.field("converter_version", r.ConverterVersion)
	root.field("input_dir", r.InputDir)
	root.field("total_documents", r.TotalDocuments)
	root.nested("categories", func(indent string) error {
		cats := openObject(&buf, indent)
		for _, c := range r.Categories {
			cats.nested(string(c.Category), func(indent string) error {
				return writeOutcomes(&buf, indent, c.Outcomes)
			})
		}
		return cats.close()
	})
	root.nested("category_summaries", func(indent string) error {
		sums := openObject(&buf, indent)
		for _, cr := range r.CategorySummaries {
			sums.field(string(cr.Category), cr)
		}
		return sums.close()
	})
	root.nested("cli_results", func(indent string) error {
		return writeOutcomes(&buf, indent, r.CLIResults)
	})
	root.field("summary", r.Summary)
	root.field("readiness", r.Readiness)
	if r.Environment != nil {
		root.field("environment", r.Environment)
	}
	if err := root.close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeOutcomes(buf *bytes.Buffer, indent string, outcomes []report.FileOutcome) error {
	arr := openArray(buf, indent)
	for _, o := range outcomes {
		arr.item(func(indent string) error {
			return writeOutcome(buf, indent, o)
		})
	}
	return arr.close()
}

func writeOutcome(buf *bytes.Buffer, indent string, o report.FileOutcome) error {
	obj := openObject(buf, indent)
	obj.field("file_name", o.FileName)
	obj.field("category", o.Category)
	obj.field("file_size", o.FileSize)
	obj.field("conversion_successful", o.Successful)
	obj.field("timestamp", o.Timestamp)
	if o.Successful {
		obj.field("markdown_length", o.MarkdownLength)
		obj.field("text_length", o.TextLength)
		obj.field("has_content", o.HasContent)
		obj.field("preview", o.Preview)
	} else {
		obj.field("error", o.Error)
		obj.field("error_type", o.ErrorType)
	}
	if o.ModTime != "" {
		obj.field("mod_time", o.ModTime)
	}
	if o.CreationTime != "" {
		obj.field("creation_time", o.CreationTime)
	}
	if o.MimeType != "" {
		obj.field("mime_type", o.MimeType)
	}
	if len(o.Hashes) > 0 {
		obj.field("hashes", o.Hashes)
	}
	if len(o.Metadata) > 0 {
		obj.field("metadata", o.Metadata)
	}
	if len(o.SearchHits) > 0 {
		obj.field("search_hits", o.SearchHits)
	}
	return obj.close()
}
