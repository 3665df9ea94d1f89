package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// decodeDOCX walks the document body in order, collecting paragraph text and
// the cell text of every table. Tables nested inside cells are appended after
// their parent.
func decodeDOCX(data []byte) (*Structured, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := &Structured{}
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			out.Paragraphs = append(out.Paragraphs, docxParagraphText(it))
		case *docx.Table:
			out.Tables = appendDocxTable(out.Tables, it)
		}
	}
	return out, nil
}

func appendDocxTable(tables []Table, tbl *docx.Table) []Table {
	t := Table{Rows: make([][]string, 0, len(tbl.TableRows))}
	var nested []*docx.Table
	for _, row := range tbl.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			parts := make([]string, 0, len(cell.Paragraphs))
			for _, p := range cell.Paragraphs {
				if s := docxParagraphText(p); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
			nested = append(nested, cell.Tables...)
		}
		t.Rows = append(t.Rows, cells)
	}
	tables = append(tables, t)
	for _, n := range nested {
		tables = appendDocxTable(tables, n)
	}
	return tables
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeDocxRun(&buf, c)
		case *docx.Hyperlink:
			writeDocxRun(&buf, &c.Run)
		}
	}
	return strings.TrimSpace(buf.String())
}

func writeDocxRun(buf *strings.Builder, run *docx.Run) {
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		}
	}
}
