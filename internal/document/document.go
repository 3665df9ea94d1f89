// Package document turns raw uploaded bytes into one of three shapes the
// extraction engine understands: a tabular grid, a linear text stream, or a
// structured document with paragraphs and tables.
package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format tags how a document exposes its content.
type Format string

const (
	FormatTabular    Format = "tabular"
	FormatLinearText Format = "linear-text"
	FormatStructured Format = "structured-text"
)

// Handle is a document's bytes plus its format tag. It is owned by the
// caller and never retained past a single extraction.
type Handle struct {
	Name   string
	Format Format
	Data   []byte
}

// Ext returns the lower-cased file extension of the handle's name.
func (h *Handle) Ext() string {
	return strings.ToLower(filepath.Ext(h.Name))
}

// extensionFormats lists file extensions this service can handle.
var extensionFormats = map[string]Format{
	".xlsx":     FormatTabular,
	".xlsm":     FormatTabular,
	".csv":      FormatTabular,
	".pdf":      FormatLinearText,
	".txt":      FormatLinearText,
	".md":       FormatLinearText,
	".markdown": FormatLinearText,
	".html":     FormatLinearText,
	".htm":      FormatLinearText,
	".docx":     FormatStructured,
}

// FormatForFile returns the format tag for a filename.
func FormatForFile(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := extensionFormats[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension: %q", ext)
	}
	return f, nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, err := FormatForFile(filename)
	return err == nil
}

// NewHandle wraps data under name, tagging it by extension.
func NewHandle(name string, data []byte) (*Handle, error) {
	f, err := FormatForFile(name)
	if err != nil {
		return nil, err
	}
	return &Handle{Name: name, Format: f, Data: data}, nil
}

// Tabular is a row/column grid. Rows may be ragged; missing trailing cells
// read as empty.
type Tabular struct {
	Rows [][]string
	// Date1904 marks workbooks whose serial dates count from 1904.
	Date1904 bool
}

// Cell returns the trimmed cell at (row, col), or "" when out of range.
func (t *Tabular) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Table is a table embedded in a structured document.
type Table struct {
	Rows [][]string
}

// Structured is a document exposing both paragraph text and tables, in
// document order within each list.
type Structured struct {
	Paragraphs []string
	Tables     []Table
}

// Text joins the paragraphs into a linear text stream. Empty paragraphs
// become blank lines so block boundaries survive.
func (s *Structured) Text() string {
	return strings.Join(s.Paragraphs, "\n")
}

// TablesText renders every table as one block of "label: value" lines,
// blocks separated by blank lines.
func (s *Structured) TablesText() string {
	var sb strings.Builder
	for _, t := range s.Tables {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		for i, row := range t.Rows {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RowText(row))
		}
	}
	return sb.String()
}

// RowText renders a table row as "first: rest..." so label/value rows read
// like the labelled lines of a text document. Consecutive duplicate cells
// (horizontally merged) are collapsed.
func RowText(cells []string) string {
	var parts []string
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(parts) > 0 && parts[len(parts)-1] == c {
			continue
		}
		parts = append(parts, c)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[0] + ": " + strings.Join(parts[1:], " ")
}

// Decoder opens handles into their content shape.
type Decoder struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	FallbackPdftotext bool
}

// Tabular decodes a workbook or CSV file.
func (d *Decoder) Tabular(h *Handle) (*Tabular, error) {
	switch h.Ext() {
	case ".xlsx", ".xlsm":
		return decodeXLSX(h.Data)
	case ".csv":
		return decodeCSV(h.Data)
	}
	return nil, fmt.Errorf("%s is not a tabular document", h.Name)
}

// Text decodes a linear-text document into a normalized text stream.
func (d *Decoder) Text(h *Handle) (string, error) {
	var (
		text string
		err  error
	)
	switch h.Ext() {
	case ".pdf":
		text, err = decodePDF(h.Data, d.FallbackPdftotext)
	case ".txt":
		text, err = decodePlain(h.Data)
	case ".md", ".markdown":
		text, err = decodeMarkdown(h.Data)
	case ".html", ".htm":
		text, err = decodeHTML(h.Data)
	default:
		return "", fmt.Errorf("%s is not a linear-text document", h.Name)
	}
	if err != nil {
		return "", err
	}
	return NormalizeText(text), nil
}

// Structured decodes a word-processor document.
func (d *Decoder) Structured(h *Handle) (*Structured, error) {
	if h.Ext() != ".docx" {
		return nil, fmt.Errorf("%s is not a structured document", h.Name)
	}
	return decodeDOCX(h.Data)
}
