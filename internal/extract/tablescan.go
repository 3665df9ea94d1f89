package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/record"
)

var (
	allDigits    = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	creditsValue = regexp.MustCompile(`(\d{2,3})`)
)

// TableScanner reads program data from the tables of a structured
// document, falling back to Text for anything the tables do not carry.
type TableScanner struct {
	Text *TextExtractor
	Log  *slog.Logger
}

// programLabels accumulates label/value pairs found in program tables.
type programLabels struct {
	name        string
	foreignName string
	degree      string
	speciality  string
	accredit    string
	credits     int
}

// Program scans tables for label/value rows, core-discipline tables and
// elective tables.
func (s *TableScanner) Program(doc *document.Structured) (record.EducationalProgram, []record.MainDiscipline) {
	paragraphs := doc.Text()
	labels := scanLabels(doc.Tables)

	p := record.EducationalProgram{
		Name:              labels.name,
		Speciality:        labels.speciality,
		AccreditationType: labels.accredit,
		Accreditation:     labels.credits,
	}
	if p.Name == "" {
		p.Name = labels.foreignName
	}
	if p.Name == "" {
		s.Log.Debug("no program name in tables, trying paragraph text")
		// Full name cascade: a quoted title paragraph is tried before labels.
		p.Name = s.Text.ProgramName(paragraphs)
	}

	p.Degree = canonicalDegree(labels.degree)
	if p.Degree == "" {
		p.Degree = s.Text.degree(paragraphs)
	}
	if p.Speciality == "" {
		p.Speciality = specialityCascade.run(s.Log, paragraphs)
	}
	if p.AccreditationType == "" {
		p.AccreditationType = accreditationCascade.run(s.Log, paragraphs)
	}
	if p.Accreditation == 0 {
		p.Accreditation = s.Text.credits(paragraphs, p.Degree)
	}

	if counts, ok := s.electiveCounts(doc.Tables); ok {
		p.SetElectiveCounts(counts)
	} else {
		s.Log.Debug("no elective table, using text spans")
		p.SetElectiveCounts(s.Text.ElectiveCounts(paragraphs))
	}

	core, ok := s.coreDisciplines(doc.Tables, p.Name)
	if !ok {
		s.Log.Debug("no core-discipline table, using text spans")
		core = s.Text.CoreDisciplines(paragraphs, p.Name)
	}
	return p, core
}

// Disciplines runs the block extractor over paragraphs followed by table
// rows rendered as "label: value" lines.
func (s *TableScanner) Disciplines(doc *document.Structured, limit int) []record.Discipline {
	text := doc.Text()
	if tables := doc.TablesText(); tables != "" {
		text += "\n\n" + tables
	}
	return s.Text.Disciplines(text, limit)
}

func scanLabels(tables []document.Table) programLabels {
	var l programLabels
	for _, t := range tables {
		for _, row := range t.Rows {
			label, value := labelValue(row)
			if label == "" || value == "" {
				continue
			}
			switch {
			case strings.Contains(label, "назва") && strings.Contains(label, "програм"):
				if strings.Contains(label, "іноземн") || strings.Contains(label, "англ") {
					setOnce(&l.foreignName, stripQuotes(value))
				} else {
					setOnce(&l.name, stripQuotes(value))
				}
			case strings.Contains(label, "ступінь") || strings.Contains(label, "рівень вищої"):
				setOnce(&l.degree, value)
			case strings.Contains(label, "спеціальність"):
				setOnce(&l.speciality, value)
			case strings.Contains(label, "акредитац"):
				setOnce(&l.accredit, collapseSpaces(value))
			case strings.Contains(label, "обсяг") && strings.Contains(label, "кредит"):
				if l.credits == 0 {
					l.credits = atoiOrZero(firstGroup(creditsValue, value))
				}
			}
		}
	}
	return l
}

// labelValue returns the lower-cased first cell and the first later cell
// that is non-empty and not a merged copy of the label.
func labelValue(row []string) (string, string) {
	if len(row) < 2 {
		return "", ""
	}
	label := strings.TrimSpace(row[0])
	for _, c := range row[1:] {
		c = strings.TrimSpace(c)
		if c != "" && c != label {
			return strings.ToLower(label), c
		}
	}
	return strings.ToLower(label), ""
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func tableHasCell(t document.Table, marker string) bool {
	for _, row := range t.Rows {
		for _, c := range row {
			if strings.Contains(strings.ToLower(c), marker) {
				return true
			}
		}
	}
	return false
}

func hasCodePrefix(cell, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(cell)), prefix)
}

// coreColumns holds column roles; -1 means unknown.
type coreColumns struct {
	name, credits, form, semester int
}

// headerColumns looks for a header row naming at least two column roles.
// Column 0 holds the code and never names the discipline; a "назва"
// header wins over a "компонент" one.
func headerColumns(rows [][]string) (coreColumns, bool) {
	for _, row := range rows {
		if len(row) > 0 && hasCodePrefix(row[0], "ОК") {
			break
		}
		cols := coreColumns{-1, -1, -1, -1}
		named, component := -1, -1
		for i, c := range row {
			c = strings.ToLower(c)
			switch {
			case cols.credits < 0 && strings.Contains(c, "кредит"):
				cols.credits = i
			case cols.form < 0 && (strings.Contains(c, "форма") || strings.Contains(c, "контрол")):
				cols.form = i
			case cols.semester < 0 && strings.Contains(c, "семестр"):
				cols.semester = i
			case i == 0:
			case named < 0 && strings.Contains(c, "назва"):
				named = i
			case component < 0 && strings.Contains(c, "компонент"):
				component = i
			}
		}
		cols.name = named
		if cols.name < 0 {
			cols.name = component
		}
		hits := 0
		for _, i := range []int{cols.name, cols.credits, cols.form, cols.semester} {
			if i >= 0 {
				hits++
			}
		}
		if hits >= 2 {
			return cols, true
		}
	}
	return coreColumns{}, false
}

// coreDisciplines harvests ОК rows from general-training tables. ok is
// false when the document has no such table.
func (s *TableScanner) coreDisciplines(tables []document.Table, programName string) ([]record.MainDiscipline, bool) {
	found := false
	rows := []record.MainDiscipline{}
	seen := map[string]bool{}
	for _, t := range tables {
		if !tableHasCell(t, "загальної підготовки") {
			continue
		}
		found = true
		cols, hasHeader := headerColumns(t.Rows)
		for _, row := range t.Rows {
			if len(row) == 0 || !hasCodePrefix(row[0], "ОК") {
				continue
			}
			var md record.MainDiscipline
			if hasHeader {
				md = coreRowByHeader(row, cols)
			} else {
				md = coreRowByPosition(row)
			}
			md.Code = normalizeCode(row[0])
			md.EducationalProgramName = programName
			if seen[md.Code] {
				continue
			}
			seen[md.Code] = true
			rows = append(rows, md)
		}
	}
	if !found {
		return nil, false
	}
	sortByCode(rows)
	return rows, true
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func coreRowByHeader(row []string, cols coreColumns) record.MainDiscipline {
	md := record.MainDiscipline{
		Name:         cellAt(row, cols.name),
		Loans:        parseLoans(cellAt(row, cols.credits)),
		FormControll: collapseSpaces(cellAt(row, cols.form)),
		Semestr:      leadingInt(cellAt(row, cols.semester)),
	}
	if cols.name < 0 {
		md.Name = cellAt(row, 1)
	}
	return md
}

// coreRowByPosition assumes code, name, then the first all-digit cell is
// credits and the last is the semester.
func coreRowByPosition(row []string) record.MainDiscipline {
	md := record.MainDiscipline{Name: cellAt(row, 1)}
	creditsAt := -1
	for i := 2; i < len(row); i++ {
		c := cellAt(row, i)
		switch {
		case allDigits.MatchString(c):
			if creditsAt < 0 {
				creditsAt = i
				md.Loans = parseLoans(c)
			} else {
				md.Semestr = leadingInt(c)
			}
		case md.FormControll == "" && controlFormWord.MatchString(c):
			md.FormControll = collapseSpaces(c)
		}
	}
	return md
}

// leadingInt reads "5", "5.0" or "5, 6" as 5.
func leadingInt(s string) int {
	m := numberToken.FindString(s)
	if m == "" {
		return 0
	}
	if n, err := strconv.Atoi(m); err == nil {
		return n
	}
	return int(parseLoans(m))
}

// electiveCounts counts ВК rows in elective tables by their trailing
// numeric cell. ok is false when the document has no such table.
func (s *TableScanner) electiveCounts(tables []document.Table) (map[int]int, bool) {
	found := false
	counts := map[int]int{}
	for _, t := range tables {
		if !tableHasCell(t, "вибірков") {
			continue
		}
		found = true
		for _, row := range t.Rows {
			if len(row) == 0 || !hasCodePrefix(row[0], "ВК") {
				continue
			}
			for i := len(row) - 1; i > 0; i-- {
				c := cellAt(row, i)
				if !allDigits.MatchString(c) {
					continue
				}
				if sem := leadingInt(c); sem >= 3 && sem <= 8 {
					counts[sem]++
				} else {
					s.Log.Debug("elective semester out of range", "code", row[0], "value", c)
				}
				break
			}
		}
	}
	return counts, found
}
