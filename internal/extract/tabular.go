package extract

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/lookup"
	"github.com/dgallion1/eduparse/internal/record"
)

// DefaultLimit caps returned records when the caller passes no limit.
const DefaultLimit = 5

// MaxLimit is the largest limit honoured; larger values are clamped.
const MaxLimit = 10000

// shortTrackYes is the token that marks a shortened study term.
const shortTrackYes = "так"

// dateLayouts read numeric day-first dates. The unpadded day and month
// verbs also accept zero-padded input.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2.1.2006",
	"2/1/2006",
	"2-1-2006",
	"2.1.06",
	"2/1/06",
}

// TabularExtractor reads students and disciplines from spreadsheet rows.
type TabularExtractor struct {
	Columns StudentColumns
	Log     *slog.Logger
}

// Students maps data rows (the header row is skipped) to student records,
// resolving names through maps. At most limit rows are read, in file order.
func (x *TabularExtractor) Students(tab *document.Tabular, limit int, maps *lookup.Maps) []record.Student {
	if tab == nil || len(tab.Rows) < 2 {
		return []record.Student{}
	}
	students := make([]record.Student, 0, capFor(limit, len(tab.Rows)-1))
	c := x.Columns
	for row := 1; row < len(tab.Rows) && len(students) < limit; row++ {
		s := record.Student{
			ID:                   parseIntPtr(tab.Cell(row, c.ID)),
			Name:                 tab.Cell(row, c.Name),
			EducationStart:       x.date(tab, row, c.Start, "education_start"),
			EducationEnd:         x.date(tab, row, c.End, "education_end"),
			Course:               parseIntPtr(tab.Cell(row, c.Course)),
			IsShort:              strings.ToLower(tab.Cell(row, c.IsShort)) == shortTrackYes,
			EducationalProgramID: parseIntPtr(tab.Cell(row, c.Program)),
		}
		s.FacultyID = resolveID(maps.Faculty, tab.Cell(row, c.Faculty))
		s.EducationalDegreeID = resolveID(maps.Degree, tab.Cell(row, c.Degree))
		s.StudyFormID = resolveID(maps.StudyForm, tab.Cell(row, c.StudyForm))

		if code := tab.Cell(row, c.Group); code != "" {
			if e, ok := maps.Group.Lookup(code); ok {
				s.GroupID = intPtr(e.ID)
				s.DepartmentID = intPtr(e.DepartmentID)
			} else {
				x.Log.Debug("group not found", "row", row+1, "group", code)
			}
		}
		students = append(students, s)
	}
	return students
}

func (x *TabularExtractor) date(tab *document.Tabular, row, col int, field string) *record.EducationDate {
	cell := tab.Cell(row, col)
	if cell == "" {
		return nil
	}
	t, ok := parseDate(cell, tab.Date1904)
	if !ok {
		x.Log.Debug("unparsable date", "row", row+1, "field", field, "value", cell)
		return nil
	}
	return record.NewEducationDate(t)
}

// Disciplines binds fields by header name. Missing columns and unparsable
// numbers yield neutral defaults.
func (x *TabularExtractor) Disciplines(tab *document.Tabular, limit int) []record.Discipline {
	if tab == nil || len(tab.Rows) < 2 {
		return []record.Discipline{}
	}
	out := make([]record.Discipline, 0, capFor(limit, len(tab.Rows)-1))
	header := make(map[string]int, len(tab.Rows[0]))
	for i := range tab.Rows[0] {
		name := tab.Cell(0, i)
		if _, dup := header[name]; name != "" && !dup {
			header[name] = i
		}
	}
	get := func(row int, name string) string {
		if col, ok := header[name]; ok {
			return tab.Cell(row, col)
		}
		return ""
	}
	num := func(row int, name string) int {
		if v := parseIntPtr(get(row, name)); v != nil {
			return *v
		}
		return 0
	}

	for row := 1; row < len(tab.Rows) && len(out) < limit; row++ {
		out = append(out, record.Discipline{
			Name:           get(row, "Назва дисципліни"),
			Code:           get(row, "Код дисципліни"),
			Faculty:        get(row, "Факультет"),
			MinCountPeople: num(row, "Мін. кількість"),
			MaxCountPeople: num(row, "Макс. кількість"),
			MinCourse:      num(row, "Мін. курс"),
			MaxCourse:      num(row, "Макс. курс"),
			AddSemestr:     get(row, "Семестр"),
			DegreeLevel:    get(row, "Освітній ступінь"),
			ID:             num(row, "ID"),
			Details: record.DisciplineDetails{
				DepartmentID:                num(row, "Кафедра ID"),
				Teacher:                     get(row, "Викладач"),
				Recomend:                    get(row, "Рекомендації"),
				Prerequisites:               get(row, "Пререквізити"),
				Language:                    get(row, "Мова викладання"),
				Determination:               get(row, "Визначення"),
				WhyInterestingDetermination: get(row, "Чому цікаво"),
				ResultEducation:             get(row, "Результати навчання"),
				UsingIrl:                    get(row, "Використання в реальному житті"),
				AdditionaLiterature:         get(row, "Додаткова література"),
				TypesOfTraining:             get(row, "Види навчальних занять"),
				TypeOfControll:              get(row, "Вид контролю"),
			},
		})
	}
	return out
}

// capFor sizes a result slice by the records actually available.
func capFor(limit, available int) int {
	return max(0, min(limit, available))
}

// parseDate accepts common textual layouts and Excel serial day numbers,
// counted from 1904 when date1904 is set.
func parseDate(s string, date1904 bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 || serial > 2958465 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseIntPtr reads integers written either plainly or as whole floats
// ("17", "17.0", "17,0"). Anything else is nil.
func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func resolveID(m *lookup.Map, name string) *int {
	if e, ok := m.Lookup(name); ok {
		return intPtr(e.ID)
	}
	return nil
}

func intPtr(n int) *int { return &n }
