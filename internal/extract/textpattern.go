package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/eduparse/internal/record"
)

// TextExtractor pulls records out of a flat text stream by label patterns.
type TextExtractor struct {
	Log *slog.Logger
}

// labelled builds a case-insensitive "label: value" pattern. The label must
// start a word; value is captured by the supplied group.
func labelled(label, value string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}])` + label + `[:\s]+` + value)
}

const restOfLine = `([^\n]+)`

var (
	blockSplit      = regexp.MustCompile(`\n\s*\n`)
	disciplineLabel = regexp.MustCompile(`(?i)назва\s+дисципліни|код\s+дисципліни`)

	disciplineName    = labelled(`назва(?:\s+дисципліни)?`, restOfLine)
	disciplineCode    = labelled(`код(?:\s+дисципліни)?`, restOfLine)
	disciplineFaculty = labelled(`факультет`, restOfLine)
	minCount          = labelled(`мін(?:імальна)?\.?(?:\s+кількість)?(?:\s+(?:студентів|осіб|здобувачів))?`, `(\d+)`)
	maxCount          = labelled(`макс(?:имальна)?\.?(?:\s+кількість)?(?:\s+(?:студентів|осіб|здобувачів))?`, `(\d+)`)
	minCourse         = labelled(`мін(?:імальний)?\.?\s+курс`, `(\d+)`)
	maxCourse         = labelled(`макс(?:имальний)?\.?\s+курс`, `(\d+)`)
	semesterLabel     = labelled(`семестр`, restOfLine)
	degreeLevel       = labelled(`освітній\s+ступінь`, restOfLine)
	disciplineID      = regexp.MustCompile(`(?im)^[ \t]*id[:\s]+(\d+)`)
	departmentID      = labelled(`кафедра\s+id`, `(\d+)`)

	detailPatterns = []struct {
		re  *regexp.Regexp
		set func(*record.DisciplineDetails, string)
	}{
		{labelled(`викладач`, restOfLine), func(d *record.DisciplineDetails, v string) { d.Teacher = v }},
		{labelled(`рекомендації`, restOfLine), func(d *record.DisciplineDetails, v string) { d.Recomend = v }},
		{labelled(`пререквізити`, restOfLine), func(d *record.DisciplineDetails, v string) { d.Prerequisites = v }},
		{labelled(`мова\s+викладання`, restOfLine), func(d *record.DisciplineDetails, v string) { d.Language = v }},
		{labelled(`визначення`, restOfLine), func(d *record.DisciplineDetails, v string) { d.Determination = v }},
		{labelled(`чому\s+цікаво`, restOfLine), func(d *record.DisciplineDetails, v string) { d.WhyInterestingDetermination = v }},
		{labelled(`результати\s+навчання`, restOfLine), func(d *record.DisciplineDetails, v string) { d.ResultEducation = v }},
		{labelled(`використання\s+в\s+реальному\s+житті`, restOfLine), func(d *record.DisciplineDetails, v string) { d.UsingIrl = v }},
		{labelled(`додаткова\s+література`, restOfLine), func(d *record.DisciplineDetails, v string) { d.AdditionaLiterature = v }},
		{labelled(`види\s+навчальних\s+занять`, restOfLine), func(d *record.DisciplineDetails, v string) { d.TypesOfTraining = v }},
		{labelled(`вид\s+контролю`, restOfLine), func(d *record.DisciplineDetails, v string) { d.TypeOfControll = v }},
	}
)

// Disciplines splits text into blank-line separated blocks and reads one
// discipline from each block that carries a name or code label.
func (x *TextExtractor) Disciplines(text string, limit int) []record.Discipline {
	blocks := blockSplit.Split(text, -1)
	out := make([]record.Discipline, 0, capFor(limit, len(blocks)))
	for _, block := range blocks {
		if len(out) >= limit {
			break
		}
		if !disciplineLabel.MatchString(block) {
			continue
		}
		out = append(out, x.discipline(block))
	}
	return out
}

func (x *TextExtractor) discipline(block string) record.Discipline {
	d := record.Discipline{
		Name:           firstGroup(disciplineName, block),
		Code:           firstGroup(disciplineCode, block),
		Faculty:        firstGroup(disciplineFaculty, block),
		MinCountPeople: firstInt(minCount, block),
		MaxCountPeople: firstInt(maxCount, block),
		MinCourse:      firstInt(minCourse, block),
		MaxCourse:      firstInt(maxCourse, block),
		AddSemestr:     firstGroup(semesterLabel, block),
		DegreeLevel:    firstGroup(degreeLevel, block),
		ID:             firstInt(disciplineID, block),
	}
	d.Details.DepartmentID = firstInt(departmentID, block)
	for _, p := range detailPatterns {
		p.set(&d.Details, firstGroup(p.re, block))
	}
	if d.Name == "" {
		x.Log.Debug("discipline block without name", "code", d.Code)
	}
	return d
}

// firstGroup returns the trimmed first capture of re in s, or "".
func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func firstInt(re *regexp.Regexp, s string) int {
	n, err := strconv.Atoi(firstGroup(re, s))
	if err != nil {
		return 0
	}
	return n
}
