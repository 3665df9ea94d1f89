package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dgallion1/eduparse/internal/record"
)

const (
	degreeBachelor = "бакалавр"
	degreeMaster   = "магістр"
	degreeDoctor   = "доктор філософії"

	bachelorCredits = 240
	otherCredits    = 120

	// Core harvesting stops trying looser patterns once this many rows
	// are found. It is not a cap on the result.
	coreYieldTarget = 5
)

const controlForm = `(?:диференційований\s+залік|диф\.?\s*залік|екзамен|залік)`

var (
	quotedProgramName = regexp.MustCompile(`(?i)(?:освітньо-професійн\p{L}*|освітньо-науков\p{L}*|освітн\p{L}*)\s+програм\p{L}*\s*[«"“„]([^»"”“\n]+)[»"”“]`)
	labelProgramName  = labelled(`(?:назва|найменування)(?:\s+освітньої)?(?:\s+програми)?`, restOfLine)

	degreeVocabulary    = labelled(`(?:освітній\s+)?ступінь(?:\s+вищої\s+освіти)?`, `(бакалавр|магістр|доктор\s+філософії)`)
	degreeParenthetical = regexp.MustCompile(`(?i)\([^()\n]*?,\s*(бакалавр|магістр)\p{L}*\s*\)`)

	specialityColon = regexp.MustCompile(`(?i)(?:^|[^\p{L}])спеціальність\s*:\s*([^\n]+)`)
	specialityLoose = labelled(`спеціальн\p{L}*`, restOfLine)

	creditsNearVolume = regexp.MustCompile(`(?i)обсяг[^\n\d]{0,120}(\d{2,3})\s*кредит`)
	creditsAnywhere   = regexp.MustCompile(`(?i)(\d{2,3})\s*кредит\p{L}*\s*(?:ЄКТС|ECTS)?`)

	accreditationLine = regexp.MustCompile(`(?im)^[^\n]*акредитац\p{L}*[^\n:]*:[ \t]*([^\n]*)$`)
	nextLabelLine     = regexp.MustCompile(`^\s*\p{L}[^:\n]{0,60}:`)

	coreSpanStart     = regexp.MustCompile(`(?i)цикл\s+загальної\s+підготовки`)
	electiveSpanStart = regexp.MustCompile(`(?i)вибірков\p{L}*\s+компонент\p{L}*`)
	electiveHeading   = regexp.MustCompile(`(?im)^[ \t]*(?:\d+(?:\.\d+)*\.?[ \t]*)?вибірков\p{L}*\s+компонент\p{L}*`)
	electiveSpanEnd   = regexp.MustCompile(`(?i)атестаці|цикл\s+професійної|усього|разом|загальний\s+обсяг`)

	coreRowStrict = regexp.MustCompile(`(?im)^[ \t]*(ОК[ \t]*\d+(?:\.\d+)*)\.?[ \t]+(.+?)[ \t]+(\d+(?:[.,]\d+)?)[ \t]+(` +
		controlForm + `(?:[ \t]*[,/;][ \t]*` + controlForm + `)*)[ \t]+(\d{1,2})[ \t]*$`)
	coreRowLoose     = regexp.MustCompile(`(?im)^[ \t]*(ОК[ \t]*\d+(?:\.\d+)*)\.?[ \t]+([^\n]+)$`)
	controlFormWord  = regexp.MustCompile(`(?i)` + controlForm)
	numberToken      = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	trailingSemester = regexp.MustCompile(`(?:^|\s)(\d{1,2})\s*$`)

	electiveRowStrict = regexp.MustCompile(`(?im)^[ \t]*(ВК[ \t]*\d+(?:\.\d+)*)\.?[ \t]+(.+?)[ \t]+(\d+(?:[.,]\d+)?)[ \t]+(?:[^\n]*?[ \t])?([3-8])[ \t]*$`)
	electiveRowLoose  = regexp.MustCompile(`(?im)^[ \t]*ВК[^\n]*[^\d\n.,]([3-8])[ \t]*$`)
)

var (
	nameCascade = cascade[string]{
		concern: "program name",
		enough:  nonEmpty,
		stages: []stage[string]{
			{"quoted title", func(text, _ string) (string, error) {
				return firstGroup(quotedProgramName, text), nil
			}},
			{"name label", func(text, _ string) (string, error) {
				return stripQuotes(firstGroup(labelProgramName, text)), nil
			}},
		},
	}

	degreeCascade = cascade[string]{
		concern: "degree",
		enough:  nonEmpty,
		stages: []stage[string]{
			{"degree label", func(text, _ string) (string, error) {
				return canonicalDegree(firstGroup(degreeVocabulary, text)), nil
			}},
			{"level parenthetical", func(text, _ string) (string, error) {
				return canonicalDegree(firstGroup(degreeParenthetical, text)), nil
			}},
		},
	}

	specialityCascade = cascade[string]{
		concern: "speciality",
		enough:  nonEmpty,
		stages: []stage[string]{
			{"speciality label", func(text, _ string) (string, error) {
				return firstGroup(specialityColon, text), nil
			}},
			{"speciality word", func(text, _ string) (string, error) {
				return firstGroup(specialityLoose, text), nil
			}},
		},
	}

	creditsCascade = cascade[int]{
		concern: "credits",
		enough:  func(n int) bool { return n > 0 },
		stages: []stage[int]{
			{"volume label", func(text string, _ int) (int, error) {
				return atoiOrZero(firstGroup(creditsNearVolume, text)), nil
			}},
			{"credit count", func(text string, _ int) (int, error) {
				return atoiOrZero(firstGroup(creditsAnywhere, text)), nil
			}},
		},
	}

	accreditationCascade = cascade[string]{
		concern: "accreditation",
		enough:  nonEmpty,
		stages:  []stage[string]{{"accreditation label", accreditationNote}},
	}

	coreCascade = cascade[[]record.MainDiscipline]{
		concern: "core disciplines",
		enough:  func(rows []record.MainDiscipline) bool { return len(rows) >= coreYieldTarget },
		stages: []stage[[]record.MainDiscipline]{
			{"strict core row", strictCoreRows},
			{"loose core row", looseCoreRows},
		},
	}

	electiveCascade = cascade[map[int]int]{
		concern: "elective counts",
		enough:  func(c map[int]int) bool { return len(c) > 0 },
		stages: []stage[map[int]int]{
			{"strict elective row", func(text string, _ map[int]int) (map[int]int, error) {
				return countSemesters(electiveRowStrict, 4, text), nil
			}},
			{"trailing semester digit", func(text string, _ map[int]int) (map[int]int, error) {
				return countSemesters(electiveRowLoose, 1, text), nil
			}},
		},
	}
)

// Program reads program metadata, core disciplines and elective counts
// from a text stream. Every field is best effort.
func (x *TextExtractor) Program(text string) (record.EducationalProgram, []record.MainDiscipline) {
	p := record.EducationalProgram{
		Name:              x.ProgramName(text),
		Degree:            x.degree(text),
		Speciality:        specialityCascade.run(x.Log, text),
		AccreditationType: accreditationCascade.run(x.Log, text),
	}
	p.Accreditation = x.credits(text, p.Degree)
	p.SetElectiveCounts(x.ElectiveCounts(text))
	return p, x.CoreDisciplines(text, p.Name)
}

// ProgramName runs only the name cascade.
func (x *TextExtractor) ProgramName(text string) string {
	return nameCascade.run(x.Log, text)
}

func (x *TextExtractor) degree(text string) string {
	if d := degreeCascade.run(x.Log, text); d != "" {
		return d
	}
	return degreeBachelor
}

func (x *TextExtractor) credits(text, degree string) int {
	if n := creditsCascade.run(x.Log, text); n > 0 {
		return n
	}
	if degree == degreeBachelor {
		return bachelorCredits
	}
	return otherCredits
}

// CoreDisciplines harvests "ОК" rows between the general-training marker
// and the elective marker, sorted by code.
func (x *TextExtractor) CoreDisciplines(text, programName string) []record.MainDiscipline {
	rows := coreCascade.run(x.Log, coreSpan(text))
	for i := range rows {
		rows[i].EducationalProgramName = programName
	}
	sortByCode(rows)
	if rows == nil {
		rows = []record.MainDiscipline{}
	}
	return rows
}

// ElectiveCounts counts "ВК" rows per trailing semester digit inside the
// elective span.
func (x *TextExtractor) ElectiveCounts(text string) map[int]int {
	span, ok := electiveSpan(text)
	if !ok {
		x.Log.Debug("elective span not found")
		return map[int]int{}
	}
	counts := electiveCascade.run(x.Log, span)
	if counts == nil {
		counts = map[int]int{}
	}
	return counts
}

func coreSpan(text string) string {
	if loc := coreSpanStart.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	if loc := electiveStart(text); loc != nil {
		text = text[:loc[0]]
	}
	return text
}

// electiveSpan is the text between the elective heading and the next
// totals or attestation line. The heading is looked for after the
// general-training heading when the document has one.
func electiveSpan(text string) (string, bool) {
	if loc := coreSpanStart.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	loc := electiveStart(text)
	if loc == nil {
		return "", false
	}
	span := text[loc[1]:]
	if end := electiveSpanEnd.FindStringIndex(span); end != nil {
		span = span[:end[0]]
	}
	return span, true
}

// electiveStart prefers a heading line over a mention inside prose.
func electiveStart(text string) []int {
	if loc := electiveHeading.FindStringIndex(text); loc != nil {
		return loc
	}
	return electiveSpanStart.FindStringIndex(text)
}

func strictCoreRows(text string, _ []record.MainDiscipline) ([]record.MainDiscipline, error) {
	var rows []record.MainDiscipline
	for _, m := range coreRowStrict.FindAllStringSubmatch(text, -1) {
		rows = append(rows, record.MainDiscipline{
			Code:         normalizeCode(m[1]),
			Name:         strings.TrimSpace(m[2]),
			Loans:        parseLoans(m[3]),
			FormControll: collapseSpaces(m[4]),
			Semestr:      atoiOrZero(m[5]),
		})
	}
	return rows, nil
}

// looseCoreRows reads "code remainder" lines and picks fields out of the
// remainder. Codes already harvested are skipped.
func looseCoreRows(text string, prev []record.MainDiscipline) ([]record.MainDiscipline, error) {
	seen := make(map[string]bool, len(prev))
	for _, r := range prev {
		seen[r.Code] = true
	}
	rows := prev
	for _, m := range coreRowLoose.FindAllStringSubmatch(text, -1) {
		code := normalizeCode(m[1])
		if seen[code] {
			continue
		}
		seen[code] = true

		rest := strings.TrimSpace(m[2])
		row := record.MainDiscipline{Code: code, Name: rest}
		if loc := numberToken.FindStringIndex(rest); loc != nil {
			row.Name = strings.TrimSpace(rest[:loc[0]])
			row.Loans = parseLoans(rest[loc[0]:loc[1]])
			tail := rest[loc[1]:]
			row.FormControll = collapseSpaces(controlFormWord.FindString(tail))
			if sm := trailingSemester.FindStringSubmatch(tail); sm != nil {
				row.Semestr = atoiOrZero(sm[1])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func countSemesters(re *regexp.Regexp, group int, text string) map[int]int {
	counts := map[int]int{}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if sem := atoiOrZero(m[group]); sem >= 3 && sem <= 8 {
			counts[sem]++
		}
	}
	return counts
}

// accreditationNote captures the text after an accreditation label up to
// the next blank line or the next "Label:" line.
func accreditationNote(text, _ string) (string, error) {
	loc := accreditationLine.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", nil
	}
	parts := []string{text[loc[2]:loc[3]]}
	for _, line := range strings.Split(text[loc[1]:], "\n")[1:] {
		if strings.TrimSpace(line) == "" || nextLabelLine.MatchString(line) {
			break
		}
		parts = append(parts, line)
	}
	return collapseSpaces(strings.Join(parts, " ")), nil
}

// canonicalDegree maps free text onto the degree vocabulary by the first
// degree word it mentions. Text naming no degree yields "".
func canonicalDegree(s string) string {
	s = strings.ToLower(collapseSpaces(s))
	best, at := "", len(s)
	for _, d := range []struct{ stem, degree string }{
		{degreeBachelor, degreeBachelor},
		{degreeMaster, degreeMaster},
		{"доктор", degreeDoctor},
	} {
		if i := strings.Index(s, d.stem); i >= 0 && i < at {
			best, at = d.degree, i
		}
	}
	return best
}

// normalizeCode renders "ОК1", "ок 1" and "ОК  1" as "ОК 1".
func normalizeCode(code string) string {
	code = strings.ToUpper(strings.Join(strings.Fields(code), ""))
	i := strings.IndexFunc(code, unicode.IsDigit)
	if i <= 0 {
		return code
	}
	return code[:i] + " " + code[i:]
}

// sortByCode orders rows by code with numeric runs compared as numbers,
// so "ОК 2" sorts before "ОК 10".
func sortByCode(rows []record.MainDiscipline) {
	sort.SliceStable(rows, func(i, j int) bool {
		return naturalLess(rows[i].Code, rows[j].Code)
	})
}

func naturalLess(a, b string) bool {
	ta, tb := codeTokens(a), codeTokens(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		if ta[i] == tb[i] {
			continue
		}
		na, errA := strconv.Atoi(ta[i])
		nb, errB := strconv.Atoi(tb[i])
		if errA == nil && errB == nil && na != nb {
			return na < nb
		}
		return ta[i] < tb[i]
	}
	return len(ta) < len(tb)
}

func codeTokens(s string) []string {
	var tokens []string
	var cur strings.Builder
	digit := false
	for i, r := range s {
		d := unicode.IsDigit(r)
		if i > 0 && d != digit {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
		digit = d
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(s, `«»"“”„'`))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseLoans(s string) float64 {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return f
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
