package extract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/eduparse/internal/lookup"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// workbook renders rows into an in-memory .xlsx file.
func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// studentRow places values at their default column positions.
func studentRow(values map[int]interface{}) []interface{} {
	row := make([]interface{}, 19)
	for i := range row {
		row[i] = ""
	}
	for col, v := range values {
		row[col] = v
	}
	return row
}

// wordDoc builds a .docx with the given paragraphs followed by tables.
func wordDoc(t *testing.T, paragraphs []string, tables ...[][]string) []byte {
	t.Helper()
	w := docx.New().WithDefaultTheme()
	for _, p := range paragraphs {
		w.AddParagraph().AddText(p)
	}
	for _, rows := range tables {
		cols := 0
		for _, r := range rows {
			cols = max(cols, len(r))
		}
		tbl := w.AddTable(len(rows), cols, 0, nil)
		for i, r := range rows {
			for j, text := range r {
				if text != "" {
					tbl.TableRows[i].TableCells[j].AddParagraph().AddText(text)
				}
			}
		}
	}
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

type staticResolver map[lookup.Category]map[string]lookup.Entry

func (s staticResolver) Resolve(_ context.Context, c lookup.Category) (*lookup.Map, error) {
	return lookup.NewMap(c, s[c]), nil
}

type failingResolver struct{ failOn lookup.Category }

func (f failingResolver) Resolve(_ context.Context, c lookup.Category) (*lookup.Map, error) {
	if c == f.failOn {
		return nil, &lookup.UnavailableError{Category: c, Err: errors.New("connection refused")}
	}
	return lookup.NewMap(c, nil), nil
}

func directory() staticResolver {
	return staticResolver{
		lookup.Faculty:   {"Факультет інформатики": {ID: 3}},
		lookup.Degree:    {"Бакалавр": {ID: 1}},
		lookup.StudyForm: {"Денна": {ID: 2}},
		lookup.Group:     {"КН-21": {ID: 17, DepartmentID: 5}},
	}
}

const programText = `Міністерство освіти і науки України
ОСВІТНЬО-ПРОФЕСІЙНА ПРОГРАМА «Інженерія програмного забезпечення»
першого (бакалаврського) рівня вищої освіти

Ступінь вищої освіти: Бакалавр
Спеціальність: 121 Інженерія програмного забезпечення
Обсяг освітньої програми: 240 кредитів ЄКТС
Акредитація: акредитована НАЗЯВО,
сертифікат № 1234 до 01.07.2028

2.1 Цикл загальної підготовки
ОК 1 Іноземна мова 6 залік, екзамен 2
ОК 2 Вища математика 8 екзамен 1
ОК 10 Філософія 3 залік 4
ОК 3 Фізика 5 диф. залік 2
ОК 4 Історія України 3 екзамен 1
2.2 Вибіркові компоненти
ВК 1 Хмарні обчислення 5 залік 3
ВК 2 Машинне навчання 5 залік 3
ВК 3 Веб-технології 4 екзамен 4
ВК 4 Комп'ютерна графіка 4 залік 7
Атестація здобувачів вищої освіти
`
