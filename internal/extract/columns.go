package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StudentColumns binds student fields to zero-based spreadsheet columns.
// The enrollment export has no usable header, so positions are the contract.
type StudentColumns struct {
	ID        int `yaml:"id"`
	Name      int `yaml:"name"`
	Start     int `yaml:"education_start"`
	End       int `yaml:"education_end"`
	Faculty   int `yaml:"faculty"`
	Degree    int `yaml:"degree"`
	StudyForm int `yaml:"study_form"`
	IsShort   int `yaml:"is_short"`
	Program   int `yaml:"educational_program"`
	Course    int `yaml:"course"`
	Group     int `yaml:"group"`
}

// DefaultStudentColumns is the layout of the registrar's export (C, D, F,
// G, H, J, K, L, O, R, S).
func DefaultStudentColumns() StudentColumns {
	return StudentColumns{
		ID:        2,
		Name:      3,
		Start:     5,
		End:       6,
		Faculty:   7,
		Degree:    9,
		StudyForm: 10,
		IsShort:   11,
		Program:   14,
		Course:    17,
		Group:     18,
	}
}

// Validate rejects negative indexes.
func (c StudentColumns) Validate() error {
	fields := map[string]int{
		"id": c.ID, "name": c.Name, "education_start": c.Start,
		"education_end": c.End, "faculty": c.Faculty, "degree": c.Degree,
		"study_form": c.StudyForm, "is_short": c.IsShort,
		"educational_program": c.Program, "course": c.Course, "group": c.Group,
	}
	for name, idx := range fields {
		if idx < 0 {
			return fmt.Errorf("student column %s: negative index %d", name, idx)
		}
	}
	return nil
}

// LoadStudentColumns reads a YAML column map. Keys left out of the file
// keep their default positions.
func LoadStudentColumns(path string) (StudentColumns, error) {
	cols := DefaultStudentColumns()
	data, err := os.ReadFile(path)
	if err != nil {
		return cols, fmt.Errorf("read column map: %w", err)
	}
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return cols, fmt.Errorf("parse column map %s: %w", path, err)
	}
	if err := cols.Validate(); err != nil {
		return cols, err
	}
	return cols, nil
}
