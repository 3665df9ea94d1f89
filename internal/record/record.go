// Package record holds the typed records produced by the extraction engine.
//
// Field names on the wire follow the downstream academic-administration API.
// Optional values are always present in JSON: unresolved identifiers and
// dates serialize as null, free text as "" and counters as 0.
package record

import "time"

// EducationDate is a calendar date split into its parts.
// DayOfWeek counts from Monday=0.
type EducationDate struct {
	Year      int `json:"year"`
	Month     int `json:"month"`
	Day       int `json:"day"`
	DayOfWeek int `json:"dayOfWeek"`
}

// NewEducationDate splits t into an EducationDate.
func NewEducationDate(t time.Time) *EducationDate {
	return &EducationDate{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		DayOfWeek: (int(t.Weekday()) + 6) % 7,
	}
}

// Student is one enrollment row with identifiers resolved through the
// directory service.
type Student struct {
	ID                   *int           `json:"IDstudent"`
	Name                 string         `json:"nameStudent"`
	EducationStart       *EducationDate `json:"educationStart"`
	EducationEnd         *EducationDate `json:"educationEnd"`
	Course               *int           `json:"course"`
	FacultyID            *int           `json:"facultyId"`
	EducationalDegreeID  *int           `json:"educationalDegreeId"`
	StudyFormID          *int           `json:"studyFormId"`
	IsShort              bool           `json:"isShort"`
	EducationalProgramID *int           `json:"educationalProgramId"`
	DepartmentID         *int           `json:"departmentId"`
	GroupID              *int           `json:"groupId"`
}

// DisciplineDetails is the free-text description block of an elective
// discipline.
type DisciplineDetails struct {
	DepartmentID                int    `json:"departmentId"`
	Teacher                     string `json:"teacher"`
	Recomend                    string `json:"recomend"`
	Prerequisites               string `json:"prerequisites"`
	Language                    string `json:"language"`
	Determination               string `json:"determination"`
	WhyInterestingDetermination string `json:"whyInterestingDetermination"`
	ResultEducation             string `json:"resultEducation"`
	UsingIrl                    string `json:"usingIrl"`
	AdditionaLiterature         string `json:"additionaLiterature"`
	TypesOfTraining             string `json:"typesOfTraining"`
	TypeOfControll              string `json:"typeOfControll"`
}

// Discipline is an elective discipline offered by a faculty.
type Discipline struct {
	Name           string            `json:"nameAddDisciplines"`
	Code           string            `json:"codeAddDisciplines"`
	Faculty        string            `json:"faculty"`
	MinCountPeople int               `json:"minCountPeople"`
	MaxCountPeople int               `json:"maxCountPeople"`
	MinCourse      int               `json:"minCourse"`
	MaxCourse      int               `json:"maxCourse"`
	AddSemestr     string            `json:"addSemestr"`
	DegreeLevel    string            `json:"degreeLevel"`
	Details        DisciplineDetails `json:"details"`
	ID             int               `json:"idAddDisciplines"`
}

// EducationalProgram describes a program and how many elective components
// it offers in semesters 3 through 8.
type EducationalProgram struct {
	ID                int    `json:"idEducationalProgram"`
	Name              string `json:"nameEducationalProgram"`
	CountAddSemestr3  int    `json:"countAddSemestr3"`
	CountAddSemestr4  int    `json:"countAddSemestr4"`
	CountAddSemestr5  int    `json:"countAddSemestr5"`
	CountAddSemestr6  int    `json:"countAddSemestr6"`
	CountAddSemestr7  int    `json:"countAddSemestr7"`
	CountAddSemestr8  int    `json:"countAddSemestr8"`
	Degree            string `json:"degree"`
	Speciality        string `json:"speciality"`
	Accreditation     int    `json:"accreditation"`
	AccreditationType string `json:"accreditationType"`
	StudentsAmount    int    `json:"studentsAmount"`
	StudentsCount     int    `json:"studentsCount"`
	DisciplinesCount  int    `json:"disciplinesCount"`
}

// SetElectiveCounts copies per-semester counters into the record.
// Semesters outside 3..8 are ignored.
func (p *EducationalProgram) SetElectiveCounts(counts map[int]int) {
	p.CountAddSemestr3 = counts[3]
	p.CountAddSemestr4 = counts[4]
	p.CountAddSemestr5 = counts[5]
	p.CountAddSemestr6 = counts[6]
	p.CountAddSemestr7 = counts[7]
	p.CountAddSemestr8 = counts[8]
}

// MainDiscipline is a mandatory component of a program's general-training
// cycle. EducationalProgramName is a copy of the owning program's name.
type MainDiscipline struct {
	ID                     int     `json:"idBindMainDisciplines"`
	Code                   string  `json:"codeMainDisciplines"`
	Name                   string  `json:"nameMainDisciplines"`
	Loans                  float64 `json:"loans"`
	FormControll           string  `json:"formControll"`
	Semestr                int     `json:"semestr"`
	EducationalProgramName string  `json:"educationalProgramName"`
}
