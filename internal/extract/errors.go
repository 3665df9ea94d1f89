package extract

import (
	"fmt"

	"github.com/dgallion1/eduparse/internal/document"
)

// Kind selects which record type an extraction produces.
type Kind string

const (
	KindStudent    Kind = "student"
	KindDiscipline Kind = "discipline"
	KindProgram    Kind = "educational-program"
)

// ParseKind maps a request string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindStudent, KindDiscipline, KindProgram:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// ParseFailure means the source document could not be read at all. Pattern
// misses inside a readable document never produce one.
type ParseFailure struct {
	Kind Kind
	Err  error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse %s document: %v", e.Kind, e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// UnsupportedCombination is returned for (format, kind) pairs the engine
// has no strategy for.
type UnsupportedCombination struct {
	Format document.Format
	Kind   Kind
}

func (e *UnsupportedCombination) Error() string {
	return fmt.Sprintf("%s records cannot be extracted from %s documents", e.Kind, e.Format)
}
