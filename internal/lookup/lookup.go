// Package lookup resolves human-readable names (faculties, degrees, study
// forms, groups) to the numeric identifiers kept by the directory service.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Category names one of the directory's reference tables.
type Category string

const (
	Faculty   Category = "faculty"
	Degree    Category = "degree"
	StudyForm Category = "studyForm"
	Group     Category = "group"
)

// Categories lists every category in the order they are reported.
var Categories = []Category{Faculty, Degree, StudyForm, Group}

// Entry is the identifier data stored for one name.
type Entry struct {
	ID           int
	DepartmentID int
}

// Resolver fetches the name map for one category.
type Resolver interface {
	Resolve(ctx context.Context, c Category) (*Map, error)
}

// UnavailableError reports that a category could not be fetched.
type UnavailableError struct {
	Category Category
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("lookup %s unavailable: %v", e.Category, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Map is a read-only name → Entry table. Group names are matched
// case-insensitively; other categories match on the trimmed name.
type Map struct {
	category Category
	entries  map[string]Entry
	compact  map[string][]string
}

// NewMap builds a Map from raw name/entry pairs. Later duplicates win.
func NewMap(c Category, entries map[string]Entry) *Map {
	m := &Map{
		category: c,
		entries:  make(map[string]Entry, len(entries)),
	}
	for name, e := range entries {
		m.entries[m.key(name)] = e
	}
	if c == Group {
		m.compact = make(map[string][]string, len(m.entries))
		for k := range m.entries {
			ck := compactKey(k)
			m.compact[ck] = append(m.compact[ck], k)
		}
	}
	return m
}

// Category returns the category this map was built for.
func (m *Map) Category() Category { return m.category }

// Len returns the number of distinct names.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Lookup returns the entry for name. A nil map never matches.
func (m *Map) Lookup(name string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	k := m.key(name)
	if k == "" {
		return Entry{}, false
	}
	if e, ok := m.entries[k]; ok {
		return e, true
	}
	if m.compact == nil {
		return Entry{}, false
	}
	// КН21 vs КН-21: accept only an unambiguous match.
	if keys := m.compact[compactKey(k)]; len(keys) == 1 {
		return m.entries[keys[0]], true
	}
	return Entry{}, false
}

func (m *Map) key(name string) string {
	name = strings.TrimSpace(name)
	if m.category == Group {
		return strings.ToUpper(name)
	}
	return name
}

func compactKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '–', '‑':
			return -1
		}
		return r
	}, k)
}

// Maps holds one Map per category.
type Maps struct {
	Faculty   *Map
	Degree    *Map
	StudyForm *Map
	Group     *Map
}

// ResolveAll fetches all four categories concurrently. The first failure
// cancels the remaining requests and is returned; on error no maps are
// returned.
func ResolveAll(ctx context.Context, r Resolver) (*Maps, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]*Map, len(Categories))
	for i, c := range Categories {
		g.Go(func() error {
			m, err := r.Resolve(gctx, c)
			if err != nil {
				var ue *UnavailableError
				if !errors.As(err, &ue) {
					err = &UnavailableError{Category: c, Err: err}
				}
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Maps{
		Faculty:   results[0],
		Degree:    results[1],
		StudyForm: results[2],
		Group:     results[3],
	}, nil
}
