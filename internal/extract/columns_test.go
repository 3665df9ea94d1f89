package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStudentColumns_OverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: 4\ngroup: 20\n"), 0o644))

	cols, err := LoadStudentColumns(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cols.Name)
	assert.Equal(t, 20, cols.Group)
	assert.Equal(t, 2, cols.ID)
	assert.Equal(t, 17, cols.Course)
}

func TestLoadStudentColumns_Errors(t *testing.T) {
	_, err := LoadStudentColumns(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("course: -1\n"), 0o644))
	_, err = LoadStudentColumns(path)
	assert.ErrorContains(t, err, "course")
}

func TestCascade_RecoversStagePanic(t *testing.T) {
	c := cascade[string]{
		concern: "test",
		enough:  nonEmpty,
		stages: []stage[string]{
			{"explodes", func(string, string) (string, error) { panic("bad pattern") }},
			{"works", func(text, _ string) (string, error) { return text, nil }},
		},
	}
	assert.Equal(t, "value", c.run(quietLogger(), "value"))
}

func TestCascade_StopsWhenEnough(t *testing.T) {
	calls := 0
	c := cascade[int]{
		concern: "test",
		enough:  func(n int) bool { return n >= 2 },
		stages: []stage[int]{
			{"first", func(_ string, n int) (int, error) { calls++; return n + 2, nil }},
			{"second", func(_ string, n int) (int, error) { calls++; return n + 1, nil }},
		},
	}
	assert.Equal(t, 2, c.run(quietLogger(), ""))
	assert.Equal(t, 1, calls)
}
