package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/testutil"
)

func TestLoadModel_Widgets(t *testing.T) {
	result, err := LoadModel(widgetsDir)
	require.NoError(t, err)
	assert.Positive(t, result.FileCount)
	wantHash, err := ir.ModelHash(testutil.WidgetLibrary().Model)
	require.NoError(t, err)
	gotHash, err := ir.ModelHash(result.Model)
	require.NoError(t, err)
	assert.Equal(t, wantHash, gotHash)
}

func TestLoadModel_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "model.cue")
	require.NoError(t, os.WriteFile(file, []byte("package model\n"), 0o644))

	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", "/nonexistent/model", ErrCodeNotFound},
		{"not a directory", file, ErrCodeNotFound},
		{"no cue files", t.TempDir(), ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(tt.dir)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadModel_SyntaxError(t *testing.T) {
	dir := writeModel(t, "types: {\n")

	_, err := LoadModel(dir)
	require.Error(t, err)
	code, _ := loadErrorParts(err)
	assert.Equal(t, ErrCodeLoadFailed, code)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.cue", "b.cue", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.cue"), 0o755))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "b.cue")}, files)
}

func TestLoadErrorParts(t *testing.T) {
	code, msg := loadErrorParts(&LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"})
	assert.Equal(t, ErrCodeNoFiles, code)
	assert.Equal(t, "no CUE files found in x", msg)

	code, msg = loadErrorParts(errors.New("boom"))
	assert.Equal(t, ErrCodeGeneric, code)
	assert.Equal(t, "boom", msg)
}
