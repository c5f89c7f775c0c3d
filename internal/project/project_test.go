package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")

	job := New("plaza", "photos")
	job.Output = "out/result.jpg"
	job.AddPatch(2, 10, 20, 30, 40)
	job.AddPatch(1, 0, 0, 5, 5)
	require.NoError(t, job.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plaza", back.Name)
	assert.Equal(t, "photos", back.Source)
	assert.Equal(t, job.Patches, back.Patches)
	assert.Equal(t, CurrentVersion, back.Version)
}

func TestLoadParsesHandWrittenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	doc := `version: 1
name: fountain
source: /data/fountain
patches:
  - {secondary: 1, x: 100, y: 50, width: 40, height: 80}
output: /tmp/fountain.png
preview: /tmp/fountain-preview.png
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	job, err := Load(path)
	require.NoError(t, err)
	require.Len(t, job.Patches, 1)
	assert.Equal(t, Patch{Secondary: 1, X: 100, Y: 50, Width: 40, Height: 80}, job.Patches[0])
}

func TestValidate(t *testing.T) {
	ok := &File{Version: 1, Source: "s", Output: "o", Patches: []Patch{{Secondary: 1, Width: 1, Height: 1}}}
	assert.NoError(t, ok.Validate())

	for name, f := range map[string]*File{
		"version":   {Version: 2, Source: "s", Output: "o"},
		"source":    {Version: 1, Output: "o"},
		"output":    {Version: 1, Source: "s"},
		"size":      {Version: 1, Source: "s", Output: "o", Patches: []Patch{{Secondary: 1, Width: 0, Height: 3}}},
		"secondary": {Version: 1, Source: "s", Output: "o", Patches: []Patch{{Secondary: -1, Width: 1, Height: 3}}},
	} {
		assert.ErrorIs(t, f.Validate(), ErrInvalid, name)
	}
}

func TestCommands(t *testing.T) {
	job := &File{
		Version: 1,
		Source:  "photos",
		Output:  "/abs/out.jpg",
		Preview: "preview.png",
		Patches: []Patch{
			{Secondary: 2, X: 1, Y: 2, Width: 3, Height: 4},
			{Secondary: 1, X: 5, Y: 6, Width: 7, Height: 8},
			{Secondary: 2, X: 9, Y: 10, Width: 11, Height: 12},
		},
	}
	jobPath := filepath.Join("jobs", "plaza.yaml")

	assert.Equal(t, []string{
		`--cmd load "` + filepath.Join("jobs", "photos") + `"`,
		"--cmd align 2",
		"--cmd blend 2 1 2 3 4",
		"--cmd align 1",
		"--cmd blend 1 5 6 7 8",
		"--cmd blend 2 9 10 11 12",
		`--cmd save "/abs/out.jpg"`,
		`--cmd preview "` + filepath.Join("jobs", "preview.png") + `" 9 10 11 12`,
	}, job.Commands(jobPath))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a b"`, Quote("a b"))
	assert.Equal(t, `"say \"hi\" \\ bye"`, Quote(`say "hi" \ bye`))
}
