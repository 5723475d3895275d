package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHash keys an image by its file contents so tests do not need OpenCV.
func fakeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "h-" + string(data), nil
}

func write(t *testing.T, dir, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
}

const vocTwoNests = `<annotation>
  <filename>img1.jpg</filename>
  <object><name>Bird Nest</name><bndbox><xmin>10</xmin><ymin>20</ymin><xmax>50</xmax><ymax>60</ymax></bndbox></object>
  <object><name>egg</name><bndbox><xmin>-1</xmin><ymin>0</ymin><xmax>5</xmax><ymax>5</ymax></bndbox></object>
  <object><name>Bird Nest</name><bndbox><xmin>100</xmin><ymin>100</ymin><xmax>140.7</xmax><ymax>150</ymax></bndbox></object>
</annotation>`

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Object")
	require.NoError(t, err)
	assert.Equal(t, ModeObject, m)

	m, err = ParseMode("classification")
	require.NoError(t, err)
	assert.Equal(t, ModeClassification, m)

	_, err = ParseMode("segmentation")
	assert.True(t, errors.Is(err, ErrInvalidMode))
}

func TestLoad_Object(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "img1.xml", vocTwoNests)
	write(t, dir, "img1.jpg", "one")
	write(t, dir, "img2.xml", `<annotation><filename>img2.png</filename></annotation>`)
	write(t, dir, "img2.png", "two")
	write(t, dir, "orphan.xml", `<annotation></annotation>`)

	log, hook := test.NewNullLogger()
	ds, err := Load(dir, ModeObject, Options{Hasher: fakeHash, Log: log})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"h-one", "h-two"}, ds.Keys())

	s, err := ds.Lookup("h-one")
	require.NoError(t, err)
	assert.Equal(t, "img1", s.ID)
	assert.Equal(t, filepath.Join(dir, "img1.jpg"), s.ImagePath)
	require.Len(t, s.Boxes, 2)
	assert.Equal(t, "Bird_Nest", s.Boxes[0].Label)
	assert.Equal(t, 140, s.Boxes[1].Xmax)
	assert.Equal(t, []string{"Bird_Nest", "Bird_Nest"}, s.Labels(ModeObject))

	empty, err := ds.Lookup("h-two")
	require.NoError(t, err)
	assert.Empty(t, empty.Boxes)

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = append(warned, e.Message)
		}
	}
	assert.Len(t, warned, 2, "negative box and orphan annotation")
}

func TestLoad_ObjectMalformed(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "bad.xml", `<annotation><object><name>`)
	write(t, dir, "bad.jpg", "x")

	log, _ := test.NewNullLogger()
	_, err := Load(dir, ModeObject, Options{Hasher: fakeHash, Log: log})
	assert.Error(t, err)
}

func TestLoad_Classification(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, PropFile, `{"name":"nests","file_prop_info":"[{\"_id\":\"a\",\"category_name\":\"Nest\"},{\"_id\":\"b\",\"category_name\":\"No Nest\"},{\"_id\":\"gone\",\"category_name\":\"Nest\"}]"}`)
	write(t, dir, "a.JPG", "A")
	write(t, dir, "b.png", "B")

	log, _ := test.NewNullLogger()
	ds, err := Load(dir, ModeClassification, Options{Hasher: fakeHash, Log: log})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	s, err := ds.Lookup("h-B")
	require.NoError(t, err)
	assert.Equal(t, "No Nest", s.Class)
	assert.Equal(t, []string{"No Nest"}, s.Labels(ModeClassification))
}

func TestReadProps_PlainArray(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, PropFile, `{"file_prop_info":[{"_id":"a","category_name":"Nest"}]}`)

	props, err := ReadProps(dir)
	require.NoError(t, err)
	assert.Equal(t, []FileClass{{ID: "a", Category: "Nest"}}, props)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"), ModeObject, Options{Hasher: fakeHash})
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	_, err = Load(t.TempDir(), Mode("video"), Options{Hasher: fakeHash})
	assert.True(t, errors.Is(err, ErrInvalidMode))

	_, err = Load(t.TempDir(), ModeClassification, Options{Hasher: fakeHash})
	assert.Error(t, err, "prop.json missing")

	ds := &Dataset{Samples: map[string]*Sample{}}
	_, err = ds.Lookup("abc123")
	assert.True(t, errors.Is(err, ErrMissingSample))
	assert.True(t, strings.Contains(err.Error(), "abc123"))
}

func TestReorganize(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "sorted")
	write(t, in, PropFile, `{"file_prop_info":"[{\"_id\":\"a\",\"category_name\":\"Nest\"},{\"_id\":\"b\",\"category_name\":\"Nest\"},{\"_id\":\"c\",\"category_name\":\"No Nest\"},{\"_id\":\"d\",\"category_name\":\"Nest\"}]"}`)
	write(t, in, "a.jpg", "A")
	write(t, in, "b.JPG", "B")
	write(t, in, "c.png", "C")

	log, _ := test.NewNullLogger()
	counts, err := Reorganize(in, out, log)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Nest": 2, "No Nest": 1}, counts)

	assert.FileExists(t, filepath.Join(out, "Nest", "a.jpg"))
	assert.FileExists(t, filepath.Join(out, "Nest", "b.JPG"))
	assert.FileExists(t, filepath.Join(out, "No Nest", "c.png"))

	_, err = Reorganize(filepath.Join(in, "missing"), out, log)
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
}

func TestReorganize_InvalidCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
	}{
		{"empty", ""},
		{"blank", "  "},
		{"parent", "../escape"},
		{"dot dot", ".."},
		{"dot", "."},
		{"nested", "a/b"},
		{"absolute", "/tmp/x"},
		{"backslash", `a\b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			in := filepath.Join(root, "in")
			out := filepath.Join(root, "out")
			require.NoError(t, os.MkdirAll(in, 0o755))
			props, err := json.Marshal(map[string][]FileClass{"file_prop_info": {{ID: "a", Category: tt.category}}})
			require.NoError(t, err)
			write(t, in, PropFile, string(props))
			write(t, in, "a.jpg", "A")

			log, _ := test.NewNullLogger()
			counts, err := Reorganize(in, out, log)
			assert.True(t, errors.Is(err, ErrInvalidCategory), "got %v", err)
			assert.Nil(t, counts)

			assert.NoDirExists(t, out)
			assert.NoFileExists(t, filepath.Join(root, "escape", "a.jpg"))
		})
	}
}
