package manifest

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvManifest = `origin,patient_id,slide_id,slide_path,subtype
ovcare,VOA-1000,VOA-1000A,/slides/VOA-1000A.svs,MMRD
ovcare,VOA-1000,VOA-1000B,/slides/VOA-1000B.svs,MMRD
tcga,TCGA-PG-A6IB,TCGA-PG-A6IB-01Z-00-DX4,/slides/TCGA-PG-A6IB-01Z-00-DX4.svs,POLE
`

func TestParseCSV(t *testing.T) {
	m, err := Parse([]byte(csvManifest))
	require.NoError(t, err)

	require.Len(t, m.Entries, 3)

	e, ok := m.Slide("VOA-1000B")
	require.True(t, ok)
	assert.Equal(t, Entry{
		Origin:    "ovcare",
		PatientID: "VOA-1000",
		SlideID:   "VOA-1000B",
		SlidePath: "/slides/VOA-1000B.svs",
		Subtype:   "MMRD",
	}, e)

	e, ok = m.Slide("TCGA-PG-A6IB-01Z-00-DX4")
	require.True(t, ok)
	assert.Equal(t, "TCGA-PG-A6IB", e.PatientID)
	assert.Equal(t, "POLE", e.Subtype)

	_, ok = m.Slide("VOA-9999A")
	assert.False(t, ok)
}

func TestParseTSV(t *testing.T) {
	tsv := "origin\tpatient_id\tslide_id\n" +
		"ovcare\tVOA-1\tVOA-1A\n" +
		"ovcare\tVOA-2\tVOA-2A\n"

	m, err := Parse([]byte(tsv))
	require.NoError(t, err)

	e, ok := m.Slide("VOA-2A")
	require.True(t, ok)
	assert.Equal(t, "VOA-2", e.PatientID)
}

func TestParseRejectsBadHeaders(t *testing.T) {
	for name, content := range map[string]string{
		"empty":          "",
		"missing column": "origin,slide_id\novcare,VOA-1A\n",
		"unknown column": "origin,patient_id,slide_id,color\novcare,VOA-1,VOA-1A,red\n",
	} {
		_, err := Parse([]byte(content))
		assert.Error(t, err, name)
	}
}

func TestParseConflictingPatients(t *testing.T) {
	_, err := Parse([]byte("origin,patient_id,slide_id\novcare,VOA-1,VOA-1A\novcare,VOA-2,VOA-1A\n"))
	assert.Error(t, err)

	// Repeating a slide with the same patient is harmless
	m, err := Parse([]byte("origin,patient_id,slide_id\novcare,VOA-1,VOA-1A\novcare,VOA-1,VOA-1A\n"))
	require.NoError(t, err)
	assert.Len(t, m.Entries, 1)
}

func TestParseRequiresIDs(t *testing.T) {
	_, err := Parse([]byte("origin,patient_id,slide_id\novcare,,VOA-1A\n"))
	assert.Error(t, err)
}

func TestReadGzipped(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(csvManifest))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	p := filepath.Join(t.TempDir(), "manifest.csv.gz")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0644))

	m, err := Read(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Len(t, m.Entries, 3)
}
