package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinary(t *testing.T) {
	s := Binary()

	assert.True(t, s.IsBinary())
	assert.Equal(t, []string{Other, Tumor}, s.Names())
	assert.Equal(t, "Binary T/N counts", s.Title())

	for annotation, expected := range map[string]string{
		"Tumor":                   Tumor,
		"Other":                   Other,
		"Stroma":                  Other,
		"Necrosis":                Other,
		"MucinousBorderlineTumor": Other,
	} {
		c, err := s.Classify(annotation, "CC")
		require.NoError(t, err)
		assert.Equal(t, expected, c.Name, annotation)
	}

	_, err := s.Classify("", "CC")
	assert.Error(t, err)
}

func TestParseSubtypes(t *testing.T) {
	subtypes, err := ParseSubtypes([]string{"MMRD=0 P53ABN=1", "P53WT=1,POLE=1"})
	require.NoError(t, err)
	assert.Equal(t, []Subtype{{"MMRD", 0}, {"P53ABN", 1}, {"P53WT", 1}, {"POLE", 1}}, subtypes)

	for _, bad := range [][]string{
		{},
		{"MMRD"},
		{"=1"},
		{"MMRD=zero"},
		{"MMRD=0", "mmrd=1"},
	} {
		_, err := ParseSubtypes(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestSubtypesDefault(t *testing.T) {
	subtypes, err := ParseSubtypes(DefaultSubtypes)
	require.NoError(t, err)

	s, err := Subtypes(subtypes)
	require.NoError(t, err)

	assert.False(t, s.IsBinary())
	assert.Equal(t, "Subtype counts", s.Title())
	assert.Equal(t, []string{"MMRD", "P53ABN", "P53WT", "POLE"}, s.Names())
	assert.Equal(t, 4, s.Len())

	c, err := s.Classify("Tumor", "p53wt")
	require.NoError(t, err)
	assert.Equal(t, Category{Name: "P53WT", Value: 2}, c)

	_, err = s.Classify("Tumor", "CC")
	assert.Error(t, err)
}

func TestSubtypesSharedBucket(t *testing.T) {
	subtypes, err := ParseSubtypes([]string{"MMRD=0", "P53ABN=1", "P53WT=1", "POLE=1"})
	require.NoError(t, err)

	s, err := Subtypes(subtypes)
	require.NoError(t, err)

	// Subtypes sharing a bucket collapse onto the first one listed
	assert.Equal(t, []string{"MMRD", "P53ABN"}, s.Names())

	for subtype, expected := range map[string]string{
		"MMRD":   "MMRD",
		"P53ABN": "P53ABN",
		"P53WT":  "P53ABN",
		"POLE":   "P53ABN",
	} {
		c, err := s.Classify("", subtype)
		require.NoError(t, err)
		assert.Equal(t, expected, c.Name, subtype)
	}
}

func TestSubtypesOrderFollowsFirstAppearance(t *testing.T) {
	s, err := Subtypes([]Subtype{{"POLE", 3}, {"MMRD", 0}, {"P53WT", 3}})
	require.NoError(t, err)

	assert.Equal(t, []Category{{"POLE", 3}, {"MMRD", 0}}, s.Categories())
}

func TestSubtypesRejectsDuplicates(t *testing.T) {
	_, err := Subtypes([]Subtype{{"POLE", 3}, {"pole", 0}})
	assert.Error(t, err)

	_, err = Subtypes(nil)
	assert.Error(t, err)
}
