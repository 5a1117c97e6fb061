package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/cvsplit/groupfile"
	"github.com/carbocation/cvsplit/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureGroups builds n groups of 4 patients, each with one slide holding two
// Tumor and two Stroma patches.
func fixtureGroups(n int) groupfile.Groups {
	groups := groupfile.Groups{}
	for g := 1; g <= n; g++ {
		for p := 0; p < 4; p++ {
			subtype := "MMRD"
			if p%2 == 1 {
				subtype = "POLE"
			}
			slide := fmt.Sprintf("VOA-%d%dA", g, p)
			for _, annotation := range []string{"Tumor", "Stroma"} {
				for i := 0; i < 2; i++ {
					groups[g] = append(groups[g], fmt.Sprintf("/patches/%s/%s/%s/%d_0.png", annotation, subtype, slide, i))
				}
			}
		}
	}
	return groups
}

func writeGroups(t *testing.T, dir string, groups groupfile.Groups, format groupfile.Format) string {
	t.Helper()
	p := filepath.Join(dir, "patient_groups.json")
	require.NoError(t, groupfile.Write(context.Background(), p, groups, format, nil))
	return p
}

func originConfig(groupFile, splitDir string) Config {
	cfg := defaultConfig()
	cfg.GroupFileLocation = groupFile
	cfg.SplitLocation = splitDir
	cfg.DefineMethod = DefineUseOrigin
	return cfg
}

// slideOf returns the slide directory of a fixture patch path.
func slideOf(p string) string {
	return filepath.Base(filepath.Dir(p))
}

func TestRunWritesEverySplit(t *testing.T) {
	dir := t.TempDir()
	splitDir := filepath.Join(dir, "splits")
	require.NoError(t, os.Mkdir(splitDir, 0755))

	cfg := originConfig(writeGroups(t, dir, fixtureGroups(3), groupfile.FormatChunks), splitDir)
	cfg.IsBinary = true

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout))

	names := []string{
		"split.1_2_train_3_eval.json",
		"split.1_3_train_2_eval.json",
		"split.2_3_train_1_eval.json",
	}
	entries, err := os.ReadDir(splitDir)
	require.NoError(t, err)
	require.Len(t, entries, len(names))
	for i, e := range entries {
		assert.Equal(t, names[i], e.Name())
	}

	for _, name := range names {
		groups, format, err := groupfile.Read(context.Background(), filepath.Join(splitDir, name), nil)
		require.NoError(t, err)
		assert.Equal(t, groupfile.FormatChunks, format)

		training := groups[splitter.TrainingGroup]
		validation := groups[splitter.ValidationGroup]
		test := groups[splitter.TestGroup]
		assert.Len(t, training, 32, name)
		assert.Equal(t, 16, len(validation)+len(test), name)
		assert.LessOrEqual(t, len(validation), len(test), name)

		valSlides := make(map[string]struct{})
		for _, p := range validation {
			valSlides[slideOf(p)] = struct{}{}
		}
		for _, p := range test {
			_, shared := valSlides[slideOf(p)]
			assert.False(t, shared, "%s: %s is in both validation and test", name, p)
		}
	}

	assert.Contains(t, stdout.String(), "|| Binary T/N counts")
	assert.Contains(t, stdout.String(), "1 2 train 3 eval - testing patches")
	assert.NotContains(t, stdout.String(), "\\hline")
}

func TestRunIsReproducible(t *testing.T) {
	dir := t.TempDir()
	cfg := originConfig(writeGroups(t, dir, fixtureGroups(4), groupfile.FormatChunks), dir)
	cfg.NTrainGroups = 3
	cfg.Latex = true
	cfg.Patients = true

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout))
	assert.Contains(t, stdout.String(), "|| Subtype counts")
	assert.Contains(t, stdout.String(), "\\hline")
	assert.Contains(t, stdout.String(), "validation patients")

	out := filepath.Join(dir, "split.1_2_3_train_4_eval.json")
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	stdout.Reset()
	require.NoError(t, run(context.Background(), cfg, &stdout))
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Another seed reorders the sets
	cfg.Seed = 1
	require.NoError(t, run(context.Background(), cfg, &stdout))
	third, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestRunKeepsKeyedFormat(t *testing.T) {
	dir := t.TempDir()
	cfg := originConfig(writeGroups(t, dir, fixtureGroups(3), groupfile.FormatKeyed), dir)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout))

	b, err := os.ReadFile(filepath.Join(dir, "split.2_3_train_1_eval.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `{"group_1":`), string(b))
}

func TestRunBinaryMissingCategory(t *testing.T) {
	dir := t.TempDir()
	groups := fixtureGroups(3)

	// Group 3 has no Stroma patches
	var tumorOnly []string
	for _, p := range groups[3] {
		if strings.Contains(p, "/Tumor/") {
			tumorOnly = append(tumorOnly, p)
		}
	}
	groups[3] = tumorOnly

	cfg := originConfig(writeGroups(t, dir, groups, groupfile.FormatChunks), dir)
	cfg.IsBinary = true

	var stdout bytes.Buffer
	err := run(context.Background(), cfg, &stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "there are no Other patches")
}

func TestRunTooManyTrainingGroups(t *testing.T) {
	dir := t.TempDir()
	cfg := originConfig(writeGroups(t, dir, fixtureGroups(3), groupfile.FormatChunks), dir)
	cfg.NTrainGroups = 3

	var stdout bytes.Buffer
	assert.Error(t, run(context.Background(), cfg, &stdout))
}

func TestRunNeedsSubtypeWord(t *testing.T) {
	dir := t.TempDir()
	cfg := originConfig(writeGroups(t, dir, fixtureGroups(3), groupfile.FormatChunks), dir)
	cfg.PatchPattern = "annotation/slide"

	var stdout bytes.Buffer
	assert.Error(t, run(context.Background(), cfg, &stdout))
}

func TestRunWithManifest(t *testing.T) {
	dir := t.TempDir()

	// Slides named without any origin convention, two of them per patient
	groups := groupfile.Groups{}
	var manifestCSV strings.Builder
	manifestCSV.WriteString("origin,patient_id,slide_id,subtype\n")
	for g := 1; g <= 3; g++ {
		for p := 0; p < 2; p++ {
			patient := fmt.Sprintf("PAT-%d-%d", g, p)
			for s := 0; s < 2; s++ {
				slide := fmt.Sprintf("S%d%d%d", g, p, s)
				fmt.Fprintf(&manifestCSV, "german,%s,%s,MMRD\n", patient, slide)
				for _, annotation := range []string{"Tumor", "Stroma"} {
					groups[g] = append(groups[g], fmt.Sprintf("/patches/%s/%s/0_0.png", annotation, slide))
				}
			}
		}
	}

	manifestPath := filepath.Join(dir, "manifest.csv")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestCSV.String()), 0644))

	cfg := originConfig(writeGroups(t, dir, groups, groupfile.FormatChunks), dir)
	cfg.DefineMethod = DefineUseManifest
	cfg.ManifestLocation = manifestPath
	cfg.PatchPattern = "annotation/slide"
	cfg.IsBinary = true

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout))

	split, _, err := groupfile.Read(context.Background(), filepath.Join(dir, "split.1_2_train_3_eval.json"), nil)
	require.NoError(t, err)

	patientOf := func(p string) string {
		slide := slideOf(p)
		return fmt.Sprintf("PAT-%c-%c", slide[1], slide[2])
	}

	valPatients := make(map[string]struct{})
	for _, p := range split[splitter.ValidationGroup] {
		valPatients[patientOf(p)] = struct{}{}
	}
	assert.Len(t, valPatients, 1)
	for _, p := range split[splitter.TestGroup] {
		_, shared := valPatients[patientOf(p)]
		assert.False(t, shared, p)
	}
	assert.Len(t, split[splitter.ValidationGroup], 4)
	assert.Len(t, split[splitter.TestGroup], 4)
}
