// Package report renders per-split category counts as markdown or LaTeX
// tables, and summarizes split sizes across a run.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/cvsplit/splitter"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Set names, in the order they are reported.
const (
	SetTraining   = "training"
	SetValidation = "validation"
	SetTest       = "testing"
)

type row struct {
	label  string
	values []int
	total  int
}

// Table accumulates rows of counts for every split of a run.
type Table struct {
	Title      string
	Categories []string

	// Also report distinct patients and slides per set
	WithPatients bool

	rows []row

	trainSizes, valSizes, testSizes []float64
}

func NewTable(title string, categories []string, withPatients bool) *Table {
	return &Table{Title: title, Categories: categories, WithPatients: withPatients}
}

// Add records the counts of the three sets of a split.
func (t *Table) Add(s splitter.Split, training, validation, test splitter.Counts) {
	for _, set := range []struct {
		name string
		c    splitter.Counts
	}{
		{SetTraining, training},
		{SetValidation, validation},
		{SetTest, test},
	} {
		prefix := s.Label() + " - " + set.name
		t.rows = append(t.rows, row{label: prefix + " patches", values: set.c.Patches, total: set.c.TotalPatches})
		if t.WithPatients {
			t.rows = append(t.rows,
				row{label: prefix + " patients", values: set.c.Patients, total: set.c.TotalPatients},
				row{label: prefix + " slides", values: set.c.Slides, total: set.c.TotalSlides},
			)
		}
	}

	t.trainSizes = append(t.trainSizes, float64(training.TotalPatches))
	t.valSizes = append(t.valSizes, float64(validation.TotalPatches))
	t.testSizes = append(t.testSizes, float64(test.TotalPatches))
}

func (t *Table) header() []string {
	out := append([]string{t.Title}, t.Categories...)
	return append(out, "Total")
}

func (r row) cells() []string {
	out := make([]string, 0, len(r.values)+2)
	out = append(out, r.label)
	for _, v := range r.values {
		out = append(out, strconv.Itoa(v))
	}
	return append(out, strconv.Itoa(r.total))
}

func (t *Table) widths() []int {
	header := t.header()
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range t.rows {
		for i, c := range r.cells() {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}
	return widths
}

// Markdown renders the table, e.g.
//
//	|| Binary T/N counts                   || Other || Tumor || Total ||
//	| 1 2 train 3 eval - training patches  | 6036   | 6036   | 12072  |
func (t *Table) Markdown() string {
	widths := t.widths()
	var sb strings.Builder

	for i, h := range t.header() {
		fmt.Fprintf(&sb, "|| %-*s ", widths[i], h)
	}
	sb.WriteString("||\n")

	for _, r := range t.rows {
		for i, c := range r.cells() {
			// Pad by one more to line up with the header's "||"
			fmt.Fprintf(&sb, "| %-*s ", widths[i]+1, c)
		}
		sb.WriteString("|\n")
	}

	return sb.String()
}

// Latex renders the table body as tabular rows.
func (t *Table) Latex() string {
	var sb strings.Builder

	sb.WriteString(strings.Join(t.header(), " & "))
	sb.WriteString(" \\\\\n\\hline\n")
	for _, r := range t.rows {
		sb.WriteString(strings.Join(r.cells(), " & "))
		sb.WriteString(" \\\\\n")
	}

	return sb.String()
}

// Summary describes set sizes across the splits of a run.
type Summary struct {
	Splits int

	TrainMean, TrainSD float64
	ValMean, ValSD     float64
	TestMean, TestSD   float64

	// Smallest and median test/validation size ratio over splits with a non
	// empty validation set. +Inf if there is no such split.
	MinTestValRatio    float64
	MedianTestValRatio float64
}

func (s Summary) String() string {
	return fmt.Sprintf("%d splits. Training patches %.1f (SD %.1f), validation patches %.1f (SD %.1f), testing patches %.1f (SD %.1f). Testing/validation ratio smallest %.3f, median %.3f",
		s.Splits, s.TrainMean, s.TrainSD, s.ValMean, s.ValSD, s.TestMean, s.TestSD, s.MinTestValRatio, s.MedianTestValRatio)
}

func (t *Table) Summary() Summary {
	out := Summary{
		Splits:             len(t.trainSizes),
		MinTestValRatio:    math.Inf(1),
		MedianTestValRatio: math.Inf(1),
	}
	if out.Splits == 0 {
		return out
	}

	out.TrainMean, out.TrainSD = meanSD(t.trainSizes)
	out.ValMean, out.ValSD = meanSD(t.valSizes)
	out.TestMean, out.TestSD = meanSD(t.testSizes)

	var ratios []float64
	for i := range t.valSizes {
		if t.valSizes[i] == 0 {
			continue
		}
		ratio := t.testSizes[i] / t.valSizes[i]
		ratios = append(ratios, ratio)
		if ratio < out.MinTestValRatio {
			out.MinTestValRatio = ratio
		}
	}

	if median, err := stats.LoadRawData(ratios).Median(); err == nil {
		out.MedianTestValRatio = median
	}

	return out
}

func meanSD(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}
