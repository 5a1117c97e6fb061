// Package manifest reads the slide manifest that maps slides to patients and
// subtypes.
package manifest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/cvsplit"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Columns

const (
	ColOrigin         = "origin"
	ColPatientID      = "patient_id"
	ColSlideID        = "slide_id"
	ColSlidePath      = "slide_path"
	ColAnnotationPath = "annotation_path"
	ColSubtype        = "subtype"
)

var (
	knownColumns    = []string{ColOrigin, ColPatientID, ColSlideID, ColSlidePath, ColAnnotationPath, ColSubtype}
	requiredColumns = []string{ColOrigin, ColPatientID, ColSlideID}
)

// Entry is one row of the manifest.
type Entry struct {
	Origin         string `csv:"origin"`
	PatientID      string `csv:"patient_id"`
	SlideID        string `csv:"slide_id"`
	SlidePath      string `csv:"slide_path"`
	AnnotationPath string `csv:"annotation_path"`
	Subtype        string `csv:"subtype"`
}

// Manifest indexes entries by slide ID.
type Manifest struct {
	Entries []Entry

	bySlide map[string]int
}

// Slide returns the entry for the slide.
func (m *Manifest) Slide(slideID string) (Entry, bool) {
	idx, exists := m.bySlide[slideID]
	if !exists {
		return Entry{}, false
	}

	return m.Entries[idx], true
}

// Read loads a manifest from a local or gs:// path. The file may be compressed.
func Read(ctx context.Context, path string, client *storage.Client) (*Manifest, error) {
	fileBytes, err := cvsplit.ReadAll(ctx, path, client)
	if err != nil {
		return nil, err
	}

	m, err := Parse(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Printf("Loaded %d slides from manifest %s\n", len(m.Entries), path)

	return m, nil
}

// Parse decodes manifest content. The delimiter (comma or tab, usually) is
// detected from the content.
func Parse(fileBytes []byte) (*Manifest, error) {
	delim := detectDelimiter(fileBytes)

	newReader := func(in io.Reader) *csv.Reader {
		r := csv.NewReader(in)
		r.Comma = delim
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		return r
	}

	header, err := newReader(bytes.NewReader(fileBytes)).Read()
	if err == io.EOF {
		return nil, pfx.Err(fmt.Errorf("manifest is empty"))
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	if err := checkHeader(header); err != nil {
		return nil, err
	}

	records := []*Entry{}
	if err := gocsv.UnmarshalCSV(newReader(bytes.NewReader(fileBytes)), &records); err != nil {
		return nil, pfx.Err(err)
	}

	out := &Manifest{
		Entries: make([]Entry, 0, len(records)),
		bySlide: make(map[string]int, len(records)),
	}
	for i, record := range records {
		if record.SlideID == "" || record.PatientID == "" {
			return nil, fmt.Errorf("manifest row %d is missing a %s or %s", i+2, ColSlideID, ColPatientID)
		}

		if idx, exists := out.bySlide[record.SlideID]; exists {
			if prior := out.Entries[idx]; prior.PatientID != record.PatientID {
				return nil, fmt.Errorf("slide %q is listed for patient %q and for patient %q", record.SlideID, prior.PatientID, record.PatientID)
			}
			continue
		}

		out.bySlide[record.SlideID] = len(out.Entries)
		out.Entries = append(out.Entries, *record)
	}

	return out, nil
}

func checkHeader(header []string) error {
	have := make(map[string]struct{}, len(header))
	for _, col := range header {
		col = strings.TrimSpace(col)
		known := false
		for _, k := range knownColumns {
			if col == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("manifest column %q is not one of %v", col, knownColumns)
		}
		have[col] = struct{}{}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifest is missing required columns %v", missing)
	}

	return nil
}

// detectDelimiter trusts the detector only if its pick is a conventional
// delimiter that also separates the header. Column names contain '_', which
// the detector may otherwise favor.
func detectDelimiter(fileBytes []byte) rune {
	delim := cvsplit.DetermineDelimiter(firstLines(fileBytes, 20))

	header := string(firstLines(fileBytes, 1))
	if strings.ContainsRune(",\t;|", delim) && strings.ContainsRune(header, delim) {
		return delim
	}
	if strings.ContainsRune(header, '\t') {
		return '\t'
	}

	return ','
}

func firstLines(b []byte, n int) []byte {
	end := 0
	for i := 0; i < n; i++ {
		next := bytes.IndexByte(b[end:], '\n')
		if next < 0 {
			return b
		}
		end += next + 1
	}

	return b[:end]
}
