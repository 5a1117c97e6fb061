package cvsplit

import (
	"bytes"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the sample, assuming a CSV-like file. A sample with no detectable
// delimiter is treated as comma-delimited.
func DetermineDelimiter(sample []byte) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(sample), '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}
