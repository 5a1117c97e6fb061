package patch

import (
	"fmt"
	"regexp"
	"strings"
)

// Origin is a slide dataset whose slide naming convention encodes the patient.
type Origin string

const (
	OriginOVCARE Origin = "ovcare"
	OriginTCGA   Origin = "tcga"
	OriginGerman Origin = "german"
)

var DefaultOrigins = []Origin{OriginOVCARE}

var (
	// VOA-1234A => VOA-1234
	ovcarePatient = regexp.MustCompile(`^(VOA-\d+)[A-Za-z]*$`)

	// TCGA-PG-A6IB-01Z-00-DX4.631A44B6-... => TCGA-PG-A6IB
	tcgaPatient = regexp.MustCompile(`^(TCGA-[A-Za-z0-9]{2}-[A-Za-z0-9]{4})(-|$)`)
)

// ParseOrigins parses a list of origin names, each of which may itself be a
// comma separated list.
func ParseOrigins(args []string) ([]Origin, error) {
	var out []Origin
	for _, arg := range args {
		for _, name := range strings.Split(arg, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}

			switch o := Origin(name); o {
			case OriginOVCARE, OriginTCGA, OriginGerman:
				out = append(out, o)
			default:
				return nil, fmt.Errorf("dataset origin %q is not one of %v", name, []Origin{OriginOVCARE, OriginTCGA, OriginGerman})
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no dataset origin was given")
	}

	return out, nil
}

// PatientFromSlide extracts the patient ID from a slide ID according to the
// origin's naming convention. ok is false if the slide does not follow it.
func (o Origin) PatientFromSlide(slide string) (patient string, ok bool) {
	switch o {
	case OriginOVCARE:
		if m := ovcarePatient.FindStringSubmatch(slide); m != nil {
			return m[1], true
		}
	case OriginTCGA:
		if m := tcgaPatient.FindStringSubmatch(slide); m != nil {
			return m[1], true
		}
	case OriginGerman:
		if slide == "" {
			return "", false
		}
		if idx := strings.IndexAny(slide, "_- "); idx > 0 {
			return slide[:idx], true
		}
		return slide, true
	}

	return "", false
}
