package patch

import (
	"fmt"

	"github.com/carbocation/cvsplit/manifest"
)

// Info is everything known about a single patch.
type Info struct {
	Path          string
	Annotation    string
	Subtype       string
	Slide         string
	Patient       string
	Magnification string
}

// Resolver maps a patch path to its Info.
type Resolver interface {
	Resolve(patchPath string) (Info, error)
}

func fromFields(patchPath string, fields map[string]string) Info {
	return Info{
		Path:          patchPath,
		Annotation:    fields[WordAnnotation],
		Subtype:       fields[WordSubtype],
		Slide:         fields[WordSlide],
		Patient:       fields[WordPatient],
		Magnification: fields[WordMagnification],
	}
}

// OriginResolver identifies patients from the slide naming convention of one
// or more dataset origins, tried in order.
type OriginResolver struct {
	Pattern Pattern
	Origins []Origin
}

func NewOriginResolver(pattern Pattern, origins []Origin) *OriginResolver {
	return &OriginResolver{Pattern: pattern, Origins: origins}
}

func (r *OriginResolver) Resolve(patchPath string) (Info, error) {
	fields, err := r.Pattern.Fields(patchPath)
	if err != nil {
		return Info{}, err
	}

	info := fromFields(patchPath, fields)
	if info.Patient != "" {
		return info, nil
	}

	for _, origin := range r.Origins {
		if patient, ok := origin.PatientFromSlide(info.Slide); ok {
			info.Patient = patient
			return info, nil
		}
	}

	return Info{}, fmt.Errorf("slide %q of patch %q does not match the naming convention of any of %v", info.Slide, patchPath, r.Origins)
}

// ManifestResolver looks patients up in a slide manifest. If the pattern has
// no subtype word, the subtype also comes from the manifest.
type ManifestResolver struct {
	Pattern  Pattern
	Manifest *manifest.Manifest
}

func NewManifestResolver(pattern Pattern, m *manifest.Manifest) *ManifestResolver {
	return &ManifestResolver{Pattern: pattern, Manifest: m}
}

func (r *ManifestResolver) Resolve(patchPath string) (Info, error) {
	fields, err := r.Pattern.Fields(patchPath)
	if err != nil {
		return Info{}, err
	}

	info := fromFields(patchPath, fields)

	entry, exists := r.Manifest.Slide(info.Slide)
	if !exists {
		return Info{}, fmt.Errorf("slide %q of patch %q is not in the manifest", info.Slide, patchPath)
	}

	info.Patient = entry.PatientID
	if info.Subtype == "" {
		info.Subtype = entry.Subtype
	}

	return info, nil
}
