// Package patch extracts the annotation, subtype, slide and patient that a
// patch belongs to from its path.
package patch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Words that may appear in a patch pattern.
const (
	WordAnnotation    = "annotation"
	WordSubtype       = "subtype"
	WordSlide         = "slide"
	WordPatient       = "patient"
	WordMagnification = "magnification"
)

var patternWords = map[string]struct{}{
	WordAnnotation:    {},
	WordSubtype:       {},
	WordSlide:         {},
	WordPatient:       {},
	WordMagnification: {},
}

const DefaultPattern = "annotation/subtype/slide"

// Pattern describes the directories above a patch file. A patch at
// /path/to/patch/rootdir/Tumor/MMRD/VOA-1234/1_2.png has the pattern
// annotation/subtype/slide; a multiscale patch at
// /path/to/patch/rootdir/Stroma/P53ABN/VOA-1234/10/3_400.png has the pattern
// annotation/subtype/slide/magnification.
type Pattern struct {
	words []string

	// word => position counted back from the patch file's directory (0 is the
	// directory holding the file)
	depth map[string]int
}

// ParsePattern parses a '/' separated pattern. The pattern must contain slide,
// and each word may appear at most once.
func ParsePattern(pattern string) (Pattern, error) {
	out := Pattern{depth: make(map[string]int)}

	words := strings.Split(strings.Trim(pattern, "/"), "/")
	for i, word := range words {
		if _, ok := patternWords[word]; !ok {
			return Pattern{}, fmt.Errorf("patch pattern %q: unknown word %q", pattern, word)
		}
		if _, dup := out.depth[word]; dup {
			return Pattern{}, fmt.Errorf("patch pattern %q: %q appears more than once", pattern, word)
		}
		out.depth[word] = len(words) - 1 - i
	}
	out.words = words

	if !out.Has(WordSlide) {
		return Pattern{}, fmt.Errorf("patch pattern %q must contain %q", pattern, WordSlide)
	}

	return out, nil
}

// Has reports whether the word is part of the pattern.
func (p Pattern) Has(word string) bool {
	_, ok := p.depth[word]
	return ok
}

func (p Pattern) String() string {
	return strings.Join(p.words, "/")
}

// Fields returns the pattern words mapped to their segments of the patch path.
func (p Pattern) Fields(patchPath string) (map[string]string, error) {
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(patchPath)), "/")
	if len(dirs) < len(p.words) {
		return nil, fmt.Errorf("patch path %q has fewer directories than the pattern %q", patchPath, p)
	}

	out := make(map[string]string, len(p.words))
	for word, depth := range p.depth {
		out[word] = dirs[len(dirs)-1-depth]
	}

	return out, nil
}
