// Package category defines the closed set of labels that patches are counted
// and balanced by: either the binary Tumor/Other split, or subtype buckets.
package category

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Other = "Other"
	Tumor = "Tumor"
)

// DefaultSubtypes is the subtype=bucket mapping used when none is given.
var DefaultSubtypes = []string{"MMRD=0", "P53ABN=1", "P53WT=2", "POLE=3"}

// Category is one member of a Set.
type Category struct {
	Name  string
	Value int
}

func (c Category) String() string {
	return c.Name
}

// Set is an ordered, closed enumeration of categories.
type Set struct {
	binary     bool
	categories []Category

	// Upper-cased subtype label => index into categories
	lookup map[string]int
}

// Binary returns the Tumor/Other category set. Iteration order is Other, Tumor.
func Binary() *Set {
	return &Set{
		binary:     true,
		categories: []Category{{Name: Other, Value: 0}, {Name: Tumor, Value: 1}},
	}
}

// Subtype is a single subtype=bucket pair.
type Subtype struct {
	Name   string
	Bucket int
}

// ParseSubtypes parses NAME=bucket pairs, such as "MMRD=0". Each argument may
// itself hold several pairs separated by commas or whitespace.
func ParseSubtypes(args []string) ([]Subtype, error) {
	var out []Subtype
	seen := make(map[string]struct{})

	for _, arg := range args {
		for _, pair := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				return nil, fmt.Errorf("subtype %q is not of the form NAME=bucket", pair)
			}

			bucket, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("subtype %q has a non-integer bucket: %w", pair, err)
			}

			key := strings.ToUpper(parts[0])
			if _, exists := seen[key]; exists {
				return nil, fmt.Errorf("subtype %q was given more than once", parts[0])
			}
			seen[key] = struct{}{}

			out = append(out, Subtype{Name: parts[0], Bucket: bucket})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no subtypes were given")
	}

	return out, nil
}

// Subtypes returns a category set with one category per distinct bucket. The
// category is named after the first subtype listed with that bucket, and the
// categories are ordered by first appearance.
func Subtypes(subtypes []Subtype) (*Set, error) {
	if len(subtypes) == 0 {
		return nil, fmt.Errorf("no subtypes were given")
	}

	s := &Set{lookup: make(map[string]int)}
	bucketIndex := make(map[int]int)

	for _, st := range subtypes {
		key := strings.ToUpper(st.Name)
		if _, exists := s.lookup[key]; exists {
			return nil, fmt.Errorf("subtype %q was given more than once", st.Name)
		}

		idx, exists := bucketIndex[st.Bucket]
		if !exists {
			idx = len(s.categories)
			bucketIndex[st.Bucket] = idx
			s.categories = append(s.categories, Category{Name: st.Name, Value: st.Bucket})
		}
		s.lookup[key] = idx
	}

	return s, nil
}

// IsBinary reports whether this is the Tumor/Other set.
func (s *Set) IsBinary() bool {
	return s.binary
}

// Categories returns the members in iteration order.
func (s *Set) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Names returns the member names in iteration order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c.Name)
	}
	return out
}

// Len is the number of members.
func (s *Set) Len() int {
	return len(s.categories)
}

// Title is the label for count tables built from this set.
func (s *Set) Title() string {
	if s.binary {
		return "Binary T/N counts"
	}
	return "Subtype counts"
}

// Classify returns the category of a patch. In binary mode only the annotation
// is consulted: Tumor is Tumor and every other annotation is Other. In subtype
// mode only the subtype is consulted.
func (s *Set) Classify(annotation, subtype string) (Category, error) {
	if s.binary {
		if annotation == "" {
			return Category{}, fmt.Errorf("patch has no annotation to classify as %s or %s", Tumor, Other)
		}
		if annotation == Tumor {
			return s.categories[1], nil
		}
		return s.categories[0], nil
	}

	idx, exists := s.lookup[strings.ToUpper(subtype)]
	if !exists {
		return Category{}, fmt.Errorf("subtype %q is not one of %v", subtype, s.Names())
	}

	return s.categories[idx], nil
}
