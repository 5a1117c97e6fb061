package splitter

import (
	"fmt"
	"log"
)

// The evaluation pool is grouped category => patient => slide. Every level
// keeps first-seen order, which decides which patients land in validation.

type slidePatches struct {
	slide string
	paths []string
}

type patientSlides struct {
	patient string
	slides  []*slidePatches
	bySlide map[string]*slidePatches
}

func (p *patientSlides) add(slide, path string) {
	sp, exists := p.bySlide[slide]
	if !exists {
		sp = &slidePatches{slide: slide}
		p.bySlide[slide] = sp
		p.slides = append(p.slides, sp)
	}
	sp.paths = append(sp.paths, path)
}

func (p *patientSlides) appendPaths(dst []string) []string {
	for _, sp := range p.slides {
		dst = append(dst, sp.paths...)
	}
	return dst
}

type categoryPatients struct {
	patients  []*patientSlides
	byPatient map[string]*patientSlides
}

func (c *categoryPatients) patient(id string) *patientSlides {
	ps, exists := c.byPatient[id]
	if !exists {
		ps = &patientSlides{patient: id, bySlide: make(map[string]*slidePatches)}
		c.byPatient[id] = ps
		c.patients = append(c.patients, ps)
	}
	return ps
}

func (g *Generator) groupEvalPatches(evalPatches []string) (map[string]*categoryPatients, error) {
	out := make(map[string]*categoryPatients)

	for _, patchPath := range evalPatches {
		info, cat, err := g.classify(patchPath)
		if err != nil {
			return nil, err
		}

		cp, exists := out[cat.Name]
		if !exists {
			cp = &categoryPatients{byPatient: make(map[string]*patientSlides)}
			out[cat.Name] = cp
		}
		cp.patient(info.Patient).add(info.Slide, patchPath)
	}

	return out, nil
}

// ValTest splits the evaluation patches into validation and test sets such
// that no patient contributes to both. Within each category the patients are
// halved in the order they were first seen: the first len/2 go to validation
// and the rest to test. A patient already placed by an earlier category stays
// on its side and counts toward that side's share. When the validation set
// ends up larger than the test set, the two are swapped.
//
// In binary mode a category without any patients is an error. For subtypes it
// is logged and the category is skipped.
func (g *Generator) ValTest(evalPatches []string) (val, test []string, err error) {
	byCategory, err := g.groupEvalPatches(evalPatches)
	if err != nil {
		return nil, nil, err
	}

	// patient => true if placed in validation
	inVal := make(map[string]bool)

	val, test = []string{}, []string{}
	for _, name := range g.Categories.Names() {
		cp, exists := byCategory[name]
		if !exists {
			if g.Categories.IsBinary() {
				return nil, nil, &MissingCategoryError{Category: name}
			}
			log.Printf("Warning: an eval set has no %s patches\n", name)
			continue
		}

		valShare := len(cp.patients) / 2
		valCount := 0
		for _, ps := range cp.patients {
			if inVal[ps.patient] {
				valCount++
			}
		}

		for _, ps := range cp.patients {
			toVal, placed := inVal[ps.patient]
			if !placed {
				toVal = valCount < valShare
				if toVal {
					valCount++
				}
				inVal[ps.patient] = toVal
			}

			if toVal {
				val = ps.appendPaths(val)
			} else {
				test = ps.appendPaths(test)
			}
		}
	}

	// Make sure the test set has at least as much data as the validation set
	if len(val) > len(test) {
		val, test = test, val
	}

	return val, test, nil
}

// MissingCategoryError reports an evaluation pool with no patches from a
// category that must be present.
type MissingCategoryError struct {
	Category string
}

func (e *MissingCategoryError) Error() string {
	return fmt.Sprintf("there are no %s patches", e.Category)
}
