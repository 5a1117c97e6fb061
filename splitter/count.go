package splitter

// Counts tallies one set of patches by category, in category-set order.
type Counts struct {
	Categories []string
	Patches    []int
	Patients   []int
	Slides     []int

	TotalPatches  int
	TotalPatients int
	TotalSlides   int
}

// Count classifies each patch and tallies patches, distinct patients and
// distinct slides per category. A patient seen under two categories is counted
// once in each, but once in the total.
func (g *Generator) Count(paths []string) (Counts, error) {
	names := g.Categories.Names()
	out := Counts{
		Categories: names,
		Patches:    make([]int, len(names)),
		Patients:   make([]int, len(names)),
		Slides:     make([]int, len(names)),
	}

	idx := make(map[string]int, len(names))
	for i, name := range names {
		idx[name] = i
	}

	patients := make([]map[string]struct{}, len(names))
	slides := make([]map[string]struct{}, len(names))
	allPatients := make(map[string]struct{})
	allSlides := make(map[string]struct{})
	for i := range names {
		patients[i] = make(map[string]struct{})
		slides[i] = make(map[string]struct{})
	}

	for _, patchPath := range paths {
		info, cat, err := g.classify(patchPath)
		if err != nil {
			return Counts{}, err
		}

		i := idx[cat.Name]
		out.Patches[i]++
		patients[i][info.Patient] = struct{}{}
		slides[i][info.Slide] = struct{}{}
		allPatients[info.Patient] = struct{}{}
		allSlides[info.Slide] = struct{}{}
	}

	for i := range names {
		out.Patients[i] = len(patients[i])
		out.Slides[i] = len(slides[i])
	}
	out.TotalPatches = len(paths)
	out.TotalPatients = len(allPatients)
	out.TotalSlides = len(allSlides)

	return out, nil
}
