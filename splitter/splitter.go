// Package splitter generates cross-validation splits from patient groups.
//
// For every combination of NTrainGroups groups, the chosen groups are merged
// into a training set and the remaining groups form an evaluation pool. The
// pool is divided into validation and test sets by patient, so that no
// patient has patches in both.
package splitter

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/carbocation/cvsplit/category"
	"github.com/carbocation/cvsplit/groupfile"
	"github.com/carbocation/cvsplit/patch"
)

// Slots under which the sets are stored in a split file.
const (
	TrainingGroup   = 1
	ValidationGroup = 2
	TestGroup       = 3
)

type Config struct {
	Seed         int64
	NTrainGroups int
	Categories   *category.Set
	Resolver     patch.Resolver
}

type Generator struct {
	Config
}

func New(cfg Config) (*Generator, error) {
	if cfg.Categories == nil {
		return nil, fmt.Errorf("no category set was configured")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("no patch resolver was configured")
	}
	if cfg.NTrainGroups < 1 {
		return nil, fmt.Errorf("the number of training groups must be at least 1, got %d", cfg.NTrainGroups)
	}

	return &Generator{Config: cfg}, nil
}

// Split is the training/validation/test partition for one combination of
// training groups.
type Split struct {
	Train []int
	Eval  []int

	Training   []string
	Validation []string
	Test       []string
}

// Name identifies the split, e.g. 1_2_train_3_eval.
func (s Split) Name() string {
	return joinInts(s.Train, "_") + "_train_" + joinInts(s.Eval, "_") + "_eval"
}

// Label is the human readable form of Name, e.g. "1 2 train 3 eval".
func (s Split) Label() string {
	return joinInts(s.Train, " ") + " train " + joinInts(s.Eval, " ") + " eval"
}

// Groups returns the sets in the slots used by split files.
func (s Split) Groups() groupfile.Groups {
	return groupfile.Groups{
		TrainingGroup:   s.Training,
		ValidationGroup: s.Validation,
		TestGroup:       s.Test,
	}
}

// FileName is the name of the split file for s, e.g.
// split.1_2_train_3_eval.json.
func FileName(prefix string, s Split) string {
	return fmt.Sprintf("%s.%s.json", prefix, s.Name())
}

func joinInts(ids []int, sep string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, sep)
}

// Split builds the split in which the train groups form the training set. The
// source groups are not modified.
func (g *Generator) Split(groups groupfile.Groups, train []int) (Split, error) {
	n := len(groups)
	out := Split{
		Train: append([]int(nil), train...),
		Eval:  Complement(n, train),
	}

	out.Training = []string{}
	for _, id := range out.Train {
		paths, exists := groups[id]
		if !exists {
			return Split{}, fmt.Errorf("group %d does not exist", id)
		}
		out.Training = append(out.Training, paths...)
	}

	var evalPatches []string
	for _, id := range out.Eval {
		evalPatches = append(evalPatches, groups[id]...)
	}

	val, test, err := g.ValTest(evalPatches)
	if err != nil {
		return Split{}, fmt.Errorf("%s: %w", out.Name(), err)
	}
	out.Validation, out.Test = val, test

	// Each set is shuffled from a freshly seeded source, so any one of them
	// is reproducible on its own.
	Shuffle(out.Training, g.Seed)
	Shuffle(out.Validation, g.Seed)
	Shuffle(out.Test, g.Seed)

	return out, nil
}

// Run builds every split and hands each one to emit, in lexicographic order of
// the training groups. Processing stops at the first error.
func (g *Generator) Run(groups groupfile.Groups, emit func(Split) error) error {
	if err := groups.Validate(); err != nil {
		return err
	}

	combos, err := Combinations(len(groups), g.NTrainGroups)
	if err != nil {
		return err
	}

	for _, train := range combos {
		s, err := g.Split(groups, train)
		if err != nil {
			return err
		}

		if err := emit(s); err != nil {
			return err
		}
	}

	return nil
}

// Shuffle permutes the paths in place with a source seeded by seed.
func Shuffle(paths []string, seed int64) {
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
}

func (g *Generator) classify(patchPath string) (patch.Info, category.Category, error) {
	info, err := g.Resolver.Resolve(patchPath)
	if err != nil {
		return patch.Info{}, category.Category{}, err
	}

	cat, err := g.Categories.Classify(info.Annotation, info.Subtype)
	if err != nil {
		return patch.Info{}, category.Category{}, fmt.Errorf("%s: %w", patchPath, err)
	}

	return info, cat, nil
}
