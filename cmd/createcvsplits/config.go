package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/cvsplit"
	"github.com/carbocation/cvsplit/category"
	"github.com/carbocation/cvsplit/patch"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

const (
	DefineUseManifest = "use-manifest"
	DefineUseOrigin   = "use-origin"
)

const (
	defaultSeed            = 256
	defaultNTrainGroups    = 2
	defaultSplitFilePrefix = "split"
)

// Config holds every setting of a run. Values come from the defaults, then
// from the -config file, then from flags that were explicitly set.
type Config struct {
	Seed              int64    `yaml:"seed"`
	NTrainGroups      int      `yaml:"n_train_groups"`
	IsBinary          bool     `yaml:"is_binary"`
	Subtypes          []string `yaml:"subtypes"`
	PatchPattern      string   `yaml:"patch_pattern"`
	GroupFileLocation string   `yaml:"group_file_location"`
	SplitFilePrefix   string   `yaml:"split_file_prefix"`
	SplitLocation     string   `yaml:"split_location"`
	Latex             bool     `yaml:"latex"`
	Patients          bool     `yaml:"patients"`

	DefineMethod     string   `yaml:"define_method"`
	ManifestLocation string   `yaml:"manifest_location"`
	DatasetOrigin    []string `yaml:"dataset_origin"`
}

func defaultConfig() Config {
	origins := make([]string, 0, len(patch.DefaultOrigins))
	for _, o := range patch.DefaultOrigins {
		origins = append(origins, string(o))
	}

	return Config{
		Seed:            defaultSeed,
		NTrainGroups:    defaultNTrainGroups,
		Subtypes:        append([]string(nil), category.DefaultSubtypes...),
		PatchPattern:    patch.DefaultPattern,
		SplitFilePrefix: defaultSplitFilePrefix,
		DatasetOrigin:   origins,
	}
}

const usage = `createcvsplits generates training, validation and testing splits for cross
validation from a group file. Suppose a group file has 3 groups 1, 2, 3. With
-n_train_groups 2 this produces three split files where

 1) 1 and 2 are combined into a training set, and 3 is split by patient into a
    validation set and a test set
 2) 1 and 3 are combined into a training set, and 2 is split
 3) 2 and 3 are combined into a training set, and 1 is split

Patient and slide IDs are determined either from a manifest (use-manifest) or
from the slide naming convention of the dataset origin (use-origin).

Usage:
  createcvsplits [flags] use-manifest -manifest_location FILE
  createcvsplits [flags] use-origin [-dataset_origin ovcare,tcga,german]

Flags:
`

func (c *Config) load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, " ")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, strings.Fields(v)...)
	return nil
}

// parseArgs builds the Config from the command line, excluding the program
// name.
func parseArgs(args []string, stderr io.Writer) (Config, error) {
	def := defaultConfig()
	fromFlags := defaultConfig()

	var configPath string
	var subtypes stringList

	fs := flag.NewFlagSet("createcvsplits", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&configPath, "config", "", "Optional YAML (or JSON) file with any of the settings below, keyed by flag name. Flags that are set explicitly take precedence.")
	fs.Int64Var(&fromFlags.Seed, "seed", def.Seed, "Seed for random shuffle.")
	fs.IntVar(&fromFlags.NTrainGroups, "n_train_groups", def.NTrainGroups, "Number of groups from the group file to combine together into one training set.")
	fs.BoolVar(&fromFlags.IsBinary, "is_binary", false, "Count and balance patches by Tumor/Other (true) or by subtype (false).")
	fs.Var(&subtypes, "subtypes", "Space separated subtype=bucket pairs for this study. For one-vs-rest on MMRD vs P53ABN, P53WT and POLE, pass 'MMRD=0 P53ABN=1 P53WT=1 POLE=1'. (default \""+strings.Join(def.Subtypes, " ")+"\")")
	fs.StringVar(&fromFlags.PatchPattern, "patch_pattern", def.PatchPattern, "'/' separated words describing the directories above each patch, from {annotation, subtype, slide, patient, magnification}. /rootdir/Tumor/MMRD/VOA-1234/1_2.png is annotation/subtype/slide.")
	fs.StringVar(&fromFlags.GroupFileLocation, "group_file_location", "", "Path (local or gs://) to the group JSON file to create cross validation splits with.")
	fs.StringVar(&fromFlags.SplitFilePrefix, "split_file_prefix", def.SplitFilePrefix, "The prefix for the name of the generated split files.")
	fs.StringVar(&fromFlags.SplitLocation, "split_location", "", "Directory (local or gs://) to save the cross validation split files in.")
	fs.BoolVar(&fromFlags.Latex, "latex", false, "Also print the count tables as LaTeX rows.")
	fs.BoolVar(&fromFlags.Patients, "patients", false, "Also report the number of distinct patients and slides in each set.")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	fromFlags.Subtypes = subtypes

	cfg := defaultConfig()
	if configPath != "" {
		if err := cfg.load(configPath); err != nil {
			return Config{}, err
		}
	}

	overrides := map[string]func(){
		"seed":                func() { cfg.Seed = fromFlags.Seed },
		"n_train_groups":      func() { cfg.NTrainGroups = fromFlags.NTrainGroups },
		"is_binary":           func() { cfg.IsBinary = fromFlags.IsBinary },
		"subtypes":            func() { cfg.Subtypes = fromFlags.Subtypes },
		"patch_pattern":       func() { cfg.PatchPattern = fromFlags.PatchPattern },
		"group_file_location": func() { cfg.GroupFileLocation = fromFlags.GroupFileLocation },
		"split_file_prefix":   func() { cfg.SplitFilePrefix = fromFlags.SplitFilePrefix },
		"split_location":      func() { cfg.SplitLocation = fromFlags.SplitLocation },
		"latex":               func() { cfg.Latex = fromFlags.Latex },
		"patients":            func() { cfg.Patients = fromFlags.Patients },
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})

	if err := parseDefineMethod(&cfg, fs.Args(), stderr); err != nil {
		return Config{}, err
	}

	if err := cfg.expandPaths(); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

func parseDefineMethod(cfg *Config, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		// The define method may come from the config file alone.
		return nil
	}

	cfg.DefineMethod = args[0]

	manifestLocation := cfg.ManifestLocation
	var origins stringList

	sub := flag.NewFlagSet(args[0], flag.ContinueOnError)
	sub.SetOutput(stderr)

	switch args[0] {
	case DefineUseManifest:
		sub.StringVar(&manifestLocation, "manifest_location", cfg.ManifestLocation, "Path (local or gs://) to the manifest CSV file, with columns among origin, patient_id, slide_id, slide_path, annotation_path and subtype. origin, patient_id and slide_id are required.")
	case DefineUseOrigin:
		sub.Var(&origins, "dataset_origin", "Origins of the slide dataset the patches are generated from, from {ovcare, tcga, german}, separated by spaces or commas. (default \""+strings.Join(cfg.DatasetOrigin, " ")+"\")")
	default:
		return fmt.Errorf("define method %q is not one of %s or %s", args[0], DefineUseManifest, DefineUseOrigin)
	}

	if err := sub.Parse(args[1:]); err != nil {
		return err
	}
	if sub.NArg() > 0 {
		return fmt.Errorf("unexpected arguments after %s: %v", args[0], sub.Args())
	}

	cfg.ManifestLocation = manifestLocation
	if len(origins) > 0 {
		cfg.DatasetOrigin = origins
	}

	return nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.GroupFileLocation, &c.SplitLocation, &c.ManifestLocation} {
		expanded, err := cvsplit.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	return nil
}

func (c Config) validate() error {
	if c.GroupFileLocation == "" {
		return fmt.Errorf("please provide -group_file_location")
	}

	if c.SplitLocation == "" {
		return fmt.Errorf("please provide -split_location")
	}

	if c.SplitFilePrefix == "" {
		return fmt.Errorf("-split_file_prefix cannot be empty")
	}

	if c.NTrainGroups < 1 {
		return fmt.Errorf("-n_train_groups must be at least 1, got %d", c.NTrainGroups)
	}

	switch c.DefineMethod {
	case DefineUseManifest:
		if c.ManifestLocation == "" {
			return fmt.Errorf("%s requires -manifest_location", DefineUseManifest)
		}
	case DefineUseOrigin:
		if _, err := patch.ParseOrigins(c.DatasetOrigin); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("please choose how to define patient and slide IDs: %s or %s", DefineUseManifest, DefineUseOrigin)
	default:
		return fmt.Errorf("define method %q is not one of %s or %s", c.DefineMethod, DefineUseManifest, DefineUseOrigin)
	}

	if !c.IsBinary {
		if _, err := category.ParseSubtypes(c.Subtypes); err != nil {
			return err
		}
	}

	return nil
}
