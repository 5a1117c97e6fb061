package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/cvsplit"
	"github.com/carbocation/cvsplit/category"
	"github.com/carbocation/cvsplit/groupfile"
	"github.com/carbocation/cvsplit/manifest"
	"github.com/carbocation/cvsplit/patch"
	"github.com/carbocation/cvsplit/report"
	"github.com/carbocation/cvsplit/splitter"
)

func run(ctx context.Context, cfg Config, stdout io.Writer) error {
	var client *storage.Client
	if cvsplit.NeedsStorageClient(cfg.GroupFileLocation, cfg.SplitLocation, cfg.ManifestLocation) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
	}

	groups, format, err := groupfile.Read(ctx, cfg.GroupFileLocation, client)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d groups (%s format) from %s\n", len(groups), format, cfg.GroupFileLocation)

	if cfg.NTrainGroups >= len(groups) {
		return fmt.Errorf("-n_train_groups must be less than the %d groups in %s, got %d", len(groups), cfg.GroupFileLocation, cfg.NTrainGroups)
	}

	categories, err := categorySet(cfg)
	if err != nil {
		return err
	}

	resolver, err := newResolver(ctx, cfg, client)
	if err != nil {
		return err
	}

	gen, err := splitter.New(splitter.Config{
		Seed:         cfg.Seed,
		NTrainGroups: cfg.NTrainGroups,
		Categories:   categories,
		Resolver:     resolver,
	})
	if err != nil {
		return err
	}

	existing, err := cvsplit.ListWithPrefix(ctx, cfg.SplitLocation, cfg.SplitFilePrefix+".", client)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("Warning: %d files starting with %q already exist in %s and may be overwritten\n", len(existing), cfg.SplitFilePrefix+".", cfg.SplitLocation)
	}

	table := report.NewTable(categories.Title(), categories.Names(), cfg.Patients)

	err = gen.Run(groups, func(s splitter.Split) error {
		counts := make([]splitter.Counts, 0, 3)
		for _, set := range [][]string{s.Training, s.Validation, s.Test} {
			c, err := gen.Count(set)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			counts = append(counts, c)
		}
		table.Add(s, counts[0], counts[1], counts[2])

		outPath := cvsplit.Join(cfg.SplitLocation, splitter.FileName(cfg.SplitFilePrefix, s))
		if err := groupfile.Write(ctx, outPath, s.Groups(), format, client); err != nil {
			return err
		}
		log.Printf("Wrote %s (%d training, %d validation, %d testing patches)\n", outPath, len(s.Training), len(s.Validation), len(s.Test))

		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, table.Markdown())
	if cfg.Latex {
		fmt.Fprintln(stdout, table.Latex())
	}

	log.Println(table.Summary())

	return nil
}

func categorySet(cfg Config) (*category.Set, error) {
	if cfg.IsBinary {
		return category.Binary(), nil
	}

	subtypes, err := category.ParseSubtypes(cfg.Subtypes)
	if err != nil {
		return nil, err
	}

	return category.Subtypes(subtypes)
}

func newResolver(ctx context.Context, cfg Config, client *storage.Client) (patch.Resolver, error) {
	pattern, err := patch.ParsePattern(cfg.PatchPattern)
	if err != nil {
		return nil, err
	}

	if cfg.IsBinary && !pattern.Has(patch.WordAnnotation) {
		return nil, fmt.Errorf("-is_binary needs the patch pattern to contain %q, got %q", patch.WordAnnotation, pattern)
	}

	switch cfg.DefineMethod {
	case DefineUseManifest:
		m, err := manifest.Read(ctx, cfg.ManifestLocation, client)
		if err != nil {
			return nil, err
		}
		return patch.NewManifestResolver(pattern, m), nil

	case DefineUseOrigin:
		if !cfg.IsBinary && !pattern.Has(patch.WordSubtype) {
			return nil, fmt.Errorf("counting by subtype with %s needs the patch pattern to contain %q, got %q", DefineUseOrigin, patch.WordSubtype, pattern)
		}

		origins, err := patch.ParseOrigins(cfg.DatasetOrigin)
		if err != nil {
			return nil, err
		}
		return patch.NewOriginResolver(pattern, origins), nil
	}

	return nil, fmt.Errorf("define method %q is not implemented", cfg.DefineMethod)
}
