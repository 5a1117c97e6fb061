// convertgroups rewrites a group file in the chunk or the keyed shape.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/cvsplit"
	"github.com/carbocation/cvsplit/groupfile"
	"github.com/carbocation/pfx"

	_ "github.com/carbocation/cvsplit/compileinfoprint"
)

func main() {
	var in, out, format string

	flag.StringVar(&in, "in", "", "Path (local or gs://) to the group file to convert. May be compressed.")
	flag.StringVar(&out, "out", "", "Path (local or gs://) to write the converted group file to.")
	flag.StringVar(&format, "format", groupfile.FormatKeyed.String(), "Shape of the output: 'chunks' or 'keyed'.")
	flag.Parse()

	if in == "" || out == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	to, err := groupfile.ParseFormat(format)
	if err != nil {
		log.Fatalln(err)
	}

	if err := convert(context.Background(), in, out, to); err != nil {
		log.Fatalln(err)
	}
}

func convert(ctx context.Context, in, out string, to groupfile.Format) error {
	var client *storage.Client
	if cvsplit.NeedsStorageClient(in, out) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			return pfx.Err(err)
		}
		defer client.Close()
	}

	b, err := cvsplit.ReadAll(ctx, in, client)
	if err != nil {
		return err
	}

	converted, err := groupfile.Convert(b, to)
	if err != nil {
		return err
	}

	w, err := cvsplit.Create(ctx, out, client)
	if err != nil {
		return err
	}

	if _, err := w.Write(converted); err != nil {
		w.Close()
		return pfx.Err(err)
	}

	if err := w.Close(); err != nil {
		return pfx.Err(err)
	}

	log.Printf("Wrote %s in the %s shape\n", out, to)

	return nil
}
