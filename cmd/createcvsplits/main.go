// createcvsplits generates cross-validation split files from a group file,
// such that each split's validation and test sets share no patients.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	_ "github.com/carbocation/cvsplit/compileinfoprint"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		log.Fatalln(err)
	}

	log.Println("Launched createcvsplits")

	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		log.Fatalln(err)
	}
}
