// Command reorganize copies an exported classification dataset into one directory per category.
//
// Example:
//
//	reorganize --directory_in /tmp/exported_directory --directory_out /tmp/directory_out
package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/nvr-ai/vision-eval/dataset"
	"github.com/nvr-ai/vision-eval/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	parser := argparse.NewParser("reorganize", "Reorganize an exported classification dataset into folders, each subfolder being a label")
	in := parser.String("i", "directory_in", &argparse.Options{Help: "Exported dataset directory", Required: true})
	out := parser.String("o", "directory_out", &argparse.Options{Help: "Path where the data is saved again", Required: true})
	level := parser.String("l", "log-level", &argparse.Options{Help: "Log level", Default: "info"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logger.Init(logger.Options{Level: *level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{"directory_in": *in, "directory_out": *out}).Info("reorganizing")

	counts, err := dataset.Reorganize(*in, *out, log)
	if err != nil {
		log.WithError(err).Fatal("reorganize failed")
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	log.WithFields(logrus.Fields{"categories": len(counts), "images": total}).Info("done")
}
