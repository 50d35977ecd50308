package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"
)

var verboseFlag *bool = flag.Bool("v", false, "print every region of the memory map")

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Utility that decodes boot info dumps captured from a\n")
		fmt.Fprintf(flag.CommandLine.Output(), "running kernel and reports the usable physical memory.\n")
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <boot-info-dump>...\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func handleError(err error, usage bool) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if usage {
		flag.Usage()
	}
	os.Exit(1)
}

// loadDump maps the file at path and decodes it.
func loadDump(path string) (*dump, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	d, err := decodeDump(path, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// run decodes the dumps in paths concurrently and writes their reports to w
// in argument order.
func run(w io.Writer, paths []string, verbose bool) error {
	dumps := make([]*dump, len(paths))

	var eg errgroup.Group
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			d, err := loadDump(path)
			if err != nil {
				return err
			}
			dumps[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, d := range dumps {
		d.write(w, verbose)
	}
	return nil
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		handleError(errors.New("incorrect number of arguments"), true)
	}
	if err := run(os.Stdout, flag.Args(), *verboseFlag); err != nil {
		handleError(err, false)
	}
}
