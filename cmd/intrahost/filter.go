package main

import (
	"flag"
	"fmt"

	"github.com/godotgildor/intrahost/vphaser"
	"github.com/vertgenlab/gonomics/exception"
)

func filterUsage(filterFlags *flag.FlagSet) {
	fmt.Print(
		"filter - filter raw variant caller output for strand bias\n" +
			"Rows keeping fewer than two alleles are removed, and the library count\n" +
			"and library bias columns are added to surviving rows.\n\n" +
			"Usage:\n" +
			"  intrahost filter [options] -i raw.txt -o filtered.txt\n\n" +
			"Options:\n")
	filterFlags.PrintDefaults()
}

func runFilter(args []string) {
	filterFlags := flag.NewFlagSet("filter", flag.ExitOnError)
	input := filterFlags.String("i", "", "Input tab-separated headerless variant file with the chromosome name prepended to each row.")
	output := filterFlags.String("o", "", "Output filtered variant file.")
	minReadsEach := filterFlags.Int("minReadsEach", 5, "Minimum number of reads on each strand. Must be at least 1.")
	maxBias := filterFlags.Float64("maxBias", 10, "Maximum allowable ratio of reads between the two strands.")
	err := filterFlags.Parse(args)
	exception.PanicOnErr(err)
	filterFlags.Usage = func() { filterUsage(filterFlags) }

	if *input == "" || *output == "" {
		filterFlags.Usage()
		errExit("\nERROR: must specify input (-i) and output (-o)")
	}
	if *minReadsEach < 1 {
		filterFlags.Usage()
		errExit("\nERROR: -minReadsEach must be at least 1")
	}

	vphaser.FilterFile(*input, *output, *minReadsEach, *maxBias)
}
