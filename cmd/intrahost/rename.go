package main

import (
	"flag"
	"fmt"

	"github.com/godotgildor/intrahost/tabfile"
	"github.com/vertgenlab/gonomics/exception"
)

func renameUsage(renameFlags *flag.FlagSet) {
	fmt.Print(
		"rename - rename values in one column of a tab file\n" +
			"The first line passes through untouched as a header. Every value in the\n" +
			"chosen column must be present in the map file.\n\n" +
			"Usage:\n" +
			"  intrahost rename [options] -i input.txt -m map.txt -o output.txt\n\n" +
			"Options:\n")
	renameFlags.PrintDefaults()
}

func runRename(args []string) {
	renameFlags := flag.NewFlagSet("rename", flag.ExitOnError)
	input := renameFlags.String("i", "", "Input tab file.")
	mapFile := renameFlags.String("m", "", "Two-column headerless file mapping input values to output values.")
	output := renameFlags.String("o", "", "Output tab file.")
	col := renameFlags.Int("col", 0, "Column to replace, 0-based.")
	err := renameFlags.Parse(args)
	exception.PanicOnErr(err)
	renameFlags.Usage = func() { renameUsage(renameFlags) }

	if *input == "" || *mapFile == "" || *output == "" {
		renameFlags.Usage()
		errExit("\nERROR: must specify input (-i), map file (-m), and output (-o)")
	}

	tabfile.Rename(*input, *mapFile, *output, *col)
}
