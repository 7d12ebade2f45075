package main

import (
	"flag"
	"fmt"

	"github.com/godotgildor/intrahost/report"
	"github.com/guptarohit/asciigraph"
	"github.com/vertgenlab/gonomics/exception"
)

func tableUsage(tableFlags *flag.FlagSet) {
	fmt.Print(
		"table - tabulate iSNVs from a merged VCF\n" +
			"Emits one row per sample per site carrying intrahost frequency data,\n" +
			"with within-host heterozygosity and any snpEff annotations decoded.\n\n" +
			"Usage:\n" +
			"  intrahost table [options] -i input.vcf -o table.txt\n\n" +
			"Options:\n")
	tableFlags.PrintDefaults()
}

func runTable(args []string) {
	tableFlags := flag.NewFlagSet("table", flag.ExitOnError)
	input := tableFlags.String("i", "", "Input VCF file. May be gzipped.")
	output := tableFlags.String("o", "", "Output tab-separated table.")
	plot := tableFlags.Bool("plot", false, "Print an ascii histogram of the iSNV frequency spectrum.")
	err := tableFlags.Parse(args)
	exception.PanicOnErr(err)
	tableFlags.Usage = func() { tableUsage(tableFlags) }

	if *input == "" || *output == "" {
		tableFlags.Usage()
		errExit("\nERROR: must specify input (-i) and output (-o)")
	}

	rows := report.Table(*input)
	report.Write(*output, report.TableHeader, rows)

	if *plot {
		fmt.Println(asciigraph.Plot(report.FreqSpectrum(rows, 20),
			asciigraph.Height(10), asciigraph.Precision(0),
			asciigraph.Caption("iSNV frequency spectrum (0-1 in 20 bins)")))
	}
}
