package main

import (
	"flag"
	"fmt"

	"github.com/godotgildor/intrahost/fws"
	"github.com/vertgenlab/gonomics/exception"
)

func fwsUsage(fwsFlags *flag.FlagSet) {
	fmt.Print(
		"fws - annotate a merged VCF with the Fws statistic (Manske 2012, Nature)\n" +
			"Adds PI and FWS INFO fields to every data row where the statistic is\n" +
			"defined.\n\n" +
			"Usage:\n" +
			"  intrahost fws [options] -i input.vcf -o output.vcf\n\n" +
			"Options:\n")
	fwsFlags.PrintDefaults()
}

func runFws(args []string) {
	fwsFlags := flag.NewFlagSet("fws", flag.ExitOnError)
	input := fwsFlags.String("i", "", "Input VCF file. May be gzipped.")
	output := fwsFlags.String("o", "", "Output VCF file.")
	err := fwsFlags.Parse(args)
	exception.PanicOnErr(err)
	fwsFlags.Usage = func() { fwsUsage(fwsFlags) }

	if *input == "" || *output == "" {
		fwsFlags.Usage()
		errExit("\nERROR: must specify input (-i) and output (-o)")
	}

	fws.AddToVcf(*input, *output)
}
