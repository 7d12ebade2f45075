package main

import (
	"flag"
	"fmt"

	"github.com/godotgildor/intrahost/report"
	"github.com/godotgildor/intrahost/tabfile"
	"github.com/vertgenlab/gonomics/exception"
)

func perPatientUsage(perPatientFlags *flag.FlagSet) {
	fmt.Print(
		"perpatient - aggregate an iSNV table per patient across time points\n" +
			"Rows sharing a position and patient are collapsed to the median\n" +
			"frequency with recomputed heterozygosity.\n\n" +
			"Usage:\n" +
			"  intrahost perpatient [options] -i table.txt -o perpatient.txt\n\n" +
			"Options:\n")
	perPatientFlags.PrintDefaults()
}

func runPerPatient(args []string) {
	perPatientFlags := flag.NewFlagSet("perpatient", flag.ExitOnError)
	input := perPatientFlags.String("i", "", "Input iSNV table from 'intrahost table'. May be gzipped.")
	output := perPatientFlags.String("o", "", "Output tab-separated table.")
	err := perPatientFlags.Parse(args)
	exception.PanicOnErr(err)
	perPatientFlags.Usage = func() { perPatientUsage(perPatientFlags) }

	if *input == "" || *output == "" {
		perPatientFlags.Usage()
		errExit("\nERROR: must specify input (-i) and output (-o)")
	}

	_, rows := tabfile.ReadRows(*input)
	report.Write(*output, report.PerPatientHeader, report.PerPatient(rows))
}
