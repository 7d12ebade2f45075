package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/godotgildor/intrahost/merge"
	"github.com/vertgenlab/gonomics/exception"
)

func mergeUsage(mergeFlags *flag.FlagSet) {
	fmt.Print(
		"merge - merge filtered per-sample intrahost calls into a multi-sample VCF\n" +
			"Each sample's calls are mapped from its own consensus assembly into the\n" +
			"coordinates of the shared reference.\n\n" +
			"Usage:\n" +
			"  intrahost merge [options] -ref reference.fasta -o output.vcf \\\n" +
			"    -sample s1 -isnv s1.txt -assembly s1.fasta \\\n" +
			"    -sample s2 -isnv s2.txt -assembly s2.fasta\n\n" +
			"The reference and every assembly fasta must have a .fai index.\n" +
			"Output ending in .vcf.gz is bgzip-compressed and tabix-indexed.\n\n" +
			"Options:\n")
	mergeFlags.PrintDefaults()
}

// inputFiles is a custom type that gets filled by flag.Parse()
type inputFiles []string

// String to satisfy flag.Value interface
func (i *inputFiles) String() string {
	return strings.Join(*i, " ")
}

// Set to satisfy flag.Value interface
func (i *inputFiles) Set(value string) error {
	*i = append(*i, value)
	return nil
}

func runMerge(args []string) {
	mergeFlags := flag.NewFlagSet("merge", flag.ExitOnError)
	var samples, isnvs, assemblies inputFiles
	mergeFlags.Var(&samples, "sample", "Sample name. May be declared more than once.")
	mergeFlags.Var(&isnvs, "isnv", "Filtered variant file for a sample, in the same order as -sample flags.")
	mergeFlags.Var(&assemblies, "assembly", "Consensus assembly fasta for a sample, in the same order as -sample flags.")
	ref := mergeFlags.String("ref", "", "Reference genome fasta. The output uses its chromosome names, coordinates, and reference alleles.")
	output := mergeFlags.String("o", "", "Output VCF file. Must end in .vcf or .vcf.gz.")
	stripChrVersion := mergeFlags.Bool("stripChrVersion", false, "Strip trailing Genbank accession versions from chromosome names.")
	err := mergeFlags.Parse(args)
	exception.PanicOnErr(err)
	mergeFlags.Usage = func() { mergeUsage(mergeFlags) }

	if *ref == "" || *output == "" {
		mergeFlags.Usage()
		errExit("\nERROR: must specify reference (-ref) and output (-o)")
	}
	if len(samples) == 0 {
		mergeFlags.Usage()
		errExit("\nERROR: must specify at least one sample (-sample)")
	}
	if len(samples) != len(isnvs) || len(samples) != len(assemblies) {
		mergeFlags.Usage()
		errExit("\nERROR: -sample, -isnv, and -assembly must be declared the same number of times")
	}

	merge.ToVcf(*ref, *output, samples, isnvs, assemblies, merge.Options{StripChrVersion: *stripChrVersion})
}
