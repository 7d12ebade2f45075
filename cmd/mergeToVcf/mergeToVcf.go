package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/godotgildor/intrahost/merge"
	"github.com/pkg/profile"
)

func usage() {
	fmt.Print(
		"mergeToVcf - Merge filtered per-sample intrahost variant calls into a multi-sample VCF.\n" +
			"Each sample's calls are mapped from its own consensus assembly into the\n" +
			"coordinates of the shared reference. The reference and every assembly\n" +
			"fasta must have a .fai index.\n" +
			"Usage:\n" +
			"mergeToVcf [options] -ref reference.fasta -o output.vcf -sample s1 -isnv s1.txt -assembly s1.fasta\n\n")
	flag.PrintDefaults()
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

func main() {
	var samples, isnvs, assemblies inputFiles
	cpuprofile := flag.Bool("cpuprofile", false, "write cpu profile")
	memprofile := flag.Bool("memprofile", false, "write memory profile")
	flag.Var(&samples, "sample", "Sample name. May be declared more than once.")
	flag.Var(&isnvs, "isnv", "Filtered variant file for a sample, in the same order as -sample flags.")
	flag.Var(&assemblies, "assembly", "Consensus assembly fasta for a sample, in the same order as -sample flags.")
	ref := flag.String("ref", "", "Reference genome fasta. The output uses its chromosome names, coordinates, and reference alleles. Must be indexed.")
	output := flag.String("o", "", "Output VCF file. Must end in .vcf or .vcf.gz.")
	stripChrVersion := flag.Bool("stripChrVersion", false, "Strip trailing Genbank accession versions from chromosome names.")
	flag.Parse()

	if *memprofile && *cpuprofile {
		usage()
		log.Fatal("ERROR: -memprofile and -cpuprofile are mutually exclusive.")
	}
	if *memprofile {
		defer profile.Start(profile.MemProfile).Stop()
	}
	if *cpuprofile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	if *ref == "" || *output == "" {
		usage()
		log.Fatal("ERROR: must specify reference (-ref) and output (-o)")
	}
	if len(samples) == 0 || len(samples) != len(isnvs) || len(samples) != len(assemblies) {
		usage()
		log.Fatal("ERROR: -sample, -isnv, and -assembly must be declared the same number of times, at least once")
	}

	merge.ToVcf(*ref, *output, samples, isnvs, assemblies, merge.Options{StripChrVersion: *stripChrVersion})
}
