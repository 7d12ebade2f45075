// Package fws computes the Fws within-host diversity statistic from a
// multi-sample VCF carrying per-sample allele frequencies (Manske 2012,
// Nature) and annotates the VCF with it.
package fws

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godotgildor/intrahost/tabfile"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"gonum.org/v1/gonum/stat"
)

// Compute derives the population heterozygosity PI and the Fws statistic for
// one VCF data row. ok is false when the row carries no AF format field,
// fewer than two usable samples, or zero population heterozygosity. Only
// samples with a reference or first-alternate genotype contribute, and only
// their first-alternate frequency is used.
func Compute(row []string) (pi, fws float64, ok bool) {
	format := strings.Split(row[8], ":")
	afIdx := -1
	for i, f := range format {
		if f == "AF" {
			afIdx = i
		}
	}
	if afIdx == -1 {
		return 0, 0, false
	}

	var freqs []float64
	for _, sample := range row[9:] {
		dat := strings.Split(sample, ":")
		if len(dat) <= afIdx || dat[afIdx] == "." || dat[0] == "." {
			continue
		}
		geno, err := strconv.Atoi(dat[0])
		exception.PanicOnErr(err)
		if geno > 1 {
			continue
		}
		f, err := strconv.ParseFloat(strings.SplitN(dat[afIdx], ",", 2)[0], 64)
		exception.PanicOnErr(err)
		freqs = append(freqs, f)
	}
	if len(freqs) < 2 {
		return 0, 0, false
	}

	pS := stat.Mean(freqs, nil)
	hS := 2 * pS * (1.0 - pS)
	if hS == 0.0 {
		return 0, 0, false
	}
	hW := make([]float64, len(freqs))
	for i, p := range freqs {
		hW[i] = 2 * p * (1.0 - p)
	}
	return hS, 1.0 - stat.Mean(hW, nil)/hS, true
}

// AddToVcf copies a VCF while appending PI and FWS INFO fields to every data
// row where the statistic is defined. The two INFO definitions are inserted
// ahead of the column header line.
func AddToVcf(inVcf, outVcf string) {
	out := fileio.EasyCreate(outVcf)
	for _, line := range tabfile.ReadLines(inVcf) {
		switch {
		case strings.HasPrefix(line, "##"):
			fmt.Fprintln(out, line)
		case strings.HasPrefix(line, "#"):
			fmt.Fprintln(out, "##INFO=<ID=PI,Number=1,Type=Float,Description=\"Heterozygosity for this SNP in this sample set\">")
			fmt.Fprintln(out, "##INFO=<ID=FWS,Number=1,Type=Float,Description=\"Fws statistic for iSNV to SNP comparisons (Manske 2012, Nature)\">")
			fmt.Fprintln(out, line)
		default:
			row := strings.Split(line, "\t")
			if pi, fws, ok := Compute(row); ok {
				row[7] = fmt.Sprintf("%s;PI=%s;FWS=%s", row[7], formatStat(pi), formatStat(fws))
			}
			fmt.Fprintln(out, strings.Join(row, "\t"))
		}
	}
	err := out.Close()
	exception.PanicOnErr(err)
}

func formatStat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
