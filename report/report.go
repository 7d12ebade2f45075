// Package report turns merged intrahost VCF data into tabular summaries: a
// per-sample iSNV table with within-host heterozygosity and optional snpEff
// annotations, and a per-patient aggregation across time points.
package report

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/godotgildor/intrahost/tabfile"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"golang.org/x/exp/slices"
)

// TableHeader is the column set of the per-sample iSNV table.
var TableHeader = []string{"pos", "sample", "patient", "time", "alleles", "iSNV_freq", "Hw",
	"eff_type", "eff_codon_dna", "eff_aa", "eff_aa_pos", "eff_prot_len", "eff_gene", "eff_protein"}

// PerPatientHeader is the column set of the per-patient table.
var PerPatientHeader = []string{"pos", "patient", "alleles", "iSNV_freq", "Hw",
	"eff_type", "eff_codon_dna", "eff_aa", "eff_aa_pos", "eff_prot_len", "eff_gene", "eff_protein"}

var fixedVcfCols = map[string]bool{
	"CHROM": true, "POS": true, "ID": true, "REF": true, "ALT": true,
	"QUAL": true, "FILTER": true, "INFO": true, "FORMAT": true,
}

var aaPosition = regexp.MustCompile(`(\d+)`)

// Table reads a merged VCF and emits one record per sample per site where
// the sample carries intrahost frequency data. The sample name is split on
// '.' into patient and time point.
func Table(inVcf string) []map[string]string {
	header, rows := tabfile.ReadRows(inVcf)
	var ans []map[string]string
	for _, row := range rows {
		info := parseInfo(row["INFO"])
		for _, s := range header {
			if fixedVcfCols[s] {
				continue
			}
			v, ok := row[s]
			if !ok {
				continue
			}
			dat := strings.Split(v, ":")
			if len(dat) < 2 {
				log.Fatalf("ERROR: malformed sample field %q for %s", v, s)
			}
			f := dat[1]
			if f == "" || f == "." {
				continue
			}
			var sum float64
			var sumSq float64
			for _, w := range strings.Split(f, ",") {
				p, err := strconv.ParseFloat(w, 64)
				exception.PanicOnErr(err)
				sum += p
				sumSq += p * p
			}
			hw := 1.0 - ((1.0-sum)*(1.0-sum) + sumSq)
			out := map[string]string{
				"chr":       row["CHROM"],
				"pos":       row["POS"],
				"alleles":   row["REF"] + "," + row["ALT"],
				"sample":    s,
				"iSNV_freq": formatStat(sum),
				"Hw":        formatStat(hw),
			}
			if eff, ok := info["EFF"]; ok {
				addEffFields(out, eff)
			}
			if pi, ok := info["PI"]; ok {
				out["Hs_snp"] = pi
			}
			if fws, ok := info["FWS"]; ok {
				out["Fws_snp"] = fws
			}
			parts := strings.Split(s, ".")
			out["patient"] = parts[0]
			if len(parts) > 1 {
				out["time"] = parts[1]
			}
			ans = append(ans, out)
		}
	}
	return ans
}

func parseInfo(info string) map[string]string {
	ans := make(map[string]string)
	for _, kv := range strings.Split(info, ";") {
		if kv == "" || kv == "." {
			continue
		}
		words := strings.SplitN(kv, "=", 2)
		if len(words) != 2 {
			log.Fatalf("ERROR: malformed INFO field %q", kv)
		}
		ans[words[0]] = words[1]
	}
	return ans
}

// addEffFields decodes a snpEff EFF annotation. Secreted glycoprotein
// effects and effects past the first transcript rank are discarded; exactly
// one effect must remain.
func addEffFields(out map[string]string, eff string) {
	var kept [][]string
	for _, e := range strings.Split(eff, ",") {
		fields := strings.Split(strings.ReplaceAll(strings.TrimRight(e, ")"), "(", "|"), "|")
		if len(fields) < 12 {
			log.Fatalf("ERROR: malformed EFF annotation %q", e)
		}
		sel := []string{fields[0], fields[3], fields[4], fields[5], fields[6], fields[9], fields[11]}
		rank, err := strconv.Atoi(sel[6])
		exception.PanicOnErr(err)
		if sel[5] == "sGP" || sel[5] == "ssGP" || rank >= 2 {
			continue
		}
		kept = append(kept, sel)
	}
	if len(kept) != 1 {
		log.Fatalf("ERROR: expected a single effect at %s: %v", out["pos"], kept)
	}
	sel := kept[0]
	if sel[2] != "" {
		aa := strings.Split(sel[2], "/")[0]
		if !strings.HasPrefix(aa, "p.") {
			log.Fatalf("ERROR: malformed amino acid change %q", aa)
		}
		m := aaPosition.FindStringSubmatch(aa[2:])
		if m == nil {
			log.Fatalf("ERROR: no position in amino acid change %q", aa)
		}
		out["eff_aa_pos"] = m[1]
	}
	out["eff_type"] = sel[0]
	out["eff_codon_dna"] = sel[1]
	out["eff_aa"] = sel[2]
	out["eff_prot_len"] = sel[3]
	out["eff_gene"] = sel[4]
	out["eff_protein"] = sel[5]
}

// PerPatient collapses table records sharing a position and patient. When
// time points are present the frequency is aggregated with the median and
// the heterozygosity recomputed for a biallelic site; without time points a
// position may carry only a single record per patient.
func PerPatient(rows []map[string]string) []map[string]string {
	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := posOf(rows[i]), posOf(rows[j])
		if pi != pj {
			return pi < pj
		}
		return rows[i]["patient"] < rows[j]["patient"]
	})
	var ans []map[string]string
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && posOf(rows[j]) == posOf(rows[i]) && rows[j]["patient"] == rows[i]["patient"] {
			j++
		}
		group := rows[i:j]
		row := group[0]
		var haveTime bool
		for _, r := range group {
			if r["time"] != "" {
				haveTime = true
			}
		}
		if haveTime {
			freqs := make([]float64, len(group))
			for k, r := range group {
				f, err := strconv.ParseFloat(r["iSNV_freq"], 64)
				exception.PanicOnErr(err)
				freqs[k] = f
			}
			f := median(freqs)
			row["iSNV_freq"] = formatStat(f)
			row["Hw"] = formatStat(2 * f * (1.0 - f))
			row["sample"] = row["patient"]
		} else if len(group) != 1 {
			log.Fatalf("ERROR: found multiple rows for %s:%s", row["pos"], row["patient"])
		}
		ans = append(ans, row)
		i = j
	}
	return ans
}

func posOf(row map[string]string) int {
	pos, err := strconv.Atoi(row["pos"])
	exception.PanicOnErr(err)
	return pos
}

func median(xs []float64) float64 {
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2.0
}

// FreqSpectrum bins the table's iSNV frequencies into a fixed-width
// histogram over [0, 1].
func FreqSpectrum(rows []map[string]string, bins int) []float64 {
	ans := make([]float64, bins)
	for _, row := range rows {
		f, err := strconv.ParseFloat(row["iSNV_freq"], 64)
		exception.PanicOnErr(err)
		idx := int(f * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		ans[idx]++
	}
	return ans
}

// Write serializes records under the given header, leaving absent
// columns empty.
func Write(outFile string, header []string, rows []map[string]string) {
	out := fileio.EasyCreate(outFile)
	fmt.Fprintln(out, strings.Join(header, "\t"))
	fields := make([]string, len(header))
	for _, row := range rows {
		for i, h := range header {
			fields[i] = row[h]
		}
		fmt.Fprintln(out, strings.Join(fields, "\t"))
	}
	err := out.Close()
	exception.PanicOnErr(err)
}

func formatStat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
