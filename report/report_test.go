package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeVcf(t *testing.T, dir string, dataRows ...string) string {
	path := filepath.Join(dir, "in.vcf")
	lines := []string{
		"##fileformat=VCFv4.1",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tpat1.1\tpat2",
	}
	lines = append(lines, dataRows...)
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTable(t *testing.T) {
	dir := t.TempDir()
	in := writeVcf(t, dir,
		"chr1\t30\t.\tA\tC\t.\t.\t.\tGT:AF\t0:0.25\t.:.",
		"chr1\t40\t.\tA\tC,G\t.\t.\t.\tGT:AF\t1:0.5,0.25\t0:0",
	)

	rows := Table(in)
	if len(rows) != 3 {
		t.Fatalf("expected 3 records, got %d", len(rows))
	}
	r := rows[0]
	if r["pos"] != "30" || r["sample"] != "pat1.1" || r["patient"] != "pat1" || r["time"] != "1" {
		t.Errorf("problem with sample naming: %v", r)
	}
	if r["alleles"] != "A,C" || r["iSNV_freq"] != "0.25" || r["Hw"] != "0.375" {
		t.Errorf("problem with frequency fields: %v", r)
	}
	r = rows[1]
	if r["pos"] != "40" || r["iSNV_freq"] != "0.75" || r["Hw"] != "0.625" {
		t.Errorf("problem with multi-allele record: %v", r)
	}
	r = rows[2]
	if r["sample"] != "pat2" || r["patient"] != "pat2" || r["time"] != "" || r["iSNV_freq"] != "0" {
		t.Errorf("problem with zero-frequency record: %v", r)
	}
}

func TestTableEff(t *testing.T) {
	dir := t.TempDir()
	eff := "EFF=NON_SYNONYMOUS_CODING(MODERATE|MISSENSE|gAt/gGt|p.Asp160Gly/c.479A>G|235|GP|protein_coding|CODING|NP|x|1)," +
		"SYNONYMOUS_CODING(a|b|c|d|e|f|g|h|sGP|y|1)"
	in := writeVcf(t, dir,
		"chr1\t30\t.\tA\tC\t.\t.\t"+eff+"\tGT:AF\t0:0.25\t.:.",
	)

	rows := Table(in)
	if len(rows) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rows))
	}
	r := rows[0]
	if r["eff_type"] != "NON_SYNONYMOUS_CODING" || r["eff_codon_dna"] != "gAt/gGt" {
		t.Errorf("problem with effect type fields: %v", r)
	}
	if r["eff_aa"] != "p.Asp160Gly/c.479A>G" || r["eff_aa_pos"] != "160" {
		t.Errorf("problem with amino acid fields: %v", r)
	}
	if r["eff_prot_len"] != "235" || r["eff_gene"] != "GP" || r["eff_protein"] != "NP" {
		t.Errorf("problem with gene fields: %v", r)
	}
}

func TestPerPatient(t *testing.T) {
	rows := []map[string]string{
		{"pos": "30", "sample": "p1.1", "patient": "p1", "time": "1", "iSNV_freq": "0.1", "Hw": "0.18", "alleles": "A,C"},
		{"pos": "30", "sample": "p1.2", "patient": "p1", "time": "2", "iSNV_freq": "0.4", "Hw": "0.48", "alleles": "A,C"},
		{"pos": "30", "sample": "p1.3", "patient": "p1", "time": "3", "iSNV_freq": "0.2", "Hw": "0.32", "alleles": "A,C"},
		{"pos": "30", "sample": "p2", "patient": "p2", "iSNV_freq": "0.5", "Hw": "0.5", "alleles": "A,C"},
		{"pos": "10", "sample": "p1.1", "patient": "p1", "time": "1", "iSNV_freq": "0.3", "Hw": "0.42", "alleles": "G,T"},
	}

	got := PerPatient(rows)
	if len(got) != 3 {
		t.Fatalf("expected 3 aggregated rows, got %d", len(got))
	}
	if got[0]["pos"] != "10" || got[0]["patient"] != "p1" || got[0]["iSNV_freq"] != "0.3" {
		t.Errorf("problem with sort order: %v", got[0])
	}
	r := got[1]
	if r["pos"] != "30" || r["patient"] != "p1" {
		t.Errorf("problem with grouping: %v", r)
	}
	if r["iSNV_freq"] != "0.2" || r["Hw"] != "0.32000000000000006" || r["sample"] != "p1" {
		t.Errorf("problem with median aggregation: %v", r)
	}
	if got[2]["patient"] != "p2" || got[2]["iSNV_freq"] != "0.5" {
		t.Errorf("problem with single timeless row: %v", got[2])
	}
}

func TestMedianEven(t *testing.T) {
	if m := median([]float64{0.3, 0.1}); m != 0.2 {
		t.Errorf("problem with even-count median: %v", m)
	}
}

func TestFreqSpectrum(t *testing.T) {
	rows := []map[string]string{
		{"iSNV_freq": "0.05"},
		{"iSNV_freq": "0.5"},
		{"iSNV_freq": "0.99"},
		{"iSNV_freq": "1"},
	}
	got := FreqSpectrum(rows, 10)
	if got[0] != 1 || got[5] != 1 || got[9] != 2 {
		t.Errorf("problem with histogram binning: %v", got)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "table.txt")
	rows := []map[string]string{
		{"pos": "30", "sample": "p1.1", "patient": "p1", "time": "1", "alleles": "A,C", "iSNV_freq": "0.25", "Hw": "0.375"},
	}
	Write(out, TableHeader, rows)
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	if lines[0] != strings.Join(TableHeader, "\t") {
		t.Errorf("problem with header line: %s", lines[0])
	}
	want := "30\tp1.1\tp1\t1\tA,C\t0.25\t0.375\t\t\t\t\t\t\t"
	if lines[1] != want {
		t.Errorf("problem with record line\ngot:  %q\nwant: %q", lines[1], want)
	}
}
