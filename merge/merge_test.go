package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFasta(t *testing.T, path, name, seq string) {
	body := ">" + name + "\n" + seq + "\n"
	err := os.WriteFile(path, []byte(body), 0644)
	if err != nil {
		t.Fatal(err)
	}
	idx := fmt.Sprintf("%s\t%d\t%d\t%d\t%d\n", name, len(seq), len(name)+2, len(seq), len(seq)+1)
	err = os.WriteFile(path+".fai", []byte(idx), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func writeTestIsnv(t *testing.T, path string, rows [][]string) {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteByte('\n')
	}
	err := os.WriteFile(path, []byte(sb.String()), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func readVcfLines(t *testing.T, path string) (header, data []string) {
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSuffix(string(b), "\n"), "\n") {
		if strings.HasPrefix(line, "#") {
			header = append(header, line)
		} else {
			data = append(data, line)
		}
	}
	return header, data
}

// 60 bases with an A at position 30
const refSeqSnp = "ACGGTTACCGATTACAGCATTACGGATCC" + "A" + "AGATTACGGTTACAACGGTGACCATAGCAT"

func TestToVcfNoVariation(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.fasta")
	cons := filepath.Join(dir, "s1.fasta")
	isnv := filepath.Join(dir, "s1.txt")
	out := filepath.Join(dir, "out.vcf")
	writeTestFasta(t, ref, "ref1", refSeqSnp)
	writeTestFasta(t, cons, "s1_contig", refSeqSnp)
	writeTestIsnv(t, isnv, nil)

	ToVcf(ref, out, []string{"s1"}, []string{isnv}, []string{cons}, Options{})

	header, data := readVcfLines(t, out)
	if len(data) != 0 {
		t.Errorf("expected no data rows, got %v", data)
	}
	if header[0] != "##fileformat=VCFv4.1" {
		t.Errorf("problem with fileformat line: %s", header[0])
	}
	var haveContig, haveChromLine bool
	for _, line := range header {
		if line == "##contig=<ID=ref1,length=60>" {
			haveContig = true
		}
		if line == "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\ts1" {
			haveChromLine = true
		}
	}
	if !haveContig {
		t.Error("missing contig header line")
	}
	if !haveChromLine {
		t.Error("missing column header line")
	}
}

func TestToVcfTwoSampleSnp(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.fasta")
	cons1 := filepath.Join(dir, "s1.fasta")
	cons2 := filepath.Join(dir, "s2.fasta")
	isnv1 := filepath.Join(dir, "s1.txt")
	isnv2 := filepath.Join(dir, "s2.txt")
	out := filepath.Join(dir, "out.vcf")
	writeTestFasta(t, ref, "ref1", refSeqSnp)
	writeTestFasta(t, cons1, "s1_contig", refSeqSnp)
	// sample 2 is fixed for C at position 30
	writeTestFasta(t, cons2, "s2_contig", refSeqSnp[:29]+"C"+refSeqSnp[30:])
	writeTestIsnv(t, isnv1, [][]string{
		{"s1_contig", "30", "C", "A", "0.5", "snp", "4.76", "1", "", "A:10:10", "C:0:1"},
	})
	writeTestIsnv(t, isnv2, nil)

	ToVcf(ref, out, []string{"s1", "s2"}, []string{isnv1, isnv2}, []string{cons1, cons2}, Options{})

	_, data := readVcfLines(t, out)
	if len(data) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(data))
	}
	want := "ref1\t30\t.\tA\tC\t.\t.\t.\tGT:AF\t0:0.047619047619047616\t1:1"
	if data[0] != want {
		t.Errorf("problem with merged row\ngot:  %s\nwant: %s", data[0], want)
	}

	// a second run from the same inputs is byte-identical
	out2 := filepath.Join(dir, "out2.vcf")
	ToVcf(ref, out2, []string{"s1", "s2"}, []string{isnv1, isnv2}, []string{cons1, cons2}, Options{})
	b1, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(out2)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Error("merge output is not deterministic")
	}
}

func TestToVcfDeletion(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.fasta")
	cons := filepath.Join(dir, "s1.fasta")
	isnv := filepath.Join(dir, "s1.txt")
	out := filepath.Join(dir, "out.vcf")
	writeTestFasta(t, ref, "ref1", refSeqSnp)
	writeTestFasta(t, cons, "s1_contig", refSeqSnp)
	writeTestIsnv(t, isnv, [][]string{
		{"s1_contig", "30", "D2", "i", "0.5", "lp", "10", "1", "", "i:9:9", "D2:1:1"},
	})

	ToVcf(ref, out, []string{"s1"}, []string{isnv}, []string{cons}, Options{})

	_, data := readVcfLines(t, out)
	if len(data) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(data))
	}
	// deletion is anchored one base left and spans the two deleted bases
	refAllele := refSeqSnp[28:31]
	want := fmt.Sprintf("ref1\t29\t.\t%s\t%s\t.\t.\t.\tGT:AF\t0:0.1", refAllele, refAllele[:1])
	if data[0] != want {
		t.Errorf("problem with deletion row\ngot:  %s\nwant: %s", data[0], want)
	}
}

// 60 bases with GT at positions 29-30
const refSeqIndel = "ACGGTTACCGATTACAGCATTACGGATC" + "GT" + "AGATTACGGTTACAACGGTGACCATAGCAT"

func TestToVcfMajorityMarkerAveraging(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.fasta")
	cons := filepath.Join(dir, "s1.fasta")
	isnv := filepath.Join(dir, "s1.txt")
	out := filepath.Join(dir, "out.vcf")
	writeTestFasta(t, ref, "ref1", refSeqIndel)
	writeTestFasta(t, cons, "s1_contig", refSeqIndel)
	// an insertion line and a deletion line land on the same anchored base,
	// so the two majority markers cover the same reads and are averaged
	writeTestIsnv(t, isnv, [][]string{
		{"s1_contig", "29", "IAT", "d", "0.5", "lp", "10", "1", "", "d:8:8", "IAT:1:1"},
		{"s1_contig", "30", "D1", "i", "0.5", "lp", "10", "1", "", "i:6:6", "D1:1:1"},
	})

	ToVcf(ref, out, []string{"s1"}, []string{isnv}, []string{cons}, Options{})

	_, data := readVcfLines(t, out)
	if len(data) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(data))
	}
	// averaged majority depth 14 of 18 total, insertion and deletion 2 each
	want := "ref1\t29\t.\tGT\tGATT,G\t.\t.\t.\tGT:AF\t0:0.1111111111111111,0.1111111111111111"
	if data[0] != want {
		t.Errorf("problem with indel row\ngot:  %s\nwant: %s", data[0], want)
	}
}

func TestToVcfUncleanConsensusDropped(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.fasta")
	cons1 := filepath.Join(dir, "s1.fasta")
	cons2 := filepath.Join(dir, "s2.fasta")
	isnv1 := filepath.Join(dir, "s1.txt")
	isnv2 := filepath.Join(dir, "s2.txt")
	out := filepath.Join(dir, "out.vcf")
	writeTestFasta(t, ref, "ref1", refSeqSnp)
	writeTestFasta(t, cons1, "s1_contig", refSeqSnp)
	// sample 2 has an ambiguous base at the variant site
	writeTestFasta(t, cons2, "s2_contig", refSeqSnp[:29]+"N"+refSeqSnp[30:])
	writeTestIsnv(t, isnv1, [][]string{
		{"s1_contig", "30", "C", "A", "0.5", "snp", "4.76", "1", "", "A:10:10", "C:0:1"},
	})
	writeTestIsnv(t, isnv2, nil)

	ToVcf(ref, out, []string{"s1", "s2"}, []string{isnv1, isnv2}, []string{cons1, cons2}, Options{})

	_, data := readVcfLines(t, out)
	if len(data) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(data))
	}
	want := "ref1\t30\t.\tA\tC\t.\t.\t.\tGT:AF\t0:0.047619047619047616\t.:."
	if data[0] != want {
		t.Errorf("problem with dropped-consensus row\ngot:  %s\nwant: %s", data[0], want)
	}
}

func TestToVcfStripVersion(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.fasta")
	cons := filepath.Join(dir, "s1.fasta")
	isnv := filepath.Join(dir, "s1.txt")
	out := filepath.Join(dir, "out.vcf")
	writeTestFasta(t, ref, "KJ660346.2", refSeqSnp)
	writeTestFasta(t, cons, "s1_contig", refSeqSnp)
	writeTestIsnv(t, isnv, [][]string{
		{"s1_contig", "30", "C", "A", "0.5", "snp", "4.76", "1", "", "A:10:10", "C:0:1"},
	})

	ToVcf(ref, out, []string{"s1"}, []string{isnv}, []string{cons}, Options{StripChrVersion: true})

	header, data := readVcfLines(t, out)
	var haveContig bool
	for _, line := range header {
		if line == "##contig=<ID=KJ660346,length=60>" {
			haveContig = true
		}
	}
	if !haveContig {
		t.Error("contig header line should carry the stripped accession")
	}
	if len(data) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(data))
	}
	if !strings.HasPrefix(data[0], "KJ660346\t30\t") {
		t.Errorf("data row should carry the stripped accession: %s", data[0])
	}
}
