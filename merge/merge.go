// Package merge combines per-sample intrahost variant calls, each expressed
// in its own consensus assembly's coordinates, into one multi-sample VCF in
// reference coordinates. Each sample's assembly is aligned to the reference
// to build a coordinate mapper, calls are repositioned and grouped by
// reference position, allele strings are rewritten against the reference
// interval covering the longest local deletion, and per-sample genotype and
// frequency vectors are emitted against a single deterministic allele list.
package merge

import (
	"fmt"
	"io"
	"log"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/godotgildor/intrahost/coordmap"
	"github.com/godotgildor/intrahost/fai"
	"github.com/godotgildor/intrahost/vphaser"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fasta"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/numbers"
	"github.com/vertgenlab/gonomics/vcf"
	"golang.org/x/exp/maps"
)

// Options holds optional behavior for ToVcf.
type Options struct {
	// StripChrVersion removes trailing Genbank accession versions from
	// chromosome names in the output.
	StripChrVersion bool
}

type merger struct {
	samples []string
	isnv    map[string]string
	cmap    map[string]*coordmap.Mapper
	seeker  map[string]*fasta.Seeker
	ref     []fasta.Fasta
	refFile string
	opt     Options
}

// siteRow is one caller record repositioned into reference coordinates.
type siteRow struct {
	sample string
	sChrom string
	sPos   int // 1-based position in the sample assembly, deletion-adjusted
	pos    int // reference position, left-rounded
	end    int // reference position, right-rounded
	rec    vphaser.Record
}

// alleleFreqs is an insertion-ordered allele string to frequency mapping for
// one sample at one site.
type alleleFreqs struct {
	order []string
	freq  map[string]float64
}

func newAlleleFreqs() *alleleFreqs {
	return &alleleFreqs{freq: make(map[string]float64)}
}

func (af *alleleFreqs) set(a string, f float64) {
	if _, ok := af.freq[a]; !ok {
		af.order = append(af.order, a)
	}
	af.freq[a] = f
}

// ToVcf merges filtered per-sample variant files into a multi-sample VCF on
// refFasta's coordinates. samples, isnvs, and assemblies are parallel lists.
// Each assembly fasta, and refFasta itself, must have a .fai index. When
// outVcf ends in .vcf.gz the output is bgzip-compressed and tabix-indexed.
func ToVcf(refFasta, outVcf string, samples, isnvs, assemblies []string, opt Options) {
	if len(samples) != len(isnvs) || len(samples) != len(assemblies) {
		log.Fatal("ERROR: samples, isnvs, and assemblies must have the same number of elements")
	}
	var tmpVcf string
	switch {
	case strings.HasSuffix(outVcf, ".vcf.gz"):
		tmpVcf = strings.TrimSuffix(outVcf, ".gz")
	case strings.HasSuffix(outVcf, ".vcf"):
		tmpVcf = outVcf
	default:
		log.Fatal("ERROR: outVcf must end in .vcf or .vcf.gz")
	}

	m := merger{
		samples: samples,
		isnv:    make(map[string]string),
		cmap:    make(map[string]*coordmap.Mapper),
		seeker:  make(map[string]*fasta.Seeker),
		ref:     fasta.Read(refFasta),
		refFile: refFasta,
		opt:     opt,
	}
	for i, s := range samples {
		m.isnv[s] = isnvs[i]
		m.cmap[s] = coordmap.New(assemblies[i], refFasta)
		m.seeker[s] = fasta.NewSeeker(assemblies[i], "")
	}
	for i := range m.ref {
		dna.AllToUpper(m.ref[i].Seq)
	}

	out := fileio.EasyCreate(tmpVcf)
	vcf.NewWriteHeader(out, m.header())
	for i := range m.ref {
		m.writeChrom(out, m.ref[i].Name, m.ref[i].Seq)
	}
	err := out.Close()
	exception.PanicOnErr(err)
	for _, s := range samples {
		err = m.seeker[s].Close()
		exception.PanicOnErr(err)
	}

	if tmpVcf != outVcf {
		compressAndIndex(tmpVcf, outVcf)
	}
}

func (m *merger) header() vcf.Header {
	var header vcf.Header
	header.Text = append(header.Text, "##fileformat=VCFv4.1")
	header.Text = append(header.Text, "##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">")
	header.Text = append(header.Text, "##FORMAT=<ID=AF,Number=A,Type=Float,Description=\"Allele Frequency\">")
	header.Text = append(header.Text, strings.TrimSuffix(fai.VcfHeaderLines(fai.ReadIndex(m.refFile+".fai"), m.opt.StripChrVersion), "\n"))
	header.Text = append(header.Text, fmt.Sprintf("##reference=file://%s", m.refFile))
	header.Text = append(header.Text, fmt.Sprintf("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t%s", strings.Join(m.samples, "\t")))
	return header
}

// collectChrom reads every sample's variant file and returns the rows landing
// on the named reference chromosome, repositioned to reference coordinates
// and sorted by reference position.
func (m *merger) collectChrom(chrom string) []siteRow {
	var ans []siteRow
	for _, s := range m.samples {
		sChrom, ok := m.cmap[s].ChromBtoA(chrom)
		if !ok {
			log.Fatalf("ERROR: no chromosome of %s pairs with %s", s, chrom)
		}
		for _, rec := range vphaser.ReadFiltered(m.isnv[s]) {
			if rec.Chrom != sChrom {
				continue
			}
			row := siteRow{sample: s, sChrom: sChrom, sPos: rec.Pos, rec: rec}
			if rec.IsDeletion() {
				// a deletion call carries only D and majority-i alleles;
				// anything else means the caller output is inconsistent
				for _, c := range rec.Counts {
					if c.Allele.Kind != vphaser.Deletion && !(c.Allele.Kind == vphaser.Majority && c.Allele.Marker == 'i') {
						log.Fatalf("ERROR: deletion alleles must always start with D or i: %v", rec.Counts)
					}
				}
				// anchor deletions on the preceding base
				row.sPos--
			}
			row.pos, ok = m.cmap[s].MapAtoB(sChrom, row.sPos, -1)
			if ok {
				row.end, ok = m.cmap[s].MapAtoB(sChrom, row.sPos, 1)
			}
			if !ok {
				log.Fatal("ERROR: consensus extends beyond start or end of reference.")
			}
			ans = append(ans, row)
		}
	}
	sort.SliceStable(ans, func(i, j int) bool {
		return ans[i].pos < ans[j].pos
	})
	return ans
}

func (m *merger) writeChrom(out io.Writer, chrom string, refSeq []dna.Base) {
	rows := m.collectChrom(chrom)
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].pos == rows[i].pos {
			j++
		}
		m.writeSite(out, chrom, refSeq, rows[i].pos, rows[i:j])
		i = j
	}
}

// siteEnd returns the last reference position covered by the site, extending
// the grouped interval over the longest deletion present in any sample.
func (m *merger) siteEnd(pos int, rows []siteRow) int {
	end := pos
	for _, row := range rows {
		end = numbers.Max(end, row.end)
		for _, c := range row.rec.Counts {
			if c.Allele.Kind != vphaser.Deletion {
				continue
			}
			refEnd, ok := m.cmap[row.sample].MapAtoB(row.sChrom, row.sPos+c.Allele.DelLen, 1)
			if !ok {
				log.Fatal("ERROR: consensus extends beyond start or end of reference.")
			}
			end = numbers.Max(end, refEnd)
		}
	}
	return end
}

// consAllele fetches the sample's consensus bases spanning the reference
// interval [pos, end]. ok is false when the interval falls outside the
// consensus or the extracted bases are not all A, C, G, or T; start is the
// consensus coordinate of the interval's first base regardless.
func (m *merger) consAllele(s, chrom string, pos, end int) (allele string, start int, ok bool) {
	consStart, okStart := m.cmap[s].MapBtoA(chrom, pos, -1)
	consStop, okStop := m.cmap[s].MapBtoA(chrom, end, 1)
	if !okStart || !okStop {
		log.Printf("WARNING: dropping consensus because allele is outside consensus for %s at %d-%d.", s, pos, end)
		return "", 0, false
	}
	sChrom, _ := m.cmap[s].ChromBtoA(chrom)
	bases, err := fasta.SeekByName(m.seeker[s], sChrom, consStart-1, consStop)
	exception.PanicOnErr(err)
	dna.AllToUpper(bases)
	for _, b := range bases {
		if !dna.DefineBase(b) {
			log.Printf("WARNING: dropping unclean consensus for %s at %d-%d: %s", s, pos, end, dna.BasesToString(bases))
			return "", consStart, false
		}
	}
	return dna.BasesToString(bases), consStart, true
}

func (m *merger) writeSite(out io.Writer, chrom string, refSeq []dna.Base, pos int, rows []siteRow) {
	end := m.siteEnd(pos, rows)
	refAllele := dna.BasesToString(refSeq[pos-1 : end])

	// each sample may hit a reference position from only one assembly position
	sampOffsets := make(map[string]int)
	for _, row := range rows {
		if prev, ok := sampOffsets[row.sample]; ok && prev != row.sPos {
			log.Fatalf("ERROR: sample %s has variants at 2 positions (%d, %d) mapped to same reference position (%d)", row.sample, row.sPos, prev, pos)
		}
		sampOffsets[row.sample] = row.sPos
	}

	consAlleles := make(map[string]string)
	var consOrder []string
	for _, s := range m.samples {
		allele, consStart, ok := m.consAllele(s, chrom, pos, end)
		if _, hit := sampOffsets[s]; hit && consStart > 0 {
			// offsets become 0-based indexes into the consensus interval
			sampOffsets[s] -= consStart
		}
		if ok {
			consAlleles[s] = allele
			consOrder = append(consOrder, s)
		}
	}

	iSNVs := make(map[string]*alleleFreqs)
	for _, s := range m.samples {
		acOrder, acCount, acAllele := mergeCounts(rows, s)
		cons, consOK := consAlleles[s]
		switch {
		case len(acOrder) > 0 && consOK:
			iSNVs[s] = m.translateAlleles(chrom, pos, s, cons, sampOffsets[s], acOrder, acCount, acAllele)
		case consOK:
			// no intrahost data, so the sample is fixed at its consensus
			af := newAlleleFreqs()
			af.set(cons, 1.0)
			iSNVs[s] = af
		}
	}

	alleles := m.alleleUniverse(refAllele, consAlleles, consOrder, iSNVs)
	alleleMap := make(map[string]int)
	for i, a := range alleles {
		alleleMap[a] = i
	}

	fields := make([]string, 0, 9+len(m.samples))
	c := chrom
	if m.opt.StripChrVersion {
		c = fai.StripVersion(c)
	}
	fields = append(fields, c, strconv.Itoa(pos), ".", alleles[0], strings.Join(alleles[1:], ","), ".", ".", ".", "GT:AF")
	for _, s := range m.samples {
		geno := "."
		if cons, ok := consAlleles[s]; ok {
			if idx, found := alleleMap[cons]; found {
				geno = strconv.Itoa(idx)
			}
		}
		freq := "."
		if af, ok := iSNVs[s]; ok && len(alleles) > 1 {
			parts := make([]string, len(alleles)-1)
			for i, a := range alleles[1:] {
				parts[i] = formatFreq(af.freq[a])
			}
			freq = strings.Join(parts, ",")
		}
		fields = append(fields, geno+":"+freq)
	}
	_, err := fmt.Fprintln(out, strings.Join(fields, "\t"))
	exception.PanicOnErr(err)
}

// mergeCounts folds all of one sample's rows at a site into a single allele
// token to depth mapping, in first-seen token order. When both majority
// markers appear, the reference support was counted once per indel line, so
// the two counts are averaged into the i marker and the d marker is dropped.
func mergeCounts(rows []siteRow, sample string) (order []string, count map[string]int, allele map[string]vphaser.Allele) {
	count = make(map[string]int)
	allele = make(map[string]vphaser.Allele)
	for _, row := range rows {
		if row.sample != sample {
			continue
		}
		for _, c := range row.rec.Counts {
			token := c.Allele.Token
			if _, ok := count[token]; !ok {
				order = append(order, token)
			}
			count[token] = c.Depth()
			allele[token] = c.Allele
		}
	}
	if _, haveI := count["i"]; haveI {
		if d, haveD := count["d"]; haveD {
			count["i"] = int(math.Round(float64(count["i"]+d) / 2.0))
			delete(count, "d")
			delete(allele, "d")
			for i := range order {
				if order[i] == "d" {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
		}
	}
	return order, count, allele
}

// translateAlleles rewrites each caller token into the full consensus
// interval string it implies and pairs it with its read frequency.
func (m *merger) translateAlleles(chrom string, pos int, sample, cons string, offset int, order []string, count map[string]int, allele map[string]vphaser.Allele) *alleleFreqs {
	var total int
	for _, token := range order {
		total += count[token]
	}
	af := newAlleleFreqs()
	for _, token := range order {
		f := float64(count[token]) / float64(total)
		al := allele[token]
		var a string
		switch al.Kind {
		case vphaser.Insertion:
			ip := clamp(offset+1, len(cons))
			a = cons[:ip] + dna.BasesToString(al.Bases) + cons[ip:]
		case vphaser.Deletion:
			cutLeft := clamp(offset+1, len(cons))
			cutRight := clamp(offset+1+al.DelLen, len(cons))
			a = cons[:cutLeft] + cons[cutRight:]
		case vphaser.Majority:
			a = cons
		case vphaser.Substitution:
			base := dna.BasesToString(al.Bases)
			if f > 0.5 && cons[offset] != base[0] {
				log.Printf("WARNING: caller and assembly pipelines mismatch at %s:%d %s - consensus %c, caller %s", chrom, pos, sample, cons[0], base)
			}
			a = cons[:offset] + base + cons[offset+1:]
		}
		if a == "" || a != strings.ToUpper(a) {
			log.Fatalf("ERROR: derived allele must be non-empty and uppercase: %q", a)
		}
		af.set(a, f)
	}
	allSingle := true
	for _, a := range af.order {
		if len(a) != 1 {
			allSingle = false
		}
	}
	if allSingle {
		if _, ok := af.freq[cons]; !ok {
			log.Fatalf("ERROR: consensus allele %s for %s missing from substitution-only site at %s:%d", cons, sample, chrom, pos)
		}
	}
	return af
}

// alleleUniverse orders the site's distinct alleles: the reference allele
// first, then consensus alleles by descending sample count, then remaining
// intrahost alleles by descending (sample count, summed frequency, allele
// string). Encounter order in sample order breaks consensus ties.
func (m *merger) alleleUniverse(refAllele string, consAlleles map[string]string, consOrder []string, iSNVs map[string]*alleleFreqs) []string {
	consCount := make(map[string]int)
	var consList []string
	for _, s := range consOrder {
		a := consAlleles[s]
		if _, ok := consCount[a]; !ok {
			consList = append(consList, a)
		}
		consCount[a]++
	}
	sort.SliceStable(consList, func(i, j int) bool {
		return consCount[consList[i]] > consCount[consList[j]]
	})

	type isnvStat struct {
		n   int
		sum float64
	}
	stats := make(map[string]*isnvStat)
	for _, s := range m.samples {
		af, ok := iSNVs[s]
		if !ok {
			continue
		}
		for _, a := range af.order {
			st, seen := stats[a]
			if !seen {
				st = new(isnvStat)
				stats[a] = st
			}
			st.n++
			st.sum += af.freq[a]
		}
	}
	// the sort key is total, so map iteration order cannot leak through
	statList := maps.Keys(stats)
	sort.Slice(statList, func(i, j int) bool {
		si, sj := stats[statList[i]], stats[statList[j]]
		if si.n != sj.n {
			return si.n > sj.n
		}
		if si.sum != sj.sum {
			return si.sum > sj.sum
		}
		return statList[i] > statList[j]
	})

	seen := make(map[string]bool)
	var alleles []string
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			alleles = append(alleles, a)
		}
	}
	add(refAllele)
	for _, a := range consList {
		if a != refAllele {
			add(a)
		}
	}
	for _, a := range statList {
		add(a)
	}
	return alleles
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func formatFreq(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// compressAndIndex bgzip-compresses tmpVcf into outVcf and builds a tabix
// index next to it. Both tools must be on the PATH.
func compressAndIndex(tmpVcf, outVcf string) {
	cmd := exec.Command("bgzip", "-f", tmpVcf)
	err := cmd.Run()
	exception.PanicOnErr(err)
	cmd = exec.Command("tabix", "-f", "-p", "vcf", outVcf)
	err = cmd.Run()
	exception.PanicOnErr(err)
}
