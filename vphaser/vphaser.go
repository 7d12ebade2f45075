// Package vphaser parses V-Phaser 2 style intrahost variant calls for one
// sample and applies the post-call filters. The expected row layout is the
// caller's output with the chromosome name prepended:
// chrom, pos, minor allele, major allele, three caller columns, then one or
// more allele:fwd:rev count fields. Filtered files additionally carry the
// library count and library bias columns at indexes 7 and 8.
package vphaser

import (
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// AlleleKind discriminates the decoded forms of a caller allele token.
type AlleleKind byte

const (
	// Majority marks the caller's placeholder for the consensus call at an
	// indel site (token "i" or "d").
	Majority AlleleKind = iota
	Substitution
	Insertion
	Deletion
)

// Allele is one caller allele token decoded into a tagged form, so no
// downstream code needs to sniff string prefixes.
type Allele struct {
	Token  string // raw caller token, e.g. "A", "IAT", "D2", "i"
	Kind   AlleleKind
	Marker byte       // 'i' or 'd' for Majority alleles
	Bases  []dna.Base // substituted base or inserted bases, uppercase
	DelLen int
}

// ParseAllele decodes a raw allele token. Unrecognized tokens are fatal:
// they indicate corrupt caller output.
func ParseAllele(token string) Allele {
	a := Allele{Token: token}
	switch {
	case token == "i" || token == "d":
		a.Kind = Majority
		a.Marker = token[0]
	case len(token) > 1 && token[0] == 'D':
		n, err := strconv.Atoi(token[1:])
		if err != nil || n < 1 {
			log.Fatalf("ERROR: malformed deletion allele %q", token)
		}
		a.Kind = Deletion
		a.DelLen = n
	case len(token) > 1 && token[0] == 'I':
		a.Kind = Insertion
		a.Bases = dna.StringToBases(token[1:])
		dna.AllToUpper(a.Bases)
	case token == "A" || token == "C" || token == "G" || token == "T":
		a.Kind = Substitution
		a.Bases = dna.StringToBases(token)
	default:
		log.Fatalf("ERROR: unrecognized allele token %q", token)
	}
	return a
}

// AlleleCount is the strand-resolved read support for one allele.
type AlleleCount struct {
	Allele Allele
	Fwd    int
	Rev    int
}

// Depth returns the total read support across both strands.
func (a AlleleCount) Depth() int {
	return a.Fwd + a.Rev
}

// Record is one filtered caller row for one sample.
type Record struct {
	Chrom   string // chromosome name in the sample's own assembly
	Pos     int    // 1-based position in the sample's assembly
	Alt     string // caller's minor allele token
	Ref     string // caller's major allele token
	NLibs   string
	LibBias string
	Counts  []AlleleCount // descending by total depth
}

// IsDeletion reports whether the record's minor allele is a deletion call.
func (r Record) IsDeletion() bool {
	return strings.HasPrefix(r.Alt, "D")
}

// ReadFiltered parses a filtered variant file into records. Allele counts
// are sorted by descending total depth, preserving file order on ties.
func ReadFiltered(filename string) []Record {
	var ans []Record
	file := fileio.EasyOpen(filename)
	var line string
	var done bool
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		col := strings.Split(line, "\t")
		if len(col) < 10 {
			log.Fatalf("ERROR: malformed variant row in %s:\n%s", filename, line)
		}
		var r Record
		r.Chrom = col[0]
		pos, err := strconv.Atoi(col[1])
		exception.PanicOnErr(err)
		r.Pos = pos
		r.Alt = col[2]
		r.Ref = col[3]
		r.NLibs = col[7]
		r.LibBias = col[8]
		for _, field := range col[9:] {
			if field == "" {
				continue
			}
			words := strings.Split(field, ":")
			if len(words) != 3 {
				log.Fatalf("ERROR: malformed allele field %q in %s", field, filename)
			}
			var ac AlleleCount
			ac.Allele = ParseAllele(words[0])
			ac.Fwd, err = strconv.Atoi(words[1])
			exception.PanicOnErr(err)
			ac.Rev, err = strconv.Atoi(words[2])
			exception.PanicOnErr(err)
			r.Counts = append(r.Counts, ac)
		}
		sort.SliceStable(r.Counts, func(i, j int) bool {
			return r.Counts[i].Depth() > r.Counts[j].Depth()
		})
		ans = append(ans, r)
	}
	err := file.Close()
	exception.PanicOnErr(err)
	return ans
}
