// Package coordmap translates positions between the coordinate space of a
// sample's consensus assembly and the coordinate space of a shared reference
// genome. The mapping is built from a pairwise alignment of each consensus
// chromosome against its reference counterpart, paired by order of
// appearance in the two fasta files.
//
// All positions are 1-based. A position that has no exact counterpart in the
// other sequence (it falls inside an indel) is resolved with a side argument:
// side < 0 rounds down to the nearest mapped position on the left, side > 0
// rounds up to the right. Positions that run off either end of the other
// sequence report not-ok.
package coordmap

import (
	"log"

	"github.com/vertgenlab/gonomics/align"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fasta"
)

var gapOpen int64 = -600
var gapExtend int64 = -20

// span is the closed interval of positions in the other sequence bracketing
// one position in this sequence. left == right for an exact counterpart.
// left == 0 means nothing lies to the left; right == otherLen+1 means
// nothing lies to the right.
type span struct {
	left, right int
}

type chromMap struct {
	other    string // chromosome name in the other sequence's fasta
	otherLen int
	spans    []span // 1-based, index 0 unused
}

// Mapper converts positions between one sample assembly (the A side) and the
// reference genome (the B side).
type Mapper struct {
	aToB map[string]*chromMap
	bToA map[string]*chromMap
}

// New aligns each chromosome of fastaA against the chromosome of fastaB with
// the same rank and returns a bidirectional position mapper. The two files
// must contain the same number of sequences.
func New(fastaA, fastaB string) *Mapper {
	seqsA := fasta.Read(fastaA)
	seqsB := fasta.Read(fastaB)
	if len(seqsA) != len(seqsB) {
		log.Fatalf("ERROR: %s and %s must have the same number of sequences (%d vs %d)", fastaA, fastaB, len(seqsA), len(seqsB))
	}

	m := &Mapper{
		aToB: make(map[string]*chromMap),
		bToA: make(map[string]*chromMap),
	}
	for i := range seqsA {
		dna.AllToUpper(seqsA[i].Seq)
		dna.AllToUpper(seqsB[i].Seq)
		_, cig := align.AffineGapLocal(seqsB[i].Seq, seqsA[i].Seq, align.HumanChimpTwoScoreMatrix, gapOpen, gapExtend)
		aSpans, bSpans := buildSpans(len(seqsA[i].Seq), len(seqsB[i].Seq), cig)
		m.aToB[seqsA[i].Name] = &chromMap{other: seqsB[i].Name, otherLen: len(seqsB[i].Seq), spans: aSpans}
		m.bToA[seqsB[i].Name] = &chromMap{other: seqsA[i].Name, otherLen: len(seqsA[i].Seq), spans: bSpans}
	}
	return m
}

// buildSpans walks an alignment cigar with target = B and query = A and
// records, for every position of each sequence, the bracketing positions in
// the other sequence. ColI consumes A only, ColD consumes B only.
func buildSpans(lenA, lenB int, cig []align.Cigar) (aSpans, bSpans []span) {
	aSpans = make([]span, lenA+1)
	bSpans = make([]span, lenB+1)
	var posA, posB int
	for i := range cig {
		for k := int64(0); k < cig[i].RunLength; k++ {
			switch cig[i].Op {
			case align.ColM:
				posA++
				posB++
				aSpans[posA] = span{left: posB, right: posB}
				bSpans[posB] = span{left: posA, right: posA}
			case align.ColI: // base present in A only
				posA++
				aSpans[posA] = span{left: posB, right: posB + 1}
			case align.ColD: // base present in B only
				posB++
				bSpans[posB] = span{left: posA, right: posA + 1}
			}
		}
	}
	return aSpans, bSpans
}

func (c *chromMap) resolve(pos, side int) (int, bool) {
	if c == nil || pos < 1 || pos >= len(c.spans) {
		return 0, false
	}
	s := c.spans[pos]
	if s.left == s.right {
		if s.left == 0 {
			return 0, false
		}
		return s.left, true
	}
	switch {
	case side < 0:
		if s.left < 1 {
			return 0, false
		}
		return s.left, true
	case side > 0:
		if s.right > c.otherLen {
			return 0, false
		}
		return s.right, true
	}
	log.Fatalf("ERROR: position %d has no exact counterpart; a side must be specified", pos)
	return 0, false
}

// ChromAtoB returns the reference chromosome paired with the named assembly
// chromosome.
func (m *Mapper) ChromAtoB(chrom string) (string, bool) {
	c, ok := m.aToB[chrom]
	if !ok {
		return "", false
	}
	return c.other, true
}

// ChromBtoA returns the assembly chromosome paired with the named reference
// chromosome.
func (m *Mapper) ChromBtoA(chrom string) (string, bool) {
	c, ok := m.bToA[chrom]
	if !ok {
		return "", false
	}
	return c.other, true
}

// MapAtoB translates a position on an assembly chromosome to the reference.
func (m *Mapper) MapAtoB(chrom string, pos, side int) (int, bool) {
	return m.aToB[chrom].resolve(pos, side)
}

// MapBtoA translates a position on a reference chromosome to the assembly.
func (m *Mapper) MapBtoA(chrom string, pos, side int) (int, bool) {
	return m.bToA[chrom].resolve(pos, side)
}
