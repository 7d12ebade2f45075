// Package fai reads fasta index (.fai) files and derives VCF header
// information from them.
package fai

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// Index stores the byte offset for each fasta sequence allowing for efficient random access.
type Index struct {
	chroms  []chrOffset    // for search by index
	nameMap map[string]int // maps chr name to index in chroms
}

// String method for Index enables easy writing with the fmt package.
func (idx Index) String() string {
	answer := new(strings.Builder)
	for i := range idx.chroms {
		answer.WriteString(idx.chroms[i].String())
		answer.WriteByte('\n')
	}
	return answer.String()
}

// Size returns the length of the named sequence in bases.
func (idx Index) Size(chr string) int {
	return idx.chroms[idx.nameMap[chr]].len
}

// Chroms returns the sequence names in file order.
func (idx Index) Chroms() []string {
	ans := make([]string, len(idx.chroms))
	for i := range idx.chroms {
		ans[i] = idx.chroms[i].name
	}
	return ans
}

// chrOffset has offset information about each reference. Equivalent to one line of a fai file.
type chrOffset struct {
	name         string // Name of this reference sequence
	len          int    // Total length of this reference sequence, in bases
	offset       int    // Offset within the FASTA file of this sequence's first base
	basesPerLine int    // The number of bases on each line
	bytesPerLine int    // The number of bytes in each line, including the newline
}

// String method for chrOffset enables easy writing with the fmt package.
func (c chrOffset) String() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%d", c.name, c.len, c.offset, c.basesPerLine, c.bytesPerLine)
}

// ReadIndex reads a fai index file to an Index struct that can be used for random access.
func ReadIndex(filename string) Index {
	file := fileio.EasyOpen(filename)
	var answer Index
	var curr chrOffset
	var line string
	var col []string
	var done bool
	var err error
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		col = strings.Split(line, "\t")
		if len(col) != 5 {
			log.Fatalf("ERROR: malformed index file: %s\nerror on line:\n%s\n", filename, line)
		}

		curr.name = col[0]
		curr.len, err = strconv.Atoi(col[1])
		exception.PanicOnErr(err)
		curr.offset, err = strconv.Atoi(col[2])
		exception.PanicOnErr(err)
		curr.basesPerLine, err = strconv.Atoi(col[3])
		exception.PanicOnErr(err)
		curr.bytesPerLine, err = strconv.Atoi(col[4])
		exception.PanicOnErr(err)

		answer.chroms = append(answer.chroms, curr)
	}

	err = file.Close()
	exception.PanicOnErr(err)

	answer.nameMap = make(map[string]int)
	for i := range answer.chroms {
		answer.nameMap[answer.chroms[i].name] = i
	}
	return answer
}

// VcfHeaderLines returns one ##contig line per indexed sequence. When
// stripVersion is true, trailing Genbank-style accession versions are
// removed from the contig names.
func VcfHeaderLines(idx Index, stripVersion bool) string {
	ans := new(strings.Builder)
	for i := range idx.chroms {
		name := idx.chroms[i].name
		if stripVersion {
			name = StripVersion(name)
		}
		ans.WriteString(fmt.Sprintf("##contig=<ID=%s,length=%d>\n", name, idx.chroms[i].len))
	}
	return ans.String()
}

var accessionVersion = regexp.MustCompile(`^(\S+)\.\d+$`)

// StripVersion removes a trailing .N version number from a Genbank accession.
// Names without a version pass through unchanged.
func StripVersion(acc string) string {
	if m := accessionVersion.FindStringSubmatch(acc); m != nil {
		return m[1]
	}
	return acc
}
