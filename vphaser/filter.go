package vphaser

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

type rawAllele struct {
	token string
	fwd   string
	rev   string
	depth int
}

// FilterStrandBias hard-filters the allele fields of raw caller rows.
// An allele survives when both strands carry at least minReadsEach reads and
// the strand ratio stays within [1/maxBias, maxBias]. Rows retaining fewer
// than two alleles are dropped. Surviving rows get their minor/major allele
// columns and minor frequency column recomputed from the surviving counts,
// with alleles reordered by descending depth.
func FilterStrandBias(rows [][]string, minReadsEach int, maxBias float64) [][]string {
	var ans [][]string
	for _, row := range rows {
		if len(row) < 8 {
			log.Fatalf("ERROR: malformed caller row: %v", row)
		}
		front := make([]string, 7)
		copy(front, row[:7])
		var kept []rawAllele
		for _, field := range row[7:] {
			words := strings.Split(field, ":")
			if len(words) != 3 {
				log.Fatalf("ERROR: malformed allele field %q", field)
			}
			f, err := strconv.Atoi(words[1])
			exception.PanicOnErr(err)
			r, err := strconv.Atoi(words[2])
			exception.PanicOnErr(err)
			if f < minReadsEach || r < minReadsEach {
				continue
			}
			ratio := float64(f) / float64(r)
			if ratio > maxBias || ratio < 1.0/maxBias {
				continue
			}
			kept = append(kept, rawAllele{token: words[0], fwd: words[1], rev: words[2], depth: f + r})
		}
		if len(kept) < 2 {
			continue
		}
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].depth != kept[j].depth {
				return kept[i].depth > kept[j].depth
			}
			if kept[i].token != kept[j].token {
				return kept[i].token > kept[j].token
			}
			if kept[i].fwd != kept[j].fwd {
				return kept[i].fwd > kept[j].fwd
			}
			return kept[i].rev > kept[j].rev
		})
		var minor, total int
		for i := range kept {
			total += kept[i].depth
			if i > 0 {
				minor += kept[i].depth
			}
		}
		front[2] = kept[1].token
		front[3] = kept[0].token
		front[6] = fmt.Sprintf("%.6g", 100.0*float64(minor)/float64(total))
		out := front
		for i := range kept {
			out = append(out, kept[i].token+":"+kept[i].fwd+":"+kept[i].rev)
		}
		ans = append(ans, out)
	}
	return ans
}

// FilterLibraryBias adds the library count and library bias columns.
// The statistical test is not yet computed; the columns are emitted empty as
// placeholders so the downstream column layout is stable.
func FilterLibraryBias(rows [][]string) [][]string {
	ans := make([][]string, len(rows))
	for i, row := range rows {
		out := make([]string, 0, len(row)+2)
		out = append(out, row[:7]...)
		out = append(out, "", "")
		out = append(out, row[7:]...)
		ans[i] = out
	}
	return ans
}

// FilterFile applies the strand bias and library bias filters to a raw
// caller output file and writes the filtered rows as a headerless
// tab-delimited file.
func FilterFile(input, output string, minReadsEach int, maxBias float64) {
	if minReadsEach < 1 {
		log.Fatal("ERROR: minReadsEach must be at least 1.")
	}
	var rows [][]string
	for _, line := range fileio.Read(input) {
		rows = append(rows, strings.Split(line, "\t"))
	}
	rows = FilterLibraryBias(FilterStrandBias(rows, minReadsEach, maxBias))
	out := fileio.EasyCreate(output)
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
	err := out.Close()
	exception.PanicOnErr(err)
}
