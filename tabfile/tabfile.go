// Package tabfile provides helpers for tab-delimited text files, including
// the raw text view of VCF files that the reporting tools work from.
package tabfile

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// ReadLines returns every line of a possibly gzipped text file, comment
// lines included.
func ReadLines(filename string) []string {
	f, err := os.Open(filename)
	exception.PanicOnErr(err)
	var r io.Reader = f
	if strings.HasSuffix(filename, ".gz") {
		gz, gzErr := gzip.NewReader(f)
		exception.PanicOnErr(gzErr)
		defer gz.Close()
		r = gz
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 1<<20), 1<<26)
	var ans []string
	for s.Scan() {
		ans = append(ans, s.Text())
	}
	exception.PanicOnErr(s.Err())
	err = f.Close()
	exception.PanicOnErr(err)
	return ans
}

// ReadRows reads a tab file with a header into column-keyed records. The
// header is the last leading comment line with its '#' removed, or the first
// line when no comment lines precede the data. Empty fields are omitted from
// the records so absent optional columns read as missing.
func ReadRows(filename string) (header []string, rows []map[string]string) {
	for _, line := range ReadLines(filename) {
		row := strings.Split(line, "\t")
		switch {
		case strings.HasPrefix(line, "#"):
			row[0] = row[0][1:]
			header = row
		case header == nil:
			header = row
		default:
			if len(row) != len(header) {
				log.Fatalf("ERROR: row has %d fields, header has %d in %s:\n%s", len(row), len(header), filename, line)
			}
			rec := make(map[string]string)
			for i, v := range row {
				if v != "" {
					rec[header[i]] = v
				}
			}
			rows = append(rows, rec)
		}
	}
	return header, rows
}

// Rename copies a tab file while replacing the values of one column using a
// two-column headerless map file. The first line of the input passes through
// untouched as a header. A value missing from the map is fatal.
func Rename(inFile, mapFile, outFile string, col int) {
	nameMap := make(map[string]string)
	for _, line := range ReadLines(mapFile) {
		words := strings.Split(strings.TrimSpace(line), "\t")
		if len(words) != 2 {
			log.Fatalf("ERROR: map file %s must have exactly 2 columns:\n%s", mapFile, line)
		}
		nameMap[words[0]] = words[1]
	}
	out := fileio.EasyCreate(outFile)
	for i, line := range ReadLines(inFile) {
		if i == 0 {
			fmt.Fprintln(out, line)
			continue
		}
		row := strings.Split(line, "\t")
		if col < 0 || col >= len(row) {
			log.Fatalf("ERROR: column %d out of range for row:\n%s", col, line)
		}
		newVal, ok := nameMap[row[col]]
		if !ok {
			log.Fatalf("ERROR: value %q not present in map file %s", row[col], mapFile)
		}
		row[col] = newVal
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
	err := out.Close()
	exception.PanicOnErr(err)
}
