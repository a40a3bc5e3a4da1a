package biom

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ampliomics/ampliseq"
	"github.com/carbocation/pfx"
)

const otuHeaderPrefix = "#OTU ID"

// ParseTable reads the TSV export of a BIOM feature table ("biom convert
// --to-tsv" output): an optional "# Constructed from biom file" banner, an
// "#OTU ID" header naming the samples, then one row per feature. When the
// export carries a trailing "taxonomy" column, the embedded assignments are
// returned alongside the table; otherwise the returned Taxonomy is nil and
// taxonomy must be side-loaded from taxonomy.tsv.
//
// Exported counts are written as floats ("12.0"); values that are not whole
// numbers, and negative values, are format errors.
func ParseTable(r io.Reader) (*Table, *Taxonomy, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	var sampleIDs []string
	hasTaxonomy := false

	// Locate the header row, skipping banner comments.
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, otuHeaderPrefix) {
			cols := strings.Split(line, "\t")
			sampleIDs = cols[1:]
			if n := len(sampleIDs); n > 0 && strings.EqualFold(sampleIDs[n-1], "taxonomy") {
				hasTaxonomy = true
				sampleIDs = sampleIDs[:n-1]
			}
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		return nil, nil, &ampliseq.FormatError{Problem: "missing #OTU ID header row"}
	}
	if sampleIDs == nil {
		return nil, nil, &ampliseq.FormatError{Problem: "missing #OTU ID header row"}
	}
	if len(sampleIDs) == 0 {
		return nil, nil, &ampliseq.FormatError{Problem: "feature table names zero samples"}
	}

	var featureIDs []string
	var counts [][]int64
	var tax *Taxonomy
	if hasTaxonomy {
		tax = NewTaxonomy()
	}

	wantCols := 1 + len(sampleIDs)
	if hasTaxonomy {
		wantCols++
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) != wantCols {
			return nil, nil, &ampliseq.FormatError{Problem: fmt.Sprintf("line %d has %d columns, expected %d", lineNo, len(cols), wantCols)}
		}

		featureID := cols[0]
		row := make([]int64, len(sampleIDs))
		for j := 0; j < len(sampleIDs); j++ {
			v, err := strconv.ParseFloat(cols[j+1], 64)
			if err != nil {
				return nil, nil, &ampliseq.FormatError{Problem: fmt.Sprintf("non-numeric count %q for feature %s", cols[j+1], featureID), Cause: err}
			}
			if v < 0 || v != math.Trunc(v) {
				return nil, nil, &ampliseq.FormatError{Problem: fmt.Sprintf("count %s for feature %s is not a non-negative integer", cols[j+1], featureID)}
			}
			row[j] = int64(v)
		}

		featureIDs = append(featureIDs, featureID)
		counts = append(counts, row)

		if hasTaxonomy {
			tax.Set(featureID, ParseLineage(cols[wantCols-1]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, pfx.Err(err)
	}
	if len(featureIDs) == 0 {
		return nil, nil, &ampliseq.FormatError{Problem: "feature table contains zero features"}
	}

	table, err := NewTable(featureIDs, sampleIDs, counts)
	if err != nil {
		return nil, nil, err
	}

	return table, tax, nil
}

// LoadTable reads a possibly-compressed BIOM TSV export from disk.
func LoadTable(path string) (*Table, *Taxonomy, error) {
	r, err := ampliseq.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}
	defer r.Close()

	table, tax, err := ParseTable(r)
	if err != nil {
		if fe, ok := err.(*ampliseq.FormatError); ok && fe.File == "" {
			fe.File = path
		}
		return nil, nil, err
	}
	return table, tax, nil
}
