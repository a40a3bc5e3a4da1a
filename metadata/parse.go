package metadata

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ampliomics/ampliseq"
	"github.com/carbocation/pfx"
)

// Parse reads a sample mapping file. The first column is the sample
// identifier regardless of its header name (QIIME2 uses "#SampleID",
// "sample-id", or "id" interchangeably). The QIIME2 "#q2:types" directive
// row is honored and skipped; other leading "#" rows are comments. The
// delimiter is sniffed, defaulting to tab.
func Parse(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := ampliseq.DetermineDelimiter(bytes.NewReader(raw))

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	var header []string
	var rows [][]string
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		first := rec[0]
		if header == nil {
			// The header may itself start with '#' ("#SampleID").
			header = rec
			continue
		}
		if strings.HasPrefix(first, "#") {
			// q2:types and other directive/comment rows.
			continue
		}
		rows = append(rows, rec)
	}

	if header == nil || len(header) < 1 {
		return nil, &ampliseq.FormatError{Problem: "metadata file has no header row"}
	}
	if len(rows) == 0 {
		return nil, &ampliseq.FormatError{Problem: "metadata file has no sample rows"}
	}

	columns := header[1:]

	sampleIDs := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, rec := range rows {
		id := rec[0]
		if id == "" {
			return nil, &ampliseq.FormatError{Problem: "metadata row with empty sample identifier"}
		}
		if _, dup := seen[id]; dup {
			return nil, &ampliseq.FormatError{Problem: "duplicate sample identifier " + id}
		}
		seen[id] = struct{}{}
		sampleIDs = append(sampleIDs, id)
	}

	t := newTable(sampleIDs, columns)
	for _, rec := range rows {
		if len(rec) > len(header) {
			return nil, &ampliseq.FormatError{Problem: fmt.Sprintf("sample %s has %d fields but header has %d", rec[0], len(rec), len(header))}
		}
		for c, col := range columns {
			if c+1 < len(rec) {
				t.values[rec[0]][col] = rec[c+1]
			}
		}
	}

	return t, nil
}

// Load reads a possibly-compressed mapping file from disk.
func Load(path string) (*Table, error) {
	r, err := ampliseq.OpenMaybeCompressed(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	t, err := Parse(r)
	if err != nil {
		if fe, ok := err.(*ampliseq.FormatError); ok && fe.File == "" {
			fe.File = path
		}
		return nil, err
	}
	return t, nil
}
