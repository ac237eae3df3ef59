package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
)

// CSVParser reads rows of level,title,page where level starts at 1 and
// page is the printed, one-based page. A header row is skipped when its
// first cell is not a number.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := newOutlineBuilder()
	for i, row := range records {
		if len(row) < 2 {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("csv row %d: bad level %q", i+1, row[0])
		}
		if len(row) < 3 || strings.TrimSpace(row[2]) == "" {
			b.add(level, row[1], 0, false)
			continue
		}
		page, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil || page < 1 {
			return nil, fmt.Errorf("csv row %d: bad page %q", i+1, row[2])
		}
		b.add(level, row[1], page-1, true)
	}

	return b.tree(titleFromFilename(filename), 0), nil
}
