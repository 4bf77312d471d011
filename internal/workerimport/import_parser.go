package workerimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	importerrors "github.com/OlegKumachev/kiout-test-backend/internal/workerimport/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
	FormatCSV  = "csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromFilename returns the decoder name for a file extension.
func FormatFromFilename(filename string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatXLS:
		return FormatXLS, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", importerrors.ErrUnsupportedFormat
	}
}

// Batch is a decoded upload. RowNumbers[i] is the data row Rows[i] came
// from, counted from 1 below the header, so skipped blank lines keep their
// place in the numbering.
type Batch struct {
	Rows       []RawRow
	RowNumbers []int
}

// rowNumber falls back to the position in Rows when no numbers were decoded.
func (b Batch) rowNumber(i int) int {
	if i < len(b.RowNumbers) {
		return b.RowNumbers[i]
	}
	return i + 1
}

// record is one source line; line is 1-based within the file or sheet.
type record struct {
	line  int
	cells []string
}

// Decode turns an uploaded spreadsheet into raw rows. The first non-blank
// line is the header; blank data lines are skipped.
func Decode(filename string, content []byte) (Batch, error) {
	if len(content) == 0 {
		return Batch{}, importerrors.ErrFileRequired
	}

	format, err := FormatFromFilename(filename)
	if err != nil {
		return Batch{}, err
	}

	var records []record
	switch format {
	case FormatXLSX:
		records, err = readXLSX(content)
	case FormatXLS:
		records, err = readXLS(content)
	default:
		records, err = readCSV(content)
	}
	if err != nil {
		return Batch{}, importerrors.ErrMalformedBatch.WithDetails(nil, err)
	}

	return toBatch(records)
}

func numbered(rows [][]string) []record {
	records := make([]record, len(rows))
	for i, cells := range rows {
		records[i] = record{line: i + 1, cells: cells}
	}
	return records
}

func readXLSX(content []byte) ([]record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return numbered(rows), nil
}

func readXLS(content []byte) (records []record, err error) {
	// The xls decoder panics on some corrupt inputs.
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("xls decode: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errors.New("no workbook stream in xls container")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return numbered(rows), nil
}

// xlsRow returns nil for rows the sheet does not store.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// readCSV keeps the source line of every record. encoding/csv drops empty
// lines, so the record index alone would undercount.
func readCSV(content []byte) ([]record, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records []record
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
}

// sniffDelimiter picks ';' when the header uses it instead of ','.
func sniffDelimiter(content []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(content))
	if !sc.Scan() {
		return ','
	}
	header := sc.Text()
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(cell string) string {
	cell = strings.TrimSpace(strings.TrimPrefix(cell, string(utf8BOM)))
	cell = strings.ToLower(cell)
	return strings.ReplaceAll(cell, " ", "_")
}

func toBatch(records []record) (Batch, error) {
	start := 0
	for start < len(records) && isBlank(records[start].cells) {
		start++
	}
	if start == len(records) {
		return Batch{}, importerrors.ErrMissingEmailColumn
	}

	headerLine := records[start].line
	header := make([]string, len(records[start].cells))
	hasEmail := false
	for i, cell := range records[start].cells {
		header[i] = normalizeHeader(cell)
		if header[i] == ColumnEmail {
			hasEmail = true
		}
	}
	if !hasEmail {
		return Batch{}, importerrors.ErrMissingEmailColumn
	}

	batch := Batch{
		Rows:       make([]RawRow, 0, len(records)-start-1),
		RowNumbers: make([]int, 0, len(records)-start-1),
	}
	for _, rec := range records[start+1:] {
		if isBlank(rec.cells) {
			continue
		}
		raw := make(RawRow, len(header))
		for i, column := range header {
			if column == "" || i >= len(rec.cells) {
				continue
			}
			if _, seen := raw[column]; seen {
				continue
			}
			raw[column] = rec.cells[i]
		}
		batch.Rows = append(batch.Rows, raw)
		batch.RowNumbers = append(batch.RowNumbers, rec.line-headerLine)
	}
	return batch, nil
}
