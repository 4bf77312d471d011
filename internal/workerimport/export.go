package workerimport

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	importerrors "github.com/OlegKumachev/kiout-test-backend/internal/workerimport/errors"

	"github.com/xuri/excelize/v2"
)

const (
	columnHiredDate = "hired_date"
	exportSheet     = "Workers"
)

var contentTypes = map[string]string{
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatCSV:  "text/csv; charset=utf-8",
}

func exportFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", importerrors.ErrInvalidExportFormat
	}
}

func exportHeader() []string {
	return append(append([]string{}, Columns...), columnHiredDate)
}

// formulaPrefixes start a formula when a spreadsheet opens the file.
const formulaPrefixes = "=+-@\t\r"

// escapeFormula quotes text a spreadsheet would evaluate. unescapeFormula
// reverses it on import.
func escapeFormula(v string) string {
	if v != "" && strings.ContainsRune(formulaPrefixes, rune(v[0])) {
		return "'" + v
	}
	return v
}

func unescapeFormula(v string) string {
	if len(v) > 1 && v[0] == '\'' && strings.ContainsRune(formulaPrefixes, rune(v[1])) {
		return v[1:]
	}
	return v
}

func exportRecord(w worker.WorkerDetailResponse) []string {
	return []string{
		escapeFormula(w.FirstName),
		escapeFormula(w.MiddleName),
		escapeFormula(w.LastName),
		escapeFormula(w.Email),
		escapeFormula(w.Position),
		strconv.FormatBool(w.IsActive),
		w.HiredDate.UTC().Format(time.RFC3339),
	}
}

func encode(format string, items []worker.WorkerDetailResponse) ([]byte, error) {
	if format == FormatCSV {
		return encodeCSV(items)
	}
	return encodeXLSX(items)
}

func encodeCSV(items []worker.WorkerDetailResponse) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader()); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := w.Write(exportRecord(item)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeXLSX(items []worker.WorkerDetailResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(exportSheet, cell, &row)
	}

	if err := write(1, exportHeader()); err != nil {
		return nil, err
	}
	for i, item := range items {
		if err := write(i+2, exportRecord(item)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
