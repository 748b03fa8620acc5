package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

func renderXLSX(ds Dataset, kind Kind, opts Options) ([]byte, int, error) {
	f := excelize.NewFile()
	defer f.Close()

	rows := 0
	for i, t := range tables(ds, kind, opts) {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.sheet); err != nil {
				return nil, 0, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.sheet); err != nil {
			return nil, 0, fmt.Errorf("add sheet %q: %w", t.sheet, err)
		}
		if err := writeSheet(f, t); err != nil {
			return nil, 0, err
		}
		rows += len(t.rows)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), rows, nil
}

func writeSheet(f *excelize.File, t table) error {
	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q header: %w", t.sheet, err)
	}
	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", t.sheet, i+1, err)
		}
	}
	return nil
}

// SheetNames lists the sheets of a rendered workbook.
func SheetNames(body []byte) ([]string, error) {
	f, err := openWorkbook(body)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// SheetRows reads every row of a sheet from a rendered workbook.
func SheetRows(body []byte, sheet string) ([][]string, error) {
	f, err := openWorkbook(body)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(sheet)
}

func openWorkbook(body []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return f, nil
}
