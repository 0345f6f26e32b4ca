// Package export writes enriched link tables as JSON, CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"sharevault/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const SheetName = "Links"

// Columns is the header row shared by the tabular formats.
var Columns = []string{"url", "user", "timestamp", "name", "type", "artists", "image_url"}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

func Write(w io.Writer, format Format, links []models.EnrichedLink) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, links)
	case FormatCSV:
		return WriteCSV(w, links)
	case FormatXLSX:
		return WriteXLSX(w, links)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func row(l models.EnrichedLink) []string {
	return []string{l.URL, l.User, l.Timestamp, l.Name, l.Type, l.Artists, l.ImageURL}
}

func WriteJSON(w io.Writer, links []models.EnrichedLink) error {
	if links == nil {
		links = []models.EnrichedLink{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(links)
}

func WriteCSV(w io.Writer, links []models.EnrichedLink) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, l := range links {
		if err := cw.Write(row(l)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, links []models.EnrichedLink) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, Columns); err != nil {
		return err
	}
	for i, l := range links {
		if err := setRow(f, i+2, row(l)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("row %d: %w", n, err)
	}
	return nil
}
