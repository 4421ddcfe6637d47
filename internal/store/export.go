package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// exportRow is the flat tabular shape shared by both export formats
type exportRow struct {
	Position    int     `parquet:"position"`
	Type        string  `parquet:"type"`
	AltText     string  `parquet:"alt_text"`
	Keywords    string  `parquet:"keywords"`
	Taxonomy    string  `parquet:"taxonomy"`
	Confidence  float64 `parquet:"confidence"`
	PageNumber  int     `parquet:"page_number"`
	TokensSpent int     `parquet:"tokens_spent"`
}

func (s *Store) exportRows() []exportRow {
	items := s.Items()
	rows := make([]exportRow, len(items))
	for i, item := range items {
		rows[i] = exportRow{
			Position:    i + 1,
			Type:        string(item.Type),
			AltText:     item.AltText,
			Keywords:    strings.Join(item.Keywords, "; "),
			Taxonomy:    strings.Join(item.Taxonomy, " > "),
			Confidence:  item.Confidence,
			PageNumber:  item.PageNumber,
			TokensSpent: item.TokensSpent,
		}
	}
	return rows
}

// WriteCSV serializes the collection as a comma-delimited table with a
// header row. encoding/csv double-quotes fields with embedded commas
// or quotes and doubles embedded quotes.
func (s *Store) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ID", "Type", "Alt Text", "Keywords", "Taxonomy", "Confidence"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range s.exportRows() {
		record := []string{
			fmt.Sprintf("%d", row.Position),
			row.Type,
			row.AltText,
			row.Keywords,
			row.Taxonomy,
			fmt.Sprintf("%.0f%%", row.Confidence*100),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", row.Position, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteParquet serializes the collection as a parquet file, the format
// used for feeding results into analytics tooling.
func (s *Store) WriteParquet(w io.Writer) error {
	pw := parquet.NewGenericWriter[exportRow](w)

	rows := s.exportRows()
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
