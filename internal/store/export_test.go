package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sakthis4/Alt-Text/internal/models"
)

func exportStore() *Store {
	s := New()
	s.Append(models.ProcessedItem{
		ID:         "one",
		PageNumber: 1,
		Annotation: models.Annotation{
			Type:       models.TypeTable,
			AltText:    `Revenue, by quarter, with "notes"`,
			Keywords:   []string{"revenue", "quarterly"},
			Taxonomy:   []string{"Business", "Finance"},
			Confidence: 0.92,
		},
		TokensSpent: 1,
	})
	s.Append(models.ProcessedItem{
		ID:         "two",
		PageNumber: 2,
		Annotation: models.Annotation{
			Type:       models.TypeChart,
			AltText:    "A bar chart",
			Keywords:   []string{"bars"},
			Taxonomy:   []string{"Business"},
			Confidence: 0.5,
		},
		TokensSpent: 2,
	})
	return s
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := exportStore().WriteCSV(&buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "ID,Type,Alt Text,Keywords,Taxonomy,Confidence" {
		t.Errorf("Unexpected header: %s", lines[0])
	}

	// Fields with embedded commas or quotes must be quoted and escaped
	if !strings.Contains(lines[1], `"Revenue, by quarter, with ""notes"""`) {
		t.Errorf("Alt text was not CSV-escaped: %s", lines[1])
	}
	if !strings.Contains(lines[1], "92%") {
		t.Errorf("Confidence was not rendered as a percentage: %s", lines[1])
	}
	if !strings.Contains(lines[1], "revenue; quarterly") {
		t.Errorf("Keywords were not joined: %s", lines[1])
	}
	if !strings.Contains(lines[1], "Business > Finance") {
		t.Errorf("Taxonomy was not joined: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2,Chart/Graph,") {
		t.Errorf("Unexpected second row: %s", lines[2])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := New().WriteCSV(&buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("Expected header only, got %d lines", len(lines))
	}
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	if err := exportStore().WriteParquet(&buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// PAR1 magic at both ends of the file
	if !bytes.HasPrefix(buf.Bytes(), []byte("PAR1")) {
		t.Error("Parquet output missing leading magic")
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("PAR1")) {
		t.Error("Parquet output missing trailing magic")
	}
}

func TestWriteParquetEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := New().WriteParquet(&buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected a valid empty parquet file, got no bytes")
	}
}
