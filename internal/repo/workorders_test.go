package repo

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aeromaint/atarec/internal/models"
)

func TestReadCSVExportHeaders(t *testing.T) {
	input := strings.Join([]string{
		`W/O,ATA,W/O Description,W/O Action,Type,A/C,Issued,Closed`,
		`WO-0001,21-26,"PACK CONTROLLER FAULTY","REPLACED IAW TSM 21-26-00",TECH,VH-ABC,2024-01-10,2024-01-12`,
		`WO-0002,,"SCHEDULED CHECK","PERFORMED",ROUTINE,VH-ABC,2024-01-11,2024-01-11`,
	}, "\n")

	orders, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}

	first := orders[0]
	if first.ID != "WO-0001" || first.EnteredATA != "21-26" {
		t.Fatalf("first = %+v", first)
	}
	if first.Description != "PACK CONTROLLER FAULTY" || first.Action != "REPLACED IAW TSM 21-26-00" {
		t.Fatalf("first text = %q / %q", first.Description, first.Action)
	}
	if first.Type != "TECH" || first.Registration != "VH-ABC" {
		t.Fatalf("first metadata = %+v", first)
	}
	if first.OpenedAt != "2024-01-10" || first.ClosedAt != "2024-01-12" {
		t.Fatalf("first dates = %+v", first)
	}
	if first.RowIndex != 0 || orders[1].RowIndex != 1 {
		t.Fatal("row indexes must follow file order")
	}
	if orders[1].EnteredATA != "" {
		t.Fatalf("empty ATA cell = %q", orders[1].EnteredATA)
	}
}

func TestReadCSVInternalHeadersAndUnknownColumns(t *testing.T) {
	input := strings.Join([]string{
		`id,ata04_entered,defect_text,rectification_text,station`,
		`WO-1,2126,LEAK FOUND,SEAL REPLACED,SYD`,
	}, "\n")

	orders, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders", len(orders))
	}
	wo := orders[0]
	if wo.ID != "WO-1" || wo.EnteredATA != "2126" || wo.Description != "LEAK FOUND" || wo.Action != "SEAL REPLACED" {
		t.Fatalf("order = %+v", wo)
	}
}

func TestReadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"WO-1","description":"LEAK FOUND","action":"SEAL REPLACED","entered_ata":"29-10"}`,
		``,
		`{"id":"WO-2","description":"SCHEDULED CHECK","action":"PERFORMED"}`,
	}, "\n")

	orders, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2 (blank line skipped)", len(orders))
	}
	if orders[0].EnteredATA != "29-10" || orders[1].ID != "WO-2" {
		t.Fatalf("orders = %+v", orders)
	}

	if _, err := ReadJSONL(strings.NewReader(`{broken`)); err == nil {
		t.Fatal("malformed line must be an error")
	}
}

func TestReadWorkOrdersDispatch(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "batch.csv")
	if err := os.WriteFile(csvPath, []byte("W/O,ATA\nWO-1,21-26\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	orders, err := ReadWorkOrders(csvPath)
	if err != nil || len(orders) != 1 {
		t.Fatalf("csv dispatch: %v, %d orders", err, len(orders))
	}

	jsonlPath := filepath.Join(dir, "batch.jsonl")
	if err := os.WriteFile(jsonlPath, []byte(`{"id":"WO-2"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	orders, err = ReadWorkOrders(jsonlPath)
	if err != nil || len(orders) != 1 {
		t.Fatalf("jsonl dispatch: %v, %d orders", err, len(orders))
	}

	xlsxPath := filepath.Join(dir, "batch.xlsx")
	if err := os.WriteFile(xlsxPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWorkOrders(xlsxPath); err == nil {
		t.Fatal("unsupported extension must be an error")
	}
	if _, err := ReadWorkOrders(filepath.Join(dir, "absent.csv")); err == nil {
		t.Fatal("missing file must be an error")
	}
}

func sampleResults() []models.Result {
	score := func(s float64) models.SimilaritySignal {
		return models.SimilaritySignal{Present: true, ATA04: "21-26", Score: s}
	}
	return []models.Result{
		{
			WorkOrder: models.WorkOrder{ID: "WO-1", EnteredATA: "21-26"},
			IsDefect:  true,
			Cited: models.CitationSignal{
				Present: true, ATA04: "21-26", Manual: "TSM", Task: "21-26-00",
				Title:    "PACK TEMPERATURE CONTROL",
				Validity: models.ValidityConfirmed,
				Keys: []models.ReferenceKey{
					{Manual: models.ManualTSM, Chapter: "21", Section: "26", Subject: "00"},
				},
			},
			Derived:     score(0.71),
			Disposition: models.DispositionConfirm,
			FinalATA:    "21-26",
			Confidence:  0.97,
			Reason:      "all sources agree (E0=E1=E2)",
		},
		{
			WorkOrder:   models.WorkOrder{ID: "WO-2", EnteredATA: "05-00"},
			IsDefect:    false,
			Disposition: models.DispositionNonDefect,
			FinalATA:    "05-00",
			Confidence:  0.99,
			Reason:      "routine maintenance: scheduled check",
		},
	}
}

func TestWriteCSVAuditColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "W/O" || rows[0][11] != "ATA04_Final" {
		t.Fatalf("header = %v", rows[0])
	}

	defect := rows[1]
	if defect[0] != "WO-1" || defect[2] != "true" || defect[7] != "confirmed" || defect[9] != "0.7100" {
		t.Fatalf("defect row = %v", defect)
	}
	if defect[6] != "PACK TEMPERATURE CONTROL" {
		t.Fatalf("cited title cell = %q", defect[6])
	}
	routine := rows[2]
	if routine[2] != "false" || routine[6] != "" || routine[7] != "" || routine[9] != "" {
		t.Fatalf("routine row must leave signal cells empty: %v", routine)
	}
	if routine[10] != "NON_DEFECT" || routine[12] != "0.99" {
		t.Fatalf("routine row = %v", routine)
	}
}

func TestWriteJSONLAuditFields(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sampleResults()); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var defect map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &defect); err != nil {
		t.Fatal(err)
	}
	if defect["cited_exists"] != "confirmed" || defect["final_ata"] != "21-26" {
		t.Fatalf("defect line = %v", defect)
	}
	if defect["cited_title"] != "PACK TEMPERATURE CONTROL" {
		t.Fatalf("cited_title = %v", defect["cited_title"])
	}
	keys, ok := defect["cited_keys"].([]any)
	if !ok || len(keys) != 1 || keys[0] != "TSM 21-26-00" {
		t.Fatalf("cited_keys = %v", defect["cited_keys"])
	}
	if _, present := defect["derived_score"]; !present {
		t.Fatal("derived_score missing for matched row")
	}

	var routine map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &routine); err != nil {
		t.Fatal(err)
	}
	if _, present := routine["derived_score"]; present {
		t.Fatal("derived_score must be omitted when no catalog match")
	}
	if routine["decision"] != "NON_DEFECT" {
		t.Fatalf("routine line = %v", routine)
	}
}

func TestWriteResultsDispatch(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	if err := WriteResults(csvPath, sampleResults()); err != nil {
		t.Fatalf("csv dispatch: %v", err)
	}
	if data, err := os.ReadFile(csvPath); err != nil || len(data) == 0 {
		t.Fatalf("csv output: %v, %d bytes", err, len(data))
	}

	if err := WriteResults(filepath.Join(dir, "out.parquet"), nil); err == nil {
		t.Fatal("unsupported extension must be an error")
	}
}
