// Package repo mediates record exchange with the outside world: reading
// work-order batches and writing annotated results. Excel export and column
// remapping live in the upstream tooling; this layer handles the CSV and
// JSONL shapes that tooling produces.
package repo

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aeromaint/atarec/internal/models"
	"github.com/aeromaint/atarec/internal/utils"
)

// columnAliases maps recognised CSV headers (the export tool's names and the
// internal ones) onto work-order fields.
var columnAliases = map[string]string{
	"w/o":                "id",
	"wo":                 "id",
	"work order":         "id",
	"ata":                "entered",
	"ata04_entered":      "entered",
	"w/o description":    "description",
	"description":        "description",
	"defect_text":        "description",
	"w/o action":         "action",
	"action":             "action",
	"rectification_text": "action",
	"type":               "type",
	"a/c":                "registration",
	"registration":       "registration",
	"issued":             "opened",
	"open_date":          "opened",
	"closed":             "closed",
	"close_date":         "closed",
}

// ReadWorkOrders loads a batch from path, dispatching on the file extension
// (.csv, .jsonl/.ndjson). The row index is assigned in file order so output
// ordering can be restored after parallel processing.
func ReadWorkOrders(path string) ([]models.WorkOrder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError("repo.ReadWorkOrders", "open input file", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, utils.NewAppError("repo.ReadWorkOrders", fmt.Sprintf("unsupported input format %q", filepath.Ext(path)), nil)
	}
}

// ReadCSV parses a header-led CSV batch. Unknown columns are ignored;
// missing optional cells degrade to empty values. A structurally unreadable
// file is an error.
func ReadCSV(r io.Reader) ([]models.WorkOrder, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, utils.NewAppError("repo.ReadCSV", "read header row", err)
	}

	fields := make(map[int]string, len(header))
	for i, name := range header {
		if field, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			fields[i] = field
		}
	}

	var orders []models.WorkOrder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.NewAppError("repo.ReadCSV", fmt.Sprintf("read row %d", len(orders)+2), err)
		}

		wo := models.WorkOrder{RowIndex: len(orders)}
		for i, cell := range record {
			switch fields[i] {
			case "id":
				wo.ID = strings.TrimSpace(cell)
			case "entered":
				wo.EnteredATA = strings.TrimSpace(cell)
			case "description":
				wo.Description = cell
			case "action":
				wo.Action = cell
			case "type":
				wo.Type = strings.TrimSpace(cell)
			case "registration":
				wo.Registration = strings.TrimSpace(cell)
			case "opened":
				wo.OpenedAt = strings.TrimSpace(cell)
			case "closed":
				wo.ClosedAt = strings.TrimSpace(cell)
			}
		}
		orders = append(orders, wo)
	}
	return orders, nil
}

type jsonlRecord struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Action       string `json:"action"`
	EnteredATA   string `json:"entered_ata"`
	Type         string `json:"type"`
	Registration string `json:"registration"`
	OpenedAt     string `json:"opened_at"`
	ClosedAt     string `json:"closed_at"`
}

// ReadJSONL parses one JSON object per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]models.WorkOrder, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var orders []models.WorkOrder
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, utils.NewAppError("repo.ReadJSONL", fmt.Sprintf("parse line %d", line), err)
		}
		orders = append(orders, models.WorkOrder{
			ID:           rec.ID,
			RowIndex:     len(orders),
			Description:  rec.Description,
			Action:       rec.Action,
			EnteredATA:   rec.EnteredATA,
			Type:         rec.Type,
			Registration: rec.Registration,
			OpenedAt:     rec.OpenedAt,
			ClosedAt:     rec.ClosedAt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.NewAppError("repo.ReadJSONL", "scan input", err)
	}
	return orders, nil
}

// WriteResults writes the annotated batch to path, dispatching on extension.
func WriteResults(path string, results []models.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return utils.NewAppError("repo.WriteResults", "create output file", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return WriteJSONL(f, results)
	case ".csv":
		return WriteCSV(f, results)
	default:
		return utils.NewAppError("repo.WriteResults", fmt.Sprintf("unsupported output format %q", filepath.Ext(path)), nil)
	}
}

var resultHeader = []string{
	"W/O", "ATA04_Entered", "Is_Technical_Defect", "ATA04_From_Cited",
	"Cited_Manual", "Cited_Task", "Cited_Title", "Cited_Exists",
	"ATA04_Derived", "Derived_Score", "Decision", "ATA04_Final",
	"Confidence", "Reason",
}

// WriteCSV emits the audit columns the review tooling expects, one row per
// input row.
func WriteCSV(w io.Writer, results []models.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeader); err != nil {
		return utils.NewAppError("repo.WriteCSV", "write header", err)
	}

	for _, res := range results {
		row := []string{
			res.ID,
			res.EnteredATA,
			fmt.Sprintf("%t", res.IsDefect),
			res.Cited.ATA04,
			res.Cited.Manual,
			res.Cited.Task,
			res.Cited.Title,
			citedExistsCell(res.Cited),
			res.Derived.ATA04,
			derivedScoreCell(res.Derived),
			string(res.Disposition),
			res.FinalATA,
			fmt.Sprintf("%.2f", res.Confidence),
			res.Reason,
		}
		if err := writer.Write(row); err != nil {
			return utils.NewAppError("repo.WriteCSV", "write row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return utils.NewAppError("repo.WriteCSV", "flush output", err)
	}
	return nil
}

type jsonlResult struct {
	ID           string   `json:"id,omitempty"`
	EnteredATA   string   `json:"entered_ata,omitempty"`
	IsDefect     bool     `json:"is_defect"`
	CitedATA     string   `json:"cited_ata,omitempty"`
	CitedManual  string   `json:"cited_manual,omitempty"`
	CitedTask    string   `json:"cited_task,omitempty"`
	CitedTitle   string   `json:"cited_title,omitempty"`
	CitedExists  string   `json:"cited_exists,omitempty"`
	CitedKeys    []string `json:"cited_keys,omitempty"`
	DerivedATA   string   `json:"derived_ata,omitempty"`
	DerivedScore *float64 `json:"derived_score,omitempty"`
	Decision     string   `json:"decision"`
	FinalATA     string   `json:"final_ata,omitempty"`
	Confidence   float64  `json:"confidence"`
	Reason       string   `json:"reason"`
}

// WriteJSONL emits one JSON object per result, including the full matched
// reference keys for audit.
func WriteJSONL(w io.Writer, results []models.Result) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for _, res := range results {
		row := jsonlResult{
			ID:          res.ID,
			EnteredATA:  res.EnteredATA,
			IsDefect:    res.IsDefect,
			CitedATA:    res.Cited.ATA04,
			CitedManual: res.Cited.Manual,
			CitedTask:   res.Cited.Task,
			CitedTitle:  res.Cited.Title,
			Decision:    string(res.Disposition),
			FinalATA:    res.FinalATA,
			Confidence:  res.Confidence,
			Reason:      res.Reason,
		}
		if res.Cited.Present {
			row.CitedExists = string(res.Cited.Validity)
			for _, key := range res.Cited.Keys {
				row.CitedKeys = append(row.CitedKeys, string(key.Manual)+" "+key.Task())
			}
		}
		if res.Derived.Present {
			score := res.Derived.Score
			row.DerivedScore = &score
		}
		if err := enc.Encode(row); err != nil {
			return utils.NewAppError("repo.WriteJSONL", "encode result", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return utils.NewAppError("repo.WriteJSONL", "flush output", err)
	}
	return nil
}

func citedExistsCell(c models.CitationSignal) string {
	if !c.Present {
		return ""
	}
	return string(c.Validity)
}

func derivedScoreCell(d models.SimilaritySignal) string {
	if !d.Present {
		return ""
	}
	return fmt.Sprintf("%.4f", d.Score)
}
