// Package ingest loads communication records from local files. It accepts
// JSON exports and spreadsheet dumps and normalizes both into model.Record
// slices for the pipeline.
package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/briefops/comms-intel/internal/model"
)

// dateLayouts are tried in order when parsing record dates from loose
// sources.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// LoadRecords reads records from path, dispatching on the file extension.
// Supported formats: .json (array of record objects) and .xlsx.
func LoadRecords(path string) ([]model.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported input format %q", filepath.Ext(path))
	}
}

// rawRecord is the loose wire form of a record: dates are strings and
// source tags are free text until normalized.
type rawRecord struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Title       string `json:"title"`
	Sender      string `json:"sender"`
	Author      string `json:"author"`
	Body        string `json:"body"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Agent       string `json:"agent"`
	Date        string `json:"date"`
	Status      string `json:"status"`
}

func (r rawRecord) toRecord(index int) model.Record {
	rec := model.Record{
		ID:          strings.TrimSpace(r.ID),
		Subject:     r.Subject,
		Title:       r.Title,
		Sender:      r.Sender,
		Author:      r.Author,
		Body:        r.Body,
		Description: r.Description,
		Source:      model.ParseSource(r.Source),
		Agent:       strings.TrimSpace(r.Agent),
		Status:      strings.TrimSpace(r.Status),
	}
	if rec.ID == "" {
		rec.ID = "record-" + strconv.Itoa(index+1)
	}
	if d := parseDate(r.Date); d != nil {
		rec.Date = d
	}
	return rec
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func loadJSON(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read json file")
	}

	var raw []rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "ingest: parse json records")
	}

	records := make([]model.Record, 0, len(raw))
	for i, r := range raw {
		records = append(records, r.toRecord(i))
	}
	return records, nil
}

// xlsxColumns maps header names to rawRecord fields. Header matching is
// case-insensitive; unknown columns are ignored.
var xlsxColumns = map[string]func(*rawRecord, string){
	"id":          func(r *rawRecord, v string) { r.ID = v },
	"subject":     func(r *rawRecord, v string) { r.Subject = v },
	"title":       func(r *rawRecord, v string) { r.Title = v },
	"sender":      func(r *rawRecord, v string) { r.Sender = v },
	"author":      func(r *rawRecord, v string) { r.Author = v },
	"body":        func(r *rawRecord, v string) { r.Body = v },
	"description": func(r *rawRecord, v string) { r.Description = v },
	"source":      func(r *rawRecord, v string) { r.Source = v },
	"agent":       func(r *rawRecord, v string) { r.Agent = v },
	"date":        func(r *rawRecord, v string) { r.Date = v },
	"status":      func(r *rawRecord, v string) { r.Status = v },
}

func loadXLSX(path string) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx file has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	// First row is the header; it decides which column feeds which field.
	setters := make([]func(*rawRecord, string), len(sheet.Rows[0].Cells))
	known := 0
	for j, cell := range sheet.Rows[0].Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		if set, ok := xlsxColumns[name]; ok {
			setters[j] = set
			known++
		}
	}
	if known == 0 {
		return nil, eris.New("ingest: xlsx header row has no recognized columns")
	}

	var records []model.Record
	for i, row := range sheet.Rows[1:] {
		var raw rawRecord
		empty := true
		for j, cell := range row.Cells {
			if j >= len(setters) || setters[j] == nil {
				continue
			}
			v := strings.TrimSpace(cell.String())
			if v != "" {
				empty = false
			}
			setters[j](&raw, v)
		}
		if empty {
			zap.L().Debug("ingest: skipping empty xlsx row", zap.Int("row", i+2))
			continue
		}
		records = append(records, raw.toRecord(len(records)))
	}
	return records, nil
}
