package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/briefops/comms-intel/internal/model"
)

func TestLoadRecords_UnsupportedFormat(t *testing.T) {
	_, err := LoadRecords("records.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input format")
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	body := `[
		{"id": "m1", "subject": "Renewal call", "sender": "alice@x", "body": "Notes", "source": "email", "agent": "mailroom", "date": "2026-08-01T10:30:00Z"},
		{"title": "Sprint update", "author": "bob", "description": "Burndown looks fine", "source": "tracker-v2", "agent": "tracker", "date": "2026-08-02"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "m1", first.ID)
	assert.Equal(t, model.SourceEmail, first.Source)
	require.NotNil(t, first.Date)
	assert.Equal(t, 2026, first.Date.Year())

	second := records[1]
	assert.Equal(t, "record-2", second.ID, "missing ids are synthesized")
	assert.Equal(t, model.SourceUnknown, second.Source, "unrecognized source tags normalize to unknown")
	assert.Equal(t, "Sprint update", second.DisplayTitle())
	assert.Equal(t, "bob", second.SenderID())
	require.NotNil(t, second.Date)
}

func TestLoadJSON_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644))

	_, err := LoadRecords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json records")
}

func writeTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeTestXLSX(t, [][]string{
		// Columns are matched by header name, not position.
		{"Sender", "id", "Subject", "source", "agent", "date", "body"},
		{"alice@x", "m1", "Renewal call", "email", "mailroom", "2026-08-01", "Notes"},
		{"", "", "", "", "", "", ""},
		{"bob@x", "", "Short row", "project", "tracker"},
	})

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2, "blank rows are skipped")

	assert.Equal(t, "m1", records[0].ID)
	assert.Equal(t, "alice@x", records[0].Sender)
	assert.Equal(t, model.SourceEmail, records[0].Source)
	require.NotNil(t, records[0].Date)

	assert.Equal(t, "record-2", records[1].ID)
	assert.Equal(t, model.SourceProject, records[1].Source)
	assert.Nil(t, records[1].Date, "short rows tolerate missing cells")
}

func TestLoadXLSX_NoRecognizedColumns(t *testing.T) {
	path := writeTestXLSX(t, [][]string{
		{"foo", "bar"},
		{"1", "2"},
	})

	_, err := LoadRecords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recognized columns")
}

func TestParseDate(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("not a date"))
	require.NotNil(t, parseDate("2026-08-27"))
	require.NotNil(t, parseDate("2026-08-27T09:00:00Z"))
	require.NotNil(t, parseDate("08/27/2026"))
}
