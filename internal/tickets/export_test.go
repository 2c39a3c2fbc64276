package tickets

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/tests/testutil"
)

type staticLister struct {
	tickets []model.Ticket
	err     error
}

func (l staticLister) ListTickets(context.Context) ([]model.Ticket, error) {
	return l.tickets, l.err
}

func exportTickets() []model.Ticket {
	assignee := "OP-7"
	return []model.Ticket{
		{
			ID:           "TICKET-001",
			DisruptionID: "DIS-001",
			ShipmentID:   "SHIP-001",
			Action:       model.ActionReroute,
			Status:       model.StatusApproved,
			CreatedAt:    model.NewTimestamp(time.Date(2026, 1, 8, 9, 30, 0, 0, time.UTC)),
			AssignedTo:   &assignee,
		},
		{
			ID:           "TICKET-002",
			DisruptionID: "DIS-001",
			ShipmentID:   "SHIP-002, rush",
			Action:       model.ActionDelay,
			Status:       model.StatusPending,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportTickets()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"TICKET-001", "DIS-001", "SHIP-001", "reroute", "approved", "2026-01-08 09:30:00", "OP-7"}, records[1])
	assert.Equal(t, "SHIP-002, rush", records[2][2])
	assert.Equal(t, "", records[2][6])
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteJSONIsIndented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, exportTickets()))
	assert.Contains(t, buf.String(), "\n  {")

	var decoded []model.Ticket
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, exportTickets()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "TICKET-002", rows[2][0])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestExporterWritesFileAndHistory(t *testing.T) {
	dir := t.TempDir()
	s := testutil.NewTestStore(t)
	e := NewExporter(staticLister{tickets: exportTickets()}, s, dir, nil)
	e.now = func() time.Time { return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC) }

	res, err := e.Export(context.Background(), FormatCSV, "OP-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tickets-2026-02-03.csv"), res.Path)
	assert.Equal(t, 2, res.Count)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TICKET-001")

	history, err := s.ListExports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "csv", history[0].Format)
	assert.Equal(t, 2, history[0].TicketCount)
	assert.Equal(t, "OP-1", history[0].OperatorID)
}

func TestExporterSameDayExportsKeepEarlierFile(t *testing.T) {
	dir := t.TempDir()
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first := NewExporter(staticLister{tickets: exportTickets()}, s, dir, nil)
	first.now = func() time.Time { return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC) }
	res1, err := first.Export(ctx, FormatCSV, "OP-1")
	require.NoError(t, err)

	second := NewExporter(staticLister{tickets: exportTickets()[:1]}, s, dir, nil)
	second.now = func() time.Time { return time.Date(2026, 2, 3, 16, 45, 0, 0, time.UTC) }
	res2, err := second.Export(ctx, FormatCSV, "OP-1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tickets-2026-02-03.csv"), res1.Path)
	assert.Equal(t, filepath.Join(dir, "tickets-2026-02-03-2.csv"), res2.Path)

	data1, err := os.ReadFile(res1.Path)
	require.NoError(t, err)
	records1, err := csv.NewReader(bytes.NewReader(data1)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records1, 3)

	data2, err := os.ReadFile(res2.Path)
	require.NoError(t, err)
	records2, err := csv.NewReader(bytes.NewReader(data2)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records2, 2)

	history, err := s.ListExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, res2.Path, history[0].Path)
	assert.Equal(t, 1, history[0].TicketCount)
	assert.Equal(t, res1.Path, history[1].Path)
	assert.Equal(t, 2, history[1].TicketCount)
}

func TestExporterFetchFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(staticLister{err: errors.New("connection refused")}, nil, dir, nil)

	_, err := e.Export(context.Background(), FormatJSON, "OP-1")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
