package tickets

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/store"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatXLSX}

const (
	sheetName     = "Tickets"
	createdLayout = "2006-01-02 15:04:05"
)

// Columns is the fixed column order of tabular exports.
var Columns = []string{"ID", "Disruption", "Shipment", "Action", "Status", "Created", "Assigned To"}

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json or xlsx)", s)
	}
}

// maxSameDayExports bounds the -N suffix search in createExportFile.
const maxSameDayExports = 1000

// FileName returns the export file name for a format and date.
func FileName(f Format, at time.Time) string {
	return fmt.Sprintf("tickets-%s.%s", at.Format("2006-01-02"), f)
}

// createExportFile creates a new file in dir for the export, never
// truncating an earlier one: later exports on the same day get a -2, -3,
// ... suffix.
func createExportFile(dir string, f Format, at time.Time) (*os.File, string, error) {
	base := strings.TrimSuffix(FileName(f, at), "."+string(f))
	for n := 1; n <= maxSameDayExports; n++ {
		name := base + "." + string(f)
		if n > 1 {
			name = fmt.Sprintf("%s-%d.%s", base, n, f)
		}
		path := filepath.Join(dir, name)
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return out, path, nil
	}
	return nil, "", fmt.Errorf("too many exports named %s.%s", base, f)
}

func row(t model.Ticket) []string {
	created := ""
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.Format(createdLayout)
	}
	return []string{
		t.ID,
		t.DisruptionID,
		t.ShipmentID,
		string(t.Action),
		string(t.Status),
		created,
		t.AssignedToOrEmpty(),
	}
}

// WriteCSV writes tickets as CSV with a header row.
func WriteCSV(w io.Writer, tickets []model.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range tickets {
		if err := cw.Write(row(t)); err != nil {
			return fmt.Errorf("writing csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes tickets as pretty-printed JSON.
func WriteJSON(w io.Writer, tickets []model.Ticket) error {
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tickets); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteXLSX writes tickets as a single-sheet workbook with the same
// columns as the CSV export.
func WriteXLSX(w io.Writer, tickets []model.Ticket) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing xlsx header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, t := range tickets {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(t)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("writing xlsx row %s: %w", t.ID, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}

// Encode writes tickets in the given format.
func Encode(w io.Writer, f Format, tickets []model.Ticket) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, tickets)
	case FormatJSON:
		return WriteJSON(w, tickets)
	case FormatXLSX:
		return WriteXLSX(w, tickets)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// Lister fetches the full ticket set.
type Lister interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
}

// ExportResult describes a written export file.
type ExportResult struct {
	Path  string
	Count int
}

// Exporter fetches every ticket and writes it to a dated file.
type Exporter struct {
	lister  Lister
	history store.Store
	dir     string
	now     func() time.Time
	logger  *slog.Logger
}

// NewExporter creates an exporter writing into dir. history may be nil.
func NewExporter(lister Lister, history store.Store, dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dir == "" {
		dir = "."
	}
	return &Exporter{
		lister:  lister,
		history: history,
		dir:     dir,
		now:     time.Now,
		logger:  logger,
	}
}

// Export writes all tickets in format f and records the export in the
// local history. A history failure is logged, not returned.
func (e *Exporter) Export(ctx context.Context, f Format, operatorID string) (ExportResult, error) {
	tickets, err := e.lister.ListTickets(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("fetching tickets for export: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("creating export directory: %w", err)
	}

	now := e.now()
	out, path, err := createExportFile(e.dir, f, now)
	if err != nil {
		return ExportResult{}, fmt.Errorf("creating export file: %w", err)
	}

	if err := Encode(out, f, tickets); err != nil {
		out.Close()
		return ExportResult{}, err
	}
	if err := out.Close(); err != nil {
		return ExportResult{}, fmt.Errorf("closing export file: %w", err)
	}

	e.logger.Info("tickets exported", "format", f, "path", path, "count", len(tickets))

	if e.history != nil {
		rec := store.ExportRecord{
			Format:      string(f),
			Path:        path,
			TicketCount: len(tickets),
			OperatorID:  operatorID,
			CreatedAt:   model.NewTimestamp(now),
		}
		if err := e.history.RecordExport(ctx, rec); err != nil {
			e.logger.Warn("recording export history failed", "error", err)
		}
	}

	return ExportResult{Path: path, Count: len(tickets)}, nil
}
