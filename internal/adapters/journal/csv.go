// Package journal mirrors trade lifecycle events to a CSV file.
package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"
)

var header = []string{
	"trade_id", "symbol", "side", "entry_price", "exit_price", "quantity",
	"leverage", "entry_time", "exit_time", "profit_pct", "status",
}

// CSVJournal implements ports.AuditLog on a CSV file.
type CSVJournal struct {
	mu     sync.Mutex
	path   string
	logger ports.Logger
}

// NewCSVJournal creates the journal, writing the header if the file is new.
func NewCSVJournal(path string, logger ports.Logger) (*CSVJournal, error) {
	if path == "" || logger == nil {
		return nil, fmt.Errorf("journal path and logger are required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory '%s': %w", filepath.Dir(path), err)
	}
	j := &CSVJournal{path: path, logger: logger}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := j.writeAll([][]string{header}); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// RecordOpen appends a row for a newly opened trade.
func (j *CSVJournal) RecordOpen(ctx context.Context, trade *domain.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("RecordOpen failed: %w: %w", ports.ErrPersistenceFailure, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(toRecord(trade)); err != nil {
		return fmt.Errorf("RecordOpen failed: %w: %w", ports.ErrPersistenceFailure, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("RecordOpen failed: %w: %w", ports.ErrPersistenceFailure, err)
	}
	j.logger.Debug(ctx, "Journal row appended", map[string]interface{}{"tradeID": trade.ID, "symbol": trade.Symbol})
	return nil
}

// RecordClose rewrites the row of a closed trade, appending it if missing.
func (j *CSVJournal) RecordClose(ctx context.Context, trade *domain.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.readAll()
	if err != nil {
		return fmt.Errorf("RecordClose failed: %w: %w", ports.ErrPersistenceFailure, err)
	}

	row := toRecord(trade)
	id := row[0]
	found := false
	for i := 1; i < len(records); i++ {
		if id != "" && len(records[i]) > 0 && records[i][0] == id {
			records[i] = row
			found = true
		}
	}
	if !found {
		records = append(records, row)
	}

	if err := j.writeAll(records); err != nil {
		return fmt.Errorf("RecordClose failed: %w: %w", ports.ErrPersistenceFailure, err)
	}
	return nil
}

func (j *CSVJournal) readAll() ([][]string, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read journal '%s': %w", j.path, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		records = append(records, header)
	}
	return records, nil
}

// writeAll replaces the journal through a temp file and rename.
func (j *CSVJournal) writeAll(records [][]string) error {
	tmp := j.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, j.path)
}

func toRecord(t *domain.Trade) []string {
	rec := []string{
		"",
		t.Symbol,
		string(t.Side),
		strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
		"",
		strconv.FormatFloat(t.Quantity, 'f', -1, 64),
		strconv.Itoa(t.Leverage),
		t.EntryTime.UTC().Format(time.RFC3339),
		"",
		"",
		string(t.Status),
	}
	if t.ID != 0 {
		rec[0] = strconv.FormatInt(t.ID, 10)
	}
	if t.ExitPrice != nil {
		rec[4] = strconv.FormatFloat(*t.ExitPrice, 'f', -1, 64)
	}
	if t.ExitTime != nil {
		rec[8] = t.ExitTime.UTC().Format(time.RFC3339)
	}
	if t.ProfitPct != nil {
		rec[9] = strconv.FormatFloat(*t.ProfitPct, 'f', 4, 64)
	}
	return rec
}
