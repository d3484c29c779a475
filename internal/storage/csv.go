package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xaenox/intent-bot/internal/models"
)

// TimestampLayout is the timestamp format of the CSV log.
const TimestampLayout = "2006-01-02 15:04:05"

// The first three columns match logs written by earlier versions of the
// bot; rows with only those three are still readable.
var csvHeader = []string{"User Input", "Chatbot Response", "Timestamp", "Tag", "Source", "ID"}

// CSVStorage appends conversation turns to a CSV file. Appends are
// serialised so concurrent turns never interleave lines.
type CSVStorage struct {
	mu   sync.Mutex
	path string
}

func NewCSVStorage(path string) (*CSVStorage, error) {
	if path == "" {
		return nil, errors.New("csv storage path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating log directory: %w", err)
		}
	}
	return &CSVStorage{path: path}, nil
}

func (s *CSVStorage) Append(ctx context.Context, entry *models.ConversationEntry) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(entry)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error opening conversation log: %w", err)
	}
	defer closeLog(f, &err)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("error reading conversation log info: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("error writing conversation log header: %w", err)
		}
	}

	row := []string{
		entry.Input,
		entry.Response,
		entry.Timestamp.Format(TimestampLayout),
		entry.Tag,
		string(entry.Source),
		entry.ID,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("error writing conversation entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error flushing conversation log: %w", err)
	}
	return nil
}

// closeLog closes c and reports its error through err unless err already
// holds one.
func closeLog(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("error closing conversation log: %w", cerr)
	}
}

func (s *CSVStorage) History(ctx context.Context, limit int) ([]models.ConversationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.ConversationEntry{}, nil
		}
		return nil, fmt.Errorf("error opening conversation log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var entries []models.ConversationEntry
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading conversation log: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == csvHeader[0] {
				continue
			}
		}
		if len(row) < 3 {
			continue
		}
		entries = append(entries, parseRow(row))
	}

	out := make([]models.ConversationEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

func parseRow(row []string) models.ConversationEntry {
	entry := models.ConversationEntry{
		Input:    row[0],
		Response: row[1],
	}
	if ts, err := time.ParseInLocation(TimestampLayout, row[2], time.Local); err == nil {
		entry.Timestamp = ts
	}
	if len(row) > 3 {
		entry.Tag = row[3]
	}
	if len(row) > 4 {
		entry.Source = models.Source(row[4])
	}
	if len(row) > 5 {
		entry.ID = row[5]
	}
	return entry
}

func (s *CSVStorage) Close() error {
	return nil
}
