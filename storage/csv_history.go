package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"otodom-watch/models"
	"otodom-watch/utils"
)

// historyHeader is the column layout of the history file. The file doubles
// as an operator-facing artifact, so the column names stay stable.
var historyHeader = []string{"Data", "Link", "Cena"}

// CSVHistory is a HistoryStore backed by a single CSV file. Every write
// reads the file in full, appends the new observation and rewrites it.
// Writes are serialized through the store's mutex; a missing or unreadable
// file degrades to an empty history and is never an error.
type CSVHistory struct {
	mu     sync.Mutex
	path   string
	logger *utils.Logger
}

// NewCSVHistory creates a CSV-backed history store at the given path.
// The file itself is created lazily on the first recorded observation.
func NewCSVHistory(path string, logger *utils.Logger) *CSVHistory {
	return &CSVHistory{path: path, logger: logger}
}

// Record appends one observation unless the price is the zero sentinel or
// the (SourceID, Date) pair is already present.
func (s *CSVHistory) Record(obs models.PriceObservation) error {
	if obs.Price == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.readAll()
	for _, r := range rows {
		if r.SourceID == obs.SourceID && r.Date == obs.Date {
			return nil
		}
	}
	rows = append(rows, obs)

	return s.writeAll(rows)
}

// History returns the most recent observations for the given identifier,
// newest first, at most limit entries.
func (s *CSVHistory) History(sourceID string, limit int) ([]models.PriceObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PriceObservation
	for _, r := range s.readAll() {
		if r.SourceID == sourceID {
			out = append(out, r)
		}
	}

	// ISO dates sort lexicographically.
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op; the file is not held open between operations.
func (s *CSVHistory) Close() error { return nil }

// readAll loads every stored observation. Any read or parse problem yields
// an empty result: history corruption must not break the pipeline.
func (s *CSVHistory) readAll() []models.PriceObservation {
	f, err := os.Open(s.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		s.logger.Warn("[history] unreadable file %s: %v — treating as empty", s.path, err)
		return nil
	}

	var out []models.PriceObservation
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == historyHeader[0] {
			continue
		}
		if len(row) < 3 {
			continue
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		out = append(out, models.PriceObservation{
			Date:     row[0],
			SourceID: row[1],
			Price:    price,
		})
	}
	return out
}

func (s *CSVHistory) writeAll(rows []models.PriceObservation) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("history: create output dir: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("history: create file %q: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(historyHeader); err != nil {
		return fmt.Errorf("history: write header: %w", err)
	}
	for _, r := range rows {
		row := []string{r.Date, r.SourceID, strconv.FormatFloat(r.Price, 'f', -1, 64)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("history: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
