package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"otodom-watch/config"
	"otodom-watch/models"
	"otodom-watch/storage"
	"otodom-watch/utils"
)

// Fetcher retrieves one listing. Implementations must be fail-soft: a
// sentinel record, never an error, on any failure.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID string) *models.ListingRecord
}

// Scanner drives one pass over the watchlist: fetch every listing with
// bounded concurrency, record observed prices into the history store, and
// produce a report. One slow or failing listing never blocks the rest.
type Scanner struct {
	cfg     *config.Config
	fetcher Fetcher
	history storage.HistoryStore
	logger  *utils.Logger
	seen    *utils.URLSet
}

// NewScanner creates a Scanner over the configured watchlist.
func NewScanner(cfg *config.Config, fetcher Fetcher, history storage.HistoryStore, logger *utils.Logger) *Scanner {
	return &Scanner{
		cfg:     cfg,
		fetcher: fetcher,
		history: history,
		logger:  logger,
		seen:    utils.NewURLSet(),
	}
}

// Scan fetches every watchlist URL and records each observed price.
// Results keep the watchlist order regardless of completion order.
func (s *Scanner) Scan(ctx context.Context) *models.ScanReport {
	started := time.Now()

	var urls []string
	for _, u := range s.cfg.Watchlist {
		if s.seen.Add(u) {
			urls = append(urls, u)
		} else {
			s.logger.Debug("[scanner] duplicate watchlist entry skipped: %s", u)
		}
	}

	s.logger.Info("[scanner] scanning %d listings — concurrency: %d", len(urls), s.cfg.MaxConcurrency)

	pool := utils.NewWorkerPool(s.cfg.MaxConcurrency, s.cfg.RateLimitMs)
	records := make([]*models.ListingRecord, len(urls))

	for i, u := range urls {
		i, u := i, u
		pool.Submit(func() {
			records[i] = s.fetcher.Fetch(ctx, u)
		})
	}
	pool.Wait()

	report := &models.ScanReport{
		Records:   records,
		StartedAt: started,
		Duration:  time.Since(started),
	}

	for _, rec := range records {
		if rec.Status == models.FetchOK {
			report.Fetched++
		} else {
			report.Failed++
			s.logger.Warn("[scanner] %s: placeholder record (%s)", rec.SourceID, rec.Status)
		}
		s.recordPrice(rec)
	}

	s.logger.Info("[scanner] scan done in %v — %d fetched, %d failed",
		report.Duration.Round(time.Millisecond), report.Fetched, report.Failed)
	return report
}

// recordPrice appends today's observation for the record. Store failures
// are logged and swallowed; history is never allowed to fail a scan.
func (s *Scanner) recordPrice(rec *models.ListingRecord) {
	if rec.Price <= 0 {
		return
	}
	obs := models.PriceObservation{
		Date:     rec.FetchedAt.Format("2006-01-02"),
		SourceID: rec.SourceID,
		Price:    rec.Price,
	}
	if err := s.history.Record(obs); err != nil {
		s.logger.Warn("[scanner] history record failed for %s: %v", rec.SourceID, err)
	}
}

// PrintReport renders the scan as listing cards on stdout.
func (s *Scanner) PrintReport(r *models.ScanReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏠 OTODOM WATCHLIST\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("  Listings scanned : \033[1m%d\033[0m\n", len(r.Records))
	fmt.Printf("  Fetched          : \033[1;32m%d\033[0m\n", r.Fetched)
	fmt.Printf("  Failed           : \033[1;31m%d\033[0m\n\n", r.Failed)

	for _, rec := range r.Records {
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(rec.Title, 50))
		if rec.Status != models.FetchOK {
			fmt.Printf("  \033[1;31mBrak danych (%s)\033[0m\n", rec.Status)
			fmt.Printf("  %s\n", rec.SourceID)
			continue
		}
		fmt.Printf("  Cena    : \033[1;32m%s zł\033[0m\n", formatAmount(rec.Price))
		if rec.Area > 0 {
			fmt.Printf("  Metraż  : %.0f m²", rec.Area)
			if rec.Price > 0 {
				fmt.Printf("  (%s zł/m²)", formatAmount(rec.Price/rec.Area))
			}
			fmt.Println()
		}
		if rec.Rooms > 0 {
			fmt.Printf("  Pokoje  : %d\n", rec.Rooms)
		}
		fmt.Printf("  %s\n", rec.SourceID)

		s.printHistory(rec.SourceID)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func (s *Scanner) printHistory(sourceID string) {
	obs, err := s.history.History(sourceID, s.cfg.HistoryLimit)
	if err != nil || len(obs) == 0 {
		return
	}
	fmt.Printf("  Historia:\n")
	for _, o := range obs {
		fmt.Printf("    %s  %s zł\n", o.Date, formatAmount(o.Price))
	}
}

// formatAmount renders a price with thin-space thousands grouping.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
