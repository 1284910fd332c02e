package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"otodom-watch/config"
	"otodom-watch/scraper/otodom"
	"otodom-watch/services"
	"otodom-watch/storage"
	"otodom-watch/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Otodom Watchlist Monitor starting ===")
	logger.Info("Config — listings: %d | fetch: %s | history: %s | fallback: %s",
		len(cfg.Watchlist), cfg.FetchMode, cfg.HistoryBackend, cfg.FallbackPolicy)

	history := openHistory(cfg, logger)
	defer history.Close()

	var fetcher services.Fetcher
	if cfg.FetchMode == "browser" {
		fetcher = otodom.NewBrowser(cfg, logger)
	} else {
		fetcher = otodom.New(cfg, logger)
	}

	scanner := services.NewScanner(cfg, fetcher, history, logger)
	report := scanner.Scan(context.Background())
	scanner.PrintReport(report)

	estimator := services.NewEstimator(services.ParseFallbackPolicy(cfg.FallbackPolicy), logger)

	estimate, err := estimator.FitAndPredict(report.Records, cfg.QueryAreaM2)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientData) {
			logger.Warn("Not enough listing data for an estimate: %v", err)
			return
		}
		logger.Error("Estimation failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("\n  Wycena dla %.0f m²: \033[1;32m%.0f zł\033[0m\n", cfg.QueryAreaM2, estimate.PredictedPrice)
	fmt.Printf("  Model: cena = %.0f × metraż + %.0f (dane: %s, %d obserwacji)\n",
		estimate.Model.Slope, estimate.Model.Intercept, estimate.Source, estimate.TrainingSize)

	if ratio, err := estimator.ProjectGrowth(12); err == nil {
		fmt.Printf("  Prognoza 12 mies.: %.0f zł (wzrost ×%.3f)\n\n",
			estimate.PredictedPrice*ratio, ratio)
	}
}

// openHistory selects the history backend. A Postgres connection failure is
// fatal only when Postgres was explicitly requested; the CSV store has no
// failure mode at construction.
func openHistory(cfg *config.Config, logger *utils.Logger) storage.HistoryStore {
	if cfg.HistoryBackend == "postgres" {
		store, err := storage.NewPostgresHistory(cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			os.Exit(1)
		}
		return store
	}
	return storage.NewCSVHistory(cfg.HistoryCSVPath, logger)
}
