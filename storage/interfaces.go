package storage

import "otodom-watch/models"

// HistoryStore is the interface any price-history backend must satisfy.
//
// Record must be a no-op for a zero price and idempotent per
// (SourceID, Date): recording the same day twice stores one observation.
// History returns observations most-recent-first, capped at limit, and an
// empty slice — never an error — for an unknown identifier.
type HistoryStore interface {
	Record(obs models.PriceObservation) error
	History(sourceID string, limit int) ([]models.PriceObservation, error)
	Close() error
}
