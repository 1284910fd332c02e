package models

import "time"

// FetchStatus records how a fetch attempt ended. All failures collapse into
// a sentinel ListingRecord, but the cause stays visible for callers that
// want to distinguish a timeout from a parse error.
type FetchStatus string

const (
	FetchOK           FetchStatus = "ok"
	FetchRequestError FetchStatus = "request_error"
	FetchTimeout      FetchStatus = "timeout"
	FetchBadStatus    FetchStatus = "bad_status"
	FetchNoScriptTag  FetchStatus = "no_script_tag"
	FetchDecodeError  FetchStatus = "decode_error"
	FetchNoTargetData FetchStatus = "no_target_data"
	FetchBrowserError FetchStatus = "browser_error"
)

// ListingRecord is one observation of a listing at fetch time.
// Zero is the sentinel for unknown numeric fields; a record with Price == 0
// or Area == 0 carries no signal for trend fitting.
type ListingRecord struct {
	SourceID  string
	Title     string
	Price     float64
	Area      float64
	Rooms     int
	ImageURL  string
	Status    FetchStatus
	FetchedAt time.Time
}

// Valid reports whether the record can contribute to a trend fit.
func (r *ListingRecord) Valid() bool {
	return r.Price > 0 && r.Area > 0
}

// PriceObservation is one row in the durable price history log.
// At most one observation is stored per (SourceID, Date) pair.
type PriceObservation struct {
	Date     string // YYYY-MM-DD
	SourceID string
	Price    float64
}

// TrendModel is a fitted line: price = Slope*area + Intercept.
type TrendModel struct {
	Slope     float64
	Intercept float64
}

// Predict evaluates the fitted line at the given area.
func (m TrendModel) Predict(area float64) float64 {
	return m.Slope*area + m.Intercept
}

// DataSource names what trained an estimate's model.
type DataSource string

const (
	SourceLive     DataSource = "live"
	SourceFallback DataSource = "fallback"
	SourceBlended  DataSource = "blended"
)

// Estimate is the result of a trend fit plus a prediction.
type Estimate struct {
	PredictedPrice float64
	Model          TrendModel
	Source         DataSource
	TrainingSize   int
}

// ScanReport summarizes one watchlist scan.
type ScanReport struct {
	Records   []*ListingRecord
	Fetched   int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}
