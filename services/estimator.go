package services

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"otodom-watch/models"
	"otodom-watch/utils"
)

// ErrInsufficientData is returned when fewer than 2 valid records are
// available and no fallback dataset may be used.
var ErrInsufficientData = errors.New("insufficient training data: need at least 2 records with price and area")

// minTrainingSize is the smallest record set a line can be fitted to.
const minTrainingSize = 2

// FallbackPolicy decides what happens when live records don't meet the
// training minimum.
type FallbackPolicy string

const (
	// PolicyReplace trains on the fallback dataset alone.
	PolicyReplace FallbackPolicy = "replace"
	// PolicyBlend concatenates valid live records with the fallback dataset.
	PolicyBlend FallbackPolicy = "blend"
	// PolicyOff refuses the estimate with ErrInsufficientData.
	PolicyOff FallbackPolicy = "off"
)

// ParseFallbackPolicy maps a config string to a policy, defaulting to
// replace for anything unrecognized.
func ParseFallbackPolicy(s string) FallbackPolicy {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyBlend:
		return PolicyBlend
	case PolicyOff:
		return PolicyOff
	default:
		return PolicyReplace
	}
}

// fallbackDataset is a fixed set of historical market observations used
// when live fetching yields too little data to fit a trend.
var fallbackDataset = []*models.ListingRecord{
	{Title: "Dane archiwalne 30 m²", Area: 30, Price: 350000},
	{Title: "Dane archiwalne 40 m²", Area: 40, Price: 450000},
	{Title: "Dane archiwalne 50 m²", Area: 50, Price: 550000},
	{Title: "Dane archiwalne 60 m²", Area: 60, Price: 650000},
	{Title: "Dane archiwalne 80 m²", Area: 80, Price: 850000},
}

// pricePerSqmSeries is a fixed 24-month history of average price per m²
// used by the growth projection. Index 0 is the oldest month.
var pricePerSqmSeries = []float64{
	12450, 12510, 12600, 12580, 12710, 12850,
	12940, 13080, 13150, 13270, 13390, 13480,
	13620, 13700, 13850, 13990, 14120, 14210,
	14380, 14500, 14640, 14790, 14930, 15080,
}

// Estimator fits a linear price trend over listing records. Every estimate
// refits from scratch; nothing is cached between calls.
type Estimator struct {
	policy FallbackPolicy
	logger *utils.Logger
}

// NewEstimator creates an Estimator with the given fallback policy.
func NewEstimator(policy FallbackPolicy, logger *utils.Logger) *Estimator {
	return &Estimator{policy: policy, logger: logger}
}

// FitAndPredict fits price against floor area over the given records and
// evaluates the fitted line at queryArea. Records with a zero price or
// area are discarded first. When fewer than 2 valid records remain, the
// configured fallback policy decides between refusing the estimate and
// training on the fallback dataset; the returned Estimate always reports
// which data source trained the model.
func (e *Estimator) FitAndPredict(records []*models.ListingRecord, queryArea float64) (*models.Estimate, error) {
	valid := filterValid(records)

	train := valid
	source := models.SourceLive

	if len(valid) < minTrainingSize {
		switch e.policy {
		case PolicyOff:
			return nil, fmt.Errorf("%w (got %d)", ErrInsufficientData, len(valid))
		case PolicyBlend:
			if len(valid) == 0 {
				train = fallbackDataset
				source = models.SourceFallback
			} else {
				train = append(append([]*models.ListingRecord{}, valid...), fallbackDataset...)
				source = models.SourceBlended
			}
		default:
			train = fallbackDataset
			source = models.SourceFallback
		}
		e.logger.Warn("[estimator] only %d valid live records — training on %s data (%d points)",
			len(valid), source, len(train))
	}

	xs := make([]float64, len(train))
	ys := make([]float64, len(train))
	for i, r := range train {
		xs[i] = r.Area
		ys[i] = r.Price
	}

	model := fitLine(xs, ys)
	return &models.Estimate{
		PredictedPrice: model.Predict(queryArea),
		Model:          model,
		Source:         source,
		TrainingSize:   len(train),
	}, nil
}

// ProjectGrowth fits price per m² against a monthly index over the fixed
// historical series and extrapolates the given number of months forward.
// The result is the ratio future/current of the fitted values, usable to
// project a present valuation.
func (e *Estimator) ProjectGrowth(months int) (float64, error) {
	if months < 0 {
		return 0, fmt.Errorf("estimator: cannot project %d months into the past", months)
	}

	xs := make([]float64, len(pricePerSqmSeries))
	for i := range xs {
		xs[i] = float64(i)
	}

	model := fitLine(xs, pricePerSqmSeries)
	now := float64(len(pricePerSqmSeries) - 1)
	current := model.Predict(now)
	future := model.Predict(now + float64(months))
	if current == 0 {
		return 0, fmt.Errorf("estimator: degenerate price series, fitted current value is zero")
	}
	return future / current, nil
}

// fitLine is the shared OLS primitive: ordinary least squares of y on x.
func fitLine(xs, ys []float64) models.TrendModel {
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return models.TrendModel{Slope: slope, Intercept: intercept}
}

func filterValid(records []*models.ListingRecord) []*models.ListingRecord {
	var out []*models.ListingRecord
	for _, r := range records {
		if r != nil && r.Valid() {
			out = append(out, r)
		}
	}
	return out
}
