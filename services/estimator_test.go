package services

import (
	"errors"
	"math"
	"testing"

	"otodom-watch/models"
	"otodom-watch/utils"
)

const tolerance = 1e-6

// collinearRecords lies exactly on price = 10000*area + 50000.
func collinearRecords() []*models.ListingRecord {
	return []*models.ListingRecord{
		{SourceID: "a", Area: 30, Price: 350000},
		{SourceID: "b", Area: 50, Price: 550000},
		{SourceID: "c", Area: 80, Price: 850000},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance*math.Max(1, math.Abs(b))
}

func TestFitAndPredictCollinear(t *testing.T) {
	e := NewEstimator(PolicyOff, utils.NewLogger())

	est, err := e.FitAndPredict(collinearRecords(), 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(est.PredictedPrice, 650000) {
		t.Errorf("prediction at 60 m²: got %v, want 650000", est.PredictedPrice)
	}
	if !almostEqual(est.Model.Slope, 10000) {
		t.Errorf("slope: got %v, want 10000", est.Model.Slope)
	}
	if !almostEqual(est.Model.Intercept, 50000) {
		t.Errorf("intercept: got %v, want 50000", est.Model.Intercept)
	}
	if est.Source != models.SourceLive {
		t.Errorf("source: got %s, want %s", est.Source, models.SourceLive)
	}
	if est.TrainingSize != 3 {
		t.Errorf("training size: got %d, want 3", est.TrainingSize)
	}
}

func TestFitAndPredictExtrapolates(t *testing.T) {
	e := NewEstimator(PolicyOff, utils.NewLogger())

	// 150 m² is well outside the training range; still a valid prediction.
	est, err := e.FitAndPredict(collinearRecords(), 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(est.PredictedPrice, 1550000) {
		t.Errorf("prediction at 150 m²: got %v, want 1550000", est.PredictedPrice)
	}
}

func TestFitAndPredictFiltersSentinels(t *testing.T) {
	e := NewEstimator(PolicyOff, utils.NewLogger())

	records := append(collinearRecords(),
		&models.ListingRecord{SourceID: "no-price", Area: 44, Price: 0},
		&models.ListingRecord{SourceID: "no-area", Area: 0, Price: 999999},
		nil,
	)

	est, err := e.FitAndPredict(records, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.TrainingSize != 3 {
		t.Errorf("sentinel records must be excluded: training size got %d, want 3", est.TrainingSize)
	}
	if !almostEqual(est.PredictedPrice, 650000) {
		t.Errorf("prediction changed by sentinel records: got %v", est.PredictedPrice)
	}
}

func TestInsufficientDataPolicyOff(t *testing.T) {
	e := NewEstimator(PolicyOff, utils.NewLogger())

	for _, records := range [][]*models.ListingRecord{
		nil,
		{{SourceID: "only", Area: 50, Price: 550000}},
	} {
		_, err := e.FitAndPredict(records, 50)
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("with %d records: got %v, want ErrInsufficientData", len(records), err)
		}
	}
}

func TestFallbackReplace(t *testing.T) {
	e := NewEstimator(PolicyReplace, utils.NewLogger())

	est, err := e.FitAndPredict(nil, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != models.SourceFallback {
		t.Errorf("source: got %s, want %s", est.Source, models.SourceFallback)
	}
	if est.TrainingSize != len(fallbackDataset) {
		t.Errorf("training size: got %d, want %d", est.TrainingSize, len(fallbackDataset))
	}
	// The fallback dataset is itself collinear on price = 10000*area + 50000.
	if !almostEqual(est.PredictedPrice, 550000) {
		t.Errorf("prediction at 50 m²: got %v, want 550000", est.PredictedPrice)
	}
}

func TestFallbackReplaceIgnoresSparseLive(t *testing.T) {
	e := NewEstimator(PolicyReplace, utils.NewLogger())

	live := []*models.ListingRecord{{SourceID: "only", Area: 100, Price: 2000000}}
	est, err := e.FitAndPredict(live, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != models.SourceFallback {
		t.Errorf("source: got %s, want %s", est.Source, models.SourceFallback)
	}
	if est.TrainingSize != len(fallbackDataset) {
		t.Errorf("replace policy must drop live records: size got %d", est.TrainingSize)
	}
}

func TestFallbackBlend(t *testing.T) {
	e := NewEstimator(PolicyBlend, utils.NewLogger())

	// One live record on the same line as the fallback dataset.
	live := []*models.ListingRecord{{SourceID: "only", Area: 100, Price: 1050000}}
	est, err := e.FitAndPredict(live, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != models.SourceBlended {
		t.Errorf("source: got %s, want %s", est.Source, models.SourceBlended)
	}
	if est.TrainingSize != len(fallbackDataset)+1 {
		t.Errorf("training size: got %d, want %d", est.TrainingSize, len(fallbackDataset)+1)
	}
	if !almostEqual(est.PredictedPrice, 650000) {
		t.Errorf("prediction at 60 m²: got %v, want 650000", est.PredictedPrice)
	}
}

func TestFallbackBlendWithoutLiveReportsFallback(t *testing.T) {
	e := NewEstimator(PolicyBlend, utils.NewLogger())

	est, err := e.FitAndPredict(nil, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Source != models.SourceFallback {
		t.Errorf("source: got %s, want %s", est.Source, models.SourceFallback)
	}
}

func TestFallbackNotUsedWithEnoughLiveData(t *testing.T) {
	for _, policy := range []FallbackPolicy{PolicyReplace, PolicyBlend} {
		e := NewEstimator(policy, utils.NewLogger())
		est, err := e.FitAndPredict(collinearRecords(), 60)
		if err != nil {
			t.Fatalf("policy %s: unexpected error: %v", policy, err)
		}
		if est.Source != models.SourceLive {
			t.Errorf("policy %s: source got %s, want %s", policy, est.Source, models.SourceLive)
		}
	}
}

func TestParseFallbackPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want FallbackPolicy
	}{
		{"replace", PolicyReplace},
		{"blend", PolicyBlend},
		{"off", PolicyOff},
		{" BLEND ", PolicyBlend},
		{"", PolicyReplace},
		{"whatever", PolicyReplace},
	}
	for _, tt := range tests {
		if got := ParseFallbackPolicy(tt.in); got != tt.want {
			t.Errorf("ParseFallbackPolicy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestProjectGrowth(t *testing.T) {
	e := NewEstimator(PolicyReplace, utils.NewLogger())

	zero, err := e.ProjectGrowth(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(zero, 1) {
		t.Errorf("zero-month projection: got %v, want 1", zero)
	}

	r6, err := e.ProjectGrowth(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r12, err := e.ProjectGrowth(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The historical series trends upward, so projections must too,
	// and further horizons must project more growth.
	if r6 <= 1 {
		t.Errorf("6-month growth ratio: got %v, want > 1", r6)
	}
	if r12 <= r6 {
		t.Errorf("growth must increase with horizon: 6mo=%v 12mo=%v", r6, r12)
	}
}

func TestProjectGrowthNegativeMonths(t *testing.T) {
	e := NewEstimator(PolicyReplace, utils.NewLogger())
	if _, err := e.ProjectGrowth(-1); err == nil {
		t.Error("expected an error for a negative horizon")
	}
}
