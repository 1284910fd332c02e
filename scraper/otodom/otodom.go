package otodom

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"otodom-watch/config"
	"otodom-watch/models"
	"otodom-watch/utils"
)

// PlaceholderTitle is shown when a listing could not be fetched or parsed.
const PlaceholderTitle = "Nie udało się pobrać ogłoszenia"

// dataScriptSelector matches the script tag carrying the page's embedded
// JSON payload.
const dataScriptSelector = `script#__NEXT_DATA__`

// siteSuffixes are known site-name decorations appended to document titles.
var siteSuffixes = []string{
	" | Otodom.pl",
	" | Otodom",
	" - Otodom.pl",
	" - Otodom",
}

// Fetcher retrieves a single listing page over plain HTTP and extracts a
// ListingRecord from the embedded JSON payload.
//
// Fetch never returns an error: every failure collapses into a record
// populated with sentinel values, carrying a FetchStatus naming the cause.
// Callers batch-fetch many listings and one failure must never abort the
// batch. No retry happens here; retries are the caller's responsibility.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *utils.Logger
}

// New creates a Fetcher with the configured per-request timeout.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch issues one GET for the listing URL and extracts its data.
func (f *Fetcher) Fetch(ctx context.Context, sourceID string) *models.ListingRecord {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceID, nil)
	if err != nil {
		return sentinelRecord(sourceID, models.FetchRequestError)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		status := models.FetchRequestError
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			status = models.FetchTimeout
		}
		f.logger.Warn("[otodom] GET %s failed: %v", sourceID, err)
		return sentinelRecord(sourceID, status)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("[otodom] GET %s returned HTTP %d", sourceID, resp.StatusCode)
		return sentinelRecord(sourceID, models.FetchBadStatus)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return sentinelRecord(sourceID, models.FetchDecodeError)
	}

	return ExtractListing(sourceID, doc)
}

// ExtractListing pulls a ListingRecord out of an already-parsed listing page.
//
// The page embeds one JSON document in a well-known script tag; the listing
// data lives at props.pageProps.ad. Every field along that path is optional
// and decodes to a sentinel when missing or malformed.
func ExtractListing(sourceID string, doc *goquery.Document) *models.ListingRecord {
	raw := doc.Find(dataScriptSelector).First().Text()
	if strings.TrimSpace(raw) == "" {
		return sentinelRecord(sourceID, models.FetchNoScriptTag)
	}

	var payload nextData
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return sentinelRecord(sourceID, models.FetchDecodeError)
	}

	ad := payload.Props.PageProps.Ad
	if ad.Target == nil {
		rec := sentinelRecord(sourceID, models.FetchNoTargetData)
		if title := extractTitle(doc); title != "" {
			rec.Title = title
		}
		return rec
	}

	rec := &models.ListingRecord{
		SourceID:  sourceID,
		Title:     extractTitle(doc),
		Price:     float64(ad.Target.Price),
		Area:      float64(ad.Target.Area),
		Rooms:     int(ad.Target.RoomsNum),
		ImageURL:  firstImage(ad.Images),
		Status:    models.FetchOK,
		FetchedAt: time.Now(),
	}
	if rec.Title == "" {
		rec.Title = PlaceholderTitle
	}
	return rec
}

// extractTitle takes the first page heading, falling back to the document
// title with any site-name suffix stripped.
func extractTitle(doc *goquery.Document) string {
	if h := strings.TrimSpace(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	t := strings.TrimSpace(doc.Find("title").First().Text())
	for _, suffix := range siteSuffixes {
		t = strings.TrimSuffix(t, suffix)
	}
	return strings.TrimSpace(t)
}

// firstImage returns the photo reference of the first image entry,
// preferring the medium-resolution variant.
func firstImage(images []adImage) string {
	if len(images) == 0 {
		return ""
	}
	if images[0].Medium != "" {
		return images[0].Medium
	}
	return images[0].Large
}

func sentinelRecord(sourceID string, status models.FetchStatus) *models.ListingRecord {
	return &models.ListingRecord{
		SourceID:  sourceID,
		Title:     PlaceholderTitle,
		Status:    status,
		FetchedAt: time.Now(),
	}
}
