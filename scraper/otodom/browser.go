package otodom

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"otodom-watch/config"
	"otodom-watch/models"
	"otodom-watch/utils"
)

// BrowserFetcher retrieves listing pages through a headless browser and
// feeds the rendered DOM to the same extractor as the plain HTTP Fetcher.
// Used for pages that only materialize the embedded payload client-side.
// The fail-soft contract is identical: Fetch never returns an error.
type BrowserFetcher struct {
	allocOpts []chromedp.ExecAllocatorOption
	timeout   time.Duration
	logger    *utils.Logger
}

// NewBrowser creates a BrowserFetcher using the configured Chrome binary,
// falling back to whatever is on PATH.
func NewBrowser(cfg *config.Config, logger *utils.Logger) *BrowserFetcher {
	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	return &BrowserFetcher{
		allocOpts: opts,
		timeout:   time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond,
		logger:    logger,
	}
}

// Fetch navigates to the listing URL, grabs the rendered document and
// extracts a ListingRecord from it.
func (b *BrowserFetcher) Fetch(ctx context.Context, sourceID string) *models.ListingRecord {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// Rendering needs more headroom than a bare GET.
	runCtx, cancelTimeout := context.WithTimeout(browserCtx, b.timeout*4)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(sourceID),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		b.logger.Warn("[otodom] browser fetch %s failed: %v", sourceID, err)
		return sentinelRecord(sourceID, models.FetchBrowserError)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return sentinelRecord(sourceID, models.FetchDecodeError)
	}

	return ExtractListing(sourceID, doc)
}

// findChromeBinary locates an installed Chrome/Chromium binary.
func findChromeBinary() string {
	candidates := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
