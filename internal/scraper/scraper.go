// Package scraper adapts the external bank-portal scraper to the ingestion pipeline.
//
// The scraper itself drives a headless browser and is not part of this module.
// Exec talks to it as a child process: one JSON request on stdin, one JSON result
// on stdout.
package scraper

import (
	"context"
	"fmt"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// Scraper fetches raw transactions for one institution login.
type Scraper interface {
	Scrape(ctx context.Context, req model.ScrapeRequest) ([]model.ScrapedAccount, error)
}

// Failure is a scrape the collaborator reported as unsuccessful.
// It matches errs.ErrExternalService.
type Failure struct {
	Type    string // collaborator classification, e.g. INVALID_PASSWORD
	Message string
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "" && f.Type != "":
		return fmt.Sprintf("%s: %s", f.Type, f.Message)
	case f.Message != "":
		return f.Message
	case f.Type != "":
		return f.Type
	}
	return "unknown scraper error"
}

// Unwrap ties every failure to the external service sentinel.
func (f *Failure) Unwrap() error { return errs.ErrExternalService }

// Func adapts a function to the Scraper interface.
type Func func(ctx context.Context, req model.ScrapeRequest) ([]model.ScrapedAccount, error)

// Scrape calls f.
func (f Func) Scrape(ctx context.Context, req model.ScrapeRequest) ([]model.ScrapedAccount, error) {
	return f(ctx, req)
}
