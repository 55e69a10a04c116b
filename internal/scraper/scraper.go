// Package scraper implements listing sources that discover item URLs for an
// artist and fetch the details of a single item.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
)

var (
	// ErrMissingElement is wrapped when a required part of a page is absent.
	ErrMissingElement = errors.New("element not found")
	// ErrUnknownAvailability is wrapped when the availability label is not recognized.
	ErrUnknownAvailability = errors.New("unknown availability")
	// ErrNotListed is returned by Feed.FetchItem for a URL absent from the last listing.
	ErrNotListed = errors.New("url not in last listing")
)

// Getter downloads raw documents.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// FeedFetcher downloads and parses feeds.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error)
}

// Error describes a failed scrape operation. It covers both transport and
// parse failures.
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
