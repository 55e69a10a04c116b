package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"storewatch/internal/model"
)

// StorefrontPageSize is the number of results a full search page holds.
const StorefrontPageSize = 100

const defaultMaxPages = 50

// StorefrontConfig configures a Storefront.
type StorefrontConfig struct {
	// BaseURL resolves the relative item links found on search pages.
	BaseURL string
	// SearchURL is a template with {artist} and {page} placeholders.
	SearchURL string
	// MaxPages caps pagination per artist.
	MaxPages int
}

// Storefront lists and parses items of an HTML storefront.
type Storefront struct {
	getter    Getter
	base      *url.URL
	searchURL string
	maxPages  int
	log       *slog.Logger
}

// NewStorefront creates a Storefront source.
func NewStorefront(getter Getter, cfg StorefrontConfig, log *slog.Logger) (*Storefront, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !strings.Contains(cfg.SearchURL, "{artist}") || !strings.Contains(cfg.SearchURL, "{page}") {
		return nil, fmt.Errorf("search url %q must contain {artist} and {page}", cfg.SearchURL)
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Storefront{
		getter:    getter,
		base:      base,
		searchURL: cfg.SearchURL,
		maxPages:  maxPages,
		log:       log,
	}, nil
}

// ListCandidateURLs returns every item URL the storefront search shows for
// artist, across all pages, deduplicated in site order. When the last allowed
// page is still full, the URLs seen so far are returned with an error wrapping
// model.ErrListingTruncated.
func (s *Storefront) ListCandidateURLs(ctx context.Context, artist string) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string

	for page := 1; page <= s.maxPages; page++ {
		pageURLs, err := s.listPage(ctx, artist, page)
		if err != nil {
			return nil, err
		}
		s.log.Debug("search page scraped", "artist", artist, "page", page, "count", len(pageURLs))

		for _, u := range pageURLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}

		if len(pageURLs) < StorefrontPageSize {
			s.log.Info("candidate urls listed", "artist", artist, "count", len(urls))
			return urls, nil
		}
	}

	s.log.Warn("page cap reached", "artist", artist, "max_pages", s.maxPages, "count", len(urls))
	return urls, fmt.Errorf("list items of %q after %d pages: %w", artist, s.maxPages, model.ErrListingTruncated)
}

func (s *Storefront) listPage(ctx context.Context, artist string, page int) ([]string, error) {
	pageURL := strings.NewReplacer(
		"{artist}", url.QueryEscape(artist),
		"{page}", strconv.Itoa(page),
	).Replace(s.searchURL)

	doc, err := s.document(ctx, pageURL)
	if err != nil {
		return nil, &Error{Op: "list items", URL: pageURL, Err: err}
	}
	urls, err := parseItemList(doc, s.base)
	if err != nil {
		return nil, &Error{Op: "list items", URL: pageURL, Err: err}
	}
	return urls, nil
}

// FetchItem downloads and parses the detail page at itemURL.
func (s *Storefront) FetchItem(ctx context.Context, itemURL string) (*model.ItemData, error) {
	doc, err := s.document(ctx, itemURL)
	if err != nil {
		return nil, &Error{Op: "fetch item", URL: itemURL, Err: err}
	}
	data, err := parseItemDetails(doc)
	if err != nil {
		return nil, &Error{Op: "fetch item", URL: itemURL, Err: err}
	}
	s.log.Debug("item parsed", "url", itemURL, "title", data.Title)
	return data, nil
}

func (s *Storefront) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.getter.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
