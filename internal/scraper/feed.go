package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"

	"storewatch/internal/model"
)

// Feed is a listing source backed by a per-artist RSS or Atom feed. Item
// details come from the entries of the most recent listing.
type Feed struct {
	fetcher     FeedFetcher
	urlTemplate string
	log         *slog.Logger

	mu    sync.Mutex
	items map[string]*model.ItemData
}

// NewFeed creates a feed source. urlTemplate must contain an {artist} placeholder.
func NewFeed(fetcher FeedFetcher, urlTemplate string, log *slog.Logger) (*Feed, error) {
	if !strings.Contains(urlTemplate, "{artist}") {
		return nil, fmt.Errorf("feed url %q must contain {artist}", urlTemplate)
	}
	return &Feed{
		fetcher:     fetcher,
		urlTemplate: urlTemplate,
		log:         log,
		items:       make(map[string]*model.ItemData),
	}, nil
}

// ListCandidateURLs fetches the artist's feed and returns the entry links in
// feed order, deduplicated.
func (f *Feed) ListCandidateURLs(ctx context.Context, artist string) ([]string, error) {
	feedURL := strings.ReplaceAll(f.urlTemplate, "{artist}", url.QueryEscape(artist))
	feed, err := f.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		return nil, &Error{Op: "list items", URL: feedURL, Err: err}
	}

	items := make(map[string]*model.ItemData, len(feed.Items))
	var urls []string
	for _, entry := range feed.Items {
		link := strings.TrimSpace(entry.Link)
		if link == "" {
			continue
		}
		if _, ok := items[link]; ok {
			continue
		}
		urls = append(urls, link)
		items[link] = itemDataFromEntry(entry)
	}

	// Only the latest listing is kept; the engine fetches an artist's items
	// right after listing them.
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()

	f.log.Info("candidate urls listed", "artist", artist, "count", len(urls))
	return urls, nil
}

// FetchItem returns the details recorded for itemURL by the most recent listing.
func (f *Feed) FetchItem(_ context.Context, itemURL string) (*model.ItemData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.items[itemURL]
	if !ok {
		return nil, &Error{Op: "fetch item", URL: itemURL, Err: ErrNotListed}
	}
	cp := *data
	return &cp, nil
}

// itemDataFromEntry maps feed fields onto item data: authors become artists,
// the first category becomes the category and the rest become tags.
func itemDataFromEntry(entry *gofeed.Item) *model.ItemData {
	data := &model.ItemData{
		Title:        strings.TrimSpace(entry.Title),
		Availability: model.Available,
	}

	for _, a := range entry.Authors {
		if a == nil {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			data.Artists = append(data.Artists, name)
		}
	}

	if len(entry.Categories) > 0 {
		data.Category = strings.TrimSpace(entry.Categories[0])
		for _, c := range entry.Categories[1:] {
			if c = strings.TrimSpace(c); c != "" {
				data.Tags = append(data.Tags, c)
			}
		}
	}

	switch {
	case entry.Image != nil && entry.Image.URL != "":
		data.ImageURL = entry.Image.URL
	default:
		for _, enc := range entry.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				data.ImageURL = enc.URL
				break
			}
		}
	}
	return data
}
