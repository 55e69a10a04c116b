// Package reconcile diffs freshly scraped listings against the stored snapshot
// for every followed artist and drives the resulting writes and notifications.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"storewatch/internal/filter"
	"storewatch/internal/model"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("reconcile run already in progress")

// Repository is the subset of storage the engine reads and mutates.
type Repository interface {
	ListFollowedArtists(ctx context.Context) ([]model.Artist, error)
	ListItemsByArtist(ctx context.Context, artistID int64) ([]model.Item, error)
	CreateItem(ctx context.Context, args *model.CreateItemArgs) (*model.Item, error)
	UpdateAvailability(ctx context.Context, url string, availability model.Availability) (*model.Item, error)
	ListSkipURLs(ctx context.Context) ([]string, error)
	AddSkipEntry(ctx context.Context, url string, artists []string) error
	ListTitleSkipSequences(ctx context.Context) ([]string, error)
}

// Source lists candidate item URLs for an artist and fetches item details.
// A listing known to be incomplete is returned with an error wrapping
// model.ErrListingTruncated.
type Source interface {
	ListCandidateURLs(ctx context.Context, artist string) ([]string, error)
	FetchItem(ctx context.Context, url string) (*model.ItemData, error)
}

// Notifier delivers batches of items. Delivery failures are the notifier's
// concern and are never reported back.
type Notifier interface {
	NotifyNewItems(ctx context.Context, artist string, items []model.Item)
	NotifyRestockedItems(ctx context.Context, artist string, items []model.Item)
}

// ArtistResult counts what one artist's reconciliation did.
type ArtistResult struct {
	Artist       string
	Unchanged    int
	Restocked    int
	Created      int
	SkipAdded    int
	TitleSkipped int
	Duplicates   int
	Unavailable  int
	WentAway     int
	Truncated    bool
	Err          error
}

// Summary describes a complete run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Artists  []ArtistResult
}

// Engine reconciles the stored snapshot with the listing source.
type Engine struct {
	repo     Repository
	source   Source
	notifier Notifier
	log      *slog.Logger

	mu sync.Mutex
}

// New creates an Engine.
func New(repo Repository, source Source, notifier Notifier, log *slog.Logger) *Engine {
	return &Engine{
		repo:     repo,
		source:   source,
		notifier: notifier,
		log:      log,
	}
}

// Reconcile runs one reconciliation over all followed artists.
func (e *Engine) Reconcile(ctx context.Context) error {
	_, err := e.Run(ctx)
	return err
}

// Run reconciles every followed artist in turn. A failing artist does not
// stop the others; all failures are joined into the returned error.
// Only one run may be active at a time; overlapping calls get ErrRunInProgress.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	summary := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	log := e.log.With("run_id", summary.RunID)
	log.Info("reconcile run started")

	artists, err := e.repo.ListFollowedArtists(ctx)
	if err != nil {
		summary.Finished = time.Now()
		return summary, fmt.Errorf("list followed artists: %w", err)
	}

	var errs []error
	for _, artist := range artists {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		alog := log.With("artist", artist.Name)
		res := e.reconcileArtist(ctx, artist, alog)
		summary.Artists = append(summary.Artists, res)

		if res.Err != nil {
			alog.Error("artist reconcile failed", "error", res.Err)
			errs = append(errs, fmt.Errorf("reconcile %q: %w", artist.Name, res.Err))
			continue
		}
		alog.Info("artist reconciled",
			"unchanged", res.Unchanged,
			"restocked", res.Restocked,
			"created", res.Created,
			"skip_added", res.SkipAdded,
			"title_skipped", res.TitleSkipped,
			"duplicates", res.Duplicates,
			"unavailable", res.Unavailable,
			"truncated", res.Truncated,
			"went_away", res.WentAway,
		)
	}

	summary.Finished = time.Now()
	log.Info("reconcile run finished",
		"artists", len(artists),
		"failed", len(errs),
		"duration", summary.Finished.Sub(summary.Started),
	)
	return summary, errors.Join(errs...)
}

func (e *Engine) reconcileArtist(ctx context.Context, artist model.Artist, log *slog.Logger) ArtistResult {
	res := ArtistResult{Artist: artist.Name}

	known, err := e.repo.ListItemsByArtist(ctx, artist.ID)
	if err != nil {
		res.Err = fmt.Errorf("list known items: %w", err)
		return res
	}
	skipURLs, err := e.repo.ListSkipURLs(ctx)
	if err != nil {
		res.Err = fmt.Errorf("list skip urls: %w", err)
		return res
	}
	sequences, err := e.repo.ListTitleSkipSequences(ctx)
	if err != nil {
		res.Err = fmt.Errorf("list title skip sequences: %w", err)
		return res
	}
	candidates, err := e.source.ListCandidateURLs(ctx, artist.Name)
	res.Truncated = errors.Is(err, model.ErrListingTruncated)
	if err != nil && !res.Truncated {
		res.Err = fmt.Errorf("list candidates: %w", err)
		return res
	}
	if res.Truncated {
		log.Warn("candidate listing incomplete, went-away pass skipped", "error", err)
	}

	p := classify(known, candidates, skipURLs)
	res.Unchanged = len(p.unchanged)
	log.Debug("candidates classified",
		"known", len(known),
		"candidates", len(candidates),
		"unchanged", len(p.unchanged),
		"restock", len(p.restock),
		"new", len(p.create),
		"went_away", len(p.wentAway),
	)

	// Whatever was written before a failure is still announced.
	restocked, err := e.restock(ctx, p.restock, sequences, log)
	res.Restocked = len(restocked)
	if len(restocked) > 0 {
		e.notifier.NotifyRestockedItems(ctx, artist.Name, restocked)
	}
	if err != nil {
		res.Err = err
		return res
	}

	created, err := e.create(ctx, artist.Name, p.create, sequences, &res, log)
	res.Created = len(created)
	if len(created) > 0 {
		e.notifier.NotifyNewItems(ctx, artist.Name, created)
	}
	if err != nil {
		res.Err = err
		return res
	}

	if res.Truncated {
		return res
	}
	for _, url := range p.wentAway {
		if _, err := e.repo.UpdateAvailability(ctx, url, model.NotAvailable); err != nil {
			res.Err = e.updateFailed(url, err, log)
			return res
		}
		res.WentAway++
		log.Info("item went away", "url", url)
	}
	return res
}

// restock marks each URL available again and returns the items to announce.
// Items whose stored title matches a skip sequence are updated but not announced.
func (e *Engine) restock(ctx context.Context, urls, sequences []string, log *slog.Logger) ([]model.Item, error) {
	var batch []model.Item
	for _, url := range urls {
		item, err := e.repo.UpdateAvailability(ctx, url, model.Available)
		if err != nil {
			return batch, e.updateFailed(url, err, log)
		}
		if filter.TitleSkipped(item.Title, sequences) {
			log.Debug("restocked item not announced, title skipped", "url", url, "title", item.Title)
			continue
		}
		log.Info("item restocked", "url", url)
		batch = append(batch, *item)
	}
	return batch, nil
}

// create fetches and stores new items. Items not attributed to artist are
// remembered as skip entries; sold-out and title-skipped items are dropped.
func (e *Engine) create(ctx context.Context, artist string, urls, sequences []string, res *ArtistResult, log *slog.Logger) ([]model.Item, error) {
	var batch []model.Item
	for _, url := range urls {
		data, err := e.source.FetchItem(ctx, url)
		if err != nil {
			return batch, fmt.Errorf("fetch item: %w", err)
		}

		if !filter.HasArtist(data.Artists, artist) {
			if err := e.repo.AddSkipEntry(ctx, url, data.Artists); err != nil {
				return batch, fmt.Errorf("add skip entry %s: %w", url, err)
			}
			res.SkipAdded++
			log.Info("item not attributed to artist, skipped", "url", url, "artists", data.Artists)
			continue
		}

		// Sold-out items are not stored; they are fetched again on later runs
		// until the detail page reports them available.
		if !data.Availability.IsAvailable() {
			res.Unavailable++
			log.Debug("new item not available, not created", "url", url, "availability", data.Availability)
			continue
		}

		if filter.TitleSkipped(data.Title, sequences) {
			res.TitleSkipped++
			log.Debug("item title skipped", "url", url, "title", data.Title)
			continue
		}

		item, err := e.repo.CreateItem(ctx, model.NewCreateItemArgs(url, data))
		if errors.Is(err, model.ErrDuplicate) {
			res.Duplicates++
			log.Warn("item already exists", "url", url)
			continue
		}
		if err != nil {
			return batch, fmt.Errorf("create item %s: %w", url, err)
		}
		log.Info("item created", "url", url, "title", item.Title)
		batch = append(batch, *item)
	}
	return batch, nil
}

func (e *Engine) updateFailed(url string, err error, log *slog.Logger) error {
	if errors.Is(err, model.ErrNotFound) {
		log.Error("known item vanished from storage", "url", url, "error", err)
	}
	return fmt.Errorf("update availability %s: %w", url, err)
}
