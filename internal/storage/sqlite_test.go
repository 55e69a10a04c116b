package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"storewatch/internal/model"
)

var ignoreArtistTS = cmpopts.IgnoreFields(model.Artist{}, "CreatedAt", "FollowedAt")
var ignoreItemTS = cmpopts.IgnoreFields(model.Item{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func followArtist(t *testing.T, s *SQLite, name string) *model.Artist {
	t.Helper()
	a, err := s.FollowArtist(context.Background(), name)
	if err != nil {
		t.Fatalf("follow %q: %v", name, err)
	}
	return a
}

func sampleArgs(url string) *model.CreateItemArgs {
	return &model.CreateItemArgs{
		URL:          url,
		Title:        "Winter Sketchbook",
		Circle:       "Snow Circle",
		Artists:      []string{"alice", "bob"},
		ImageURL:     "https://img.example.com/1.jpg",
		Category:     "Doujinshi",
		Tags:         []string{"original", "illustration"},
		Flags:        []string{"R18"},
		Price:        "¥1,100",
		Availability: model.Available,
	}
}

func TestFollowArtist(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	a := followArtist(t, s, "  alice ")
	if a.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if diff := cmp.Diff(model.Artist{ID: a.ID, Name: "alice", Following: true}, *a, ignoreArtistTS); diff != "" {
		t.Errorf("FollowArtist mismatch (-want +got):\n%s", diff)
	}
	if a.FollowedAt == nil {
		t.Fatal("expected FollowedAt to be set")
	}

	_, err := s.FollowArtist(ctx, "alice")
	var afe *model.AlreadyFollowedError
	if !errors.As(err, &afe) {
		t.Fatalf("expected AlreadyFollowedError, got %v", err)
	}
	if !afe.Since.Equal(*a.FollowedAt) {
		t.Errorf("Since = %v, want %v", afe.Since, *a.FollowedAt)
	}

	if _, err := s.FollowArtist(ctx, "   "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestUnfollowArtist(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	a := followArtist(t, s, "alice")

	got, err := s.UnfollowArtist(ctx, a.ID)
	if err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if got.Following || got.FollowedAt != nil {
		t.Errorf("expected unfollowed artist without FollowedAt, got %+v", got)
	}

	stored, err := s.GetArtist(ctx, a.ID)
	if err != nil {
		t.Fatalf("get artist: %v", err)
	}
	if stored.Following || stored.FollowedAt != nil {
		t.Errorf("stored artist still followed: %+v", stored)
	}

	if _, err := s.UnfollowArtist(ctx, a.ID); !errors.Is(err, model.ErrNotFollowed) {
		t.Errorf("second unfollow: expected ErrNotFollowed, got %v", err)
	}
	if _, err := s.UnfollowArtist(ctx, 9999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown artist: expected ErrNotFound, got %v", err)
	}

	refollowed := followArtist(t, s, "alice")
	if diff := cmp.Diff(a.ID, refollowed.ID); diff != "" {
		t.Errorf("refollow should reuse the artist row (-want +got):\n%s", diff)
	}
}

func TestListFollowedArtists(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	alice := followArtist(t, s, "alice")
	bob := followArtist(t, s, "bob")
	if _, err := s.UnfollowArtist(ctx, bob.ID); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	// carol is only known through an item attribution.
	if _, err := s.CreateItem(ctx, &model.CreateItemArgs{
		URL: "https://shop.example.com/1", Title: "T", Category: "C",
		Artists: []string{"alice", "carol"}, Availability: model.Available,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	followed, err := s.ListFollowedArtists(ctx)
	if err != nil {
		t.Fatalf("list followed: %v", err)
	}
	want := []model.Artist{{ID: alice.ID, Name: "alice", Following: true}}
	if diff := cmp.Diff(want, followed, ignoreArtistTS); diff != "" {
		t.Errorf("ListFollowedArtists mismatch (-want +got):\n%s", diff)
	}

	all, err := s.ListArtists(ctx)
	if err != nil {
		t.Fatalf("list artists: %v", err)
	}
	var names []string
	for _, a := range all {
		names = append(names, a.Name)
	}
	if diff := cmp.Diff([]string{"alice", "bob", "carol"}, names); diff != "" {
		t.Errorf("ListArtists names mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateItem(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	alice := followArtist(t, s, "alice")

	item, err := s.CreateItem(ctx, sampleArgs("https://shop.example.com/detail/1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if item.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	want := model.Item{
		ID:           item.ID,
		URL:          "https://shop.example.com/detail/1",
		Title:        "Winter Sketchbook",
		Circle:       "Snow Circle",
		ImageURL:     "https://img.example.com/1.jpg",
		Category:     "Doujinshi",
		Tags:         []string{"original", "illustration"},
		Flags:        []string{"R18"},
		Price:        "¥1,100",
		Availability: model.Available,
	}
	if diff := cmp.Diff(want, *item, ignoreItemTS, cmpopts.IgnoreFields(model.Item{}, "Artists")); diff != "" {
		t.Errorf("CreateItem mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, item.ArtistNames()); diff != "" {
		t.Errorf("artist names mismatch (-want +got):\n%s", diff)
	}

	byArtist, err := s.ListItemsByArtist(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list by artist: %v", err)
	}
	if diff := cmp.Diff([]model.Item{*item}, byArtist, ignoreItemTS, ignoreArtistTS); diff != "" {
		t.Errorf("ListItemsByArtist mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateItemDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	first, err := s.CreateItem(ctx, sampleArgs("https://shop.example.com/detail/1"))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := sampleArgs("https://shop.example.com/detail/1")
	second.Title = "Changed Title"
	second.Availability = model.NotAvailable
	if _, err := s.CreateItem(ctx, second); !errors.Is(err, model.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]model.Item{*first}, items, ignoreItemTS, ignoreArtistTS); diff != "" {
		t.Errorf("first row must be unmodified (-want +got):\n%s", diff)
	}
}

// The artist link is written last, after the artist row itself.
func TestCreateItemRollsBackOnLinkFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.db.ExecContext(ctx, `CREATE TRIGGER fail_item_artists BEFORE INSERT ON item_artists
		BEGIN SELECT RAISE(ABORT, 'artist link refused'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err := s.CreateItem(ctx, &model.CreateItemArgs{
		URL:          "https://shop.example.com/1",
		Title:        "Winter Sketchbook",
		Artists:      []string{"alice", "bob"},
		Category:     "Doujinshi",
		Tags:         []string{"original"},
		Flags:        []string{"R18"},
		Availability: model.Available,
	})
	if err == nil {
		t.Fatal("expected error from failing artist link")
	}

	for _, table := range []string{"items", "artists", "categories", "tags", "item_tags", "flags", "item_flags", "item_artists"} {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if diff := cmp.Diff(0, n); diff != "" {
			t.Errorf("%s rows left after rollback (-want +got):\n%s", table, diff)
		}
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if diff := cmp.Diff(0, len(items)); diff != "" {
		t.Errorf("item count mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateItemInvalidAvailability(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	args := sampleArgs("https://shop.example.com/detail/1")
	args.Availability = "Sold"
	if _, err := s.CreateItem(ctx, args); err == nil {
		t.Fatal("expected error for invalid availability")
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
	artists, err := s.ListArtists(ctx)
	if err != nil {
		t.Fatalf("list artists: %v", err)
	}
	if len(artists) != 0 {
		t.Errorf("expected no artists, got %d", len(artists))
	}
}

func TestUpdateAvailability(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	created, err := s.CreateItem(ctx, sampleArgs("https://shop.example.com/detail/1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name    string
		url     string
		avail   model.Availability
		wantErr error
	}{
		{name: "mark not available", url: created.URL, avail: model.NotAvailable},
		{name: "restock", url: created.URL, avail: model.Available},
		{name: "deleted", url: created.URL, avail: model.Deleted},
		{name: "unknown url", url: "https://shop.example.com/missing", avail: model.Available, wantErr: model.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.UpdateAvailability(ctx, tt.url, tt.avail)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			want := *created
			want.Availability = tt.avail
			if diff := cmp.Diff(want, *got, ignoreItemTS, ignoreArtistTS); diff != "" {
				t.Errorf("UpdateAvailability mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListItemsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for _, url := range []string{"https://shop.example.com/1", "https://shop.example.com/2", "https://shop.example.com/3"} {
		if _, err := s.CreateItem(ctx, sampleArgs(url)); err != nil {
			t.Fatalf("create %s: %v", url, err)
		}
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var urls []string
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	want := []string{"https://shop.example.com/3", "https://shop.example.com/2", "https://shop.example.com/1"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("ListItems order mismatch (-want +got):\n%s", diff)
	}
}

func TestSkipEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.AddSkipEntry(ctx, "https://shop.example.com/a", []string{"alice", "bob"}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.AddSkipEntry(ctx, "https://shop.example.com/b", []string{"carol"}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	// Adding the same URL again must not create a second entry.
	if err := s.AddSkipEntry(ctx, "https://shop.example.com/a", []string{"alice"}); err != nil {
		t.Fatalf("re-add a: %v", err)
	}

	urls, err := s.ListSkipURLs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"https://shop.example.com/a", "https://shop.example.com/b"}, urls); diff != "" {
		t.Errorf("ListSkipURLs mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteSkipEntriesFor(ctx, "bob"); err != nil {
		t.Fatalf("delete for bob: %v", err)
	}
	urls, err = s.ListSkipURLs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"https://shop.example.com/b"}, urls); diff != "" {
		t.Errorf("after delete mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowClearsSkipEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.AddSkipEntry(ctx, "https://shop.example.com/a", []string{"dave"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddSkipEntry(ctx, "https://shop.example.com/b", []string{"erin"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	followArtist(t, s, "dave")

	urls, err := s.ListSkipURLs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"https://shop.example.com/b"}, urls); diff != "" {
		t.Errorf("ListSkipURLs mismatch (-want +got):\n%s", diff)
	}
}

func TestTitleSkipSequences(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for _, seq := range []string{"NSFW", "抱き枕"} {
		if _, err := s.AddTitleSkipSequence(ctx, seq); err != nil {
			t.Fatalf("add %q: %v", seq, err)
		}
	}
	if _, err := s.AddTitleSkipSequence(ctx, "NSFW"); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.ListTitleSkipSequences(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"NSFW", "抱き枕"}, got); diff != "" {
		t.Errorf("ListTitleSkipSequences mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteTitleSkipSequence(ctx, "NSFW"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTitleSkipSequence(ctx, "NSFW"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err = s.ListTitleSkipSequences(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"抱き枕"}, got); diff != "" {
		t.Errorf("after delete mismatch (-want +got):\n%s", diff)
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)
