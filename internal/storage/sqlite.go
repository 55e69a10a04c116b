package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite" // registers the "sqlite" driver
	sqlite3 "modernc.org/sqlite/lib"

	"storewatch/internal/model"
	"storewatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
//
// The pool is limited to a single connection: SQLite serializes writers anyway,
// and ":memory:" databases exist per connection.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// FollowArtist marks the named artist as followed, creating it when unknown.
// Skip entries attributed to the artist are cleared in the same transaction so
// previously rejected items are reconsidered on the next run.
func (s *SQLite) FollowArtist(ctx context.Context, name string) (*model.Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("artist name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	existing, err := getArtistByName(ctx, tx, name)
	switch {
	case err == nil && existing.Following:
		afe := &model.AlreadyFollowedError{Name: existing.Name}
		if existing.FollowedAt != nil {
			afe.Since = *existing.FollowedAt
		}
		return nil, afe
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE artists SET following = 1, followed_at = ? WHERE id = ?`, now, existing.ID,
		); err != nil {
			return nil, fmt.Errorf("update artist: %w", err)
		}
	case errors.Is(err, model.ErrNotFound):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artists (name, following, followed_at, created_at) VALUES (?, 1, ?, ?)`,
			name, now, now,
		); err != nil {
			return nil, fmt.Errorf("insert artist: %w", err)
		}
	default:
		return nil, err
	}

	if err := deleteSkipEntriesFor(ctx, tx, name); err != nil {
		return nil, err
	}

	artist, err := getArtistByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return artist, nil
}

// UnfollowArtist clears the following flag of the artist with the given ID.
func (s *SQLite) UnfollowArtist(ctx context.Context, id int64) (*model.Artist, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	artist, err := getArtist(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !artist.Following {
		return nil, fmt.Errorf("unfollow %q: %w", artist.Name, model.ErrNotFollowed)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE artists SET following = 0, followed_at = NULL WHERE id = ?`, id,
	); err != nil {
		return nil, fmt.Errorf("update artist: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	artist.Following = false
	artist.FollowedAt = nil
	return artist, nil
}

// GetArtist returns a single artist by its ID.
func (s *SQLite) GetArtist(ctx context.Context, id int64) (*model.Artist, error) {
	return getArtist(ctx, s.db, id)
}

// ListArtists returns every known artist, followed or not, ordered by name.
func (s *SQLite) ListArtists(ctx context.Context) ([]model.Artist, error) {
	return listArtists(ctx, s.db,
		`SELECT id, name, following, followed_at, created_at FROM artists ORDER BY name`)
}

// ListFollowedArtists returns the artists currently followed, oldest follow first.
func (s *SQLite) ListFollowedArtists(ctx context.Context) ([]model.Artist, error) {
	return listArtists(ctx, s.db,
		`SELECT id, name, following, followed_at, created_at
		 FROM artists WHERE following = 1 ORDER BY followed_at, id`)
}

// CreateItem inserts an item together with its category, tag, flag and artist
// links in one transaction. It fails with model.ErrDuplicate when the URL exists.
func (s *SQLite) CreateItem(ctx context.Context, args *model.CreateItemArgs) (*model.Item, error) {
	if args.URL == "" {
		return nil, errors.New("item url is required")
	}
	if _, err := model.ParseAvailability(string(args.Availability)); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM items WHERE url = ?`, args.URL).Scan(&existingID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("create item %s: %w", args.URL, model.ErrDuplicate)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check item: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	categoryID, err := upsertName(ctx, tx, "categories", args.Category, now)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (url, title, circle, image_url, category_id, price, availability, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		args.URL, args.Title, nullString(args.Circle), args.ImageURL, categoryID,
		nullString(args.Price), string(args.Availability), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create item %s: %w", args.URL, model.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, tag := range args.Tags {
		tagID, err := upsertName(ctx, tx, "tags", tag, now)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`, itemID, tagID,
		); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", tag, err)
		}
	}

	for _, flag := range args.Flags {
		flagID, err := upsertName(ctx, tx, "flags", flag, now)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_flags (item_id, flag_id) VALUES (?, ?)`, itemID, flagID,
		); err != nil {
			return nil, fmt.Errorf("link flag %q: %w", flag, err)
		}
	}

	for _, name := range args.Artists {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artists (name, following, created_at) VALUES (?, 0, ?)
			 ON CONFLICT (name) DO NOTHING`, name, now,
		); err != nil {
			return nil, fmt.Errorf("insert artist %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_artists (item_id, artist_id)
			 SELECT ?, id FROM artists WHERE name = ?`, itemID, name,
		); err != nil {
			return nil, fmt.Errorf("link artist %q: %w", name, err)
		}
	}

	item, err := getItem(ctx, tx, `i.id = ?`, itemID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

// UpdateAvailability sets the availability of the item with the given URL and
// returns the reloaded item. It fails with model.ErrNotFound for unknown URLs.
func (s *SQLite) UpdateAvailability(ctx context.Context, url string, availability model.Availability) (*model.Item, error) {
	if _, err := model.ParseAvailability(string(availability)); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET availability = ? WHERE url = ?`, string(availability), url,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update item %s: %w", url, model.ErrNotFound)
	}

	item, err := getItem(ctx, tx, `i.url = ?`, url)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

// ListItems returns all items, newest first.
func (s *SQLite) ListItems(ctx context.Context) ([]model.Item, error) {
	return listItems(ctx, s.db, itemSelect+` ORDER BY i.created_at DESC, i.id DESC`)
}

// ListItemsByArtist returns the items attributed to the given artist, newest first.
func (s *SQLite) ListItemsByArtist(ctx context.Context, artistID int64) ([]model.Item, error) {
	return listItems(ctx, s.db,
		itemSelect+` JOIN item_artists ia ON ia.item_id = i.id
		 WHERE ia.artist_id = ? ORDER BY i.created_at DESC, i.id DESC`, artistID)
}

// AddSkipEntry remembers url as rejected together with the artist names the
// storefront attributed it to. Adding an existing URL only adds missing names.
func (s *SQLite) AddSkipEntry(ctx context.Context, url string, artists []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO skip_entries (url, created_at) VALUES (?, ?) ON CONFLICT (url) DO NOTHING`, url, now,
	); err != nil {
		return fmt.Errorf("insert skip entry: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM skip_entries WHERE url = ?`, url).Scan(&id); err != nil {
		return fmt.Errorf("select skip entry: %w", err)
	}

	for _, name := range artists {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO skip_entry_artists (skip_entry_id, artist_name) VALUES (?, ?)`, id, name,
		); err != nil {
			return fmt.Errorf("insert skip entry artist: %w", err)
		}
	}
	return tx.Commit()
}

// ListSkipURLs returns the URLs of all skip entries.
func (s *SQLite) ListSkipURLs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT url FROM skip_entries ORDER BY id`)
}

// DeleteSkipEntriesFor removes every skip entry attributed to the named artist.
func (s *SQLite) DeleteSkipEntriesFor(ctx context.Context, artist string) error {
	return deleteSkipEntriesFor(ctx, s.db, artist)
}

// AddTitleSkipSequence stores a new title skip sequence.
func (s *SQLite) AddTitleSkipSequence(ctx context.Context, sequence string) (*model.TitleSkipSequence, error) {
	if sequence == "" {
		return nil, errors.New("title skip sequence is required")
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO title_skip_sequences (sequence, created_at) VALUES (?, ?)`, sequence, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("title skip sequence %q: %w", sequence, model.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert title skip sequence: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	created, _ := time.Parse(timeLayout, now)
	return &model.TitleSkipSequence{ID: id, Sequence: sequence, CreatedAt: created}, nil
}

// DeleteTitleSkipSequence removes a title skip sequence.
func (s *SQLite) DeleteTitleSkipSequence(ctx context.Context, sequence string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM title_skip_sequences WHERE sequence = ?`, sequence)
	if err != nil {
		return fmt.Errorf("delete title skip sequence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("title skip sequence %q: %w", sequence, model.ErrNotFound)
	}
	return nil
}

// ListTitleSkipSequences returns all title skip sequences in insertion order.
func (s *SQLite) ListTitleSkipSequences(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT sequence FROM title_skip_sequences ORDER BY id`)
}

const itemSelect = `SELECT i.id, i.url, i.title, i.circle, i.image_url, c.name, i.price, i.availability, i.created_at
	FROM items i JOIN categories c ON c.id = i.category_id`

func getArtist(ctx context.Context, q queryer, id int64) (*model.Artist, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, following, followed_at, created_at FROM artists WHERE id = ?`, id,
	)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist #%d: %w", id, model.ErrNotFound)
	}
	return a, err
}

func getArtistByName(ctx context.Context, q queryer, name string) (*model.Artist, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, following, followed_at, created_at FROM artists WHERE name = ?`, name,
	)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist %q: %w", name, model.ErrNotFound)
	}
	return a, err
}

func listArtists(ctx context.Context, q queryer, query string, args ...any) ([]model.Artist, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artists []model.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, *a)
	}
	return artists, rows.Err()
}

func getItem(ctx context.Context, q queryer, where string, arg any) (*model.Item, error) {
	row := q.QueryRowContext(ctx, itemSelect+` WHERE `+where, arg)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := loadItemRelations(ctx, q, item); err != nil {
		return nil, err
	}
	return item, nil
}

func listItems(ctx context.Context, q queryer, query string, args ...any) ([]model.Item, error) {
	items, err := queryItemRows(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := loadItemRelations(ctx, q, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// queryItemRows must drain and close its rows before relations are loaded:
// the pool holds a single connection.
func queryItemRows(ctx context.Context, q queryer, query string, args ...any) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func loadItemRelations(ctx context.Context, q queryer, item *model.Item) error {
	artists, err := listArtists(ctx, q,
		`SELECT a.id, a.name, a.following, a.followed_at, a.created_at
		 FROM artists a JOIN item_artists ia ON ia.artist_id = a.id
		 WHERE ia.item_id = ? ORDER BY a.id`, item.ID)
	if err != nil {
		return fmt.Errorf("load item artists: %w", err)
	}
	tags, err := queryStrings(ctx, q,
		`SELECT t.name FROM tags t JOIN item_tags it ON it.tag_id = t.id
		 WHERE it.item_id = ? ORDER BY t.id`, item.ID)
	if err != nil {
		return fmt.Errorf("load item tags: %w", err)
	}
	flags, err := queryStrings(ctx, q,
		`SELECT f.name FROM flags f JOIN item_flags itf ON itf.flag_id = f.id
		 WHERE itf.item_id = ? ORDER BY f.id`, item.ID)
	if err != nil {
		return fmt.Errorf("load item flags: %w", err)
	}
	item.Artists = artists
	item.Tags = tags
	item.Flags = flags
	return nil
}

func deleteSkipEntriesFor(ctx context.Context, q queryer, artist string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM skip_entries WHERE id IN (
			SELECT skip_entry_id FROM skip_entry_artists WHERE artist_name = ?)`, artist,
	)
	if err != nil {
		return fmt.Errorf("delete skip entries for %q: %w", artist, err)
	}
	return nil
}

// upsertName returns the id of the row with the given name in a name lookup
// table (categories, tags, flags), inserting it when missing.
func upsertName(ctx context.Context, q queryer, table, name, now string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO `+table+` (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`, name, now,
	); err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s %q: %w", table, name, err)
	}
	return id, nil
}

func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArtist(row scannable) (*model.Artist, error) {
	var a model.Artist
	var following int
	var followedAt sql.NullString
	var created string
	if err := row.Scan(&a.ID, &a.Name, &following, &followedAt, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan artist: %w", err)
	}
	a.Following = following == 1
	if followedAt.Valid {
		t, _ := time.Parse(timeLayout, followedAt.String)
		a.FollowedAt = &t
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}

func scanItem(row scannable) (*model.Item, error) {
	var item model.Item
	var circle, price sql.NullString
	var availability, created string
	err := row.Scan(&item.ID, &item.URL, &item.Title, &circle, &item.ImageURL, &item.Category,
		&price, &availability, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.Circle = circle.String
	item.Price = price.String
	item.Availability, err = model.ParseAvailability(availability)
	if err != nil {
		return nil, fmt.Errorf("scan item %s: %w", item.URL, err)
	}
	item.CreatedAt, _ = time.Parse(timeLayout, created)
	return &item, nil
}
