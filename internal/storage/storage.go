// Package storage defines the snapshot repository interface and its SQLite implementation.
package storage

import (
	"context"

	"storewatch/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	FollowArtist(ctx context.Context, name string) (*model.Artist, error)
	UnfollowArtist(ctx context.Context, id int64) (*model.Artist, error)
	GetArtist(ctx context.Context, id int64) (*model.Artist, error)
	ListArtists(ctx context.Context) ([]model.Artist, error)
	ListFollowedArtists(ctx context.Context) ([]model.Artist, error)

	CreateItem(ctx context.Context, args *model.CreateItemArgs) (*model.Item, error)
	UpdateAvailability(ctx context.Context, url string, availability model.Availability) (*model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	ListItemsByArtist(ctx context.Context, artistID int64) ([]model.Item, error)

	AddSkipEntry(ctx context.Context, url string, artists []string) error
	ListSkipURLs(ctx context.Context) ([]string, error)
	DeleteSkipEntriesFor(ctx context.Context, artist string) error

	AddTitleSkipSequence(ctx context.Context, sequence string) (*model.TitleSkipSequence, error)
	DeleteTitleSkipSequence(ctx context.Context, sequence string) error
	ListTitleSkipSequences(ctx context.Context) ([]string, error)

	Close() error
}
