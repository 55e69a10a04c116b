// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"time"
)

// Artist is a storefront author that can be followed.
// An artist that is not followed has a nil FollowedAt.
type Artist struct {
	ID         int64
	Name       string
	Following  bool
	FollowedAt *time.Time
	CreatedAt  time.Time
}

// Availability is the lifecycle state of a storefront item.
type Availability string

// Supported availability states.
const (
	Available    Availability = "Available"
	Preorder     Availability = "Preorder"
	NotAvailable Availability = "NotAvailable"
	Deleted      Availability = "Deleted"
)

// IsAvailable reports whether the item can currently be bought or ordered.
func (a Availability) IsAvailable() bool {
	return a == Available || a == Preorder
}

// ParseAvailability converts a stored availability name back into an Availability.
func ParseAvailability(s string) (Availability, error) {
	switch a := Availability(s); a {
	case Available, Preorder, NotAvailable, Deleted:
		return a, nil
	}
	return "", fmt.Errorf("unknown availability %q", s)
}

// Item is a storefront product tracked for one or more artists.
// URL is the natural key; only Availability changes after creation.
type Item struct {
	ID           int64
	URL          string
	Title        string
	Circle       string
	Artists      []Artist
	ImageURL     string
	Category     string
	Tags         []string
	Flags        []string
	Price        string
	Availability Availability
	CreatedAt    time.Time
}

// ArtistNames returns the names of the item's artists in stored order.
func (i *Item) ArtistNames() []string {
	names := make([]string, 0, len(i.Artists))
	for _, a := range i.Artists {
		names = append(names, a.Name)
	}
	return names
}

// ItemData holds the fields a listing source parsed for a single item URL.
// Artists are raw names as printed by the storefront.
type ItemData struct {
	Title        string
	Circle       string
	Artists      []string
	ImageURL     string
	Category     string
	Tags         []string
	Flags        []string
	Price        string
	Availability Availability
}

// CreateItemArgs describes a new item to persist.
type CreateItemArgs struct {
	URL          string
	Title        string
	Circle       string
	Artists      []string
	ImageURL     string
	Category     string
	Tags         []string
	Flags        []string
	Price        string
	Availability Availability
}

// NewCreateItemArgs builds CreateItemArgs from scraped data for the given URL.
func NewCreateItemArgs(url string, d *ItemData) *CreateItemArgs {
	return &CreateItemArgs{
		URL:          url,
		Title:        d.Title,
		Circle:       d.Circle,
		Artists:      d.Artists,
		ImageURL:     d.ImageURL,
		Category:     d.Category,
		Tags:         d.Tags,
		Flags:        d.Flags,
		Price:        d.Price,
		Availability: d.Availability,
	}
}

// SkipEntry remembers a URL rejected because the storefront attributed it to
// an artist that does not actually appear on the item.
type SkipEntry struct {
	ID        int64
	URL       string
	Artists   []string
	CreatedAt time.Time
}

// TitleSkipSequence suppresses creation of items whose title contains Sequence.
type TitleSkipSequence struct {
	ID        int64
	Sequence  string
	CreatedAt time.Time
}
