package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by storage, reconciliation and the presentation layers.
var (
	ErrDuplicate   = errors.New("already exists")
	ErrNotFound    = errors.New("not found")
	ErrNotFollowed = errors.New("artist not followed")

	// ErrListingTruncated marks a candidate listing that stopped before the
	// source ran out of results. It is returned together with the URLs seen.
	ErrListingTruncated = errors.New("listing truncated")
)

// AlreadyFollowedError is returned when following an artist that is already followed.
type AlreadyFollowedError struct {
	Name  string
	Since time.Time
}

func (e *AlreadyFollowedError) Error() string {
	return fmt.Sprintf("artist %q already followed since %s", e.Name, e.Since.Format(time.RFC3339))
}
