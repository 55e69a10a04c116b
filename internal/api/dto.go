package api

import (
	"time"

	"storewatch/internal/model"
	"storewatch/internal/reconcile"
)

// ArtistResponse is the JSON form of a model.Artist.
type ArtistResponse struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Following  bool       `json:"following"`
	FollowedAt *time.Time `json:"followed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ItemResponse is the JSON form of a model.Item.
type ItemResponse struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Circle       string    `json:"circle,omitempty"`
	Artists      []string  `json:"artists"`
	ImageURL     string    `json:"image_url"`
	Category     string    `json:"category"`
	Tags         []string  `json:"tags"`
	Flags        []string  `json:"flags"`
	Price        string    `json:"price,omitempty"`
	Availability string    `json:"availability"`
	CreatedAt    time.Time `json:"created_at"`
}

// ArtistResultResponse reports the outcome of one artist within a run.
type ArtistResultResponse struct {
	Artist       string `json:"artist"`
	Unchanged    int    `json:"unchanged"`
	Restocked    int    `json:"restocked"`
	Created      int    `json:"created"`
	SkipAdded    int    `json:"skip_added"`
	TitleSkipped int    `json:"title_skipped"`
	Duplicates   int    `json:"duplicates"`
	Unavailable  int    `json:"unavailable"`
	WentAway     int    `json:"went_away"`
	Truncated    bool   `json:"truncated,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RunResponse is the JSON form of a reconcile.Summary.
type RunResponse struct {
	RunID    string                 `json:"run_id"`
	Started  time.Time              `json:"started"`
	Finished time.Time              `json:"finished"`
	Artists  []ArtistResultResponse `json:"artists"`
}

type followRequest struct {
	Name string `json:"name"`
}

type sequenceRequest struct {
	Sequence string `json:"sequence"`
}

func artistResponse(a *model.Artist) ArtistResponse {
	return ArtistResponse{
		ID:         a.ID,
		Name:       a.Name,
		Following:  a.Following,
		FollowedAt: a.FollowedAt,
		CreatedAt:  a.CreatedAt,
	}
}

func itemResponse(item *model.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		URL:          item.URL,
		Title:        item.Title,
		Circle:       item.Circle,
		Artists:      nonNil(item.ArtistNames()),
		ImageURL:     item.ImageURL,
		Category:     item.Category,
		Tags:         nonNil(item.Tags),
		Flags:        nonNil(item.Flags),
		Price:        item.Price,
		Availability: string(item.Availability),
		CreatedAt:    item.CreatedAt,
	}
}

func runResponse(s *reconcile.Summary) RunResponse {
	resp := RunResponse{
		RunID:    s.RunID,
		Started:  s.Started,
		Finished: s.Finished,
		Artists:  make([]ArtistResultResponse, 0, len(s.Artists)),
	}
	for _, a := range s.Artists {
		r := ArtistResultResponse{
			Artist:       a.Artist,
			Unchanged:    a.Unchanged,
			Restocked:    a.Restocked,
			Created:      a.Created,
			SkipAdded:    a.SkipAdded,
			TitleSkipped: a.TitleSkipped,
			Duplicates:   a.Duplicates,
			Unavailable:  a.Unavailable,
			WentAway:     a.WentAway,
			Truncated:    a.Truncated,
		}
		if a.Err != nil {
			r.Error = a.Err.Error()
		}
		resp.Artists = append(resp.Artists, r)
	}
	return resp
}

// nonNil keeps empty lists as [] instead of null in JSON.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
