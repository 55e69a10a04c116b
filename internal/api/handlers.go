package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"storewatch/internal/model"
)

// maxBodyBytes bounds request bodies; the API only accepts short strings.
const maxBodyBytes = 4 << 10

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		artists []model.Artist
		err     error
	)
	following := r.URL.Query().Get("following")
	switch following {
	case "", "false":
		artists, err = s.store.ListArtists(ctx)
	case "true":
		artists, err = s.store.ListFollowedArtists(ctx)
	default:
		badRequest(w, "following must be true or false", s.logger)
		return
	}
	if err != nil {
		handleError(w, err, s.logger)
		return
	}

	resp := make([]ArtistResponse, 0, len(artists))
	for i := range artists {
		resp = append(resp, artistResponse(&artists[i]))
	}
	success(w, resp, s.logger)
}

func (s *Server) handleFollowArtist(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error(), s.logger)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(w, "name is required", s.logger)
		return
	}

	artist, err := s.store.FollowArtist(r.Context(), name)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	s.logger.Info("artist followed", "artist", artist.Name)
	created(w, artistResponse(artist), s.logger)
}

func (s *Server) handleUnfollowArtist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(w, "invalid artist id", s.logger)
		return
	}

	artist, err := s.store.UnfollowArtist(r.Context(), id)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	s.logger.Info("artist unfollowed", "artist", artist.Name)
	success(w, artistResponse(artist), s.logger)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		items []model.Item
		err   error
	)
	if raw := r.URL.Query().Get("artist_id"); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || id < 1 {
			badRequest(w, "invalid artist_id", s.logger)
			return
		}
		if _, err := s.store.GetArtist(ctx, id); err != nil {
			handleError(w, err, s.logger)
			return
		}
		items, err = s.store.ListItemsByArtist(ctx, id)
	} else {
		items, err = s.store.ListItems(ctx)
	}
	if err != nil {
		handleError(w, err, s.logger)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, itemResponse(&items[i]))
	}
	success(w, resp, s.logger)
}

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	seqs, err := s.store.ListTitleSkipSequences(r.Context())
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, nonNil(seqs), s.logger)
}

func (s *Server) handleAddSequence(w http.ResponseWriter, r *http.Request) {
	var req sequenceRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error(), s.logger)
		return
	}
	seq := strings.TrimSpace(req.Sequence)
	if seq == "" {
		badRequest(w, "sequence is required", s.logger)
		return
	}

	ts, err := s.store.AddTitleSkipSequence(r.Context(), seq)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	created(w, map[string]any{"id": ts.ID, "sequence": ts.Sequence, "created_at": ts.CreatedAt}, s.logger)
}

func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	seq, err := url.PathUnescape(chi.URLParam(r, "sequence"))
	if err != nil || strings.TrimSpace(seq) == "" {
		badRequest(w, "invalid sequence", s.logger)
		return
	}

	if err := s.store.DeleteTitleSkipSequence(r.Context(), seq); err != nil {
		handleError(w, err, s.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTriggerRun runs a reconciliation synchronously. A run that fails for
// some artists still answers 200 with the per-artist errors in the body.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "runs are not available", s.logger)
		return
	}

	summary, err := s.runner.Run(r.Context())
	if summary == nil {
		handleError(w, err, s.logger)
		return
	}
	if err != nil {
		s.logger.Warn("run finished with errors", "run_id", summary.RunID, "error", err)
	}
	success(w, runResponse(summary), s.logger)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}
