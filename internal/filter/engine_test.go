package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTitleSkipped(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		sequences []string
		want      bool
	}{
		{
			name:      "no sequences",
			title:     "Winter Sketchbook",
			sequences: nil,
			want:      false,
		},
		{
			name:      "plain match",
			title:     "Winter Sketchbook NSFW edition",
			sequences: []string{"NSFW"},
			want:      true,
		},
		{
			name:      "case sensitive",
			title:     "winter sketchbook nsfw edition",
			sequences: []string{"NSFW"},
			want:      false,
		},
		{
			name:      "lower case sequence does not match upper case title",
			title:     "Cute NSFW-free artbook",
			sequences: []string{"nsfw"},
			want:      false,
		},
		{
			name:      "no match",
			title:     "Winter Sketchbook",
			sequences: []string{"NSFW", "tapestry"},
			want:      false,
		},
		{
			name:      "any of several",
			title:     "B2 Tapestry",
			sequences: []string{"NSFW", "Tapestry"},
			want:      true,
		},
		{
			name:      "japanese sequence",
			title:     "描き下ろし抱き枕カバー",
			sequences: []string{"抱き枕"},
			want:      true,
		},
		{
			name:      "empty sequence ignored",
			title:     "Winter Sketchbook",
			sequences: []string{""},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSkipped(tt.title, tt.sequences)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TitleSkipped mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHasArtist(t *testing.T) {
	tests := []struct {
		name   string
		names  []string
		artist string
		want   bool
	}{
		{name: "present", names: []string{"alice", "bob"}, artist: "bob", want: true},
		{name: "absent", names: []string{"alice", "bob"}, artist: "carol", want: false},
		{name: "empty list", names: nil, artist: "alice", want: false},
		{name: "whitespace trimmed", names: []string{" alice "}, artist: "alice", want: true},
		{name: "case sensitive", names: []string{"Alice"}, artist: "alice", want: false},
		{name: "substring is not a match", names: []string{"alice and bob"}, artist: "alice", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasArtist(tt.names, tt.artist)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("HasArtist mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
