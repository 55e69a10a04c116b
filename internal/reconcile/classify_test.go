package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"storewatch/internal/model"
)

func knownItem(url string, a model.Availability) model.Item {
	return model.Item{URL: url, Availability: a}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		known      []model.Item
		candidates []string
		skip       []string
		want       plan
	}{
		{
			name:       "empty",
			known:      nil,
			candidates: nil,
			want:       plan{},
		},
		{
			name: "restock new and went away",
			known: []model.Item{
				knownItem("A", model.Available),
				knownItem("B", model.NotAvailable),
			},
			candidates: []string{"B", "C"},
			want: plan{
				restock:  []string{"B"},
				create:   []string{"C"},
				wentAway: []string{"A"},
			},
		},
		{
			name: "still available is a no-op",
			known: []model.Item{
				knownItem("A", model.Available),
				knownItem("P", model.Preorder),
			},
			candidates: []string{"A", "P"},
			want:       plan{unchanged: []string{"A", "P"}},
		},
		{
			name:       "deleted items restock",
			known:      []model.Item{knownItem("D", model.Deleted)},
			candidates: []string{"D"},
			want:       plan{restock: []string{"D"}},
		},
		{
			name:       "unavailable and absent needs nothing",
			known:      []model.Item{knownItem("B", model.NotAvailable)},
			candidates: []string{},
			want:       plan{},
		},
		{
			name:       "skip urls are dropped",
			known:      nil,
			candidates: []string{"S", "C"},
			skip:       []string{"S"},
			want:       plan{create: []string{"C"}},
		},
		{
			name:       "duplicate candidates counted once",
			known:      nil,
			candidates: []string{"C", "C", "D"},
			want:       plan{create: []string{"C", "D"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.known, tt.candidates, tt.skip)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(plan{}), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("classify mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyIsDisjoint(t *testing.T) {
	known := []model.Item{
		knownItem("a1", model.Available),
		knownItem("a2", model.Preorder),
		knownItem("a3", model.Available),
		knownItem("u1", model.NotAvailable),
		knownItem("u2", model.Deleted),
		knownItem("u3", model.NotAvailable),
	}
	candidates := []string{"a1", "u1", "n1", "a2", "u2", "n2", "s1", "n1"}
	skip := []string{"s1", "s2"}

	p := classify(known, candidates, skip)

	buckets := map[string]int{}
	for _, list := range [][]string{p.unchanged, p.restock, p.create, p.wentAway} {
		for _, u := range list {
			buckets[u]++
		}
	}

	universe := []string{"a1", "a2", "a3", "u1", "u2", "n1", "n2"}
	for _, u := range universe {
		if buckets[u] != 1 {
			t.Errorf("url %s classified %d times, want exactly once", u, buckets[u])
		}
	}
	for _, u := range []string{"s1", "s2", "u3"} {
		if buckets[u] != 0 {
			t.Errorf("url %s should not be classified, got %d", u, buckets[u])
		}
	}
}
