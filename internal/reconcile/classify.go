package reconcile

import "storewatch/internal/model"

// plan is the disjoint classification of every URL seen for one artist.
type plan struct {
	unchanged []string
	restock   []string
	create    []string
	wentAway  []string
}

// classify splits the known items and the candidate URLs into the actions a
// run takes. Candidates in skipURLs are dropped first. A URL lands in at most
// one bucket; known unavailable items absent from the candidates need no action.
func classify(known []model.Item, candidates, skipURLs []string) plan {
	skip := make(map[string]struct{}, len(skipURLs))
	for _, u := range skipURLs {
		skip[u] = struct{}{}
	}

	available := make(map[string]struct{})
	unavailable := make(map[string]struct{})
	for _, item := range known {
		if item.Availability.IsAvailable() {
			available[item.URL] = struct{}{}
		} else {
			unavailable[item.URL] = struct{}{}
		}
	}

	var p plan
	seen := make(map[string]struct{}, len(candidates))
	for _, u := range candidates {
		if _, ok := skip[u]; ok {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		switch {
		case has(available, u):
			p.unchanged = append(p.unchanged, u)
		case has(unavailable, u):
			p.restock = append(p.restock, u)
		default:
			p.create = append(p.create, u)
		}
	}

	for _, item := range known {
		if !item.Availability.IsAvailable() {
			continue
		}
		if _, ok := seen[item.URL]; !ok {
			p.wentAway = append(p.wentAway, item.URL)
		}
	}
	return p
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
