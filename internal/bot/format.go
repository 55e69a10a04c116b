package bot

import (
	"fmt"
	"strings"
	"time"

	"storewatch/internal/model"
	"storewatch/internal/reconcile"
)

const (
	dateTimeLayout = "2006-01-02 15:04 UTC"
	maxListedItems = 20
)

func newItemsHeader(artist string) string {
	return fmt.Sprintf("%s: new items available", artist)
}

func restockedHeader(artist string) string {
	return fmt.Sprintf("%s: items available again", artist)
}

// FormatItem formats a single item as a few plain-text lines.
func FormatItem(item model.Item) string {
	meta := make([]string, 0, 3)
	if item.Circle != "" {
		meta = append(meta, item.Circle)
	}
	if item.Price != "" {
		meta = append(meta, item.Price)
	}
	meta = append(meta, availabilityLabel(item.Availability))

	var b strings.Builder
	b.WriteString(item.Title)
	b.WriteString("\n")
	b.WriteString(strings.Join(meta, " | "))
	if item.URL != "" {
		b.WriteString("\n")
		b.WriteString(item.URL)
	}
	return b.String()
}

// FormatItemBatch formats one notification message. part and parts number
// the chunks when a batch is split across several messages.
func FormatItemBatch(header string, items []model.Item, part, parts int) string {
	var b strings.Builder
	b.WriteString(header)
	if parts > 1 {
		fmt.Fprintf(&b, " (%d/%d)", part, parts)
	}
	for _, item := range items {
		b.WriteString("\n\n")
		b.WriteString(FormatItem(item))
	}
	return b.String()
}

// FormatArtistList formats the followed artists for display.
func FormatArtistList(artists []model.Artist) string {
	if len(artists) == 0 {
		return "You are not following any artists yet. Use /follow <name> to add one."
	}
	var b strings.Builder
	b.WriteString("Followed artists:\n")
	for _, a := range artists {
		fmt.Fprintf(&b, "\n#%d %s", a.ID, a.Name)
		if a.FollowedAt != nil {
			fmt.Fprintf(&b, "  (since %s)", a.FollowedAt.Format("2006-01-02"))
		}
	}
	return b.String()
}

// FormatItemList formats up to maxListedItems items under a title.
func FormatItemList(title string, items []model.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("%s:\n\nNo items tracked yet.", title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):", title, len(items))
	for i, item := range items {
		if i == maxListedItems {
			fmt.Fprintf(&b, "\n\n...and %d more.", len(items)-maxListedItems)
			break
		}
		b.WriteString("\n\n")
		b.WriteString(FormatItem(item))
	}
	return b.String()
}

// FormatSequenceList formats the title skip sequences.
func FormatSequenceList(seqs []string) string {
	if len(seqs) == 0 {
		return "No title skip sequences. Use /skip <sequence> to add one."
	}
	var b strings.Builder
	b.WriteString("Title skip sequences:\n")
	for _, s := range seqs {
		fmt.Fprintf(&b, "\n%q", s)
	}
	return b.String()
}

// FormatSummary formats the outcome of a manual check.
func FormatSummary(s *reconcile.Summary) string {
	if len(s.Artists) == 0 {
		return "Check finished: no followed artists."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Check finished in %s.\n", s.Finished.Sub(s.Started).Round(100*time.Millisecond))
	for _, r := range s.Artists {
		if r.Err != nil {
			fmt.Fprintf(&b, "\n%s: failed: %v", r.Artist, r.Err)
			continue
		}
		fmt.Fprintf(&b, "\n%s: %d new, %d restocked, %d went away", r.Artist, r.Created, r.Restocked, r.WentAway)
		if r.Truncated {
			b.WriteString(" (listing hit the page cap)")
		}
	}
	return b.String()
}

func availabilityLabel(a model.Availability) string {
	switch a {
	case model.Available:
		return "in stock"
	case model.Preorder:
		return "preorder"
	case model.NotAvailable:
		return "sold out"
	case model.Deleted:
		return "removed"
	default:
		return string(a)
	}
}
