package bot

import (
	"context"
	"time"

	"storewatch/internal/model"
)

// NotifyNewItems announces items listed for the first time.
func (b *Bot) NotifyNewItems(ctx context.Context, artist string, items []model.Item) {
	b.notify(ctx, newItemsHeader(artist), items)
}

// NotifyRestockedItems announces items that became available again.
func (b *Bot) NotifyRestockedItems(ctx context.Context, artist string, items []model.Item) {
	b.notify(ctx, restockedHeader(artist), items)
}

// notify sends items to the notification chat in chunks, pausing between
// chunks. Failures are logged by SendMessage and otherwise ignored.
func (b *Bot) notify(ctx context.Context, header string, items []model.Item) {
	if len(items) == 0 {
		return
	}
	size := b.chunkSize
	if size < 1 {
		size = len(items)
	}

	chunks := chunk(items, size)
	for i, c := range chunks {
		if i > 0 && !sleepCtx(ctx, b.chunkDelay) {
			b.log.Warn("notification interrupted", "header", header, "sent_chunks", i, "chunks", len(chunks))
			return
		}
		b.SendMessage(b.cfg.NotifyChatID, FormatItemBatch(header, c, i+1, len(chunks)))
	}
	b.log.Info("notification sent", "header", header, "items", len(items), "chunks", len(chunks))
}

func chunk(items []model.Item, size int) [][]model.Item {
	var out [][]model.Item
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
