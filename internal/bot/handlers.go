package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storewatch/internal/model"
	"storewatch/internal/reconcile"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to storewatch!

Follow artists and get notified when their items are listed or back in stock.

Quick start:
1. /follow <name> - follow an artist
2. /check - scrape now instead of waiting for the schedule

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Artists:
/artists - show followed artists
/follow <name> - follow an artist
/unfollow <id> - stop following an artist

Items:
/items - latest tracked items
/items <artist_id> - items of one artist
/check - run a check now

Title skip sequences:
/skips - show title skip sequences
/skip <sequence> - ignore new items whose title contains it
/unskip <sequence> - remove a title skip sequence`)
}

func (b *Bot) handleArtists(ctx context.Context, chatID int64) {
	artists, err := b.store.ListFollowedArtists(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatArtistList(artists))
	msg.DisableWebPagePreview = true
	if len(artists) > 0 {
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, a := range artists {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Items of %s", a.Name), fmt.Sprintf("%s:%d", cmdItems, a.ID)),
				tgbotapi.NewInlineKeyboardButtonData("Unfollow", fmt.Sprintf("%s:%d", cbUnfollowConfirm, a.ID)),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send artist list", "error", err)
	}
}

func (b *Bot) handleFollow(ctx context.Context, chatID int64, args string) {
	name, err := ParseTextArg(args, "artist name")
	if err != nil {
		b.reply(chatID, "Usage: /follow <name>")
		return
	}

	artist, err := b.store.FollowArtist(ctx, name)
	var afe *model.AlreadyFollowedError
	switch {
	case errors.As(err, &afe):
		b.reply(chatID, fmt.Sprintf("%s is already followed since %s.", afe.Name, afe.Since.Format(dateTimeLayout)))
		return
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	b.log.Info("artist followed", "artist", artist.Name, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Now following #%d %s.\nPreviously skipped items will be reconsidered on the next check.", artist.ID, artist.Name))
}

func (b *Bot) handleUnfollow(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unfollow <id>")
		return
	}

	artist, err := b.store.UnfollowArtist(ctx, id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		b.reply(chatID, fmt.Sprintf("Artist #%d not found.", id))
		return
	case errors.Is(err, model.ErrNotFollowed):
		b.reply(chatID, fmt.Sprintf("Artist #%d is not followed.", id))
		return
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	b.log.Info("artist unfollowed", "artist", artist.Name, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Stopped following #%d %s.", artist.ID, artist.Name))
}

func (b *Bot) handleItems(ctx context.Context, chatID int64, args string) {
	id, ok, err := ParseOptionalIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /items [artist_id]")
		return
	}

	if !ok {
		items, err := b.store.ListItems(ctx)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, FormatItemList("Latest items", items))
		return
	}

	artist, err := b.store.GetArtist(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Artist #%d not found.", id))
		return
	}
	items, err := b.store.ListItemsByArtist(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatItemList(fmt.Sprintf("Items of #%d %s", artist.ID, artist.Name), items))
}

func (b *Bot) handleSkips(ctx context.Context, chatID int64) {
	seqs, err := b.store.ListTitleSkipSequences(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatSequenceList(seqs))
}

func (b *Bot) handleSkip(ctx context.Context, chatID int64, args string) {
	seq, err := ParseTextArg(args, "sequence")
	if err != nil {
		b.reply(chatID, "Usage: /skip <sequence>")
		return
	}

	_, err = b.store.AddTitleSkipSequence(ctx, seq)
	switch {
	case errors.Is(err, model.ErrDuplicate):
		b.reply(chatID, fmt.Sprintf("Title skip sequence %q already exists.", seq))
		return
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("New items whose title contains %q will be ignored.", seq))
}

func (b *Bot) handleUnskip(ctx context.Context, chatID int64, args string) {
	seq, err := ParseTextArg(args, "sequence")
	if err != nil {
		b.reply(chatID, "Usage: /unskip <sequence>")
		return
	}

	err = b.store.DeleteTitleSkipSequence(ctx, seq)
	switch {
	case errors.Is(err, model.ErrNotFound):
		b.reply(chatID, fmt.Sprintf("Title skip sequence %q not found.", seq))
		return
	case err != nil:
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Title skip sequence %q removed.", seq))
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64) {
	if b.runner == nil {
		b.reply(chatID, "Checks are not available.")
		return
	}

	b.reply(chatID, "Checking followed artists...")
	summary, err := b.runner.Run(ctx)
	switch {
	case errors.Is(err, reconcile.ErrRunInProgress):
		b.reply(chatID, "A check is already running, try again later.")
		return
	case summary == nil:
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}
	b.reply(chatID, FormatSummary(summary))
}
