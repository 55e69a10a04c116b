// Package bot implements the Telegram side of the service: operator commands
// and delivery of item notifications.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storewatch/internal/config"
	"storewatch/internal/reconcile"
	"storewatch/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Runner triggers a reconciliation run on demand.
type Runner interface {
	Run(ctx context.Context) (*reconcile.Summary, error)
}

// Bot is the Telegram bot that handles operator commands and sends notifications.
type Bot struct {
	api        telegramAPI
	store      storage.Storage
	cfg        *config.Config
	runner     Runner
	log        *slog.Logger
	chunkSize  int
	chunkDelay time.Duration
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:        api,
		store:      store,
		cfg:        cfg,
		log:        log,
		chunkSize:  cfg.NotifyChunkSize,
		chunkDelay: cfg.NotifyChunkDelay,
	}, nil
}

// SetRunner sets the runner used by /check. The engine needs the bot as its
// notifier, so the runner is attached after both exist.
func (b *Bot) SetRunner(r Runner) {
	b.runner = r
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "artists":
		b.handleArtists(ctx, chatID)
	case "follow":
		b.handleFollow(ctx, chatID, args)
	case cmdUnfollow:
		b.handleUnfollow(ctx, chatID, args)
	case cmdItems:
		b.handleItems(ctx, chatID, args)
	case "skips":
		b.handleSkips(ctx, chatID)
	case "skip":
		b.handleSkip(ctx, chatID, args)
	case "unskip":
		b.handleUnskip(ctx, chatID, args)
	case "check":
		b.handleCheck(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
