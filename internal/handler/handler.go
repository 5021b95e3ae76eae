package handler

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"offender-movements/internal/service"
)

// Sender is the part of the Telegram bot API the handler talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type BookingViews interface {
	TemporaryAbsences(ctx context.Context, bookingID int64) (*service.BookingTemporaryAbsences, error)
	Movements(ctx context.Context, bookingID int64) ([]*service.MovementView, error)
}

type EventCompleter interface {
	Complete(ctx context.Context, eventID int64) error
}

// Handler serves the staff bot: read-only booking reports plus completion
// of scheduled events for allowed chats.
type Handler struct {
	sender   Sender
	bookings BookingViews
	events   EventCompleter
	allowed  map[int64]bool
	logger   *logrus.Logger
}

// NewHandler restricts the bot to allowedChats. With an empty list every
// chat may read reports but nobody may complete events.
func NewHandler(
	sender Sender,
	bookings BookingViews,
	events EventCompleter,
	allowedChats []int64,
	logger *logrus.Logger,
) *Handler {
	allowed := make(map[int64]bool, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = true
	}
	return &Handler{
		sender:   sender,
		bookings: bookings,
		events:   events,
		allowed:  allowed,
		logger:   logger,
	}
}

// HandleUpdates consumes updates until ctx is cancelled or the channel closes.
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	h.handleMessage(ctx, update.Message)
}

func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	if !h.chatAllowed(chatID) {
		h.logger.WithField("chat_id", chatID).Warn("Callback from chat outside the allow list")
		h.reply(chatID, restrictedText)
		h.request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	// Drop the keyboard so the confirmation cannot be pressed twice.
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	h.request(edit)

	switch {
	case strings.HasPrefix(data, callbackConfirmComplete):
		h.confirmComplete(ctx, chatID, strings.TrimPrefix(data, callbackConfirmComplete))
	case data == callbackCancelComplete:
		h.reply(chatID, "❌ Completion cancelled.")
	case strings.HasPrefix(data, callbackShowTap):
		h.showTemporaryAbsences(ctx, chatID, strings.TrimPrefix(data, callbackShowTap))
	default:
		h.logger.WithField("data", data).Warn("Unknown callback data")
	}

	h.request(tgbotapi.NewCallback(callback.ID, ""))
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	entry := h.logger.WithField("chat_id", chatID)
	if message.From != nil {
		entry = entry.WithField("user", message.From.UserName)
	}
	entry.Debug(message.Text)

	if !h.chatAllowed(chatID) {
		entry.Warn("Message from chat outside the allow list")
		h.reply(chatID, restrictedText)
		return
	}

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	h.reply(chatID, "Send /help for the list of commands.")
}

// chatAllowed is true for every chat when no allow list is configured.
func (h *Handler) chatAllowed(chatID int64) bool {
	return len(h.allowed) == 0 || h.allowed[chatID]
}

func (h *Handler) canComplete(chatID int64) bool {
	return h.allowed[chatID]
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, truncate(text)))
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.sender.Send(c); err != nil {
		h.logger.WithError(err).Error("Failed to send Telegram message")
	}
}

func (h *Handler) request(c tgbotapi.Chattable) {
	if _, err := h.sender.Request(c); err != nil {
		h.logger.WithError(err).Warn("Telegram request failed")
	}
}
