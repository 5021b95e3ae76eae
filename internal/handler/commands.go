package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"offender-movements/pkg/sentinel"
)

const (
	callbackConfirmComplete = "confirm_complete_"
	callbackCancelComplete  = "cancel_complete"
	callbackShowTap         = "show_tap_"
)

const restrictedText = "⛔ This bot is restricted to establishment staff."

const helpText = `📋 Available commands:

📖 Reports:
/movements BOOKING_ID - All external movements of a booking
/tap BOOKING_ID - Applications, scheduled absences and their returns
/unscheduled BOOKING_ID - Temporary absences recorded without a schedule

✅ Events:
/complete EVENT_ID - Mark a scheduled absence or return completed

🛠 Utilities:
/start - Start working with the bot
/help - Show this message`

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		h.reply(message.Chat.ID, "👋 Offender movements bot.\n\n"+helpText)
	case "help":
		h.reply(message.Chat.ID, helpText)
	case "movements":
		h.showMovements(ctx, message.Chat.ID, args)
	case "tap":
		h.showTemporaryAbsences(ctx, message.Chat.ID, args)
	case "unscheduled":
		h.showUnscheduled(ctx, message.Chat.ID, args)
	case "complete":
		h.askComplete(message.Chat.ID, args)
	default:
		h.reply(message.Chat.ID, "❌ Unknown command. Use /help for the list of commands.")
	}
}

func (h *Handler) showMovements(ctx context.Context, chatID int64, args string) {
	bookingID, ok := h.parseID(chatID, args, "/movements BOOKING_ID")
	if !ok {
		return
	}

	views, err := h.bookings.Movements(ctx, bookingID)
	if err != nil {
		h.replyError(chatID, err, "load movements")
		return
	}

	msg := tgbotapi.NewMessage(chatID, truncate(formatMovements(bookingID, views)))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓 Temporary absences", fmt.Sprintf("%s%d", callbackShowTap, bookingID)),
		),
	)
	h.send(msg)
}

func (h *Handler) showTemporaryAbsences(ctx context.Context, chatID int64, args string) {
	bookingID, ok := h.parseID(chatID, args, "/tap BOOKING_ID")
	if !ok {
		return
	}

	view, err := h.bookings.TemporaryAbsences(ctx, bookingID)
	if err != nil {
		h.replyError(chatID, err, "load temporary absences")
		return
	}
	h.reply(chatID, formatTemporaryAbsences(view))
}

func (h *Handler) showUnscheduled(ctx context.Context, chatID int64, args string) {
	bookingID, ok := h.parseID(chatID, args, "/unscheduled BOOKING_ID")
	if !ok {
		return
	}

	view, err := h.bookings.TemporaryAbsences(ctx, bookingID)
	if err != nil {
		h.replyError(chatID, err, "load temporary absences")
		return
	}
	h.reply(chatID, formatUnscheduled(view))
}

func (h *Handler) askComplete(chatID int64, args string) {
	if !h.canComplete(chatID) {
		h.logger.WithField("chat_id", chatID).Warn("Unauthorized access to complete command")
		h.reply(chatID, "⛔ Access denied. Only allowed staff chats can complete events.")
		return
	}
	eventID, ok := h.parseID(chatID, args, "/complete EVENT_ID")
	if !ok {
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, complete", fmt.Sprintf("%s%d", callbackConfirmComplete, eventID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ No, cancel", callbackCancelComplete),
		),
	)
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ Mark scheduled event %d as completed?", eventID))
	msg.ReplyMarkup = keyboard
	h.send(msg)
}

func (h *Handler) confirmComplete(ctx context.Context, chatID int64, raw string) {
	if !h.canComplete(chatID) {
		h.logger.WithField("chat_id", chatID).Warn("Unauthorized completion callback")
		return
	}
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.reply(chatID, "❌ Invalid event id.")
		return
	}

	if err := h.events.Complete(ctx, eventID); err != nil {
		h.replyError(chatID, err, "complete event")
		return
	}
	h.logger.WithFields(logrus.Fields{"chat_id": chatID, "event_id": eventID}).Info("Scheduled event completed from bot")
	h.reply(chatID, fmt.Sprintf("✅ Scheduled event %d completed.", eventID))
}

func (h *Handler) parseID(chatID int64, args, usage string) (int64, bool) {
	if args == "" {
		h.reply(chatID, "📝 Usage: "+usage)
		return 0, false
	}
	id, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	if err != nil || id <= 0 {
		h.reply(chatID, fmt.Sprintf("❌ %q is not a valid id.\n📝 Usage: %s", args, usage))
		return 0, false
	}
	return id, true
}

func (h *Handler) replyError(chatID int64, err error, action string) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound),
		errors.Is(err, sentinel.ErrInvalidInput),
		errors.Is(err, sentinel.ErrInvalidState),
		errors.Is(err, sentinel.ErrConflict):
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to " + action)
		h.reply(chatID, "❌ "+err.Error())
	default:
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to " + action)
		h.reply(chatID, "❌ Internal error, try again later.")
	}
}
