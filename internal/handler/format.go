package handler

import (
	"fmt"
	"strings"
	"time"

	"offender-movements/internal/models"
	"offender-movements/internal/service"
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4000

const (
	dateFormat     = "02.01.2006"
	dateTimeFormat = "02.01.2006 15:04"
)

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageRunes {
		return text
	}
	return string(runes[:maxMessageRunes]) + "\n…(truncated)"
}

func formatMovements(bookingID int64, views []*service.MovementView) string {
	if len(views) == 0 {
		return fmt.Sprintf("📭 Booking %d has no external movements.", bookingID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚐 External movements of booking %d:\n", bookingID)
	for _, v := range views {
		b.WriteString("\n")
		b.WriteString(formatMovementLine(v))
	}
	return b.String()
}

func formatMovementLine(v *service.MovementView) string {
	m := v.ExternalMovement
	line := fmt.Sprintf("#%d %s %s %s %s: %s → %s",
		m.MovementSeq,
		m.MovementTime.Format(dateTimeFormat),
		m.MovementType,
		m.Direction,
		m.MovementReasonCode,
		place(m.FromAgencyID, m.FromCity, v.FromAddress),
		place(m.ToAgencyID, m.ToCity, v.ToAddress),
	)
	switch v.Kind {
	case models.MovementKindTemporaryAbsence, models.MovementKindTemporaryAbsenceReturn:
		if v.Scheduled {
			line += " 🗓 scheduled"
		} else {
			line += " ⚡ unscheduled"
		}
	default:
		if m.HasDirectionAnomaly() {
			line += " ⚠️ no direction"
		}
	}
	return line
}

func place(agencyID *string, city string, addr *service.ResolvedAddress) string {
	switch {
	case agencyID != nil:
		return *agencyID
	case addr != nil && addr.Address != nil:
		return formatAddress(addr)
	case city != "":
		return city
	default:
		return "?"
	}
}

func formatAddress(addr *service.ResolvedAddress) string {
	text := addr.Address.OneLine()
	if text == "" {
		text = fmt.Sprintf("address %d", addr.Address.ID)
	}
	if addr.Malformed {
		text += " (owner class " + string(addr.RawOwnerClass) + "?)"
	}
	return text
}

func formatTemporaryAbsences(view *service.BookingTemporaryAbsences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓 Temporary absences of booking %d\n", view.BookingID)

	if len(view.Applications) == 0 {
		b.WriteString("\nNo movement applications.\n")
	}
	for _, app := range view.Applications {
		fmt.Fprintf(&b, "\n📄 Application %d [%s] %s, %s to %s\n",
			app.ID, app.ApplicationStatus, app.EventSubType,
			app.FromDate.Format(dateFormat), app.ToDate.Format(dateFormat))
		if len(app.ScheduledAbsences) == 0 {
			b.WriteString("   nothing scheduled\n")
		}
		for _, absence := range app.ScheduledAbsences {
			fmt.Fprintf(&b, "   ➡️ Event %d %s [%s] from %s%s\n",
				absence.EventID, absence.StartTime.Format(dateTimeFormat), absence.EventStatus,
				absence.FromAgencyID, realized(absence.TemporaryAbsence))
			if ret := absence.ScheduledReturn; ret != nil {
				fmt.Fprintf(&b, "   ⬅️ Event %d %s [%s] to %s%s\n",
					ret.EventID, ret.StartTime.Format(dateTimeFormat), ret.EventStatus,
					ret.ToAgencyID, realized(ret.TemporaryAbsenceReturn))
			} else {
				b.WriteString("   ⬅️ no return scheduled\n")
			}
		}
	}

	if len(view.UnpairedScheduledReturns) > 0 {
		b.WriteString("\n🔗 Scheduled returns without an absence:\n")
		for _, ret := range view.UnpairedScheduledReturns {
			fmt.Fprintf(&b, "   Event %d %s [%s] to %s%s\n",
				ret.EventID, ret.StartTime.Format(dateTimeFormat), ret.EventStatus,
				ret.ToAgencyID, realized(ret.TemporaryAbsenceReturn))
		}
	}

	unscheduled := len(view.UnscheduledTemporaryAbsences) + len(view.UnscheduledTemporaryAbsenceReturns)
	if unscheduled > 0 {
		fmt.Fprintf(&b, "\n⚡ %d unscheduled movement(s), see /unscheduled %d\n", unscheduled, view.BookingID)
	}
	if n := len(view.DanglingTemporaryAbsenceReturns); n > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d return(s) linked to a missing scheduled return\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func realized(v *service.MovementView) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(" ✅ movement #%d at %s", v.MovementSeq, v.MovementTime.Format(timeOrDate(v.MovementTime)))
}

func timeOrDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return dateFormat
	}
	return dateTimeFormat
}

func formatUnscheduled(view *service.BookingTemporaryAbsences) string {
	if len(view.UnscheduledTemporaryAbsences) == 0 && len(view.UnscheduledTemporaryAbsenceReturns) == 0 {
		return fmt.Sprintf("✅ Booking %d has no unscheduled temporary absences.", view.BookingID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚡ Unscheduled temporary absences of booking %d\n", view.BookingID)
	if len(view.UnscheduledTemporaryAbsences) > 0 {
		b.WriteString("\nOut:\n")
		for _, v := range view.UnscheduledTemporaryAbsences {
			b.WriteString(formatMovementLine(v))
			b.WriteString("\n")
		}
	}
	if len(view.UnscheduledTemporaryAbsenceReturns) > 0 {
		b.WriteString("\nIn:\n")
		for _, v := range view.UnscheduledTemporaryAbsenceReturns {
			b.WriteString(formatMovementLine(v))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
