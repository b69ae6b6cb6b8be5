// README: Operator notifications for newly stored convoyage requests.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"convoyage/internal/modules/quote"
)

// sender is the part of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a summary of each request to the operator chat.
type Telegram struct {
	api    sender
	chatID int64
}

func NewTelegram(api *tgbotapi.BotAPI, chatID int64) *Telegram {
	return &Telegram{api: api, chatID: chatID}
}

func (t *Telegram) RequestSubmitted(ctx context.Context, r *quote.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, RequestSummary(r))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Log writes the summary to the logger; used when no bot token is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) RequestSubmitted(_ context.Context, r *quote.Request) error {
	l.logger.Info("new convoyage request", "request_id", r.ID, "summary", RequestSummary(r))
	return nil
}

// RequestSummary renders the plain-text operator message.
func RequestSummary(r *quote.Request) string {
	var b strings.Builder
	b.WriteString("Nouvelle demande de convoyage\n")
	fmt.Fprintf(&b, "Référence : %s\n", r.ID)
	fmt.Fprintf(&b, "Trajet : %s → %s (%d km)\n", r.DepartureLocation, r.ArrivalLocation, r.DistanceKm)
	fmt.Fprintf(&b, "Véhicule : %s %s (%s)\n", r.VehicleBrand, r.VehicleModel, r.LicensePlate)
	if r.VINNumber != nil {
		fmt.Fprintf(&b, "VIN : %s\n", *r.VINNumber)
	}
	fmt.Fprintf(&b, "Client : %s (%s)\n", r.ClientName, r.CustomerType.Label())
	fmt.Fprintf(&b, "Contact : %s / %s\n", r.ClientEmail, r.ClientPhone)
	if r.CompanyName != nil {
		b.WriteString("Entreprise : " + *r.CompanyName)
		if r.SiretNumber != nil {
			b.WriteString(" (SIRET " + *r.SiretNumber + ")")
		}
		b.WriteString("\n")
	}
	if r.Notes != nil {
		fmt.Fprintf(&b, "Notes : %s\n", *r.Notes)
	}
	fmt.Fprintf(&b, "Prix : %s", r.Price().Format())
	return b.String()
}
