package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/citycycle/citycycle-bot/internal/models"
	"github.com/citycycle/citycycle-bot/internal/services"
	"github.com/citycycle/citycycle-bot/internal/session"
	"github.com/citycycle/citycycle-bot/internal/store"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// startRental lists available bikes and enters SelectingBike. With no
// bikes available the chat stays in Idle.
func (b *Bot) startRental(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	bikes, err := b.db.ListAvailableBikes(ctx)
	if err != nil {
		return err
	}
	if len(bikes) == 0 {
		return b.reply(msg, "😞 No bikes available right now")
	}

	var sb strings.Builder
	sb.WriteString("🚲 Available bikes:\n")
	for _, bike := range bikes {
		station := ""
		if bike.Station != nil {
			station = bike.Station.Name
		}
		sb.WriteString(fmt.Sprintf("%d - %s (%s), %.2f/hour\n",
			bike.ID, bike.Type.Name, station, bike.Type.PricePerHour))
	}
	sb.WriteString("\nEnter the bike id to rent:")

	sess.Step = session.StepSelectingBike
	b.sessions.Put(msg.Chat.ID, sess)

	out := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, err = b.sender.Send(out)
	return err
}

// handleSelectingBike validates the bike id. A non-numeric id re-prompts
// in place; an unknown or rented bike drops the chat back to Idle.
func (b *Bot) handleSelectingBike(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if isCancel(msg.Text) {
		b.resetToIdle(ctx, sess, msg, "❌ Rental cancelled")
		return nil
	}

	bikeID, err := strconv.ParseUint(msg.Text, 10, 32)
	if err != nil {
		return b.reply(msg, "❌ Enter a numeric bike id")
	}

	bike, err := b.db.GetBike(ctx, uint(bikeID))
	if errors.Is(err, store.ErrBikeNotFound) {
		b.resetToIdle(ctx, sess, msg, "❌ This bike is not available")
		return nil
	}
	if err != nil {
		return err
	}
	if bike.Status != models.BikeStatusAvailable || bike.StationID == nil {
		b.resetToIdle(ctx, sess, msg, "❌ This bike is not available")
		return nil
	}

	sess.Draft = session.RentalDraft{
		BikeID:         bike.ID,
		StartStationID: *bike.StationID,
	}
	sess.Step = session.StepConfirmingRental
	b.sessions.Put(msg.Chat.ID, sess)

	station := ""
	if bike.Station != nil {
		station = bike.Station.Name
	}
	text := fmt.Sprintf("You picked bike %d\nType: %s\nStation: %s\n\nConfirm the rental:",
		bike.ID, bike.Type.Name, station)
	return b.replyWithMarkup(msg, text, confirmMenu())
}

// handleConfirmingRental opens the rental on confirm, discards the draft
// on cancel, and re-prompts on anything else.
func (b *Bot) handleConfirmingRental(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	switch msg.Text {
	case btnConfirm:
		user := &models.User{
			ID:       msg.From.ID,
			FullName: fullName(msg.From),
			Username: msg.From.UserName,
		}
		if err := b.db.CreateUserIfAbsent(ctx, user); err != nil {
			b.metrics.incErrors()
			b.resetToIdle(ctx, sess, msg, "⚠️ Could not start the rental")
			return nil
		}

		rentalID, err := b.db.OpenRental(ctx, msg.From.ID, sess.Draft.BikeID, sess.Draft.StartStationID)
		if err != nil {
			log.Printf("open rental for chat %d bike %d: %v", msg.Chat.ID, sess.Draft.BikeID, err)
			b.metrics.incErrors()
			b.resetToIdle(ctx, sess, msg, "⚠️ Could not start the rental")
			return nil
		}

		sess.RentalID = rentalID
		sess.Step = session.StepRentalActive
		b.sessions.Put(msg.Chat.ID, sess)

		b.metrics.incOpened()
		b.publishEvent(ctx, services.RentalEvent{
			Type:     services.EventRentalOpened,
			RentalID: rentalID,
			BikeID:   sess.Draft.BikeID,
			UserID:   msg.From.ID,
		})

		return b.replyWithMarkup(msg, "🚴 Rental started!", rentalMenu())

	case btnCancel:
		b.resetToIdle(ctx, sess, msg, "❌ Rental cancelled")
		return nil

	default:
		return b.replyWithMarkup(msg, "Confirm the rental:", confirmMenu())
	}
}

// handleRentalActive waits for the end-rental or cancel action; anything
// else re-prompts the active-rental menu.
func (b *Bot) handleRentalActive(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	switch msg.Text {
	case btnEndRental:
		sess.Step = session.StepAwaitingEndStation
		b.sessions.Put(msg.Chat.ID, sess)

		out := tgbotapi.NewMessage(msg.Chat.ID, "Enter the return station id:")
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		_, err := b.sender.Send(out)
		return err

	case btnCancelRent:
		// Cancelling after the rental was opened removes the rental row
		// and releases the bike at its start station.
		log.Printf("chat %d cancelled rental %d after it was opened", msg.Chat.ID, sess.RentalID)
		if err := b.db.CancelRental(ctx, sess.RentalID); err != nil {
			log.Printf("cancel rental %d: %v", sess.RentalID, err)
			b.metrics.incErrors()
			b.resetToIdle(ctx, sess, msg, "⚠️ Could not cancel the rental")
			return nil
		}

		b.metrics.incCancelled()
		b.publishEvent(ctx, services.RentalEvent{
			Type:     services.EventRentalCancelled,
			RentalID: sess.RentalID,
			BikeID:   sess.Draft.BikeID,
			UserID:   msg.From.ID,
		})

		b.resetToIdle(ctx, sess, msg, "❌ Rental cancelled")
		return nil

	default:
		return b.replyWithMarkup(msg, "🚴 Rental in progress. Use the menu below:", rentalMenu())
	}
}

// handleAwaitingEndStation validates the return station id; bad input
// re-prompts in place.
func (b *Bot) handleAwaitingEndStation(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	stationID, err := strconv.ParseUint(msg.Text, 10, 32)
	if err != nil {
		return b.reply(msg, "❌ Enter a numeric station id")
	}

	exists, err := b.db.StationExists(ctx, uint(stationID))
	if err != nil {
		return err
	}
	if !exists {
		return b.reply(msg, "❌ Station not found")
	}

	sess.EndStationID = uint(stationID)
	sess.Step = session.StepAwaitingRating
	b.sessions.Put(msg.Chat.ID, sess)

	return b.replyWithMarkup(msg, "⭐ Rate the rental (1-5):", ratingMenu())
}

// handleAwaitingRating accepts an integer 1-5 and moves on to the comment.
func (b *Bot) handleAwaitingRating(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	rating, err := strconv.Atoi(msg.Text)
	if err != nil || rating < models.MinRating || rating > models.MaxRating {
		return b.reply(msg, "❌ The rating must be between 1 and 5")
	}

	sess.Rating = rating
	sess.Step = session.StepAwaitingComment
	b.sessions.Put(msg.Chat.ID, sess)

	return b.replyWithMarkup(msg, "💬 Write a comment (or press Skip):", skipMenu())
}

// handleAwaitingComment finalizes the rental: the close is one atomic
// unit, and the review is only written after the close succeeded.
func (b *Bot) handleAwaitingComment(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if err := b.db.CloseRental(ctx, sess.RentalID, sess.EndStationID); err != nil {
		log.Printf("close rental %d: %v", sess.RentalID, err)
		b.metrics.incErrors()
		b.resetToIdle(ctx, sess, msg, "⚠️ Critical error while closing the rental")
		return nil
	}

	b.metrics.incClosed()
	b.publishEvent(ctx, services.RentalEvent{
		Type:     services.EventRentalClosed,
		RentalID: sess.RentalID,
		BikeID:   sess.Draft.BikeID,
		UserID:   msg.From.ID,
	})

	if sess.Rating > 0 {
		var comment *string
		if msg.Text != btnSkip && msg.Text != "" {
			text := msg.Text
			comment = &text
		}
		if err := b.db.AddReview(ctx, msg.From.ID, sess.Draft.BikeID, sess.Rating, comment); err != nil {
			// The rental is closed; losing the review is not critical.
			log.Printf("add review for rental %d: %v", sess.RentalID, err)
			b.metrics.incErrors()
		} else {
			b.metrics.incReviews()
		}
	}

	b.resetToIdle(ctx, sess, msg, "✅ Rental closed. Thanks for riding with us!")
	return nil
}

func (b *Bot) publishEvent(ctx context.Context, ev services.RentalEvent) {
	if b.hub != nil {
		b.hub.BroadcastRentalEvent(ev)
	}
	if err := services.PublishRentalEvent(ctx, ev); err != nil {
		log.Printf("publish rental event: %v", err)
	}
	if err := services.InvalidateReports(ctx); err != nil {
		log.Printf("invalidate report cache: %v", err)
	}
}

func isCancel(text string) bool {
	return text == btnCancel || text == "/cancel"
}
