package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/citycycle/citycycle-bot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
)

// startAddBike begins the admin wizard. Non-admins are rejected without
// entering any state.
func (b *Bot) startAddBike(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	isAdmin, err := b.db.IsAdmin(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return b.reply(msg, "⛔ Access denied")
	}

	types, err := b.db.ListBikeTypes(ctx)
	if err != nil {
		return err
	}
	if len(types) == 0 {
		return b.reply(msg, "❌ No bike types configured")
	}

	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}

	sess.Step = session.StepAddBikeType
	b.sessions.Put(msg.Chat.ID, sess)

	return b.replyWithMarkup(msg, "🚴 Pick the bike type:", namesKeyboard(names))
}

func (b *Bot) handleAddBikeType(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if isCancel(msg.Text) {
		b.resetToIdle(ctx, sess, msg, "❌ Adding bike cancelled")
		return nil
	}

	bt, err := b.db.GetBikeTypeByName(ctx, msg.Text)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return b.reply(msg, "❌ Unknown bike type")
	}
	if err != nil {
		return err
	}

	sess.NewBike.TypeID = bt.ID
	sess.NewBike.TypeName = bt.Name

	stations, err := b.db.ListStations(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(stations))
	for _, st := range stations {
		names = append(names, st.Name)
	}

	sess.Step = session.StepAddBikeStation
	b.sessions.Put(msg.Chat.ID, sess)

	return b.replyWithMarkup(msg, "📍 Pick the station:", namesKeyboard(names))
}

func (b *Bot) handleAddBikeStation(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if isCancel(msg.Text) {
		b.resetToIdle(ctx, sess, msg, "❌ Adding bike cancelled")
		return nil
	}

	st, err := b.db.GetStationByName(ctx, msg.Text)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return b.reply(msg, "❌ Station not found")
	}
	if err != nil {
		return err
	}

	sess.NewBike.StationID = st.ID
	sess.NewBike.StationName = st.Name
	sess.Step = session.StepAddBikeConfirm
	b.sessions.Put(msg.Chat.ID, sess)

	text := fmt.Sprintf("Create this bike?\nType: %s\nStation: %s",
		sess.NewBike.TypeName, sess.NewBike.StationName)
	return b.replyWithMarkup(msg, text, confirmMenu())
}

func (b *Bot) handleAddBikeConfirm(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	switch msg.Text {
	case btnConfirm:
		bike, err := b.db.AddBike(ctx, sess.NewBike.TypeID, sess.NewBike.StationID)
		if err != nil {
			b.metrics.incErrors()
			b.resetToIdle(ctx, sess, msg, "⚠️ Could not add the bike")
			return nil
		}
		b.resetToIdle(ctx, sess, msg, fmt.Sprintf("✅ Bike %d added", bike.ID))
		return nil

	case btnCancel:
		b.resetToIdle(ctx, sess, msg, "❌ Adding bike cancelled")
		return nil

	default:
		return b.replyWithMarkup(msg, "Create this bike?", confirmMenu())
	}
}
