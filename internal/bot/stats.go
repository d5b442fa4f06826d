package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/citycycle/citycycle-bot/internal/reports"
	"github.com/citycycle/citycycle-bot/internal/services"
	"github.com/citycycle/citycycle-bot/internal/session"
	"github.com/citycycle/citycycle-bot/internal/store"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const reportCacheTTL = 5 * time.Minute

func (b *Bot) showStatsMenu(msg *tgbotapi.Message) error {
	return b.replyWithMarkup(msg, "Pick a report:", statsMenu())
}

// showRentalsStats sends the rentals-per-day bar chart for the last week.
func (b *Bot) showRentalsStats(ctx context.Context, msg *tgbotapi.Message) error {
	var rows []store.DailyCount
	if ok, _ := services.CachedReport(ctx, services.ReportKeyRentals, &rows); !ok {
		var err error
		rows, err = b.db.RentalsPerDay(ctx, 7)
		if err != nil {
			return err
		}
		services.CacheReport(ctx, services.ReportKeyRentals, rows, reportCacheTTL)
	}

	path, err := b.renderer.RentalsPerDay(rows)
	if errors.Is(err, reports.ErrNoData) {
		return b.reply(msg, "📭 No rentals in this period")
	}
	if err != nil {
		return err
	}

	return b.sendPhoto(msg.Chat.ID, path, "📈 Rentals over the last 7 days")
}

// showIncomeStats sends the income line chart for the last month.
func (b *Bot) showIncomeStats(ctx context.Context, msg *tgbotapi.Message) error {
	var rows []store.DailyAmount
	if ok, _ := services.CachedReport(ctx, services.ReportKeyIncome, &rows); !ok {
		var err error
		rows, err = b.db.IncomePerDay(ctx, 30)
		if err != nil {
			return err
		}
		services.CacheReport(ctx, services.ReportKeyIncome, rows, reportCacheTTL)
	}

	path, err := b.renderer.IncomePerDay(rows)
	if errors.Is(err, reports.ErrNoData) {
		return b.reply(msg, "📭 No income in this period")
	}
	if err != nil {
		return err
	}

	return b.sendPhoto(msg.Chat.ID, path, "💰 Income over the last 30 days")
}

// startRatingsStats asks which bike to chart.
func (b *Bot) startRatingsStats(sess *session.Session, msg *tgbotapi.Message) error {
	sess.Step = session.StepAwaitingRatingsBikeID
	b.sessions.Put(msg.Chat.ID, sess)

	return b.replyWithMarkup(msg, "🚴 Enter the bike id:", cancelMenu())
}

// handleRatingsBikeID renders the rating distribution pie for one bike.
func (b *Bot) handleRatingsBikeID(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error {
	if isCancel(msg.Text) || msg.Text == btnBack {
		b.resetToIdle(ctx, sess, msg, "❌ Request cancelled")
		return nil
	}

	bikeID, err := strconv.ParseUint(msg.Text, 10, 32)
	if err != nil {
		return b.reply(msg, "❌ Enter a numeric bike id")
	}

	rows, err := b.db.RatingDistribution(ctx, uint(bikeID))
	if err != nil {
		return err
	}

	path, err := b.renderer.RatingDistribution(uint(bikeID), rows)
	if errors.Is(err, reports.ErrNoData) {
		b.resetToIdle(ctx, sess, msg, "🚴 No ratings for this bike yet")
		return nil
	}
	if err != nil {
		return err
	}

	if err := b.sendPhoto(msg.Chat.ID, path, fmt.Sprintf("⭐ Ratings for bike %d", bikeID)); err != nil {
		return err
	}

	b.resetToIdle(ctx, sess, msg, "Main menu:")
	return nil
}

func (b *Bot) sendPhoto(chatID int64, path, caption string) error {
	if url, err := services.UploadChart(path); err != nil {
		log.Printf("upload chart %s: %v", path, err)
	} else if url != "" {
		log.Printf("chart stored at %s", url)
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	_, err := b.sender.Send(photo)
	return err
}
