package bot

import (
	"context"
	"log"
	"time"

	"github.com/citycycle/citycycle-bot/internal/models"
	"github.com/citycycle/citycycle-bot/internal/reports"
	"github.com/citycycle/citycycle-bot/internal/services"
	"github.com/citycycle/citycycle-bot/internal/session"
	"github.com/citycycle/citycycle-bot/internal/store"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Gateway is the persistence surface the conversation handlers call. It is
// implemented by *store.Store; tests substitute a fake.
type Gateway interface {
	ListAvailableBikes(ctx context.Context) ([]models.Bike, error)
	GetBike(ctx context.Context, bikeID uint) (*models.Bike, error)
	StationExists(ctx context.Context, stationID uint) (bool, error)
	CreateUserIfAbsent(ctx context.Context, user *models.User) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	OpenRental(ctx context.Context, userID int64, bikeID, stationID uint) (uint, error)
	CloseRental(ctx context.Context, rentalID, endStationID uint) error
	CancelRental(ctx context.Context, rentalID uint) error
	AddReview(ctx context.Context, userID int64, bikeID uint, rating int, comment *string) error
	AddBike(ctx context.Context, typeID, stationID uint) (*models.Bike, error)
	ListBikeTypes(ctx context.Context) ([]models.BikeType, error)
	GetBikeTypeByName(ctx context.Context, name string) (*models.BikeType, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStationByName(ctx context.Context, name string) (*models.Station, error)
	UserRentals(ctx context.Context, userID int64) ([]models.Rental, error)
	RentalsPerDay(ctx context.Context, days int) ([]store.DailyCount, error)
	IncomePerDay(ctx context.Context, days int) ([]store.DailyAmount, error)
	RatingDistribution(ctx context.Context, bikeID uint) ([]store.RatingCount, error)
}

// sender is the slice of tgbotapi.BotAPI the handlers need; tests record
// what would have been sent.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type stepHandler func(ctx context.Context, sess *session.Session, msg *tgbotapi.Message) error

// Bot wires the Telegram dispatcher to the rental state machine.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   sender
	db       Gateway
	sessions *session.Registry
	renderer *reports.Renderer
	hub      *services.Hub
	metrics  *Metrics

	handlers map[session.Step]stepHandler
}

func NewBot(token string, db Gateway, renderer *reports.Renderer, hub *services.Hub, metrics *Metrics) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		api:      botAPI,
		sender:   botAPI,
		db:       db,
		sessions: session.NewRegistry(),
		renderer: renderer,
		hub:      hub,
		metrics:  metrics,
	}
	b.registerHandlers()
	return b, nil
}

// registerHandlers builds the transition table: wizard step to handler.
func (b *Bot) registerHandlers() {
	b.handlers = map[session.Step]stepHandler{
		session.StepSelectingBike:         b.handleSelectingBike,
		session.StepConfirmingRental:      b.handleConfirmingRental,
		session.StepRentalActive:          b.handleRentalActive,
		session.StepAwaitingEndStation:    b.handleAwaitingEndStation,
		session.StepAwaitingRating:        b.handleAwaitingRating,
		session.StepAwaitingComment:       b.handleAwaitingComment,
		session.StepAddBikeType:           b.handleAddBikeType,
		session.StepAddBikeStation:        b.handleAddBikeStation,
		session.StepAddBikeConfirm:        b.handleAddBikeConfirm,
		session.StepAwaitingRatingsBikeID: b.handleRatingsBikeID,
	}
}

// Start runs the long-poll loop until StopReceivingUpdates is called.
// Updates for different chats are handled concurrently; the session
// registry serializes updates within one chat.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	log.Printf("Authorized on account %s", b.api.Self.UserName)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		go b.handleUpdate(ctx, update.Message)
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	started := time.Now()
	defer func() {
		b.metrics.observe(time.Since(started).Seconds())
	}()

	b.metrics.incMessages()
	b.handleMessage(ctx, msg)
}

// handleMessage routes one message: an active wizard step owns the input,
// otherwise the main-menu commands apply.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	unlock := b.sessions.Lock(chatID)
	defer unlock()

	sess := b.sessions.Get(chatID)
	if sess == nil {
		sess = &session.Session{}
		b.sessions.Put(chatID, sess)
	}

	if sess.Step != session.StepIdle {
		handler := b.handlers[sess.Step]
		if handler == nil {
			log.Printf("no handler for step %d, resetting chat %d", sess.Step, chatID)
			b.resetToIdle(ctx, sess, msg, "⚠️ Something went wrong, starting over")
			return
		}
		if err := handler(ctx, sess, msg); err != nil {
			log.Printf("step %d handler for chat %d: %v", sess.Step, chatID, err)
			b.metrics.incErrors()
			b.resetToIdle(ctx, sess, msg, "⚠️ Something went wrong, please try again")
		}
		return
	}

	var err error
	switch msg.Text {
	case "/start", "reset":
		err = b.handleStart(ctx, msg)
	case "/help", btnHelp:
		err = b.handleHelp(msg)
	case btnRentBike:
		err = b.startRental(ctx, sess, msg)
	case btnMyRentals:
		err = b.showUserRentals(ctx, msg)
	case btnStats:
		err = b.showStatsMenu(msg)
	case btnStatsRentals:
		err = b.showRentalsStats(ctx, msg)
	case btnStatsIncome:
		err = b.showIncomeStats(ctx, msg)
	case btnStatsRatings:
		err = b.startRatingsStats(sess, msg)
	case btnAddBike:
		err = b.startAddBike(ctx, sess, msg)
	case btnBack:
		err = b.sendMainMenu(ctx, msg, "Main menu:")
	default:
		err = b.sendMainMenu(ctx, msg, "⚠️ Unknown command")
	}
	if err != nil {
		log.Printf("command %q for chat %d: %v", msg.Text, chatID, err)
		b.metrics.incErrors()
		b.reply(msg, "⚠️ Something went wrong, please try again")
	}
}

// handleStart registers the user if needed and shows the main menu.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user := &models.User{
		ID:       msg.From.ID,
		FullName: fullName(msg.From),
		Username: msg.From.UserName,
	}
	if err := b.db.CreateUserIfAbsent(ctx, user); err != nil {
		return err
	}

	return b.sendMainMenu(ctx, msg, "Hi, "+msg.From.FirstName+"!")
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	help := "📚 Available commands:\n" +
		"🚲 Rent a bike - list free bikes and start a rental\n" +
		"📖 My rentals - your rental history as a spreadsheet\n" +
		"📊 Statistics - charts about the system\n" +
		"❓ Help - this message"
	return b.reply(msg, help)
}

func (b *Bot) sendMainMenu(ctx context.Context, msg *tgbotapi.Message, text string) error {
	isAdmin, err := b.db.IsAdmin(ctx, msg.From.ID)
	if err != nil {
		log.Printf("admin check for user %d: %v", msg.From.ID, err)
		isAdmin = false
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyMarkup = mainMenu(isAdmin)
	_, err = b.sender.Send(out)
	return err
}

// resetToIdle clears the chat's wizard state and shows the main menu.
func (b *Bot) resetToIdle(ctx context.Context, sess *session.Session, msg *tgbotapi.Message, text string) {
	*sess = session.Session{ChatID: sess.ChatID}
	b.sessions.Remove(msg.Chat.ID)
	if err := b.sendMainMenu(ctx, msg, text); err != nil {
		log.Printf("send main menu to chat %d: %v", msg.Chat.ID, err)
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) error {
	_, err := b.sender.Send(tgbotapi.NewMessage(msg.Chat.ID, text))
	return err
}

func (b *Bot) replyWithMarkup(msg *tgbotapi.Message, text string, markup interface{}) error {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyMarkup = markup
	_, err := b.sender.Send(out)
	return err
}

func fullName(u *tgbotapi.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
