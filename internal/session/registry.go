package session

import (
	"sync"
)

// Step is the wizard state a chat is currently in.
type Step int

const (
	StepIdle Step = iota

	// Rental wizard.
	StepSelectingBike
	StepConfirmingRental
	StepRentalActive
	StepAwaitingEndStation
	StepAwaitingRating
	StepAwaitingComment

	// Admin add-bike wizard.
	StepAddBikeType
	StepAddBikeStation
	StepAddBikeConfirm

	// Ratings chart prompt.
	StepAwaitingRatingsBikeID
)

// RentalDraft holds the bike picked at SelectingBike until the rental is
// confirmed or discarded.
type RentalDraft struct {
	BikeID         uint
	StartStationID uint
}

// BikeDraft holds the admin add-bike wizard input.
type BikeDraft struct {
	TypeID      uint
	TypeName    string
	StationID   uint
	StationName string
}

// Session is the transient per-chat wizard state. It lives only in process
// memory: an open rental survives a restart as a database row, the step
// pointer does not.
type Session struct {
	ChatID       int64
	Step         Step
	Draft        RentalDraft
	RentalID     uint // set once the rental is opened
	EndStationID uint
	Rating       int
	NewBike      BikeDraft
}

// Registry maps chat ids to sessions. Entries have no TTL; they live until
// a terminal transition removes them. Operations on distinct chats never
// block one another, while Lock serializes handling within one chat.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns the chat's session, or nil when none exists.
func (r *Registry) Get(chatID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[chatID]
}

func (r *Registry) Put(chatID int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ChatID = chatID
	r.sessions[chatID] = s
}

func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

// Lock acquires the chat's handler lock and returns the unlock func. The
// dispatcher delivers one message at a time per chat; this keeps that
// discipline even when updates are handled on separate goroutines.
func (r *Registry) Lock(chatID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[chatID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
