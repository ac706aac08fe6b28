/*
Package store owns the client's conversation view.

It renders sends optimistically, reconciles them with the backend's answer by temporary
id, and keeps exactly one bus subscription for pushed messages. Only the Store mutates
the view.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatify/internal/app/event"
	"chatify/internal/app/message"
	"chatify/internal/app/user"
	"chatify/internal/client/bus"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/randx"
)

// Notice texts shown to the user.
const (
	NoticeSendFailed  = "Failed to send message"
	NoticeFetchFailed = "Failed to fetch messages"
)

// Backend persists and lists messages.
type Backend interface {
	SendMessage(ctx context.Context, receiverID string, d message.Draft) (message.Message, error)
	GetMessages(ctx context.Context, userID string) ([]message.Message, error)
}

// AuthSource reports the logged-in user.
type AuthSource interface {
	AuthUser() (user.User, bool)
}

// AuthFunc adapts a function to AuthSource.
type AuthFunc func() (user.User, bool)

// AuthUser implements AuthSource.
func (f AuthFunc) AuthUser() (user.User, bool) {
	return f()
}

// Notices shows transient messages to the user.
type Notices interface {
	Error(msg string)
}

// SoundPlayer plays the incoming-message sound.
type SoundPlayer interface {
	PlayNotification()
}

// Deps are the collaborators of a Store. Sound and Prefs may be nil.
type Deps struct {
	Backend Backend
	Auth    AuthSource
	Bus     *bus.Bus
	Notices Notices
	Sound   SoundPlayer
	Prefs   Preferences
}

// Store is the conversation view and its send/receive logic.
type Store struct {
	deps   Deps
	logger zerolog.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string

	// sendMu serializes sends so at most one placeholder is pending.
	sendMu sync.Mutex

	mu           sync.Mutex
	messages     []message.Message
	selected     *user.User
	generation   uint64 // bumped on every view change except a send's own placeholder
	soundEnabled bool
	hydrated     bool
	sub          *bus.Subscription
}

// New returns an empty Store.
func New(deps Deps) *Store {
	return &Store{
		deps:     deps,
		logger:   logx.Component("store"),
		now:      time.Now,
		newID:    randx.TempMessageID,
		messages: []message.Message{},
	}
}

// SetSelectedUser opens the conversation with u, or closes it when u is nil.
func (s *Store) SetSelectedUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u != nil {
		cp := *u
		u = &cp
	}
	s.selected = u
	s.generation++
}

// SelectedUser returns the open conversation partner.
func (s *Store) SelectedUser() (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return user.User{}, false
	}
	return *s.selected, true
}

// Messages returns a copy of the conversation view.
func (s *Store) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.messages)
}

// LoadMessages replaces the view with the stored conversation with userID. The result is
// discarded if another conversation was opened meanwhile.
func (s *Store) LoadMessages(ctx context.Context, userID string) error {
	msgs, err := s.deps.Backend.GetMessages(ctx, userID)
	if err != nil {
		s.notify(NoticeFetchFailed)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil || s.selected.ID != userID {
		return nil
	}

	s.messages = slices.Clone(msgs)
	s.generation++
	return nil
}

// SendMessage appends an optimistic placeholder, submits d and reconciles by temporary id.
// Without a selected partner or a logged-in user it does nothing. On failure the view is
// restored to its state before the call and a notice is shown; nothing is retried.
func (s *Store) SendMessage(ctx context.Context, d message.Draft) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	me, ok := s.deps.Auth.AuthUser()
	if !ok {
		return nil
	}

	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return nil
	}
	if err := d.Validate(); err != nil {
		s.mu.Unlock()
		s.notify(err.Error())
		return err
	}

	partner := *s.selected
	snapshot := slices.Clone(s.messages)
	generation := s.generation
	tempID := s.newID()
	placeholder := message.Optimistic(tempID, me.ID, partner.ID, s.now().UTC().Format(time.RFC3339Nano), d)
	s.messages = append(s.messages, placeholder)
	s.mu.Unlock()

	saved, err := s.deps.Backend.SendMessage(ctx, partner.ID, d)
	if err != nil {
		s.mu.Lock()
		if s.generation == generation {
			s.messages = snapshot
		} else {
			s.removeLocked(tempID)
		}
		s.mu.Unlock()

		s.logger.Warn().Err(err).Str("receiver_id", partner.ID).Msg("Send failed, optimistic message rolled back.")
		s.notify(NoticeSendFailed)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.messages, func(m message.Message) bool { return m.ID == tempID })
	switch {
	case idx < 0:
		// the conversation changed while sending; the stored copy arrives with the next load
	case s.containsLocked(saved.ID):
		s.removeLocked(tempID)
	default:
		s.messages[idx] = saved
	}
	return nil
}

// SubscribeToMessages attaches the pushed-message listener, replacing any earlier one.
func (s *Store) SubscribeToMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.deps.Bus.Unsubscribe(*s.sub)
	}

	sub := s.deps.Bus.Subscribe(event.NewMessage, s.onNewMessage)
	s.sub = &sub
}

// UnsubscribeFromMessages detaches the listener. It is safe to call when not subscribed.
func (s *Store) UnsubscribeFromMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return
	}
	s.deps.Bus.Unsubscribe(*s.sub)
	s.sub = nil
}

// onNewMessage appends a pushed message when it comes from the partner open right now.
func (s *Store) onNewMessage(payload json.RawMessage) {
	var m message.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		s.logger.Warn().Err(err).Msg("Ignoring malformed pushed message.")
		return
	}

	s.mu.Lock()
	if s.selected == nil || m.SenderID != s.selected.ID || s.containsLocked(m.ID) {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, m)
	s.generation++
	play := s.soundEnabled
	s.mu.Unlock()

	if play && s.deps.Sound != nil {
		s.deps.Sound.PlayNotification()
	}
}

// Reset clears the view and the selection and detaches the listener. Used on logout.
func (s *Store) Reset() {
	s.UnsubscribeFromMessages()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = []message.Message{}
	s.selected = nil
	s.generation++
}

// SoundEnabled reports whether pushed messages play a sound.
func (s *Store) SoundEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.soundEnabled
}

// ToggleSound flips the sound setting and persists it. The new value applies even when
// saving fails; the error is returned for the caller to report.
func (s *Store) ToggleSound() (bool, error) {
	s.mu.Lock()
	s.soundEnabled = !s.soundEnabled
	enabled := s.soundEnabled
	s.mu.Unlock()

	if s.deps.Prefs == nil {
		return enabled, nil
	}
	return enabled, s.deps.Prefs.SaveSoundEnabled(enabled)
}

// Hydrate loads persisted preferences once. Missing preferences leave sound off.
func (s *Store) Hydrate() error {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return nil
	}
	s.hydrated = true
	s.mu.Unlock()

	if s.deps.Prefs == nil {
		return nil
	}

	enabled, err := s.deps.Prefs.LoadSoundEnabled()
	if err != nil && !errors.Is(err, ErrNoPreferences) {
		return err
	}

	s.mu.Lock()
	s.soundEnabled = enabled
	s.mu.Unlock()
	return nil
}

func (s *Store) notify(msg string) {
	if s.deps.Notices != nil {
		s.deps.Notices.Error(msg)
	}
}

func (s *Store) containsLocked(id string) bool {
	return slices.ContainsFunc(s.messages, func(m message.Message) bool { return m.ID == id })
}

func (s *Store) removeLocked(id string) {
	s.messages = slices.DeleteFunc(s.messages, func(m message.Message) bool { return m.ID == id })
}
