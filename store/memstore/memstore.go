// Package memstore is an in-memory implementation of the user, request,
// broadcast and session stores with the same semantics as the Postgres store. It backs
// unit tests of the services that sit on top of the store interfaces.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BatmanBruc/arima-bot/types"
)

type request struct {
	userID int64
	model  string
	at     time.Time
}

type Store struct {
	mu         sync.Mutex
	users      map[int64]*types.User
	requests   []request
	broadcasts map[int64]types.Broadcast
	sent       map[int64][]types.SentBroadcastMessage
	sessions   map[int64]types.Session
	nextID     int64

	// Err, when set, is returned by every call.
	Err error
	Now func() time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[int64]*types.User),
		broadcasts: make(map[int64]types.Broadcast),
		sent:       make(map[int64][]types.SentBroadcastMessage),
		sessions:   make(map[int64]types.Session),
		Now:        time.Now,
	}
}

func cloneUser(u *types.User) *types.User {
	c := *u
	if u.SubscriptionEnd != nil {
		t := *u.SubscriptionEnd
		c.SubscriptionEnd = &t
	}
	if u.SystemPrompt != nil {
		p := *u.SystemPrompt
		c.SystemPrompt = &p
	}
	if u.Temperature != nil {
		v := *u.Temperature
		c.Temperature = &v
	}
	return &c
}

// Put inserts or replaces a user row as is.
func (s *Store) Put(u types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.Now()
	}
	s.users[u.UserID] = cloneUser(&u)
}

// RequestCount returns every logged request of a user regardless of date.
func (s *Store) RequestCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.userID == userID {
			n++
		}
	}
	return n
}

func (s *Store) AddUser(_ context.Context, userID int64, displayName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	name := strings.TrimPrefix(strings.TrimSpace(displayName), "@")
	if u, ok := s.users[userID]; ok {
		u.DisplayName = name
		return false, nil
	}
	s.users[userID] = &types.User{UserID: userID, DisplayName: name, CreatedAt: s.Now()}
	return true, nil
}

func (s *Store) GetUser(_ context.Context, userID int64) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) FindByDisplayName(_ context.Context, name string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	for _, u := range s.users {
		if u.DisplayName != "" && strings.EqualFold(u.DisplayName, name) {
			return cloneUser(u), nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *Store) update(userID int64, fn func(u *types.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[userID]
	if !ok {
		return types.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *Store) SetSubscription(_ context.Context, userID int64, level types.Level, expiresAt *time.Time) error {
	return s.update(userID, func(u *types.User) {
		u.Level = level
		u.SubscriptionEnd = nil
		if expiresAt != nil {
			t := *expiresAt
			u.SubscriptionEnd = &t
		}
	})
}

func (s *Store) ExpireSubscription(_ context.Context, userID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	u, ok := s.users[userID]
	if !ok || !u.Expired(now) {
		return false, nil
	}
	u.Level = types.LevelFree
	u.SubscriptionEnd = nil
	return true, nil
}

func (s *Store) SetBlocked(_ context.Context, userID int64, blocked bool) error {
	return s.update(userID, func(u *types.User) { u.IsBlocked = blocked })
}

func (s *Store) SetLastModel(_ context.Context, userID int64, model string) error {
	return s.update(userID, func(u *types.User) { u.LastModel = model })
}

func (s *Store) SetSystemPrompt(_ context.Context, userID int64, prompt *string) error {
	return s.update(userID, func(u *types.User) {
		u.SystemPrompt = nil
		if prompt != nil {
			p := *prompt
			u.SystemPrompt = &p
		}
	})
}

func (s *Store) SetTemperature(_ context.Context, userID int64, temperature *float64) error {
	return s.update(userID, func(u *types.User) {
		u.Temperature = nil
		if temperature != nil {
			v := *temperature
			u.Temperature = &v
		}
	})
}

func (s *Store) sortedUsers() []*types.User {
	out := make([]*types.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (s *Store) ListUserIDs(_ context.Context, excludeBlocked bool) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	ids := make([]int64, 0, len(s.users))
	for _, u := range s.sortedUsers() {
		if excludeBlocked && u.IsBlocked {
			continue
		}
		ids = append(ids, u.UserID)
	}
	return ids, nil
}

func (s *Store) ListUsers(_ context.Context, offset, limit int) ([]types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	all := s.sortedUsers()
	out := make([]types.User, 0, limit)
	for i := offset; i < len(all) && len(out) < limit; i++ {
		if i < 0 {
			continue
		}
		out = append(out, *cloneUser(all[i]))
	}
	return out, nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return len(s.users), nil
}

func (s *Store) LevelStats(_ context.Context) (map[types.Level]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	stats := make(map[types.Level]int)
	for _, u := range s.users {
		stats[u.Level]++
	}
	return stats, nil
}

func (s *Store) RegistrationStats(_ context.Context, now time.Time, loc *time.Location) (types.RegistrationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st types.RegistrationStats
	if s.Err != nil {
		return st, s.Err
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)
	week := today.AddDate(0, 0, -6)
	month := today.AddDate(0, 0, -29)
	for _, u := range s.users {
		c := u.CreatedAt
		if !c.Before(today) {
			st.Today++
		}
		if !c.Before(yesterday) && c.Before(today) {
			st.Yesterday++
		}
		if !c.Before(week) {
			st.Last7Days++
		}
		if !c.Before(month) {
			st.Last30Days++
		}
	}
	return st, nil
}

func (s *Store) ResetExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, u := range s.users {
		if u.Expired(now) {
			u.Level = types.LevelFree
			u.SubscriptionEnd = nil
			n++
		}
	}
	return n, nil
}

func (s *Store) ResetAllSubscriptions(_ context.Context, exclude []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var n int64
	for _, u := range s.users {
		if _, ok := skip[u.UserID]; ok || u.Level == types.LevelFree {
			continue
		}
		u.Level = types.LevelFree
		u.SubscriptionEnd = nil
		n++
	}
	return n, nil
}

func (s *Store) AddRequest(_ context.Context, userID int64, model string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.requests = append(s.requests, request{userID: userID, model: model, at: at})
	return nil
}

func (s *Store) CountRequests(_ context.Context, userID int64, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	n := 0
	for _, r := range s.requests {
		if r.userID == userID && !r.at.Before(from) && r.at.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateBroadcast(_ context.Context, text string, initiatorID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.nextID++
	s.broadcasts[s.nextID] = types.Broadcast{ID: s.nextID, Text: text, InitiatorID: initiatorID, CreatedAt: s.Now()}
	return s.nextID, nil
}

func (s *Store) AddSentMessage(_ context.Context, broadcastID, userID int64, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.broadcasts[broadcastID]; !ok {
		return types.ErrNotFound
	}
	list := s.sent[broadcastID]
	for i := range list {
		if list[i].UserID == userID {
			list[i].MessageID = messageID
			return nil
		}
	}
	s.sent[broadcastID] = append(list, types.SentBroadcastMessage{BroadcastID: broadcastID, UserID: userID, MessageID: messageID})
	return nil
}

func (s *Store) SentMessages(_ context.Context, broadcastID int64) ([]types.SentBroadcastMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]types.SentBroadcastMessage(nil), s.sent[broadcastID]...), nil
}

func (s *Store) DeleteBroadcast(_ context.Context, broadcastID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.broadcasts[broadcastID]; !ok {
		return false, nil
	}
	delete(s.broadcasts, broadcastID)
	delete(s.sent, broadcastID)
	return true, nil
}

var (
	_ types.UserStore      = (*Store)(nil)
	_ types.RequestStore   = (*Store)(nil)
	_ types.BroadcastStore = (*Store)(nil)
)

func (s *Store) GetSession(_ context.Context, userID int64) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sess, ok := s.sessions[userID]
	if !ok {
		return &types.Session{UserID: userID, State: types.StateIdle}, nil
	}
	sess.Payload.History = append([]types.ChatMessage(nil), sess.Payload.History...)
	return &sess, nil
}

func (s *Store) SaveSession(_ context.Context, session *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	session.UpdatedAt = s.Now()
	c := *session
	c.Payload.History = append([]types.ChatMessage(nil), session.Payload.History...)
	s.sessions[session.UserID] = c
	return nil
}

func (s *Store) ClearSession(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.sessions, userID)
	return nil
}
