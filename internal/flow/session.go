package flow

import "sync"

// session is the per-user flow position plus the transfer intent being
// assembled. The zero value is Idle in every flow.
type session struct {
	flow   Flow
	state  State
	intent intent
}

// sessions is process-local, per-user flow state. The map is guarded for
// memory safety only; a user's own flow is deliberately not serialized —
// racing confirmations are resolved by the datastore's uniqueness
// constraint on the idempotency key, not here.
type sessions struct {
	mu     sync.Mutex
	byUser map[int64]session
}

func newSessions() *sessions {
	return &sessions{byUser: make(map[int64]session)}
}

func (s *sessions) get(userId int64) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUser[userId]
}

func (s *sessions) put(userId int64, sess session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userId] = sess
}

// clear resets the user to Idle. Safe at any point: no step before the
// confirmation's irreversible call mutates balances, so an abandoned
// session leaves no residue.
func (s *sessions) clear(userId int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userId)
}
