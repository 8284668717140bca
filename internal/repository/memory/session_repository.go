package memory

import (
	"sync"

	"github.com/lxhmx/text2sql/pkg/store"

	"github.com/patrickmn/go-cache"
)

// DefaultMaxRounds bounds a session's memory to the most recent rounds
// (one round = user turn + assistant turn).
const DefaultMaxRounds = 10

// SessionRepository holds per-session conversation history for the lifetime of
// the process. Entries never expire by time; memory is reclaimed only through
// Clear. Appends to the same session are serialized by a per-session mutex so
// overlapping requests cannot interleave their turn pairs.
type SessionRepository struct {
	cache     *cache.Cache
	maxRounds int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionRepository(maxRounds int) *SessionRepository {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &SessionRepository{
		cache:     cache.New(cache.NoExpiration, 0),
		maxRounds: maxRounds,
		locks:     make(map[string]*sync.Mutex),
	}
}

// History returns a copy of the session's turns, oldest first. Unknown or
// empty session ids yield an empty history.
func (r *SessionRepository) History(sessionID string) []store.Turn {
	if sessionID == "" {
		return nil
	}
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil
	}
	turns := x.([]store.Turn)
	out := make([]store.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records one finished round (user question, assistant answer) and then
// evicts the oldest turns so that at most 2*maxRounds remain. An empty session
// id means stateless mode: nothing is kept.
func (r *SessionRepository) Append(sessionID, userText, assistantText string) {
	if sessionID == "" {
		return
	}

	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	var turns []store.Turn
	if x, found := r.cache.Get(sessionID); found {
		turns = x.([]store.Turn)
	}

	turns = append(turns,
		store.Turn{Role: store.RoleUser, Text: userText},
		store.Turn{Role: store.RoleAssistant, Text: assistantText},
	)

	maxTurns := 2 * r.maxRounds
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	r.cache.Set(sessionID, turns, cache.NoExpiration)
}

// Clear destroys a session's memory.
func (r *SessionRepository) Clear(sessionID string) {
	if sessionID == "" {
		return
	}
	r.cache.Delete(sessionID)

	r.mu.Lock()
	delete(r.locks, sessionID)
	r.mu.Unlock()
}

func (r *SessionRepository) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}
