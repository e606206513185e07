package pipeline

import (
	"slices"
	"sync"

	"voxchat/models"
)

// Snapshot is what front ends render. Entries is a copy.
type Snapshot struct {
	State       models.State   `json:"state"`
	Entries     []models.Entry `json:"entries"`
	Loading     bool           `json:"loading"`
	VoiceOutput bool           `json:"voice_output"`
	LastError   string         `json:"last_error,omitempty"`
}

// Store holds the conversation log and the current pipeline state and
// notifies subscribers on every change.
type Store struct {
	mu          sync.RWMutex
	state       models.State
	entries     []models.Entry
	voiceOutput bool
	lastError   string
	subs        map[int]chan Snapshot
	nextID      int
}

func NewStore(voiceOutput bool) *Store {
	return &Store{
		voiceOutput: voiceOutput,
		subs:        make(map[int]chan Snapshot),
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:       s.state,
		Entries:     slices.Clone(s.entries),
		Loading:     s.state.Loading(),
		VoiceOutput: s.voiceOutput,
		LastError:   s.lastError,
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *Store) VoiceOutput() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceOutput
}

// Subscribe returns a channel receiving the current snapshot and every
// later one. Slow readers only miss intermediate snapshots.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 8)
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// update applies fn under the lock and publishes the result.
func (s *Store) update(fn func()) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// drop the oldest so the newest always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

func (s *Store) setState(st models.State) {
	s.update(func() { s.state = st })
}

func (s *Store) fail(err error) {
	s.update(func() {
		s.state = models.StateFailed
		s.lastError = err.Error()
	})
}

func (s *Store) setError(err error) {
	s.update(func() { s.lastError = err.Error() })
}

func (s *Store) clearError() {
	s.update(func() { s.lastError = "" })
}

func (s *Store) appendEntry(e models.Entry) {
	s.update(func() { s.entries = append(s.entries, e) })
}

func (s *Store) setVoiceOutput(on bool) {
	s.update(func() { s.voiceOutput = on })
}

// Load replaces the log, used when resuming a stored conversation.
func (s *Store) Load(entries []models.Entry) {
	s.update(func() { s.entries = slices.Clone(entries) })
}

func (s *Store) reset() {
	s.update(func() {
		s.entries = nil
		s.lastError = ""
	})
}
