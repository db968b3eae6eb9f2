package game

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cbodonnell/wordchain/pkg/dictionary"
	"github.com/cbodonnell/wordchain/pkg/game/constants"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/queue"
	"github.com/samber/lo"
)

// Connection is the outbound side of a client connection.
type Connection interface {
	// Send queues line for delivery. It must not block.
	Send(line string) error
	Close() error
	RemoteAddr() string
}

// Player is a copy of a registry entry.
type Player struct {
	ID     uint32 `json:"id"`
	Slot   int    `json:"slot"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Score  int    `json:"score"`
	IsHost bool   `json:"isHost"`
	Ready  bool   `json:"ready"`
}

type player struct {
	Player
	conn     Connection
	inbox    queue.Queue[*messages.TurnSubmission]
	departed chan struct{}
}

type match struct {
	active    bool
	id        string
	letter    rune
	usedWords []string
	order     *TurnOrder
}

// MatchSnapshot is a copy of the match fields.
type MatchSnapshot struct {
	Active        bool     `json:"active"`
	ID            string   `json:"id,omitempty"`
	Letter        string   `json:"letter,omitempty"`
	Cycle         int      `json:"cycle"`
	UsedWords     []string `json:"usedWords"`
	CurrentPlayer string   `json:"currentPlayer,omitempty"`
	TurnOrder     []string `json:"turnOrder"`
}

// Registry owns the connected players and the match state.
// Every field is guarded by one lock.
type Registry struct {
	mu        sync.Mutex
	capacity  int
	inboxSize int
	nextID    uint32
	players   []*player
	match     match
}

// NewRegistryOptions contains options for creating a new Registry.
type NewRegistryOptions struct {
	Capacity  int
	InboxSize int
}

func NewRegistry(opts NewRegistryOptions) *Registry {
	if opts.Capacity <= 0 {
		opts.Capacity = constants.MaxPlayers
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = constants.InboxSize
	}
	return &Registry{
		capacity:  opts.Capacity,
		inboxSize: opts.InboxSize,
	}
}

// Capacity returns the maximum number of connected players.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Accept adds an unregistered player for conn. The slot is the number of
// players connected at that moment, so only the first connection is host.
func (r *Registry) Accept(conn Connection) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= r.capacity {
		return Player{}, ErrServerFull
	}

	r.nextID++
	slot := len(r.players)
	p := &player{
		Player: Player{
			ID:     r.nextID,
			Slot:   slot,
			IsHost: slot == 0,
		},
		conn:     conn,
		inbox:    queue.NewInMemoryQueue[*messages.TurnSubmission](r.inboxSize),
		departed: make(chan struct{}),
	}
	r.players = append(r.players, p)
	return p.Player, nil
}

// Register names a connected player and marks them ready.
func (r *Registry) Register(id uint32, name string, avatar string) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.find(id)
	if p == nil {
		return Player{}, ErrPlayerNotFound
	}
	if p.Ready {
		return Player{}, ErrAlreadyRegistered
	}
	for _, other := range r.players {
		if other.Ready && other.Name == name {
			return Player{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
	}

	p.Name = name
	p.Avatar = avatar
	p.Ready = true
	return p.Player, nil
}

// Remove drops a player, signals their departure and takes them out of the turn order.
func (r *Registry) Remove(id uint32) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.players {
		if p.ID != id {
			continue
		}
		r.players = append(r.players[:i], r.players[i+1:]...)
		close(p.departed)
		p.inbox.Clear()
		if r.match.order != nil {
			r.match.order.Remove(id)
		}
		return p.Player, true
	}
	return Player{}, false
}

// TryStart checks that id may start a match and marks one active.
func (r *Registry) TryStart(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.find(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if r.match.active {
		return ErrMatchActive
	}
	if r.readyCount() < constants.MinPlayers {
		return ErrNotEnoughPlayers
	}
	r.match.active = true
	return nil
}

// Submit queues a turn submission for player id.
func (r *Registry) Submit(id uint32, s *messages.TurnSubmission) error {
	r.mu.Lock()
	p := r.find(id)
	r.mu.Unlock()
	if p == nil {
		return ErrPlayerNotFound
	}
	if err := p.inbox.Enqueue(s); err != nil {
		return fmt.Errorf("failed to queue submission for player %d: %w", id, err)
	}
	return nil
}

// Player returns a copy of player id.
func (r *Registry) Player(id uint32) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.find(id)
	if p == nil {
		return Player{}, false
	}
	return p.Player, true
}

// Players returns copies of all connected players in slot order.
func (r *Registry) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.players, func(p *player, _ int) Player {
		return p.Player
	})
}

// Count returns the number of connected players.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Connections returns the connection of every connected player.
func (r *Registry) Connections() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.players, func(p *player, _ int) Connection {
		return p.conn
	})
}

// Connection returns the connection of player id.
func (r *Registry) Connection(id uint32) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.find(id)
	if p == nil {
		return nil, false
	}
	return p.conn, true
}

// Scores returns the registered players' scores in slot order.
func (r *Registry) Scores() []messages.ScoreEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scores()
}

// Match returns a copy of the match fields.
func (r *Registry) Match() MatchSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := MatchSnapshot{
		Active:    r.match.active,
		ID:        r.match.id,
		UsedWords: append([]string{}, r.match.usedWords...),
		TurnOrder: []string{},
	}
	if r.match.letter != 0 {
		m.Letter = string(r.match.letter)
	}
	if r.match.order != nil {
		m.Cycle = r.match.order.Cycle()
		m.TurnOrder = lo.Map(r.match.order.IDs(), func(id uint32, _ int) string {
			return r.nameOf(id)
		})
		if id, ok := r.match.order.Peek(); ok {
			m.CurrentPlayer = r.nameOf(id)
		}
	}
	return m
}

func (r *Registry) find(id uint32) *player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Registry) nameOf(id uint32) string {
	if p := r.find(id); p != nil {
		return p.Name
	}
	return ""
}

func (r *Registry) readyCount() int {
	return lo.CountBy(r.players, func(p *player) bool {
		return p.Ready
	})
}

func (r *Registry) scores() []messages.ScoreEntry {
	ready := lo.Filter(r.players, func(p *player, _ int) bool {
		return p.Ready
	})
	return lo.Map(ready, func(p *player, _ int) messages.ScoreEntry {
		return messages.ScoreEntry{Name: p.Name, Score: p.Score}
	})
}

// turn is what the loop needs to run one player's turn.
type turn struct {
	playerID uint32
	name     string
	score    int
	conn     Connection
	inbox    queue.Queue[*messages.TurnSubmission]
	departed <-chan struct{}
	letter   rune
	lastWord string
	cycle    int
}

// beginMatch resets the match fields and fixes the turn order to the ready players.
func (r *Registry) beginMatch(matchID string, letter rune) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ready := lo.Filter(r.players, func(p *player, _ int) bool {
		return p.Ready
	})
	ids := lo.Map(ready, func(p *player, _ int) uint32 {
		return p.ID
	})
	r.match = match{
		active:    true,
		id:        matchID,
		letter:    letter,
		usedWords: []string{},
		order:     NewTurnOrder(ids),
	}
	return ids
}

func (r *Registry) currentTurn() (turn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.match.order == nil {
		return turn{}, false
	}
	id, ok := r.match.order.Current()
	if !ok {
		return turn{}, false
	}
	p := r.find(id)
	if p == nil {
		return turn{}, false
	}
	return turn{
		playerID: p.ID,
		name:     p.Name,
		score:    p.Score,
		conn:     p.conn,
		inbox:    p.inbox,
		departed: p.departed,
		letter:   r.match.letter,
		lastWord: lo.LastOrEmpty(r.match.usedWords),
		cycle:    r.match.order.Cycle(),
	}, true
}

// resolveTurn records an accepted word and applies the score change.
// present is false when the player left before the turn resolved.
func (r *Registry) resolveTurn(t turn, word string, state messages.TurnState, delta int) (score int, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state.Accepted() {
		lower := strings.ToLower(word)
		r.match.usedWords = append(r.match.usedWords, lower)
		if letter, ok := dictionary.NextLetter(lower); ok {
			r.match.letter = letter
		}
	}

	p := r.find(t.playerID)
	if p == nil {
		return t.score + delta, false
	}
	p.Score += delta
	return p.Score, true
}

func (r *Registry) advanceTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.match.order != nil {
		r.match.order.Advance()
	}
}

// endgame returns the final standings with the winner first, then clears the active flag.
func (r *Registry) endgame(winnerID uint32) []messages.ScoreEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]messages.ScoreEntry, 0, len(r.players))
	if w := r.find(winnerID); w != nil {
		entries = append(entries, messages.ScoreEntry{Name: w.Name, Score: w.Score})
	}
	for _, p := range r.players {
		if p.Ready && p.ID != winnerID {
			entries = append(entries, messages.ScoreEntry{Name: p.Name, Score: p.Score})
		}
	}
	r.endMatchLocked()
	return entries
}

func (r *Registry) endMatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endMatchLocked()
}

func (r *Registry) endMatchLocked() {
	r.match.active = false
	r.match.order = nil
}
