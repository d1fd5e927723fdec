// Package relay orders and fans out the commands of two-player games. It
// never runs the rules: each submission is checked for well-formedness and
// slot ownership, stamped with the game's next sequence number, recorded, and
// delivered to every connected replica, which applies it locally.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

var (
	// ErrGameNotFound is returned for an unknown or closed game code.
	ErrGameNotFound = errors.New("game not found")
	// ErrBadSlot is returned for a slot other than p1 or p2.
	ErrBadSlot = errors.New("slot must be p1 or p2")
	// ErrSlotTaken is returned when a slot has already been claimed.
	ErrSlotTaken = errors.New("slot already claimed")
	// ErrBadToken is returned when a slot token does not match.
	ErrBadToken = errors.New("invalid slot token")
	// ErrMalformed is returned for a submission that is not a known command.
	ErrMalformed = errors.New("malformed command")
	// ErrWrongSlot is returned when a command names the other player.
	ErrWrongSlot = errors.New("command names another player")
)

// game is one relayed game: its claimed slots, ordered log, and subscribers.
type game struct {
	mu      sync.Mutex
	code    string
	tokens  map[string][]byte
	log     []command.Envelope
	subs    map[*outbox]struct{}
	timer   *IdleTimer
	started bool
	closed  bool
	logger  *zap.Logger
}

// Hub tracks every open game. All methods are safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	games    map[string]*game
	registry *command.Registry
	store    Store
	cfg      config.RelayConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewHub creates an empty Hub.
//
// Precondition: registry, store, and logger must be non-nil.
func NewHub(cfg config.RelayConfig, registry *command.Registry, store Store, logger *zap.Logger) *Hub {
	return &Hub{
		games:    make(map[string]*game),
		registry: registry,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Len returns the number of open games.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games)
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create opens a new game and returns its code.
//
// Postcondition: the game is open with no claimed slots and an empty log.
func (h *Hub) Create(ctx context.Context) (string, error) {
	h.mu.Lock()
	code := newCode()
	for h.games[code] != nil {
		code = newCode()
	}
	g := &game{
		code:   code,
		tokens: make(map[string][]byte, 2),
		subs:   make(map[*outbox]struct{}),
		logger: observability.ForGame(h.logger, code, ""),
		timer:  NewIdleTimer(h.cfg.IdleTimeout, func() { h.expire(code) }),
	}
	h.games[code] = g
	h.mu.Unlock()

	if err := h.store.CreateGame(ctx, code, h.now().UTC()); err != nil {
		g.timer.Stop()
		h.mu.Lock()
		delete(h.games, code)
		h.mu.Unlock()
		return "", fmt.Errorf("recording game %s: %w", code, err)
	}
	g.logger.Info("game created")
	return code, nil
}

func (h *Hub) game(code string) (*game, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.games[code]
	if !ok {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// Claim reserves slot in game code and returns the bearer token for it. Only
// a bcrypt hash of the token is kept.
//
// Postcondition: exactly one Claim per slot succeeds.
func (h *Hub) Claim(code, slot string) (string, error) {
	if !state.PlayerID(slot).Valid() {
		return "", ErrBadSlot
	}
	g, err := h.game(code)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), h.cfg.TokenCost)
	if err != nil {
		return "", fmt.Errorf("hashing slot token: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return "", ErrGameNotFound
	}
	if _, taken := g.tokens[slot]; taken {
		return "", ErrSlotTaken
	}
	g.tokens[slot] = hash
	g.logger.Info("slot claimed", zap.String("slot", slot))
	return token, nil
}

func (g *game) authenticate(slot, token string) error {
	hash, ok := g.tokens[slot]
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
		return ErrBadToken
	}
	return nil
}

// subscribe authenticates slot and registers a new outbox for it.
//
// Postcondition: the returned backlog and the outbox together hold every
// envelope exactly once, in order.
func (h *Hub) subscribe(code, slot, token string) (*outbox, []command.Envelope, error) {
	g, err := h.game(code)
	if err != nil {
		return nil, nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, nil, ErrGameNotFound
	}
	if err := g.authenticate(slot, token); err != nil {
		return nil, nil, err
	}
	ob := newOutbox(slot, h.cfg.OutboxSize)
	g.subs[ob] = struct{}{}
	g.logger.Info("replica connected",
		zap.String("slot", slot),
		zap.Int("backlog", len(g.log)),
		zap.Int("subscribers", len(g.subs)),
	)
	return ob, append([]command.Envelope(nil), g.log...), nil
}

// unsubscribe removes and closes ob.
func (h *Hub) unsubscribe(code string, ob *outbox) {
	g, err := h.game(code)
	if err == nil {
		g.mu.Lock()
		delete(g.subs, ob)
		g.mu.Unlock()
	}
	ob.Close()
}

// Backlog returns the ordered log of game code.
func (h *Hub) Backlog(code string) ([]command.Envelope, error) {
	g, err := h.game(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]command.Envelope(nil), g.log...), nil
}

// Submit checks raw as a command from slot, stamps it, records it, and fans
// it out to every subscriber of game code.
//
// Precondition: slot has been authenticated for code.
// Postcondition: on success the envelope's Seq is one more than the previous one.
func (h *Hub) Submit(ctx context.Context, code, slot string, raw []byte) (command.Envelope, error) {
	cmd, err := command.Decode(raw)
	if err != nil {
		return command.Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !h.registry.Known(cmd.Type) {
		return command.Envelope{}, fmt.Errorf("%w: unknown command type %q", ErrMalformed, cmd.Type)
	}
	if p, ok := cmd.Payload.Text(command.FieldPlayer); ok && p != slot {
		return command.Envelope{}, fmt.Errorf("%w: %s submitted a command for %s", ErrWrongSlot, slot, p)
	}

	g, err := h.game(code)
	if err != nil {
		return command.Envelope{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return command.Envelope{}, ErrGameNotFound
	}

	env := command.Envelope{
		Seq:     uint64(len(g.log)) + 1,
		Slot:    slot,
		At:      h.now().UTC(),
		Command: cmd,
	}
	if !g.started {
		if err := h.store.StartGame(ctx, code, env.At); err != nil {
			return command.Envelope{}, fmt.Errorf("recording game start: %w", err)
		}
		g.started = true
	}
	if err := h.store.AppendCommand(ctx, code, env); err != nil {
		return command.Envelope{}, fmt.Errorf("recording command %d: %w", env.Seq, err)
	}
	g.log = append(g.log, env)
	g.timer.Touch()

	frame := encode(Message{Kind: KindEnvelope, Envelope: &env})
	for ob := range g.subs {
		if err := ob.Push(frame); err != nil {
			g.logger.Warn("dropping slow replica", zap.String("slot", ob.slot), zap.Error(err))
			delete(g.subs, ob)
			ob.Close()
		}
	}
	g.logger.Debug("command relayed",
		zap.Uint64("seq", env.Seq),
		zap.String("slot", slot),
		zap.String("command", string(cmd.Type)),
		zap.Int("subscribers", len(g.subs)),
	)
	return env, nil
}

func (h *Hub) expire(code string) {
	h.logger.Info("game idle", zap.String("game", code))
	if err := h.Close(context.Background(), code); err != nil && !errors.Is(err, ErrGameNotFound) {
		h.logger.Error("closing idle game", zap.String("game", code), zap.Error(err))
	}
}

// Close ends game code: subscribers receive a closed frame and are
// disconnected, and the end time is recorded.
//
// Postcondition: the code is no longer open.
func (h *Hub) Close(ctx context.Context, code string) error {
	h.mu.Lock()
	g, ok := h.games[code]
	delete(h.games, code)
	h.mu.Unlock()
	if !ok {
		return ErrGameNotFound
	}

	g.mu.Lock()
	g.closed = true
	g.timer.Stop()
	frame := encode(Message{Kind: KindClosed})
	for ob := range g.subs {
		_ = ob.Push(frame)
		ob.Close()
	}
	g.subs = nil
	n := len(g.log)
	g.mu.Unlock()

	g.logger.Info("game closed", zap.Int("commands", n))
	if err := h.store.EndGame(ctx, code, h.now().UTC()); err != nil {
		return fmt.Errorf("recording game end: %w", err)
	}
	return nil
}

// Shutdown closes every open game.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.RLock()
	codes := make([]string, 0, len(h.games))
	for code := range h.games {
		codes = append(codes, code)
	}
	h.mu.RUnlock()
	for _, code := range codes {
		if err := h.Close(ctx, code); err != nil && !errors.Is(err, ErrGameNotFound) {
			h.logger.Error("closing game", zap.String("game", code), zap.Error(err))
		}
	}
}
