package app

import (
    "context"
    "errors"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/jaminalder/tictactoe-engine/internal/domain"
    "github.com/jaminalder/tictactoe-engine/internal/search"
)

// Errors exposed by the service layer.
var (
    ErrNotFound    = errors.New("game not found")
    ErrNotYourTurn = errors.New("not your turn")
    ErrNotAPlayer  = errors.New("not a player")
    ErrBoardMoved  = errors.New("board changed during search")
    ErrBadSide     = errors.New("engine side must be X or O")
)

// EngineSeat is the player ID recorded for seats taken by the engine.
const EngineSeat = "engine"

// GameState is the in-memory state tracked per game.
type GameState struct {
    ID      string
    Game    domain.Game
    X       string
    O       string
    Created time.Time
    Updated time.Time
}

// EngineSide returns the mark played by the engine, or Empty for
// games between two people.
func (gs GameState) EngineSide() domain.Cell {
    if gs.X == EngineSeat {
        return domain.X
    }
    if gs.O == EngineSeat {
        return domain.O
    }
    return domain.Empty
}

type subscriber struct {
    ch        chan []byte
    closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers.
type Service struct {
    mu     sync.Mutex
    games  map[string]*GameState
    subs   map[string]map[*subscriber]struct{}
    render func(GameState) []byte
    engine *search.Engine
    log    *zap.Logger
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService(engine *search.Engine, log *zap.Logger) *Service {
    return NewServiceWithRenderer(engine, log, nil)
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(engine *search.Engine, log *zap.Logger, renderer func(GameState) []byte) *Service {
    if renderer == nil {
        renderer = func(gs GameState) []byte { return nil }
    }
    if log == nil {
        log = zap.NewNop()
    }
    if engine == nil {
        engine = search.NewEngine(search.Options{}, log)
    }
    return &Service{
        games:  make(map[string]*GameState),
        subs:   make(map[string]map[*subscriber]struct{}),
        render: renderer,
        engine: engine,
        log:    log,
    }
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if renderer == nil {
        s.render = func(gs GameState) []byte { return nil }
        return
    }
    s.render = renderer
}

// CreateGame creates and registers a game between two people.
func (s *Service) CreateGame() (*GameState, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs := s.newGameLocked()
    s.log.Info("game created", zap.String("game", gs.ID))
    cp := *gs
    return &cp, nil
}

// CreateEngineGame creates a game where the engine holds side. When the
// engine plays X it makes the opening move before returning.
func (s *Service) CreateEngineGame(ctx context.Context, side domain.Cell) (*GameState, error) {
    if side != domain.X && side != domain.O {
        return nil, ErrBadSide
    }
    s.mu.Lock()
    gs := s.newGameLocked()
    if side == domain.X {
        gs.X = EngineSeat
    } else {
        gs.O = EngineSeat
    }
    id := gs.ID
    s.mu.Unlock()
    s.log.Info("engine game created", zap.String("game", id), zap.Stringer("engine", side))

    if side == domain.X {
        if err := s.engineReply(ctx, id); err != nil {
            s.mu.Lock()
            delete(s.games, id)
            s.mu.Unlock()
            return nil, err
        }
    }
    st, _ := s.Get(id)
    return st, nil
}

func (s *Service) newGameLocked() *GameState {
    id := newGameID()
    now := time.Now()
    gs := &GameState{ID: id, Game: domain.New(), Created: now, Updated: now}
    s.games[id] = gs
    return gs
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return nil, false
    }
    cp := *gs
    return &cp, true
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return domain.Empty, nil, ErrNotFound
    }
    side := domain.Empty
    if playerID == EngineSeat {
        cp := *gs
        return side, &cp, nil
    }
    if gs.X == "" || gs.X == playerID {
        gs.X = playerID
        side = domain.X
    } else if gs.O == "" || gs.O == playerID {
        gs.O = playerID
        side = domain.O
    }
    gs.Updated = time.Now()
    cp := *gs
    return side, &cp, nil
}

// Play validates seat and turn, applies a move, lets the engine reply in
// engine games, and broadcasts the resulting board.
func (s *Service) Play(ctx context.Context, id, playerID string, a domain.Action) (*GameState, error) {
    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return nil, ErrNotFound
    }
    // Validate player is seated
    var seat domain.Cell
    if playerID != EngineSeat && gs.X == playerID {
        seat = domain.X
    } else if playerID != EngineSeat && gs.O == playerID {
        seat = domain.O
    } else {
        s.mu.Unlock()
        return nil, ErrNotAPlayer
    }
    // Validate turn
    if seat != gs.Game.Turn() {
        s.mu.Unlock()
        return nil, ErrNotYourTurn
    }
    if err := gs.Game.Play(a); err != nil {
        s.mu.Unlock()
        return nil, err
    }
    gs.Updated = time.Now()
    engineTurn := !gs.Game.Over() && gs.EngineSide() == gs.Game.Turn()
    s.mu.Unlock()

    s.log.Debug("move played", zap.String("game", id), zap.Stringer("side", seat), zap.Stringer("move", a))
    if engineTurn {
        // The human move is already committed, so the reply must not be
        // abandoned when the caller goes away.
        if err := s.engineReply(context.WithoutCancel(ctx), id); err != nil {
            s.log.Error("engine reply failed", zap.String("game", id), zap.Error(err))
            s.broadcast(id)
            return nil, err
        }
    } else {
        s.broadcast(id)
    }
    st, _ := s.Get(id)
    return st, nil
}

// Hint evaluates the current board of a game for the side to move.
func (s *Service) Hint(ctx context.Context, id string) (search.Result, error) {
    st, ok := s.Get(id)
    if !ok {
        return search.Result{}, ErrNotFound
    }
    return s.engine.BestMove(ctx, st.Game.Board)
}

// Analyze evaluates an arbitrary board.
func (s *Service) Analyze(ctx context.Context, b domain.Board) (search.Result, error) {
    return s.engine.BestMove(ctx, b)
}

// engineReply searches outside the lock on a copy of the board, then
// applies the move only if nobody changed the game meanwhile.
func (s *Service) engineReply(ctx context.Context, id string) error {
    st, ok := s.Get(id)
    if !ok {
        return ErrNotFound
    }
    board := st.Game.Board
    res, err := s.engine.BestMove(ctx, board)
    if err != nil {
        return err
    }
    if res.Action == nil {
        s.broadcast(id)
        return nil
    }

    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return ErrNotFound
    }
    if gs.Game.Board != board {
        s.mu.Unlock()
        return ErrBoardMoved
    }
    if err := gs.Game.Play(*res.Action); err != nil {
        s.mu.Unlock()
        return err
    }
    gs.Updated = time.Now()
    s.mu.Unlock()

    s.log.Debug("engine moved", zap.String("game", id), zap.Stringer("move", *res.Action), zap.Int("score", res.Score))
    s.broadcast(id)
    return nil
}

// broadcast renders the game and fans it out; slow subscribers are dropped.
// Sends are non-blocking and happen under the lock, so a subscriber cannot be
// closed by its unsubscribe func while a send to it is in flight.
func (s *Service) broadcast(id string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return
    }
    payload := s.render(*gs)
    dropped := 0
    for sub := range s.subs[id] {
        select {
        case sub.ch <- payload:
        default:
            // drop slow subscriber
            sub.close()
            delete(s.subs[id], sub)
            dropped++
        }
    }
    if dropped > 0 {
        s.log.Debug("dropped slow subscribers", zap.String("game", id), zap.Int("count", dropped))
    }
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
// Unknown games get an already closed channel.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.games[id]; !ok {
        ch := make(chan []byte)
        close(ch)
        return ch, func() {}
    }
    set := s.subs[id]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[id] = set
    }
    sub := &subscriber{ch: make(chan []byte, 1)}
    set[sub] = struct{}{}

    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.mu.Lock()
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
            sub.close()
            s.mu.Unlock()
        })
    }
    go func() {
        <-ctx.Done()
        unsub()
    }()
    return sub.ch, unsub
}
