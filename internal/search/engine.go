package search

import (
    "context"
    "sync/atomic"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/jaminalder/tictactoe-engine/internal/domain"
)

// Options tune the Engine.
type Options struct {
    // Parallel evaluates each top-level action in its own goroutine.
    Parallel bool
}

// Stats describe the most recent search.
type Stats struct {
    Nodes   uint64
    Elapsed time.Duration
}

// Engine wraps the minimax search with logging and optional root fan-out.
type Engine struct {
    opts  Options
    log   *zap.Logger
    nodes atomic.Uint64
    last  atomic.Int64
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(opts Options, log *zap.Logger) *Engine {
    if log == nil {
        log = zap.NewNop()
    }
    return &Engine{opts: opts, log: log}
}

// Stats returns counters from the last completed search.
func (e *Engine) Stats() Stats {
    return Stats{Nodes: e.nodes.Load(), Elapsed: time.Duration(e.last.Load())}
}

// BestMove evaluates b for the side to move. The returned Result has a nil
// Action on terminal boards. ctx is only consulted before the search starts;
// a started search always runs to completion and its result is returned.
func (e *Engine) BestMove(ctx context.Context, b domain.Board) (Result, error) {
    if err := ctx.Err(); err != nil {
        return Result{}, err
    }
    start := time.Now()
    var (
        res   Result
        nodes uint64
        err   error
    )
    if e.opts.Parallel && !b.IsTerminal() {
        res, nodes, err = e.parallel(ctx, b)
    } else {
        res = evaluate(b, &nodes)
    }
    if err != nil {
        return Result{}, err
    }
    elapsed := time.Since(start)
    e.nodes.Store(nodes)
    e.last.Store(int64(elapsed))

    fields := []zap.Field{
        zap.Stringer("board", b),
        zap.Int("score", res.Score),
        zap.Uint64("nodes", nodes),
        zap.Duration("elapsed", elapsed),
        zap.Bool("parallel", e.opts.Parallel),
    }
    if res.Action != nil {
        fields = append(fields, zap.Stringer("move", *res.Action))
    }
    e.log.Debug("search complete", fields...)
    return res, nil
}

// parallel searches each root action in its own goroutine. Every branch
// writes only its own slot; the fold below runs on a single goroutine in
// row-major order so the chosen move matches the sequential search.
func (e *Engine) parallel(ctx context.Context, b domain.Board) (Result, uint64, error) {
    actions := b.Actions()
    scores := make([]int, len(actions))
    counts := make([]uint64, len(actions))
    maximizing := b.Turn() == domain.X

    g, _ := errgroup.WithContext(ctx)
    for i, a := range actions {
        i, a := i, a
        g.Go(func() error {
            next, err := b.Apply(a)
            if err != nil {
                return err
            }
            scores[i] = evaluate(next, &counts[i]).Score
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return Result{}, 0, err
    }

    nodes := uint64(1)
    var best Result
    for i, a := range actions {
        nodes += counts[i]
        if best.better(scores[i], maximizing) {
            a := a
            best = Result{Score: scores[i], Action: &a}
        }
    }
    return best, nodes, nil
}
