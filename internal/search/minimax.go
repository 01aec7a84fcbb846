// Package search finds optimal tic-tac-toe moves by exhaustive minimax.
//
// Scores are from X's point of view: +1 X wins, -1 O wins, 0 draw.
// Actions are tried in row-major order and ties keep the earliest one,
// so results are reproducible.
package search

import "github.com/jaminalder/tictactoe-engine/internal/domain"

// Result is the value of a board under optimal play and the move that
// achieves it. Action is nil exactly when the board is terminal.
type Result struct {
    Score  int
    Action *domain.Action
}

// better reports whether score improves on the running best r for the mover.
func (r Result) better(score int, maximizing bool) bool {
    if r.Action == nil {
        return true
    }
    if maximizing {
        return score > r.Score
    }
    return score < r.Score
}

// Evaluate searches the full game tree below b.
func Evaluate(b domain.Board) Result {
    var nodes uint64
    return evaluate(b, &nodes)
}

// BestMove returns the optimal move for the side to move, or nil when b is terminal.
func BestMove(b domain.Board) *domain.Action {
    return Evaluate(b).Action
}

func evaluate(b domain.Board, nodes *uint64) Result {
    if b.Turn() == domain.X {
        return maxValue(b, nodes)
    }
    return minValue(b, nodes)
}

func maxValue(b domain.Board, nodes *uint64) Result {
    *nodes++
    if b.IsTerminal() {
        return Result{Score: b.Utility()}
    }
    var best Result
    for _, a := range b.Actions() {
        // a comes from Actions, so Apply cannot fail
        next, _ := b.Apply(a)
        v := minValue(next, nodes)
        if best.better(v.Score, true) {
            a := a
            best = Result{Score: v.Score, Action: &a}
        }
    }
    return best
}

func minValue(b domain.Board, nodes *uint64) Result {
    *nodes++
    if b.IsTerminal() {
        return Result{Score: b.Utility()}
    }
    var best Result
    for _, a := range b.Actions() {
        // a comes from Actions, so Apply cannot fail
        next, _ := b.Apply(a)
        v := maxValue(next, nodes)
        if best.better(v.Score, false) {
            a := a
            best = Result{Score: v.Score, Action: &a}
        }
    }
    return best
}
