package domain

import "errors"

// ErrGameOver is returned when playing on a finished game.
var ErrGameOver = errors.New("game over")

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
    Board Board
    Moves int
}

// New returns a new game with X to move.
func New() Game {
    return Game{Board: InitialState()}
}

// Play marks a for the side to move.
func (g *Game) Play(a Action) error {
    if g.Board.IsTerminal() {
        return ErrGameOver
    }
    next, err := g.Board.Apply(a)
    if err != nil {
        return err
    }
    g.Board = next
    g.Moves++
    return nil
}

func (g Game) Turn() Cell { return g.Board.Turn() }

func (g Game) Over() bool { return g.Board.IsTerminal() }

// Winner returns the winning mark, or Empty while in progress or on a draw.
func (g Game) Winner() Cell {
    w, _ := g.Board.Winner()
    return w
}
