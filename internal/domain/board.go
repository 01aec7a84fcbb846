package domain

import (
    "errors"
    "fmt"
)

// Cell represents a board cell state.
type Cell uint8

const (
    Empty Cell = iota
    X
    O
)

func (c Cell) String() string {
    switch c {
    case X:
        return "X"
    case O:
        return "O"
    default:
        return "."
    }
}

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
    switch c {
    case X:
        return O
    case O:
        return X
    default:
        return Empty
    }
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Action is a coordinate on the board, row and column in 0..2.
type Action struct {
    Row int `json:"row"`
    Col int `json:"col"`
}

func (a Action) String() string { return fmt.Sprintf("(%d,%d)", a.Row, a.Col) }

func (a Action) inBounds() bool { return a.Row >= 0 && a.Row <= 2 && a.Col >= 0 && a.Col <= 2 }

func (a Action) index() int { return a.Row*3 + a.Col }

// Outcome describes the state of play on a board.
type Outcome uint8

const (
    InProgress Outcome = iota
    XWins
    OWins
    Draw
)

func (o Outcome) String() string {
    switch o {
    case XWins:
        return "x_wins"
    case OWins:
        return "o_wins"
    case Draw:
        return "draw"
    default:
        return "in_progress"
    }
}

// Errors returned by board operations.
var (
    ErrInvalidMove = errors.New("invalid move")
    ErrOutOfBounds = errors.New("out of bounds")
    ErrOccupied    = errors.New("cell occupied")
)

var lines = [8][3]int{
    // rows
    {0, 1, 2}, {3, 4, 5}, {6, 7, 8},
    // cols
    {0, 3, 6}, {1, 4, 7}, {2, 5, 8},
    // diags
    {0, 4, 8}, {2, 4, 6},
}

// InitialState returns the empty board.
func InitialState() Board {
    return Board{}
}

// Count returns how many cells hold c.
func (b Board) Count(c Cell) int {
    n := 0
    for _, v := range b {
        if v == c {
            n++
        }
    }
    return n
}

// At returns the cell at a. Out-of-range actions read as Empty.
func (b Board) At(a Action) Cell {
    if !a.inBounds() {
        return Empty
    }
    return b[a.index()]
}

// Turn returns the mark to move. X moves whenever the counts are equal.
func (b Board) Turn() Cell {
    if b.Count(X) > b.Count(O) {
        return O
    }
    return X
}

// Actions returns every empty cell in row-major order.
func (b Board) Actions() []Action {
    out := make([]Action, 0, 9)
    for i, c := range b {
        if c == Empty {
            out = append(out, Action{Row: i / 3, Col: i % 3})
        }
    }
    return out
}

// Apply returns the board after the side to move marks a.
// The receiver is a copy, so the caller's board is never modified.
func (b Board) Apply(a Action) (Board, error) {
    if !a.inBounds() {
        return b, fmt.Errorf("%w %v: %w", ErrInvalidMove, a, ErrOutOfBounds)
    }
    if b[a.index()] != Empty {
        return b, fmt.Errorf("%w %v: %w", ErrInvalidMove, a, ErrOccupied)
    }
    b[a.index()] = b.Turn()
    return b, nil
}

// Winner reports the mark on the first complete line, scanning rows
// top-to-bottom, then columns left-to-right, then the two diagonals.
func (b Board) Winner() (Cell, bool) {
    for _, ln := range lines {
        c := b[ln[0]]
        if c != Empty && b[ln[1]] == c && b[ln[2]] == c {
            return c, true
        }
    }
    return Empty, false
}

// IsTerminal reports whether someone has won or no cell is left.
func (b Board) IsTerminal() bool {
    if _, ok := b.Winner(); ok {
        return true
    }
    return b.Count(Empty) == 0
}

// Utility scores a finished board: +1 for X, -1 for O, 0 otherwise.
// Non-terminal boards also score 0; check IsTerminal first when that matters.
func (b Board) Utility() int {
    w, _ := b.Winner()
    switch w {
    case X:
        return 1
    case O:
        return -1
    default:
        return 0
    }
}

// Outcome derives the state of play.
func (b Board) Outcome() Outcome {
    if w, ok := b.Winner(); ok {
        if w == X {
            return XWins
        }
        return OWins
    }
    if b.Count(Empty) == 0 {
        return Draw
    }
    return InProgress
}
