package domain

import (
    "errors"
    "fmt"
    "strings"
)

var (
    ErrBadBoard    = errors.New("malformed board")
    ErrUnreachable = errors.New("unreachable board")
)

// ParseBoard reads nine cells in row-major order. X and O are marks;
// '.', '_' and '-' are empty. Row separators ('/', newlines) and other
// whitespace are ignored.
func ParseBoard(s string) (Board, error) {
    var b Board
    n := 0
    for _, r := range s {
        var c Cell
        switch r {
        case '/', '\n', '\r', '\t', ' ':
            continue
        case 'X', 'x':
            c = X
        case 'O', 'o':
            c = O
        case '.', '_', '-':
            c = Empty
        default:
            return Board{}, fmt.Errorf("%w: unexpected %q", ErrBadBoard, r)
        }
        if n == len(b) {
            return Board{}, fmt.Errorf("%w: more than 9 cells", ErrBadBoard)
        }
        b[n] = c
        n++
    }
    if n != len(b) {
        return Board{}, fmt.Errorf("%w: got %d cells, want 9", ErrBadBoard, n)
    }
    return b, nil
}

// String renders the board as "XX./OO./...".
func (b Board) String() string {
    var sb strings.Builder
    for i, c := range b {
        if i > 0 && i%3 == 0 {
            sb.WriteByte('/')
        }
        sb.WriteString(c.String())
    }
    return sb.String()
}

func (b Board) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Board) UnmarshalText(text []byte) error {
    parsed, err := ParseBoard(string(text))
    if err != nil {
        return err
    }
    *b = parsed
    return nil
}

// Validate checks the count invariant of legal play: X has the same number
// of marks as O or exactly one more.
func (b Board) Validate() error {
    diff := b.Count(X) - b.Count(O)
    if diff < 0 || diff > 1 {
        return fmt.Errorf("%w: %d X against %d O", ErrUnreachable, b.Count(X), b.Count(O))
    }
    return nil
}
