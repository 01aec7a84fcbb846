package web

import (
    "bytes"
    "html/template"
    "net/http"

    "github.com/jaminalder/tictactoe-engine/internal/app"
    "github.com/jaminalder/tictactoe-engine/internal/domain"
)

type templates struct {
    base  *template.Template
    game  *template.Template
    board *template.Template
    index *template.Template
}

func funcs() template.FuncMap {
    return template.FuncMap{
        "iter": func(n int) []int {
            a := make([]int, n)
            for i := range a {
                a[i] = i
            }
            return a
        },
        "cellSymbol": func(c domain.Cell) string {
            if c == domain.Empty {
                return ""
            }
            return c.String()
        },
        "add": func(a, b int) int { return a + b },
        "mul": func(a, b int) int { return a * b },
    }
}

func loadTemplates() *templates {
    base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
    template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
    index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
    game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{.BoardHTML}}</div>
</div>
<button hx-get="/game/{{.ID}}/hint" hx-target="#hint">Hint</button>
<div id="hint"></div>`))
    board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
    return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
    var buf bytes.Buffer
    if name == "" {
        _ = t.Execute(&buf, data)
    } else {
        _ = t.ExecuteTemplate(&buf, name, data)
    }
    return buf.Bytes()
}

const indexTemplate = `<h1>TicTacToe</h1>
<form action="/game" method="post">
  <select name="mode">
    <option value="pvp">Two players</option>
    <option value="engine">Against the engine</option>
  </select>
  <select name="engine_side">
    <option value="">Engine default</option>
    <option value="X">Engine plays X</option>
    <option value="O">Engine plays O</option>
  </select>
  <button>Create</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit">{{cellSymbol (index $.Board (add (mul $r 3) $c))}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
</div>
`

type boardData struct {
    ID     string
    Board  domain.Board
    Status string
    Error  string
}

func newBoardData(gs app.GameState, errMsg string) boardData {
    return boardData{ID: gs.ID, Board: gs.Game.Board, Status: statusLine(gs.Game.Board), Error: errMsg}
}

func statusLine(b domain.Board) string {
    switch b.Outcome() {
    case domain.XWins:
        return "X wins"
    case domain.OWins:
        return "O wins"
    case domain.Draw:
        return "Draw"
    default:
        return b.Turn().String() + " to move"
    }
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
    if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
        return c.Value
    }
    v := app.NewPlayerID()
    http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
    return v
}
