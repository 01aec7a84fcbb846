package web

import (
    "encoding/json"
    "errors"
    "fmt"
    "html/template"
    "io"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "go.uber.org/zap"

    "github.com/jaminalder/tictactoe-engine/internal/app"
    "github.com/jaminalder/tictactoe-engine/internal/domain"
    "github.com/jaminalder/tictactoe-engine/internal/search"
)

type handlers struct {
    svc  *app.Service
    tpl  *templates
    log  *zap.Logger
    opts Options
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
    return renderTemplate(h.tpl.board, "", newBoardData(gs, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
    _ = r.ParseForm()
    var (
        gs  *app.GameState
        err error
    )
    switch r.Form.Get("mode") {
    case "engine":
        side := h.opts.EngineSide
        switch r.Form.Get("engine_side") {
        case "X":
            side = domain.X
        case "O":
            side = domain.O
        }
        gs, err = h.svc.CreateEngineGame(r.Context(), side)
    default:
        gs, err = h.svc.CreateGame()
    }
    if err != nil {
        h.log.Error("create game failed", zap.Error(err))
        http.Error(w, "failed to create", http.StatusInternalServerError)
        return
    }
    http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    // ensure cookie and auto-claim seat
    pid := ensurePlayerCookie(w, r)
    _, _, _ = h.svc.Join(id, pid)

    gs, ok := h.svc.Get(id)
    if !ok {
        http.NotFound(w, r)
        return
    }
    data := struct {
        ID        string
        BoardHTML template.HTML
    }{ID: gs.ID, BoardHTML: template.HTML(h.renderBoard(*gs, ""))}

    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    _, gs, err := h.svc.Join(id, pid)
    if err != nil || gs == nil {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write(h.renderBoard(*gs, ""))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    pid := ensurePlayerCookie(w, r)
    _ = r.ParseForm()
    ri, errR := strconv.Atoi(r.Form.Get("r"))
    ci, errC := strconv.Atoi(r.Form.Get("c"))
    var (
        gs  *app.GameState
        err error
    )
    if errR != nil || errC != nil {
        err = domain.ErrOutOfBounds
    } else {
        gs, err = h.svc.Play(r.Context(), id, pid, domain.Action{Row: ri, Col: ci})
    }
    var errMsg string
    if err != nil {
        if gs == nil {
            if g, ok := h.svc.Get(id); ok {
                gs = g
            }
        }
        errMsg = playErrorMessage(err)
    }
    if gs == nil {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write(h.renderBoard(*gs, errMsg))
}

func playErrorMessage(err error) string {
    switch {
    case errors.Is(err, app.ErrNotYourTurn):
        return "Not your turn"
    case errors.Is(err, app.ErrNotAPlayer):
        return "You are a spectator"
    case errors.Is(err, domain.ErrOccupied):
        return "Cell is occupied"
    case errors.Is(err, domain.ErrOutOfBounds):
        return "Out of bounds"
    case errors.Is(err, domain.ErrGameOver):
        return "Game is over"
    default:
        return "Invalid move"
    }
}

func (h *handlers) hint(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    res, err := h.svc.Hint(r.Context(), id)
    if errors.Is(err, app.ErrNotFound) {
        http.NotFound(w, r)
        return
    }
    if err != nil {
        h.log.Error("hint failed", zap.String("game", id), zap.Error(err))
        http.Error(w, "hint failed", http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    if res.Action == nil {
        _, _ = io.WriteString(w, `<div class="hint">Game is over</div>`)
        return
    }
    _, _ = fmt.Fprintf(w, `<div class="hint">Best move: row %d, column %d (%s)</div>`,
        res.Action.Row, res.Action.Col, scoreLabel(res.Score))
}

func scoreLabel(score int) string {
    switch {
    case score > 0:
        return "X can force a win"
    case score < 0:
        return "O can force a win"
    default:
        return "draw with best play"
    }
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    if _, ok := h.svc.Get(id); !ok {
        http.NotFound(w, r)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("X-Accel-Buffering", "no")
    // In tests or non-EventSource requests, just acknowledge headers and return
    if r.Header.Get("Accept") != "text/event-stream" {
        w.WriteHeader(http.StatusOK)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        w.WriteHeader(http.StatusOK)
        return
    }
    ctx := r.Context()
    ch, unsub := h.svc.Subscribe(ctx, id)
    defer unsub()
    ticker := time.NewTicker(h.opts.Heartbeat)
    defer ticker.Stop()
    flusher.Flush()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            _, _ = io.WriteString(w, ": ping\n\n")
            flusher.Flush()
        case b, ok := <-ch:
            if !ok {
                return
            }
            _, _ = fmt.Fprintf(w, "event: board\n")
            _, _ = fmt.Fprintf(w, "data: %s\n\n", sseData(b))
            flusher.Flush()
        }
    }
}

// sseData folds a multi-line payload onto one data line.
func sseData(b []byte) []byte {
    out := make([]byte, 0, len(b))
    for _, c := range b {
        if c == '\n' || c == '\r' {
            continue
        }
        out = append(out, c)
    }
    return out
}

type analysisRequest struct {
    Board domain.Board `json:"board"`
}

type analysisResponse struct {
    Board   domain.Board   `json:"board"`
    Turn    string         `json:"turn"`
    Outcome string         `json:"outcome"`
    Score   int            `json:"score"`
    Move    *domain.Action `json:"move,omitempty"`
}

type applyRequest struct {
    Board domain.Board `json:"board"`
    Row   int          `json:"row"`
    Col   int          `json:"col"`
}

type applyResponse struct {
    Board   domain.Board `json:"board"`
    Turn    string       `json:"turn"`
    Outcome string       `json:"outcome"`
}

func (h *handlers) bestMove(w http.ResponseWriter, r *http.Request) {
    var req analysisRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeJSONError(h.log, w, http.StatusBadRequest, err.Error())
        return
    }
    if err := req.Board.Validate(); err != nil {
        writeJSONError(h.log, w, http.StatusBadRequest, err.Error())
        return
    }
    res, err := h.svc.Analyze(r.Context(), req.Board)
    if err != nil {
        h.log.Error("analysis failed", zap.Stringer("board", req.Board), zap.Error(err))
        writeJSONError(h.log, w, http.StatusInternalServerError, "analysis failed")
        return
    }
    writeJSON(h.log, w, http.StatusOK, newAnalysisResponse(req.Board, res))
}

func newAnalysisResponse(b domain.Board, res search.Result) analysisResponse {
    return analysisResponse{
        Board:   b,
        Turn:    b.Turn().String(),
        Outcome: b.Outcome().String(),
        Score:   res.Score,
        Move:    res.Action,
    }
}

func (h *handlers) apply(w http.ResponseWriter, r *http.Request) {
    var req applyRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeJSONError(h.log, w, http.StatusBadRequest, err.Error())
        return
    }
    next, err := req.Board.Apply(domain.Action{Row: req.Row, Col: req.Col})
    if err != nil {
        writeJSONError(h.log, w, http.StatusUnprocessableEntity, err.Error())
        return
    }
    writeJSON(h.log, w, http.StatusOK, applyResponse{
        Board:   next,
        Turn:    next.Turn().String(),
        Outcome: next.Outcome().String(),
    })
}

func writeJSON(log *zap.Logger, w http.ResponseWriter, status int, data interface{}) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(data); err != nil {
        log.Error("writeJSON encode error", zap.Error(err))
    }
}

func writeJSONError(log *zap.Logger, w http.ResponseWriter, status int, msg string) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
    log.Debug("writeJSONError", zap.Int("status", status), zap.String("error", msg))
}
