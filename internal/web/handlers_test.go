package web

import (
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"

    "go.uber.org/zap"

    "github.com/jaminalder/tictactoe-engine/internal/app"
    "github.com/jaminalder/tictactoe-engine/internal/domain"
    "github.com/jaminalder/tictactoe-engine/internal/search"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
    t.Helper()
    log := zap.NewNop()
    s := app.NewService(search.NewEngine(search.Options{Parallel: true}, log), log)
    h := NewServer(s, log, Options{})
    return s, h
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest("POST", path, strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    return rr
}

func TestIndexPage(t *testing.T) {
    _, h := newTestServer(t)
    req := httptest.NewRequest("GET", "/", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    body := rr.Body.String()
    if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
        t.Fatalf("index should contain create form; got body: %q", body)
    }
    if !strings.Contains(body, "value=\"engine\"") {
        t.Fatalf("index should offer an engine game; got body: %q", body)
    }
}

func TestCreateRedirectsToGame(t *testing.T) {
    _, h := newTestServer(t)
    req := httptest.NewRequest("POST", "/game", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
        t.Fatalf("expected redirect, got %d", rr.Code)
    }
    loc := rr.Result().Header.Get("Location")
    if !strings.HasPrefix(loc, "/game/") {
        t.Fatalf("expected redirect to /game/{id}, got %q", loc)
    }
}

func TestCreateEngineGameAsX(t *testing.T) {
    svc, h := newTestServer(t)
    form := url.Values{"mode": {"engine"}, "engine_side": {"X"}}
    req := httptest.NewRequest("POST", "/game", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusSeeOther {
        t.Fatalf("expected redirect, got %d", rr.Code)
    }
    id := strings.TrimPrefix(rr.Result().Header.Get("Location"), "/game/")
    gs, ok := svc.Get(id)
    if !ok {
        t.Fatalf("game %q not found", id)
    }
    if gs.EngineSide() != domain.X || gs.Game.Moves != 1 {
        t.Fatalf("expected engine to hold X and open, side=%v moves=%d", gs.EngineSide(), gs.Game.Moves)
    }
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame()

    req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    var playerID string
    for _, c := range rr.Result().Cookies() {
        if c.Name == "player_id" {
            playerID = c.Value
            break
        }
    }
    if playerID == "" {
        t.Fatalf("expected player_id cookie to be set")
    }
    latest, ok := svc.Get(gs.ID)
    if !ok || (latest.X != playerID && latest.O != playerID) {
        t.Fatalf("expected auto-claim X or O; have X=%q O=%q pid=%q", latest.X, latest.O, playerID)
    }
    body := rr.Body.String()
    if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
        t.Fatalf("expected SSE wiring in page; got body: %q", body)
    }
    if !strings.Contains(body, "X to move") {
        t.Fatalf("expected status line in page; got body: %q", body)
    }
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame()
    req1 := httptest.NewRequest("GET", "/game/"+gs.ID, nil)
    h.ServeHTTP(httptest.NewRecorder(), req1)

    req := httptest.NewRequest("POST", "/game/"+gs.ID+"/join", nil)
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p2"})
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if !strings.Contains(rr.Body.String(), "id=\"board\"") {
        t.Fatalf("expected board fragment, got %q", rr.Body.String())
    }
    latest, _ := svc.Get(gs.ID)
    if latest.O != "p2" && latest.X != "p2" {
        t.Fatalf("expected seat for p2, got X=%q O=%q", latest.X, latest.O)
    }
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame()
    svc.Join(gs.ID, "p1")
    svc.Join(gs.ID, "p2")

    form := url.Values{"r": {"0"}, "c": {"0"}}
    req := httptest.NewRequest("POST", "/game/"+gs.ID+"/play", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p1"})
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if !strings.Contains(rr.Body.String(), "id=\"board\"") {
        t.Fatalf("expected board fragment, got %q", rr.Body.String())
    }
    latest, _ := svc.Get(gs.ID)
    if latest.Game.Moves != 1 {
        t.Fatalf("expected move applied, moves=%d", latest.Game.Moves)
    }

    // same cell again from O is rejected with a message
    req = httptest.NewRequest("POST", "/game/"+gs.ID+"/play", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p2"})
    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if !strings.Contains(rr.Body.String(), "Cell is occupied") {
        t.Fatalf("expected occupied message, got %q", rr.Body.String())
    }
}

func TestHintEndpoint(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame()
    req := httptest.NewRequest("GET", "/game/"+gs.ID+"/hint", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if !strings.Contains(rr.Body.String(), "row 0, column 0") || !strings.Contains(rr.Body.String(), "draw") {
        t.Fatalf("expected opening hint, got %q", rr.Body.String())
    }

    req = httptest.NewRequest("GET", "/game/missing/hint", nil)
    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404 for unknown game, got %d", rr.Code)
    }
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
    _, h := newTestServer(t)
    reqCreate := httptest.NewRequest("POST", "/game", nil)
    rrCreate := httptest.NewRecorder()
    h.ServeHTTP(rrCreate, reqCreate)
    loc := rrCreate.Result().Header.Get("Location")
    if loc == "" {
        t.Fatalf("missing redirect location")
    }
    req := httptest.NewRequest("GET", loc+"/events", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    ct := rr.Result().Header.Get("Content-Type")
    if !strings.HasPrefix(ct, "text/event-stream") {
        io.Copy(io.Discard, rr.Result().Body)
        t.Fatalf("expected text/event-stream, got %q", ct)
    }
}

func TestBestMoveAPI(t *testing.T) {
    _, h := newTestServer(t)

    rr := postJSON(t, h, "/api/best-move", `{"board":"XX./.O./..."}`)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
    }
    var resp struct {
        Board   string         `json:"board"`
        Turn    string         `json:"turn"`
        Outcome string         `json:"outcome"`
        Score   int            `json:"score"`
        Move    *domain.Action `json:"move"`
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if resp.Turn != "O" || resp.Outcome != "in_progress" || resp.Score != 0 {
        t.Fatalf("unexpected analysis: %+v", resp)
    }
    if resp.Move == nil || *resp.Move != (domain.Action{Row: 0, Col: 2}) {
        t.Fatalf("expected block at (0,2), got %v", resp.Move)
    }
    if resp.Board != "XX./.O./..." {
        t.Fatalf("expected board echoed, got %q", resp.Board)
    }

    rr = postJSON(t, h, "/api/best-move", `{"board":"XOX/XOO/OXX"}`)
    resp.Move = nil
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if rr.Code != http.StatusOK || resp.Move != nil || resp.Outcome != "draw" {
        t.Fatalf("expected terminal draw with no move, got %d %s", rr.Code, rr.Body.String())
    }
}

func TestBestMoveAPIRejectsBadBoards(t *testing.T) {
    _, h := newTestServer(t)
    for _, body := range []string{`{"board":"XX"}`, `{"board":"OO./.../..."}`, `not json`} {
        rr := postJSON(t, h, "/api/best-move", body)
        if rr.Code != http.StatusBadRequest {
            t.Fatalf("expected 400 for %s, got %d", body, rr.Code)
        }
        if !strings.Contains(rr.Body.String(), "\"error\"") {
            t.Fatalf("expected error body for %s, got %s", body, rr.Body.String())
        }
    }
}

func TestApplyAPI(t *testing.T) {
    _, h := newTestServer(t)
    rr := postJSON(t, h, "/api/apply", `{"board":"XX./OO./...","row":0,"col":2}`)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
    }
    var resp struct {
        Board   string `json:"board"`
        Outcome string `json:"outcome"`
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if resp.Board != "XXX/OO./..." || resp.Outcome != "x_wins" {
        t.Fatalf("unexpected apply result: %+v", resp)
    }

    for _, body := range []string{
        `{"board":"XX./OO./...","row":0,"col":0}`,
        `{"board":"XX./OO./...","row":3,"col":0}`,
    } {
        rr = postJSON(t, h, "/api/apply", body)
        if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "invalid move") {
            t.Fatalf("expected 422 invalid move for %s, got %d %s", body, rr.Code, rr.Body.String())
        }
    }
}

func TestEventsUnknownGame(t *testing.T) {
    svc, h := newTestServer(t)
    req := httptest.NewRequest("GET", "/game/missing/events", nil)
    req.Header.Set("Accept", "text/event-stream")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rr.Code)
    }
    if _, ok := svc.Get("missing"); ok {
        t.Fatalf("events request must not create a game")
    }
}
