package web

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "go.uber.org/zap"

    "github.com/jaminalder/tictactoe-engine/internal/app"
    "github.com/jaminalder/tictactoe-engine/internal/domain"
)

// Options configure the HTTP shell.
type Options struct {
    // EngineSide is the seat the engine takes when a form does not pick one.
    EngineSide domain.Cell
    // Heartbeat is the SSE keep-alive interval.
    Heartbeat time.Duration
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, log *zap.Logger, opts Options) http.Handler {
    if log == nil {
        log = zap.NewNop()
    }
    if opts.EngineSide != domain.X && opts.EngineSide != domain.O {
        opts.EngineSide = domain.O
    }
    if opts.Heartbeat <= 0 {
        opts.Heartbeat = 15 * time.Second
    }
    h := &handlers{svc: s, tpl: loadTemplates(), log: log, opts: opts}
    s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.Recoverer)
    r.Use(requestLogger(log))

    r.Get("/", h.index)
    r.Post("/game", h.create)
    r.Route("/game/{id}", func(r chi.Router) {
        r.Get("/", h.view)
        r.Post("/join", h.join)
        r.Post("/play", h.play)
        r.Get("/hint", h.hint)
        r.Get("/events", h.events)
    })
    r.Route("/api", func(r chi.Router) {
        r.Post("/best-move", h.bestMove)
        r.Post("/apply", h.apply)
    })
    return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            next.ServeHTTP(ww, r)
            log.Debug("request",
                zap.String("method", r.Method),
                zap.String("path", r.URL.Path),
                zap.Int("status", ww.Status()),
                zap.Duration("elapsed", time.Since(start)),
                zap.String("request_id", middleware.GetReqID(r.Context())),
            )
        })
    }
}
