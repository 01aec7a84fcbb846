package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "github.com/jaminalder/tictactoe-engine/internal/app"
    "github.com/jaminalder/tictactoe-engine/internal/config"
    "github.com/jaminalder/tictactoe-engine/internal/domain"
    "github.com/jaminalder/tictactoe-engine/internal/logging"
    "github.com/jaminalder/tictactoe-engine/internal/search"
    "github.com/jaminalder/tictactoe-engine/internal/web"
)

func main() {
    cfgPath := flag.String("config", "", "path to a config file (yaml, json, toml or .env)")
    boardArg := flag.String("board", "", "print the best move for this board and exit, e.g. XX./OO./...")
    flag.Parse()

    cfg, err := config.Setup(*cfgPath)
    if err != nil {
        fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
        os.Exit(1)
    }
    logger, err := logging.New(cfg.LogLevel)
    if err != nil {
        panic("failed to initialize logger: " + err.Error())
    }
    defer func() { _ = logger.Sync() }()

    engine := search.NewEngine(search.Options{Parallel: cfg.EngineParallel}, logger)

    if *boardArg != "" {
        if err := printBestMove(context.Background(), engine, *boardArg); err != nil {
            logger.Error("analysis failed", zap.Error(err))
            os.Exit(1)
        }
        return
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    if err := serve(ctx, cfg, engine, logger); err != nil {
        logger.Fatal("server stopped", zap.Error(err))
    }
}

func printBestMove(ctx context.Context, engine *search.Engine, s string) error {
    b, err := domain.ParseBoard(s)
    if err != nil {
        return err
    }
    res, err := engine.BestMove(ctx, b)
    if err != nil {
        return err
    }
    fmt.Printf("board:   %s\n", b)
    fmt.Printf("turn:    %s\n", b.Turn())
    fmt.Printf("outcome: %s\n", b.Outcome())
    fmt.Printf("score:   %d\n", res.Score)
    if res.Action == nil {
        fmt.Println("move:    none")
    } else {
        fmt.Printf("move:    %s\n", res.Action)
    }
    return nil
}

func serve(ctx context.Context, cfg *config.Config, engine *search.Engine, logger *zap.Logger) error {
    side := domain.O
    if cfg.EngineSide == "X" {
        side = domain.X
    }
    svc := app.NewService(engine, logger)
    handler := web.NewServer(svc, logger, web.Options{EngineSide: side, Heartbeat: cfg.HeartbeatInterval})

    srv := &http.Server{
        Addr:              ":" + cfg.ServerPort,
        Handler:           handler,
        ReadHeaderTimeout: 5 * time.Second,
    }
    errCh := make(chan error, 1)
    go func() {
        logger.Info("server is running", zap.String("addr", srv.Addr))
        errCh <- srv.ListenAndServe()
    }()

    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
        logger.Info("received shutdown signal")
    }
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        return err
    }
    if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
        return err
    }
    return nil
}
