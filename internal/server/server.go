package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/sonaq/sonaq/internal/config"
	"github.com/sonaq/sonaq/internal/health"
	"github.com/sonaq/sonaq/internal/observe"
	"github.com/sonaq/sonaq/pkg/scorer"
	"github.com/sonaq/sonaq/pkg/symbol"
)

// maxAudioMessageBytes bounds one inbound websocket message. One second of
// 16 kHz 16-bit audio is 32 KiB; this leaves generous headroom for clients
// that batch several seconds per message.
const maxAudioMessageBytes = 1 << 20

// Server accepts websocket sessions and fans the shared read-only decode
// configuration out to each of them. Every accepted connection gets its own
// session handler on its own goroutine (provided by net/http), so a slow
// session never blocks the accept loop.
type Server struct {
	cfg     *config.Config
	scorer  scorer.Scorer
	table   *symbol.Table
	metrics *observe.Metrics
}

// New creates a Server. The config, scorer, and symbol table are shared by
// all sessions and must not be mutated after this call. A nil metrics falls
// back to [observe.DefaultMetrics].
func New(cfg *config.Config, sc scorer.Scorer, table *symbol.Table, metrics *observe.Metrics) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{cfg: cfg, scorer: sc, table: table, metrics: metrics}
}

// Handler returns the websocket upgrade handler with the health endpoints
// mounted alongside it. Exposed so tests can mount it on an httptest server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSession)
	health.New(
		health.ScorerCheck(s.scorer, s.cfg.Feature.NumMelBins),
		health.SymbolsCheck(s.table, s.scorer),
	).Register(mux)
	return mux
}

// Run listens on the configured address until ctx is canceled. A failure to
// bind is returned to the caller (fatal at startup); per-session errors are
// logged and never propagate.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Server.ListenAddr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("session acceptor listening", "addr", s.cfg.Server.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleSession upgrades one connection and runs its session handler to
// completion.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(maxAudioMessageBytes)

	newSession(conn, s.cfg, s.scorer, s.table, s.metrics).run(r.Context())
}
