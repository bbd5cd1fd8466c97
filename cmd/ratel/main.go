package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/ratel-client/internal/config"
	"github.com/rickgao/ratel-client/internal/connection"
	"github.com/rickgao/ratel-client/internal/dispatch"
	"github.com/rickgao/ratel-client/internal/handlers"
	"github.com/rickgao/ratel-client/internal/heartbeat"
	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/session"
	"github.com/rickgao/ratel-client/internal/telemetry"
	"github.com/rickgao/ratel-client/internal/version"
)

// errQuit ends the task group on a user quit.
var errQuit = errors.New("quit")

func main() {
	configPath := flag.String("config", "", "path to config file (empty reads RATEL_* variables only)")
	nickname := flag.String("nickname", "", "nickname announced to the server")
	address := flag.String("address", "", "server address host:port[:name[vX.Y.Z]]")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ratel %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildTime)
		return
	}

	// Load configuration; flags win over file and environment
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *nickname != "" {
		cfg.Client.Nickname = *nickname
	}
	if *address != "" {
		cfg.Server.Address = *address
		cfg.Server.WSURL = ""
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ratel client",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("client stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("client stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	endpoint, err := cfg.Server.Endpoint()
	if err != nil {
		return err
	}
	if cfg.Server.WSURL == "" {
		srv, _ := config.ParseServer(cfg.Server.Address)
		if srv.Version != "" && !srv.Supports(cfg.Server.MinVersion) {
			logger.Warn("server version is older than supported",
				"server", srv.String(),
				"min_version", cfg.Server.MinVersion,
			)
		}
	}

	durable, closeDurable, err := openDurable(ctx, cfg.Snapshot, logger)
	if err != nil {
		return fmt.Errorf("open snapshot backend %s: %w", cfg.Snapshot.Backend, err)
	}
	defer func() {
		if err := closeDurable(); err != nil {
			logger.Warn("close snapshot backend", "error", err)
		}
	}()

	store := session.NewStore(durable, cfg.Snapshot.Freshness, logger)
	if cfg.Client.Nickname != "" {
		// Fold the configured nickname into the stored snapshot so the
		// restore on open keeps it.
		if _, err := store.Restore(ctx); err != nil {
			logger.Warn("session restore failed", "error", err)
		}
		nick, _ := config.NormalizeNickname(cfg.Client.Nickname)
		store.Update(func(s *session.Session) { s.User.Nickname = nick })
		if _, err := store.Snapshot(ctx); err != nil {
			logger.Warn("session snapshot failed", "error", err)
		}
	}

	registry, err := dispatch.NewRegistry(logger, handlers.Builtin()...)
	if err != nil {
		return err
	}

	out := &stdoutSink{w: os.Stdout}
	opts := []connection.Option{
		connection.WithCodec(protocol.JSONCodec{Legacy: *cfg.Server.LegacyFrames}),
		connection.WithSink(out),
	}
	if *cfg.Connection.Greeting {
		opts = append(opts, connection.WithGreeting(nicknameGreeting))
	}

	mgr := connection.NewManager(connection.ManagerConfig{
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		ReconnectDelay:       cfg.Connection.ReconnectDelay,
		DialTimeout:          cfg.Connection.DialTimeout,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		BufferSize:           cfg.Connection.BufferSize,
		CloseTimeout:         cfg.Connection.CloseTimeout,
		SnapshotTimeout:      cfg.Snapshot.Timeout,
		QueueCapacity:        cfg.Queue.Capacity,
		Heartbeat: heartbeat.Config{
			Interval: cfg.Heartbeat.Interval,
			Timeout:  cfg.Heartbeat.Timeout,
		},
	}, registry, store, logger, opts...)
	defer mgr.Close()

	// Terminal states end the run.
	terminal := make(chan error, 1)
	mgr.AddListener(func(ev connection.StateEvent) {
		printStatus(os.Stderr, ev, cfg.Connection.MaxReconnectAttempts)
		if ev.New == connection.StateFailed || (ev.New == connection.StateDisconnected && ev.Err != nil) {
			select {
			case terminal <- ev.Err:
			default:
			}
		}
	})

	logger.Info("connecting", "endpoint", endpoint, "snapshot_backend", cfg.Snapshot.Backend)
	if err := mgr.Connect(ctx, endpoint); err != nil {
		return fmt.Errorf("connect %s: %w", endpoint, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return readCommands(gctx, os.Stdin, mgr, out)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-terminal:
			if errors.Is(err, connection.ErrNormalClose) {
				logger.Info("server ended the session")
				return errQuit
			}
			return err
		}
	})

	if cfg.Status.Enabled {
		statusServer := &http.Server{
			Addr:              cfg.Status.Addr,
			Handler:           newStatusRouter(mgr, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting status server", "addr", cfg.Status.Addr)
			if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return statusServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("shutting down...", "queued", mgr.Stats().Queue.Count)
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// nicknameGreeting announces the known nickname on every open.
func nicknameGreeting(s session.Session) (protocol.Message, bool) {
	if s.User.Nickname == "" {
		return protocol.Message{}, false
	}
	msg, err := protocol.NewMessage(protocol.CodeSetNickname, s.User.Nickname)
	return msg, err == nil
}

// readCommands runs stdin commands until quit, EOF or ctx is done.
func readCommands(ctx context.Context, in io.Reader, mgr connection.Manager, out *stdoutSink) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			cmd, err := parseCommand(line)
			if err != nil {
				out.Append(err.Error())
				continue
			}
			if cmd.quit {
				return errQuit
			}
			if cmd.local {
				runLocal(line, mgr, out)
				continue
			}
			var d protocol.Delivery
			if cmd.nickname != "" {
				d, err = mgr.Rename(ctx, cmd.nickname)
			} else {
				d, err = mgr.Send(ctx, cmd.msg)
			}
			if err != nil {
				out.Append(fmt.Sprintf("send failed: %v", err))
				continue
			}
			if d == protocol.DeliveryDeferred {
				out.Append("(offline, will send after reconnect)")
			}
		}
	}
}

func runLocal(line string, mgr connection.Manager, out *stdoutSink) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "help":
		out.Append(usage)
	case "status":
		s := mgr.Stats()
		out.Append(fmt.Sprintf("state=%s latency=%s quality=%s queued=%d reconnects=%d",
			s.State, s.Latency, s.Quality, s.Queue.Count, s.Reconnects))
	}
}

func printStatus(w io.Writer, ev connection.StateEvent, maxAttempts int) {
	switch {
	case ev.New == connection.StateReconnecting && ev.Old == ev.New:
		fmt.Fprintf(w, "reconnecting (attempt %d/%d)\n", ev.Attempt, maxAttempts)
	case ev.New == connection.StateReconnecting:
		fmt.Fprintf(w, "connection lost: %v\n", ev.Err)
	case ev.New == connection.StateOpen:
		fmt.Fprintln(w, "connected")
	case ev.New == connection.StateFailed:
		fmt.Fprintf(w, "connection failed: %v\n", ev.Err)
	}
}

// stdoutSink renders handler output one line per append.
type stdoutSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *stdoutSink) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, text)
}
