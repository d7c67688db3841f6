package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goLink/command"
	"github.com/MrEthical07/goLink/metrics/export/prometheus"
	"github.com/MrEthical07/goLink/middleware"
)

const maxCommandBody = 16 << 10

type commandRequest struct {
	Sender  string   `json:"sender"`
	Args    []string `json:"args"`
	Console bool     `json:"console,omitempty"`
}

type commandResponse struct {
	OK      bool   `json:"ok"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

func newRouter(a *app, apiToken string) *mux.Router {
	r := mux.NewRouter()

	commands := r.PathPrefix("/v1/commands").Subrouter()
	commands.Use(middleware.RequestContext("http"), middleware.RequireToken(apiToken))
	commands.HandleFunc("/{command}", handleCommand(a.dispatcher, a.logger)).Methods(http.MethodPost)

	r.Handle("/metrics", prometheus.NewPrometheusExporter(a.engine).Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		audit := a.engine.AuditStats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"pending":       a.engine.PendingCount(),
			"audit_queued":  audit.Queued,
			"audit_dropped": audit.Dropped,
		})
	}).Methods(http.MethodGet)

	return r
}

func handleCommand(d *command.Dispatcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commandRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, commandResponse{Message: "invalid request body"})
			return
		}

		var sender command.Sender = command.Player(req.Sender)
		if req.Console {
			sender = command.Console{}
		} else if req.Sender == "" {
			writeJSON(w, http.StatusBadRequest, commandResponse{Message: "sender is required"})
			return
		}

		reply := d.Handle(r.Context(), sender, mux.Vars(r)["command"], req.Args)
		logger.Debug("command handled", "command", mux.Vars(r)["command"], "ok", reply.OK, "key", reply.Key)
		writeJSON(w, http.StatusOK, commandResponse{OK: reply.OK, Key: reply.Key, Message: reply.Text})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve link commands over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	a, s, err := setup(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("shutdown", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              s.Listen,
		Handler:           newRouter(a, s.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", s.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.logger.Info("http server closed")
	return nil
}

// setup reads env and --config and builds the app.
func setup(opts *rootOptions) (*app, settings, error) {
	s, err := parseSettings()
	if err != nil {
		return nil, settings{}, err
	}
	logger, err := newLogger(s.LogFormat, s.LogLevel)
	if err != nil {
		return nil, settings{}, err
	}
	file, err := loadFileConfig(opts.configPath)
	if err != nil {
		return nil, settings{}, err
	}
	a, err := newApp(appOptions{
		settings: s,
		file:     file,
		logger:   logger,
		dryRun:   opts.dryRun,
	})
	if err != nil {
		return nil, settings{}, err
	}
	return a, s, nil
}
