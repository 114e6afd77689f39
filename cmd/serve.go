package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/cache"
	"github.com/skyfield-labs/co2scan/internal/model"
	"github.com/skyfield-labs/co2scan/internal/reasoning"
	"github.com/skyfield-labs/co2scan/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ranked anomalies and generate cached explanations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		var client anthropic.Client
		if cfg.Anthropic.Key != "" {
			client = anthropic.NewClient(cfg.Anthropic.Key)
		} else {
			zap.L().Warn("serve: no anthropic key configured, explanations use placeholder text")
		}
		svc := reasoning.NewService(client, store, reasoning.Options{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(svc, cfg.Analyze.Output),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// explainer is the part of the reasoning service the handlers use.
type explainer interface {
	Explain(ctx context.Context, a model.Anomaly) (*reasoning.Explanation, error)
}

// requiredReasoningFields must all be present in a reasoning request body.
var requiredReasoningFields = []string{"lat", "lon", "co2", "deviation", "date", "severity", "zscore"}

// buildRouter assembles the API routes. anomaliesPath points at the analyze
// command's GeoJSON output; until a run has produced it the anomalies
// endpoint reports 404.
func buildRouter(svc explainer, anomaliesPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	// Allow all origins: the viewer is a static page served elsewhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/anomalies", func(w http.ResponseWriter, req *http.Request) {
		data, err := os.ReadFile(anomaliesPath)
		if err != nil {
			if os.IsNotExist(err) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error": "no analysis output available, run analyze first",
				})
				return
			}
			zap.L().Error("serve: read anomalies output", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		w.Write(data) //nolint:errcheck
	})

	r.Post("/api/reasoning", func(w http.ResponseWriter, req *http.Request) {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		var missing []string
		for _, field := range requiredReasoningFields {
			if _, ok := raw[field]; !ok {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":          "missing required fields",
				"missing_fields": missing,
			})
			return
		}

		var anomaly model.Anomaly
		merged, _ := json.Marshal(raw)
		if err := json.Unmarshal(merged, &anomaly); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid field types"})
			return
		}
		if !anomaly.Severity.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "severity must be one of: high, medium, low",
			})
			return
		}
		if err := anomaly.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		exp, err := svc.Explain(req.Context(), anomaly)
		if err != nil {
			zap.L().Error("serve: reasoning failed",
				zap.Float64("lat", anomaly.Lat),
				zap.Float64("lon", anomaly.Lon),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reasoning generation failed"})
			return
		}

		writeJSON(w, http.StatusOK, exp)
	})

	return r
}

// requestLogger tags each request with an ID and logs its route.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		zap.L().Debug("http request",
			zap.String("request_id", id),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
