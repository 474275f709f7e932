// Command server exposes an .hfstol lexicon as a JSON REST API.
//
// Endpoints:
//
//	GET  /api/analyze?form=<word>[&split=true]
//	POST /api/analyze/batch   body: {"forms":["..."], "split":false}
//	POST /api/analyze/fast    body: {"forms":["..."], "workers":4}
//	GET  /api/info
//	GET  /metrics
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/altlab/hfstol"
)

// ---- JSON response types ------------------------------------------------

type analyzeResponse struct {
	Form     string     `json:"form"`
	Analyses [][]string `json:"analyses"`
}

type batchRequest struct {
	Forms []string `json:"forms"`
	Split bool     `json:"split"`
}

type batchResponse struct {
	Results map[string][][]string `json:"results"`
}

type fastRequest struct {
	Forms   []string `json:"forms"`
	Workers int      `json:"workers"`
}

type fastResponse struct {
	Results map[string][]string `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---- helpers ------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeLookupError maps the package's error taxonomy onto HTTP statuses: a
// missing lookup binary is a dependency problem (503), an engine crash is an
// upstream failure (502).
func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hfstol.ErrLookupNotInstalled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, hfstol.ErrEngineFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func toAnalysesJSON(analyses []hfstol.Analysis) [][]string {
	out := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, []string(a))
	}
	return out
}

// ---- handlers -----------------------------------------------------------

func handleAnalyze(h *hfstol.HFSTOL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET required")
			return
		}
		form := r.URL.Query().Get("form")
		if form == "" {
			writeError(w, http.StatusBadRequest, "missing 'form' query parameter")
			return
		}
		split, _ := strconv.ParseBool(r.URL.Query().Get("split"))

		start := time.Now()
		analyses, err := h.Feed(form, !split)
		observeLookup("single", start, err)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		// No analysis is not an error: the client gets 200 with an empty list.
		writeJSON(w, http.StatusOK, analyzeResponse{Form: form, Analyses: toAnalysesJSON(analyses)})
	}
}

func handleBatch(h *hfstol.HFSTOL, maxBatch int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Forms) == 0 {
			writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'forms' array")
			return
		}
		if len(req.Forms) > maxBatch {
			writeError(w, http.StatusRequestEntityTooLarge,
				"batch exceeds "+strconv.Itoa(maxBatch)+" forms")
			return
		}
		batchSize.WithLabelValues("batch").Observe(float64(len(req.Forms)))

		start := time.Now()
		res, err := h.FeedInBulk(req.Forms, !req.Split)
		observeLookup("batch", start, err)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		out := make(map[string][][]string, len(res))
		for form, analyses := range res {
			out[form] = toAnalysesJSON(analyses)
		}
		writeJSON(w, http.StatusOK, batchResponse{Results: out})
	}
}

func handleFast(h *hfstol.HFSTOL, defaultWorkers, maxBatch int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req fastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Forms) == 0 {
			writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'forms' array")
			return
		}
		if len(req.Forms) > maxBatch {
			writeError(w, http.StatusRequestEntityTooLarge,
				"batch exceeds "+strconv.Itoa(maxBatch)+" forms")
			return
		}
		workers := req.Workers
		if workers < 1 {
			workers = defaultWorkers
		}
		batchSize.WithLabelValues("fast").Observe(float64(len(req.Forms)))

		start := time.Now()
		res, err := h.FeedInBulkFast(r.Context(), req.Forms, workers)
		observeLookup("fast", start, err)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fastResponse{Results: res})
	}
}

func handleInfo(h *hfstol.HFSTOL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET required")
			return
		}
		writeJSON(w, http.StatusOK, h.Info())
	}
}

// ---- main ---------------------------------------------------------------

func setupLogger(cfg LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	lexicon := flag.String("lexicon", "", "path to the .hfstol lexicon (overrides config)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}
	if *lexicon != "" {
		cfg.Lexicon = *lexicon
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	setupLogger(cfg.Logging)

	if cfg.Lexicon == "" {
		slog.Error("no lexicon configured; set -lexicon, HFSTOL_LEXICON, or the config file")
		os.Exit(1)
	}

	slog.Info("loading lexicon", "path", cfg.Lexicon)
	h, err := hfstol.FromFile(cfg.Lexicon)
	if err != nil {
		slog.Error("loading lexicon", "err", err)
		os.Exit(1)
	}
	defer h.Close()
	info := h.Info()
	slog.Info("lexicon loaded",
		"symbols", info.Symbols, "states", info.States, "transitions", info.Transitions)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze/batch", handleBatch(h, cfg.MaxBatch))
	mux.HandleFunc("/api/analyze/fast", handleFast(h, cfg.FastWorkers, cfg.MaxBatch))
	mux.HandleFunc("/api/analyze", handleAnalyze(h))
	mux.HandleFunc("/api/info", handleInfo(h))
	mux.Handle("/metrics", promhttp.Handler())

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(mux)

	slog.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
