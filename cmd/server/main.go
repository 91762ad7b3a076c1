package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rydeebs/findb2b/internal/fetcher"
	"github.com/rydeebs/findb2b/internal/ioformats"
	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/pipeline"
	"github.com/rydeebs/findb2b/internal/refdata"
	"github.com/rydeebs/findb2b/pkg/logger"
)

type discoverReq struct {
	Brand    string   `json:"brand"`
	URL      string   `json:"url,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Filters  []string `json:"filters,omitempty"`
}

type batchReq struct {
	Brands []discoverReq `json:"brands"`
}

// batchWorkers bounds concurrent brand lookups in batch mode; kept small on
// purpose so target sites see one client, not a burst.
const batchWorkers = 3

func main() {
	log := logger.New()
	defer log.Sync()

	client := fetcher.NewClient(15*time.Second, 5*time.Second, 5*1024*1024)
	pipe := pipeline.New(client, refdata.Default(), log, pipeline.DefaultConfig())

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// POST /discover  { "brand": "...", "url": "...", "industry": "..." }
	mux.HandleFunc("/discover", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req discoverReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
		defer cancel()

		res, err := pipe.Discover(ctx, req.Brand, hints(req))
		if err != nil {
			// only usage errors come back from Discover
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	// POST /discover/batch  { "brands": [{"brand": "..."}, ...] }
	mux.HandleFunc("/discover/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req batchReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Brands) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		type out struct {
			Brand  string         `json:"brand"`
			Result *models.Result `json:"result,omitempty"`
			Error  string         `json:"error,omitempty"`
		}
		results := make([]out, len(req.Brands))

		sem := make(chan struct{}, batchWorkers)
		done := make(chan int, len(req.Brands))
		for i, b := range req.Brands {
			i, b := i, b
			sem <- struct{}{} // acquire
			go func() {
				defer func() { <-sem; done <- i }()
				ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
				defer cancel()
				res, err := pipe.Discover(ctx, b.Brand, hints(b))
				if err != nil {
					results[i] = out{Brand: b.Brand, Error: err.Error()}
					return
				}
				results[i] = out{Brand: b.Brand, Result: res}
			}()
		}
		for range req.Brands {
			<-done
		}
		writeJSON(w, http.StatusOK, results)
	})

	// POST /discover/upload (multipart file=...) -> NDJSON stream of results
	mux.HandleFunc("/discover/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart parse error"})
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file part 'file' required"})
			return
		}
		defer f.Close()

		// copy to temp file to reuse the format reader
		tmp, err := os.CreateTemp("", "upload-*")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "temp file error"})
			return
		}
		if _, err := io.Copy(tmp, f); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "copy error"})
			return
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		brands, err := ioformats.ReadBrands(tmp.Name())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, b := range brands {
			ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
			res, err := pipe.Discover(ctx, b.Brand, models.Hints{URL: b.URL})
			cancel()
			if err != nil {
				_ = enc.Encode(map[string]string{"brand": b.Brand, "error": err.Error()})
				continue
			}
			_ = enc.Encode(res)
		}
	})

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      logRequest(log, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Infof("bye")
}

func hints(r discoverReq) models.Hints {
	return models.Hints{URL: r.URL, Industry: r.Industry, Filters: r.Filters}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logRequest(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
