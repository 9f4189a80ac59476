package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/jigsolve/jigsaw"
)

// newHTTPServer creates an HTTP server with all endpoints. trigger starts a
// "match" or "solve" command in the background and fails with ErrBusy when
// one is already running.
func newHTTPServer(session *jigsaw.Session, config *jigsaw.Config, trigger func(command string) error) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		st := session.Status()
		status := struct {
			Status      string    `json:"status"`
			Timestamp   time.Time `json:"timestamp"`
			State       string    `json:"state"`
			HasSolution bool      `json:"hasSolution"`
		}{
			Status:      "ok",
			Timestamp:   time.Now(),
			State:       st.State,
			HasSolution: session.Solution() != nil,
		}
		writeJSON(w, status)
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, session.Status())
	})

	mux.HandleFunc("/solution.png", func(w http.ResponseWriter, r *http.Request) {
		serveSolution(w, r, session, config, FormatRaster, "image/png")
	})

	mux.HandleFunc("/solution.svg", func(w http.ResponseWriter, r *http.Request) {
		serveSolution(w, r, session, config, FormatSVG, "image/svg+xml")
	})

	mux.HandleFunc("/solution.json", func(w http.ResponseWriter, r *http.Request) {
		set := session.Solution()
		if set == nil {
			http.Error(w, "No solution available", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, newSolutionDocument(set, len(session.Pieces())))
	})

	mux.HandleFunc("/matches.json", func(w http.ResponseWriter, r *http.Request) {
		report := session.Report()
		if report == nil {
			http.Error(w, "No match catalog available", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, jigsaw.CatalogFromPieces(session.Pieces(), report))
	})

	for _, command := range []string{"match", "solve"} {
		mux.HandleFunc("/"+command, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "POST required", http.StatusMethodNotAllowed)
				return
			}
			if state := session.Status().State; state == jigsaw.StateMatching || state == jigsaw.StateSolving {
				http.Error(w, jigsaw.ErrBusy.Error(), http.StatusConflict)
				return
			}
			log.Printf("[HTTP] %s requested by %s", command, r.RemoteAddr)
			if trigger != nil {
				if err := trigger(command); err != nil {
					http.Error(w, err.Error(), http.StatusConflict)
					return
				}
			}
			w.WriteHeader(http.StatusAccepted)
		})
	}

	return mux
}

// serveSolution renders one layout of the current solution. ?layout=N picks
// a layout other than the best.
func serveSolution(w http.ResponseWriter, r *http.Request, session *jigsaw.Session,
	config *jigsaw.Config, format, contentType string) {
	set := session.Solution()
	if set == nil || set.Best() == nil {
		http.Error(w, "No solution available", http.StatusServiceUnavailable)
		return
	}

	if q := r.URL.Query().Get("layout"); q != "" {
		idx, err := strconv.Atoi(q)
		if err != nil || idx < 0 || idx >= len(set.Grids) {
			http.Error(w, "layout out of range", http.StatusBadRequest)
			return
		}
		set = &jigsaw.SolutionSet{
			Count: set.Count,
			Grids: []*jigsaw.Grid{set.Grids[idx]},
			Costs: []float64{set.Costs[idx]},
		}
	}

	var buf bytes.Buffer
	if err := writeSolution(&buf, format, config, session.Pieces(), set); err != nil {
		log.Printf("[HTTP] Error rendering %s: %v", r.URL.Path, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[HTTP] Error writing %s: %v", r.URL.Path, err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding JSON: %v", err)
	}
}
