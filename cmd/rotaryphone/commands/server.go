package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/phone"
)

// defaultCallsLimit is the number of journal entries served without ?n=.
const defaultCallsLimit = 20

// phoneState is the part of the orchestrator the status server uses.
type phoneState interface {
	Snapshot() phone.Snapshot
	Transcript() []string
	SetDoNotDisturb(on bool)
}

// callJournal is the part of the call log the status server uses.
type callJournal interface {
	Recent(ctx context.Context, n int) ([]calllog.Record, error)
}

// dndRequest is the body of POST /dnd.
type dndRequest struct {
	On bool `json:"on"`
}

// newStatusHandler serves:
//
//	GET  /status  snapshot of the phone
//	GET  /calls   recent calls, newest first (?n= limits)
//	GET  /bridge  recent output lines of the SIP bridge, oldest first
//	POST /dnd     {"on": true} switches do-not-disturb
func newStatusHandler(p phoneState, calls callJournal, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Snapshot())
	})

	mux.HandleFunc("GET /calls", func(w http.ResponseWriter, r *http.Request) {
		n := defaultCallsLimit
		if s := r.URL.Query().Get("n"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 {
				http.Error(w, "n must be a positive integer", http.StatusBadRequest)
				return
			}
			n = v
		}
		records, err := calls.Recent(r.Context(), n)
		if err != nil {
			log.Warn("status: recent calls", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []calllog.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})

	mux.HandleFunc("GET /bridge", func(w http.ResponseWriter, r *http.Request) {
		lines := p.Transcript()
		if lines == nil {
			lines = []string{}
		}
		writeJSON(w, http.StatusOK, lines)
	})

	mux.HandleFunc("POST /dnd", func(w http.ResponseWriter, r *http.Request) {
		var req dndRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		log.Info("status: do not disturb", "on", req.On)
		p.SetDoNotDisturb(req.On)
		writeJSON(w, http.StatusAccepted, req)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// serveStatus runs the status server until ctx is done.
func serveStatus(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("status: listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
