package health

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
)

// Readiness — флаг готовности; выставляется, когда сервер начал слушать порт.
type Readiness struct{ ready atomic.Bool }

func (r *Readiness) Set(v bool) { r.ready.Store(v) }

// RegisterRoutes — /healthz (liveness) и /readyz (readiness).
func RegisterRoutes(r *mux.Router, rd *Readiness) {
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if rd == nil || !rd.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
