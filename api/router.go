package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/manager"
	"github.com/longhorn/nvmeof-gateway/metrics_collector/registry"
)

type HandleFuncWithError func(http.ResponseWriter, *http.Request) error

func HandleError(t HandleFuncWithError) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if err := t(rw, req); err != nil {
			logrus.WithError(err).Warnf("HTTP handling error on %v", req.URL.Path)
			http.Error(rw, err.Error(), http.StatusInternalServerError)
		}
	})
}

// Server exposes the read-only HTTP side of a gateway: health, the
// persisted record as seen locally, and metrics.
type Server struct {
	m *manager.GatewayManager
}

func NewServer(m *manager.GatewayManager) *Server {
	return &Server{m: m}
}

func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	f := HandleError

	r.Methods("GET").Path("/v1/healthz").Handler(f(s.HealthzGet))
	r.Methods("GET").Path("/v1/state").Handler(f(s.StateGet))
	r.Methods("GET").Path("/v1/stats").Handler(f(s.StatsGet))
	r.Methods("GET").Path("/metrics").Handler(registry.Handler())

	return RequestLogMiddleware(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r))
}

func writeJSON(rw http.ResponseWriter, obj interface{}) error {
	rw.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(rw).Encode(obj)
}

func (s *Server) HealthzGet(rw http.ResponseWriter, req *http.Request) error {
	return writeJSON(rw, map[string]string{
		"gateway": s.m.Name(),
		"group":   s.m.Group(),
		"status":  "ok",
	})
}

func (s *Server) StateGet(rw http.ResponseWriter, req *http.Request) error {
	return writeJSON(rw, s.m.State())
}

func (s *Server) StatsGet(rw http.ResponseWriter, req *http.Request) error {
	return writeJSON(rw, s.m.Stats())
}
