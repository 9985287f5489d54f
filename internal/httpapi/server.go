// Package httpapi exposes queryapi.API over HTTP per spec.md §6.3's
// representative endpoint table. Grounded on the teacher's
// internal/api/server_bootstrap.go (gorilla/mux router, *http.Server
// wrapped for graceful Start/Shutdown) generalized from Flow account/block
// routes to bridge analytics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"github.com/synindex/bridge-analytics/internal/models"
	"github.com/synindex/bridge-analytics/internal/queryapi"
)

// CursorStore is the slice of store.Store /utils/date2block and /utils/syncing
// need.
type CursorStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Cursor(ctx context.Context, chain, namespace, address string) (models.Cursor, error)
}

// Server wires queryapi.API into an HTTP router. Grounded on the teacher's
// Server struct in internal/api/server_bootstrap.go.
type Server struct {
	API    *queryapi.API
	Store  CursorStore
	Chains map[string]models.Chain

	router     *mux.Router
	httpServer *http.Server
}

// NewServer builds the router and binds it to addr (not yet listening —
// call Start).
func NewServer(api *queryapi.API, store CursorStore, chains map[string]models.Chain, addr string) *Server {
	s := &Server{API: api, Store: store, Chains: chains}
	r := mux.NewRouter()
	s.registerRoutes(r)
	s.router = r
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/api/v1/analytics/volume/{chain}/{direction}", s.handleChainVolume).Methods("GET")
	r.HandleFunc("/api/v1/analytics/volume/{chain}/filter/{token}/{direction}", s.handleChainVolumeForAddress).Methods("GET")
	r.HandleFunc("/api/v1/analytics/volume/total", s.handleChainVolumeTotal).Methods("GET")
	r.HandleFunc("/api/v1/analytics/volume/total/{direction}", s.handleChainVolumeTotal).Methods("GET")
	r.HandleFunc("/api/v1/analytics/volume/total/tx_count", s.handleChainTxCountTotal).Methods("GET")
	r.HandleFunc("/api/v1/analytics/volume/total/tx_count/{direction}", s.handleChainTxCountTotal).Methods("GET")

	r.HandleFunc("/api/v1/analytics/fees/admin/{chain}", s.handleAdminFees).Methods("GET")
	r.HandleFunc("/api/v1/analytics/fees/admin/{chain}/pending", s.handlePendingAdminFees).Methods("GET")
	r.HandleFunc("/api/v1/analytics/fees/validator/{chain}", s.handleValidatorGasFees).Methods("GET")
	r.HandleFunc("/api/v1/analytics/fees/validator/{chain}/{token}", s.handleValidatorGasFees).Methods("GET")
	r.HandleFunc("/api/v1/analytics/fees/bridge/{chain}/{token}", s.handleBridgeFees).Methods("GET")
	r.HandleFunc("/api/v1/analytics/fees/airdrop/{chain}", s.handleAirdropAmounts).Methods("GET")
	r.HandleFunc("/api/v1/analytics/fees/airdrop/{chain}/{token}", s.handleAirdropAmounts).Methods("GET")

	r.HandleFunc("/api/v1/analytics/pools/price/virtual/{chain}", s.handleVirtualPrice).Methods("GET")
	r.HandleFunc("/api/v1/analytics/treasury/{chain}", s.handleTreasuryBalances).Methods("GET")
	r.HandleFunc("/api/v1/analytics/chart/{chain}/{direction}", s.handleBridgeChart).Methods("GET")
	r.HandleFunc("/api/v1/analytics/supply/{chain}/{token}", s.handleCirculatingSupply).Methods("GET")

	r.HandleFunc("/api/v1/utils/date2block/{chain}/{date}", s.handleDate2Block).Methods("GET")
	r.HandleFunc("/api/v1/utils/syncing", s.handleSyncing).Methods("GET")
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON marshals v as the response body. decimal.Decimal implements
// json.Marshaler with its exact string form, so totals never round-trip
// through a binary float.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the {error, valids?} shape spec.md §6.3 requires for 400s.
func apiError(w http.ResponseWriter, status int, msg string, valids []string) {
	body := map[string]interface{}{"error": msg}
	if len(valids) > 0 {
		sort.Strings(valids)
		body["valids"] = valids
	}
	writeJSON(w, status, body)
}

func (s *Server) knownChains() []string {
	out := make([]string, 0, len(s.Chains))
	for c := range s.Chains {
		out = append(out, c)
	}
	return out
}

func (s *Server) requireChain(w http.ResponseWriter, chain string) bool {
	if _, ok := s.Chains[chain]; !ok {
		apiError(w, http.StatusBadRequest, "unknown chain", s.knownChains())
		return false
	}
	return true
}

func parseDirection(w http.ResponseWriter, raw string) (models.Direction, bool) {
	switch raw {
	case "", string(models.DirectionIn):
		return models.DirectionIn, true
	case string(models.DirectionOut):
		return models.DirectionOut, true
	default:
		apiError(w, http.StatusBadRequest, "unknown direction", []string{string(models.DirectionIn), string(models.DirectionOut)})
		return "", false
	}
}
