package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/synindex/bridge-analytics/internal/models"
)

func (s *Server) handleChainVolume(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	chain := v["chain"]
	if !s.requireChain(w, chain) {
		return
	}
	dir, ok := parseDirection(w, v["direction"])
	if !ok {
		return
	}
	view, err := s.API.ChainVolume(r.Context(), chain, dir)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleChainVolumeForAddress(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	chain := v["chain"]
	if !s.requireChain(w, chain) {
		return
	}
	dir, ok := parseDirection(w, v["direction"])
	if !ok {
		return
	}
	out, err := s.API.ChainVolumeForAddress(r.Context(), chain, v["token"], dir)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChainVolumeTotal(w http.ResponseWriter, r *http.Request) {
	dir, ok := parseDirection(w, mux.Vars(r)["direction"])
	if !ok {
		return
	}
	view, err := s.API.ChainVolumeTotal(r.Context(), dir)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleChainTxCountTotal(w http.ResponseWriter, r *http.Request) {
	dir, ok := parseDirection(w, mux.Vars(r)["direction"])
	if !ok {
		return
	}
	view, err := s.API.ChainTxCountTotal(r.Context(), dir)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBridgeFees(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	out, err := s.API.BridgeFees(r.Context(), v["chain"], v["token"])
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleValidatorGasFees(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	out, err := s.API.ValidatorGasFees(r.Context(), v["chain"])
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAirdropAmounts(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	out, err := s.API.AirdropAmounts(r.Context(), v["chain"])
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// parseBlockParam reads the optional "block" query param views 6-8 accept
// per spec.md §4.8's closing "as-of block, or latest" sentence.
func parseBlockParam(r *http.Request) (*uint64, error) {
	raw := r.URL.Query().Get("block")
	if raw == "" || raw == "latest" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Server) handleAdminFees(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	block, err := parseBlockParam(r)
	if err != nil {
		apiError(w, http.StatusBadRequest, "invalid block", nil)
		return
	}
	out, err := s.API.AdminFees(r.Context(), v["chain"], block)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePendingAdminFees(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	block, err := parseBlockParam(r)
	if err != nil {
		apiError(w, http.StatusBadRequest, "invalid block", nil)
		return
	}
	tokensRaw := r.URL.Query().Get("tokens")
	var tokens []string
	if tokensRaw != "" {
		tokens = strings.Split(tokensRaw, ",")
	}
	out, err := s.API.PendingAdminFees(r.Context(), v["chain"], tokens, block)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVirtualPrice(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	block, err := parseBlockParam(r)
	if err != nil {
		apiError(w, http.StatusBadRequest, "invalid block", nil)
		return
	}
	kind := models.PoolKindNUSD
	if r.URL.Query().Get("pool") == string(models.PoolKindNETH) {
		kind = models.PoolKindNETH
	}
	price, err := s.API.VirtualPrice(r.Context(), v["chain"], kind, block)
	if err != nil {
		apiError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"virtual_price": price})
}

func (s *Server) handleTreasuryBalances(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	block, err := parseBlockParam(r)
	if err != nil {
		apiError(w, http.StatusBadRequest, "invalid block", nil)
		return
	}
	out, err := s.API.TreasuryBalances(r.Context(), v["chain"], block)
	if err != nil {
		apiError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCirculatingSupply(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if !s.requireChain(w, v["chain"]) {
		return
	}
	supply, err := s.API.CirculatingSupply(r.Context(), v["chain"], v["token"])
	if err != nil {
		apiError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"circulating_supply": supply})
}

func (s *Server) handleBridgeChart(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	chain := v["chain"]
	if !s.requireChain(w, chain) {
		return
	}
	dir, ok := parseDirection(w, v["direction"])
	if !ok {
		return
	}
	out, err := s.API.BridgeChart(r.Context(), chain, dir)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDate2Block(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	chain, date := v["chain"], v["date"]
	if !s.requireChain(w, chain) {
		return
	}
	key := chain + ":date2block:" + date
	val, ok, err := s.Store.Get(r.Context(), key)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if !ok {
		apiError(w, http.StatusBadRequest, "no anchor recorded for that date", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"chain": chain, "date": date, "block": val})
}

func (s *Server) handleSyncing(w http.ResponseWriter, r *http.Request) {
	type chainSync struct {
		Chain        string `json:"chain"`
		BridgeBlock  uint64 `json:"bridge_block"`
		StablePool   uint64 `json:"stable_pool_block,omitempty"`
		EthPoolBlock uint64 `json:"eth_pool_block,omitempty"`
	}
	out := make([]chainSync, 0, len(s.Chains))
	for name, ch := range s.Chains {
		bridgeCursor, _ := s.Store.Cursor(r.Context(), name, "logs", ch.BridgeAddress)
		cs := chainSync{Chain: name, BridgeBlock: bridgeCursor.MaxBlockStored}
		if ch.StablePool != "" {
			if c, err := s.Store.Cursor(r.Context(), name, "pool", ch.StablePool); err == nil {
				cs.StablePool = c.MaxBlockStored
			}
		}
		if ch.EthPool != "" {
			if c, err := s.Store.Cursor(r.Context(), name, "pool", ch.EthPool); err == nil {
				cs.EthPoolBlock = c.MaxBlockStored
			}
		}
		out = append(out, cs)
	}
	writeJSON(w, http.StatusOK, out)
}
