package internal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	datafeed "github.com/fazecat/signalmaker/Internal/database"
)

type API struct {
	Store  *datafeed.Store
	Issuer *TokenIssuer
	Log    zerolog.Logger
}

func (api *API) limitFrom(r *http.Request, fallback int) int {
	limit := fallback
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

func (api *API) HandleGetSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := api.Store.RecentSignals(r.Context(), api.limitFrom(r, 50))
	if err != nil {
		api.Log.Error().Err(err).Msg("fetching signals")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch signals")
		return
	}

	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol != "" {
		filtered := signals[:0]
		for _, sig := range signals {
			if sig.Symbol == symbol {
				filtered = append(filtered, sig)
			}
		}
		signals = filtered
	}

	WriteJSON(w, http.StatusOK, signals)
}

func (api *API) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := api.Store.Orders(r.Context(), api.limitFrom(r, 50))
	if err != nil {
		api.Log.Error().Err(err).Msg("fetching orders")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	WriteJSON(w, http.StatusOK, orders)
}

func (api *API) HandleGetPending(w http.ResponseWriter, r *http.Request) {
	pending, err := api.Store.All(r.Context())
	if err != nil {
		api.Log.Error().Err(err).Msg("fetching pending confirmations")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch pending confirmations")
		return
	}
	WriteJSON(w, http.StatusOK, pending)
}

func (api *API) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	symbols, err := api.Store.GetWatchlist(r.Context())
	if err != nil {
		api.Log.Error().Err(err).Msg("fetching watchlist")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch watchlist")
		return
	}
	WriteJSON(w, http.StatusOK, symbols)
}

type watchlistRequest struct {
	Symbol string `json:"symbol"`
}

func (api *API) HandleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Symbol) == "" {
		WriteError(w, http.StatusBadRequest, "Request body must contain a symbol")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := api.Store.AddToWatchlist(r.Context(), symbol); err != nil {
		api.Log.Error().Err(err).Str("symbol", symbol).Msg("adding to watchlist")
		WriteError(w, http.StatusInternalServerError, "Failed to add symbol")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "status": "active"})
}

func (api *API) HandleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Symbol) == "" {
		WriteError(w, http.StatusBadRequest, "Request body must contain a symbol")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := api.Store.RemoveFromWatchlist(r.Context(), symbol); err != nil {
		api.Log.Error().Err(err).Str("symbol", symbol).Msg("removing from watchlist")
		WriteError(w, http.StatusInternalServerError, "Failed to remove symbol")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "status": "removed"})
}

func (api *API) HandleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return
	}

	value, err := api.Store.GetSetting(r.Context(), key)
	if err != nil {
		api.Log.Error().Err(err).Str("key", key).Msg("fetching setting")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch setting")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

type settingRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (api *API) HandleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		WriteError(w, http.StatusBadRequest, "Request body must contain a key")
		return
	}

	if err := api.Store.SetSetting(r.Context(), req.Key, req.Value, req.Description); err != nil {
		api.Log.Error().Err(err).Str("key", req.Key).Msg("updating setting")
		WriteError(w, http.StatusInternalServerError, "Failed to update setting")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"key": req.Key, "value": req.Value})
}

type tokenRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (api *API) HandleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "Request body must contain a user_id")
		return
	}

	token, err := api.Issuer.Issue(req.UserID, req.Email)
	if err != nil {
		api.Log.Error().Err(err).Msg("signing token")
		WriteError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}
