package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"divtrack/internal/stocks"
)

// handleListStocks serves GET /api/stocks with optional sector, min_yield,
// min_safety and limit query parameters.
func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	filter := stocks.Filter{
		Sector: r.URL.Query().Get("sector"),
	}
	if v := r.URL.Query().Get("min_yield"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_yield: %s", v)
			return
		}
		filter.MinYield = f
	}
	if v := r.URL.Query().Get("min_safety"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_safety: %s", v)
			return
		}
		filter.MinSafetyScore = f
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: %s", v)
			return
		}
		filter.Limit = n
	}

	list, err := s.stocks.List(filter)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list stocks")
		writeError(w, http.StatusInternalServerError, "failed to list stocks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(list),
		"stocks":  list,
	})
}

// handleGetStock serves GET /api/stocks/{symbol}.
func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	stock, err := s.stocks.GetBySymbol(symbol)
	if errors.Is(err, stocks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown symbol %s", symbol)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load stock")
		writeError(w, http.StatusInternalServerError, "failed to load stock")
		return
	}

	writeJSON(w, http.StatusOK, stock)
}

// handleAnalyzeDividends serves GET /api/dividends/analyze/{symbol}.
func (s *Server) handleAnalyzeDividends(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	analysis, err := s.analyzer.Analyze(symbol)
	if errors.Is(err, stocks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown symbol %s", symbol)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Dividend analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// handleListIndexes serves GET /api/indexes.
func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	list, err := s.indexes.List()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list indexes")
		writeError(w, http.StatusInternalServerError, "failed to list indexes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(list),
		"indexes": list,
	})
}
