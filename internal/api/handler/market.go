package handler

import (
	"net/http"

	"github.com/ayo6706/trading-backoffice/internal/market"
)

type MarketHandler struct {
	feed *market.Feed
}

func NewMarketHandler(feed *market.Feed) *MarketHandler {
	return &MarketHandler{feed: feed}
}

// Quotes handles GET /v1/market/quotes. Every call advances the walk by one
// tick.
func (h *MarketHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.feed.Next())
}
