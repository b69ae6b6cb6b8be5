// README: Address suggestion handler (Places Autocomplete).
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"convoyage/internal/maps"
)

type AddressSuggester interface {
	Suggest(ctx context.Context, input string) ([]maps.Suggestion, error)
}

type AddressHandler struct {
	places AddressSuggester
}

func NewAddressHandler(places AddressSuggester) *AddressHandler {
	return &AddressHandler{places: places}
}

func (h *AddressHandler) Suggest(c *gin.Context) {
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "address suggestions unavailable")
		return
	}
	out, err := h.places.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, http.StatusBadGateway, "address lookup failed")
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"suggestions": out})
}
