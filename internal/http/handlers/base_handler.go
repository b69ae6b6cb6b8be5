// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"convoyage/internal/modules/pricing"
	"convoyage/internal/modules/quote"
	"convoyage/internal/types"
)

type errorResponse struct {
	Error string     `json:"error"`
	Field string     `json:"field,omitempty"`
	Draft *draftView `json:"draft,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// draftID reads and checks the :id path parameter.
func draftID(c *gin.Context) (types.ID, bool) {
	id := types.ID(c.Param("id"))
	if !id.Valid() {
		writeError(c, http.StatusBadRequest, "invalid draft id")
		return "", false
	}
	return id, true
}

// writeQuoteError maps workflow errors. When the step left a draft behind, it is
// returned so the form can show its last error.
func writeQuoteError(c *gin.Context, d *quote.Draft, err error) {
	resp := errorResponse{Error: err.Error()}
	if d != nil {
		resp.Draft = newDraftView(d)
	}
	var verr *quote.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Error, resp.Field = verr.Message, verr.Field
		writeJSON(c, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, quote.ErrNotFound):
		writeJSON(c, http.StatusNotFound, resp)
	case errors.Is(err, quote.ErrInFlight), errors.Is(err, quote.ErrInvalidState), errors.Is(err, quote.ErrConflict):
		writeJSON(c, http.StatusConflict, resp)
	case errors.Is(err, quote.ErrResolution):
		if d != nil && d.LastError != "" {
			resp.Error = d.LastError
		}
		writeJSON(c, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, quote.ErrSubmitFailed):
		if d != nil && d.LastError != "" {
			resp.Error = d.LastError
		}
		writeJSON(c, http.StatusBadGateway, resp)
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
