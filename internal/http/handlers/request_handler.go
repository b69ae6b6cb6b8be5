// README: Admin handlers for stored convoyage requests and their exports.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"convoyage/internal/export"
	"convoyage/internal/modules/quote"
	"convoyage/internal/types"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportLimit     = 500
)

type RequestReader interface {
	Get(ctx context.Context, id string) (*quote.Request, error)
	List(ctx context.Context, limit, offset int) ([]*quote.Request, error)
}

type RequestHandler struct {
	requests RequestReader
}

func NewRequestHandler(requests RequestReader) *RequestHandler {
	return &RequestHandler{requests: requests}
}

type requestView struct {
	*quote.Request
	Price          string `json:"price"`
	PriceFormatted string `json:"price_formatted"`
}

func (h *RequestHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	reqs, err := h.requests.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]requestView, 0, len(reqs))
	for _, r := range reqs {
		p := r.Price()
		out = append(out, requestView{Request: r, Price: p.String(), PriceFormatted: p.Format()})
	}
	writeJSON(c, http.StatusOK, map[string]any{"requests": out})
}

func (h *RequestHandler) PDF(c *gin.Context) {
	id := c.Param("id")
	if !types.ID(id).Valid() {
		writeError(c, http.StatusBadRequest, "invalid request id")
		return
	}
	r, err := h.requests.Get(c.Request.Context(), id)
	if errors.Is(err, quote.ErrRequestNotFound) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	b, err := export.BuildQuotePDF(r)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "pdf export failed")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="devis-%s.pdf"`, r.ID))
	c.Data(http.StatusOK, contentTypePDF, b)
}

func (h *RequestHandler) XLSX(c *gin.Context) {
	reqs, err := h.requests.List(c.Request.Context(), exportLimit, 0)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	b, err := export.BuildRequestsXLSX(reqs)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "xlsx export failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="demandes-convoyage.xlsx"`)
	c.Data(http.StatusOK, contentTypeXLSX, b)
}
