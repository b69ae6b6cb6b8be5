// README: Price preview and admin rate table handlers.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"convoyage/internal/modules/pricing"
	"convoyage/internal/types"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

// Quote handles GET /api/pricing/quote?distance_km=&customer_type=.
func (h *PricingHandler) Quote(c *gin.Context) {
	km, err := strconv.Atoi(c.Query("distance_km"))
	if err != nil || km <= 0 {
		writeError(c, http.StatusBadRequest, "distance_km must be a positive integer")
		return
	}
	ct := pricing.CustomerType(c.DefaultQuery("customer_type", string(pricing.CustomerIndividual)))
	if !ct.Valid() {
		writeError(c, http.StatusBadRequest, "unknown customer_type")
		return
	}
	q := h.pricing.Quote(c.Request.Context(), km, ct)
	writeJSON(c, http.StatusOK, map[string]any{
		"distance_km":     q.DistanceKm,
		"customer_type":   q.CustomerType,
		"rate_per_km":     q.RatePerKm.StringFixed(2),
		"source":          q.Source,
		"price":           q.Price.String(),
		"price_formatted": q.Price.Format(),
	})
}

type rateView struct {
	ID            string    `json:"id"`
	CustomerType  string    `json:"customer_type"`
	DistanceMinKm int       `json:"distance_min_km"`
	DistanceMaxKm *int      `json:"distance_max_km"`
	RatePerKm     string    `json:"rate_per_km"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newRateView(r pricing.Rate) rateView {
	return rateView{
		ID:            r.ID,
		CustomerType:  string(r.CustomerType),
		DistanceMinKm: r.DistanceMinKm,
		DistanceMaxKm: r.DistanceMaxKm,
		RatePerKm:     r.RatePerKm.StringFixed(2),
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type rateReq struct {
	CustomerType  string `json:"customer_type"`
	DistanceMinKm *int   `json:"distance_min_km"`
	DistanceMaxKm *int   `json:"distance_max_km"`
	RatePerKm     string `json:"rate_per_km"`
	IsActive      *bool  `json:"is_active"`
}

func bindRate(c *gin.Context) (pricing.RateInput, bool) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return pricing.RateInput{}, false
	}
	if req.DistanceMinKm == nil || req.RatePerKm == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return pricing.RateInput{}, false
	}
	rate, err := decimal.NewFromString(req.RatePerKm)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid rate_per_km")
		return pricing.RateInput{}, false
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return pricing.RateInput{
		CustomerType:  pricing.CustomerType(req.CustomerType),
		DistanceMinKm: *req.DistanceMinKm,
		DistanceMaxKm: req.DistanceMaxKm,
		RatePerKm:     rate,
		IsActive:      active,
	}, true
}

func rateID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !types.ID(id).Valid() {
		writeError(c, http.StatusBadRequest, "invalid rate id")
		return "", false
	}
	return id, true
}

func (h *PricingHandler) ListRates(c *gin.Context) {
	rates, err := h.pricing.ListRates(c.Request.Context())
	if err != nil {
		writePricingError(c, err)
		return
	}
	out := make([]rateView, 0, len(rates))
	for _, r := range rates {
		out = append(out, newRateView(r))
	}
	writeJSON(c, http.StatusOK, map[string]any{"rates": out})
}

func (h *PricingHandler) CreateRate(c *gin.Context) {
	in, ok := bindRate(c)
	if !ok {
		return
	}
	r, err := h.pricing.CreateRate(c.Request.Context(), in)
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, newRateView(r))
}

func (h *PricingHandler) UpdateRate(c *gin.Context) {
	id, ok := rateID(c)
	if !ok {
		return
	}
	in, ok := bindRate(c)
	if !ok {
		return
	}
	r, err := h.pricing.UpdateRate(c.Request.Context(), id, in)
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, newRateView(r))
}

func (h *PricingHandler) DeleteRate(c *gin.Context) {
	id, ok := rateID(c)
	if !ok {
		return
	}
	if err := h.pricing.DeleteRate(c.Request.Context(), id); err != nil {
		writePricingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
