// README: Quote draft handlers: create/edit, distance, reprice and submission.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"convoyage/internal/modules/pricing"
	"convoyage/internal/modules/quote"
)

type QuoteHandler struct {
	quotes *quote.Service
}

func NewQuoteHandler(svc *quote.Service) *QuoteHandler {
	return &QuoteHandler{quotes: svc}
}

// draftView adds display-ready fields to a draft.
type draftView struct {
	*quote.Draft
	PriceFormatted string `json:"price_formatted,omitempty"`
}

func newDraftView(d *quote.Draft) *draftView {
	v := &draftView{Draft: d}
	if p := d.Price(); p != nil {
		v.PriceFormatted = p.Format()
	}
	return v
}

type editReq struct {
	DepartureLocation *string `json:"departure_location"`
	DepartureSelected *bool   `json:"departure_selected"`
	ArrivalLocation   *string `json:"arrival_location"`
	ArrivalSelected   *bool   `json:"arrival_selected"`
	VehicleBrand      *string `json:"vehicle_brand"`
	VehicleModel      *string `json:"vehicle_model"`
	LicensePlate      *string `json:"license_plate"`
	VINNumber         *string `json:"vin_number"`
	CustomerType      *string `json:"customer_type"`
	ClientName        *string `json:"client_name"`
	ClientEmail       *string `json:"client_email"`
	ClientPhone       *string `json:"client_phone"`
	CompanyName       *string `json:"company_name"`
	SiretNumber       *string `json:"siret_number"`
	Notes             *string `json:"notes"`
}

func (r editReq) toEdit() quote.Edit {
	e := quote.Edit{
		DepartureLocation: r.DepartureLocation,
		DepartureSelected: r.DepartureSelected,
		ArrivalLocation:   r.ArrivalLocation,
		ArrivalSelected:   r.ArrivalSelected,
		VehicleBrand:      r.VehicleBrand,
		VehicleModel:      r.VehicleModel,
		LicensePlate:      r.LicensePlate,
		VINNumber:         r.VINNumber,
		ClientName:        r.ClientName,
		ClientEmail:       r.ClientEmail,
		ClientPhone:       r.ClientPhone,
		CompanyName:       r.CompanyName,
		SiretNumber:       r.SiretNumber,
		Notes:             r.Notes,
	}
	if r.CustomerType != nil {
		ct := pricing.CustomerType(*r.CustomerType)
		e.CustomerType = &ct
	}
	return e
}

// bindEdit accepts an empty body as an empty edit.
func bindEdit(c *gin.Context) (quote.Edit, bool) {
	var req editReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return quote.Edit{}, false
		}
	}
	return req.toEdit(), true
}

func (h *QuoteHandler) Create(c *gin.Context) {
	e, ok := bindEdit(c)
	if !ok {
		return
	}
	d, err := h.quotes.Create(c.Request.Context(), e)
	if err != nil {
		writeQuoteError(c, nil, err)
		return
	}
	writeJSON(c, http.StatusCreated, newDraftView(d))
}

func (h *QuoteHandler) Get(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		writeQuoteError(c, nil, err)
		return
	}
	writeJSON(c, http.StatusOK, newDraftView(d))
}

func (h *QuoteHandler) Update(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	e, ok := bindEdit(c)
	if !ok {
		return
	}
	d, err := h.quotes.Edit(c.Request.Context(), id, e)
	if err != nil {
		writeQuoteError(c, nil, err)
		return
	}
	writeJSON(c, http.StatusOK, newDraftView(d))
}

func (h *QuoteHandler) Distance(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.quotes.CalculateDistance(c.Request.Context(), id)
	if err != nil {
		writeQuoteError(c, d, err)
		return
	}
	writeJSON(c, http.StatusOK, newDraftView(d))
}

func (h *QuoteHandler) Reprice(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.quotes.Reprice(c.Request.Context(), id)
	if err != nil {
		writeQuoteError(c, d, err)
		return
	}
	writeJSON(c, http.StatusOK, newDraftView(d))
}

func (h *QuoteHandler) Submit(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	req, d, err := h.quotes.Submit(c.Request.Context(), id)
	if err != nil {
		writeQuoteError(c, d, err)
		return
	}
	price := req.Price()
	writeJSON(c, http.StatusCreated, map[string]any{
		"request_id":      req.ID,
		"status":          req.Status,
		"distance_km":     req.DistanceKm,
		"price":           price.String(),
		"price_formatted": price.Format(),
		"draft":           newDraftView(d),
	})
}
