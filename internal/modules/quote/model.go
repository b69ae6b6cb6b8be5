// README: Quote draft aggregate, workflow statuses and the submitted request record.
package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"convoyage/internal/modules/pricing"
	"convoyage/internal/types"
)

type Status string

const (
	StatusDrafting        Status = "drafting"
	StatusDistancePending Status = "distance_pending"
	StatusPriced          Status = "priced"
	StatusSubmitting      Status = "submitting"
	StatusSubmitted       Status = "submitted"
)

// AllowedTransitions represents the quote workflow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusDrafting:        {StatusDrafting, StatusDistancePending, StatusPriced, StatusSubmitting},
	StatusDistancePending: {StatusPriced, StatusDrafting},
	StatusPriced:          {StatusPriced, StatusDrafting, StatusDistancePending, StatusSubmitting},
	StatusSubmitting:      {StatusSubmitted, StatusPriced, StatusDrafting},
	StatusSubmitted:       {StatusDrafting, StatusDistancePending},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// InFlight reports whether an asynchronous step is running for the draft.
func (s Status) InFlight() bool {
	return s == StatusDistancePending || s == StatusSubmitting
}

// Step identifies the asynchronous step a draft is waiting on. Only the step that
// started it may close it; a step older than the lease is considered abandoned.
type Step struct {
	ID      types.ID  `json:"id"`
	Started time.Time `json:"started"`
}

// Draft is the in-progress quote form. Generation is bumped by every edit that
// invalidates distance or price; async results computed for an older generation
// are discarded.
type Draft struct {
	ID         types.ID `json:"id"`
	Status     Status   `json:"status"`
	Version    int      `json:"version"`
	Generation int      `json:"generation"`
	Step       *Step    `json:"step,omitempty"`

	DepartureLocation string `json:"departure_location"`
	DepartureSelected bool   `json:"departure_selected"`
	ArrivalLocation   string `json:"arrival_location"`
	ArrivalSelected   bool   `json:"arrival_selected"`

	VehicleBrand string `json:"vehicle_brand"`
	VehicleModel string `json:"vehicle_model"`
	LicensePlate string `json:"license_plate"`
	VINNumber    string `json:"vin_number,omitempty"`

	DistanceKm      *int                 `json:"distance_km,omitempty"`
	CalculatedPrice *decimal.Decimal     `json:"calculated_price,omitempty"`
	CustomerType    pricing.CustomerType `json:"customer_type"`

	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
	CompanyName string `json:"company_name,omitempty"`
	SiretNumber string `json:"siret_number,omitempty"`
	Notes       string `json:"notes,omitempty"`

	LastError     string     `json:"last_error,omitempty"`
	SuccessUntil  *time.Time `json:"success_until,omitempty"`
	LastRequestID string     `json:"last_request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newDraft(id types.ID, now time.Time) *Draft {
	return &Draft{
		ID:           id,
		Status:       StatusDrafting,
		CustomerType: pricing.CustomerIndividual,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (d *Draft) clone() *Draft {
	c := *d
	if d.DistanceKm != nil {
		v := *d.DistanceKm
		c.DistanceKm = &v
	}
	if d.CalculatedPrice != nil {
		v := *d.CalculatedPrice
		c.CalculatedPrice = &v
	}
	if d.SuccessUntil != nil {
		v := *d.SuccessUntil
		c.SuccessUntil = &v
	}
	if d.Step != nil {
		v := *d.Step
		c.Step = &v
	}
	return &c
}

// Price returns the calculated price as money, when one is known.
func (d *Draft) Price() *types.Money {
	if d.CalculatedPrice == nil {
		return nil
	}
	m := types.EUR(*d.CalculatedPrice)
	return &m
}

// expireSuccess drops the submitted indicator once its display window is over.
func (d *Draft) expireSuccess(now time.Time) {
	if d.Status != StatusSubmitted {
		return
	}
	if d.SuccessUntil == nil || !now.Before(*d.SuccessUntil) {
		d.Status = StatusDrafting
		d.SuccessUntil = nil
	}
}

// begin marks the draft as waiting on a new step and returns the step id.
func (d *Draft) begin(status Status, now time.Time) types.ID {
	id := types.NewID()
	d.Status = status
	d.Step = &Step{ID: id, Started: now}
	return id
}

// owns reports whether step is the one the draft is currently waiting on.
func (d *Draft) owns(step types.ID) bool {
	return d.Status.InFlight() && d.Step != nil && d.Step.ID == step
}

// end closes the running step; the caller sets the resulting status.
func (d *Draft) end() {
	d.Step = nil
	d.Status = StatusDrafting
}

// releaseAbandoned closes a step whose lease ran out. The generation is bumped so
// a late result from that step is discarded.
func (d *Draft) releaseAbandoned(now time.Time, lease time.Duration) bool {
	if !d.Status.InFlight() {
		return false
	}
	if d.Step != nil && now.Sub(d.Step.Started) < lease {
		return false
	}
	d.end()
	d.Generation++
	d.settle()
	return true
}

// settle puts an idle draft in the status matching its data.
func (d *Draft) settle() {
	if d.Status.InFlight() {
		return
	}
	if d.DistanceKm != nil && d.CalculatedPrice != nil {
		d.Status = StatusPriced
		return
	}
	d.Status = StatusDrafting
}

// Edit is a partial update of a draft; nil fields are left unchanged.
type Edit struct {
	DepartureLocation *string
	DepartureSelected *bool
	ArrivalLocation   *string
	ArrivalSelected   *bool

	VehicleBrand *string
	VehicleModel *string
	LicensePlate *string
	VINNumber    *string

	CustomerType *pricing.CustomerType

	ClientName  *string
	ClientEmail *string
	ClientPhone *string
	CompanyName *string
	SiretNumber *string
	Notes       *string
}

// apply merges e into d. Changing an address drops distance and price; changing
// the customer type drops the price.
func (d *Draft) apply(e Edit) {
	invalidated := false

	if e.DepartureLocation != nil && *e.DepartureLocation != d.DepartureLocation {
		d.DepartureLocation = *e.DepartureLocation
		d.DepartureSelected = false
		d.DistanceKm = nil
		d.CalculatedPrice = nil
		invalidated = true
	}
	if e.DepartureSelected != nil {
		d.DepartureSelected = *e.DepartureSelected
	}
	if e.ArrivalLocation != nil && *e.ArrivalLocation != d.ArrivalLocation {
		d.ArrivalLocation = *e.ArrivalLocation
		d.ArrivalSelected = false
		d.DistanceKm = nil
		d.CalculatedPrice = nil
		invalidated = true
	}
	if e.ArrivalSelected != nil {
		d.ArrivalSelected = *e.ArrivalSelected
	}
	if e.CustomerType != nil && *e.CustomerType != d.CustomerType {
		d.CustomerType = *e.CustomerType
		d.CalculatedPrice = nil
		invalidated = true
	}

	setString(&d.VehicleBrand, e.VehicleBrand)
	setString(&d.VehicleModel, e.VehicleModel)
	setString(&d.LicensePlate, e.LicensePlate)
	setString(&d.VINNumber, e.VINNumber)
	setString(&d.ClientName, e.ClientName)
	setString(&d.ClientEmail, e.ClientEmail)
	setString(&d.ClientPhone, e.ClientPhone)
	setString(&d.CompanyName, e.CompanyName)
	setString(&d.SiretNumber, e.SiretNumber)
	setString(&d.Notes, e.Notes)

	if invalidated {
		d.Generation++
	}
	d.settle()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Request is the record stored for a successful submission. Status and
// timestamps are assigned by the store.
type Request struct {
	ID                string               `json:"id"`
	DepartureLocation string               `json:"departure_location"`
	ArrivalLocation   string               `json:"arrival_location"`
	VehicleBrand      string               `json:"vehicle_brand"`
	VehicleModel      string               `json:"vehicle_model"`
	LicensePlate      string               `json:"license_plate"`
	VINNumber         *string              `json:"vin_number"`
	DistanceKm        int                  `json:"distance_km"`
	CustomerType      pricing.CustomerType `json:"customer_type"`
	CalculatedPrice   decimal.Decimal      `json:"calculated_price"`
	ClientName        string               `json:"client_name"`
	ClientEmail       string               `json:"client_email"`
	ClientPhone       string               `json:"client_phone"`
	CompanyName       *string              `json:"company_name"`
	SiretNumber       *string              `json:"siret_number"`
	Notes             *string              `json:"notes"`
	Status            string               `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func (r *Request) Price() types.Money {
	return types.EUR(r.CalculatedPrice)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// requestFromDraft snapshots d with the given price.
func requestFromDraft(d *Draft, price decimal.Decimal) *Request {
	return &Request{
		DepartureLocation: d.DepartureLocation,
		ArrivalLocation:   d.ArrivalLocation,
		VehicleBrand:      d.VehicleBrand,
		VehicleModel:      d.VehicleModel,
		LicensePlate:      d.LicensePlate,
		VINNumber:         optional(d.VINNumber),
		DistanceKm:        *d.DistanceKm,
		CustomerType:      d.CustomerType,
		CalculatedPrice:   price,
		ClientName:        d.ClientName,
		ClientEmail:       d.ClientEmail,
		ClientPhone:       d.ClientPhone,
		CompanyName:       optional(d.CompanyName),
		SiretNumber:       optional(d.SiretNumber),
		Notes:             optional(d.Notes),
	}
}
