// README: Quote service drives the draft workflow: distance, pricing and submission.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"convoyage/internal/logging"
	"convoyage/internal/metrics"
	"convoyage/internal/modules/pricing"
	"convoyage/internal/types"
)

var (
	ErrNotFound     = errors.New("quote draft not found")
	ErrValidation   = errors.New("invalid quote draft")
	ErrInvalidState = errors.New("invalid state transition")
	ErrInFlight     = errors.New("a step is already running for this draft")
	ErrConflict     = errors.New("quote draft state conflict")
	ErrResolution   = errors.New("distance could not be resolved")
	ErrSubmitFailed = errors.New("request submission failed")

	ErrRequestNotFound = errors.New("convoyage request not found")
)

const (
	DefaultSuccessWindow = 5 * time.Second
	DefaultStepLease     = 2 * time.Minute
)

type Pricing interface {
	CalculatePrice(ctx context.Context, distanceKm int, customerType pricing.CustomerType) types.Money
	CalculatePriceSync(distanceKm int, customerType pricing.CustomerType) types.Money
}

type DistanceResolver interface {
	RoadDistanceKm(ctx context.Context, origin, destination string) (*int, error)
}

// DraftStore persists drafts. Update applies fn atomically to the stored draft.
type DraftStore interface {
	Create(ctx context.Context, d *Draft) error
	Get(ctx context.Context, id types.ID) (*Draft, error)
	Update(ctx context.Context, id types.ID, fn func(d *Draft) error) (*Draft, error)
}

// RecordStore inserts submitted requests; it fills ID, Status and timestamps.
type RecordStore interface {
	Insert(ctx context.Context, r *Request) error
}

// Notifier is told about every stored request. Failures never fail a submission.
type Notifier interface {
	RequestSubmitted(ctx context.Context, r *Request) error
}

type Service struct {
	drafts        DraftStore
	records       RecordStore
	pricing       Pricing
	distance      DistanceResolver
	notifier      Notifier
	logger        *slog.Logger
	now           func() time.Time
	successWindow time.Duration
	stepLease     time.Duration
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithSuccessWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.successWindow = d
		}
	}
}

// WithStepLease sets how long a distance or submission step may hold a draft
// before it is considered abandoned.
func WithStepLease(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stepLease = d
		}
	}
}

func NewService(drafts DraftStore, records RecordStore, pricing Pricing, distance DistanceResolver, opts ...Option) *Service {
	s := &Service{
		drafts:        drafts,
		records:       records,
		pricing:       pricing,
		distance:      distance,
		logger:        logging.Discard(),
		now:           time.Now,
		successWindow: DefaultSuccessWindow,
		stepLease:     DefaultStepLease,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, e Edit) (*Draft, error) {
	if err := checkEdit(e); err != nil {
		return nil, err
	}
	d := newDraft(types.NewID(), s.now())
	d.apply(e)
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Draft, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refresh(d, s.now())
	return d, nil
}

func (s *Service) Edit(ctx context.Context, id types.ID, e Edit) (*Draft, error) {
	if err := checkEdit(e); err != nil {
		return nil, err
	}
	return s.drafts.Update(ctx, id, func(d *Draft) error {
		now := s.now()
		s.refresh(d, now)
		d.apply(e)
		d.UpdatedAt = now
		return nil
	})
}

// refresh applies the time based status changes: the submitted indicator expiry
// and the release of abandoned steps.
func (s *Service) refresh(d *Draft, now time.Time) {
	d.expireSuccess(now)
	if d.releaseAbandoned(now, s.stepLease) {
		s.logger.Warn("released abandoned draft step", "draft_id", d.ID)
	}
}

// closing returns a context for the update that ends a step. It outlives the
// caller so a dropped request never leaves the draft in flight.
func closing(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func checkEdit(e Edit) error {
	if e.CustomerType != nil && !e.CustomerType.Valid() {
		return invalid("customer_type", MsgCustomerType)
	}
	return nil
}

// CalculateDistance resolves the road distance for the draft addresses and prices
// it with the current customer type.
func (s *Service) CalculateDistance(ctx context.Context, id types.ID) (*Draft, error) {
	var (
		gen          int
		step         types.ID
		customerType pricing.CustomerType
		origin       string
		destination  string
		stepErr      error
	)
	d, err := s.drafts.Update(ctx, id, func(d *Draft) error {
		stepErr = nil
		now := s.now()
		s.refresh(d, now)
		if d.Status.InFlight() {
			return ErrInFlight
		}
		if !CanTransition(d.Status, StatusDistancePending) {
			return ErrInvalidState
		}
		d.LastError = ""
		d.UpdatedAt = now
		if verr := validateForDistance(d); verr != nil {
			d.LastError = verr.Message
			stepErr = verr
			return nil
		}
		step = d.begin(StatusDistancePending, now)
		gen, customerType = d.Generation, d.CustomerType
		origin, destination = d.DepartureLocation, d.ArrivalLocation
		return nil
	})
	if err != nil || stepErr != nil {
		return resultErr(d, err, stepErr)
	}

	km, resolveErr := s.distance.RoadDistanceKm(ctx, origin, destination)
	var price types.Money
	switch {
	case resolveErr != nil:
		s.logger.Warn("distance resolution failed", "draft_id", id, "error", resolveErr)
	case km == nil:
		s.logger.Info("no route between addresses", "draft_id", id)
	default:
		price = s.pricing.CalculatePrice(ctx, *km, customerType)
	}

	closeCtx, cancel := closing(ctx)
	defer cancel()
	var outcome string
	d, err = s.drafts.Update(closeCtx, id, func(d *Draft) error {
		stepErr = nil
		d.UpdatedAt = s.now()
		if !d.owns(step) {
			s.logger.Debug("distance step no longer owns the draft", "draft_id", id)
			outcome = metrics.DistanceStale
			return nil
		}
		d.end()
		if d.Generation != gen {
			s.logger.Debug("discarding stale distance result", "draft_id", id, "generation", gen, "current", d.Generation)
			outcome = metrics.DistanceStale
			d.settle()
			return nil
		}
		switch {
		case resolveErr != nil:
			outcome = metrics.DistanceError
			d.LastError = MsgDistanceError
			stepErr = fmt.Errorf("%w: %w", ErrResolution, resolveErr)
		case km == nil:
			outcome = metrics.DistanceNotFound
			d.LastError = MsgDistanceNotFound
			stepErr = ErrResolution
		default:
			outcome = metrics.DistanceFound
			distance := *km
			amount := price.Amount
			d.DistanceKm = &distance
			d.CalculatedPrice = &amount
			d.Status = StatusPriced
		}
		return nil
	})
	if err != nil {
		s.logger.Error("closing distance step failed", "draft_id", id, "error", err)
	} else {
		metrics.IncDistanceLookup(outcome)
	}
	return resultErr(d, err, stepErr)
}

// resultErr joins an update result with the error produced by the step itself.
func resultErr(d *Draft, err, stepErr error) (*Draft, error) {
	if err != nil {
		return nil, err
	}
	return d, stepErr
}

// Reprice recomputes the price of a draft whose distance is already known.
func (s *Service) Reprice(ctx context.Context, id types.ID) (*Draft, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.InFlight() {
		return nil, ErrInFlight
	}
	if current.DistanceKm == nil {
		return current, invalid("distance_km", MsgDistanceRequired)
	}
	gen, km, customerType := current.Generation, *current.DistanceKm, current.CustomerType
	price := s.pricing.CalculatePrice(ctx, km, customerType)

	return s.drafts.Update(ctx, id, func(d *Draft) error {
		now := s.now()
		s.refresh(d, now)
		if d.Status.InFlight() {
			return ErrInFlight
		}
		if d.Generation != gen {
			return ErrConflict
		}
		amount := price.Amount
		d.CalculatedPrice = &amount
		d.LastError = ""
		d.Status = StatusPriced
		d.UpdatedAt = now
		return nil
	})
}

// Submit validates the draft and stores a request record. On success the draft is
// reset and shows as submitted for the success window; on store failure it goes
// back to priced with the store's message.
func (s *Service) Submit(ctx context.Context, id types.ID) (*Request, *Draft, error) {
	var (
		snapshot *Draft
		step     types.ID
		stepErr  error
	)
	d, err := s.drafts.Update(ctx, id, func(d *Draft) error {
		stepErr, snapshot = nil, nil
		now := s.now()
		s.refresh(d, now)
		if d.Status.InFlight() {
			return ErrInFlight
		}
		d.LastError = ""
		d.UpdatedAt = now
		if verr := validateForSubmit(d); verr != nil {
			d.LastError = verr.Message
			stepErr = verr
			return nil
		}
		if !CanTransition(d.Status, StatusSubmitting) {
			return ErrInvalidState
		}
		d.SiretNumber = NormalizeSiret(d.SiretNumber)
		step = d.begin(StatusSubmitting, now)
		snapshot = d.clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if stepErr != nil {
		metrics.IncSubmission(metrics.SubmissionRejected)
		return nil, d, stepErr
	}

	price := snapshot.CalculatedPrice
	if price == nil {
		p := s.pricing.CalculatePriceSync(*snapshot.DistanceKm, snapshot.CustomerType)
		price = &p.Amount
	}
	req := requestFromDraft(snapshot, *price)

	closeCtx, cancel := closing(ctx)
	defer cancel()

	if insertErr := s.records.Insert(ctx, req); insertErr != nil {
		s.logger.Error("request insert failed", "draft_id", id, "error", insertErr)
		metrics.IncSubmission(metrics.SubmissionFailed)
		d, err := s.drafts.Update(closeCtx, id, func(d *Draft) error {
			if !d.owns(step) {
				return nil
			}
			d.end()
			if d.Generation == snapshot.Generation && d.CalculatedPrice == nil {
				d.CalculatedPrice = price
			}
			d.settle()
			d.LastError = insertErr.Error()
			if d.LastError == "" {
				d.LastError = MsgGeneric
			}
			d.UpdatedAt = s.now()
			return nil
		})
		if err != nil {
			s.logger.Error("closing submission step failed", "draft_id", id, "error", err)
		}
		return resultErrTriple(d, err, fmt.Errorf("%w: %w", ErrSubmitFailed, insertErr))
	}

	metrics.IncSubmission(metrics.SubmissionStored)
	s.logger.Info("convoyage request stored",
		"request_id", req.ID,
		"customer_type", req.CustomerType,
		"distance_km", req.DistanceKm,
		"price", req.Price().String(),
	)
	if s.notifier != nil {
		err := s.notifier.RequestSubmitted(closeCtx, req)
		metrics.IncNotification(err)
		if err != nil {
			s.logger.Warn("request notification failed", "request_id", req.ID, "error", err)
		}
	}

	d, err = s.drafts.Update(closeCtx, id, func(d *Draft) error {
		if d.Status.InFlight() && !d.owns(step) {
			return nil
		}
		now := s.now()
		reset := newDraft(d.ID, d.CreatedAt)
		reset.Version = d.Version
		reset.Generation = d.Generation + 1
		reset.Status = StatusSubmitted
		until := now.Add(s.successWindow)
		reset.SuccessUntil = &until
		reset.LastRequestID = req.ID
		reset.UpdatedAt = now
		*d = *reset
		return nil
	})
	if err != nil {
		s.logger.Error("closing submission step failed", "draft_id", id, "request_id", req.ID, "error", err)
		return req, nil, err
	}
	return req, d, nil
}

func resultErrTriple(d *Draft, err, stepErr error) (*Request, *Draft, error) {
	if err != nil {
		return nil, nil, err
	}
	return nil, d, stepErr
}
