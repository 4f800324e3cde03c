// Package intake is the caller-facing entry point for write requests.
//
// It validates requests, short-circuits captures that are already satisfied,
// hands the rest to the admission queues and, depending on the configured ack
// mode, either returns straight away or waits a bounded time for the result.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/admission"
	"github.com/mcoot/globaldex/internal/services/merge"
	"github.com/mcoot/globaldex/internal/storage"
)

// Field limits
const (
	MinPlayerIDLength = 3
	MaxPlayerIDLength = 64
	MaxSpeciesLength  = 64
)

// RegisterQueue and CaptureQueue are the admission queues the service feeds
type (
	RegisterQueue = admission.Queue[model.RegisterIntent, model.RegisterResult]
	CaptureQueue  = admission.Queue[model.CaptureIntent, model.CaptureResult]
)

// Config selects the ack mode and wait budget per intent kind
type Config struct {
	RegisterTimeout      time.Duration
	RegisterImmediateAck bool
	CaptureTimeout       time.Duration
	CaptureImmediateAck  bool
	UncaptureTimeout     time.Duration
}

// RegisterRequest is a validated-on-entry register call
type RegisterRequest struct {
	PlayerID    string
	DisplayName *string
}

// CaptureRequest is a validated-on-entry capture call
type CaptureRequest struct {
	PlayerID   string
	Species    string
	Shiny      bool
	CapturedAt *time.Time
}

// UncaptureRequest is a validated-on-entry uncapture call
type UncaptureRequest struct {
	PlayerID string
	Species  string
}

// RegisterOutcome is either a queued acknowledgement or the merged result
type RegisterOutcome struct {
	Queued bool
	Result model.RegisterResult
}

// CaptureOutcome is either a queued acknowledgement or the merged result
type CaptureOutcome struct {
	Queued bool
	Result model.CaptureResult
}

// Service admits register, capture and uncapture requests
type Service struct {
	engine   *merge.Engine
	reader   storage.Reader
	register *RegisterQueue
	capture  *CaptureQueue
	cfg      Config
	logger   *slog.Logger
}

// New creates the intake service. The queues are started by Start.
func New(
	engine *merge.Engine,
	reader storage.Reader,
	register *RegisterQueue,
	capture *CaptureQueue,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		engine:   engine,
		reader:   reader,
		register: register,
		capture:  capture,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches the register and capture workers
func (s *Service) Start(ctx context.Context) {
	s.register.Start(ctx)
	s.capture.Start(ctx)
}

// Stop refuses new intents and drains both queues
func (s *Service) Stop(ctx context.Context) error {
	return errors.Join(s.register.Stop(ctx), s.capture.Stop(ctx))
}

// Stats reports the state of both queues
func (s *Service) Stats() []admission.Stats {
	return []admission.Stats{s.register.Stats(), s.capture.Stats()}
}

// Register admits a register request
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterOutcome, error) {
	if err := validatePlayerID(req.PlayerID, MinPlayerIDLength); err != nil {
		return RegisterOutcome{}, err
	}

	intent := model.RegisterIntent{
		ID:       newIntentID(),
		PlayerID: model.PlayerID(req.PlayerID),
	}
	if req.DisplayName != nil {
		intent.DisplayName = *req.DisplayName
	}

	if s.cfg.RegisterImmediateAck {
		if err := s.register.SubmitDetached(intent.ID, intent); err != nil {
			return RegisterOutcome{}, err
		}
		return RegisterOutcome{Queued: true}, nil
	}

	h, err := s.register.Submit(intent.ID, intent)
	if err != nil {
		return RegisterOutcome{}, err
	}
	result, err := h.Await(ctx, s.cfg.RegisterTimeout)
	if err != nil {
		s.logIfTimedOut(err, "register", intent.ID)
		return RegisterOutcome{}, err
	}
	return RegisterOutcome{Result: result}, nil
}

// Capture admits a capture request
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (CaptureOutcome, error) {
	if err := validatePlayerID(req.PlayerID, 1); err != nil {
		return CaptureOutcome{}, err
	}
	if err := validateSpecies(req.Species); err != nil {
		return CaptureOutcome{}, err
	}

	if model.IsUntrackedSpecies(req.Species) {
		return CaptureOutcome{Result: model.CaptureResult{Ignored: true, Reason: model.IgnoredReasonMegaGmax}}, nil
	}

	if s.alreadySatisfied(ctx, req) {
		return CaptureOutcome{}, nil
	}

	intent := model.CaptureIntent{
		ID:         newIntentID(),
		PlayerID:   model.PlayerID(req.PlayerID),
		Species:    req.Species,
		Shiny:      req.Shiny,
		CapturedAt: req.CapturedAt,
	}

	if s.cfg.CaptureImmediateAck {
		if err := s.capture.SubmitDetached(intent.ID, intent); err != nil {
			return CaptureOutcome{}, err
		}
		return CaptureOutcome{Queued: true}, nil
	}

	h, err := s.capture.Submit(intent.ID, intent)
	if err != nil {
		return CaptureOutcome{}, err
	}
	result, err := h.Await(ctx, s.cfg.CaptureTimeout)
	if err != nil {
		s.logIfTimedOut(err, "capture", intent.ID)
		return CaptureOutcome{}, err
	}
	return CaptureOutcome{Result: result}, nil
}

// alreadySatisfied is the advisory pre-check: a capture that would be a no-op
// is answered without queueing. A failed read falls through to the queue.
func (s *Service) alreadySatisfied(ctx context.Context, req CaptureRequest) bool {
	shiny, found, err := s.reader.GetCaptureShiny(ctx, model.PlayerID(req.PlayerID), req.Species)
	if err != nil {
		s.logger.Debug("capture pre-check failed, queueing",
			slog.String("player_id", req.PlayerID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return found && (shiny || !req.Shiny)
}

// Uncapture removes a capture. It bypasses the queues but still runs under
// the store's write-section, with a bounded wait like the synchronous queues.
func (s *Service) Uncapture(ctx context.Context, req UncaptureRequest) (model.UncaptureResult, error) {
	if err := validatePlayerID(req.PlayerID, 1); err != nil {
		return model.UncaptureResult{}, err
	}
	if err := validateSpecies(req.Species); err != nil {
		return model.UncaptureResult{}, err
	}

	intent := model.UncaptureIntent{
		ID:       newIntentID(),
		PlayerID: model.PlayerID(req.PlayerID),
		Species:  req.Species,
	}
	workCtx := context.WithoutCancel(ctx)
	h := admission.Go(intent.ID, func() (model.UncaptureResult, error) {
		return s.engine.Uncapture(workCtx, intent)
	})

	result, err := h.Await(ctx, s.cfg.UncaptureTimeout)
	if err != nil {
		s.logIfTimedOut(err, "uncapture", intent.ID)
		return model.UncaptureResult{}, err
	}
	return result, nil
}

func (s *Service) logIfTimedOut(err error, kind, intentID string) {
	if errors.Is(err, model.ErrProcessingTimeout) {
		s.logger.Warn("intent still processing",
			slog.String("kind", kind),
			slog.String("intent_id", intentID),
		)
	}
}

func validatePlayerID(id string, minLength int) error {
	n := utf8.RuneCountInString(id)
	switch {
	case strings.TrimSpace(id) == "":
		return model.ValidationError("id is required")
	case n < minLength:
		return model.ValidationError("id must be at least %d characters", minLength)
	case n > MaxPlayerIDLength:
		return model.ValidationError("id must be at most %d characters", MaxPlayerIDLength)
	}
	return nil
}

func validateSpecies(species string) error {
	n := utf8.RuneCountInString(species)
	switch {
	case strings.TrimSpace(species) == "":
		return model.ValidationError("species is required")
	case n > MaxSpeciesLength:
		return model.ValidationError("species must be at most %d characters", MaxSpeciesLength)
	}
	return nil
}

// newIntentID returns a time-ordered ID for correlating an intent across logs
func newIntentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
