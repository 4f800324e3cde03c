package intake

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/globaldex/internal/dependencies/mocks"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/admission"
	"github.com/mcoot/globaldex/internal/services/merge"
	"github.com/mcoot/globaldex/internal/storage"
	"github.com/mcoot/globaldex/internal/storage/memory"
	"github.com/mcoot/globaldex/internal/testutil"
)

// blockingStorage holds every Write until released
type blockingStorage struct {
	*memory.Storage
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStorage) Write(ctx context.Context, fn func(tx storage.WriteTx) error) error {
	b.entered <- struct{}{}
	<-b.release
	return b.Storage.Write(ctx, fn)
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	engine  *merge.Engine
	cfg     Config
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.ctx = context.Background()
	s.cfg = Config{
		RegisterTimeout:  time.Second,
		CaptureTimeout:   time.Second,
		UncaptureTimeout: time.Second,
	}
	s.service = s.build(s.storage, s.cfg, 10)
}

func (s *ServiceSuite) build(store storage.Storage, cfg Config, capacity int) *Service {
	logger := testutil.NopLogger()
	clock := mocks.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	engine := merge.New(store, clock, logger)
	register := admission.New(admission.Config{Name: "register", Capacity: capacity, Workers: 1}, engine.Register, logger)
	capture := admission.New(admission.Config{Name: "capture", Capacity: capacity, Workers: 1}, engine.Capture, logger)

	svc := New(engine, store, register, capture, cfg, logger)
	svc.Start(s.ctx)
	s.T().Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc
}

func name(v string) *string {
	return &v
}

func (s *ServiceSuite) registerP1() {
	_, err := s.service.Register(s.ctx, RegisterRequest{PlayerID: "P1-steam", DisplayName: name("Ash")})
	s.Require().NoError(err)
}

// Register tests

func (s *ServiceSuite) TestRegisterSynchronous() {
	out, err := s.service.Register(s.ctx, RegisterRequest{PlayerID: "P1-steam", DisplayName: name("Ash")})
	s.Require().NoError(err)
	s.False(out.Queued)
	s.True(out.Result.Created)
	s.Equal("Ash", out.Result.SafeName)

	out, err = s.service.Register(s.ctx, RegisterRequest{PlayerID: "P1-steam"})
	s.Require().NoError(err)
	s.True(out.Result.Updated)
	s.Equal("Unknown", out.Result.SafeName)
}

func (s *ServiceSuite) TestRegisterDetached() {
	cfg := s.cfg
	cfg.RegisterImmediateAck = true
	svc := s.build(s.storage, cfg, 10)

	out, err := svc.Register(s.ctx, RegisterRequest{PlayerID: "P1-steam", DisplayName: name("Ash")})
	s.Require().NoError(err)
	s.True(out.Queued)

	s.Eventually(func() bool {
		_, err := s.storage.GetPlayer(s.ctx, "P1-steam")
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func (s *ServiceSuite) TestValidation() {
	cases := []struct {
		name string
		call func() error
	}{
		{"short register id", func() error {
			_, err := s.service.Register(s.ctx, RegisterRequest{PlayerID: "ab"})
			return err
		}},
		{"long register id", func() error {
			_, err := s.service.Register(s.ctx, RegisterRequest{PlayerID: strings.Repeat("x", 65)})
			return err
		}},
		{"blank capture id", func() error {
			_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "  ", Species: "Pikachu"})
			return err
		}},
		{"empty species", func() error {
			_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam"})
			return err
		}},
		{"long species", func() error {
			_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: strings.Repeat("\u00e9", 65)})
			return err
		}},
		{"uncapture without species", func() error {
			_, err := s.service.Uncapture(s.ctx, UncaptureRequest{PlayerID: "P1-steam"})
			return err
		}},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.ErrorIs(tc.call(), model.ErrValidation)
		})
	}
}

// Capture tests

func (s *ServiceSuite) TestCaptureSynchronous() {
	s.registerP1()

	out, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu"})
	s.Require().NoError(err)
	s.False(out.Queued)
	s.Equal(model.CaptureResult{Inserted: true, FirstOverall: true}, out.Result)

	out, err = s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu", Shiny: true})
	s.Require().NoError(err)
	s.Equal(model.CaptureResult{ShinyUpgraded: true, FirstShiny: true}, out.Result)
}

func (s *ServiceSuite) TestCaptureUnregistered() {
	_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P2-steam", Species: "Eevee"})
	s.ErrorIs(err, model.ErrPlayerNotRegistered)
}

func (s *ServiceSuite) TestCaptureMegaIgnoredBeforeQueue() {
	s.Require().NoError(s.service.Stop(s.ctx))

	out, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Mega Charizard X"})
	s.Require().NoError(err)
	s.True(out.Result.Ignored)
	s.Equal(model.IgnoredReasonMegaGmax, out.Result.Reason)
}

func (s *ServiceSuite) TestCaptureFastPathSkipsQueue() {
	s.registerP1()
	_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu", Shiny: true})
	s.Require().NoError(err)

	// With the queues closed only the pre-check can answer
	s.Require().NoError(s.service.Stop(s.ctx))

	out, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu"})
	s.Require().NoError(err)
	s.Equal(model.CaptureResult{}, out.Result)

	out, err = s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu", Shiny: true})
	s.Require().NoError(err)
	s.Equal(model.CaptureResult{}, out.Result)

	_, err = s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Eevee"})
	s.ErrorIs(err, model.ErrQueueClosed)
}

func (s *ServiceSuite) TestCapturePreCheckFailureFallsThrough() {
	s.registerP1()
	s.storage.SetUnavailable(true)

	_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu"})
	s.ErrorIs(err, model.ErrStoreUnavailable, "the worker, not the pre-check, reports the failure")
}

func (s *ServiceSuite) TestCaptureTimeoutKeepsRunning() {
	s.registerP1()

	blocking := &blockingStorage{
		Storage: s.storage,
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	cfg := s.cfg
	cfg.CaptureTimeout = 10 * time.Millisecond
	svc := s.build(blocking, cfg, 10)

	_, err := svc.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu"})
	s.ErrorIs(err, model.ErrProcessingTimeout)

	close(blocking.release)
	s.Eventually(func() bool {
		_, found, err := s.storage.GetCaptureShiny(s.ctx, "P1-steam", "Pikachu")
		return err == nil && found
	}, time.Second, 5*time.Millisecond)
}

func (s *ServiceSuite) TestCaptureQueueFull() {
	s.registerP1()

	blocking := &blockingStorage{
		Storage: s.storage,
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	cfg := s.cfg
	cfg.CaptureImmediateAck = true
	svc := s.build(blocking, cfg, 1)
	defer close(blocking.release)

	out, err := svc.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu"})
	s.Require().NoError(err)
	s.True(out.Queued)
	<-blocking.entered

	_, err = svc.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Eevee"})
	s.Require().NoError(err)

	_, err = svc.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Mew"})
	s.ErrorIs(err, model.ErrQueueFull)
}

// Uncapture tests

func (s *ServiceSuite) TestUncapture() {
	s.registerP1()
	_, err := s.service.Capture(s.ctx, CaptureRequest{PlayerID: "P1-steam", Species: "Pikachu", Shiny: true})
	s.Require().NoError(err)

	res, err := s.service.Uncapture(s.ctx, UncaptureRequest{PlayerID: "P1-steam", Species: "Pikachu"})
	s.Require().NoError(err)
	s.Equal(1, res.Deleted)

	_, err = s.service.Uncapture(s.ctx, UncaptureRequest{PlayerID: "nobody", Species: "Pikachu"})
	s.ErrorIs(err, model.ErrPlayerNotRegistered)
}

func (s *ServiceSuite) TestStats() {
	stats := s.service.Stats()
	s.Require().Len(stats, 2)
	s.Equal("register", stats[0].Name)
	s.Equal("capture", stats[1].Name)
	s.Equal(10, stats[0].Capacity)
}
