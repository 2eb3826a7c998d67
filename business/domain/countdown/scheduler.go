package countdown

import (
	"context"
	"time"

	"github.com/nervoshalving/countdown-service/entities"
	"github.com/nervoshalving/countdown-service/infrastructure/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ChainClient interface {
	GetChainSnapshot(ctx context.Context) (*entities.ChainSnapshot, error)
}

type Projector interface {
	Project(epoch entities.EpochDescriptor, now time.Time) (entities.HalvingTarget, error)
}

// TargetListener is called from the owner goroutine after every stored target and must not block.
type TargetListener interface {
	TargetUpdated(snapshot entities.ChainSnapshot, target entities.HalvingTarget)
}

type Config struct {
	FastTick       time.Duration
	PartialRefresh time.Duration
	FullRefresh    time.Duration
	PollTimeout    time.Duration
	Location       *time.Location
	Now            func() time.Time
}

func DefaultConfig() Config {
	return Config{
		FastTick:       500 * time.Millisecond,
		PartialRefresh: 11 * time.Second,
		FullRefresh:    5 * time.Minute,
		PollTimeout:    10 * time.Second,
		Location:       time.Local,
		Now:            time.Now,
	}
}

// Scheduler owns the countdown state. All writes happen on the goroutine running Run;
// polls run concurrently and hand their results back over a channel.
type Scheduler struct {
	client            ChainClient
	projector         Projector
	listener          TargetListener
	processingMetrics *metrics.Metrics
	logger            *zap.SugaredLogger
	cfg               Config

	state       *state
	seq         uint64
	errorsCount uint
	results     chan pollResult
	requests    chan chan entities.Display
	loaded      chan struct{}
	isLoaded    bool
}

func NewScheduler(client ChainClient, projector Projector, m *metrics.Metrics, logger *zap.SugaredLogger, cfg Config) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		client:            client,
		projector:         projector,
		processingMetrics: m,
		logger:            logger,
		cfg:               cfg,
		state:             newState(),
		results:           make(chan pollResult),
		requests:          make(chan chan entities.Display),
		loaded:            make(chan struct{}),
	}
}

// SetListener must be called before Run.
func (s *Scheduler) SetListener(listener TargetListener) {
	s.listener = listener
}

// Loaded is closed once the first halving target is stored.
func (s *Scheduler) Loaded() <-chan struct{} {
	return s.loaded
}

// Display returns the latest rendered display. It blocks until Run serves the request.
func (s *Scheduler) Display(ctx context.Context) (entities.Display, error) {
	reply := make(chan entities.Display, 1)
	select {
	case s.requests <- reply:
	case <-ctx.Done():
		return entities.Display{}, errors.Wrap(ctx.Err(), "requesting display")
	}
	select {
	case display := <-reply:
		return display, nil
	case <-ctx.Done():
		return entities.Display{}, errors.Wrap(ctx.Err(), "waiting for display")
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.FastTick <= 0 || s.cfg.PartialRefresh <= 0 || s.cfg.FullRefresh <= 0 {
		return errors.New("invalid argument: refresh intervals must be positive")
	}

	fastTicker := time.NewTicker(s.cfg.FastTick)
	defer fastTicker.Stop()
	partialTicker := time.NewTicker(s.cfg.PartialRefresh)
	defer partialTicker.Stop()
	fullTicker := time.NewTicker(s.cfg.FullRefresh)
	defer fullTicker.Stop()

	// initial load, so we do not wait for the first full refresh
	s.startPoll(ctx, entities.FullRefresh)
	s.tick()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("Stopping scheduler", "reason", ctx.Err())
			return nil
		case <-fastTicker.C:
			s.tick()
		case <-partialTicker.C:
			s.startPoll(ctx, s.partialMode())
		case <-fullTicker.C:
			s.startPoll(ctx, entities.FullRefresh)
		case result := <-s.results:
			s.apply(result)
		case reply := <-s.requests:
			reply <- s.state.display
		}
	}
}

// partialMode promotes partial refreshes to full ones until a target exists.
func (s *Scheduler) partialMode() entities.RefreshMode {
	if s.state.target == nil {
		return entities.FullRefresh
	}
	return entities.PartialRefresh
}

func (s *Scheduler) startPoll(ctx context.Context, mode entities.RefreshMode) {
	s.seq++
	seq := s.seq
	go func() {
		result := s.poll(ctx, seq, mode)
		select {
		case s.results <- result:
		case <-ctx.Done():
		}
	}()
}

func (s *Scheduler) poll(ctx context.Context, seq uint64, mode entities.RefreshMode) pollResult {
	s.processingMetrics.IncPolls(mode)
	result := pollResult{seq: seq, mode: mode}

	pollCtx := ctx
	if s.cfg.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, s.cfg.PollTimeout)
		defer cancel()
	}

	snapshot, err := s.client.GetChainSnapshot(pollCtx)
	if err != nil {
		result.err = errors.Wrap(err, "getting chain snapshot")
		return result
	}
	if err = snapshot.Epoch.Validate(); err != nil {
		result.err = errors.Wrap(err, "validating chain snapshot")
		return result
	}
	result.snapshot = snapshot

	if mode == entities.FullRefresh {
		target, err := s.projector.Project(snapshot.Epoch, s.cfg.Now())
		if err != nil {
			result.err = errors.Wrap(err, "projecting halving target")
			result.snapshot = nil
			return result
		}
		result.target = &target
	}
	return result
}

func (s *Scheduler) apply(result pollResult) {
	if result.err != nil {
		if result.seq < s.state.lastAppliedSeq() {
			s.processingMetrics.IncStaleResponses()
			s.logger.Debugw("Dropped stale poll failure", "mode", result.mode, "seq", result.seq, "error", result.err)
			return
		}
		s.incrementErrorCount(result.mode)
		s.logger.Errorw("Poll failed, keeping previous state", "mode", result.mode, "seq", result.seq, "error", result.err)
		return
	}

	a := s.state.applyPoll(result)
	if !a.snapshot && !a.target {
		s.processingMetrics.IncStaleResponses()
		s.logger.Debugw("Dropped stale poll response", "mode", result.mode, "seq", result.seq)
		return
	}
	s.resetErrorCount()

	if a.snapshot {
		s.processingMetrics.SetSnapshot(*s.state.snapshot)
	}
	if a.target {
		target := *s.state.target
		s.processingMetrics.SetTarget(target)
		s.logger.Infow("Updated halving target",
			"targetEpoch", target.TargetEpoch,
			"targetTime", target.TargetTime.Format(time.DateTime),
			"epoch", result.snapshot.Epoch.Number,
			"index", result.snapshot.Epoch.Index,
			"length", result.snapshot.Epoch.Length)

		if !s.isLoaded {
			s.isLoaded = true
			close(s.loaded)
		}
		if s.listener != nil {
			s.listener.TargetUpdated(*result.snapshot, target)
		}
		s.tick()
	}
}

func (s *Scheduler) tick() {
	display := s.state.applyTick(s.cfg.Now(), s.cfg.Location)
	if display.State != entities.DisplayLoading {
		s.processingMetrics.SetRemaining(display.View)
	}
}

func (s *Scheduler) incrementErrorCount(mode entities.RefreshMode) {
	s.errorsCount++
	s.processingMetrics.IncPollErrors(mode)
	s.processingMetrics.SetConsecutiveErrors(s.errorsCount)
}

func (s *Scheduler) resetErrorCount() {
	s.errorsCount = 0
	s.processingMetrics.SetConsecutiveErrors(s.errorsCount)
}
