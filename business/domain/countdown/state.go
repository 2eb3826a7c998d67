package countdown

import (
	"time"

	"github.com/nervoshalving/countdown-service/business/domain/halving"
	"github.com/nervoshalving/countdown-service/entities"
)

// state is only touched by the scheduler's owner goroutine.
type state struct {
	snapshot    *entities.ChainSnapshot
	target      *entities.HalvingTarget
	display     entities.Display
	snapshotSeq uint64
	targetSeq   uint64
}

type pollResult struct {
	seq      uint64
	mode     entities.RefreshMode
	snapshot *entities.ChainSnapshot
	target   *entities.HalvingTarget
	err      error
}

type applied struct {
	snapshot bool
	target   bool
}

func newState() *state {
	return &state{
		display: loadingDisplay(nil, time.Time{}),
	}
}

// applyPoll writes the fields the result's mode owns, unless a newer poll already wrote them.
func (s *state) applyPoll(r pollResult) applied {
	var a applied
	if r.err != nil || r.snapshot == nil {
		return a
	}

	switch r.mode {
	case entities.FullRefresh:
		if r.target != nil && r.seq > s.targetSeq {
			target := *r.target
			s.target = &target
			s.targetSeq = r.seq
			a.target = true
		}
		a.snapshot = s.applySnapshot(r.seq, *r.snapshot)
	case entities.PartialRefresh:
		a.snapshot = s.applySnapshot(r.seq, *r.snapshot)
	}
	return a
}

func (s *state) lastAppliedSeq() uint64 {
	return max(s.snapshotSeq, s.targetSeq)
}

func (s *state) applySnapshot(seq uint64, snapshot entities.ChainSnapshot) bool {
	if seq <= s.snapshotSeq {
		return false
	}
	s.snapshot = &snapshot
	s.snapshotSeq = seq
	return true
}

// applyTick renders the display from the held target. It never writes snapshot or target.
func (s *state) applyTick(now time.Time, loc *time.Location) entities.Display {
	if s.target == nil {
		s.display = loadingDisplay(s.snapshot, now)
		return s.display
	}

	view := halving.Remaining(*s.target, now)
	display := entities.Display{
		State:          entities.DisplayCounting,
		Countdown:      halving.Render(view),
		TargetSentence: halving.TargetSentence(*s.target, loc),
		View:           view,
		Snapshot:       copySnapshot(s.snapshot),
		Target:         copyTarget(s.target),
		RenderedAt:     now,
	}
	if view.IsPastDue {
		display.State = entities.DisplayReached
	}
	s.display = display
	return display
}

func loadingDisplay(snapshot *entities.ChainSnapshot, now time.Time) entities.Display {
	return entities.Display{
		State:      entities.DisplayLoading,
		Countdown:  halving.LoadingMessage,
		Snapshot:   copySnapshot(snapshot),
		RenderedAt: now,
	}
}

func copySnapshot(snapshot *entities.ChainSnapshot) *entities.ChainSnapshot {
	if snapshot == nil {
		return nil
	}
	c := *snapshot
	return &c
}

func copyTarget(target *entities.HalvingTarget) *entities.HalvingTarget {
	if target == nil {
		return nil
	}
	c := *target
	return &c
}
