package entities

import "time"

type Breakdown struct {
	Years   int64
	Months  int64
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

type CountdownView struct {
	RemainingMillis int64
	Breakdown       Breakdown
	IsPastDue       bool
}

type DisplayState string

const (
	DisplayLoading  DisplayState = "loading"
	DisplayCounting DisplayState = "counting"
	DisplayReached  DisplayState = "reached"
)

// Display is what the fast tick renders for the presentation layer.
type Display struct {
	State          DisplayState
	Countdown      string
	TargetSentence string
	View           CountdownView
	Snapshot       *ChainSnapshot
	Target         *HalvingTarget
	RenderedAt     time.Time
}

type RefreshMode int

const (
	PartialRefresh RefreshMode = iota
	FullRefresh
)

func (m RefreshMode) String() string {
	switch m {
	case PartialRefresh:
		return "partial"
	case FullRefresh:
		return "full"
	default:
		return "unknown"
	}
}
