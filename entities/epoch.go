package entities

import "time"

// EpochDescriptor is the decoded form of a CKB EpochNumberWithFraction.
type EpochDescriptor struct {
	Number uint64
	Index  uint64
	Length uint64
}

func (e EpochDescriptor) Validate() error {
	if e.Length == 0 {
		return ErrZeroEpochLength
	}
	if e.Index >= e.Length {
		return ErrEpochIndexOutOfRange
	}
	return nil
}

type ChainSnapshot struct {
	BlockNumber uint64
	Epoch       EpochDescriptor
}

type HalvingTarget struct {
	TargetEpoch uint64
	TargetTime  time.Time
}
