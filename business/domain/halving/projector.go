package halving

import (
	"math"
	"time"

	"github.com/nervoshalving/countdown-service/entities"
	"github.com/pkg/errors"
)

const (
	DefaultEpochsPerHalving uint64  = 8760
	DefaultHoursPerEpoch    float64 = 4

	millisPerHour = 60 * 60 * 1000
)

type Schedule struct {
	EpochsPerHalving uint64
	HoursPerEpoch    float64
}

func DefaultSchedule() Schedule {
	return Schedule{
		EpochsPerHalving: DefaultEpochsPerHalving,
		HoursPerEpoch:    DefaultHoursPerEpoch,
	}
}

func (s Schedule) Project(epoch entities.EpochDescriptor, now time.Time) (entities.HalvingTarget, error) {
	return Project(epoch, now, s.EpochsPerHalving, s.HoursPerEpoch)
}

// Project returns the next halving epoch strictly after epoch.Number and the time it is
// expected to be reached, assuming every remaining epoch lasts hoursPerEpoch.
func Project(epoch entities.EpochDescriptor, now time.Time, epochsPerHalving uint64, hoursPerEpoch float64) (entities.HalvingTarget, error) {
	if epochsPerHalving == 0 {
		return entities.HalvingTarget{}, errors.New("invalid argument: epochs per halving is zero")
	}
	if err := epoch.Validate(); err != nil {
		return entities.HalvingTarget{}, errors.Wrapf(err, "projecting epoch [%d]", epoch.Number)
	}

	targetEpoch := epoch.Number/epochsPerHalving*epochsPerHalving + epochsPerHalving

	progress := float64(epoch.Index) / float64(epoch.Length)
	remainingEpochs := float64(targetEpoch) - (float64(epoch.Number) + progress)
	remainingMillis := int64(math.Floor(remainingEpochs * hoursPerEpoch * millisPerHour))

	return entities.HalvingTarget{
		TargetEpoch: targetEpoch,
		TargetTime:  now.Add(time.Duration(remainingMillis) * time.Millisecond),
	}, nil
}
