package halving

import "github.com/nervoshalving/countdown-service/entities"

// bit layout of a CKB EpochNumberWithFraction
const (
	lengthMask  uint64 = 0x00FF_FF00_0000_0000
	indexMask   uint64 = 0x0000_00FF_FF00_0000
	numberMask  uint64 = 0x0000_0000_00FF_FFFF
	lengthShift        = 40
	indexShift         = 24
)

// Decode splits a packed epoch into number, index and length. Bits outside the
// three fields are ignored.
func Decode(packed uint64) entities.EpochDescriptor {
	return entities.EpochDescriptor{
		Number: packed & numberMask,
		Index:  (packed & indexMask) >> indexShift,
		Length: (packed & lengthMask) >> lengthShift,
	}
}

func Encode(epoch entities.EpochDescriptor) uint64 {
	return (epoch.Length<<lengthShift)&lengthMask |
		(epoch.Index<<indexShift)&indexMask |
		epoch.Number&numberMask
}
