package halving

import (
	"testing"

	"github.com/nervoshalving/countdown-service/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	testData := []struct {
		name     string
		packed   uint64
		expected entities.EpochDescriptor
	}{
		{
			name:     "length 16, index 5, number 200",
			packed:   0x0000_1000_0500_00C8,
			expected: entities.EpochDescriptor{Number: 200, Index: 5, Length: 16},
		},
		{
			// literal with one extra hex digit, decoded with the masks by hand
			name:     "misaligned literal",
			packed:   0x0010_0005_0000_0C8,
			expected: entities.EpochDescriptor{Number: 200, Index: 80, Length: 256},
		},
		{
			name:     "rpc documentation example",
			packed:   0x0708_0291_0000_49,
			expected: entities.EpochDescriptor{Number: 73, Index: 657, Length: 1800},
		},
		{
			name:     "genesis",
			packed:   0x03e8_0000_0000_00,
			expected: entities.EpochDescriptor{Number: 0, Index: 0, Length: 1000},
		},
		{
			name:     "all fields saturated",
			packed:   0x00FF_FFFF_FFFF_FFFF,
			expected: entities.EpochDescriptor{Number: 0xFFFFFF, Index: 0xFFFF, Length: 0xFFFF},
		},
	}

	for _, td := range testData {
		t.Run(td.name, func(t *testing.T) {
			assert.Equal(t, td.expected, Decode(td.packed))
		})
	}
}

func TestDecode_IgnoresReservedBits(t *testing.T) {
	packed := uint64(0x0708_0291_0000_49)
	assert.Equal(t, Decode(packed), Decode(packed|0xFF00_0000_0000_0000))
}

func TestEncode_RoundTrip(t *testing.T) {
	packedValues := []uint64{
		0,
		0x0000_1000_0500_00C8,
		0x0708_0291_0000_49,
		0x00FF_FFFF_FFFF_FFFF,
		0x0001_0000_0000_0001,
		0x0000_0000_0100_0000,
	}
	for _, packed := range packedValues {
		require.Equal(t, packed, Encode(Decode(packed)), "packed [%#x]", packed)
	}

	// walk through a spread of field combinations
	for length := uint64(1); length <= 0xFFFF; length = length*3 + 1 {
		for index := uint64(0); index < length; index = index*5 + 1 {
			for number := uint64(0); number <= 0xFFFFFF; number = number*7 + 3 {
				epoch := entities.EpochDescriptor{Number: number, Index: index, Length: length}
				packed := Encode(epoch)
				require.Equal(t, epoch, Decode(packed))
				require.Equal(t, packed, Encode(Decode(packed)))
			}
		}
	}
}

func TestEncode_TruncatesOversizedFields(t *testing.T) {
	epoch := entities.EpochDescriptor{Number: 0x1_000001, Index: 0x1_0002, Length: 0x1_0003}
	assert.Equal(t, entities.EpochDescriptor{Number: 1, Index: 2, Length: 3}, Decode(Encode(epoch)))
}

func TestDecode_IndexNotBelowLengthFailsValidation(t *testing.T) {
	epoch := Decode(0x0004_0009_0022_37)
	assert.Equal(t, entities.EpochDescriptor{Number: 8759, Index: 9, Length: 4}, epoch)
	assert.ErrorIs(t, epoch.Validate(), entities.ErrEpochIndexOutOfRange)
}
