package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateForZip(t *testing.T) {
	tests := []struct {
		zip   string
		state string
		ok    bool
	}{
		{"94102", "CA", true},
		{"10001", "NY", true},
		{"02101", "MA", true},
		{"06103", "CT", true},
		{"20001", "DC", true},
		{"64055", "MO", true},
		{"99501", "AK", true},
		{"82001", "WY", true},
		{"00501", "", false},
		{"96910", "", false},
		{"ab", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.zip, func(t *testing.T) {
			state, ok := USStates.StateForZip(tt.zip)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.state, state)
		})
	}
}

func TestRangeTable_FirstMatchWins(t *testing.T) {
	table := RangeTable{
		{100, 199, "AA"},
		{150, 160, "BB"},
	}

	state, ok := table.StateForZip("15501")
	assert.True(t, ok)
	assert.Equal(t, "AA", state)
}

func TestNormalizeZip(t *testing.T) {
	zip, ok := NormalizeZip(" 94102 ")
	assert.True(t, ok)
	assert.Equal(t, "94102", zip)

	zip, ok = NormalizeZip("64055-1234")
	assert.False(t, ok)
	assert.Equal(t, "640551234", zip)

	_, ok = NormalizeZip("9410")
	assert.False(t, ok)
}
