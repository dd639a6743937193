package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementalMean(t *testing.T) {
	m := IncrementalMean(0, 0, 4)
	assert.InDelta(t, 4.0, m, 1e-9)
	m = IncrementalMean(m, 1, 2)
	assert.InDelta(t, 3.0, m, 1e-9)
	m = IncrementalMean(m, 2, 5)
	assert.InDelta(t, 11.0/3.0, m, 1e-9)
}

func TestValidRating(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4, 5} {
		assert.True(t, ValidRating(r), r)
	}
	for _, r := range []int{-1, 0, 6, 10} {
		assert.False(t, ValidRating(r), r)
	}
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Amani Otieno", (&User{FirstName: "Amani", LastName: "Otieno"}).FullName())
	assert.Equal(t, "Amani", (&User{FirstName: "Amani"}).FullName())
	assert.Equal(t, "Otieno", (&User{LastName: "Otieno"}).FullName())
}

func TestValidRSVPStatus(t *testing.T) {
	assert.True(t, ValidRSVPStatus(RSVPGoing))
	assert.True(t, ValidRSVPStatus(RSVPMaybe))
	assert.True(t, ValidRSVPStatus(RSVPDeclined))
	assert.False(t, ValidRSVPStatus(RSVPPending))
	assert.False(t, ValidRSVPStatus("GOING"))
}
