package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.Local)
}

func TestColombiaHolidaysFixedDates(t *testing.T) {
	cal := NewColombiaHolidays()
	assert.True(t, cal.IsHoliday(day(2025, time.January, 1)))
	assert.True(t, cal.IsHoliday(day(2025, time.May, 1)))
	assert.True(t, cal.IsHoliday(day(2025, time.July, 20)))
	assert.True(t, cal.IsHoliday(day(2025, time.August, 7)))
	assert.True(t, cal.IsHoliday(day(2025, time.December, 25)))

	assert.False(t, cal.IsHoliday(day(2025, time.December, 24)))
	assert.False(t, cal.IsHoliday(day(2025, time.February, 14)))
}

func TestColombiaHolidaysMondayObservance(t *testing.T) {
	cal := NewColombiaHolidays()

	// Epiphany 2025 falls on a Monday and stays put.
	assert.True(t, cal.IsHoliday(day(2025, time.January, 6)))

	// San José 2025 is Wednesday March 19, observed Monday March 24.
	assert.False(t, cal.IsHoliday(day(2025, time.March, 19)))
	assert.True(t, cal.IsHoliday(day(2025, time.March, 24)))

	// All Saints 2025 is Saturday November 1, observed Monday November 3.
	assert.False(t, cal.IsHoliday(day(2025, time.November, 1)))
	assert.True(t, cal.IsHoliday(day(2025, time.November, 3)))
}

func TestColombiaHolidaysEasterDerived(t *testing.T) {
	cal := NewColombiaHolidays()

	// Easter 2025 is April 20.
	assert.Equal(t, time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC), easterSunday(2025))

	assert.True(t, cal.IsHoliday(day(2025, time.April, 17))) // Jueves Santo
	assert.True(t, cal.IsHoliday(day(2025, time.April, 18))) // Viernes Santo
	assert.True(t, cal.IsHoliday(day(2025, time.June, 2)))   // Ascensión
	assert.True(t, cal.IsHoliday(day(2025, time.June, 23)))  // Corpus Christi
	assert.True(t, cal.IsHoliday(day(2025, time.June, 30)))  // Sagrado Corazón

	assert.False(t, cal.IsHoliday(day(2025, time.April, 19)))
}

func TestColombiaHolidaysCachesYears(t *testing.T) {
	cal := NewColombiaHolidays()
	assert.True(t, cal.IsHoliday(day(2026, time.January, 1)))
	assert.True(t, cal.IsHoliday(day(2025, time.January, 1)))
	assert.Len(t, cal.cache, 2)
}
