package appointments

import "time"

// HolidayCalendar reports days the practice does not book.
type HolidayCalendar interface {
	IsHoliday(date time.Time) bool
}

// ColombiaHolidays implements the Colombian statutory calendar, including
// the Ley Emiliani rule that moves most observances to the next Monday.
type ColombiaHolidays struct {
	cache map[int]map[[2]int]bool
}

// NewColombiaHolidays creates a calendar with an empty per-year cache.
func NewColombiaHolidays() *ColombiaHolidays {
	return &ColombiaHolidays{cache: make(map[int]map[[2]int]bool)}
}

// IsHoliday reports whether date falls on a Colombian public holiday.
func (c *ColombiaHolidays) IsHoliday(date time.Time) bool {
	year := date.Year()
	days, ok := c.cache[year]
	if !ok {
		days = holidaysForYear(year)
		c.cache[year] = days
	}
	return days[[2]int{int(date.Month()), date.Day()}]
}

func holidaysForYear(year int) map[[2]int]bool {
	days := make(map[[2]int]bool)
	add := func(t time.Time) {
		days[[2]int{int(t.Month()), t.Day()}] = true
	}
	fixed := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
	}

	// Observed on their actual date.
	add(fixed(time.January, 1))
	add(fixed(time.May, 1))
	add(fixed(time.July, 20))
	add(fixed(time.August, 7))
	add(fixed(time.December, 8))
	add(fixed(time.December, 25))

	// Moved to the following Monday unless already one (Ley Emiliani).
	add(nextMonday(fixed(time.January, 6)))
	add(nextMonday(fixed(time.March, 19)))
	add(nextMonday(fixed(time.June, 29)))
	add(nextMonday(fixed(time.August, 15)))
	add(nextMonday(fixed(time.October, 12)))
	add(nextMonday(fixed(time.November, 1)))
	add(nextMonday(fixed(time.November, 11)))

	easter := easterSunday(year)
	add(easter.AddDate(0, 0, -3)) // Jueves Santo
	add(easter.AddDate(0, 0, -2)) // Viernes Santo
	add(easter.AddDate(0, 0, 43)) // Ascensión, already Monday-shifted
	add(easter.AddDate(0, 0, 64)) // Corpus Christi
	add(easter.AddDate(0, 0, 71)) // Sagrado Corazón

	return days
}

func nextMonday(t time.Time) time.Time {
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// easterSunday computes Easter in the Gregorian calendar
// (anonymous Gregorian algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
