package calendar

import (
	"fmt"
	"time"

	"fortio.org/safecast"
)

// FromYYMMDD converts a packed YYMMDD date into a UTC date. Years are in the 2000s.
func FromYYMMDD(date uint32) time.Time {
	year := int(date / 10000)
	month := time.Month(date / 100 % 100)
	day := int(date % 100)
	return time.Date(2000+year, month, day, 0, 0, 0, 0, time.UTC)
}

// ToYYMMDD packs t into YYMMDD
func ToYYMMDD(t time.Time) (uint32, error) {
	if t.Year() < 2000 || t.Year() > 2099 {
		return 0, fmt.Errorf("year %d outside 2000-2099", t.Year())
	}
	return safecast.Conv[uint32]((t.Year()-2000)*10000 + int(t.Month())*100 + t.Day())
}

// DayOffset returns the bitmap index of t in a period starting at from
func DayOffset(from uint32, t time.Time) int {
	start := FromYYMMDD(from)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(start).Hours() / 24)
}

// ActiveOn reports whether a period starting at from with the given bitmap
// runs on t, bounded by to.
func ActiveOn(from, to uint32, packed []byte, t time.Time) bool {
	date, err := ToYYMMDD(t)
	if err != nil || date < from || date > to {
		return false
	}
	return Active(packed, DayOffset(from, t))
}
