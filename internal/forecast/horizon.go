package forecast

import "time"

// DaysPerYear is the length of a year on the reference planet, used by the
// CLI when a horizon is given in planet years.
const DaysPerYear = 360

// HorizonDays returns the number of whole calendar days between the date of
// from and the same date years later. Leap days are counted.
func HorizonDays(years int, from time.Time) int {
	if years <= 0 {
		return 0
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(years, 0, 0)
	return int(end.Sub(start).Hours() / 24)
}
