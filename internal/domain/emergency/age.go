package emergency

import "time"

// ageOn returns the whole years between dob and now, counting a year only
// once its anniversary has passed. This differs from floor(days/365.25) on
// and just after the birthday, where the day count can still be one short.
func ageOn(dob, now time.Time) int {
	dy, dm, dd := dob.Date()
	ny, nm, nd := now.UTC().Date()
	age := ny - dy
	if nm < dm || (nm == dm && nd < dd) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
