package checkin

import "time"

// IsWindowOpen reports whether check-in is currently allowed for the service:
// the service must be active and now must fall inside
// [StartsAt-OpenBefore, StartsAt+CloseAfter], bounds inclusive.
func IsWindowOpen(svc KidsService, now time.Time) bool {
	if !svc.Active {
		return false
	}
	opensAt := svc.StartsAt.Add(-svc.OpenBefore)
	closesAt := svc.StartsAt.Add(svc.CloseAfter)
	return !now.Before(opensAt) && !now.After(closesAt)
}

// IsAgeEligible reports whether the child's age in whole years at now falls
// inside the service's accepted range, bounds inclusive.
func IsAgeEligible(child Child, svc KidsService, now time.Time) bool {
	age := AgeInYears(child.DateOfBirth, now)
	return age >= svc.MinAge && age <= svc.MaxAge
}

// AgeInYears computes age in completed years at the given instant. The year
// ticks over on the birthday, not on January 1st.
func AgeInYears(dateOfBirth, now time.Time) int {
	years := now.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(years, 0, 0)
	if now.Before(anniversary) {
		years--
	}
	return years
}
