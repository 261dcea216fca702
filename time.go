package registration

import "time"

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	return IsWithinThresholdPeriodAt(t, pattern, time.Now())
}

// IsWithinThresholdPeriodAt checks the threshold against a reference time
func IsWithinThresholdPeriodAt(t time.Time, pattern string, now time.Time) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := now.Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	return IsOutsideThresholdPeriodAt(t, pattern, time.Now())
}

// IsOutsideThresholdPeriodAt is the negation of IsWithinThresholdPeriodAt
func IsOutsideThresholdPeriodAt(t time.Time, pattern string, now time.Time) (bool, error) {
	valid, err := IsWithinThresholdPeriodAt(t, pattern, now)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// activationWindow converts the configured activation days to a duration pattern
func activationWindow(days int) string {
	if days <= 0 {
		days = DefaultActivationDays
	}
	return (time.Duration(days) * 24 * time.Hour).String()
}
