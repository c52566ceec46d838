package circulation

import "time"

// CalculateFine computes the overdue penalty for a return. It returns the
// number of whole days the return is late and the fine owed at finePerDay.
// Partial days are truncated; there is no cap on the total.
func CalculateFine(dueDate, returnDate time.Time, finePerDay int64) (overdueDays int, fine int64) {
	if !returnDate.After(dueDate) {
		return 0, 0
	}
	overdueDays = int(returnDate.Sub(dueDate) / (24 * time.Hour))
	return overdueDays, int64(overdueDays) * finePerDay
}
