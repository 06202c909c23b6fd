package utils

import (
	"regexp"
	"strings"
	"time"
)

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidatePhone проверяет телефон в международном формате
// (необязательный "+", далее 2-15 цифр без ведущего нуля).
func ValidatePhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	return phoneRegex.MatchString(cleaned)
}

// BeginningOfDay обрезает время до начала суток.
func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// WorkingDaysBetween считает количество рабочих дней (пн-пт) между датами.
// Для отчётов по успешным сделкам: сколько рабочих дней заняла сделка.
func WorkingDaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	if end.Before(start) {
		return 0
	}

	days := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			days++
		}
	}
	return days
}
