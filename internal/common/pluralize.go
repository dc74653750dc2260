// Package common — pluralize.go содержит склонение русских числительных
// и форматирование сумм для отчётов.
package common

import (
	"fmt"
	"math"
)

// pluralize выбирает форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralize(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeUsers возвращает форму слова «пользователь».
//
// Примеры:
//
//	PluralizeUsers(1)  → "пользователь"
//	PluralizeUsers(3)  → "пользователя"
//	PluralizeUsers(11) → "пользователей"
func PluralizeUsers(n int) string {
	return pluralize(int64(n), "пользователь", "пользователя", "пользователей")
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
func PluralizeDays(n int) string {
	return pluralize(int64(n), "день", "дня", "дней")
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	rest := n / 1000
	last := n % 1000
	return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
}

// FormatFUN форматирует сумму в минимальных единицах как токены
// с двумя знаками после запятой (округление вниз).
// Пример: FormatFUN(1234567890, 1_000_000) → "1 234.56 FUN"
func FormatFUN(units, unitsPerToken int64) string {
	if unitsPerToken <= 0 {
		unitsPerToken = 1
	}
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	whole := units / unitsPerToken
	cents := (units % unitsPerToken) * 100 / unitsPerToken
	return fmt.Sprintf("%s%s.%02d FUN", sign, FormatNumber(whole), cents)
}
