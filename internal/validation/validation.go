// Package validation содержит функции валидации входных данных.
package validation

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// MinPasswordLength — минимальная длина пароля.
const MinPasswordLength = 6

// MaxAmount — наибольшая сумма, которая помещается в int64 копеек.
var MaxAmount = decimal.New(math.MaxInt64, -2)

// NormalizeEmail приводит email к каноническому виду: без пробелов по краям, в нижнем регистре.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail проверяет формат email-адреса.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsStrongPassword проверяет, что пароль не короче MinPasswordLength символов
// и содержит цифру, строчную и заглавную буквы.
func IsStrongPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength {
		return false
	}

	var digit, lower, upper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}

	return digit && lower && upper
}

// IsValidAmount проверяет денежную сумму: неотрицательна, не больше MaxAmount и имеет
// не более двух знаков после запятой. При positive нулевая сумма также отклоняется.
func IsValidAmount(amount decimal.Decimal, positive bool) bool {
	if amount.IsNegative() || amount.GreaterThan(MaxAmount) {
		return false
	}
	if positive && amount.IsZero() {
		return false
	}
	return amount.Equal(amount.Round(2))
}
