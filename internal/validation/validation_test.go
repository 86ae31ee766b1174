package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "simple", email: "ana@example.com", valid: true},
		{name: "subdomain", email: "ana.b@mail.example.org", valid: true},
		{name: "missing at", email: "ana.example.com", valid: false},
		{name: "short tld", email: "ana@example.c", valid: false},
		{name: "spaces", email: "ana @example.com", valid: false},
		{name: "empty string", email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("NormalizeEmail = %q, want %q", got, "ana@example.com")
	}
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "strong", password: "Secret1", valid: true},
		{name: "too short", password: "Se1", valid: false},
		{name: "no digit", password: "Secrets", valid: false},
		{name: "no upper", password: "secret1", valid: false},
		{name: "no lower", password: "SECRET1", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsStrongPassword(tt.password)
			if got != tt.valid {
				t.Fatalf("IsStrongPassword(%q) = %v, want %v", tt.password, got, tt.valid)
			}
		})
	}
}

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		positive bool
		valid    bool
	}{
		{name: "cents", amount: "12.34", positive: true, valid: true},
		{name: "zero allowed", amount: "0", positive: false, valid: true},
		{name: "zero rejected", amount: "0", positive: true, valid: false},
		{name: "negative", amount: "-1", positive: false, valid: false},
		{name: "sub-cent", amount: "0.001", positive: false, valid: false},
		{name: "largest storable", amount: "92233720368547758.07", positive: true, valid: true},
		{name: "one cent over int64", amount: "92233720368547758.08", positive: true, valid: false},
		{name: "exponent overflow", amount: "1e20", positive: true, valid: false},
		{name: "wraps to negative cents", amount: "100000000000000000", positive: false, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidAmount(decimal.RequireFromString(tt.amount), tt.positive)
			if got != tt.valid {
				t.Fatalf("IsValidAmount(%s, %v) = %v, want %v", tt.amount, tt.positive, got, tt.valid)
			}
		})
	}
}
