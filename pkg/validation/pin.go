package validation

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the longest message a pin may carry.
	MaxMessageLength = 500

	// MinAmount is the smallest amount a pin can be paid with, in satoshis.
	MinAmount = 1
)

// ValidateCoordinate checks that a pin target is a real WGS84 position.
func ValidateCoordinate(lat, long float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude: expected -90..90, got %v", lat)
	}
	if long < -180 || long > 180 {
		return fmt.Errorf("invalid longitude: expected -180..180, got %v", long)
	}
	return nil
}

// ValidateMessage checks the free-text message attached to a pin.
func ValidateMessage(message string) error {
	if message == "" {
		return fmt.Errorf("message is required")
	}
	if !utf8.ValidString(message) {
		return fmt.Errorf("message is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLength {
		return fmt.Errorf("message too long: expected at most %d characters, got %d", MaxMessageLength, n)
	}
	return nil
}

// ValidateAmount checks the satoshi amount of a draft.
func ValidateAmount(amount int64) error {
	if amount < MinAmount {
		return fmt.Errorf("invalid amount: expected at least %d, got %d", MinAmount, amount)
	}
	return nil
}
