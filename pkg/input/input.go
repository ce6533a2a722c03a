// Package input validates and normalizes values sent to INPUT nodes.
package input

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/storeflow/pkg/condition"
	"github.com/aretw0/storeflow/pkg/domain"
)

// MinPhoneDigits is the minimum number of digits a phone value must carry.
const MinPhoneDigits = 10

// Generic messages used when a node declares no error text.
const (
	DefaultTextError    = "Please send a text reply."
	DefaultLengthError  = "The reply is too short."
	DefaultNumberError  = "Please send a number."
	DefaultPhoneError   = "Please send a phone number with at least 10 digits."
	DefaultContactError = "Please share your contact using the button."
)

// Validate checks msg against spec and returns the value to store.
// It never panics; every rejection is a *domain.ValidationError.
func Validate(spec domain.InputSpec, msg domain.Message) (string, *domain.ValidationError) {
	switch spec.Kind {
	case domain.ValueNumber:
		return validateNumber(spec, msg)
	case domain.ValuePhoneText:
		return validatePhone(spec, msg)
	case domain.ValueContact:
		return validateContact(spec, msg)
	default:
		return validateText(spec, msg)
	}
}

func reject(spec domain.InputSpec, fallback string) *domain.ValidationError {
	text := spec.ErrorText
	if text == "" {
		text = fallback
	}
	return &domain.ValidationError{Kind: spec.Kind, Text: text}
}

func validateText(spec domain.InputSpec, msg domain.Message) (string, *domain.ValidationError) {
	value := strings.TrimSpace(msg.Text)
	if value == "" && (spec.Required || spec.MinLength > 0) {
		return "", reject(spec, DefaultTextError)
	}
	if spec.MinLength > 0 && utf8.RuneCountInString(value) < spec.MinLength {
		return "", reject(spec, DefaultLengthError)
	}
	return value, nil
}

func validateNumber(spec domain.InputSpec, msg domain.Message) (string, *domain.ValidationError) {
	raw := strings.TrimSpace(msg.Text)
	f, ok := condition.ParseNumber(raw)
	if !ok {
		return "", reject(spec, DefaultNumberError)
	}
	return condition.FormatNumber(f), nil
}

func validatePhone(spec domain.InputSpec, msg domain.Message) (string, *domain.ValidationError) {
	raw := msg.Text
	if raw == "" && msg.Contact != nil {
		raw = msg.Contact.PhoneNumber
	}
	digits := Digits(raw)
	if len(digits) < MinPhoneDigits {
		return "", reject(spec, DefaultPhoneError)
	}
	return digits, nil
}

func validateContact(spec domain.InputSpec, msg domain.Message) (string, *domain.ValidationError) {
	if msg.Contact == nil {
		return "", reject(spec, DefaultContactError)
	}
	phone := strings.TrimSpace(msg.Contact.PhoneNumber)
	if phone == "" {
		return "", reject(spec, DefaultContactError)
	}
	return phone, nil
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCancel reports whether text is the literal cancel keyword.
// CONTACT inputs never treat text as a cancel signal.
func IsCancel(kind domain.ValueKind, text string) bool {
	if kind == domain.ValueContact {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), "cancel")
}
