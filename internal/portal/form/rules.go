package form

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinLoginLength    = 5
	MinPasswordLength = 5
)

var (
	validate = validator.New()

	realNamePattern = regexp.MustCompile(`^[\p{Cyrillic}-]+$`)
)

// IsEmail reports whether s matches the e-mail pattern.
func IsEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

func presence(value, title string) FieldValidation {
	if value == "" {
		return Reject(RequiredMessage(title))
	}
	return Accept()
}

// Email validates the e-mail input. The format rule applies only when
// registering; otherwise any non-empty value is accepted.
func Email(value string, registration bool) FieldValidation {
	if !registration || value == "" {
		return presence(value, TitleEmail)
	}
	if !IsEmail(value) {
		return Reject(MsgEmailRequirements)
	}
	return Accept()
}

// Login validates the login input; the minimum length applies only when registering.
func Login(value string, registration bool) FieldValidation {
	if !registration || value == "" {
		return presence(value, TitleLogin)
	}
	if utf8.RuneCountInString(value) < MinLoginLength {
		return Reject(MsgMinimumLoginLength)
	}
	return Accept()
}

// Password validates the password input. When registering, spaces are
// rejected before the length rule is considered.
func Password(value string, registration bool) FieldValidation {
	if !registration || value == "" {
		return presence(value, TitlePassword)
	}
	if strings.Contains(value, " ") {
		return Reject(MsgPasswordRequirements)
	}
	if utf8.RuneCountInString(value) < MinPasswordLength {
		return Reject(MsgSimplePassword)
	}
	return Accept()
}

// Confirm compares the confirmation against the current password. Nothing is
// evaluated until the password itself has a value.
func Confirm(confirm, password string) FieldValidation {
	if password == "" {
		return Unchecked()
	}
	if confirm != password {
		return Reject(MsgPasswordMismatch)
	}
	return Accept()
}

// RealName validates the first name of the profile. Callers store the trimmed value.
func RealName(raw string) FieldValidation {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return Reject(MsgRealNameRequired)
	case strings.Contains(v, " "), !realNamePattern.MatchString(v):
		return Reject(MsgRealNameAlphabet)
	}
	return Accept()
}

// RealSurname validates the surname of the profile. Callers store the trimmed value.
func RealSurname(raw string) FieldValidation {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return Reject(MsgRealSurnameRequired)
	case strings.Contains(v, " "):
		return Reject(MsgRealSurnameSpaces)
	case !realNamePattern.MatchString(v):
		return Reject(MsgRealSurnameAlphabet)
	}
	return Accept()
}

// Optional validates a field that never blocks submission: a value marks it
// valid, an empty input leaves it neutral.
func Optional(value string) FieldValidation {
	if value == "" {
		return Unchecked()
	}
	return Accept()
}
