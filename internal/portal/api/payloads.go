package api

import (
	"encoding/json"
)

// Request bodies.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegistrationRequest struct {
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type RecoveryRequest struct {
	Email string `json:"email"`
}

type ProfileRequest struct {
	Email string `json:"email"`
}

type ProfileUpdateRequest struct {
	Email       string `json:"email"`
	RealName    string `json:"realName"`
	RealSurname string `json:"realSurname"`
	School      string `json:"school"`
	University  string `json:"university"`
	WorkPlace   string `json:"workPlace"`
}

// Response message codes inspected by the screens.
const (
	MessageUnauthorized   = "Unauthorized"
	MessageEmailDuplicate = "EMAIL_DUPLICATE"
	MessageUserDuplicate  = "USER_DUPLICATE"
)

// Readers below never fail: a body of an unexpected shape reads as zero values.

// LoginResult is what the login screen reads from the auth reply.
type LoginResult struct {
	AccessToken string
	Message     string
	Email       string
}

// RegistrationResult is what the registration screen reads.
type RegistrationResult struct {
	Status  int
	Message string
}

// Profile is the profile payload.
type Profile struct {
	Username    string
	RealName    string
	RealSurname string
	School      string
	University  string
	WorkPlace   string
}

func object(data json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// ReadLogin extracts the token, message code and account e-mail.
func ReadLogin(data json.RawMessage) LoginResult {
	m := object(data)
	res := LoginResult{AccessToken: str(m, "access_token"), Message: str(m, "message")}
	if inner, ok := m["data"].(map[string]any); ok {
		res.Email = str(inner, "email")
	}
	return res
}

// ReadRegistration extracts the numeric status and message code.
func ReadRegistration(data json.RawMessage) RegistrationResult {
	m := object(data)
	res := RegistrationResult{Message: str(m, "message")}
	if n, ok := m["status"].(float64); ok {
		res.Status = int(n)
	}
	return res
}

// ReadProfile extracts the profile fields.
func ReadProfile(data json.RawMessage) Profile {
	m := object(data)
	return Profile{
		Username:    str(m, "username"),
		RealName:    str(m, "realName"),
		RealSurname: str(m, "realSurname"),
		School:      str(m, "school"),
		University:  str(m, "university"),
		WorkPlace:   str(m, "workPlace"),
	}
}

// Truthy reports whether a JSON body counts as present: false, null, 0, ""
// and an empty body are falsy, everything else (objects and arrays included)
// is truthy.
func Truthy(data json.RawMessage) bool {
	if len(data) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
