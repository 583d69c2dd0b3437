package form

// Field titles used inside the "required" message.
const (
	TitleEmail    = "Email"
	TitleLogin    = "Login"
	TitlePassword = "Password"
)

const (
	MsgEmailRequirements    = "Email must be a valid email address"
	MsgMinimumLoginLength   = "Login must be at least 5 characters long"
	MsgPasswordRequirements = "Password must not contain spaces"
	MsgSimplePassword       = "Password is too simple, use at least 5 characters"
	MsgPasswordMismatch     = "Passwords do not match"

	MsgRealNameRequired    = "First name is required"
	MsgRealNameAlphabet    = "First name may contain Cyrillic letters and hyphens and must not contain spaces"
	MsgRealSurnameRequired = "Surname is required"
	MsgRealSurnameSpaces   = "Surname may contain Cyrillic letters and hyphens and must not contain spaces"

	// MsgRealSurnameAlphabet keeps the wording shipped with the surname rule,
	// which describes the login rule instead. Pending product clarification.
	MsgRealSurnameAlphabet = "Login must consist of Latin letters and must not contain spaces"
)

// RequiredMessage renders the "field is required" message for a field title.
func RequiredMessage(title string) string {
	return title + " is required"
}
