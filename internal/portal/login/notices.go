package login

// Notification titles and bodies of the auth screen.
const (
	TitleAttention = "Attention"
	TitleError     = "Error"

	NoticeWrongCredentials = "Wrong username or password"
	NoticeRegistered       = "You have successfully registered"
	NoticeEmailDuplicate   = "Several users cannot be registered with the same email"
	NoticeUserDuplicate    = "A user with this name already exists"
	NoticeRecoverySent     = "Your password has been sent to your email"
	NoticeRecoveryUnknown  = "No user is registered with this email"
)
