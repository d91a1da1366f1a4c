package auth

import "strings"

type knownCause struct {
	fragment string
	message  string
}

// Order matters: the first fragment found in the raw error wins.
var knownCauses = []knownCause{
	{"already registered", "This email is already registered. Try signing in instead."},
	{"Invalid email", "Please enter a valid email address."},
	{"Password", "Password must be at least 6 characters long."},
	{"Database error", "Account creation failed. Please try again or contact support."},
	{"Email not confirmed", "Please check your email and click the confirmation link."},
}

// FriendlyMessage turns a raw identity error into the text shown to users.
// Unknown errors pass through unchanged.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	raw := err.Error()
	for _, c := range knownCauses {
		if strings.Contains(raw, c.fragment) {
			return c.message
		}
	}
	return raw
}
