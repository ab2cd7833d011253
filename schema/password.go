package schema

import "strings"

// MinPasswordLength is the shortest password the account service accepts.
const MinPasswordLength = 6

// PasswordWarning identifies the inline warning shown under the password fields.
type PasswordWarning int

const (
	// PasswordWarningNone means the form shows no warning.
	PasswordWarningNone PasswordWarning = iota
	// PasswordWarningTooShort means the new password is below MinPasswordLength.
	PasswordWarningTooShort
	// PasswordWarningMismatch means the confirmation differs from the new password.
	PasswordWarningMismatch
)

func (w PasswordWarning) String() string {
	switch w {
	case PasswordWarningTooShort:
		return "Your password must be at least 6 characters long."
	case PasswordWarningMismatch:
		return "New passwords must match."
	default:
		return ""
	}
}

// NewPasswordForm is the derived state of the two password fields.
type NewPasswordForm struct {
	NewPassword     string
	ConfirmPassword string
}

// IsValid reports whether both fields are long enough and equal.
func (f NewPasswordForm) IsValid() bool {
	return IsAtLeastMinPassword(f.NewPassword) &&
		IsAtLeastMinPassword(f.ConfirmPassword) &&
		f.NewPassword == f.ConfirmPassword
}

// Warning returns the warning to show for the current field values.
func (f NewPasswordForm) Warning() PasswordWarning {
	if f.NewPassword != "" && len([]rune(f.NewPassword)) < MinPasswordLength {
		return PasswordWarningTooShort
	}
	if f.ConfirmPassword != "" && f.ConfirmPassword != f.NewPassword {
		return PasswordWarningMismatch
	}
	return PasswordWarningNone
}

// Validate returns the first validation error for the form, if any.
func (f NewPasswordForm) Validate() error {
	if !IsAtLeastMinPassword(f.NewPassword) || !IsAtLeastMinPassword(f.ConfirmPassword) {
		return ErrPasswordTooShort
	}
	if f.NewPassword != f.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// IsAtLeastMinPassword reports whether value is non-empty and at least MinPasswordLength runes.
func IsAtLeastMinPassword(value string) bool {
	return value != "" && len([]rune(value)) >= MinPasswordLength
}

// MaskEmail hides the middle of the local part of an email address.
// "someone@example.com" becomes "s*****e@example.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local := []rune(email[:at])
	domain := email[at:]
	if len(local) <= 2 {
		return string(local[:1]) + strings.Repeat("*", len(local)-1) + domain
	}
	return string(local[0]) + strings.Repeat("*", len(local)-2) + string(local[len(local)-1]) + domain
}
