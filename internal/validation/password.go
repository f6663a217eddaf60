package validation

// ValidatePassword checks the credential is usable with bcrypt.
func ValidatePassword(password string) error {
	if password == "" {
		return NewError("password is required")
	}

	// Maximum length: 72 bytes (bcrypt limitation)
	// bcrypt silently truncates passwords longer than 72 bytes, which is a security risk
	if len(password) > 72 {
		return NewError("password must not exceed 72 characters")
	}

	return nil
}
