package logger

import "strings"

// RedactEmail masks the local part of an address so customer identity
// never lands in log storage: "john.doe@example.com" becomes
// "jo***@example.com". Local parts of two characters or fewer are
// fully masked relative to guessing.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// RedactSecret masks credentials down to their last four characters,
// enough to tell API keys apart when debugging source auth without
// logging the key itself.
func RedactSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// secretKeyParts flags log fields that carry source credentials.
var secretKeyParts = []string{"token", "api_key", "apikey", "secret", "password", "webhook"}

func isSecretKey(key string) bool {
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}
