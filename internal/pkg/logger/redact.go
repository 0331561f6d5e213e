package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactToken keeps only the last four characters of a credential.
// "md-abcdef123456" → "***3456". Anything of eight characters or fewer is fully masked.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return "***" + token[len(token)-4:]
}
