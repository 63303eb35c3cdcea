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

// RedactIP keeps only the first octet-ish prefix of a client address so
// abuse patterns stay visible without storing the full IP in logs.
func RedactIP(ip string) string {
	if len(ip) <= 8 {
		return ip
	}
	return ip[:8] + "***"
}
