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

// RedactIP masks the host part of an address.
// "203.0.113.45" → "203.0.113.x"
// "2001:db8:85a3:1:2:3:4:5" → "2001:db8:85a3:1:x"
// Anything unrecognised is fully masked.
func RedactIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	if strings.Count(ip, ".") == 3 && !strings.Contains(ip, ":") {
		return ip[:strings.LastIndex(ip, ".")] + ".x"
	}
	if strings.Contains(ip, ":") {
		groups := strings.Split(ip, ":")
		if len(groups) > 4 {
			groups = groups[:4]
		}
		return strings.Join(groups, ":") + ":x"
	}
	return "***"
}
