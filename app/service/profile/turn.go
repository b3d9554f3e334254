package profile

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts the roles clients send; "bot" and "model" are assistant aliases.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "user":
		return RoleUser, true
	case "assistant", "bot", "model":
		return RoleAssistant, true
	default:
		return "", false
	}
}

type Turn struct {
	Role      Role
	Text      string
	Timestamp time.Time
}
