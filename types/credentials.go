package types

import (
	"fmt"
	"log/slog"
)

const redacted = "[redacted]"

// Credentials is the username/password pair handed to every script.
// It is read-only once loaded and must never be logged.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String never prints the password
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: %s}", c.Username, redacted)
}

// GoString keeps %#v from leaking the password
func (c Credentials) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer so structured loggers redact the password
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", redacted),
	)
}

// IsZero reports whether neither field is set
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}
