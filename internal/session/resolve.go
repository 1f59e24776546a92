package session

import (
	"os"

	"github.com/diogocavaiar/session-android/internal/config"
)

const DefaultSessionName = "main"

// SessionEnv names the session when no flag is given.
const SessionEnv = "SESSION_SEND_SESSION"

// Resolve returns the active session name. The --session flag wins over
// $SESSION_SEND_SESSION, which wins over default_session in config.toml.
// Without any of them the session is "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if name := os.Getenv(SessionEnv); name != "" {
		return name
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
