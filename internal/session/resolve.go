package session

import (
	"fmt"
	"os"

	"github.com/matheus3301/wppweb/internal/config"
)

// DefaultSessionName is used when nothing else names a session.
const DefaultSessionName = "main"

// SessionEnv names the session when no flag is given.
const SessionEnv = "WPPWEB_SESSION"

// Resolve picks the active session: the flag, then $WPPWEB_SESSION, then the
// config file's default_session, then "main". A config file that exists but
// cannot be read is an error; a missing one is not.
func Resolve(flagOverride string) (string, error) {
	if flagOverride != "" {
		return flagOverride, nil
	}
	if env := os.Getenv(SessionEnv); env != "" {
		return env, nil
	}
	cfg, err := config.LoadOrDefault(ConfigPath())
	if err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}
	if cfg.DefaultSession != "" {
		return cfg.DefaultSession, nil
	}
	return DefaultSessionName, nil
}
