package config

import "time"

// LockoutConfig tunes the failed-login attempt tracker.  Threshold
// failures within the sliding window lock the client key out of the
// login endpoint until the window lapses.
type LockoutConfig struct {
    Threshold int
    Window    time.Duration
}

// LoadLockoutConfig reads the lockout parameters with the platform
// defaults: five failures, fifteen-minute sliding window.
func LoadLockoutConfig() LockoutConfig {
    def := LockoutConfig{
        Threshold: envInt("LOCKOUT_THRESHOLD", 5),
        Window:    envDur("LOCKOUT_WINDOW", 900*time.Second),
    }
    if def.Threshold < 1 { def.Threshold = 1 }
    if def.Window <= 0 { def.Window = 900 * time.Second }
    return def
}
