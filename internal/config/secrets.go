package config

// This file implements the two-tier secret resolution strategy for
// the JWT signing keys.  Tier one is a mounted secret file (the
// deployment's secret manager writes secrets to a volume); tier two
// is the local environment.  The chosen tier is logged, but callers
// only ever see the resolved value, so the signer and coordinator
// stay ignorant of where key material came from.

import (
    "log"
    "os"
    "path/filepath"
    "strings"
)

// Secrets holds the resolved signing key material.
//
// ActiveKey signs and verifies; PreviousKeys only verify, giving
// tokens signed before a key rotation a grace period.
type Secrets struct {
    ActiveKey    string
    PreviousKeys []string
}

// LoadSecrets resolves the signing keys.  For each secret name it
// first tries SECRETS_DIR/<name>, then the <name> environment
// variable.  The active key is required; resolution failure is fatal
// at startup, never mid-request.
func LoadSecrets() Secrets {
    active := resolveSecret("JWT_SECRET")
    if active == "" {
        log.Fatal("secret JWT_SECRET not found in secrets dir or environment")
    }

    s := Secrets{ActiveKey: active}
    // Optional comma-separated previous keys kept verifiable during rotation.
    if prev := resolveSecret("JWT_SECRET_PREVIOUS"); prev != "" {
        for _, k := range strings.Split(prev, ",") {
            if k = strings.TrimSpace(k); k != "" {
                s.PreviousKeys = append(s.PreviousKeys, k)
            }
        }
    }
    return s
}

// resolveSecret returns the secret value from the first tier that
// has it, or "" when neither does.
func resolveSecret(name string) string {
    if dir := os.Getenv("SECRETS_DIR"); dir != "" {
        raw, err := os.ReadFile(filepath.Join(dir, name))
        if err == nil {
            if v := strings.TrimSpace(string(raw)); v != "" {
                log.Printf("secrets: %s resolved from secrets dir", name)
                return v
            }
        } else if !os.IsNotExist(err) {
            log.Printf("secrets: reading %s from secrets dir failed: %v; falling back to environment", name, err)
        }
    }
    if v := os.Getenv(name); v != "" {
        log.Printf("secrets: %s resolved from environment", name)
        return v
    }
    return ""
}
