// Package secrets seals sensitive bridge settings, such as the store public
// key and the command signing secret, with age.
//
// A sealed value has the form ENC[<base64 age ciphertext>] and sits inline in
// a TOML config file or an env var. bridged and bridge-nativesim unseal their
// viper config at load time with an identity resolved by ResolveIdentity.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"
	"github.com/spf13/viper"
)

const (
	sealPrefix = "ENC["
	sealSuffix = "]"

	// DefaultKeyFilename is the identity file looked up under the user's
	// nativebridge config directory.
	DefaultKeyFilename = "age.key"

	// EnvAgeKey holds a raw AGE-SECRET-KEY-1... identity.
	EnvAgeKey = "BRIDGE_AGE_KEY"

	// EnvAgeKeyFile holds the path of an age identity file.
	EnvAgeKeyFile = "BRIDGE_AGE_KEY_FILE"

	// IdentityKey is the config key naming an identity file.
	IdentityKey = "secrets.identity"
)

// ErrNoIdentity is returned by Unseal when the config holds sealed values but
// no identity is configured.
var ErrNoIdentity = fmt.Errorf("config contains sealed values but no age identity is configured; set %s, %s, or %s",
	EnvAgeKey, EnvAgeKeyFile, IdentityKey)

// IsSealed reports whether value is a non-empty ENC[...] wrapper.
func IsSealed(value string) bool {
	return len(value) > len(sealPrefix)+len(sealSuffix) &&
		strings.HasPrefix(value, sealPrefix) && strings.HasSuffix(value, sealSuffix)
}

// Seal encrypts plaintext to recipients and wraps the ciphertext as ENC[...].
func Seal(plaintext string, recipients ...age.Recipient) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(sealPrefix)

	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	w, err := age.Encrypt(enc, recipients...)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}

	buf.WriteString(sealSuffix)
	return buf.String(), nil
}

// Open decrypts a value produced by Seal.
func Open(sealed string, identities ...age.Identity) (string, error) {
	if !IsSealed(sealed) {
		return "", errors.New("value is not sealed (missing ENC[...] wrapper)")
	}
	inner := sealed[len(sealPrefix) : len(sealed)-len(sealSuffix)]

	r, err := age.Decrypt(base64.NewDecoder(base64.StdEncoding, strings.NewReader(inner)), identities...)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plaintext), nil
}

// NewIdentity generates an X25519 identity.
func NewIdentity() (*age.X25519Identity, error) {
	return age.GenerateX25519Identity()
}

// DefaultKeyPath returns ~/.config/nativebridge/age.key, or "" when the home
// directory is unknown.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nativebridge", DefaultKeyFilename)
}

// LoadIdentityFile parses the identities in an age key file.
func LoadIdentityFile(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", path, err)
	}
	return ids, nil
}

// ResolveIdentity finds the identity used to unseal config values, trying in
// order BRIDGE_AGE_KEY, BRIDGE_AGE_KEY_FILE, secrets.identity and the default
// key file. It returns (nil, nil) when none is configured.
func ResolveIdentity(v *viper.Viper) ([]age.Identity, error) {
	if raw := strings.TrimSpace(os.Getenv(EnvAgeKey)); raw != "" {
		id, err := age.ParseX25519Identity(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvAgeKey, err)
		}
		return []age.Identity{id}, nil
	}

	path := os.Getenv(EnvAgeKeyFile)
	if path == "" {
		path = v.GetString(IdentityKey)
	}
	if path != "" {
		return LoadIdentityFile(expandHome(path))
	}

	path = DefaultKeyPath()
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return LoadIdentityFile(path)
}

// SealedKeys returns the sorted config keys whose values are sealed.
// Non-string values never match.
func SealedKeys(v *viper.Viper) []string {
	var keys []string
	for _, key := range v.AllKeys() {
		if IsSealed(v.GetString(key)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Unseal replaces every sealed value in v with its plaintext and returns the
// keys it opened. A config without sealed values needs no identity.
func Unseal(v *viper.Viper) ([]string, error) {
	keys := SealedKeys(v)
	if len(keys) == 0 {
		return nil, nil
	}

	ids, err := ResolveIdentity(v)
	if err != nil {
		return nil, fmt.Errorf("resolve age identity: %w", err)
	}
	if ids == nil {
		return nil, ErrNoIdentity
	}

	for _, key := range keys {
		plaintext, err := Open(v.GetString(key), ids...)
		if err != nil {
			return nil, fmt.Errorf("unseal %s: %w", key, err)
		}
		v.Set(key, plaintext)
	}
	return keys, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
