package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/spf13/viper"
)

// clearIdentityEnv points every identity source somewhere empty.
func clearIdentityEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAgeKey, "")
	t.Setenv(EnvAgeKeyFile, "")
	return home
}

func writeKey(t *testing.T, path string, id *age.X25519Identity) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("# test\n"+id.String()+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestIsSealed(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"ENC[abc123]", true},
		{"plaintext", false},
		{"", false},
		{"ENC[]", false},
		{"ENC[abc", false},
		{"enc[abc]", false},
	}
	for _, tt := range tests {
		if got := IsSealed(tt.value); got != tt.want {
			t.Errorf("IsSealed(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSealOpen(t *testing.T) {
	id, _ := NewIdentity()

	for _, plaintext := range []string{"MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8A", ""} {
		sealed, err := Seal(plaintext, id.Recipient())
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if !IsSealed(sealed) {
			t.Fatalf("Seal output not wrapped: %q", sealed)
		}
		got, err := Open(sealed, id)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if got != plaintext {
			t.Errorf("Open = %q, want %q", got, plaintext)
		}
	}
}

func TestOpenFailures(t *testing.T) {
	id, _ := NewIdentity()
	other, _ := NewIdentity()
	sealed, _ := Seal("secret", id.Recipient())

	cases := map[string]string{
		"wrong identity": sealed,
		"not sealed":     "secret",
		"bad base64":     "ENC[!!!not-base64!!!]",
		"not age":        "ENC[aGVsbG8gd29ybGQ=]",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Open(value, other); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestResolveIdentityOrder(t *testing.T) {
	envID, _ := NewIdentity()
	fileID, _ := NewIdentity()
	cfgID, _ := NewIdentity()
	defID, _ := NewIdentity()

	home := clearIdentityEnv(t)
	filePath := filepath.Join(t.TempDir(), "env.key")
	cfgPath := filepath.Join(home, "cfg.key")
	writeKey(t, filePath, fileID)
	writeKey(t, cfgPath, cfgID)
	writeKey(t, DefaultKeyPath(), defID)

	v := viper.New()
	v.Set(IdentityKey, "~/cfg.key")

	// Each identity can open only its own value, which tells us the source.
	source := func() string {
		t.Helper()
		ids, err := ResolveIdentity(v)
		if err != nil {
			t.Fatalf("ResolveIdentity: %v", err)
		}
		for name, id := range map[string]*age.X25519Identity{"env": envID, "file": fileID, "config": cfgID, "default": defID} {
			sealed, _ := Seal(name, id.Recipient())
			if got, err := Open(sealed, ids...); err == nil && got == name {
				return name
			}
		}
		return "none"
	}

	t.Setenv(EnvAgeKey, envID.String())
	t.Setenv(EnvAgeKeyFile, filePath)
	if got := source(); got != "env" {
		t.Errorf("with %s set, source = %s", EnvAgeKey, got)
	}
	t.Setenv(EnvAgeKey, "")
	if got := source(); got != "file" {
		t.Errorf("with %s set, source = %s", EnvAgeKeyFile, got)
	}
	t.Setenv(EnvAgeKeyFile, "")
	if got := source(); got != "config" {
		t.Errorf("with %s set, source = %s", IdentityKey, got)
	}
	v.Set(IdentityKey, "")
	if got := source(); got != "default" {
		t.Errorf("default key file not used, source = %s", got)
	}
}

func TestResolveIdentityNone(t *testing.T) {
	clearIdentityEnv(t)
	ids, err := ResolveIdentity(viper.New())
	if err != nil || ids != nil {
		t.Fatalf("ResolveIdentity = %v, %v; want nil, nil", ids, err)
	}
}

func TestResolveIdentityBadKey(t *testing.T) {
	clearIdentityEnv(t)
	t.Setenv(EnvAgeKey, "AGE-SECRET-KEY-NOPE")
	if _, err := ResolveIdentity(viper.New()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUnseal(t *testing.T) {
	id, _ := NewIdentity()
	storeKey, _ := Seal("MIIBIjANBgkq", id.Recipient())
	secret, _ := Seal("hmac-secret", id.Recipient())

	newConfig := func() *viper.Viper {
		v := viper.New()
		v.Set("iap.public_key", storeKey)
		v.Set("security.command_secret", secret)
		v.Set("server.socket", "/run/bridged.sock")
		v.Set("fonts.watch", true)
		return v
	}

	t.Run("with identity", func(t *testing.T) {
		clearIdentityEnv(t)
		t.Setenv(EnvAgeKey, id.String())
		v := newConfig()

		keys, err := Unseal(v)
		if err != nil {
			t.Fatalf("Unseal: %v", err)
		}
		if !slices.Equal(keys, []string{"iap.public_key", "security.command_secret"}) {
			t.Errorf("unsealed keys = %v", keys)
		}
		if got := v.GetString("iap.public_key"); got != "MIIBIjANBgkq" {
			t.Errorf("iap.public_key = %q", got)
		}
		if got := v.GetString("security.command_secret"); got != "hmac-secret" {
			t.Errorf("security.command_secret = %q", got)
		}
		if got := v.GetString("server.socket"); got != "/run/bridged.sock" {
			t.Errorf("plain value changed: %q", got)
		}
		if !v.GetBool("fonts.watch") {
			t.Error("non-string value changed")
		}
	})

	t.Run("sealed without identity", func(t *testing.T) {
		clearIdentityEnv(t)
		if _, err := Unseal(newConfig()); !errors.Is(err, ErrNoIdentity) {
			t.Fatalf("expected ErrNoIdentity, got %v", err)
		}
	})

	t.Run("wrong identity names the key", func(t *testing.T) {
		clearIdentityEnv(t)
		other, _ := NewIdentity()
		t.Setenv(EnvAgeKey, other.String())
		_, err := Unseal(newConfig())
		if err == nil || !strings.Contains(err.Error(), "iap.public_key") {
			t.Fatalf("expected error naming the key, got %v", err)
		}
	})

	t.Run("plain config ignores a broken identity", func(t *testing.T) {
		clearIdentityEnv(t)
		t.Setenv(EnvAgeKeyFile, "/nonexistent/age.key")
		v := viper.New()
		v.Set("iap.public_key", "plain")
		keys, err := Unseal(v)
		if err != nil || keys != nil {
			t.Fatalf("Unseal = %v, %v", keys, err)
		}
	})
}
