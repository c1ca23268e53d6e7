// Package secrets seals values at rest with a local age key: the saved
// session token and ENC[age:...] entries of the .env file.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/dohr-michael/dayplan/internal/config"
)

const (
	sealedPrefix = "ENC[age:"
	sealedSuffix = "]"
)

var ErrNotSealed = errors.New("value is not sealed")

// KeyPath returns the default key file: $DAYPLAN_PATH/.age-key.
func KeyPath() string {
	return filepath.Join(config.DayplanPath(), ".age-key")
}

// Keyring seals and opens values with one X25519 identity.
type Keyring struct {
	identity *age.X25519Identity
}

// OpenKeyring loads the identity at path, generating it on first use.
func OpenKeyring(path string) (*Keyring, error) {
	if err := generateIdentity(path); err != nil {
		return nil, err
	}
	id, err := loadIdentity(path)
	if err != nil {
		return nil, err
	}
	return &Keyring{identity: id}, nil
}

// NewKeyring wraps an existing identity.
func NewKeyring(id *age.X25519Identity) *Keyring {
	return &Keyring{identity: id}
}

// Recipient is the public half of the keyring.
func (k *Keyring) Recipient() string {
	return k.identity.Recipient().String()
}

// generateIdentity writes a fresh key to path unless one exists.
func generateIdentity(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generate age identity: %w", err)
	}
	content := fmt.Sprintf("# created by dayplan\n# public key: %s\n%s\n",
		identity.Recipient().String(), identity.String())

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write age key: %w", err)
	}
	return nil
}

func loadIdentity(path string) (*age.X25519Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse age identities: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", path)
	}
	id, ok := identities[0].(*age.X25519Identity)
	if !ok {
		return nil, fmt.Errorf("unexpected identity type in %s", path)
	}
	return id, nil
}

// Seal encrypts plaintext into an ENC[age:...] value.
func (k *Keyring) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, k.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("age encrypt init: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("age encrypt write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("age encrypt close: %w", err)
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + sealedSuffix, nil
}

// Open decrypts a sealed value.
func (k *Keyring) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}
	encoded := sealed[len(sealedPrefix) : len(sealed)-len(sealedSuffix)]
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), k.identity)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read decrypted: %w", err)
	}
	return string(plain), nil
}

// Reveal opens v if it is sealed and returns it unchanged otherwise.
func (k *Keyring) Reveal(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	return k.Open(v)
}

// IsSealed reports whether s is an ENC[age:...] value.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix) && strings.HasSuffix(s, sealedSuffix)
}
