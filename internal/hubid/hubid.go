// Package hubid manages the device-local identifier that scopes every
// collection of a household's data.
package hubid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	prefix    = "hub_"
	suffixLen = 9
	base36    = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var idRegexp = regexp.MustCompile(`^hub_[0-9a-z]{9}$`)

// Valid reports whether id has the hub_ + nine base-36 characters form.
func Valid(id string) bool {
	return idRegexp.MatchString(id)
}

// Generate returns a new random hub identifier.
func Generate() (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	max := big.NewInt(int64(len(base36)))
	for range suffixLen {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate hub id: %w", err)
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String(), nil
}

// Load returns the identifier stored at path, generating and persisting a
// new one on first use.
func Load(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(raw))
		if !Valid(id) {
			return "", fmt.Errorf("hub id file %s: malformed id %q", path, id)
		}
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read hub id: %w", err)
	}

	id, err := Generate()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create hub id dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write hub id: %w", err)
	}
	return id, nil
}
