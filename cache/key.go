package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyBuilder assembles a deterministic, content-aware cache key from a
// function identity and its arguments. File arguments embed a hash of the
// referenced file's bytes, so edits invalidate stale entries automatically
// regardless of the path staying the same. Keyword arguments are sorted by
// name, so their order never affects the key.
type KeyBuilder struct {
	identity string
	args     []string
	kwargs   []string
}

// NewKey starts a key for the given function identity
func NewKey(identity string) *KeyBuilder {
	return &KeyBuilder{identity: identity}
}

// Arg appends a positional argument serialized to a stable textual representation
func (k *KeyBuilder) Arg(value interface{}) *KeyBuilder {
	k.args = append(k.args, serializeArg(value))
	return k
}

// FileArg appends a positional filesystem-path argument. The path is resolved
// to an absolute canonical path and combined with a SHA-256 digest of the file
// contents, or a literal "missing" marker if the file does not exist.
func (k *KeyBuilder) FileArg(path string) *KeyBuilder {
	k.args = append(k.args, serializeFileArg(path))
	return k
}

// KwArg appends a keyword argument
func (k *KeyBuilder) KwArg(name string, value interface{}) *KeyBuilder {
	k.kwargs = append(k.kwargs, fmt.Sprintf("%v=%v", name, serializeArg(value)))
	return k
}

// KwFileArg appends a keyword filesystem-path argument
func (k *KeyBuilder) KwFileArg(name string, path string) *KeyBuilder {
	k.kwargs = append(k.kwargs, fmt.Sprintf("%v=%v", name, serializeFileArg(path)))
	return k
}

// String builds the final key: identity, positional parts, then keyword parts
// sorted by name, joined with ":".
func (k *KeyBuilder) String() string {
	parts := make([]string, 0, 1+len(k.args)+len(k.kwargs))
	parts = append(parts, k.identity)
	parts = append(parts, k.args...)

	sorted := append([]string(nil), k.kwargs...)
	sort.Strings(sorted)
	parts = append(parts, sorted...)

	return strings.Join(parts, ":")
}

func serializeArg(value interface{}) string {
	return fmt.Sprintf("%#v", value)
}

func serializeFileArg(path string) string {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = filepath.Clean(path)
	}
	if target, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = target
	}

	digest := "missing"
	if info, err := os.Stat(resolved); err == nil && info.Mode().IsRegular() {
		if h, err := FileHash(resolved); err == nil {
			digest = h
		}
	}

	return fmt.Sprintf("path:%v:%v", resolved, digest)
}

// Fingerprint returns the hex SHA-256 digest of v's JSON encoding. It keys
// derived computations on an in-memory value the same way FileArg keys on
// file contents, so a changed upstream result invalidates downstream entries.
func Fingerprint(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "unserializable"
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// FileHash returns the hex SHA-256 digest of a file's contents
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
