// Package crypto hashes account passwords for the cloud backend.
//
// Hashes are stored in the PHC string format
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>
//
// so every row carries the parameters it was made with. Raising the cost
// later does not lock anyone out; old hashes still verify and are replaced
// on the next successful login (see NeedsRehash).
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params are the Argon2id cost settings.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultParams is used for new hashes.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

// ErrMalformedHash is returned for stored values that are not an argon2id PHC string.
var ErrMalformedHash = errors.New("malformed password hash")

const scheme = "argon2id"

var b64 = base64.RawStdEncoding

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash derives a key for password with a fresh salt and encodes it with p.
func Hash(password string, p Params) (string, error) {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 || p.SaltLen == 0 || p.KeyLen == 0 {
		return "", errors.New("argon2 params must be positive")
	}
	salt, err := RandBytes(int(p.SaltLen))
	if err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		scheme, argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether password matches encoded. The comparison runs in
// constant time; a malformed hash is an error, not a mismatch.
func Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

// NeedsRehash reports whether encoded was made with settings other than p.
// Unreadable values need a rehash too.
func NeedsRehash(encoded string, p Params) bool {
	got, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return got != p
}

func decode(encoded string) (p Params, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != scheme {
		return Params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("%w: argon2 version %d", ErrMalformedHash, version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}

	if salt, err = b64.DecodeString(parts[4]); err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}
	if key, err = b64.DecodeString(parts[5]); err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrMalformedHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
