package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Hashes use the passlib pbkdf2_sha256 layout so that accounts created by the
// previous system keep working:
//
//	$pbkdf2-sha256$<rounds>$<salt>$<checksum>
//
// salt and checksum are "adapted base64": standard alphabet, no padding,
// '+' replaced by '.'.
const (
	pbkdf2Ident   = "pbkdf2-sha256"
	pbkdf2Rounds  = 29000
	pbkdf2SaltLen = 16
	pbkdf2KeyLen  = 32
)

var (
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrMalformedHash    = errors.New("malformed password hash")
)

// HashPassword derives a salted PBKDF2-SHA256 hash of password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	return encodeHash(pbkdf2Rounds, salt, derive(password, salt, pbkdf2Rounds, pbkdf2KeyLen)), nil
}

// CheckPassword returns nil when password matches hash.
func CheckPassword(hash, password string) error {
	rounds, salt, want, err := decodeHash(hash)
	if err != nil {
		return err
	}
	got := derive(password, salt, rounds, len(want))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func derive(password string, salt []byte, rounds, keyLen int) []byte {
	return pbkdf2.Key([]byte(password), salt, rounds, keyLen, sha256.New)
}

func encodeHash(rounds int, salt, key []byte) string {
	return "$" + pbkdf2Ident + "$" + strconv.Itoa(rounds) + "$" + ab64Encode(salt) + "$" + ab64Encode(key)
}

func decodeHash(hash string) (int, []byte, []byte, error) {
	parts := strings.Split(hash, "$")
	// leading "$" yields an empty first element
	if len(parts) != 5 || parts[0] != "" || parts[1] != pbkdf2Ident {
		return 0, nil, nil, ErrMalformedHash
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 {
		return 0, nil, nil, ErrMalformedHash
	}
	salt, err := ab64Decode(parts[3])
	if err != nil {
		return 0, nil, nil, ErrMalformedHash
	}
	key, err := ab64Decode(parts[4])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, ErrMalformedHash
	}
	return rounds, salt, key, nil
}

func ab64Encode(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(strings.TrimRight(s, "="), ".", "+"))
}
