package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidPasswordHash         = errors.New("invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("incompatible password hash version")
)

// Argon2idParams tunes password hashing. Stored hashes carry their own
// memory, iteration and parallelism settings.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// encodedHash is the decoded form of $argon2id$v=19$m=..,t=..,p=..$salt$key.
type encodedHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func CreatePasswordHash(password string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks password against an encoded argon2id hash and returns
// ErrInvalidCredentials on mismatch.
func VerifyPassword(hashedPassword, password string) error {
	decoded, err := decodePasswordHash(hashedPassword)
	if err != nil {
		return err
	}
	p := decoded.params
	candidate := argon2.IDKey([]byte(password), decoded.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(decoded.key, candidate) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// PasswordNeedsRehash reports whether hashedPassword was produced with
// settings weaker than, or different from, params. Unreadable hashes always
// need a rehash.
func PasswordNeedsRehash(hashedPassword string, params Argon2idParams) bool {
	decoded, err := decodePasswordHash(hashedPassword)
	if err != nil {
		return true
	}
	p := decoded.params
	return p.Memory != params.Memory ||
		p.Iterations != params.Iterations ||
		p.Parallelism != params.Parallelism ||
		p.SaltLength != params.SaltLength ||
		p.KeyLength != params.KeyLength
}

func decodePasswordHash(encoded string) (encodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return encodedHash{}, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return encodedHash{}, ErrInvalidPasswordHash
	}
	if version != argon2.Version {
		return encodedHash{}, ErrIncompatiblePasswordVersion
	}

	var out encodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.params.Memory, &out.params.Iterations, &out.params.Parallelism); err != nil {
		return encodedHash{}, ErrInvalidPasswordHash
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return encodedHash{}, ErrInvalidPasswordHash
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return encodedHash{}, ErrInvalidPasswordHash
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.key))
	return out, nil
}
