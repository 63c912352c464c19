package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Password length bounds in bytes. The upper bound caps hashing cost on
// hostile input.
const (
	MinLength = 10
	MaxLength = 1024
)

var (
	// ErrTooShort is returned by Hash for passwords under MinLength bytes.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned by Hash and Verify above MaxLength bytes.
	ErrTooLong = errors.New("password too long")
	// ErrMalformedHash is returned for stored hashes that are not valid
	// argon2id PHC strings.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds the Argon2id cost parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes with a fixed parameter set. Safe for concurrent use.
type Argon2 struct {
	config Config
}

// phc is a decoded hash string.
type phc struct {
	Config
	salt []byte
	hash []byte
}

// NewArgon2 validates cfg against the minimum cost parameters.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns the PHC encoding of password under a fresh random salt.
// Password bytes are used as given, without Unicode normalisation.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}
	if len(password) > MaxLength {
		return "", ErrTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	c := a.config
	key := argon2.IDKey([]byte(password), salt, c.Time, c.Memory, c.Parallelism, c.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		c.Memory, c.Time, c.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The stored parameters
// are used, not the receiver's.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > MaxLength {
		return false, ErrTooLong
	}
	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), p.salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(key, p.hash) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the receiver's.
func (a *Argon2) NeedsRehash(encoded string) (bool, error) {
	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	c := a.config
	return c.Memory > p.Memory ||
		c.Time > p.Time ||
		c.Parallelism > p.Parallelism ||
		c.KeyLength != p.KeyLength, nil
}

func decode(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: not an argon2id PHC string", ErrMalformedHash)
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	p := &phc{}
	if err := p.parseParams(parts[3]); err != nil {
		return nil, err
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if p.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.hash) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	p.SaltLength = uint32(len(p.salt))
	p.KeyLength = uint32(len(p.hash))
	return p, nil
}

func (p *phc) parseParams(part string) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(part, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return fmt.Errorf("%w: bad memory", ErrMalformedHash)
			}
			p.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return fmt.Errorf("%w: bad time", ErrMalformedHash)
			}
			p.Time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return fmt.Errorf("%w: bad parallelism", ErrMalformedHash)
			}
			p.Parallelism = uint8(v)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
	}
	if len(seen) != 3 {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}
