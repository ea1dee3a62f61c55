package password

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcPrefix = "$" + algorithmID + "$"

// params are the Argon2id cost settings stored in a PHC string.
type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$hash string.
type phc struct {
	params
	salt []byte
	key  []byte
}

func (p phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix,
		argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// decodePHC parses encoded. Anything that is not an argon2id string is
// ErrUnknownFormat; a broken argon2id string is ErrMalformedHash.
func decodePHC(encoded string) (phc, error) {
	if !strings.HasPrefix(encoded, phcPrefix) {
		return phc{}, ErrUnknownFormat
	}
	fields := strings.Split(strings.TrimPrefix(encoded, phcPrefix), "$")
	if len(fields) != 4 {
		return phc{}, fmt.Errorf("%w: want 4 fields after the algorithm, got %d", ErrMalformedHash, len(fields))
	}

	if fields[0] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[0])
	}

	p, err := decodeParams(fields[1])
	if err != nil {
		return phc{}, err
	}

	salt, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil || len(salt) < int(minSaltLength) {
		return phc{}, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	key, err := base64.StdEncoding.DecodeString(fields[3])
	if err != nil || len(key) == 0 {
		return phc{}, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}

	return phc{params: p, salt: salt, key: key}, nil
}

// decodeParams reads "m=..,t=..,p=.." in any order, each exactly once.
func decodeParams(s string) (params, error) {
	var (
		p    params
		seen = map[string]bool{}
	)
	for _, kv := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || seen[name] {
			return params{}, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, kv)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return params{}, fmt.Errorf("%w: memory %q", ErrMalformedHash, value)
			}
			p.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return params{}, fmt.Errorf("%w: time %q", ErrMalformedHash, value)
			}
			p.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return params{}, fmt.Errorf("%w: parallelism %q", ErrMalformedHash, value)
			}
			p.parallelism = uint8(v)
		default:
			return params{}, fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
	}
	if len(seen) != 3 {
		return params{}, fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return p, nil
}
