package keys

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// KeySize is the byte length of a derived Key.
	KeySize = sha256.Size

	maxSeeds      = 16
	maxSeedLength = 32

	domainSeparator = "roomiesplit/derived-key"
)

var (
	// GroupNamespace tags keys of group records.
	GroupNamespace = []byte("group")
	// ExpenseNamespace tags keys of expense records.
	ExpenseNamespace = []byte("expense")
)

var (
	ErrEmptyNamespace        = errors.New("empty namespace")
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrInvalidKey            = errors.New("invalid key")
)

var hashCtor = sha256.New

// Key addresses a stored record.
type Key [KeySize]byte

// Derive computes the key for a namespace and its seeds.
//
// The namespace and every seed are framed as protobuf length-delimited
// fields (namespace is field 1, seed i is field i+2) before hashing, so
// ("ab", "c") and ("a", "bc") never produce the same key.
func Derive(namespace []byte, seeds ...[]byte) (Key, error) {
	var key Key
	if len(namespace) == 0 {
		return key, ErrEmptyNamespace
	}
	if len(namespace) > maxSeedLength {
		return key, ErrMaxSeedLengthExceeded
	}
	if len(seeds) > maxSeeds {
		return key, ErrTooManySeeds
	}

	buf := protowire.AppendTag(nil, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, namespace)
	for i, s := range seeds {
		if len(s) > maxSeedLength {
			return key, ErrMaxSeedLengthExceeded
		}
		buf = protowire.AppendTag(buf, protowire.Number(i+2), protowire.BytesType)
		buf = protowire.AppendBytes(buf, s)
	}

	h := hashCtor()
	for _, v := range [][]byte{buf, []byte(domainSeparator)} {
		if _, err := h.Write(v); err != nil {
			return key, errors.Wrap(err, "failed to hash seed")
		}
	}
	copy(key[:], h.Sum(nil))
	return key, nil
}

// GroupKey returns the key of the group created by owner.
func GroupKey(owner Identity) Key {
	key, err := Derive(GroupNamespace, owner[:])
	if err != nil {
		// owner is fixed-size and within the seed limit.
		panic(err)
	}
	return key
}

// ExpenseKey returns the key of the expense appended to group with salt.
func ExpenseKey(group Key, salt []byte) (Key, error) {
	return Derive(ExpenseNamespace, group[:], salt)
}

// ParseKey decodes a base58 key.
func ParseKey(s string) (Key, error) {
	var key Key
	raw, err := base58.Decode(s)
	if err != nil {
		return key, errors.Wrapf(ErrInvalidKey, "decode %q: %v", s, err)
	}
	if len(raw) != KeySize {
		return key, errors.Wrapf(ErrInvalidKey, "key has %d bytes", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

func (k Key) String() string {
	return base58.Encode(k[:])
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
