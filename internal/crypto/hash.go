package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const HashSize = 32

type Hash [HashSize]byte

// HashData hashes the input data using Blake2b-256.
func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromString parses a hex string, with or without a 0x prefix.
func HashFromString(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	copy(h[:], b)
	return h, nil
}
