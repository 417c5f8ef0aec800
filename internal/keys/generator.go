package keys

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// KeyPrefix starts every issued key.
	KeyPrefix = "nearmod-"
	// KeySuffixLen is the number of random characters after the prefix.
	KeySuffixLen = 12

	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Largest multiple of len(keyAlphabet) that fits in a byte; bytes at or
	// above it are rejected to keep the distribution uniform.
	rejectAbove = 256 - 256%len(keyAlphabet)
)

// GenerateUniqueKey draws keys until one is not present in existing.
// A nil entropy source means crypto/rand.
func GenerateUniqueKey(existing map[string]struct{}, entropy io.Reader) (string, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	for {
		suffix, err := randomSuffix(entropy)
		if err != nil {
			return "", err
		}
		key := KeyPrefix + suffix
		if _, taken := existing[key]; !taken {
			return key, nil
		}
	}
}

func randomSuffix(entropy io.Reader) (string, error) {
	out := make([]byte, 0, KeySuffixLen)
	buf := make([]byte, KeySuffixLen*2)
	for len(out) < KeySuffixLen {
		if _, err := io.ReadFull(entropy, buf); err != nil {
			return "", fmt.Errorf("keys: read entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(out) == KeySuffixLen {
				break
			}
		}
	}
	return string(out), nil
}
