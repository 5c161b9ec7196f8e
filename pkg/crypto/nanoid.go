package crypto

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	// URL- and cookie-safe; contains neither '.' nor '~' so ids can sit inside envelopes.
	defaultAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	defaultSize     int    = 22 // 22 * 6 = 132 bits (uuid is 128 bits) of entropy
	maxAlphabetSize int    = 255
	minAlphabetSize int    = 8
)

var (
	ErrAlphabetTooLong  = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetNotASCII = errors.New("alphabet must contain only ASCII characters")
	ErrAlphabetReserved = errors.New("alphabet must not contain envelope separators")
)

var defaultSessionIDs = &IDGenerator{alphabet: defaultAlphabet, mask: getMask(len(defaultAlphabet))}

// IDGenerator produces nanoid-style random identifiers.
type IDGenerator struct {
	alphabet string
	mask     int
}

func getMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return maxAlphabetSize
}

// NewIDGenerator validates alphabet; an empty alphabet selects the default.
func NewIDGenerator(alphabet string) (*IDGenerator, error) {
	if alphabet == "" {
		alphabet = defaultAlphabet
	}

	// Generate indexes by byte position
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
		if alphabet[i] == envelopeSeparator || alphabet[i] == expirySeparator {
			return nil, ErrAlphabetReserved
		}
	}

	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}
	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}

	return &IDGenerator{
		alphabet: alphabet,
		mask:     getMask(len(alphabet)),
	}, nil
}

// Generate returns a random id of size characters (default 22 when size <= 0).
func (g *IDGenerator) Generate(size int) (string, error) {
	if size <= 0 {
		size = defaultSize
	}

	alphabetLen := len(g.alphabet)
	step := int(math.Ceil(1.6 * float64(g.mask*size) / float64(alphabetLen)))

	id := make([]byte, size)
	buffer := make([]byte, step)

	for position := 0; position < size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}

		for i := 0; i < step && position < size; i++ {
			index := buffer[i] & byte(g.mask)
			// Reject indexes past the alphabet to keep the distribution uniform
			if int(index) < alphabetLen {
				id[position] = g.alphabet[index]
				position++
			}
		}
	}

	return string(id), nil
}

// NewSessionID returns an opaque, never-reused session identifier.
func NewSessionID() (string, error) {
	return defaultSessionIDs.Generate(defaultSize)
}
