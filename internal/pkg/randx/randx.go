/*
Package randx generates cryptographically secure random identifiers.

It produces guest identities with the reserved "Guest-" prefix, Base62
channel ids, and UUID package/client ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 character set.
	Base62Len = int64(len(Base62Chars))

	// GuestIDPrefix is the reserved prefix for server-generated guest
	// identities. Account ids must never start with it.
	GuestIDPrefix = "Guest-"

	// GuestIDRawLength is the length of the random part of a guest id.
	GuestIDRawLength = 8

	// ChannelIDLength is the length of generated channel ids.
	ChannelIDLength = 6
)

// base62String returns a random Base62 string of the given length.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// GuestID generates a fresh guest identity of the form "Guest-XXXXXXXX".
func GuestID() (string, error) {
	raw, err := base62String(GuestIDRawLength)
	if err != nil {
		return "", err
	}
	return GuestIDPrefix + raw, nil
}

// ChannelID generates a Base62 channel id of length ChannelIDLength.
func ChannelID() (string, error) {
	return base62String(ChannelIDLength)
}

// ClientID generates a UUID v4 string identifying a transport connection.
func ClientID() string {
	return uuid.New().String()
}

// MessageID generates a UUID v4 string identifying a channel message.
func MessageID() string {
	return uuid.New().String()
}

// HasGuestPrefix reports whether the id starts with the reserved guest prefix.
func HasGuestPrefix(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}

// IsValidGuestID checks that the id is a well-formed server-generated guest id.
func IsValidGuestID(id string) bool {
	if !HasGuestPrefix(id) {
		return false
	}

	raw := id[len(GuestIDPrefix):]
	if len(raw) != GuestIDRawLength {
		return false
	}

	for _, char := range raw {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
