package rooms

import (
	game_constants "Conspiracy/constants/game"
	"crypto/rand"
	"math/big"
)

// CodeAllocator hands out candidate room codes. Codes are not guaranteed to be
// unique, the repository is the single source of truth for that.
type CodeAllocator interface {
	Allocate() (string, error)
}

// RandomCodes draws codes of ROOM_CODE_LENGTH symbols from ROOM_CODE_ALPHABET
type RandomCodes struct{}

func (RandomCodes) Allocate() (string, error) {
	return generateCode(game_constants.ROOM_CODE_ALPHABET, game_constants.ROOM_CODE_LENGTH)
}

func generateCode(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
