package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"goldenticket/models"
)

// cryptoNumberGenerator draws each position independently and uniformly over its range.
// rand.Int rejects out-of-range samples internally, so there is no modulo bias.
type cryptoNumberGenerator struct {
	source io.Reader
}

// NewNumberGenerator creates a generator backed by crypto/rand
func NewNumberGenerator() NumberGenerator {
	return &cryptoNumberGenerator{source: rand.Reader}
}

func (g *cryptoNumberGenerator) Generate() (models.TicketNumbers, error) {
	var numbers models.TicketNumbers
	for i, upper := range models.TicketNumberRanges {
		n, err := rand.Int(g.source, big.NewInt(int64(upper)))
		if err != nil {
			return models.TicketNumbers{}, fmt.Errorf("failed to generate number for position %d: %w", i+1, err)
		}
		numbers[i] = int(n.Int64()) + 1
	}
	return numbers, nil
}
