package checkout

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

var suffixSpace = big.NewInt(1_000_000)

// NewSaleNumber returns INV-YYYYMMDD-NNNNNN with a random six digit suffix.
func NewSaleNumber(now time.Time) string {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		n = big.NewInt(now.UnixMilli() % 1_000_000)
	}
	return fmt.Sprintf("INV-%s-%06d", now.Format("20060102"), n.Int64())
}
