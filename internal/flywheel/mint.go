// internal/flywheel/mint.go
package flywheel

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// pumpSuffix - хвост адресов лаунчпада pump.fun.
const pumpSuffix = "pump"

// NormalizeMint убирает суффикс "pump" ровно один раз.
func NormalizeMint(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > len(pumpSuffix) && strings.HasSuffix(id, pumpSuffix) {
		return id[:len(id)-len(pumpSuffix)]
	}
	return id
}

// ParseMint нормализует идентификатор и разбирает его как адрес минта.
// Если после обрезки адрес невалиден, а исходный идентификатор валиден,
// используется исходный: суффикс оказался частью настоящего адреса.
func ParseMint(raw string) (solana.PublicKey, error) {
	normalized := NormalizeMint(raw)
	mint, err := solana.PublicKeyFromBase58(normalized)
	if err == nil {
		return mint, nil
	}
	if original := strings.TrimSpace(raw); original != normalized {
		if mint, origErr := solana.PublicKeyFromBase58(original); origErr == nil {
			return mint, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("invalid token mint %q: %w", raw, err)
}
