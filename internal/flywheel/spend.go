// internal/flywheel/spend.go
package flywheel

import (
	"math"
)

const (
	LamportsPerSOL = 1_000_000_000
	// HeadroomSOL покрывает комиссии свопа и аренду ATA поверх буфера.
	HeadroomSOL = 0.002
)

// SOLToLamportsCeil переводит SOL в лампорты с округлением вверх.
func SOLToLamportsCeil(sol float64) uint64 {
	if sol <= 0 || math.IsNaN(sol) {
		return 0
	}
	lamports := math.Ceil(sol * LamportsPerSOL)
	if lamports >= math.MaxInt64 {
		return math.MaxInt64
	}
	return uint64(lamports)
}

// Spendable - сколько лампортов можно потратить на своп: баланс минус буфер
// и запас, оба округлены вверх. Ноль и отрицательное значение означают пропуск свопа.
// Резерв больше баланса всегда даёт отрицательный результат, без переполнения.
func Spendable(balance uint64, bufferSOL, headroomSOL float64) int64 {
	b := uint64(math.MaxInt64)
	if balance < math.MaxInt64 {
		b = balance
	}
	// каждое слагаемое не больше MaxInt64, сумма помещается в uint64
	reserve := SOLToLamportsCeil(bufferSOL) + SOLToLamportsCeil(headroomSOL)
	if b >= reserve {
		return int64(b - reserve)
	}
	short := reserve - b
	if short > math.MaxInt64 {
		return -math.MaxInt64
	}
	return -int64(short)
}
