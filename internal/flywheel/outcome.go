// internal/flywheel/outcome.go
package flywheel

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Status - исход шага.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Step names, used in logs and metrics.
const (
	StepClaim = "claim"
	StepSwap  = "swap"
	StepBurn  = "burn"
)

// Outcome - результат одного шага. Signature заполнена при успехе,
// а при неудаче подтверждения - если транзакция успела уйти в сеть.
type Outcome struct {
	Status    Status
	Signature solana.Signature
	Reason    string
	Err       error
	Duration  time.Duration
}

func succeeded(sig solana.Signature) Outcome {
	return Outcome{Status: StatusSuccess, Signature: sig}
}

func skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func failed(err error, sig solana.Signature) Outcome {
	return Outcome{Status: StatusFailed, Signature: sig, Reason: err.Error(), Err: err}
}

// ConfirmedSignature возвращает подпись только для успешного шага.
func (o Outcome) ConfirmedSignature() (solana.Signature, bool) {
	if o.Status != StatusSuccess || o.Signature.IsZero() {
		return solana.Signature{}, false
	}
	return o.Signature, true
}

// Result - итог одного запуска флайвила.
type Result struct {
	RunID  string
	Signer solana.PublicKey
	Mint   solana.PublicKey

	Claim Outcome
	Swap  Outcome
	Burn  Outcome

	// Balance и Spendable - снимок, по которому принималось решение о свопе.
	Balance   uint64
	Spendable int64

	Started  time.Time
	Finished time.Time
}

// Steps возвращает исходы по именам шагов.
func (r *Result) Steps() map[string]Outcome {
	return map[string]Outcome{
		StepClaim: r.Claim,
		StepSwap:  r.Swap,
		StepBurn:  r.Burn,
	}
}

// Label - сводная метка запуска для метрик.
func (r *Result) Label() string {
	for _, o := range []Outcome{r.Claim, r.Swap, r.Burn} {
		if o.Status == StatusFailed {
			return "partial"
		}
	}
	return "ok"
}
