// internal/flywheel/claim.go
package flywheel

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/pumpportal"
	"github.com/rovshanmuradov/sol-flywheel/internal/wallet"
)

// claim собирает накопленные комиссии создателя. Отсутствие комиссий - пропуск, не ошибка.
func (p *Pipeline) claim(ctx context.Context, logger *zap.Logger, signer *wallet.Wallet) Outcome {
	tx, err := p.claims.BuildClaimTransaction(ctx, signer.PublicKey)
	if errors.Is(err, pumpportal.ErrNothingToClaim) {
		return skipped("nothing to claim")
	}
	if err != nil {
		return failed(fmt.Errorf("build claim transaction: %w", err), solana.Signature{})
	}

	logger.Debug("Claim transaction received", zap.Int("instructions", len(tx.Message.Instructions)))
	return outcomeOf(p.submit(ctx, signer, StepClaim, tx, 0))
}
