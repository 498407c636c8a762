// internal/flywheel/swap.go
package flywheel

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/wallet"
)

// swap тратит свободный SOL на покупку токена через Jupiter.
// Баланс читается здесь, после claim, чтобы учесть только что собранные комиссии.
func (p *Pipeline) swap(ctx context.Context, logger *zap.Logger, signer *wallet.Wallet, settings Settings, result *Result) Outcome {
	balance, err := p.chain.GetBalance(ctx, signer.PublicKey, rpc.CommitmentConfirmed)
	if err != nil {
		return failed(fmt.Errorf("read SOL balance: %w", err), solana.Signature{})
	}

	spendable := Spendable(balance, settings.SOLBuffer, HeadroomSOL)
	result.Balance = balance
	result.Spendable = spendable
	logger.Info("Balance read",
		zap.Uint64("balance_lamports", balance),
		zap.Int64("spendable_lamports", spendable))

	if spendable <= 0 {
		return skipped(fmt.Sprintf("spendable balance %d lamports", spendable))
	}

	quote, err := p.swaps.GetQuote(ctx, settings.Mint, uint64(spendable), settings.SlippageBps)
	if err != nil {
		return failed(fmt.Errorf("get quote: %w", err), solana.Signature{})
	}

	swapTx, err := p.swaps.BuildSwap(ctx, signer.PublicKey, quote)
	if err != nil {
		return failed(fmt.Errorf("build swap: %w", err), solana.Signature{})
	}

	return outcomeOf(p.submit(ctx, signer, StepSwap, swapTx.Tx, swapTx.LastValidBlockHeight))
}
