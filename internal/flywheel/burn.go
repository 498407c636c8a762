// internal/flywheel/burn.go
package flywheel

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/programs/token"
	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/solbc"
	"github.com/rovshanmuradov/sol-flywheel/internal/wallet"
)

// Incinerator - адрес без приватного ключа: токены, отправленные на него, выведены из оборота.
var Incinerator = solana.MustPublicKeyFromBase58("1nc1nerator11111111111111111111111111111111")

// burn переводит весь баланс токена на ATA инсинератора.
func (p *Pipeline) burn(ctx context.Context, logger *zap.Logger, signer *wallet.Wallet, settings Settings) Outcome {
	program, err := p.tokenProgram(ctx, settings.Mint)
	if err != nil {
		return failed(err, solana.Signature{})
	}

	source, err := token.FindAssociatedTokenAddress(signer.PublicKey, settings.Mint, program)
	if err != nil {
		return failed(err, solana.Signature{})
	}

	balance, err := p.chain.GetTokenAccountBalance(ctx, source)
	if err != nil {
		if solbc.IsAccountNotFoundError(err) {
			return skipped("no token account")
		}
		return failed(fmt.Errorf("read token balance: %w", err), solana.Signature{})
	}
	if balance.Amount == 0 {
		return skipped("token balance is zero")
	}
	logger.Info("Token balance read",
		zap.String("account", source.String()),
		zap.Uint64("amount", balance.Amount),
		zap.Uint8("decimals", balance.Decimals))

	destination, err := token.FindAssociatedTokenAddress(Incinerator, settings.Mint, program)
	if err != nil {
		return failed(err, solana.Signature{})
	}
	if err := p.ensureTokenAccount(ctx, logger, signer, destination, settings.Mint, program); err != nil {
		return failed(fmt.Errorf("prepare incinerator token account: %w", err), solana.Signature{})
	}

	ref, err := p.chain.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return failed(fmt.Errorf("get latest blockhash: %w", err), solana.Signature{})
	}

	instructions := settings.BurnPriority.Instructions()
	instructions = append(instructions, token.NewTransferCheckedInstruction(
		source, settings.Mint, destination, signer.PublicKey,
		balance.Amount, balance.Decimals, program))

	tx, err := solana.NewTransaction(instructions, ref.Blockhash, solana.TransactionPayer(signer.PublicKey))
	if err != nil {
		return failed(fmt.Errorf("build burn transaction: %w", err), solana.Signature{})
	}

	return outcomeOf(p.submit(ctx, signer, StepBurn, tx, ref.LastValidBlockHeight))
}

// tokenProgram определяет программу минта (Token или Token-2022) по владельцу аккаунта.
func (p *Pipeline) tokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := p.chain.GetAccountInfo(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("read mint account: %w", err)
	}
	if info == nil || info.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("read mint account: %w", rpc.ErrNotFound)
	}
	return token.ProgramForOwner(info.Value.Owner)
}

func (p *Pipeline) accountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	info, err := p.chain.GetAccountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) || solbc.IsAccountNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return info != nil && info.Value != nil, nil
}

// ensureTokenAccount создаёт ATA отдельной транзакцией, если его ещё нет.
func (p *Pipeline) ensureTokenAccount(ctx context.Context, logger *zap.Logger, signer *wallet.Wallet, associated, mint, program solana.PublicKey) error {
	exists, err := p.accountExists(ctx, associated)
	if err != nil || exists {
		return err
	}

	logger.Info("Creating incinerator token account", zap.String("account", associated.String()))
	ref, err := p.chain.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{token.NewCreateIdempotentInstruction(signer.PublicKey, associated, Incinerator, mint, program)},
		ref.Blockhash,
		solana.TransactionPayer(signer.PublicKey),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	sig, err := p.submit(ctx, signer, "ata", tx, ref.LastValidBlockHeight)
	if err != nil {
		return err
	}
	logger.Info("Incinerator token account created", zap.String("signature", sig.String()))
	return nil
}
