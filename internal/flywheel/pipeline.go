// internal/flywheel/pipeline.go
package flywheel

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain"
	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/sol-flywheel/internal/jupiter"
	"github.com/rovshanmuradov/sol-flywheel/internal/wallet"
)

// Chain - чтения из сети, нужные шагам.
type Chain interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*blockchain.BlockhashRef, error)
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*blockchain.TokenAmount, error)
}

// ClaimBuilder строит транзакцию сбора комиссий создателя.
type ClaimBuilder interface {
	BuildClaimTransaction(ctx context.Context, owner solana.PublicKey) (*solana.Transaction, error)
}

// SwapBuilder котирует и собирает своп SOL -> токен.
type SwapBuilder interface {
	GetQuote(ctx context.Context, outputMint solana.PublicKey, amount uint64, slippageBps int) (*jupiter.Quote, error)
	BuildSwap(ctx context.Context, user solana.PublicKey, quote *jupiter.Quote) (*jupiter.SwapTransaction, error)
}

// Submitter отправляет подписанную транзакцию и ждёт подтверждения.
type Submitter interface {
	SendAndConfirm(ctx context.Context, req transaction.Request) (solana.Signature, error)
}

// Recorder получает исходы шагов и запусков. Реализуется metrics.Collector.
type Recorder interface {
	ObserveStep(step, status string, duration time.Duration)
	ObserveRun(result string, finished time.Time)
}

// Settings - параметры одного запуска.
type Settings struct {
	Mint        solana.PublicKey
	SlippageBps int
	SOLBuffer   float64
	// BurnPriority добавляется только к транзакции сжигания.
	BurnPriority PriorityConfig
}

// Pipeline выполняет шаги claim -> swap -> burn строго по порядку.
// Ошибка любого шага не останавливает следующие.
type Pipeline struct {
	chain    Chain
	claims   ClaimBuilder
	swaps    SwapBuilder
	sender   Submitter
	recorder Recorder
	logger   *zap.Logger
}

// NewPipeline создаёт оркестратор. recorder может быть nil.
func NewPipeline(chain Chain, claims ClaimBuilder, swaps SwapBuilder, sender Submitter, recorder Recorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		chain:    chain,
		claims:   claims,
		swaps:    swaps,
		sender:   sender,
		recorder: recorder,
		logger:   logger.Named("pipeline"),
	}
}

// Run выполняет один проход флайвила от имени signer.
func (p *Pipeline) Run(ctx context.Context, runID string, signer *wallet.Wallet, settings Settings) *Result {
	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("signer", signer.String()),
		zap.String("mint", settings.Mint.String()))

	result := &Result{
		RunID:   runID,
		Signer:  signer.PublicKey,
		Mint:    settings.Mint,
		Started: time.Now().UTC(),
	}
	logger.Info("Run started")

	result.Claim = p.step(ctx, logger, StepClaim, func(ctx context.Context, l *zap.Logger) Outcome {
		return p.claim(ctx, l, signer)
	})
	result.Swap = p.step(ctx, logger, StepSwap, func(ctx context.Context, l *zap.Logger) Outcome {
		return p.swap(ctx, l, signer, settings, result)
	})
	result.Burn = p.step(ctx, logger, StepBurn, func(ctx context.Context, l *zap.Logger) Outcome {
		return p.burn(ctx, l, signer, settings)
	})

	result.Finished = time.Now().UTC()
	if p.recorder != nil {
		p.recorder.ObserveRun(result.Label(), result.Finished)
	}
	logger.Info("Run finished",
		zap.String("claim", string(result.Claim.Status)),
		zap.String("swap", string(result.Swap.Status)),
		zap.String("burn", string(result.Burn.Status)),
		zap.Duration("elapsed", result.Finished.Sub(result.Started)))
	return result
}

// step изолирует шаг: паника превращается в failed, исход логируется и попадает в метрики.
func (p *Pipeline) step(ctx context.Context, logger *zap.Logger, name string, fn func(context.Context, *zap.Logger) Outcome) (outcome Outcome) {
	stepLogger := logger.With(zap.String("step", name))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			stepLogger.Error("Step panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			outcome = failed(fmt.Errorf("%s step panicked: %v", name, r), solana.Signature{})
		}
		outcome.Duration = time.Since(start)
		if p.recorder != nil {
			p.recorder.ObserveStep(name, string(outcome.Status), outcome.Duration)
		}

		fields := []zap.Field{zap.String("status", string(outcome.Status)), zap.Duration("duration", outcome.Duration)}
		if !outcome.Signature.IsZero() {
			fields = append(fields, zap.String("signature", outcome.Signature.String()))
		}
		switch outcome.Status {
		case StatusFailed:
			stepLogger.Warn("Step failed", append(fields, zap.Error(outcome.Err))...)
		case StatusSkipped:
			stepLogger.Info("Step skipped", append(fields, zap.String("reason", outcome.Reason))...)
		default:
			stepLogger.Info("Step completed", fields...)
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(fmt.Errorf("%s step not started: %w", name, err), solana.Signature{})
	}
	return fn(ctx, stepLogger)
}

// submit подписывает транзакцию ключом запуска и отправляет её.
func (p *Pipeline) submit(ctx context.Context, signer *wallet.Wallet, kind string, tx *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error) {
	if err := signer.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("sign %s transaction: %w", kind, err)
	}
	sig, err := p.sender.SendAndConfirm(ctx, transaction.Request{
		Kind:                 kind,
		Tx:                   tx,
		LastValidBlockHeight: lastValidBlockHeight,
	})
	if err != nil {
		return sig, fmt.Errorf("submit %s transaction: %w", kind, err)
	}
	return sig, nil
}

// outcomeOf сворачивает результат submit в исход шага.
func outcomeOf(sig solana.Signature, err error) Outcome {
	if err != nil {
		return failed(err, sig)
	}
	return succeeded(sig)
}

