// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain"
	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/solbc"
)

// Manager отправляет подписанные транзакции и дожидается их подтверждения.
type Manager struct {
	client    RPC
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	recorder  Recorder
}

// NewManager создаёт менеджер. recorder может быть nil.
func NewManager(client RPC, logger *zap.Logger, config Config, recorder Recorder) *Manager {
	config = config.withDefaults()
	return &Manager{
		client:    client,
		logger:    logger.Named("tx-manager"),
		config:    config,
		validator: NewValidator(logger),
		monitor:   NewMonitor(client, logger, config),
		recorder:  recorder,
	}
}

// SendAndConfirm проверяет, отправляет и подтверждает транзакцию.
// Если транзакция была принята узлом, подпись возвращается и вместе с ошибкой подтверждения.
func (tm *Manager) SendAndConfirm(ctx context.Context, req Request) (sig solana.Signature, err error) {
	start := time.Now()
	defer func() {
		if tm.recorder != nil {
			tm.recorder.ObserveTx(req.Kind, outcomeLabel(err), time.Since(start))
		}
	}()

	logger := tm.logger.With(zap.String("kind", req.Kind))

	if err = tm.validator.ValidateTransaction(req.Tx); err != nil {
		logger.Error("Transaction validation failed", zap.Error(err))
		return solana.Signature{}, err
	}

	sig, err = tm.sendWithRetry(ctx, logger, req.Tx)
	if err != nil {
		logger.Error("Failed to send transaction", solbc.LogFields(err)...)
		return solana.Signature{}, err
	}
	logger.Info("Transaction sent", zap.String("signature", sig.String()))

	if err = tm.monitor.AwaitConfirmation(ctx, sig, req.LastValidBlockHeight); err != nil {
		logger.Error("Transaction confirmation failed",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return sig, err
	}

	logger.Info("Transaction confirmed",
		zap.String("signature", sig.String()),
		zap.Duration("elapsed", time.Since(start)))
	return sig, nil
}

func (tm *Manager) sendWithRetry(ctx context.Context, logger *zap.Logger, tx *solana.Transaction) (solana.Signature, error) {
	opts := blockchain.TransactionOptions{
		SkipPreflight:       tm.config.SkipPreflight,
		PreflightCommitment: tm.config.Commitment,
		MaxRetries:          tm.config.RPCMaxRetries,
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = tm.config.RetryInterval
	policy.MaxInterval = tm.config.RetryInterval * 10

	notify := func(err error, d time.Duration) {
		logger.Warn("Retrying transaction send", zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() (solana.Signature, error) {
		sig, err := tm.client.SendTransactionWithOpts(ctx, tx, opts)
		if err != nil {
			if !isRetryableSendError(err) {
				return solana.Signature{}, backoff.Permanent(err)
			}
			return solana.Signature{}, err
		}
		return sig, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(tm.config.MaxAttempts),
		backoff.WithNotify(notify))
}

// isRetryableSendError: сетевые сбои и отстающий узел повторяем,
// отказ узла по существу (симуляция, подпись) - нет.
func isRetryableSendError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	rpcErr, ok := solbc.RPCError(err)
	if !ok {
		return true
	}
	if solbc.IsBlockhashNotFound(err) {
		return true
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "node is behind") || strings.Contains(msg, "node is unhealthy")
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, ErrTransactionFailed):
		return "failed"
	case errors.Is(err, ErrBlockhashExpired):
		return "expired"
	case errors.Is(err, ErrConfirmationTimeout):
		return "timeout"
	default:
		return "error"
	}
}
