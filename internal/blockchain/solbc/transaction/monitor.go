// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

type Monitor struct {
	client RPC
	logger *zap.Logger
	config Config
}

func NewMonitor(client RPC, logger *zap.Logger, config Config) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config.withDefaults(),
	}
}

// commitmentRank упорядочивает уровни подтверждения.
func commitmentRank(level string) int {
	switch level {
	case string(rpc.CommitmentProcessed):
		return 1
	case string(rpc.CommitmentConfirmed):
		return 2
	case string(rpc.CommitmentFinalized):
		return 3
	default:
		return 0
	}
}

// checkConfirmation проверяет, достигла ли транзакция нужного уровня подтверждения.
// Ошибка исполнения в сети возвращается как ErrTransactionFailed.
func (m *Monitor) checkConfirmation(ctx context.Context, signature solana.Signature) (bool, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}
	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return false, nil
	}

	status := response.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
	}
	return commitmentRank(string(status.ConfirmationStatus)) >= commitmentRank(string(m.config.Commitment)), nil
}

// expired сообщает, ушла ли сеть дальше lastValidBlockHeight.
func (m *Monitor) expired(ctx context.Context, lastValidBlockHeight uint64) bool {
	if lastValidBlockHeight == 0 {
		return false
	}
	height, err := m.client.GetBlockHeight(ctx, m.config.Commitment)
	if err != nil {
		m.logger.Debug("Block height check failed", zap.Error(err))
		return false
	}
	return height > lastValidBlockHeight
}

// AwaitConfirmation ждёт подтверждения подписи. Завершается успехом, ошибкой
// исполнения, истечением blockhash или таймаутом, что наступит раньше.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64) error {
	waitCtx, cancel := context.WithTimeout(ctx, m.config.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrConfirmationTimeout
		case <-ticker.C:
			confirmed, err := m.checkConfirmation(waitCtx, signature)
			if errors.Is(err, ErrTransactionFailed) {
				return err
			}
			if err != nil {
				m.logger.Warn("Confirmation check failed", zap.Error(err))
				continue
			}
			if confirmed {
				return nil
			}

			if m.expired(waitCtx, lastValidBlockHeight) {
				// Статус мог появиться между двумя запросами.
				confirmed, err = m.checkConfirmation(waitCtx, signature)
				if errors.Is(err, ErrTransactionFailed) {
					return err
				}
				if err == nil && confirmed {
					return nil
				}
				return ErrBlockhashExpired
			}
		}
	}
}
