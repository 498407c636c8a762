// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrBlockhashExpired    = errors.New("blockhash expired before confirmation")
	ErrTransactionFailed   = errors.New("transaction failed on-chain")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
)

const (
	defaultMaxAttempts    = 3
	defaultPollInterval   = 500 * time.Millisecond
	defaultConfirmTimeout = 60 * time.Second
	defaultRetryInterval  = 500 * time.Millisecond
)

// Config задаёт политику отправки и подтверждения транзакций.
type Config struct {
	// MaxAttempts - сколько раз менеджер сам отправит транзакцию.
	MaxAttempts uint
	// RPCMaxRetries - сколько раз узел RPC будет пересылать её лидеру.
	RPCMaxRetries  uint
	RetryInterval  time.Duration
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	SkipPreflight  bool
	Commitment     rpc.CommitmentType
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
	return c
}

// RPC - подмножество blockchain.Client, нужное для отправки и подтверждения.
type RPC interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// Recorder получает итог каждой отправки. Реализуется metrics.Collector.
type Recorder interface {
	ObserveTx(kind, result string, duration time.Duration)
}

// Request - подписанная транзакция и контекст её подтверждения.
type Request struct {
	// Kind - метка для логов и метрик: claim, swap, burn, ata.
	Kind string
	Tx   *solana.Transaction
	// LastValidBlockHeight из того же ответа, что и blockhash транзакции.
	// Ноль отключает проверку истечения blockhash.
	LastValidBlockHeight uint64
}
