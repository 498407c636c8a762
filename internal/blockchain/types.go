// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	// MaxRetries передаётся узлу RPC: сколько раз он сам будет пересылать транзакцию лидеру.
	MaxRetries uint
}

// BlockhashRef - свежий blockhash вместе с высотой блока, до которой он действителен.
// Подтверждение транзакции проверяется против той же ссылки, на которой она собрана.
type BlockhashRef struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// TokenAmount - сырой баланс токен-аккаунта в минимальных единицах.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить баланс аккаунта в лампортах.
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	// Получить последний blockhash и последнюю валидную высоту блока для него.
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*BlockhashRef, error)
	// Получить текущую высоту блока.
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	// Получить информацию об аккаунте. Отсутствующий аккаунт - rpc.ErrNotFound.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Получить баланс токен-аккаунта.
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*TokenAmount, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Получить статусы подписей транзакций.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}
