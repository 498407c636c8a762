// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "could not find account")
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.String("pubkey", pubkey.String()), zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetLatestBlockhash получает последний blockhash вместе с lastValidBlockHeight.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*blockchain.BlockhashRef, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, errors.New("empty getLatestBlockhash response")
	}
	return &blockchain.BlockhashRef{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetBlockHeight получает текущую высоту блока.
func (c *Client) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	height, err := c.rpc.GetBlockHeight(ctx, commitment)
	if err != nil {
		c.logger.Warn("GetBlockHeight error", zap.Error(err))
		return 0, err
	}
	return height, nil
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetTokenAccountBalance получает баланс токенного аккаунта
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*blockchain.TokenAmount, error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("empty token balance for %s", account)
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", result.Value.Amount, err)
	}
	return &blockchain.TokenAmount{
		Amount:   amount,
		Decimals: result.Value.Decimals,
	}, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	txOpts := rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	}
	if opts.MaxRetries > 0 {
		maxRetries := opts.MaxRetries
		txOpts.MaxRetries = &maxRetries
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, txOpts)
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", LogFields(err)...)
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Warn("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
