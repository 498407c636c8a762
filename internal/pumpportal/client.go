// internal/pumpportal/client.go
package pumpportal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://pumpportal.fun"
	tradeLocalPath     = "/api/trade-local"
	actionCollectFee   = "collectCreatorFee"
	defaultPriorityFee = 0.000001
	maxErrorBody       = 512
)

// ErrNothingToClaim - сервис не вернул транзакцию: комиссий к выводу нет.
var ErrNothingToClaim = errors.New("no creator fees to claim")

// claimRequest - тело запроса к trade-local.
type claimRequest struct {
	PublicKey   string  `json:"publicKey"`
	Action      string  `json:"action"`
	PriorityFee float64 `json:"priorityFee"`
}

// Client строит неподписанные транзакции сбора комиссий создателя через PumpPortal.
type Client struct {
	baseURL     string
	priorityFee float64
	client      *http.Client
	logger      *zap.Logger
}

// NewClient создаёт клиента. Пустой baseURL и нулевая комиссия заменяются значениями по умолчанию.
func NewClient(baseURL string, priorityFee float64, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if priorityFee <= 0 {
		priorityFee = defaultPriorityFee
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		priorityFee: priorityFee,
		client:      &http.Client{Timeout: timeout},
		logger:      logger.Named("pumpportal"),
	}
}

// BuildClaimTransaction запрашивает готовую транзакцию сбора комиссий для owner.
// Любой ответ кроме 200 трактуется как ErrNothingToClaim.
func (c *Client) BuildClaimTransaction(ctx context.Context, owner solana.PublicKey) (*solana.Transaction, error) {
	payload, err := json.Marshal(claimRequest{
		PublicKey:   owner.String(),
		Action:      actionCollectFee,
		PriorityFee: c.priorityFee,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tradeLocalPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Info("Nothing to claim",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: status %d", ErrNothingToClaim, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty transaction", ErrNothingToClaim)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode claim transaction: %w", err)
	}

	c.logger.Debug("Claim transaction built",
		zap.Int("size", len(raw)),
		zap.Int("instructions", len(tx.Message.Instructions)))
	return tx, nil
}
