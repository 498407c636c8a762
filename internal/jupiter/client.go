// internal/jupiter/client.go
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://lite-api.jup.ag/swap/v1"
	maxErrorBody   = 512
)

// WrappedSOLMint - входной минт всех свопов флайвила.
var WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

var (
	ErrQuoteFailed     = errors.New("jupiter quote failed")
	ErrSwapBuildFailed = errors.New("jupiter swap build failed")
)

// Quote - котировка Jupiter. Raw хранит ответ целиком: при сборке свопа
// он отправляется обратно без изменений.
type Quote struct {
	InputMint      string `json:"inputMint"`
	InAmount       string `json:"inAmount"`
	OutputMint     string `json:"outputMint"`
	OutAmount      string `json:"outAmount"`
	SlippageBps    int    `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`
	Error          string `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// SwapTransaction - собранная Jupiter транзакция свопа, ещё не подписанная.
type SwapTransaction struct {
	Tx                   *solana.Transaction
	LastValidBlockHeight uint64
}

type swapRequest struct {
	UserPublicKey       string          `json:"userPublicKey"`
	QuoteResponse       json.RawMessage `json:"quoteResponse"`
	WrapAndUnwrapSol    bool            `json:"wrapAndUnwrapSol"`
	AsLegacyTransaction bool            `json:"asLegacyTransaction"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	Error                string `json:"error,omitempty"`
}

// Client - HTTP клиент Jupiter swap API (quote + swap).
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("jupiter"),
	}
}

// GetQuote запрашивает котировку обмена amount лампортов SOL на outputMint.
func (c *Client) GetQuote(ctx context.Context, outputMint solana.PublicKey, amount uint64, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", WrappedSOLMint.String())
	params.Set("outputMint", outputMint.String())
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	raw, err := c.do(req, ErrQuoteFailed)
	if err != nil {
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQuoteFailed, err)
	}
	if quote.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrQuoteFailed, quote.Error)
	}
	quote.Raw = raw

	c.logger.Info("Quote received",
		zap.String("in_amount", quote.InAmount),
		zap.String("out_amount", quote.OutAmount),
		zap.String("price_impact_pct", quote.PriceImpactPct))
	return &quote, nil
}

// BuildSwap собирает транзакцию свопа по ранее полученной котировке.
func (c *Client) BuildSwap(ctx context.Context, user solana.PublicKey, quote *Quote) (*SwapTransaction, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: empty quote", ErrSwapBuildFailed)
	}
	payload, err := json.Marshal(swapRequest{
		UserPublicKey:       user.String(),
		QuoteResponse:       quote.Raw,
		WrapAndUnwrapSol:    true,
		AsLegacyTransaction: false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, ErrSwapBuildFailed)
	if err != nil {
		return nil, err
	}

	var response swapResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSwapBuildFailed, err)
	}
	if response.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: no transaction in response %s", ErrSwapBuildFailed, response.Error)
	}

	txBytes, err := base64.StdEncoding.DecodeString(response.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrSwapBuildFailed, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrSwapBuildFailed, err)
	}

	return &SwapTransaction{
		Tx:                   tx,
		LastValidBlockHeight: response.LastValidBlockHeight,
	}, nil
}

// do выполняет запрос; ответ вне 2xx оборачивается в sentinel.
func (c *Client) do(req *http.Request, sentinel error) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Unexpected response",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}
