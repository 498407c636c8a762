package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

const quoteBody = `{"inputMint":"So11111111111111111111111111111111111111112","inAmount":"78000000","outputMint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","outAmount":"12345","slippageBps":100,"priceImpactPct":"0.01","routePlan":[{"percent":100}]}`

func swapTxBase64(t *testing.T, payer solana.PublicKey) string {
	t.Helper()
	program := solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	ix := solana.NewInstruction(program, solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
	}, []byte{1, 2, 3})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{4}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, 1)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, WrappedSOLMint.String(), q.Get("inputMint"))
		assert.Equal(t, testMint.String(), q.Get("outputMint"))
		assert.Equal(t, "78000000", q.Get("amount"))
		assert.Equal(t, "100", q.Get("slippageBps"))
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/swap/v1", time.Second, zaptest.NewLogger(t))
	quote, err := c.GetQuote(context.Background(), testMint, 78_000_000, 100)
	require.NoError(t, err)
	assert.Equal(t, "12345", quote.OutAmount)
	assert.JSONEq(t, quoteBody, string(quote.Raw))
}

func TestGetQuoteFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"Could not find any route"}`},
		{"server error", http.StatusBadGateway, `upstream down`},
		{"error body", http.StatusOK, `{"error":"Could not find any route"}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, zaptest.NewLogger(t))
			_, err := c.GetQuote(context.Background(), testMint, 1, 50)
			assert.ErrorIs(t, err, ErrQuoteFailed)
		})
	}
}

func TestBuildSwap(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	encoded := swapTxBase64(t, user)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			_, _ = w.Write([]byte(quoteBody))
		case "/swap":
			assert.Equal(t, http.MethodPost, r.Method)
			var body map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, `"`+user.String()+`"`, string(body["userPublicKey"]))
			assert.JSONEq(t, quoteBody, string(body["quoteResponse"]))
			assert.JSONEq(t, `true`, string(body["wrapAndUnwrapSol"]))
			assert.JSONEq(t, `false`, string(body["asLegacyTransaction"]))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"swapTransaction":      encoded,
				"lastValidBlockHeight": 279_000_150,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zaptest.NewLogger(t))
	quote, err := c.GetQuote(context.Background(), testMint, 78_000_000, 100)
	require.NoError(t, err)

	swap, err := c.BuildSwap(context.Background(), user, quote)
	require.NoError(t, err)
	assert.Equal(t, uint64(279_000_150), swap.LastValidBlockHeight)
	assert.Equal(t, user, swap.Tx.Message.AccountKeys[0])
}

func TestBuildSwapFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"missing transaction", http.StatusOK, `{"error":"slippage"}`},
		{"bad base64", http.StatusOK, `{"swapTransaction":"%%%"}`},
		{"bad transaction", http.StatusOK, `{"swapTransaction":"BQE="}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, zaptest.NewLogger(t))
			_, err := c.BuildSwap(context.Background(), solana.NewWallet().PublicKey(), &Quote{Raw: json.RawMessage(quoteBody)})
			assert.ErrorIs(t, err, ErrSwapBuildFailed)
		})
	}
}

func TestBuildSwapRejectsEmptyQuote(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", time.Second, zaptest.NewLogger(t))
	_, err := c.BuildSwap(context.Background(), solana.NewWallet().PublicKey(), &Quote{})
	assert.ErrorIs(t, err, ErrSwapBuildFailed)
}
