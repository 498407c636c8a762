package flywheel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain"
	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/sol-flywheel/internal/jupiter"
	"github.com/rovshanmuradov/sol-flywheel/internal/wallet"
)

type mockChain struct {
	mock.Mock
}

func (m *mockChain) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockChain) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*blockchain.BlockhashRef, error) {
	args := m.Called(ctx, commitment)
	if r := args.Get(0); r != nil {
		return r.(*blockchain.BlockhashRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockChain) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	if r := args.Get(0); r != nil {
		return r.(*rpc.GetAccountInfoResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockChain) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*blockchain.TokenAmount, error) {
	args := m.Called(ctx, account)
	if r := args.Get(0); r != nil {
		return r.(*blockchain.TokenAmount), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockClaims struct {
	mock.Mock
}

func (m *mockClaims) BuildClaimTransaction(ctx context.Context, owner solana.PublicKey) (*solana.Transaction, error) {
	args := m.Called(ctx, owner)
	if r := args.Get(0); r != nil {
		return r.(*solana.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSwaps struct {
	mock.Mock
}

func (m *mockSwaps) GetQuote(ctx context.Context, outputMint solana.PublicKey, amount uint64, slippageBps int) (*jupiter.Quote, error) {
	args := m.Called(ctx, outputMint, amount, slippageBps)
	if r := args.Get(0); r != nil {
		return r.(*jupiter.Quote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSwaps) BuildSwap(ctx context.Context, user solana.PublicKey, quote *jupiter.Quote) (*jupiter.SwapTransaction, error) {
	args := m.Called(ctx, user, quote)
	if r := args.Get(0); r != nil {
		return r.(*jupiter.SwapTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockSender records every submitted request.
type mockSender struct {
	mock.Mock
	mu   sync.Mutex
	sent []transaction.Request
}

func (m *mockSender) SendAndConfirm(ctx context.Context, req transaction.Request) (solana.Signature, error) {
	m.mu.Lock()
	m.sent = append(m.sent, req)
	m.mu.Unlock()
	args := m.Called(ctx, req)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockSender) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, req := range m.sent {
		out = append(out, req.Kind)
	}
	return out
}

func (m *mockSender) request(kind string) (transaction.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.sent {
		if req.Kind == kind {
			return req, true
		}
	}
	return transaction.Request{}, false
}

func kindIs(kind string) interface{} {
	return mock.MatchedBy(func(req transaction.Request) bool { return req.Kind == kind })
}

type stepRecord struct {
	step, status string
}

type fakeRecorder struct {
	mu    sync.Mutex
	steps []stepRecord
	runs  []string
}

func (r *fakeRecorder) ObserveStep(step, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, stepRecord{step, status})
}

func (r *fakeRecorder) ObserveRun(result string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, result)
}

func newSigner(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := wallet.NewWallet(key.String())
	require.NoError(t, err)
	return w
}

// prebuiltTx imitates a transaction returned by an external builder:
// the payer slot holds a zero placeholder signature.
func prebuiltTx(t *testing.T, payer solana.PublicKey, memo string) *solana.Transaction {
	t.Helper()
	program := solana.MustPublicKeyFromBase58("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")
	ix := solana.NewInstruction(program, solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
	}, []byte(memo))
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{5, 5, 5}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, 1)
	return tx
}

func accountOwnedBy(owner solana.PublicKey) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{Value: &rpc.Account{Owner: owner, Lamports: 2_039_280}}
}
