package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/sol-flywheel/internal/blockchain"
)

type mockRPC struct {
	mock.Mock
}

func (m *mockRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockRPC) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	if r := args.Get(0); r != nil {
		return r.(*rpc.GetSignatureStatusesResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRPC) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

type recordedTx struct {
	kind, result string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedTx
}

func (r *fakeRecorder) ObserveTx(kind, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedTx{kind, result})
}

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		RPCMaxRetries:  3,
		RetryInterval:  time.Millisecond,
		PollInterval:   time.Millisecond,
		ConfirmTimeout: 300 * time.Millisecond,
		Commitment:     rpc.CommitmentConfirmed,
	}
}

func signedTx(t *testing.T) *solana.Transaction {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	payer := key.PublicKey()

	program := solana.MustPublicKeyFromBase58("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")
	ix := solana.NewInstruction(program, solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
	}, []byte("flywheel"))
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1, 2, 3}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	_, err = tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(payer) {
			return &key
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func statusResult(status rpc.ConfirmationStatusType, txErr interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{
			Slot:               42,
			ConfirmationStatus: status,
			Err:                txErr,
		}},
	}
}

func TestSendAndConfirmSuccess(t *testing.T) {
	client := new(mockRPC)
	rec := &fakeRecorder{}
	tx := signedTx(t)
	want := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, blockchain.TransactionOptions{
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          3,
	}).Return(want, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, []solana.Signature{want}).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil)

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), rec)
	sig, err := m.SendAndConfirm(context.Background(), Request{Kind: "burn", Tx: tx, LastValidBlockHeight: 100})

	require.NoError(t, err)
	assert.Equal(t, want, sig)
	assert.Equal(t, []recordedTx{{"burn", "confirmed"}}, rec.seen)
	client.AssertExpectations(t)
}

func TestSendAndConfirmWaitsForCommitment(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)
	want := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(want, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusProcessed, nil), nil).Twice()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusFinalized, nil), nil)

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	sig, err := m.SendAndConfirm(context.Background(), Request{Kind: "swap", Tx: tx})

	require.NoError(t, err)
	assert.Equal(t, want, sig)
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 4)
}

func TestSendRetriesTransientErrors(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)
	want := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).
		Return(solana.Signature{}, errors.New("connection reset by peer")).Once()
	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).
		Return(solana.Signature{}, &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}).Once()
	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(want, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil)

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	sig, err := m.SendAndConfirm(context.Background(), Request{Kind: "claim", Tx: tx})

	require.NoError(t, err)
	assert.Equal(t, want, sig)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 3)
}

func TestSendStopsAfterMaxAttempts(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).
		Return(solana.Signature{}, errors.New("dial tcp: i/o timeout"))

	rec := &fakeRecorder{}
	m := NewManager(client, zaptest.NewLogger(t), testConfig(), rec)
	sig, err := m.SendAndConfirm(context.Background(), Request{Kind: "swap", Tx: tx})

	require.Error(t, err)
	assert.True(t, sig.IsZero())
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 3)
	client.AssertNotCalled(t, "GetSignatureStatuses", mock.Anything, mock.Anything)
	assert.Equal(t, []recordedTx{{"swap", "error"}}, rec.seen)
}

func TestSendDoesNotRetrySimulationFailure(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)

	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1",
		Data: map[string]interface{}{
			"logs": []interface{}{"Program log: Error: insufficient funds"},
		},
	}
	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(solana.Signature{}, rpcErr)

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	_, err := m.SendAndConfirm(context.Background(), Request{Kind: "burn", Tx: tx})

	var got *jsonrpc.RPCError
	require.ErrorAs(t, err, &got)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
}

func TestConfirmReportsOnChainFailure(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)
	want := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(want, nil)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(
		statusResult(rpc.ConfirmationStatusConfirmed, map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}), nil)

	rec := &fakeRecorder{}
	m := NewManager(client, zaptest.NewLogger(t), testConfig(), rec)
	sig, err := m.SendAndConfirm(context.Background(), Request{Kind: "swap", Tx: tx})

	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, want, sig, "signature of a sent transaction is kept")
	assert.Equal(t, []recordedTx{{"swap", "failed"}}, rec.seen)
}

func TestConfirmDetectsExpiredBlockhash(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)
	want := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(want, nil)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, nil)
	client.On("GetBlockHeight", mock.Anything, rpc.CommitmentConfirmed).Return(uint64(150), nil)

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	sig, err := m.SendAndConfirm(context.Background(), Request{Kind: "burn", Tx: tx, LastValidBlockHeight: 149})

	assert.ErrorIs(t, err, ErrBlockhashExpired)
	assert.Equal(t, want, sig)
}

func TestConfirmBlockhashStillValid(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)
	want := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(want, nil)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, nil).Twice()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil)
	client.On("GetBlockHeight", mock.Anything, mock.Anything).Return(uint64(149), nil)

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	_, err := m.SendAndConfirm(context.Background(), Request{Kind: "burn", Tx: tx, LastValidBlockHeight: 149})

	assert.NoError(t, err)
}

func TestConfirmTimeout(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(tx.Signatures[0], nil)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, errors.New("rpc unavailable"))

	cfg := testConfig()
	cfg.ConfirmTimeout = 20 * time.Millisecond
	m := NewManager(client, zaptest.NewLogger(t), cfg, nil)
	_, err := m.SendAndConfirm(context.Background(), Request{Kind: "claim", Tx: tx})

	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	client.AssertNotCalled(t, "GetBlockHeight", mock.Anything, mock.Anything)
}

func TestConfirmHonoursCallerCancellation(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)

	ctx, cancel := context.WithCancel(context.Background())
	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(tx.Signatures[0], nil)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, nil).Run(func(mock.Arguments) { cancel() })

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	_, err := m.SendAndConfirm(ctx, Request{Kind: "claim", Tx: tx})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidatorRejectsUnsignedTransaction(t *testing.T) {
	client := new(mockRPC)
	tx := signedTx(t)
	tx.Signatures = nil

	m := NewManager(client, zaptest.NewLogger(t), testConfig(), nil)
	_, err := m.SendAndConfirm(context.Background(), Request{Kind: "swap", Tx: tx})

	assert.ErrorIs(t, err, ErrInvalidSignature)
	client.AssertNotCalled(t, "SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidatorRejectsForgedSignature(t *testing.T) {
	tx := signedTx(t)
	tx.Signatures[0][0] ^= 0xff

	v := NewValidator(zaptest.NewLogger(t))
	assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidSignature)
}

func TestValidatorRejectsMissingBlockhash(t *testing.T) {
	tx := signedTx(t)
	tx.Message.RecentBlockhash = solana.Hash{}

	v := NewValidator(zaptest.NewLogger(t))
	assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidBlockhash)
}

func TestIsRetryableSendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", errors.New("EOF"), true},
		{"node behind", &jsonrpc.RPCError{Code: -32005, Message: "Node is behind by 120 slots"}, true},
		{"blockhash not found", &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}, true},
		{"simulation", &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit."}, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableSendError(tt.err))
		})
	}
}
