package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/client/wallet"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// fakeLedger embeds the interface so tests only implement what they call.
type fakeLedger struct {
	rpc.LedgerClient

	challengeCalls int
	loginReq       *rpc.LoginRequest
	loginToken     string
	loginErr       error

	getRecordResp *rpc.GetRecordResponse
	getRecordErr  error

	createReq  *rpc.CreateRecordRequest
	createResp *rpc.TxResponse
	createErr  error

	verifyReq  *rpc.VerifyDecryptionRequest
	verifyResp *rpc.TxResponse
	verifyErr  error

	receipts     []rpc.Receipt
	waitCalls    int
	waitErr      error
	waitFailures int // calls failing with waitErr; 0 means all of them

	available    bool
	availableErr error
	infoCalls    int
}

func (f *fakeLedger) Challenge(ctx context.Context, in *rpc.ChallengeRequest, opts ...grpc.CallOption) (*rpc.ChallengeResponse, error) {
	f.challengeCalls++
	return &rpc.ChallengeResponse{Nonce: []byte("nonce")}, nil
}

func (f *fakeLedger) Login(ctx context.Context, in *rpc.LoginRequest, opts ...grpc.CallOption) (*rpc.LoginResponse, error) {
	f.loginReq = in
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &rpc.LoginResponse{AccessToken: f.loginToken}, nil
}

func (f *fakeLedger) Info(ctx context.Context, in *rpc.InfoRequest, opts ...grpc.CallOption) (*rpc.InfoResponse, error) {
	f.infoCalls++
	return &rpc.InfoResponse{Contract: keyx.Address{0x01}, Oracle: []byte{0x02}}, nil
}

func (f *fakeLedger) IsAvailable(ctx context.Context, in *rpc.IsAvailableRequest, opts ...grpc.CallOption) (*rpc.IsAvailableResponse, error) {
	if f.availableErr != nil {
		return nil, f.availableErr
	}
	return &rpc.IsAvailableResponse{Available: f.available}, nil
}

func (f *fakeLedger) GetRecord(ctx context.Context, in *rpc.GetRecordRequest, opts ...grpc.CallOption) (*rpc.GetRecordResponse, error) {
	return f.getRecordResp, f.getRecordErr
}

func (f *fakeLedger) CreateRecord(ctx context.Context, in *rpc.CreateRecordRequest, opts ...grpc.CallOption) (*rpc.TxResponse, error) {
	f.createReq = in
	return f.createResp, f.createErr
}

func (f *fakeLedger) VerifyDecryption(ctx context.Context, in *rpc.VerifyDecryptionRequest, opts ...grpc.CallOption) (*rpc.TxResponse, error) {
	f.verifyReq = in
	return f.verifyResp, f.verifyErr
}

func (f *fakeLedger) WaitTransaction(ctx context.Context, in *rpc.WaitTransactionRequest, opts ...grpc.CallOption) (*rpc.WaitTransactionResponse, error) {
	f.waitCalls++
	if f.waitErr != nil && (f.waitFailures == 0 || f.waitCalls <= f.waitFailures) {
		return nil, f.waitErr
	}
	r := f.receipts[0]
	if len(f.receipts) > 1 {
		f.receipts = f.receipts[1:]
	}
	return &rpc.WaitTransactionResponse{Receipt: r}, nil
}

func newSigner(t *testing.T) *keyx.PrivateKey {
	t.Helper()
	k, err := keyx.GenerateKey()
	require.NoError(t, err)
	return k
}

func newTestClient(f *fakeLedger, signer Signer) *GRPCClient {
	return &GRPCClient{
		ledger:       f,
		signer:       signer,
		approve:      wallet.AutoApprove,
		logger:       logging.NewNop(),
		pollInterval: time.Millisecond,
	}
}

func tokenFrom(t *testing.T, ctx context.Context) string {
	t.Helper()
	md, _ := metadata.FromOutgoingContext(ctx)
	toks := md.Get(common.AccessTokenHeaderName)
	if len(toks) == 0 {
		return ""
	}
	require.Len(t, toks, 1)
	return toks[0]
}

func TestInterceptor_LogsInOnUnauthenticatedAndRetries(t *testing.T) {
	signer := newSigner(t)
	f := &fakeLedger{loginToken: "T2"}
	c := newTestClient(f, signer)
	c.accessToken = "T1"

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		if callCount == 1 {
			require.Equal(t, "T1", tokenFrom(t, ctx))
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		require.Equal(t, "T2", tokenFrom(t, ctx))
		return nil
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.LedgerCreateRecordMethod, nil, nil, nil, invoker)
	require.NoError(t, err)
	require.Equal(t, 2, callCount)
	require.Equal(t, "T2", c.accessToken)

	require.NotNil(t, f.loginReq)
	assert.Equal(t, signer.Address(), f.loginReq.Address)
	assert.Equal(t, signer.PublicKey(), f.loginReq.PublicKey)
	require.NoError(t, keyx.Verify(signer.PublicKey(), keyx.LoginDigest([]byte("nonce")), f.loginReq.Signature))
}

func TestInterceptor_NoTokenSentBeforeLogin(t *testing.T) {
	c := newTestClient(&fakeLedger{}, nil)

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		require.Empty(t, tokenFrom(t, ctx))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), rpc.LedgerGetRecordMethod, nil, nil, nil, invoker))
}

func TestInterceptor_NoLoginWithoutSigner(t *testing.T) {
	f := &fakeLedger{}
	c := newTestClient(f, nil)

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.LedgerCreateRecordMethod, nil, nil, nil, invoker)
	require.Error(t, err)
	require.Zero(t, f.challengeCalls)
}

func TestInterceptor_IgnoresOtherErrors(t *testing.T) {
	f := &fakeLedger{}
	c := newTestClient(f, newSigner(t))

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Internal, "boom")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.LedgerCreateRecordMethod, nil, nil, nil, invoker)
	require.Error(t, err)
	require.Zero(t, f.challengeCalls)
}

func TestInterceptor_AuthMethodsPassThrough(t *testing.T) {
	c := newTestClient(&fakeLedger{}, newSigner(t))
	c.accessToken = "T1"

	calls := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		require.Empty(t, tokenFrom(t, ctx))
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.LedgerLoginMethod, nil, nil, nil, invoker)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestInterceptor_LoginFailureIsReturned(t *testing.T) {
	f := &fakeLedger{loginErr: status.Error(codes.Unauthenticated, "unauthorized")}
	c := newTestClient(f, newSigner(t))

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	err := c.accessTokenInterceptor(context.Background(), rpc.LedgerCreateRecordMethod, nil, nil, nil, invoker)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{in: status.Error(codes.Unauthenticated, "x"), want: ErrUnauthorized},
		{in: status.Error(codes.PermissionDenied, "x"), want: ErrUnauthorized},
		{in: status.Error(codes.Unavailable, "x"), want: ErrUnavailable},
		{in: status.Error(codes.DeadlineExceeded, "x"), want: ErrUnavailable},
		{in: status.Error(codes.Canceled, "x"), want: context.Canceled},
		{in: status.Error(codes.NotFound, "x"), want: common.ErrNotFound},
		{in: status.Error(codes.AlreadyExists, common.AlreadyVerifiedReason), want: common.ErrAlreadyVerified},
		{in: status.Error(codes.AlreadyExists, "identifier already exists"), want: common.ErrAlreadyExists},
		{in: status.Error(codes.FailedPrecondition, "x"), want: common.ErrInvalidProof},
		{in: status.Error(codes.InvalidArgument, "x"), want: common.ErrInvalidArgument},
		{in: status.Error(codes.ResourceExhausted, "x"), want: common.ErrRateLimited},
		{in: status.Error(codes.DataLoss, "x"), want: common.ErrDecryptionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.in.Error(), func(t *testing.T) {
			require.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	require.NoError(t, mapError(nil))
	require.ErrorContains(t, mapError(errors.New("plain")), "rpc error:")
	require.ErrorContains(t, mapError(status.Error(codes.Internal, "x")), "rpc error:")

	// a duplicate id is not the recoverable verification race
	require.NotErrorIs(t, mapError(status.Error(codes.AlreadyExists, "identifier already exists")), common.ErrAlreadyVerified)
}

func TestGetRecord(t *testing.T) {
	v := uint64(120)
	h := fhe.HandleOf([]byte("ct"))
	f := &fakeLedger{getRecordResp: &rpc.GetRecordResponse{Record: rpc.Record{
		ID: "relief-1", OrganizationName: "Org", Handle: h, Verified: true, VerifiedVictimCount: &v,
	}}}
	c := newTestClient(f, nil)

	rec, err := c.GetRecord(context.Background(), "relief-1")
	require.NoError(t, err)
	assert.Equal(t, models.Verified, rec.State)
	assert.Equal(t, h, rec.Handle)
	got, ok := rec.VictimCount()
	require.True(t, ok)
	assert.Equal(t, uint64(120), got)

	// the projection owns its value
	v = 1
	got, _ = rec.VictimCount()
	assert.Equal(t, uint64(120), got)
}

func TestGetRecord_Inconsistent(t *testing.T) {
	f := &fakeLedger{getRecordResp: &rpc.GetRecordResponse{Record: rpc.Record{ID: "relief-1", Verified: true}}}
	c := newTestClient(f, nil)

	_, err := c.GetRecord(context.Background(), "relief-1")
	require.ErrorIs(t, err, ErrMalformedRecord)
	require.ErrorIs(t, err, models.ErrInconsistentRecord)
}

func TestGetRecord_NotFound(t *testing.T) {
	f := &fakeLedger{getRecordErr: status.Error(codes.NotFound, "not found")}
	c := newTestClient(f, nil)

	_, err := c.GetRecord(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateRecord(t *testing.T) {
	f := &fakeLedger{createResp: &rpc.TxResponse{TxHash: "0xaa"}}
	c := newTestClient(f, nil)

	tx, err := c.CreateRecord(context.Background(), NewRecord{ID: "relief-1", OrganizationName: "Org", PublicSupplyCount: 500})
	require.NoError(t, err)
	assert.Equal(t, "0xaa", tx.Hash())
	assert.Equal(t, uint64(500), f.createReq.PublicSupplyCount)
}

func TestCreateRecord_Rejected(t *testing.T) {
	f := &fakeLedger{createErr: status.Error(codes.FailedPrecondition, "invalid proof")}
	c := newTestClient(f, nil)

	_, err := c.CreateRecord(context.Background(), NewRecord{ID: "relief-1"})
	require.ErrorIs(t, err, common.ErrSubmissionRejected)
	require.ErrorIs(t, err, common.ErrInvalidProof)
}

func TestCreateRecord_UnavailableIsNotRejection(t *testing.T) {
	f := &fakeLedger{createErr: status.Error(codes.Unavailable, "down")}
	c := newTestClient(f, nil)

	_, err := c.CreateRecord(context.Background(), NewRecord{ID: "relief-1"})
	require.ErrorIs(t, err, ErrUnavailable)
	require.NotErrorIs(t, err, common.ErrSubmissionRejected)
}

func TestWrites_RefusedApproval(t *testing.T) {
	f := &fakeLedger{}
	c := newTestClient(f, nil)
	c.approve = func(context.Context, wallet.Request) (bool, error) { return false, nil }

	_, err := c.CreateRecord(context.Background(), NewRecord{ID: "relief-1"})
	require.ErrorIs(t, err, common.ErrUserCancelled)
	require.Nil(t, f.createReq)

	_, err = c.SubmitVerification(context.Background(), "relief-1", nil, nil)
	require.ErrorIs(t, err, common.ErrUserCancelled)
	require.Nil(t, f.verifyReq)
}

func TestSubmitVerification_AlreadyVerified(t *testing.T) {
	f := &fakeLedger{verifyErr: status.Error(codes.AlreadyExists, common.AlreadyVerifiedReason)}
	c := newTestClient(f, nil)

	_, err := c.SubmitVerification(context.Background(), "relief-1", []byte{1}, []byte{2})
	require.ErrorIs(t, err, common.ErrAlreadyVerified)
	require.ErrorIs(t, err, common.ErrVerificationRejected)
	assert.Equal(t, []byte{1}, f.verifyReq.ClearValues)
}

func TestSubmitVerification_BadProof(t *testing.T) {
	f := &fakeLedger{verifyErr: status.Error(codes.FailedPrecondition, "invalid proof")}
	c := newTestClient(f, nil)

	_, err := c.SubmitVerification(context.Background(), "relief-1", nil, nil)
	require.ErrorIs(t, err, common.ErrVerificationRejected)
	require.NotErrorIs(t, err, common.ErrAlreadyVerified)
}

func TestTransactionWait(t *testing.T) {
	tests := []struct {
		name     string
		receipts []rpc.Receipt
		reject   func(error) error
		wantErr  error
		calls    int
	}{
		{
			name:     "success after pending",
			receipts: []rpc.Receipt{{Status: rpc.TxStatusPending}, {TxHash: "0x1", Status: rpc.TxStatusSuccess, Block: 3}},
			reject:   verificationError,
			calls:    2,
		},
		{
			name:     "verification race",
			receipts: []rpc.Receipt{{Status: rpc.TxStatusReverted, Reason: common.AlreadyVerifiedReason}},
			reject:   verificationError,
			wantErr:  common.ErrAlreadyVerified,
			calls:    1,
		},
		{
			name:     "duplicate id",
			receipts: []rpc.Receipt{{Status: rpc.TxStatusReverted, Reason: "identifier already exists"}},
			reject:   submissionError,
			wantErr:  common.ErrSubmissionRejected,
			calls:    1,
		},
		{
			name:     "unknown revert on verify",
			receipts: []rpc.Receipt{{Status: rpc.TxStatusReverted, Reason: "internal error"}},
			reject:   verificationError,
			wantErr:  common.ErrVerificationRejected,
			calls:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeLedger{receipts: tt.receipts}
			tx := &grpcTransaction{client: newTestClient(f, nil), hash: "0x1", reject: tt.reject}

			r, err := tx.Wait(context.Background())
			require.Equal(t, tt.calls, f.waitCalls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &Receipt{TxHash: "0x1", Block: 3}, r)
		})
	}
}

func TestTransactionWait_NodeUnreachable(t *testing.T) {
	down := status.Error(codes.Unavailable, "connection refused")

	t.Run("keeps polling through an outage", func(t *testing.T) {
		f := &fakeLedger{
			waitErr:      down,
			waitFailures: 2,
			receipts:     []rpc.Receipt{{TxHash: "0x1", Status: rpc.TxStatusSuccess, Block: 3}},
		}
		c := newTestClient(f, nil)
		c.unavailableGrace = time.Minute
		tx := &grpcTransaction{client: c, hash: "0x1", reject: submissionError}

		r, err := tx.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &Receipt{TxHash: "0x1", Block: 3}, r)
		assert.Equal(t, 3, f.waitCalls)
	})

	t.Run("outcome unknown after the grace period", func(t *testing.T) {
		f := &fakeLedger{waitErr: down}
		tx := &grpcTransaction{client: newTestClient(f, nil), hash: "0x1", reject: submissionError}

		_, err := tx.Wait(context.Background())
		require.ErrorIs(t, err, ErrOutcomeUnknown)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.NotErrorIs(t, err, common.ErrSubmissionRejected)
		assert.Contains(t, err.Error(), "0x1")
	})

	t.Run("other errors are returned at once", func(t *testing.T) {
		f := &fakeLedger{waitErr: status.Error(codes.NotFound, "no such transaction")}
		c := newTestClient(f, nil)
		c.unavailableGrace = time.Minute
		tx := &grpcTransaction{client: c, hash: "0x1", reject: submissionError}

		_, err := tx.Wait(context.Background())
		require.ErrorIs(t, err, common.ErrNotFound)
		assert.Equal(t, 1, f.waitCalls)
	})
}

func TestTransactionWait_ContextCancelled(t *testing.T) {
	f := &fakeLedger{receipts: []rpc.Receipt{{Status: rpc.TxStatusPending}}}
	tx := &grpcTransaction{client: newTestClient(f, nil), hash: "0x1", reject: verificationError}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tx.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckAvailability(t *testing.T) {
	c := newTestClient(&fakeLedger{available: true}, nil)
	require.True(t, c.CheckAvailability(context.Background()))

	c = newTestClient(&fakeLedger{availableErr: status.Error(codes.Unavailable, "down")}, nil)
	require.False(t, c.CheckAvailability(context.Background()))
}

func TestContractAddress_Cached(t *testing.T) {
	f := &fakeLedger{}
	c := newTestClient(f, nil)

	a, err := c.ContractAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, keyx.Address{0x01}, a)

	_, err = c.ContractAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.infoCalls)
}
