package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/client/wallet"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	defaultPollInterval     = 200 * time.Millisecond
	defaultUnavailableGrace = 2 * time.Minute
	availabilityTimeout     = 3 * time.Second
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	ledger      rpc.LedgerClient
	oracle      rpc.OracleClient

	signer           Signer
	approve          wallet.ApproveFunc
	logger           logging.Logger
	pollInterval     time.Duration
	unavailableGrace time.Duration
	dialOptions      []grpc.DialOption

	mu          sync.Mutex
	accessToken string
	info        *NodeInfo

	loginMu sync.Mutex
}

type Option func(*GRPCClient)

// WithApproval sets the prompt every write passes through.
func WithApproval(fn wallet.ApproveFunc) Option {
	return func(c *GRPCClient) { c.approve = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(c *GRPCClient) { c.logger = l }
}

// WithDialOptions appends options to grpc.NewClient, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOptions = append(c.dialOptions, opts...) }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *GRPCClient) { c.pollInterval = d }
}

// WithUnavailableGrace sets how long Wait keeps polling an unreachable node
// before it reports ErrOutcomeUnknown.
func WithUnavailableGrace(d time.Duration) Option {
	return func(c *GRPCClient) { c.unavailableGrace = d }
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the bearer token to every call and, when
// the node answers Unauthenticated, logs in with the wallet and retries once.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == rpc.LedgerChallengeMethod || method == rpc.LedgerLoginMethod {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token := s.token()
	if token != "" {
		ctx = withAccessToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || s.signer == nil {
		return err
	}

	if err := s.relogin(ctx, token); err != nil {
		return err
	}

	ctx = withAccessToken(ctx, s.token())
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string, signer Signer, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL:      endpointURL,
		signer:           signer,
		approve:          wallet.AutoApprove,
		logger:           logging.NewNop(),
		pollInterval:     defaultPollInterval,
		unavailableGrace: defaultUnavailableGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "ledger-client")

	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOptions...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.ledger = rpc.NewLedgerClient(conn)
	s.oracle = rpc.NewOracleClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// relogin logs in unless another goroutine already replaced stale.
func (s *GRPCClient) relogin(ctx context.Context, stale string) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	if t := s.token(); t != "" && t != stale {
		return nil
	}
	return s.login(ctx)
}

// Login authenticates the wallet against the node.
func (s *GRPCClient) Login(ctx context.Context) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	return s.login(ctx)
}

func (s *GRPCClient) login(ctx context.Context) error {
	if s.signer == nil {
		return ErrUnauthorized
	}
	addr := s.signer.Address()

	ch, err := s.ledger.Challenge(ctx, &rpc.ChallengeRequest{Address: addr})
	if err != nil {
		return mapError(err)
	}

	resp, err := s.ledger.Login(ctx, &rpc.LoginRequest{
		Address:   addr,
		PublicKey: s.signer.PublicKey(),
		Signature: s.signer.Sign(keyx.LoginDigest(ch.Nonce)),
	})
	if err != nil {
		return mapError(err)
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.mu.Unlock()

	s.logger.Debug(ctx, "logged in", "address", addr.Hex())
	return nil
}

// Address is the wallet address writes are signed with.
func (s *GRPCClient) Address() keyx.Address {
	if s.signer == nil {
		return keyx.Address{}
	}
	return s.signer.Address()
}

// Info returns the node identity. It is fetched once per client.
func (s *GRPCClient) Info(ctx context.Context) (*NodeInfo, error) {
	s.mu.Lock()
	info := s.info
	s.mu.Unlock()
	if info != nil {
		return info, nil
	}

	resp, err := s.ledger.Info(ctx, &rpc.InfoRequest{})
	if err != nil {
		return nil, mapError(err)
	}

	info = &NodeInfo{Contract: resp.Contract, Oracle: resp.Oracle}

	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	return info, nil
}

func (s *GRPCClient) ContractAddress(ctx context.Context) (keyx.Address, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return keyx.Address{}, err
	}
	return info.Contract, nil
}

func (s *GRPCClient) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	resp, err := s.ledger.IsAvailable(ctx, &rpc.IsAvailableRequest{})
	if err != nil {
		return false
	}
	return resp.Available
}

func (s *GRPCClient) ListRecordIDs(ctx context.Context) ([]string, error) {
	resp, err := s.ledger.ListRecordIDs(ctx, &rpc.ListRecordIDsRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.IDs, nil
}

func (s *GRPCClient) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	resp, err := s.ledger.GetRecord(ctx, &rpc.GetRecordRequest{ID: id})
	if err != nil {
		return nil, mapError(err)
	}

	rec := fromRPCRecord(resp.Record)
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return rec, nil
}

func (s *GRPCClient) GetConfidentialHandle(ctx context.Context, id string) (fhe.Handle, error) {
	resp, err := s.ledger.GetEncryptedValue(ctx, &rpc.GetEncryptedValueRequest{ID: id})
	if err != nil {
		return fhe.Handle{}, mapError(err)
	}
	if resp.Handle.IsZero() {
		return fhe.Handle{}, fmt.Errorf("%w: %s has no handle", ErrMalformedRecord, id)
	}
	return resp.Handle, nil
}

func (s *GRPCClient) CreateRecord(ctx context.Context, rec NewRecord) (Transaction, error) {
	if err := wallet.Approve(ctx, s.approve, wallet.Request{Action: "create", RecordID: rec.ID}); err != nil {
		return nil, err
	}

	resp, err := s.ledger.CreateRecord(ctx, &rpc.CreateRecordRequest{
		ID:                rec.ID,
		OrganizationName:  rec.OrganizationName,
		Location:          rec.Location,
		PublicSupplyCount: rec.PublicSupplyCount,
		Ciphertext:        rec.Ciphertext,
		InputProof:        rec.InputProof,
	})
	if err != nil {
		return nil, submissionError(mapError(err))
	}

	s.logger.Info(ctx, "record submitted", "id", rec.ID, "tx", resp.TxHash)
	return &grpcTransaction{client: s, hash: resp.TxHash, reject: submissionError}, nil
}

func (s *GRPCClient) SubmitVerification(ctx context.Context, id string, clearValues, proof []byte) (Transaction, error) {
	if err := wallet.Approve(ctx, s.approve, wallet.Request{Action: "verify", RecordID: id}); err != nil {
		return nil, err
	}

	resp, err := s.ledger.VerifyDecryption(ctx, &rpc.VerifyDecryptionRequest{
		ID:              id,
		ClearValues:     clearValues,
		DecryptionProof: proof,
	})
	if err != nil {
		return nil, verificationError(mapError(err))
	}

	s.logger.Info(ctx, "verification submitted", "id", id, "tx", resp.TxHash)
	return &grpcTransaction{client: s, hash: resp.TxHash, reject: verificationError}, nil
}

// OracleKeys returns the network's BGV public key and the oracle signer.
func (s *GRPCClient) OracleKeys(ctx context.Context) ([]byte, []byte, error) {
	resp, err := s.oracle.PublicKey(ctx, &rpc.PublicKeyRequest{})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return resp.PublicKey, resp.Signer, nil
}

// AttestInput asks the oracle to sign ciphertext for (contract, requester).
func (s *GRPCClient) AttestInput(ctx context.Context, contract, requester keyx.Address, ciphertext []byte) ([]byte, error) {
	resp, err := s.oracle.AttestInput(ctx, &rpc.AttestInputRequest{
		Contract:   contract,
		Requester:  requester,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Proof, nil
}

// Decrypt asks the oracle for the clear values of handles, released to the
// logged-in wallet for use against contract.
func (s *GRPCClient) Decrypt(ctx context.Context, contract keyx.Address, handles []fhe.Handle) ([]byte, []byte, error) {
	resp, err := s.oracle.Decrypt(ctx, &rpc.DecryptRequest{Contract: contract, Handles: handles})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return resp.ClearValues, resp.Proof, nil
}

func fromRPCRecord(r rpc.Record) *models.Record {
	rec := &models.Record{
		ID:                r.ID,
		OrganizationName:  r.OrganizationName,
		Location:          r.Location,
		PublicSupplyCount: r.PublicSupplyCount,
		Handle:            r.Handle,
		CreatedAt:         r.CreatedAt,
		Creator:           r.Creator,
		State:             models.Unverified,
	}
	if r.Verified {
		rec.State = models.Verified
	}
	if r.VerifiedVictimCount != nil {
		v := *r.VerifiedVictimCount
		rec.VerifiedVictimCount = &v
	}
	return rec
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.AlreadyExists:
		if st.Message() == common.AlreadyVerifiedReason {
			return common.ErrAlreadyVerified
		}
		return fmt.Errorf("%w: %s", common.ErrAlreadyExists, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrInvalidProof, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", common.ErrRateLimited, st.Message())
	case codes.DataLoss:
		return fmt.Errorf("%w: %s", common.ErrDecryptionFailure, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

// isRejection reports whether the node refused the write itself, as
// opposed to a transport or authorization problem.
func isRejection(err error) bool {
	return errors.Is(err, common.ErrAlreadyExists) ||
		errors.Is(err, common.ErrInvalidProof) ||
		errors.Is(err, common.ErrInvalidArgument) ||
		errors.Is(err, common.ErrNotFound)
}

func submissionError(err error) error {
	if isRejection(err) {
		return fmt.Errorf("%w: %w", common.ErrSubmissionRejected, err)
	}
	return err
}

func verificationError(err error) error {
	if errors.Is(err, common.ErrAlreadyVerified) {
		return err
	}
	if isRejection(err) {
		return fmt.Errorf("%w: %w", common.ErrVerificationRejected, err)
	}
	return err
}
