package rpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"google.golang.org/grpc"
)

const LedgerServiceName = "gophrelief.ledger.v1.Ledger"

const (
	LedgerInfoMethod              = "/" + LedgerServiceName + "/Info"
	LedgerIsAvailableMethod       = "/" + LedgerServiceName + "/IsAvailable"
	LedgerListRecordIDsMethod     = "/" + LedgerServiceName + "/ListRecordIDs"
	LedgerGetRecordMethod         = "/" + LedgerServiceName + "/GetRecord"
	LedgerGetEncryptedValueMethod = "/" + LedgerServiceName + "/GetEncryptedValue"
	LedgerCreateRecordMethod      = "/" + LedgerServiceName + "/CreateRecord"
	LedgerVerifyDecryptionMethod  = "/" + LedgerServiceName + "/VerifyDecryption"
	LedgerWaitTransactionMethod   = "/" + LedgerServiceName + "/WaitTransaction"
	LedgerChallengeMethod         = "/" + LedgerServiceName + "/Challenge"
	LedgerLoginMethod             = "/" + LedgerServiceName + "/Login"
)

// Receipt statuses.
const (
	TxStatusPending  = "pending"
	TxStatusSuccess  = "success"
	TxStatusReverted = "reverted"
)

type InfoRequest struct{}

type InfoResponse struct {
	Contract keyx.Address `json:"contract"`
	// Oracle is the compressed public key that signs input and decryption proofs.
	Oracle []byte `json:"oracle"`
}

type IsAvailableRequest struct{}

type IsAvailableResponse struct {
	Available bool `json:"available"`
}

type ListRecordIDsRequest struct{}

type ListRecordIDsResponse struct {
	IDs []string `json:"ids"`
}

type GetRecordRequest struct {
	ID string `json:"id"`
}

type Record struct {
	ID                  string       `json:"id"`
	OrganizationName    string       `json:"organization_name"`
	Location            string       `json:"location"`
	PublicSupplyCount   uint64       `json:"public_supply_count"`
	Handle              fhe.Handle   `json:"handle"`
	CreatedAt           time.Time    `json:"created_at"`
	Creator             keyx.Address `json:"creator"`
	Verified            bool         `json:"verified"`
	VerifiedVictimCount *uint64      `json:"verified_victim_count,omitempty"`
}

type GetRecordResponse struct {
	Record Record `json:"record"`
}

type GetEncryptedValueRequest struct {
	ID string `json:"id"`
}

type GetEncryptedValueResponse struct {
	Handle fhe.Handle `json:"handle"`
}

type CreateRecordRequest struct {
	ID                string `json:"id"`
	OrganizationName  string `json:"organization_name"`
	Location          string `json:"location"`
	PublicSupplyCount uint64 `json:"public_supply_count"`
	Ciphertext        []byte `json:"ciphertext"`
	InputProof        []byte `json:"input_proof"`
}

type VerifyDecryptionRequest struct {
	ID              string `json:"id"`
	ClearValues     []byte `json:"clear_values"`
	DecryptionProof []byte `json:"decryption_proof"`
}

type TxResponse struct {
	TxHash string `json:"tx_hash"`
}

type WaitTransactionRequest struct {
	TxHash string `json:"tx_hash"`
}

type Receipt struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Block  uint64 `json:"block"`
}

type WaitTransactionResponse struct {
	Receipt Receipt `json:"receipt"`
}

type ChallengeRequest struct {
	Address keyx.Address `json:"address"`
}

type ChallengeResponse struct {
	Nonce []byte `json:"nonce"`
}

type LoginRequest struct {
	Address   keyx.Address `json:"address"`
	PublicKey []byte       `json:"public_key"`
	Signature []byte       `json:"signature"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// LedgerServer is the node-side implementation of the Ledger service.
type LedgerServer interface {
	Info(context.Context, *InfoRequest) (*InfoResponse, error)
	IsAvailable(context.Context, *IsAvailableRequest) (*IsAvailableResponse, error)
	ListRecordIDs(context.Context, *ListRecordIDsRequest) (*ListRecordIDsResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	GetEncryptedValue(context.Context, *GetEncryptedValueRequest) (*GetEncryptedValueResponse, error)
	CreateRecord(context.Context, *CreateRecordRequest) (*TxResponse, error)
	VerifyDecryption(context.Context, *VerifyDecryptionRequest) (*TxResponse, error)
	WaitTransaction(context.Context, *WaitTransactionRequest) (*WaitTransactionResponse, error)
	Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
}

var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(LedgerServiceName, "Info", LedgerServer.Info),
		unary(LedgerServiceName, "IsAvailable", LedgerServer.IsAvailable),
		unary(LedgerServiceName, "ListRecordIDs", LedgerServer.ListRecordIDs),
		unary(LedgerServiceName, "GetRecord", LedgerServer.GetRecord),
		unary(LedgerServiceName, "GetEncryptedValue", LedgerServer.GetEncryptedValue),
		unary(LedgerServiceName, "CreateRecord", LedgerServer.CreateRecord),
		unary(LedgerServiceName, "VerifyDecryption", LedgerServer.VerifyDecryption),
		unary(LedgerServiceName, "WaitTransaction", LedgerServer.WaitTransaction),
		unary(LedgerServiceName, "Challenge", LedgerServer.Challenge),
		unary(LedgerServiceName, "Login", LedgerServer.Login),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophrelief/ledger/v1",
}

func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerClient is the client API for the Ledger service.
type LedgerClient interface {
	Info(ctx context.Context, in *InfoRequest, opts ...grpc.CallOption) (*InfoResponse, error)
	IsAvailable(ctx context.Context, in *IsAvailableRequest, opts ...grpc.CallOption) (*IsAvailableResponse, error)
	ListRecordIDs(ctx context.Context, in *ListRecordIDsRequest, opts ...grpc.CallOption) (*ListRecordIDsResponse, error)
	GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error)
	GetEncryptedValue(ctx context.Context, in *GetEncryptedValueRequest, opts ...grpc.CallOption) (*GetEncryptedValueResponse, error)
	CreateRecord(ctx context.Context, in *CreateRecordRequest, opts ...grpc.CallOption) (*TxResponse, error)
	VerifyDecryption(ctx context.Context, in *VerifyDecryptionRequest, opts ...grpc.CallOption) (*TxResponse, error)
	WaitTransaction(ctx context.Context, in *WaitTransactionRequest, opts ...grpc.CallOption) (*WaitTransactionResponse, error)
	Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
}

type ledgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient {
	return &ledgerClient{cc: cc}
}

func (c *ledgerClient) Info(ctx context.Context, in *InfoRequest, opts ...grpc.CallOption) (*InfoResponse, error) {
	out := new(InfoResponse)
	if err := invoke(ctx, c.cc, LedgerInfoMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) IsAvailable(ctx context.Context, in *IsAvailableRequest, opts ...grpc.CallOption) (*IsAvailableResponse, error) {
	out := new(IsAvailableResponse)
	if err := invoke(ctx, c.cc, LedgerIsAvailableMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) ListRecordIDs(ctx context.Context, in *ListRecordIDsRequest, opts ...grpc.CallOption) (*ListRecordIDsResponse, error) {
	out := new(ListRecordIDsResponse)
	if err := invoke(ctx, c.cc, LedgerListRecordIDsMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error) {
	out := new(GetRecordResponse)
	if err := invoke(ctx, c.cc, LedgerGetRecordMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) GetEncryptedValue(ctx context.Context, in *GetEncryptedValueRequest, opts ...grpc.CallOption) (*GetEncryptedValueResponse, error) {
	out := new(GetEncryptedValueResponse)
	if err := invoke(ctx, c.cc, LedgerGetEncryptedValueMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) CreateRecord(ctx context.Context, in *CreateRecordRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	out := new(TxResponse)
	if err := invoke(ctx, c.cc, LedgerCreateRecordMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) VerifyDecryption(ctx context.Context, in *VerifyDecryptionRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	out := new(TxResponse)
	if err := invoke(ctx, c.cc, LedgerVerifyDecryptionMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) WaitTransaction(ctx context.Context, in *WaitTransactionRequest, opts ...grpc.CallOption) (*WaitTransactionResponse, error) {
	out := new(WaitTransactionResponse)
	if err := invoke(ctx, c.cc, LedgerWaitTransactionMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error) {
	out := new(ChallengeResponse)
	if err := invoke(ctx, c.cc, LedgerChallengeMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := invoke(ctx, c.cc, LedgerLoginMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
