package rpc

import (
	"context"

	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"google.golang.org/grpc"
)

const OracleServiceName = "gophrelief.oracle.v1.Oracle"

const (
	OraclePublicKeyMethod   = "/" + OracleServiceName + "/PublicKey"
	OracleAttestInputMethod = "/" + OracleServiceName + "/AttestInput"
	OracleDecryptMethod     = "/" + OracleServiceName + "/Decrypt"
)

type PublicKeyRequest struct{}

type PublicKeyResponse struct {
	// PublicKey is the BGV encryption key.
	PublicKey []byte `json:"public_key"`
	// Signer is the compressed secp256k1 key behind every proof.
	Signer []byte `json:"signer"`
}

type AttestInputRequest struct {
	Contract   keyx.Address `json:"contract"`
	Requester  keyx.Address `json:"requester"`
	Ciphertext []byte       `json:"ciphertext"`
}

type AttestInputResponse struct {
	Proof []byte `json:"proof"`
}

type DecryptRequest struct {
	Contract keyx.Address `json:"contract"`
	Handles  []fhe.Handle `json:"handles"`
}

type DecryptResponse struct {
	ClearValues []byte `json:"clear_values"`
	Proof       []byte `json:"proof"`
}

type OracleServer interface {
	PublicKey(context.Context, *PublicKeyRequest) (*PublicKeyResponse, error)
	AttestInput(context.Context, *AttestInputRequest) (*AttestInputResponse, error)
	Decrypt(context.Context, *DecryptRequest) (*DecryptResponse, error)
}

var OracleServiceDesc = grpc.ServiceDesc{
	ServiceName: OracleServiceName,
	HandlerType: (*OracleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OracleServiceName, "PublicKey", OracleServer.PublicKey),
		unary(OracleServiceName, "AttestInput", OracleServer.AttestInput),
		unary(OracleServiceName, "Decrypt", OracleServer.Decrypt),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophrelief/oracle/v1",
}

func RegisterOracleServer(s grpc.ServiceRegistrar, srv OracleServer) {
	s.RegisterService(&OracleServiceDesc, srv)
}

type OracleClient interface {
	PublicKey(ctx context.Context, in *PublicKeyRequest, opts ...grpc.CallOption) (*PublicKeyResponse, error)
	AttestInput(ctx context.Context, in *AttestInputRequest, opts ...grpc.CallOption) (*AttestInputResponse, error)
	Decrypt(ctx context.Context, in *DecryptRequest, opts ...grpc.CallOption) (*DecryptResponse, error)
}

type oracleClient struct {
	cc grpc.ClientConnInterface
}

func NewOracleClient(cc grpc.ClientConnInterface) OracleClient {
	return &oracleClient{cc: cc}
}

func (c *oracleClient) PublicKey(ctx context.Context, in *PublicKeyRequest, opts ...grpc.CallOption) (*PublicKeyResponse, error) {
	out := new(PublicKeyResponse)
	if err := invoke(ctx, c.cc, OraclePublicKeyMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *oracleClient) AttestInput(ctx context.Context, in *AttestInputRequest, opts ...grpc.CallOption) (*AttestInputResponse, error) {
	out := new(AttestInputResponse)
	if err := invoke(ctx, c.cc, OracleAttestInputMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *oracleClient) Decrypt(ctx context.Context, in *DecryptRequest, opts ...grpc.CallOption) (*DecryptResponse, error) {
	out := new(DecryptResponse)
	if err := invoke(ctx, c.cc, OracleDecryptMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
