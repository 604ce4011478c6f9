package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophrelief/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) PublicKey(ctx context.Context, req *rpc.PublicKeyRequest) (*rpc.PublicKeyResponse, error) {
	pub, signer := s.oracle.PublicKey()
	return &rpc.PublicKeyResponse{PublicKey: pub, Signer: signer}, nil
}

func (s *GRPCServer) AttestInput(ctx context.Context, req *rpc.AttestInputRequest) (*rpc.AttestInputResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if caller != req.Requester {
		return nil, status.Error(codes.PermissionDenied, "requester does not match token")
	}

	proof, err := s.oracle.AttestInput(ctx, req.Contract, req.Requester, req.Ciphertext)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.AttestInputResponse{Proof: proof}, nil
}

func (s *GRPCServer) Decrypt(ctx context.Context, req *rpc.DecryptRequest) (*rpc.DecryptResponse, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	clear, proof, err := s.oracle.Decrypt(ctx, req.Contract, caller, req.Handles)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.DecryptResponse{ClearValues: clear, Proof: proof}, nil
}
