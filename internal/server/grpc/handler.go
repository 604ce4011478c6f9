package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/rpc"
	"github.com/dmitrijs2005/gophrelief/internal/server/ledger"
	"github.com/dmitrijs2005/gophrelief/internal/server/models"
)

// maxWait bounds one WaitTransaction call; clients poll until final.
const maxWait = 5 * time.Second

func (s *GRPCServer) Info(ctx context.Context, req *rpc.InfoRequest) (*rpc.InfoResponse, error) {
	return &rpc.InfoResponse{Contract: s.ledger.Contract(), Oracle: s.ledger.OracleSigner()}, nil
}

func (s *GRPCServer) IsAvailable(ctx context.Context, req *rpc.IsAvailableRequest) (*rpc.IsAvailableResponse, error) {
	if err := s.ledger.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "storage unavailable", "error", err)
		return &rpc.IsAvailableResponse{Available: false}, nil
	}
	return &rpc.IsAvailableResponse{Available: true}, nil
}

func (s *GRPCServer) ListRecordIDs(ctx context.Context, req *rpc.ListRecordIDsRequest) (*rpc.ListRecordIDsResponse, error) {
	ids, err := s.ledger.ListRecordIDs(ctx)
	if err != nil {
		s.logger.Error(ctx, "error listing records", "error", err)
		return nil, toStatus(err)
	}
	return &rpc.ListRecordIDsResponse{IDs: ids}, nil
}

func (s *GRPCServer) GetRecord(ctx context.Context, req *rpc.GetRecordRequest) (*rpc.GetRecordResponse, error) {
	rec, err := s.ledger.GetRecord(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.GetRecordResponse{Record: toRPCRecord(rec)}, nil
}

func (s *GRPCServer) GetEncryptedValue(ctx context.Context, req *rpc.GetEncryptedValueRequest) (*rpc.GetEncryptedValueResponse, error) {
	h, err := s.ledger.Handle(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.GetEncryptedValueResponse{Handle: h}, nil
}

func (s *GRPCServer) CreateRecord(ctx context.Context, req *rpc.CreateRecordRequest) (*rpc.TxResponse, error) {
	sender, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := s.ledger.CreateRecord(ctx, sender, ledger.NewRecord{
		ID:                req.ID,
		OrganizationName:  req.OrganizationName,
		Location:          req.Location,
		PublicSupplyCount: req.PublicSupplyCount,
		Ciphertext:        req.Ciphertext,
		InputProof:        req.InputProof,
	})
	if err != nil {
		s.logger.Warn(ctx, "record creation rejected", "id", req.ID, "sender", sender, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "record creation submitted", "id", req.ID, "tx", hash)
	return &rpc.TxResponse{TxHash: hash}, nil
}

func (s *GRPCServer) VerifyDecryption(ctx context.Context, req *rpc.VerifyDecryptionRequest) (*rpc.TxResponse, error) {
	sender, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := s.ledger.VerifyDecryption(ctx, sender, req.ID, req.ClearValues, req.DecryptionProof)
	if err != nil {
		s.logger.Warn(ctx, "verification rejected", "id", req.ID, "sender", sender, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "verification submitted", "id", req.ID, "tx", hash)
	return &rpc.TxResponse{TxHash: hash}, nil
}

func (s *GRPCServer) WaitTransaction(ctx context.Context, req *rpc.WaitTransactionRequest) (*rpc.WaitTransactionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	tx, err := s.ledger.WaitTransaction(ctx, req.TxHash)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.WaitTransactionResponse{Receipt: toReceipt(tx)}, nil
}

func (s *GRPCServer) Challenge(ctx context.Context, req *rpc.ChallengeRequest) (*rpc.ChallengeResponse, error) {
	nonce, err := s.auth.Challenge(ctx, req.Address)
	if err != nil {
		s.logger.Warn(ctx, "challenge refused", "address", req.Address, "error", err)
		return nil, toStatus(err)
	}
	return &rpc.ChallengeResponse{Nonce: nonce}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	token, err := s.auth.Login(ctx, req.Address, req.PublicKey, req.Signature)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "address", req.Address)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "logged in", "address", req.Address)
	return &rpc.LoginResponse{AccessToken: token}, nil
}

func toRPCRecord(r *models.Record) rpc.Record {
	return rpc.Record{
		ID:                  r.ID,
		OrganizationName:    r.OrganizationName,
		Location:            r.Location,
		PublicSupplyCount:   r.PublicSupplyCount,
		Handle:              r.Handle,
		CreatedAt:           r.CreatedAt,
		Creator:             r.Creator,
		Verified:            r.Verified,
		VerifiedVictimCount: r.VerifiedVictimCount,
	}
}

func toReceipt(tx *models.Transaction) rpc.Receipt {
	st := rpc.TxStatusPending
	switch tx.Status {
	case models.TxSuccess:
		st = rpc.TxStatusSuccess
	case models.TxReverted:
		st = rpc.TxStatusReverted
	}
	return rpc.Receipt{TxHash: tx.Hash, Status: st, Reason: tx.Reason, Block: tx.Block}
}
