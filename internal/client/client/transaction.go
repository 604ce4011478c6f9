package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/rpc"
)

type grpcTransaction struct {
	client *GRPCClient
	hash   string
	// reject classifies a revert of this kind of write.
	reject func(error) error
}

func (t *grpcTransaction) Hash() string {
	return t.hash
}

// Wait polls the node until the receipt is final. The node holds each poll
// open for a few seconds, so the interval only matters when it answers early.
// An unreachable node is polled again until the grace period runs out, then
// the error wraps ErrOutcomeUnknown since the transaction may still apply.
func (t *grpcTransaction) Wait(ctx context.Context) (*Receipt, error) {
	var downSince time.Time
	for {
		resp, err := t.client.ledger.WaitTransaction(ctx, &rpc.WaitTransactionRequest{TxHash: t.hash})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			err = mapError(err)
			if !errors.Is(err, ErrUnavailable) {
				return nil, err
			}
			if downSince.IsZero() {
				downSince = time.Now()
			}
			if time.Since(downSince) >= t.client.unavailableGrace {
				return nil, fmt.Errorf("%w: tx %s: %w", ErrOutcomeUnknown, t.hash, err)
			}
			t.client.logger.Warn(ctx, "node unreachable while waiting", "tx", t.hash)
			if err := t.sleep(ctx); err != nil {
				return nil, err
			}
			continue
		}
		downSince = time.Time{}

		r := resp.Receipt
		switch r.Status {
		case rpc.TxStatusSuccess:
			return &Receipt{TxHash: r.TxHash, Block: r.Block}, nil
		case rpc.TxStatusReverted:
			return nil, revertError(r.Reason, t.reject)
		}

		if err := t.sleep(ctx); err != nil {
			return nil, err
		}
	}
}

func (t *grpcTransaction) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(t.client.pollInterval):
		return nil
	}
}

func revertError(reason string, reject func(error) error) error {
	switch reason {
	case common.AlreadyVerifiedReason:
		return common.ErrAlreadyVerified
	case common.ErrAlreadyExists.Error():
		return reject(common.ErrAlreadyExists)
	case "record not found":
		return reject(common.ErrNotFound)
	default:
		return reject(fmt.Errorf("%w: reverted: %s", common.ErrInvalidArgument, reason))
	}
}
