package wallet

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrelief/internal/common"
)

// Request describes a write the user is asked to sign.
type Request struct {
	Action   string
	RecordID string
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s", r.Action, r.RecordID)
}

// ApproveFunc asks the user to approve a signed write. It returns true to
// sign and false to refuse.
type ApproveFunc func(ctx context.Context, req Request) (bool, error)

// AutoApprove signs everything without asking.
func AutoApprove(context.Context, Request) (bool, error) {
	return true, nil
}

// Approve runs fn and turns a refusal into common.ErrUserCancelled.
func Approve(ctx context.Context, fn ApproveFunc, req Request) error {
	if fn == nil {
		return nil
	}
	ok, err := fn(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUserCancelled, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrUserCancelled, req)
	}
	return nil
}
