package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/client/services"
	"github.com/dmitrijs2005/gophrelief/internal/client/wallet"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// UnlockWallet opens the keystore at path, offering to create one when it
// does not exist yet.
func UnlockWallet(path string, reader *bufio.Reader, w io.Writer) (*keyx.PrivateKey, error) {
	exists, err := wallet.Exists(path)
	if err != nil {
		return nil, err
	}

	if exists {
		pw, err := GetPassword("Wallet password", w)
		if err != nil {
			return nil, err
		}
		defer common.WipeByteArray(pw)
		return wallet.Open(path, pw)
	}

	ok, err := Confirm(reader, fmt.Sprintf("No wallet at %s. Create one?", path), w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrUserCancelled
	}

	pw, err := GetPassword("New wallet password", w)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pw)

	again, err := GetPassword("Repeat password", w)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(pw, again) {
		return nil, ErrPasswordMismatch
	}
	return wallet.Create(path, pw)
}

// PromptApproval asks the user to confirm every signature.
func PromptApproval(reader *bufio.Reader, w io.Writer) wallet.ApproveFunc {
	return func(ctx context.Context, req wallet.Request) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return Confirm(reader, "Sign "+req.String()+"?", w)
	}
}

// StatusPrinter writes status events to w as they are published.
func StatusPrinter(w io.Writer) services.StatusFunc {
	return func(s models.TxStatus) {
		fmt.Fprintln(w, formatStatus(models.TxStatus{Phase: s.Phase, Message: s.Message, TxHash: s.TxHash}))
	}
}
