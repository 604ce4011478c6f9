package models

import (
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

type TxKind string

const (
	TxCreateRecord     TxKind = "create_record"
	TxVerifyDecryption TxKind = "verify_decryption"
)

type TxStatus string

const (
	TxPending  TxStatus = "pending"
	TxSuccess  TxStatus = "success"
	TxReverted TxStatus = "reverted"
)

// Transaction is an accepted write. It is persisted as pending when
// submitted and finalised by the sequencer.
type Transaction struct {
	Hash      string
	Kind      TxKind
	RecordID  string
	Sender    keyx.Address
	Status    TxStatus
	Reason    string
	Block     uint64
	CreatedAt time.Time
}

func (t *Transaction) Final() bool {
	return t.Status != TxPending
}
