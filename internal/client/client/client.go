package client

import (
	"context"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

// LedgerClient reads and writes records on the ledger. It keeps no state of
// its own beyond the connection.
type LedgerClient interface {
	// ListRecordIDs returns ids in the order the ledger reports them.
	ListRecordIDs(ctx context.Context) ([]string, error)
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	GetConfidentialHandle(ctx context.Context, id string) (fhe.Handle, error)
	CreateRecord(ctx context.Context, rec NewRecord) (Transaction, error)
	SubmitVerification(ctx context.Context, id string, clearValues, proof []byte) (Transaction, error)
	// CheckAvailability probes the ledger without side effects.
	CheckAvailability(ctx context.Context) bool
	// ContractAddress is the verifier identity proofs are bound to.
	ContractAddress(ctx context.Context) (keyx.Address, error)
}

// NewRecord is a creation request whose confidential value is already
// encrypted and attested.
type NewRecord struct {
	ID                string
	OrganizationName  string
	Location          string
	PublicSupplyCount uint64
	Ciphertext        []byte
	InputProof        []byte
}

// Receipt reports an applied transaction.
type Receipt struct {
	TxHash string
	Block  uint64
}

// Transaction is a write accepted into the node's queue.
type Transaction interface {
	Hash() string
	// Wait blocks until the transaction is applied or reverted. A revert is
	// returned as an error.
	Wait(ctx context.Context) (*Receipt, error)
}

// Signer is the wallet identity used to log in to the node.
type Signer interface {
	Address() keyx.Address
	PublicKey() []byte
	Sign(digest [32]byte) []byte
}

// NodeInfo identifies a node.
type NodeInfo struct {
	Contract keyx.Address
	Oracle   []byte
}
