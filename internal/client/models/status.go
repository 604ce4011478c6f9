package models

import (
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

// TxPhase is the presentation-facing phase of an operation.
type TxPhase string

const (
	PhasePending TxPhase = "pending"
	PhaseSuccess TxPhase = "success"
	PhaseError   TxPhase = "error"
)

// TxStatus is one status event published while an operation runs.
type TxStatus struct {
	Phase    TxPhase
	Message  string
	RecordID string
	TxHash   string
	At       time.Time
}

// Stats summarizes a refreshed record list.
type Stats struct {
	Total    int
	Verified int
	Pending  int
}

func ComputeStats(records []Record) Stats {
	s := Stats{Total: len(records)}
	for _, r := range records {
		if r.IsVerified() {
			s.Verified++
		} else {
			s.Pending++
		}
	}
	return s
}

// KnownNode is the identity a node presented the first time the CLI
// connected to it.
type KnownNode struct {
	Endpoint  string
	Contract  keyx.Address
	Oracle    []byte
	FirstSeen time.Time
}
