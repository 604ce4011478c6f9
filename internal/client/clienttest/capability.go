package clienttest

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophrelief/internal/client/gateway"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

var ErrCapabilityDown = errors.New("capability down")

// FakeCapability "encrypts" by remembering each value under the handle of
// an opaque ciphertext.
type FakeCapability struct {
	mu         sync.Mutex
	values     map[fhe.Handle]uint64
	ready      bool
	decryptErr error
	seq        uint64

	// BeforeAccept, when set, runs after a value was produced and before it
	// is submitted.
	BeforeAccept func()

	EncryptCalls atomic.Int32
	DecryptCalls atomic.Int32
}

func NewFakeCapability() *FakeCapability {
	return &FakeCapability{values: make(map[fhe.Handle]uint64), ready: true}
}

func (c *FakeCapability) SetReady(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = v
}

// FailDecrypt makes every Decrypt fail with err until cleared with nil.
func (c *FakeCapability) FailDecrypt(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decryptErr = err
}

func (c *FakeCapability) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *FakeCapability) Encrypt(ctx context.Context, contract, requester keyx.Address, value uint64) (*gateway.EncryptedInput, error) {
	c.EncryptCalls.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	ct := make([]byte, 8, 8+2*keyx.AddressLength)
	binary.BigEndian.PutUint64(ct, c.seq)
	ct = append(ct, contract.Bytes()...)
	ct = append(ct, requester.Bytes()...)

	c.values[fhe.HandleOf(ct)] = value
	return &gateway.EncryptedInput{Ciphertext: ct, Proof: []byte("input-proof")}, nil
}

func (c *FakeCapability) Decrypt(ctx context.Context, handles []fhe.Handle, contract keyx.Address, onAccept gateway.AcceptFunc) (*gateway.DecryptionResult, error) {
	c.DecryptCalls.Add(1)

	c.mu.Lock()
	if err := c.decryptErr; err != nil {
		c.mu.Unlock()
		return nil, err
	}
	values := make([]uint64, len(handles))
	for i, h := range handles {
		v, ok := c.values[h]
		if !ok {
			c.mu.Unlock()
			return nil, common.ErrNotFound
		}
		values[i] = v
	}
	hook := c.BeforeAccept
	c.mu.Unlock()

	if hook != nil {
		hook()
	}

	tx, err := onAccept(ctx, fhe.EncodeClearValues(values), []byte("decryption-proof"))
	if err != nil {
		return nil, err
	}
	receipt, err := tx.Wait(ctx)
	if err != nil {
		return nil, err
	}

	res := &gateway.DecryptionResult{ClearValues: make(map[fhe.Handle]uint64, len(handles)), Receipt: receipt}
	for i, h := range handles {
		res.ClearValues[h] = values[i]
	}
	return res, nil
}
