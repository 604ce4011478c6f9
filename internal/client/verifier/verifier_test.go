package verifier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/clienttest"
	"github.com/dmitrijs2005/gophrelief/internal/client/gateway"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger     *clienttest.FakeLedger
	capability *clienttest.FakeCapability
	gateway    *gateway.Gateway
	verifier   *Verifier
}

func newFixture() *fixture {
	f := &fixture{
		ledger:     clienttest.NewFakeLedger(),
		capability: clienttest.NewFakeCapability(),
	}
	f.gateway = gateway.New(f.capability, logging.NewNop())
	f.verifier = New(f.ledger, f.gateway, logging.NewNop())
	return f
}

func (f *fixture) create(t *testing.T, id string, victims int64, supplies uint64) {
	t.Helper()
	ctx := context.Background()

	in, err := f.gateway.EncryptForSubmission(ctx, clienttest.Contract, f.ledger.Sender, victims)
	require.NoError(t, err)

	tx, err := f.ledger.CreateRecord(ctx, client.NewRecord{
		ID:                id,
		OrganizationName:  "Relief Org",
		Location:          "Location: Izmir, Disaster: earthquake",
		PublicSupplyCount: supplies,
		Ciphertext:        in.Ciphertext,
		InputProof:        in.Proof,
	})
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.NoError(t, err)
}

func (f *fixture) read(t *testing.T, id string) *models.Record {
	t.Helper()
	rec, err := f.ledger.GetRecord(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, rec.Validate())
	return rec
}

func TestRequestDecryption_CreateThenVerify(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)

	rec := f.read(t, "relief-1")
	assert.Equal(t, models.Unverified, rec.State)
	assert.Equal(t, uint64(500), rec.PublicSupplyCount)

	out := f.verifier.RequestDecryption(context.Background(), "relief-1")
	assert.Equal(t, models.OnChainVerified{Value: 120}, out)

	rec = f.read(t, "relief-1")
	assert.Equal(t, models.Verified, rec.State)
	require.NotNil(t, rec.VerifiedVictimCount)
	assert.Equal(t, uint64(120), *rec.VerifiedVictimCount)
}

func TestRequestDecryption_FastPath(t *testing.T) {
	f := newFixture()
	v := uint64(42)
	f.ledger.Put(models.Record{ID: "relief-1", State: models.Verified, VerifiedVictimCount: &v})

	out := f.verifier.RequestDecryption(context.Background(), "relief-1")
	assert.Equal(t, models.AlreadyVerified{Value: 42}, out)

	assert.Zero(t, f.capability.DecryptCalls.Load())
	assert.Zero(t, f.ledger.SubmitCalls.Load())
}

func TestRequestDecryption_RepeatIsIdempotent(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)

	first := f.verifier.RequestDecryption(context.Background(), "relief-1")
	second := f.verifier.RequestDecryption(context.Background(), "relief-1")

	assert.Equal(t, models.OnChainVerified{Value: 120}, first)
	assert.Equal(t, models.AlreadyVerified{Value: 120}, second)
	assert.Equal(t, int32(1), f.capability.DecryptCalls.Load())
	assert.Equal(t, int32(1), f.ledger.SubmitCalls.Load())

	rec := f.read(t, "relief-1")
	assert.Equal(t, uint64(120), *rec.VerifiedVictimCount)
}

func TestRequestDecryption_ConcurrentCallsConverge(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)

	// Both requests pass the fast path check before either submits.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.capability.BeforeAccept = func() {
		arrived.Done()
		arrived.Wait()
	}

	outcomes := make([]models.Outcome, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = f.verifier.RequestDecryption(context.Background(), "relief-1")
		}(i)
	}
	wg.Wait()

	var onChain, already int
	for _, o := range outcomes {
		switch v := o.(type) {
		case models.OnChainVerified:
			onChain++
			assert.Equal(t, uint64(120), v.Value)
		case models.AlreadyVerified:
			already++
			assert.Equal(t, uint64(120), v.Value)
		default:
			t.Fatalf("unexpected outcome %v", o)
		}
	}
	assert.Equal(t, 1, onChain)
	assert.Equal(t, 1, already)
	assert.Equal(t, int32(2), f.capability.DecryptCalls.Load())
}

func TestRequestDecryption_FailureThenRetry(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)

	f.capability.FailDecrypt(clienttest.ErrCapabilityDown)
	out := f.verifier.RequestDecryption(context.Background(), "relief-1")

	failed, ok := out.(models.Failed)
	require.True(t, ok, "got %v", out)
	assert.ErrorIs(t, failed.Err, common.ErrDecryptionFailure)
	assert.ErrorIs(t, failed.Err, clienttest.ErrCapabilityDown)
	assert.NotEmpty(t, failed.Reason)
	assert.Equal(t, models.Unverified, f.read(t, "relief-1").State)

	f.capability.FailDecrypt(nil)
	out = f.verifier.RequestDecryption(context.Background(), "relief-1")
	assert.Equal(t, models.OnChainVerified{Value: 120}, out)
}

func TestRequestDecryption_ReadFailure(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 1, 1)
	f.ledger.FailReads("relief-1", client.ErrUnavailable)

	out := f.verifier.RequestDecryption(context.Background(), "relief-1")
	failed, ok := out.(models.Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, common.ErrReadFailure)
	assert.Zero(t, f.capability.DecryptCalls.Load())
}

func TestRequestDecryption_UnknownRecord(t *testing.T) {
	f := newFixture()

	out := f.verifier.RequestDecryption(context.Background(), "relief-missing")
	failed, ok := out.(models.Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, common.ErrNotFound)
}

// cancellingLedger refuses to sign the verification.
type cancellingLedger struct {
	*clienttest.FakeLedger
}

func (cancellingLedger) SubmitVerification(context.Context, string, []byte, []byte) (client.Transaction, error) {
	return nil, common.ErrUserCancelled
}

func TestRequestDecryption_UserCancelled(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)
	v := New(cancellingLedger{f.ledger}, f.gateway, logging.NewNop())

	out := v.RequestDecryption(context.Background(), "relief-1")
	failed, ok := out.(models.Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, common.ErrUserCancelled)
	assert.Equal(t, models.Unverified, f.read(t, "relief-1").State)
}

// staleLedger keeps serving the pre-verification projection once armed.
type staleLedger struct {
	*clienttest.FakeLedger
	stale *models.Record
	reads atomic.Int32
}

func (l *staleLedger) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	if l.reads.Add(1) > 1 {
		cp := *l.stale
		return &cp, nil
	}
	rec, err := l.FakeLedger.GetRecord(ctx, id)
	if err == nil {
		cp := *rec
		l.stale = &cp
	}
	return rec, err
}

func TestRequestDecryption_StaleConfirmingRead(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)
	l := &staleLedger{FakeLedger: f.ledger}
	v := New(l, f.gateway, logging.NewNop())

	out := v.RequestDecryption(context.Background(), "relief-1")
	assert.Equal(t, models.LocallyDecryptedUnverified{Value: 120}, out)

	_, trusted := models.TrustedValue(out)
	assert.False(t, trusted)

	// the ledger did apply it; the next request converges
	out = f.verifier.RequestDecryption(context.Background(), "relief-1")
	assert.Equal(t, models.AlreadyVerified{Value: 120}, out)
}

// racingLedger lets another party verify right before our submission lands.
type racingLedger struct {
	*clienttest.FakeLedger
	winner uint64
}

func (l *racingLedger) SubmitVerification(ctx context.Context, id string, clearValues, proof []byte) (client.Transaction, error) {
	rec, err := l.FakeLedger.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	v := l.winner
	rec.State = models.Verified
	rec.VerifiedVictimCount = &v
	l.Put(*rec)
	return l.FakeLedger.SubmitVerification(ctx, id, clearValues, proof)
}

func TestRequestDecryption_RejectedAsAlreadyVerified(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)
	v := New(&racingLedger{FakeLedger: f.ledger, winner: 120}, f.gateway, logging.NewNop())

	out := v.RequestDecryption(context.Background(), "relief-1")
	assert.Equal(t, models.AlreadyVerified{Value: 120}, out)
}

// unconfirmedLedger reports the race but keeps reading the record as
// unverified.
type unconfirmedLedger struct {
	*clienttest.FakeLedger
}

func (unconfirmedLedger) SubmitVerification(context.Context, string, []byte, []byte) (client.Transaction, error) {
	return nil, common.ErrAlreadyVerified
}

func TestRequestDecryption_RaceWithoutConfirmation(t *testing.T) {
	f := newFixture()
	f.create(t, "relief-1", 120, 500)
	v := New(unconfirmedLedger{f.ledger}, f.gateway, logging.NewNop())

	out := v.RequestDecryption(context.Background(), "relief-1")
	failed, ok := out.(models.Failed)
	require.True(t, ok)
	assert.True(t, errors.Is(failed.Err, common.ErrAlreadyVerified))
}
