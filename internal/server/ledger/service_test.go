package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/fhe"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/server/models"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keysOnce sync.Once
	testKeys *fhe.KeySet
)

func fheKeys(t *testing.T) *fhe.KeySet {
	t.Helper()
	keysOnce.Do(func() {
		k, err := fhe.GenerateKeySet()
		if err != nil {
			panic(err)
		}
		testKeys = k
	})
	return testKeys
}

type countingRecorder struct {
	mu      sync.Mutex
	queued  map[string]int
	applied map[string]int
}

func (r *countingRecorder) TxQueued(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued[kind]++
}

func (r *countingRecorder) TxApplied(kind, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied[kind+"/"+status]++
}

func (r *countingRecorder) appliedCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied[key]
}

type fixture struct {
	svc      *Service
	store    *blobs.MemoryStore
	oracle   *keyx.PrivateKey
	sender   keyx.Address
	contract keyx.Address
	recorder *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	oracle, err := keyx.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		store:    blobs.NewMemoryStore(),
		oracle:   oracle,
		sender:   keyx.Address{0x51},
		contract: keyx.Address{0xc0},
		recorder: &countingRecorder{queued: map[string]int{}, applied: map[string]int{}},
	}
	f.svc = NewService(records.NewMemoryRepository(), f.store, Config{
		Contract:     f.contract,
		OracleSigner: oracle.PublicKey(),
	}, f.recorder, logging.NewNop())
	return f
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (f *fixture) newRecord(t *testing.T, id string, victims uint64) NewRecord {
	t.Helper()
	ct, err := fheKeys(t).PublicKey().Encrypt(victims)
	require.NoError(t, err)

	return NewRecord{
		ID:                id,
		OrganizationName:  "Red Cross",
		Location:          "Location: Izmir, Disaster: earthquake",
		PublicSupplyCount: 500,
		Ciphertext:        ct,
		InputProof:        f.oracle.Sign(fhe.InputDigest(f.contract, f.sender, ct)),
	}
}

func (f *fixture) decryptionProof(h fhe.Handle, value uint64) ([]byte, []byte) {
	clear := fhe.EncodeClearValues([]uint64{value})
	return clear, f.oracle.Sign(fhe.DecryptionDigest(f.contract, f.sender, []fhe.Handle{h}, clear))
}

func wait(t *testing.T, svc *Service, hash string) *models.Transaction {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := svc.WaitTransaction(ctx, hash)
	require.NoError(t, err)
	require.True(t, tx.Final(), "transaction %s still pending", hash)
	return tx
}

func TestCreateRecord_Applied(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	ctx := context.Background()

	in := f.newRecord(t, "relief-1", 120)
	hash, err := f.svc.CreateRecord(ctx, f.sender, in)
	require.NoError(t, err)

	tx := wait(t, f.svc, hash)
	assert.Equal(t, models.TxSuccess, tx.Status)
	assert.Equal(t, uint64(1), tx.Block)

	rec, err := f.svc.GetRecord(ctx, "relief-1")
	require.NoError(t, err)
	assert.Equal(t, fhe.HandleOf(in.Ciphertext), rec.Handle)
	assert.Equal(t, f.sender, rec.Creator)
	assert.Equal(t, uint64(500), rec.PublicSupplyCount)
	assert.False(t, rec.Verified)
	assert.Nil(t, rec.VerifiedVictimCount)
	assert.False(t, rec.CreatedAt.IsZero())

	blob, err := f.store.Get(ctx, rec.Handle)
	require.NoError(t, err)
	assert.Equal(t, in.Ciphertext, blob)

	h, err := f.svc.Handle(ctx, "relief-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Handle, h)

	ids, err := f.svc.ListRecordIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"relief-1"}, ids)

	assert.Equal(t, 1, f.recorder.queued["create_record"])
	assert.Equal(t, 1, f.recorder.appliedCount("create_record/success"))
}

func TestCreateRecord_Rejections(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	ctx := context.Background()

	good := f.newRecord(t, "relief-1", 10)
	hash, err := f.svc.CreateRecord(ctx, f.sender, good)
	require.NoError(t, err)
	wait(t, f.svc, hash)

	t.Run("duplicate id", func(t *testing.T) {
		_, err := f.svc.CreateRecord(ctx, f.sender, f.newRecord(t, "relief-1", 11))
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
	})

	t.Run("proof for another requester", func(t *testing.T) {
		in := f.newRecord(t, "relief-2", 11)
		_, err := f.svc.CreateRecord(ctx, keyx.Address{0x99}, in)
		assert.ErrorIs(t, err, common.ErrInvalidProof)
	})

	t.Run("malformed ciphertext", func(t *testing.T) {
		in := f.newRecord(t, "relief-3", 11)
		in.Ciphertext = []byte("garbage")
		_, err := f.svc.CreateRecord(ctx, f.sender, in)
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("missing organization", func(t *testing.T) {
		in := f.newRecord(t, "relief-4", 11)
		in.OrganizationName = " "
		_, err := f.svc.CreateRecord(ctx, f.sender, in)
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})
}

func TestCreateRecord_QueuedDuplicateReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateRecord(ctx, f.sender, f.newRecord(t, "relief-1", 1))
	require.NoError(t, err)
	second, err := f.svc.CreateRecord(ctx, f.sender, f.newRecord(t, "relief-1", 2))
	require.NoError(t, err)

	f.run(t)

	assert.Equal(t, models.TxSuccess, wait(t, f.svc, first).Status)

	tx := wait(t, f.svc, second)
	assert.Equal(t, models.TxReverted, tx.Status)
	assert.Equal(t, "identifier already exists", tx.Reason)
}

func TestVerifyDecryption(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	ctx := context.Background()

	hash, err := f.svc.CreateRecord(ctx, f.sender, f.newRecord(t, "relief-1", 120))
	require.NoError(t, err)
	wait(t, f.svc, hash)

	rec, err := f.svc.GetRecord(ctx, "relief-1")
	require.NoError(t, err)

	t.Run("proof over another value", func(t *testing.T) {
		clear, _ := f.decryptionProof(rec.Handle, 120)
		_, proof := f.decryptionProof(rec.Handle, 121)
		_, err := f.svc.VerifyDecryption(ctx, f.sender, "relief-1", clear, proof)
		assert.ErrorIs(t, err, common.ErrInvalidProof)
	})

	t.Run("malformed clear values", func(t *testing.T) {
		_, err := f.svc.VerifyDecryption(ctx, f.sender, "relief-1", []byte{1, 2, 3}, nil)
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("unknown record", func(t *testing.T) {
		clear, proof := f.decryptionProof(rec.Handle, 120)
		_, err := f.svc.VerifyDecryption(ctx, f.sender, "relief-404", clear, proof)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	clear, proof := f.decryptionProof(rec.Handle, 120)
	hash, err = f.svc.VerifyDecryption(ctx, f.sender, "relief-1", clear, proof)
	require.NoError(t, err)
	assert.Equal(t, models.TxSuccess, wait(t, f.svc, hash).Status)

	rec, err = f.svc.GetRecord(ctx, "relief-1")
	require.NoError(t, err)
	assert.True(t, rec.Verified)
	require.NotNil(t, rec.VerifiedVictimCount)
	assert.Equal(t, uint64(120), *rec.VerifiedVictimCount)

	_, err = f.svc.VerifyDecryption(ctx, f.sender, "relief-1", clear, proof)
	assert.ErrorIs(t, err, common.ErrAlreadyVerified)
}

func TestVerifyDecryption_RaceSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	handle := fhe.Handle{0x01}
	require.NoError(t, f.svc.repo.Create(ctx, &models.Record{ID: "relief-1", Handle: handle}))

	// Both pass the up-front check because neither has been applied yet.
	clear, proof := f.decryptionProof(handle, 120)
	a, err := f.svc.VerifyDecryption(ctx, f.sender, "relief-1", clear, proof)
	require.NoError(t, err)
	b, err := f.svc.VerifyDecryption(ctx, f.sender, "relief-1", clear, proof)
	require.NoError(t, err)

	f.run(t)

	txA := wait(t, f.svc, a)
	txB := wait(t, f.svc, b)
	assert.Equal(t, models.TxSuccess, txA.Status)
	assert.Equal(t, models.TxReverted, txB.Status)
	assert.Equal(t, common.AlreadyVerifiedReason, txB.Reason)
	assert.Equal(t, 1, f.recorder.appliedCount("verify_decryption/reverted"))
	assert.Equal(t, 1, f.recorder.appliedCount("verify_decryption/success"))
}

func TestRun_ContinuesBlockNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.repo.SaveTransaction(ctx, &models.Transaction{
		Hash: "0xearlier", Status: models.TxSuccess, Block: 41,
	}))
	f.run(t)

	hash, err := f.svc.CreateRecord(ctx, f.sender, f.newRecord(t, "relief-1", 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), wait(t, f.svc, hash).Block)
}

func TestWaitTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.WaitTransaction(ctx, "0xmissing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	hash, err := f.svc.CreateRecord(ctx, f.sender, f.newRecord(t, "relief-1", 1))
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	tx, err := f.svc.WaitTransaction(short, hash)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, tx.Status)

	f.run(t)
	assert.Equal(t, models.TxSuccess, wait(t, f.svc, hash).Status)
}
