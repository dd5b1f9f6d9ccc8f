package oracle

import (
	"context"
	"testing"

	"sealvault-node/ledger"
	"sealvault-node/proofs"
	"sealvault-node/types"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

type fakeChain struct {
	confirmed bool
	err       error
	calls     int
}

func (f *fakeChain) VerifyTx(ctx context.Context, txHash string) (bool, error) {
	f.calls++
	return f.confirmed, f.err
}

func testRecord(actors ...types.ActorCode) *types.Record {
	rec := &types.Record{
		Id:          "11111111-2222-4333-8444-555555555555",
		Owner:       "owner-1",
		Status:      types.RecordStatusUploaded,
		WrappedKeys: make(map[types.ActorCode]string),
	}
	for _, a := range actors {
		rec.WrappedKeys[a] = "blob-" + a.String()
	}
	return rec
}

func TestDecideNoKeyIssued(t *testing.T) {
	ctx := context.Background()

	// a permissive fast path and a confirming chain must not matter: the
	// wrapped-key precondition comes first.
	led := ledger.NewMemoryLedger("head-0")
	_, err := led.Propose(ctx, "head-0", types.SnapshotUpdate{
		RecordId:  "11111111-2222-4333-8444-555555555555",
		Permitted: map[types.ActorCode]string{types.ActorPatient: "stale-blob"},
	})
	require.NoError(t, err)

	o := NewOracle(led, &fakeChain{confirmed: true}, nil, false)
	rec := testRecord() // no wrapped keys at all

	decision := o.Decide(ctx, rec, types.ActorPatient)
	require.False(t, decision.Granted)
	require.Equal(t, ReasonNoKeyIssued, decision.Reason)
}

func TestDecideFastPath(t *testing.T) {
	ctx := context.Background()
	rec := testRecord(types.ActorPatient)

	led := ledger.NewMemoryLedger("head-0")
	_, err := led.Propose(ctx, "head-0", types.SnapshotUpdate{
		RecordId:  rec.Id,
		Permitted: map[types.ActorCode]string{types.ActorPatient: rec.WrappedKeys[types.ActorPatient]},
	})
	require.NoError(t, err)

	chainOracle := &fakeChain{confirmed: true}
	o := NewOracle(led, chainOracle, nil, false)

	decision := o.Decide(ctx, rec, types.ActorPatient)
	require.True(t, decision.Granted)
	require.Equal(t, SourceFastPath, decision.Source)
	// the fast path answered; the chain was never consulted.
	require.Equal(t, 0, chainOracle.calls)
}

func TestDecideChainFallback(t *testing.T) {
	ctx := context.Background()
	rec := testRecord(types.ActorDoctor)
	rec.AnchorTx = "abcd1234"

	// no snapshot for the record: the fast path is skipped entirely.
	led := ledger.NewMemoryLedger("head-0")
	o := NewOracle(led, &fakeChain{confirmed: true}, nil, false)

	decision := o.Decide(ctx, rec, types.ActorDoctor)
	require.True(t, decision.Granted)
	require.Equal(t, SourceChain, decision.Source)
}

func TestDecideProofFallback(t *testing.T) {
	ctx := context.Background()
	rec := testRecord(types.ActorDoctor)
	rec.AnchorTx = "abcd1234"

	proofStore := proofs.NewHashStore()
	_, err := proofStore.Commit(ctx, rec.Id, []types.ActorCode{types.ActorDoctor}, nil)
	require.NoError(t, err)

	o := NewOracle(nil, &fakeChain{confirmed: false}, proofStore, true)

	decision := o.Decide(ctx, rec, types.ActorDoctor)
	require.True(t, decision.Granted)
	require.Equal(t, SourceProof, decision.Source)
}

func TestDecideDenyReasons(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(rec *types.Record) *Oracle
		reason string
	}{
		{
			name: "unanchored record",
			setup: func(rec *types.Record) *Oracle {
				return NewOracle(nil, &fakeChain{confirmed: true}, nil, false)
			},
			reason: "record is not anchored",
		},
		{
			name: "unconfirmed anchor",
			setup: func(rec *types.Record) *Oracle {
				rec.AnchorTx = "abcd1234"
				return NewOracle(nil, &fakeChain{confirmed: false}, nil, false)
			},
			reason: "anchor tx not confirmed",
		},
		{
			name: "chain unreachable",
			setup: func(rec *types.Record) *Oracle {
				rec.AnchorTx = "abcd1234"
				return NewOracle(nil, &fakeChain{err: xerrors.Errorf("connection refused")}, nil, false)
			},
			reason: "chain check failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord(types.ActorPatient)
			o := tt.setup(rec)

			decision := o.Decide(ctx, rec, types.ActorPatient)
			require.False(t, decision.Granted)
			require.Contains(t, decision.Reason, tt.reason)
		})
	}
}

func TestDecideStaleSnapshotFallsThrough(t *testing.T) {
	ctx := context.Background()
	rec := testRecord(types.ActorPatient, types.ActorDoctor)
	rec.AnchorTx = "abcd1234"

	// snapshot predates the doctor's grant; the chain still grants.
	led := ledger.NewMemoryLedger("head-0")
	_, err := led.Propose(ctx, "head-0", types.SnapshotUpdate{
		RecordId:  rec.Id,
		Permitted: map[types.ActorCode]string{types.ActorPatient: "blob-01"},
	})
	require.NoError(t, err)

	o := NewOracle(led, &fakeChain{confirmed: true}, nil, false)

	decision := o.Decide(ctx, rec, types.ActorDoctor)
	require.True(t, decision.Granted)
	require.Equal(t, SourceChain, decision.Source)
}
