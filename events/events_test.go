package events

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"xdao.co/sas/cidutil"
	"xdao.co/sas/storage"
)

func TestCloseEvent_ByteLayout(t *testing.T) {
	e := &CloseEvent{Schema: solana.PublicKey{5}, Data: []byte{1, 2, 3}}
	b, err := e.Encode()
	require.NoError(t, err)

	require.Equal(t, InstructionTag[:], b[:8])
	require.Equal(t, byte(0), b[8])
	require.Equal(t, byte(5), b[9])
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[41:45]))
	require.Equal(t, []byte{1, 2, 3}, b[45:])

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestCompressEvent_ByteLayout(t *testing.T) {
	e := &CompressEvent{
		PDAsClosed: true,
		Records: []CompressedRecord{
			{Schema: solana.PublicKey{1}, Data: []byte("a")},
			{Schema: solana.PublicKey{2}, Data: []byte("bc")},
		},
	}
	b, err := e.Encode()
	require.NoError(t, err)

	require.Equal(t, byte(1), b[8], "discriminator")
	require.Equal(t, byte(1), b[9], "pdas_closed")
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[10:14]))
	require.Len(t, b, 8+1+1+4+(32+4+1)+(32+4+2))

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestDecode_Rejects(t *testing.T) {
	b, err := (&CloseEvent{Data: []byte{9}}).Encode()
	require.NoError(t, err)

	_, err = Decode(b[:7])
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(append(append([]byte(nil), b...), 0))
	require.ErrorIs(t, err, ErrMalformed)

	bad := append([]byte(nil), b...)
	bad[8] = 7
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestArchive_StoresByCID(t *testing.T) {
	a := NewArchive(storage.NewMemoryCAS())
	first := &CloseEvent{Schema: solana.PublicKey{1}, Data: []byte("x")}
	second := &CompressEvent{Records: []CompressedRecord{{Schema: solana.PublicKey{2}, Data: []byte("y")}}}
	require.NoError(t, a.Emit(first))
	require.NoError(t, a.Emit(second))

	ids := a.Index()
	require.Len(t, ids, 2)

	enc, err := first.Encode()
	require.NoError(t, err)
	want, err := cidutil.Sum(enc)
	require.NoError(t, err)
	require.Equal(t, want, ids[0])

	got, err := a.Load(ids[1])
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestRecorder_KeepsOrder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Emit(&CloseEvent{}))
	require.NoError(t, r.Emit(&CompressEvent{}))
	evs := r.Events()
	require.Len(t, evs, 2)
	require.Equal(t, CloseDiscriminator, evs[0].Discriminator())
	require.Equal(t, CompressDiscriminator, evs[1].Discriminator())
}
