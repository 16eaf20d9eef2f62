package registry

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"xdao.co/sas/config"
	"xdao.co/sas/events"
	"xdao.co/sas/layout"
	"xdao.co/sas/ledger"
	"xdao.co/sas/state"
)

var (
	authority = solana.PublicKey{0xa1}
	signer    = solana.PublicKey{0x51}
	outsider  = solana.PublicKey{0x0e}
	testNow   = time.Unix(1_700_000_000, 0)
)

type fixture struct {
	reg        *Registry
	store      *ledger.Memory
	rec        *events.Recorder
	credential solana.PublicKey
	schema     solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: ledger.NewMemory(), rec: &events.Recorder{}}
	f.reg = New(config.Default(), WithEvents(f.rec), WithClock(func() time.Time { return testNow }))
	err := ledger.Run(f.store, func(tx *ledger.Tx) error {
		var err error
		f.credential, err = f.reg.CreateCredential(tx, authority, "issuer", []solana.PublicKey{signer})
		if err != nil {
			return err
		}
		f.schema, err = f.reg.CreateSchema(tx, authority, f.credential, "profile", "age and name",
			[]byte{byte(layout.U64), byte(layout.I8), byte(layout.String)}, []string{"id", "age", "name"})
		return err
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) run(t *testing.T, fn func(tx *ledger.Tx) error) error {
	t.Helper()
	return ledger.Run(f.store, fn)
}

func profileData(t *testing.T) []byte {
	t.Helper()
	data, err := layout.Encode([]byte{byte(layout.U64), byte(layout.I8), byte(layout.String)}, []any{uint64(7), int8(42), "hi"})
	require.NoError(t, err)
	return data
}

func TestCreateCredential(t *testing.T) {
	f := newFixture(t)

	c, err := f.reg.Credential(f.store, f.credential)
	require.NoError(t, err)
	require.Equal(t, authority, c.Authority)
	require.Equal(t, "issuer", c.Name)
	require.True(t, c.IsAuthorizedSigner(signer))

	err = f.run(t, func(tx *ledger.Tx) error {
		_, err := f.reg.CreateCredential(tx, authority, "issuer", nil)
		return err
	})
	require.ErrorIs(t, err, ErrInvalidCredential)
	require.ErrorIs(t, err, ledger.ErrExists)
}

func TestChangeAuthorizedSigners(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(tx *ledger.Tx) error {
		return f.reg.ChangeAuthorizedSigners(tx, outsider, f.credential, []solana.PublicKey{outsider})
	})
	require.ErrorIs(t, err, ErrIncorrectAuthority)

	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		return f.reg.ChangeAuthorizedSigners(tx, authority, f.credential, []solana.PublicKey{signer, outsider})
	}))
	c, err := f.reg.Credential(f.store, f.credential)
	require.NoError(t, err)
	require.Equal(t, []solana.PublicKey{signer, outsider}, c.AuthorizedSigners)
}

func TestCreateSchema_Validation(t *testing.T) {
	f := newFixture(t)

	s, err := f.reg.Schema(f.store, f.schema)
	require.NoError(t, err)
	require.Equal(t, uint8(1), s.Version)
	names, err := s.FieldNameList()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "age", "name"}, names)

	err = f.run(t, func(tx *ledger.Tx) error {
		_, err := f.reg.CreateSchema(tx, authority, f.credential, "bad", "", []byte{26}, []string{"x"})
		return err
	})
	require.ErrorIs(t, err, ErrInvalidSchema)
	require.ErrorIs(t, err, layout.ErrUnknownType)

	err = f.run(t, func(tx *ledger.Tx) error {
		_, err := f.reg.CreateSchema(tx, authority, f.credential, "short", "", []byte{byte(layout.U8)}, nil)
		return err
	})
	require.ErrorIs(t, err, layout.ErrFieldCount)

	err = f.run(t, func(tx *ledger.Tx) error {
		_, err := f.reg.CreateSchema(tx, outsider, f.credential, "other", "", nil, nil)
		return err
	})
	require.ErrorIs(t, err, ErrIncorrectAuthority)
}

func TestChangeSchemaStatusAndDescription(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		if err := f.reg.ChangeSchemaStatus(tx, authority, f.credential, f.schema, true); err != nil {
			return err
		}
		return f.reg.ChangeSchemaDescription(tx, authority, f.credential, f.schema, "updated")
	}))
	s, err := f.reg.Schema(f.store, f.schema)
	require.NoError(t, err)
	require.True(t, s.IsPaused)
	require.Equal(t, "updated", s.Description)
}

func TestChangeSchemaVersion(t *testing.T) {
	f := newFixture(t)
	var v2 solana.PublicKey
	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		var err error
		v2, err = f.reg.ChangeSchemaVersion(tx, authority, f.credential, f.schema, []byte{byte(layout.Bool)}, []string{"ok"})
		return err
	}))
	require.NotEqual(t, f.schema, v2)

	s, err := f.reg.Schema(f.store, v2)
	require.NoError(t, err)
	require.Equal(t, uint8(2), s.Version)
	require.Equal(t, "profile", s.Name)
	require.Equal(t, "age and name", s.Description)
	require.False(t, s.IsPaused)

	old, err := f.reg.Schema(f.store, f.schema)
	require.NoError(t, err)
	require.Equal(t, uint8(1), old.Version, "previous version is untouched")
}

func TestCreateAttestation(t *testing.T) {
	f := newFixture(t)
	nonce := solana.PublicKey{0x99}
	data := profileData(t)

	var addr solana.PublicKey
	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		var err error
		addr, err = f.reg.CreateAttestation(tx, signer, f.credential, f.schema, nonce, data, 0)
		return err
	}))
	a, err := f.reg.Attestation(f.store, addr)
	require.NoError(t, err)
	require.Equal(t, data, a.Data)
	require.Equal(t, signer, a.Signer)
	require.False(t, a.IsTokenized())

	cases := []struct {
		name   string
		signer solana.PublicKey
		nonce  solana.PublicKey
		data   []byte
		expiry int64
		want   error
	}{
		{"unauthorized signer", outsider, solana.PublicKey{1}, data, 0, ErrSignerNotAuthorized},
		{"expired", signer, solana.PublicKey{2}, data, testNow.Unix() - 1, ErrExpired},
		{"bad data", signer, solana.PublicKey{3}, data[:len(data)-1], 0, ErrInvalidData},
		{"duplicate nonce", signer, nonce, data, 0, ErrInvalidAttestation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.run(t, func(tx *ledger.Tx) error {
				_, err := f.reg.CreateAttestation(tx, tc.signer, f.credential, f.schema, tc.nonce, tc.data, tc.expiry)
				return err
			})
			require.ErrorIs(t, err, tc.want)
		})
	}

	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		return f.reg.ChangeSchemaStatus(tx, authority, f.credential, f.schema, true)
	}))
	err = f.run(t, func(tx *ledger.Tx) error {
		_, err := f.reg.CreateAttestation(tx, signer, f.credential, f.schema, solana.PublicKey{4}, data, 0)
		return err
	})
	require.ErrorIs(t, err, ErrSchemaPaused)
}

func TestCloseAttestation(t *testing.T) {
	f := newFixture(t)
	data := profileData(t)
	var addr solana.PublicKey
	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		var err error
		addr, err = f.reg.CreateAttestation(tx, signer, f.credential, f.schema, solana.PublicKey{5}, data, 0)
		return err
	}))

	err := f.run(t, func(tx *ledger.Tx) error {
		return f.reg.CloseAttestation(tx, outsider, f.credential, addr)
	})
	require.ErrorIs(t, err, ErrSignerNotAuthorized)

	require.NoError(t, f.run(t, func(tx *ledger.Tx) error {
		return f.reg.CloseAttestation(tx, signer, f.credential, addr)
	}))
	ok, err := f.store.Has(addr)
	require.NoError(t, err)
	require.False(t, ok)

	evs := f.rec.Events()
	require.Len(t, evs, 1)
	require.Equal(t, &events.CloseEvent{Schema: f.schema, Data: data}, evs[0])
}

func TestLoaders_RejectMisplacedRecords(t *testing.T) {
	f := newFixture(t)
	raw, err := f.store.Get(f.schema)
	require.NoError(t, err)
	elsewhere := solana.PublicKey{0xee}
	require.NoError(t, f.store.Put(elsewhere, raw))

	_, err = f.reg.Schema(f.store, elsewhere)
	require.ErrorIs(t, err, ErrAddressMismatch)

	_, err = f.reg.Credential(f.store, f.schema)
	require.ErrorIs(t, err, ErrInvalidCredential)
	require.ErrorIs(t, err, state.ErrWrongDiscriminator)

	_, err = f.reg.Attestation(f.store, solana.PublicKey{0x42})
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
