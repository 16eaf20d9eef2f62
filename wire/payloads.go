package wire

import (
	"github.com/gagliardetto/solana-go"

	"xdao.co/sas/accumulator"
)

// CreatePayload is the payload of a compressed attestation create.
//
//	proof(128) || nonce(32) || expiry(i64) || address_root_index(u16) || data_len(u32) || data
type CreatePayload struct {
	Proof            accumulator.CompressedProof
	Nonce            solana.PublicKey
	Expiry           int64
	AddressRootIndex uint16
	Data             []byte
}

func ParseCreate(b []byte) (*CreatePayload, error) {
	if len(b) < CreateMinSize {
		return nil, truncated("create payload", CreateMinSize, len(b))
	}
	r := newReader(b)
	p := &CreatePayload{}
	p.Proof = r.proof()
	p.Nonce = r.key()
	p.Expiry = r.i64()
	p.AddressRootIndex = r.u16()
	p.Data = r.data()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

func EncodeCreate(p *CreatePayload) ([]byte, error) {
	w := newWriter(CreateMinSize + len(p.Data))
	w.raw(p.Proof.Bytes())
	w.raw(p.Nonce[:])
	w.i64(p.Expiry)
	w.u16(p.AddressRootIndex)
	w.data(p.Data)
	return w.bytes()
}

// ClosePayload is the payload of a compressed attestation close. It carries
// every field needed to rebuild the committed record.
//
//	proof_present(u8) || [proof(128)] || root_index(u16) || leaf_index(u32) ||
//	address(32) || nonce(32) || schema(32) || signer(32) || expiry(i64) ||
//	data_len(u32) || data
//
// Any non-zero proof_present byte means a proof follows.
type ClosePayload struct {
	Proof     accumulator.ValidityProof
	RootIndex uint16
	LeafIndex uint32
	Address   [32]byte
	Nonce     solana.PublicKey
	Schema    solana.PublicKey
	Signer    solana.PublicKey
	Expiry    int64
	Data      []byte
}

func ParseClose(b []byte) (*ClosePayload, error) {
	if len(b) < CloseMinSize {
		return nil, truncated("close payload", CloseMinSize, len(b))
	}
	present := b[0] != 0
	if present && len(b) < CloseWithProofMinSize {
		return nil, truncated("close payload with proof", CloseWithProofMinSize, len(b))
	}
	r := newReader(b)
	p := &ClosePayload{}
	r.u8()
	if present {
		p.Proof = accumulator.Some(r.proof())
	}
	p.RootIndex = r.u16()
	p.LeafIndex = r.u32()
	r.fixed(p.Address[:])
	p.Nonce = r.key()
	p.Schema = r.key()
	p.Signer = r.key()
	p.Expiry = r.i64()
	p.Data = r.data()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

func EncodeClose(p *ClosePayload) ([]byte, error) {
	w := newWriter(CloseWithProofMinSize + len(p.Data))
	w.u8(boolByte(p.Proof.Present()))
	if p.Proof.Present() {
		w.raw(p.Proof.Proof.Bytes())
	}
	w.u16(p.RootIndex)
	w.u32(p.LeafIndex)
	w.raw(p.Address[:])
	w.raw(p.Nonce[:])
	w.raw(p.Schema[:])
	w.raw(p.Signer[:])
	w.i64(p.Expiry)
	w.data(p.Data)
	return w.bytes()
}

// BatchPayload is the payload of a compress-existing batch. The plain
// attestation addresses travel beside it.
//
//	proof(128) || close_accounts(u8) || address_root_index(u16) || num_records(u8)
type BatchPayload struct {
	Proof            accumulator.CompressedProof
	CloseAccounts    bool
	AddressRootIndex uint16
	NumRecords       uint8
}

// ParseBatch reads the fixed fields. Trailing bytes are ignored.
func ParseBatch(b []byte) (*BatchPayload, error) {
	if len(b) < BatchMinSize {
		return nil, truncated("batch payload", BatchMinSize, len(b))
	}
	r := newReader(b)
	p := &BatchPayload{}
	p.Proof = r.proof()
	p.CloseAccounts = r.u8() != 0
	p.AddressRootIndex = r.u16()
	p.NumRecords = r.u8()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

func EncodeBatch(p *BatchPayload) ([]byte, error) {
	w := newWriter(BatchMinSize)
	w.raw(p.Proof.Bytes())
	w.u8(boolByte(p.CloseAccounts))
	w.u16(p.AddressRootIndex)
	w.u8(p.NumRecords)
	return w.bytes()
}
