package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"xdao.co/sas/layout"
)

// Schema declares the layout of attestation data under a credential. Each
// version lives at its own address.
//
// FieldNames holds the borsh encoding of the field name list (u32 count
// followed by u32-prefixed strings); it is cosmetic and never consulted by
// the validator.
type Schema struct {
	Credential  solana.PublicKey
	Name        string
	Description string
	Layout      []byte
	FieldNames  []byte
	IsPaused    bool
	Version     uint8
}

// SchemaMinSize is the encoded size of a schema with all variable fields empty.
const SchemaMinSize = 1 + 32 + 4 + 4 + 4 + 4 + 1 + 1

func (s *Schema) size() int {
	return 1 + 32 + 4 + len(s.Name) + 4 + len(s.Description) + 4 + len(s.Layout) + 4 + len(s.FieldNames) + 1 + 1
}

func (s *Schema) Encode() ([]byte, error) {
	return encode(SchemaDiscriminator, *s)
}

func DecodeSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := decode(SchemaDiscriminator, data, SchemaMinSize, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeFieldNames produces the FieldNames payload for names.
func EncodeFieldNames(names []string) ([]byte, error) {
	if names == nil {
		names = []string{}
	}
	raw, err := borsh.Serialize(names)
	if err != nil {
		return nil, fmt.Errorf("state: encode field names: %w", err)
	}
	return raw, nil
}

// FieldNameList decodes FieldNames.
func (s *Schema) FieldNameList() ([]string, error) {
	var names []string
	if len(s.FieldNames) == 0 {
		return names, nil
	}
	if err := borsh.Deserialize(&names, s.FieldNames); err != nil {
		return nil, fmt.Errorf("%w: field names: %v", ErrMalformed, err)
	}
	return names, nil
}

// Validate checks the declaration-time invariants: every layout tag is known
// and there is one field name per tag.
func (s *Schema) Validate() error {
	names, err := s.FieldNameList()
	if err != nil {
		return err
	}
	return layout.ValidateLayout(s.Layout, len(names))
}

// ValidateData checks attestation data against the schema's current layout.
func (s *Schema) ValidateData(data []byte) error {
	return layout.Validate(data, s.Layout)
}
