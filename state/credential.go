package state

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrSignerNotAuthorized is returned when a signer is not on a credential's
// authorized signer list.
var ErrSignerNotAuthorized = errors.New("state: signer not authorized")

// Credential is an issuer identity: an authority that manages the record and
// the signers allowed to issue attestations under it.
type Credential struct {
	Authority         solana.PublicKey
	Name              string
	AuthorizedSigners []solana.PublicKey
}

// CredentialMinSize is the encoded size of a credential with an empty name and
// no signers.
const CredentialMinSize = 1 + 32 + 4 + 4

func (c *Credential) size() int {
	return 1 + 32 + 4 + len(c.Name) + 4 + 32*len(c.AuthorizedSigners)
}

func (c *Credential) Encode() ([]byte, error) {
	return encode(CredentialDiscriminator, *c)
}

func DecodeCredential(data []byte) (*Credential, error) {
	var c Credential
	if err := decode(CredentialDiscriminator, data, CredentialMinSize, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// IsAuthorizedSigner reports whether signer is on the authorized signer list.
func (c *Credential) IsAuthorizedSigner(signer solana.PublicKey) bool {
	for _, s := range c.AuthorizedSigners {
		if s == signer {
			return true
		}
	}
	return false
}

// ValidateAuthorizedSigner returns ErrSignerNotAuthorized unless signer may
// issue attestations under c.
func (c *Credential) ValidateAuthorizedSigner(signer solana.PublicKey) error {
	if !c.IsAuthorizedSigner(signer) {
		return ErrSignerNotAuthorized
	}
	return nil
}
