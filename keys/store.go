package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// KeyStore keeps signer seeds on the local filesystem, one YAML document per
// identifier at <dir>/<identifier>.yaml, written with mode 0600:
//
//	signer: <base58 root signer>
//	seed: <hex root seed>
//	roles:
//	  <role>: <hex role seed>
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Identifier string
	Signer     solana.PublicKey
	Roles      []string
}

// keyFile is the on-disk form of one identifier. Signer is informational;
// the seed is authoritative.
type keyFile struct {
	Signer string            `yaml:"signer"`
	Seed   string            `yaml:"seed"`
	Roles  map[string]string `yaml:"roles,omitempty"`
}

const keyFileExt = ".yaml"

func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xdao", "sas", "keys"), nil
}

// OpenKeyStore opens the store at directory, or at DefaultDirectory when it is
// empty. Nothing is created until a key is written.
func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory != "" {
		return &KeyStore{Directory: directory}, nil
	}
	dir, err := DefaultDirectory()
	if err != nil {
		return nil, err
	}
	return &KeyStore{Directory: dir}, nil
}

func isNameChar(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func checkName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if i := strings.IndexFunc(name, func(c rune) bool { return !isNameChar(c) }); i >= 0 {
		return fmt.Errorf("invalid character %q in %s", name[i], kind)
	}
	return nil
}

func CheckKeyName(identifier string) error { return checkName("identifier", identifier) }

func CheckRole(role string) error { return checkName("role", role) }

// ParseSeedHex decodes a 32-byte seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(seedHex), "0x"))
	if err != nil {
		return nil, err
	}
	if len(seed) != 32 {
		return nil, fmt.Errorf("expected seed length of 32 bytes, got %d", len(seed))
	}
	return seed, nil
}

func (ks *KeyStore) path(identifier string) string {
	return filepath.Join(ks.Directory, identifier+keyFileExt)
}

func (ks *KeyStore) load(identifier string) (*keyFile, error) {
	if err := CheckKeyName(identifier); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(ks.path(identifier))
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := yaml.Unmarshal(b, &kf); err != nil {
		return nil, fmt.Errorf("keys: %s: %w", identifier, err)
	}
	return &kf, nil
}

// save writes kf atomically. Without overwrite an existing file is an error.
func (ks *KeyStore) save(identifier string, kf *keyFile, overwrite bool) error {
	b, err := yaml.Marshal(kf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ks.Directory, 0o700); err != nil {
		return err
	}
	path := ks.path(identifier)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("keys: %s: %w", identifier, os.ErrExist)
		}
	}
	tmp, err := os.CreateTemp(ks.Directory, "."+identifier+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// InitRoot stores seed as the root seed of identifier and returns its signer.
// Existing roles are dropped when overwriting.
func (ks *KeyStore) InitRoot(identifier string, seed []byte, overwrite bool) (solana.PublicKey, error) {
	if err := CheckKeyName(identifier); err != nil {
		return solana.PublicKey{}, err
	}
	priv, err := SignerFromSeed(seed)
	if err != nil {
		return solana.PublicKey{}, err
	}
	kf := &keyFile{Signer: priv.PublicKey().String(), Seed: hex.EncodeToString(seed)}
	if err := ks.save(identifier, kf, overwrite); err != nil {
		return solana.PublicKey{}, err
	}
	return priv.PublicKey(), nil
}

// DeriveRole derives and stores the role seed of identifier and returns its
// signer.
func (ks *KeyStore) DeriveRole(identifier, role string, overwrite bool) (solana.PublicKey, error) {
	if err := CheckRole(role); err != nil {
		return solana.PublicKey{}, err
	}
	kf, err := ks.load(identifier)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, exists := kf.Roles[role]; exists && !overwrite {
		return solana.PublicKey{}, fmt.Errorf("keys: role %s of %s: %w", role, identifier, os.ErrExist)
	}
	rootSeed, err := ParseSeedHex(kf.Seed)
	if err != nil {
		return solana.PublicKey{}, err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return solana.PublicKey{}, err
	}
	priv, err := SignerFromSeed(roleSeed)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if kf.Roles == nil {
		kf.Roles = map[string]string{}
	}
	kf.Roles[role] = hex.EncodeToString(roleSeed)
	if err := ks.save(identifier, kf, true); err != nil {
		return solana.PublicKey{}, err
	}
	return priv.PublicKey(), nil
}

// Signer loads the signer key of identifier, or of one of its roles when role
// is non-empty.
func (ks *KeyStore) Signer(identifier, role string) (solana.PrivateKey, error) {
	kf, err := ks.load(identifier)
	if err != nil {
		return nil, err
	}
	seedHex := kf.Seed
	if role != "" {
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		var ok bool
		if seedHex, ok = kf.Roles[role]; !ok {
			return nil, fmt.Errorf("keys: %s has no role %q", identifier, role)
		}
	}
	seed, err := ParseSeedHex(seedHex)
	if err != nil {
		return nil, err
	}
	return SignerFromSeed(seed)
}

// List returns the stored identifiers with their root signer and roles,
// sorted by identifier. A missing directory is an empty store.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	dirents, err := os.ReadDir(ks.Directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []KeyEntry
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, keyFileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		e := KeyEntry{Identifier: strings.TrimSuffix(name, keyFileExt)}
		if priv, err := ks.Signer(e.Identifier, ""); err == nil {
			e.Signer = priv.PublicKey()
		}
		if kf, err := ks.load(e.Identifier); err == nil {
			for role := range kf.Roles {
				e.Roles = append(e.Roles, role)
			}
			sort.Strings(e.Roles)
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}
