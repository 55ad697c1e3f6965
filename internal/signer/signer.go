package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoSigning = "blackjack/signing/v1"

// Ledger constants: ed25519 key scheme flag and the digest salt prepended to
// transaction bytes before hashing.
const (
	schemeFlagEd25519 = 0x00
	digestPrefix      = "TransactionData::"
)

var errInvalidMnemonic = errors.New("invalid mnemonic phrase")

// Signer holds the single in-memory signing key for the active account.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Signature is the wire form attached to a submitted transaction.
type Signature struct {
	Scheme    string `json:"scheme"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

// FromMnemonic derives the signing key from a bip39 mnemonic.
func FromMnemonic(mnemonic string) (*Signer, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	signingSeed, err := hkdfExpand(seed, hkdfInfoSigning, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(signingSeed)
	return &Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// Generate creates a fresh random signer and returns its mnemonic so the
// caller can persist it.
func Generate() (*Signer, string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", err
	}
	s, err := FromMnemonic(mnemonic)
	if err != nil {
		return nil, "", err
	}
	return s, mnemonic, nil
}

// Address is the account identity on the ledger: the blake2b-256 hash of the
// scheme-flagged public key, hex encoded.
func (s *Signer) Address() string {
	payload := make([]byte, 0, 1+len(s.pub))
	payload = append(payload, schemeFlagEd25519)
	payload = append(payload, s.pub...)
	sum := blake2b.Sum256(payload)
	return "0x" + hex.EncodeToString(sum[:])
}

// SignTransaction signs the blake2b digest of the encoded transaction.
func (s *Signer) SignTransaction(txBytes []byte) Signature {
	sum := blake2b.Sum256(txBytes)
	sig := ed25519.Sign(s.priv, sum[:])
	return Signature{
		Scheme:    "ED25519",
		Signature: base58.Encode(sig),
		PublicKey: base58.Encode(s.pub),
	}
}

// ComputeDigest returns the base58 transaction digest the ledger will assign
// to txBytes. Useful for tests and for pre-correlating log lines.
func ComputeDigest(txBytes []byte) string {
	payload := make([]byte, 0, len(digestPrefix)+len(txBytes))
	payload = append(payload, digestPrefix...)
	payload = append(payload, txBytes...)
	sum := blake2b.Sum256(payload)
	return base58.Encode(sum[:])
}

// RandomnessHex returns n fresh random bytes hex encoded, used as the
// client-supplied entropy when creating a game.
func RandomnessHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
