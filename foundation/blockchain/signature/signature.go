// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrInvalidKey is returned when key material has the wrong shape.
var ErrInvalidKey = errors.New("invalid key")

// =============================================================================

// Hash returns the SHA-256 digest of the data.
func Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// HashHex returns the SHA-256 digest of the data as lowercase hex.
func HashHex(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// =============================================================================

// GenerateKey produces a new random key pair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign signs the SHA-256 digest of the message with the private key.
func Sign(privateKey ed25519.PrivateKey, message []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKey, len(privateKey))
	}

	return ed25519.Sign(privateKey, Hash(message)), nil
}

// Verify reports whether the signature was produced over the SHA-256 digest
// of the message by the owner of the public key. Malformed input of any kind
// yields false.
func Verify(sig []byte, message []byte, publicKey []byte) (ok bool) {
	if len(sig) != ed25519.SignatureSize || len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	return ed25519.Verify(ed25519.PublicKey(publicKey), Hash(message), sig)
}

// VerifyHex is Verify over hex encoded signature and public key.
func VerifyHex(sigHex string, message []byte, publicKeyHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}

	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}

	return Verify(sig, message, pub)
}

// =============================================================================

// PublicKeyHex returns the hex form of the public key for the private key.
func PublicKeyHex(privateKey ed25519.PrivateKey) string {
	pub := privateKey.Public().(ed25519.PublicKey)
	return hex.EncodeToString(pub)
}

// PrivateKeyFromSeedHex rebuilds a private key from its hex encoded seed.
func PrivateKeyFromSeedHex(seedHex string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed is %d bytes", ErrInvalidKey, len(seed))
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// keyFile is the on disk form of a key pair.
type keyFile struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// SaveKey writes the key pair to the named file.
func SaveKey(path string, privateKey ed25519.PrivateKey) error {
	kf := keyFile{
		PrivateKey: hex.EncodeToString(privateKey.Seed()),
		PublicKey:  PublicKeyHex(privateKey),
	}

	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// LoadKey reads a key pair written by SaveKey.
func LoadKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("decoding key file %s: %w", path, err)
	}

	privateKey, err := PrivateKeyFromSeedHex(kf.PrivateKey)
	if err != nil {
		return nil, err
	}

	if kf.PublicKey != "" && kf.PublicKey != PublicKeyHex(privateKey) {
		return nil, fmt.Errorf("%w: public key does not match seed in %s", ErrInvalidKey, path)
	}

	return privateKey, nil
}
