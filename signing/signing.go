// Package signing builds the canonical mint messages and produces and
// recovers EIP-191 signatures over them.
package signing

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SignatureLength is the size of an [R || S || V] signature.
const SignatureLength = crypto.SignatureLength

var (
	ErrMalformedSignature = errors.New("signing: malformed signature")
	ErrMissingKey         = errors.New("signing: private key is required")
)

var (
	mintArguments = abi.Arguments{
		{Type: mustType("address")},
		{Type: mustType("uint256")},
		{Type: mustType("uint256")},
	}
	mintWithURIArguments = abi.Arguments{
		{Type: mustType("address")},
		{Type: mustType("uint256")},
		{Type: mustType("uint256")},
		{Type: mustType("string")},
	}
	uriArguments = abi.Arguments{
		{Type: mustType("string")},
	}
)

func mustType(name string) abi.Type {
	typ, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("signing: abi type %s: %v", name, err))
	}
	return typ
}

// MintMessage is keccak256(abi.encode(to, id, amount)).
func MintMessage(to common.Address, id uint64, amount *uint256.Int) (common.Hash, error) {
	packed, err := mintArguments.Pack(to, new(big.Int).SetUint64(id), toBig(amount))
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing: encode mint message: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// MintMessageWithURI is keccak256(abi.encode(to, id, amount, uri)). It never
// collides with MintMessage for the same leading arguments.
func MintMessageWithURI(to common.Address, id uint64, amount *uint256.Int, uri string) (common.Hash, error) {
	packed, err := mintWithURIArguments.Pack(to, new(big.Int).SetUint64(id), toBig(amount), uri)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing: encode mint message: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// URIFingerprint is keccak256(abi.encode(uri)).
func URIFingerprint(uri string) common.Hash {
	packed, err := uriArguments.Pack(uri)
	if err != nil {
		return crypto.Keccak256Hash([]byte(uri))
	}
	return crypto.Keccak256Hash(packed)
}

// Digest is the EIP-191 personal message hash of a 32-byte message.
func Digest(message common.Hash) []byte {
	return accounts.TextHash(message.Bytes())
}

// Sign signs the EIP-191 digest of message. V is returned as 27 or 28.
func Sign(message common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrMissingKey
	}
	signature, err := crypto.Sign(Digest(message), key)
	if err != nil {
		return nil, fmt.Errorf("signing: sign message: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}

// Recover returns the address whose key produced signature over message.
// V may be encoded as 0/1 or 27/28. S must be in the lower half of the curve
// order, so a signature has exactly one accepted encoding.
func Recover(message common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrMalformedSignature, len(signature))
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, signature)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	if normalized[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrMalformedSignature, signature[crypto.RecoveryIDOffset])
	}
	r := new(big.Int).SetBytes(normalized[:32])
	sValue := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[crypto.RecoveryIDOffset], r, sValue, true) {
		return common.Address{}, fmt.Errorf("%w: signature values out of range", ErrMalformedSignature)
	}
	publicKey, err := crypto.SigToPub(Digest(message), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// KeySigner holds a secp256k1 key and signs mint requests with it.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) (*KeySigner, error) {
	if key == nil {
		return nil, ErrMissingKey
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func GenerateKeySigner() (*KeySigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return NewKeySigner(key)
}

func KeySignerFromHex(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("signing: decode key: %w", err)
	}
	return NewKeySigner(key)
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignMessage(message common.Hash) ([]byte, error) {
	return Sign(message, s.key)
}

// SignMint signs the URI-bearing message when uri is non-empty and the
// URI-less message otherwise.
func (s *KeySigner) SignMint(to common.Address, id uint64, amount *uint256.Int, uri string) ([]byte, error) {
	var (
		message common.Hash
		err     error
	)
	if uri != "" {
		message, err = MintMessageWithURI(to, id, amount, uri)
	} else {
		message, err = MintMessage(to, id, amount)
	}
	if err != nil {
		return nil, err
	}
	return s.SignMessage(message)
}

func toBig(amount *uint256.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return amount.ToBig()
}
