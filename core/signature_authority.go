package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goliatone/go-carbon/signing"
	"github.com/holiman/uint256"
)

// MintRequest is the payload an issuance signature covers. The URI-bearing
// message schema is used when URI is non-empty.
type MintRequest struct {
	To     Address
	ID     TokenID
	Amount *uint256.Int
	URI    string
}

func (r MintRequest) Message() (common.Hash, error) {
	if r.URI != "" {
		return signing.MintMessageWithURI(r.To, r.ID, r.Amount, r.URI)
	}
	return signing.MintMessage(r.To, r.ID, r.Amount)
}

// SignatureAuthority holds the single address whose signatures authorize
// issuance on a ledger.
type SignatureAuthority struct {
	rt       *Runtime
	contract Address
	acl      *AccessControl
	signer   Address
}

func NewSignatureAuthority(rt *Runtime, contract Address, signer Address, acl *AccessControl) (*SignatureAuthority, error) {
	if signer == ZeroAddress {
		return nil, ErrSignerMustNotBeZeroAddress
	}
	return &SignatureAuthority{rt: rt, contract: contract, acl: acl, signer: signer}, nil
}

func (a *SignatureAuthority) Signer(ctx context.Context) Address {
	return view(ctx, a.rt, func() Address { return a.signer })
}

// Verify reports whether signature over message was produced by the current
// signer. Malformed signatures do not verify.
func (a *SignatureAuthority) Verify(ctx context.Context, message common.Hash, signature []byte) bool {
	return view(ctx, a.rt, func() bool { return a.verify(message, signature) })
}

func (a *SignatureAuthority) VerifyRequest(ctx context.Context, req MintRequest, signature []byte) error {
	return view(ctx, a.rt, func() error { return a.verifyRequest(req, signature) })
}

// Rotate replaces the signer. Rotating to the current signer is a no-op.
func (a *SignatureAuthority) Rotate(ctx context.Context, caller Address, newSigner Address) error {
	fields := map[string]any{
		"ledger":     a.contract.Hex(),
		"caller":     caller.Hex(),
		"new_signer": newSigner.Hex(),
	}
	return a.rt.Atomic(ctx, "ledger.rotate_signer", fields, func(ctx context.Context, tx *Tx) error {
		if err := a.acl.requireOwner(caller); err != nil {
			return err
		}
		if newSigner == ZeroAddress {
			return ErrSignerMustNotBeZeroAddress
		}
		previous := a.signer
		if previous == newSigner {
			return nil
		}
		a.signer = newSigner
		tx.OnRollback(func() { a.signer = previous })
		tx.Emit(SignerChanged{Contract: a.contract, Old: previous, New: newSigner})
		return nil
	})
}

func (a *SignatureAuthority) verify(message common.Hash, signature []byte) bool {
	recovered, err := signing.Recover(message, signature)
	if err != nil {
		return false
	}
	return recovered == a.signer
}

func (a *SignatureAuthority) verifyRequest(req MintRequest, signature []byte) error {
	message, err := req.Message()
	if err != nil {
		return invalidArguments("encode mint message: %v", err)
	}
	if !a.verify(message, signature) {
		return ErrInvalidSignature
	}
	return nil
}
