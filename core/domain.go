package core

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Address identifies an account or a deployed contract.
type Address = common.Address

// ZeroAddress is never a valid signer, owner or recipient.
var ZeroAddress = Address{}

// TokenID identifies a carbon credit class on the ledger or a receipt id on a
// provenance receipt ledger.
type TokenID = uint64

type Role string

const (
	RoleOwner        Role = "OWNER"
	RoleDefaultAdmin Role = "DEFAULT_ADMIN"
	RoleMinter       Role = "MINTER"
)

type ReceiptKind string

const (
	ReceiptKindPooled     ReceiptKind = "pooled"
	ReceiptKindProvenance ReceiptKind = "provenance"
)

// AcceptanceToken is the fixed value a hook returns to signal it took
// ownership of a transfer or acknowledged a deposit.
type AcceptanceToken [4]byte

var (
	ReceivedAcceptance      = selector("onERC1155Received(address,address,uint256,uint256,bytes)")
	BatchReceivedAcceptance = selector("onERC1155BatchReceived(address,address,uint256[],uint256[],bytes)")
	AcknowledgeAcceptance   = selector("onCarbonDepositAcknowledged(address,address,uint256[],uint256[],uint256[])")
)

func selector(signature string) AcceptanceToken {
	var token AcceptanceToken
	copy(token[:], crypto.Keccak256([]byte(signature))[:4])
	return token
}

type TokenRecord struct {
	ID          TokenID
	URI         string
	TotalSupply *uint256.Int
	MaxSupply   *uint256.Int
}

type CreateRequest struct {
	To        Address
	ID        TokenID
	Amount    *uint256.Int
	MaxSupply *uint256.Int
	URI       string
}

// Provenance describes the deposit a receipt is issued for.
type Provenance struct {
	ReceiptID  uint64
	OriginalID TokenID
	Amount     *uint256.Int
	Source     Address
}

// ReceiptHandle reports what a receipt backend credited for one issuance.
type ReceiptHandle struct {
	Backend   Address
	ReceiptID uint64
	Amount    *uint256.Int
}

type ReceiptRecord struct {
	ReceiptID      uint64
	OriginalID     TokenID
	Amount         *uint256.Int
	IssuedAtHeight uint64
}

type ReceiveInput struct {
	Operator Address
	From     Address
	ID       TokenID
	Amount   *uint256.Int
	Data     []byte
}

type BatchReceiveInput struct {
	Operator Address
	From     Address
	IDs      []TokenID
	Amounts  []*uint256.Int
	Data     []byte
}

// DepositQuery is sent to a source ledger before the vault issues receipts.
type DepositQuery struct {
	Vault    Address
	Operator Address
	From     Address
	IDs      []TokenID
	Amounts  []*uint256.Int
	Data     []byte
}

// DepositAck is sent to a source ledger after receipts were issued.
type DepositAck struct {
	Vault      Address
	Operator   Address
	From       Address
	IDs        []TokenID
	Amounts    []*uint256.Int
	ReceiptIDs []uint64
	Receipts   []ReceiptHandle
}

func amountOrZero(amount *uint256.Int) *uint256.Int {
	if amount == nil {
		return new(uint256.Int)
	}
	return amount.Clone()
}

func cloneAmounts(amounts []*uint256.Int) []*uint256.Int {
	if amounts == nil {
		return nil
	}
	out := make([]*uint256.Int, len(amounts))
	for i, amount := range amounts {
		out[i] = amountOrZero(amount)
	}
	return out
}

func sortAddresses(addresses []Address) []Address {
	sort.Slice(addresses, func(i, j int) bool {
		return bytes.Compare(addresses[i][:], addresses[j][:]) < 0
	})
	return addresses
}
