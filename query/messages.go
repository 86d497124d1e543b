package query

import (
	"github.com/goliatone/go-carbon/core"
)

const (
	TypeGetToken              = "carbon.query.token.get"
	TypeBalanceOf             = "carbon.query.balance.single"
	TypeBalanceOfBatch        = "carbon.query.balance.batch"
	TypeTokenURI              = "carbon.query.token.uri"
	TypeReceiptDataCount      = "carbon.query.receipt.data_count"
	TypeReceiptData           = "carbon.query.receipt.data"
	TypeCurrentReceiptTokenID = "carbon.query.vault.current_receipt_id"
	TypeIsSupportedSource     = "carbon.query.vault.supported_source"
	TypeHasRole               = "carbon.query.access.has_role"
	TypeGetDeposit            = "carbon.query.deposit.get"
	TypeListDeposits          = "carbon.query.deposit.list"
)

type GetTokenMessage struct {
	ID core.TokenID
}

func (GetTokenMessage) Type() string { return TypeGetToken }

func (GetTokenMessage) Validate() error { return nil }

type BalanceOfMessage struct {
	Owner core.Address
	ID    core.TokenID
}

func (BalanceOfMessage) Type() string { return TypeBalanceOf }

func (m BalanceOfMessage) Validate() error {
	if m.Owner == core.ZeroAddress {
		return queryValidationError("owner", "must not be the zero address")
	}
	return nil
}

type BalanceOfBatchMessage struct {
	Owners []core.Address
	IDs    []core.TokenID
}

func (BalanceOfBatchMessage) Type() string { return TypeBalanceOfBatch }

func (m BalanceOfBatchMessage) Validate() error {
	if len(m.Owners) != len(m.IDs) {
		return queryValidationError("ids", "must match owners in length")
	}
	return nil
}

type TokenURIMessage struct {
	ID core.TokenID
}

func (TokenURIMessage) Type() string { return TypeTokenURI }

func (TokenURIMessage) Validate() error { return nil }

type ReceiptDataCountMessage struct {
	ReceiptID uint64
}

func (ReceiptDataCountMessage) Type() string { return TypeReceiptDataCount }

func (ReceiptDataCountMessage) Validate() error { return nil }

type ReceiptDataMessage struct {
	ReceiptID uint64
	Index     int
}

func (ReceiptDataMessage) Type() string { return TypeReceiptData }

func (m ReceiptDataMessage) Validate() error {
	if m.Index < 0 {
		return queryValidationError("index", "must be >= 0")
	}
	return nil
}

type CurrentReceiptTokenIDMessage struct{}

func (CurrentReceiptTokenIDMessage) Type() string { return TypeCurrentReceiptTokenID }

func (CurrentReceiptTokenIDMessage) Validate() error { return nil }

// CurrentReceiptTokenID is the most recently issued receipt id. Issued is
// false until the vault has issued its first receipt.
type CurrentReceiptTokenID struct {
	ID     uint64
	Issued bool
}

type IsSupportedSourceMessage struct {
	Source core.Address
}

func (IsSupportedSourceMessage) Type() string { return TypeIsSupportedSource }

func (IsSupportedSourceMessage) Validate() error { return nil }

type HasRoleMessage struct {
	Contract core.Address
	Role     core.Role
	Account  core.Address
}

func (HasRoleMessage) Type() string { return TypeHasRole }

func (m HasRoleMessage) Validate() error {
	switch m.Role {
	case core.RoleOwner, core.RoleDefaultAdmin, core.RoleMinter:
	default:
		return queryValidationError("role", "is not a known role")
	}
	if m.Contract == core.ZeroAddress {
		return queryValidationError("contract", "must not be the zero address")
	}
	return nil
}

type GetDepositMessage struct {
	Vault     core.Address
	ReceiptID uint64
}

func (GetDepositMessage) Type() string { return TypeGetDeposit }

func (m GetDepositMessage) Validate() error {
	if m.Vault == core.ZeroAddress {
		return queryValidationError("vault", "must not be the zero address")
	}
	return nil
}

type ListDepositsMessage struct {
	Filter core.DepositFilter
}

func (ListDepositsMessage) Type() string { return TypeListDeposits }

func (m ListDepositsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "must be >= 0")
	}
	return nil
}
