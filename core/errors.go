package core

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidSignature                   = errors.New("carbon: invalid signature")
	ErrSignerMustNotBeZeroAddress         = errors.New("carbon: signer must not be zero address")
	ErrMinterRoleRequired                 = errors.New("carbon: minter role required")
	ErrAdminRoleRequired                  = errors.New("carbon: admin role required")
	ErrNotOwner                           = errors.New("carbon: caller is not the owner")
	ErrTokenAlreadyExists                 = errors.New("carbon: token already exists")
	ErrTokenNotExists                     = errors.New("carbon: token does not exist")
	ErrInitialSupplyGreaterThanMaxSupply  = errors.New("carbon: initial supply greater than max supply")
	ErrMintWouldViolateMaxTokenSupply     = errors.New("carbon: mint would violate max token supply")
	ErrIndexOutOfBounds                   = errors.New("carbon: index out of bounds")
	ErrTransferIntoVaultIsNotAccepted     = errors.New("carbon: transfer into vault is not accepted")
	ErrTransferToNotCompatibleImplementer = errors.New("carbon: transfer to not compatible implementer")
	ErrAcknowledgeFailRejectedTokens      = errors.New("carbon: acknowledge failed, rejected tokens")
	ErrTokenAddressHasNotChanged          = errors.New("carbon: token address has not changed")
	ErrReentrantCall                      = errors.New("carbon: reentrant call")
	ErrInvalidArguments                   = errors.New("carbon: invalid arguments")
	ErrInsufficientBalance                = errors.New("carbon: insufficient balance")
	ErrNotApproved                        = errors.New("carbon: caller is not owner nor approved")
	ErrReceiverRejectedTokens             = errors.New("carbon: receiver rejected tokens")
	ErrZeroAddress                        = errors.New("carbon: zero address")
	ErrArithmeticOverflow                 = errors.New("carbon: arithmetic overflow")
	ErrUnknownContract                    = errors.New("carbon: unknown contract")
	ErrDepositNotFound                    = errors.New("carbon: deposit not found")
)

type MinterRoleRequiredError struct {
	Caller Address
}

func (e *MinterRoleRequiredError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMinterRoleRequired, e.Caller.Hex())
}

func (e *MinterRoleRequiredError) Unwrap() error { return ErrMinterRoleRequired }

type AdminRoleRequiredError struct {
	Caller Address
}

func (e *AdminRoleRequiredError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAdminRoleRequired, e.Caller.Hex())
}

func (e *AdminRoleRequiredError) Unwrap() error { return ErrAdminRoleRequired }

type NotOwnerError struct {
	Caller Address
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotOwner, e.Caller.Hex())
}

func (e *NotOwnerError) Unwrap() error { return ErrNotOwner }

type TokenAlreadyExistsError struct {
	ID TokenID
}

func (e *TokenAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: %d", ErrTokenAlreadyExists, e.ID)
}

func (e *TokenAlreadyExistsError) Unwrap() error { return ErrTokenAlreadyExists }

type TokenNotExistsError struct {
	ID TokenID
}

func (e *TokenNotExistsError) Error() string {
	return fmt.Sprintf("%s: %d", ErrTokenNotExists, e.ID)
}

func (e *TokenNotExistsError) Unwrap() error { return ErrTokenNotExists }

type InitialSupplyGreaterThanMaxSupplyError struct {
	ID        TokenID
	Amount    *uint256.Int
	MaxSupply *uint256.Int
}

func (e *InitialSupplyGreaterThanMaxSupplyError) Error() string {
	return fmt.Sprintf("%s: id %d amount %s max %s", ErrInitialSupplyGreaterThanMaxSupply, e.ID, decimal(e.Amount), decimal(e.MaxSupply))
}

func (e *InitialSupplyGreaterThanMaxSupplyError) Unwrap() error {
	return ErrInitialSupplyGreaterThanMaxSupply
}

// MintWouldViolateMaxTokenSupplyError reports the supply a mint would have
// produced. WouldBe is unbounded so overflowing mints are reported exactly.
type MintWouldViolateMaxTokenSupplyError struct {
	ID      TokenID
	WouldBe *big.Int
	Cap     *uint256.Int
}

func (e *MintWouldViolateMaxTokenSupplyError) Error() string {
	wouldBe := "0"
	if e.WouldBe != nil {
		wouldBe = e.WouldBe.String()
	}
	return fmt.Sprintf("%s: id %d would be %s cap %s", ErrMintWouldViolateMaxTokenSupply, e.ID, wouldBe, decimal(e.Cap))
}

func (e *MintWouldViolateMaxTokenSupplyError) Unwrap() error {
	return ErrMintWouldViolateMaxTokenSupply
}

type IndexOutOfBoundsError struct {
	ReceiptID uint64
	Index     int
	Count     int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("%s: receipt %d index %d count %d", ErrIndexOutOfBounds, e.ReceiptID, e.Index, e.Count)
}

func (e *IndexOutOfBoundsError) Unwrap() error { return ErrIndexOutOfBounds }

type TransferIntoVaultIsNotAcceptedError struct {
	Source Address
}

func (e *TransferIntoVaultIsNotAcceptedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTransferIntoVaultIsNotAccepted, e.Source.Hex())
}

func (e *TransferIntoVaultIsNotAcceptedError) Unwrap() error {
	return ErrTransferIntoVaultIsNotAccepted
}

type TransferToNotCompatibleImplementerError struct {
	Implementer Address
}

func (e *TransferToNotCompatibleImplementerError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTransferToNotCompatibleImplementer, e.Implementer.Hex())
}

func (e *TransferToNotCompatibleImplementerError) Unwrap() error {
	return ErrTransferToNotCompatibleImplementer
}

type AcknowledgeFailRejectedTokensError struct {
	Source Address
}

func (e *AcknowledgeFailRejectedTokensError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAcknowledgeFailRejectedTokens, e.Source.Hex())
}

func (e *AcknowledgeFailRejectedTokensError) Unwrap() error {
	return ErrAcknowledgeFailRejectedTokens
}

type InsufficientBalanceError struct {
	Owner   Address
	ID      TokenID
	Balance *uint256.Int
	Needed  *uint256.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: %s holds %s of %d, needs %s", ErrInsufficientBalance, e.Owner.Hex(), decimal(e.Balance), e.ID, decimal(e.Needed))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type NotApprovedError struct {
	Owner    Address
	Operator Address
}

func (e *NotApprovedError) Error() string {
	return fmt.Sprintf("%s: operator %s owner %s", ErrNotApproved, e.Operator.Hex(), e.Owner.Hex())
}

func (e *NotApprovedError) Unwrap() error { return ErrNotApproved }

type ReceiverRejectedTokensError struct {
	Receiver Address
}

func (e *ReceiverRejectedTokensError) Error() string {
	return fmt.Sprintf("%s: %s", ErrReceiverRejectedTokens, e.Receiver.Hex())
}

func (e *ReceiverRejectedTokensError) Unwrap() error { return ErrReceiverRejectedTokens }

func decimal(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}

func invalidArguments(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

const (
	CarbonErrorInvalidSignature         = "CARBON_INVALID_SIGNATURE"
	CarbonErrorSignerZeroAddress        = "CARBON_SIGNER_ZERO_ADDRESS"
	CarbonErrorMinterRoleRequired       = "CARBON_MINTER_ROLE_REQUIRED"
	CarbonErrorAdminRoleRequired        = "CARBON_ADMIN_ROLE_REQUIRED"
	CarbonErrorNotOwner                 = "CARBON_NOT_OWNER"
	CarbonErrorTokenAlreadyExists       = "CARBON_TOKEN_ALREADY_EXISTS"
	CarbonErrorTokenNotExists           = "CARBON_TOKEN_NOT_EXISTS"
	CarbonErrorInitialSupplyExceedsMax  = "CARBON_INITIAL_SUPPLY_EXCEEDS_MAX"
	CarbonErrorMaxSupplyViolation       = "CARBON_MAX_SUPPLY_VIOLATION"
	CarbonErrorIndexOutOfBounds         = "CARBON_INDEX_OUT_OF_BOUNDS"
	CarbonErrorDepositNotAccepted       = "CARBON_DEPOSIT_NOT_ACCEPTED"
	CarbonErrorNotCompatibleImplementer = "CARBON_NOT_COMPATIBLE_IMPLEMENTER"
	CarbonErrorAcknowledgeRejected      = "CARBON_ACKNOWLEDGE_REJECTED"
	CarbonErrorReceiptBackendUnchanged  = "CARBON_RECEIPT_BACKEND_UNCHANGED"
	CarbonErrorReentrantCall            = "CARBON_REENTRANT_CALL"
	CarbonErrorInvalidArguments         = "CARBON_INVALID_ARGUMENTS"
	CarbonErrorInsufficientBalance      = "CARBON_INSUFFICIENT_BALANCE"
	CarbonErrorNotApproved              = "CARBON_NOT_APPROVED"
	CarbonErrorReceiverRejected         = "CARBON_RECEIVER_REJECTED"
	CarbonErrorZeroAddress              = "CARBON_ZERO_ADDRESS"
	CarbonErrorArithmeticOverflow       = "CARBON_ARITHMETIC_OVERFLOW"
	CarbonErrorUnknownContract          = "CARBON_UNKNOWN_CONTRACT"
	CarbonErrorDepositNotFound          = "CARBON_DEPOSIT_NOT_FOUND"
	CarbonErrorInternal                 = "CARBON_INTERNAL_ERROR"
)

type errorClass struct {
	sentinel error
	category goerrors.Category
	textCode string
}

var errorClasses = []errorClass{
	{ErrInvalidSignature, goerrors.CategoryAuth, CarbonErrorInvalidSignature},
	{ErrSignerMustNotBeZeroAddress, goerrors.CategoryBadInput, CarbonErrorSignerZeroAddress},
	{ErrMinterRoleRequired, goerrors.CategoryAuthz, CarbonErrorMinterRoleRequired},
	{ErrAdminRoleRequired, goerrors.CategoryAuthz, CarbonErrorAdminRoleRequired},
	{ErrNotOwner, goerrors.CategoryAuthz, CarbonErrorNotOwner},
	{ErrNotApproved, goerrors.CategoryAuthz, CarbonErrorNotApproved},
	{ErrTokenAlreadyExists, goerrors.CategoryConflict, CarbonErrorTokenAlreadyExists},
	{ErrTokenNotExists, goerrors.CategoryNotFound, CarbonErrorTokenNotExists},
	{ErrIndexOutOfBounds, goerrors.CategoryNotFound, CarbonErrorIndexOutOfBounds},
	{ErrUnknownContract, goerrors.CategoryNotFound, CarbonErrorUnknownContract},
	{ErrDepositNotFound, goerrors.CategoryNotFound, CarbonErrorDepositNotFound},
	{ErrInitialSupplyGreaterThanMaxSupply, goerrors.CategoryBadInput, CarbonErrorInitialSupplyExceedsMax},
	{ErrMintWouldViolateMaxTokenSupply, goerrors.CategoryBadInput, CarbonErrorMaxSupplyViolation},
	{ErrInvalidArguments, goerrors.CategoryBadInput, CarbonErrorInvalidArguments},
	{ErrInsufficientBalance, goerrors.CategoryBadInput, CarbonErrorInsufficientBalance},
	{ErrZeroAddress, goerrors.CategoryBadInput, CarbonErrorZeroAddress},
	{ErrArithmeticOverflow, goerrors.CategoryBadInput, CarbonErrorArithmeticOverflow},
	{ErrTokenAddressHasNotChanged, goerrors.CategoryConflict, CarbonErrorReceiptBackendUnchanged},
	{ErrReentrantCall, goerrors.CategoryConflict, CarbonErrorReentrantCall},
	{ErrTransferIntoVaultIsNotAccepted, goerrors.CategoryOperation, CarbonErrorDepositNotAccepted},
	{ErrTransferToNotCompatibleImplementer, goerrors.CategoryOperation, CarbonErrorNotCompatibleImplementer},
	{ErrAcknowledgeFailRejectedTokens, goerrors.CategoryOperation, CarbonErrorAcknowledgeRejected},
	{ErrReceiverRejectedTokens, goerrors.CategoryOperation, CarbonErrorReceiverRejected},
}

// ToServiceError maps a domain error onto a go-errors envelope for outer
// surfaces. Domain operations themselves return the typed errors.
func ToServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCarbonErrorEnvelope(richErr)
	}

	for _, class := range errorClasses {
		if !errors.Is(err, class.sentinel) {
			continue
		}
		mapped := goerrors.Wrap(err, class.category, err.Error()).
			WithCode(carbonHTTPStatus(class.category)).
			WithTextCode(class.textCode)
		if metadata := errorMetadata(err); len(metadata) > 0 {
			mapped = mapped.WithMetadata(metadata)
		}
		return mapped
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCarbonErrorEnvelope(mapped)
}

func ensureCarbonErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = carbonHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = CarbonErrorInternal
		if err.Category == goerrors.CategoryBadInput || err.Category == goerrors.CategoryValidation {
			err.TextCode = CarbonErrorInvalidArguments
		}
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func carbonHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorMetadata(err error) map[string]any {
	var (
		minter   *MinterRoleRequiredError
		admin    *AdminRoleRequiredError
		owner    *NotOwnerError
		exists   *TokenAlreadyExistsError
		missing  *TokenNotExistsError
		initial  *InitialSupplyGreaterThanMaxSupplyError
		capped   *MintWouldViolateMaxTokenSupplyError
		bounds   *IndexOutOfBoundsError
		rejected *TransferIntoVaultIsNotAcceptedError
		shape    *TransferToNotCompatibleImplementerError
		ack      *AcknowledgeFailRejectedTokensError
		balance  *InsufficientBalanceError
		approval *NotApprovedError
		receiver *ReceiverRejectedTokensError
	)
	switch {
	case errors.As(err, &minter):
		return map[string]any{"caller": minter.Caller.Hex()}
	case errors.As(err, &admin):
		return map[string]any{"caller": admin.Caller.Hex()}
	case errors.As(err, &owner):
		return map[string]any{"caller": owner.Caller.Hex()}
	case errors.As(err, &exists):
		return map[string]any{"token_id": exists.ID}
	case errors.As(err, &missing):
		return map[string]any{"token_id": missing.ID}
	case errors.As(err, &initial):
		return map[string]any{"token_id": initial.ID, "amount": decimal(initial.Amount), "max_supply": decimal(initial.MaxSupply)}
	case errors.As(err, &capped):
		wouldBe := ""
		if capped.WouldBe != nil {
			wouldBe = capped.WouldBe.String()
		}
		return map[string]any{"token_id": capped.ID, "would_be": wouldBe, "max_supply": decimal(capped.Cap)}
	case errors.As(err, &bounds):
		return map[string]any{"receipt_id": bounds.ReceiptID, "index": bounds.Index, "count": bounds.Count}
	case errors.As(err, &rejected):
		return map[string]any{"source": rejected.Source.Hex()}
	case errors.As(err, &shape):
		return map[string]any{"implementer": shape.Implementer.Hex()}
	case errors.As(err, &ack):
		return map[string]any{"source": ack.Source.Hex()}
	case errors.As(err, &balance):
		return map[string]any{"owner": balance.Owner.Hex(), "token_id": balance.ID, "balance": decimal(balance.Balance), "needed": decimal(balance.Needed)}
	case errors.As(err, &approval):
		return map[string]any{"owner": approval.Owner.Hex(), "operator": approval.Operator.Hex()}
	case errors.As(err, &receiver):
		return map[string]any{"receiver": receiver.Receiver.Hex()}
	}
	return nil
}
