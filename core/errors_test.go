package core

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/holiman/uint256"
)

func TestToServiceError_AssignsStableCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		textCode string
		category goerrors.Category
		status   int
	}{
		{
			name:     "invalid signature",
			err:      ErrInvalidSignature,
			textCode: CarbonErrorInvalidSignature,
			category: goerrors.CategoryAuth,
			status:   http.StatusUnauthorized,
		},
		{
			name:     "minter role",
			err:      &MinterRoleRequiredError{Caller: axel},
			textCode: CarbonErrorMinterRoleRequired,
			category: goerrors.CategoryAuthz,
			status:   http.StatusForbidden,
		},
		{
			name:     "token exists",
			err:      &TokenAlreadyExistsError{ID: 1001},
			textCode: CarbonErrorTokenAlreadyExists,
			category: goerrors.CategoryConflict,
			status:   http.StatusConflict,
		},
		{
			name:     "receipt index",
			err:      &IndexOutOfBoundsError{ReceiptID: 3, Index: 1, Count: 1},
			textCode: CarbonErrorIndexOutOfBounds,
			category: goerrors.CategoryNotFound,
			status:   http.StatusNotFound,
		},
		{
			name:     "vault refusal",
			err:      &TransferIntoVaultIsNotAcceptedError{Source: bianca},
			textCode: CarbonErrorDepositNotAccepted,
			category: goerrors.CategoryOperation,
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "wrapped invalid arguments",
			err:      fmt.Errorf("command: %w", invalidArguments("ids and amounts length mismatch")),
			textCode: CarbonErrorInvalidArguments,
			category: goerrors.CategoryBadInput,
			status:   http.StatusBadRequest,
		},
		{
			name:     "reentrancy",
			err:      ErrReentrantCall,
			textCode: CarbonErrorReentrantCall,
			category: goerrors.CategoryConflict,
			status:   http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := ToServiceError(tt.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.TextCode != tt.textCode {
				t.Fatalf("expected text code %q, got %q", tt.textCode, mapped.TextCode)
			}
			if mapped.Category != tt.category {
				t.Fatalf("expected category %q, got %q", tt.category, mapped.Category)
			}
			if mapped.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, mapped.Code)
			}
		})
	}
}

func TestToServiceError_CarriesTypedErrorMetadata(t *testing.T) {
	err := &MintWouldViolateMaxTokenSupplyError{
		ID:      1001,
		WouldBe: uint256.NewInt(101).ToBig(),
		Cap:     uint256.NewInt(100),
	}
	mapped := ToServiceError(err)
	if mapped.TextCode != CarbonErrorMaxSupplyViolation {
		t.Fatalf("expected max supply text code, got %q", mapped.TextCode)
	}
	if mapped.Metadata["token_id"] != TokenID(1001) {
		t.Fatalf("expected token_id metadata, got %#v", mapped.Metadata["token_id"])
	}
	if mapped.Metadata["would_be"] != "101" || mapped.Metadata["max_supply"] != "100" {
		t.Fatalf("unexpected supply metadata %#v", mapped.Metadata)
	}
	if !stderrors.Is(err, ErrMintWouldViolateMaxTokenSupply) {
		t.Fatalf("expected typed error to unwrap to its sentinel")
	}
}

func TestToServiceError_FallsBackToInternal(t *testing.T) {
	if ToServiceError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}

	mapped := ToServiceError(stderrors.New("ledger exploded"))
	if mapped == nil || mapped.Code == 0 || mapped.TextCode == "" {
		t.Fatalf("expected a complete envelope, got %#v", mapped)
	}

	rich := goerrors.New("already shaped", goerrors.CategoryValidation)
	mapped = ToServiceError(rich)
	if mapped.TextCode != CarbonErrorInvalidArguments || mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected validation envelope to be completed, got %q/%d", mapped.TextCode, mapped.Code)
	}
}
