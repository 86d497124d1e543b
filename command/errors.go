package command

import (
	"net/http"

	"github.com/goliatone/go-carbon/core"
	goerrors "github.com/goliatone/go-errors"
)

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.CarbonErrorInternal)
}

func commandValidationError(field string, message string) error {
	return goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.CarbonErrorInvalidArguments).
		WithSeverity(goerrors.SeverityError)
}

func commandUnknownContractError(field string, address core.Address) error {
	return goerrors.Wrap(core.ErrUnknownContract, goerrors.CategoryNotFound, "command: "+field+" "+address.Hex()+" is not a compatible contract").
		WithCode(http.StatusNotFound).
		WithTextCode(core.CarbonErrorUnknownContract)
}
