package handler

import (
	"strings"

	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/validation"
)

// RegisterRequest is a wallet claim. Format checks on the address are left to
// the service so the error taxonomy stays in one place.
type RegisterRequest struct {
	Address     string `json:"address" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"required"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Address = strings.TrimSpace(r.Address)
	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Address == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid wallet address")
	}
	return validation.Validate(r)
}

type VerifyRequest struct {
	Address string `json:"address"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.Address = strings.TrimSpace(r.Address)
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return nil
}
