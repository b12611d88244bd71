package jwttoken

import (
	"apeguard/pkg/domain"
)

// CallerValidator adapts JWTService to the auth middleware.
type CallerValidator struct {
	service *JWTService
}

func NewCallerValidator(service *JWTService) *CallerValidator {
	return &CallerValidator{service: service}
}

func (a *CallerValidator) ValidateCaller(tokenString string) (domain.Address, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return domain.ZeroAddress, err
	}
	return claims.Caller()
}
