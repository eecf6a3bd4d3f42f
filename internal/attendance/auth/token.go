// Package auth issues and validates the JWT tokens that carry the
// authenticated employee/company identity into the timekeeping core. The
// core itself never inspects credentials; it trusts the identity this
// package places in the request context.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the authenticated caller context the validators receive.
type Identity struct {
	EmployeeID uuid.UUID
	CompanyID  uuid.UUID
	Role       string
}

// GenerateToken signs a token carrying the employee and company identity.
func GenerateToken(identity Identity, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     identity.EmployeeID.String(),
		"company": identity.CompanyID.String(),
		"role":    identity.Role,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken parses and verifies a token, returning the identity it
// carries.
func validateToken(tokenString, secret string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	employeeID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	company, _ := claims["company"].(string)
	companyID, err := uuid.Parse(company)
	if err != nil {
		return nil, fmt.Errorf("invalid company claim: %w", err)
	}
	role, _ := claims["role"].(string)

	return &Identity{EmployeeID: employeeID, CompanyID: companyID, Role: role}, nil
}
