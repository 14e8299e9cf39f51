package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued by the back-office identity provider.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Lending roles.
const (
	RoleAdmin       = "admin"
	RoleLoanOfficer = "loan_officer"
	RoleApprover    = "loan_approver"
	RoleCashier     = "cashier"
	RoleAuditor     = "auditor"
)
