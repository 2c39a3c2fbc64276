package model

// Operator roles accepted by the backend.
const (
	RoleManager  = "manager"
	RoleOperator = "operator"
	RoleAnalyst  = "analyst"
)

// Operator is the authenticated human user of the dashboard.
type Operator struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Department string `json:"department"`
}
