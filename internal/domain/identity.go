// Package domain contains entity without logic, just meta-data
package domain

type (
	UserID string
	Role   string
)

// Identity is the per-connection identity supplied by the caller at join
// time. It is trusted verbatim; authentication happens upstream.
type Identity struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}
