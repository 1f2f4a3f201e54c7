// Package authmodel holds the wire types of the backend's auth endpoints.
package authmodel

// Paths are relative to the resolved base endpoint.
const (
	PathLogin    = "auth/login/"
	PathRegister = "auth/register/"
	PathProfile  = "auth/profile/"
)

// LoginRequest is the body of POST auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is the response of POST auth/login/.
type TokenPair struct {
	// Access is the bearer token attached to every authorised request.
	Access string `json:"access"`
	// Refresh is persisted but never exchanged by this client.
	Refresh string `json:"refresh"`
}

// RegisterRequest is the body of POST auth/register/.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	BusinessName string `json:"business_name"`
}

// Vendor is the record created by POST auth/register/.
type Vendor struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	BusinessName string `json:"business_name"`
}

// Profile is the response of GET auth/profile/. Name fields may be null.
type Profile struct {
	ID           int64   `json:"id,omitempty"`
	Email        string  `json:"email"`
	FullName     *string `json:"full_name"`
	BusinessName *string `json:"business_name"`
}
