package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Capability is a discrete permission evaluated at the operation boundary.
// Services check capabilities, never raw roles.
type Capability string

const (
	CapabilityRecordAttendance    Capability = "record-attendance"
	CapabilityReviewJustification Capability = "review-justification"
	CapabilityOverrideProtected   Capability = "override-protected"
	CapabilityGrantExemption      Capability = "grant-exemption"
	CapabilityManageThresholds    Capability = "manage-thresholds"
	CapabilityViewReports         Capability = "view-reports"
)

var roleCapabilities = map[UserRole][]Capability{
	RoleAdmin: {
		CapabilityRecordAttendance,
		CapabilityReviewJustification,
		CapabilityOverrideProtected,
		CapabilityGrantExemption,
		CapabilityManageThresholds,
		CapabilityViewReports,
	},
	RoleSecretary: {
		CapabilityRecordAttendance,
		CapabilityReviewJustification,
		CapabilityViewReports,
	},
	// Professors record attendance and read justifications but never decide them.
	RoleProfessor: {
		CapabilityRecordAttendance,
		CapabilityViewReports,
	},
	RoleStudent: {},
}

// Actor is the authenticated principal passed to every mutating operation.
type Actor struct {
	UserID       string
	Role         UserRole
	capabilities map[Capability]struct{}
}

// NewActor derives the capability set for the given user once.
func NewActor(userID string, role UserRole) Actor {
	caps := make(map[Capability]struct{})
	for _, c := range roleCapabilities[role] {
		caps[c] = struct{}{}
	}
	return Actor{UserID: userID, Role: role, capabilities: caps}
}

// Can reports whether the actor holds the capability.
func (a Actor) Can(c Capability) bool {
	_, ok := a.capabilities[c]
	return ok
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor converts the claims into an Actor with its capability set resolved.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return NewActor("", "")
	}
	return NewActor(c.UserID, c.Role)
}
