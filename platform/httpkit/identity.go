// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor roles understood by the workflow engine. Identity itself is owned by
// the surrounding application; the engine only consumes id + role.
const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
	RoleProvider = "provider"
	RoleAgency   = "agency"
)

// Identity represents the authenticated actor's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access actor information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated actor's ID.
	UserID() uuid.UUID
	// Role returns the actor's role (tenant/landlord/provider/agency).
	Role() string
	// HasRole checks if the actor has one of the given roles.
	HasRole(roles ...string) bool
	// IsAuthenticated returns true if the actor is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Role() string { return i.role }

func (i *identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == i.role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if actor info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	role, roleOK := c.Get(ContextRoleKey)

	if !userOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	var roleStr string
	if roleOK {
		roleStr, _ = role.(string)
	}

	return &identity{
		userID:        uid,
		role:          roleStr,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the actor is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
