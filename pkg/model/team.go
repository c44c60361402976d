package model

import (
	"context"
	"time"
)

// Team domain object defining a proving team
// swagger:model
type Team struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"index;unique" json:"name"`
	Website   string    `json:"website"`
	LogoUrl   string    `json:"logoUrl"`
	Approved  bool      `json:"approved"`
	Clusters  []Cluster `gorm:"constraint:OnUpdate:CASCADE" json:"clusters,omitempty"`
}

// User domain object defining a dashboard user
// swagger:model
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Email     string    `gorm:"index;unique" json:"email"`
	TeamID    uint      `json:"teamId"`
	Team      *Team     `json:"team,omitempty"`
	Admin     bool      `json:"admin"`
}

func (u *User) CanAccessTeam(teamID uint) bool {
	return u.Admin || u.TeamID == teamID
}

// ApiKey grants a team programmatic access to the public API. Only the
// SHA-256 hash of the key is stored.
type ApiKey struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	KeyHash   string    `gorm:"index;unique" json:"-"`
	TeamID    uint      `json:"teamId"`
	Team      *Team     `json:"-"`
	Active    bool      `json:"active"`
}

type userContextKey int

var userKey userContextKey

// NewContextWithUser returns a new [context.Context] that carries the user.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext returns the user stored in the ctx, if any.
func GetUserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok
}
