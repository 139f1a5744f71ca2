package service

import (
	"context"
	"fmt"
	"time"

	"shutterhub/internal/models"
	"shutterhub/internal/repository"
)

// Session is the authenticated caller of one request. It is built once by the session
// middleware and handed to handlers explicitly.
type Session struct {
	UserID    uint
	Profile   *models.Profile
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the session carries role.
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller holds the admin role.
func (s *Session) IsAdmin() bool {
	return s.HasRole(models.RoleAdmin)
}

// CanCreateContent reports whether the caller may post at now.
func (s *Session) CanCreateContent(now time.Time) bool {
	if s == nil || s.Profile == nil {
		return false
	}
	return !s.Profile.SuspensionActive(now)
}

// PostingGate refuses content creation from suspended users and lifts suspensions whose
// end date has passed.
type PostingGate struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewPostingGate creates a PostingGate.
func NewPostingGate(users repository.UserRepository) *PostingGate {
	return &PostingGate{users: users, now: time.Now}
}

// Check returns a FORBIDDEN error wrapping ErrAccountSuspended when userID is suspended.
func (g *PostingGate) Check(ctx context.Context, userID uint) error {
	if g == nil {
		return nil
	}
	profile, err := g.users.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	_, err = g.settle(ctx, profile)
	return err
}

// settle lifts an expired suspension in place and reports the error for an active one.
func (g *PostingGate) settle(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	now := g.now().UTC()
	if !profile.IsSuspended {
		return profile, nil
	}
	if profile.SuspensionActive(now) {
		return profile, suspendedError(profile)
	}
	if _, err := g.users.LiftExpiredSuspension(ctx, profile.UserID, now); err != nil {
		return profile, err
	}
	profile.IsSuspended = false
	profile.SuspendedUntil = nil
	return profile, nil
}

func suspendedError(profile *models.Profile) error {
	msg := "Your account is suspended"
	if profile.SuspendedUntil != nil {
		msg = fmt.Sprintf("Your account is suspended until %s", profile.SuspendedUntil.UTC().Format(time.RFC3339))
	}
	return &models.AppError{Code: models.CodeForbidden, Message: msg, Err: ErrAccountSuspended}
}

// ownerOrAdmin returns nil when userID owns the resource or is an admin.
func ownerOrAdmin(ctx context.Context, isAdmin func(context.Context, uint) (bool, error), userID, ownerID uint, action string) error {
	if userID != 0 && userID == ownerID {
		return nil
	}
	if isAdmin != nil && userID != 0 {
		admin, err := isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return models.NewForbiddenError(fmt.Sprintf("Not authorized to %s", action))
}

// canSeeHidden reports whether viewerID may see hidden content owned by ownerID.
func canSeeHidden(ctx context.Context, isAdmin func(context.Context, uint) (bool, error), viewerID, ownerID uint) bool {
	return ownerOrAdmin(ctx, isAdmin, viewerID, ownerID, "view") == nil
}
