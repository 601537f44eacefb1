package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

const (
	dateLayout          = "2006-01-02"
	defaultLeaderboard  = 10
	maxLeaderboardLimit = 100
)

type tokenIssuer interface {
	Issue(m auth.Member) (string, time.Time, error)
}

// Service implements login and roster management.
type Service struct {
	store       Store
	issuer      tokenIssuer
	bootstrapID string
	logger      *logging.Logger
	now         func() time.Time
}

// NewService wires the directory. bootstrapID names the one member allowed to grant admin.
func NewService(store Store, issuer tokenIssuer, bootstrapID string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:       store,
		issuer:      issuer,
		bootstrapID: NormalizeID(bootstrapID),
		logger:      logger,
		now:         time.Now,
	}
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Identity  `json:"user"`
}

// Login looks up the identifier and issues a credential. lastLoginDate is stamped.
func (s *Service) Login(ctx context.Context, rawID string) (LoginResult, error) {
	id := NormalizeID(rawID)
	if id == "" {
		return LoginResult{}, ErrNotRecognized
	}
	var ident Identity
	err := s.store.Atomic(ctx, func(tx Tx) error {
		found, err := tx.FindIdentity(ctx, id)
		if err != nil {
			return err
		}
		found.LastLoginDate = s.now().UTC().Format(dateLayout)
		if err := tx.SaveIdentity(ctx, found); err != nil {
			return err
		}
		ident = found
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return LoginResult{}, ErrNotRecognized
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("identity: login: %w", err)
	}
	token, exp, err := s.issuer.Issue(auth.Member{ID: ident.ID, Name: ident.Name, IsAdmin: ident.IsAdmin})
	if err != nil {
		return LoginResult{}, fmt.Errorf("identity: login: %w", err)
	}
	s.logger.Info("member logged in", "member_id", ident.ID)
	return LoginResult{Token: token, TokenType: "bearer", ExpiresAt: exp, User: ident}, nil
}

// Get returns one member.
func (s *Service) Get(ctx context.Context, id string) (Identity, error) {
	ident, err := s.store.FindIdentity(ctx, NormalizeID(id))
	if err != nil {
		return Identity{}, fmt.Errorf("identity: get: %w", err)
	}
	return ident, nil
}

// IsMember reports whether id is still in the directory.
func (s *Service) IsMember(ctx context.Context, id string) (bool, error) {
	_, err := s.store.FindIdentity(ctx, NormalizeID(id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("identity: is member: %w", err)
	}
	return true, nil
}

// IsAdmin re-reads the admin flag from the directory.
func (s *Service) IsAdmin(ctx context.Context, id string) (bool, error) {
	ident, err := s.store.FindIdentity(ctx, NormalizeID(id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("identity: is admin: %w", err)
	}
	return ident.IsAdmin, nil
}

// List returns the whole roster.
func (s *Service) List(ctx context.Context) ([]Identity, error) {
	idents, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: list: %w", err)
	}
	return idents, nil
}

// Leaderboard returns members by xp, highest first.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Identity, error) {
	if limit <= 0 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	idents, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("identity: leaderboard: %w", err)
	}
	return idents, nil
}

// Add authorizes a new member.
func (s *Service) Add(ctx context.Context, actor auth.Member, in NewIdentity) (Identity, error) {
	id := NormalizeID(in.ID)
	if id == "" {
		return Identity{}, ErrMissingID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Identity{}, ErrMissingName
	}
	role, ok := ParseRole(in.Role)
	if !ok {
		return Identity{}, ErrInvalidRole
	}
	if (in.IsAdmin || role == RoleAdmin) && !s.isBootstrap(actor.ID) {
		return Identity{}, ErrAdminGrantForbidden
	}
	ident := Identity{
		ID:      id,
		Name:    name,
		IsAdmin: in.IsAdmin || role == RoleAdmin,
		Role:    role,
		AddedBy: actor.Name,
		AddedAt: s.now().UTC(),
	}
	if ident.IsAdmin {
		ident.Role = RoleAdmin
	}

	err := s.store.Atomic(ctx, func(tx Tx) error {
		_, err := tx.FindIdentity(ctx, id)
		switch {
		case err == nil:
			return ErrAlreadyAuthorized
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := tx.InsertIdentity(ctx, ident); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionAddUser,
			fmt.Sprintf("Authorized %s (%s) as %s", ident.Name, ident.ID, ident.Role), ""))
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: add: %w", err)
	}
	s.logger.Info("member added", "member_id", ident.ID, "actor", actor.ID)
	return ident, nil
}

// Remove deletes a member. Acting admins cannot remove themselves and the
// bootstrap identity cannot be removed at all.
func (s *Service) Remove(ctx context.Context, actor auth.Member, rawID string) error {
	id := NormalizeID(rawID)
	if id == "" {
		return ErrMissingID
	}
	if id == NormalizeID(actor.ID) {
		return ErrSelfRemoval
	}
	if s.isBootstrap(id) {
		return ErrBootstrapProtected
	}
	err := s.store.Atomic(ctx, func(tx Tx) error {
		ident, err := tx.FindIdentity(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteIdentity(ctx, id); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionRemoveUser,
			fmt.Sprintf("Removed %s (%s)", ident.Name, ident.ID), ""))
	})
	if err != nil {
		return fmt.Errorf("identity: remove: %w", err)
	}
	s.logger.Info("member removed", "member_id", id, "actor", actor.ID)
	return nil
}

// Update changes name, role or admin flag. Only the bootstrap identity may set is_admin=true.
func (s *Service) Update(ctx context.Context, actor auth.Member, rawID string, p Patch) (Identity, error) {
	id := NormalizeID(rawID)
	if id == "" {
		return Identity{}, ErrMissingID
	}
	var role Role
	if p.Role != nil {
		r, ok := ParseRole(*p.Role)
		if !ok || strings.TrimSpace(*p.Role) == "" {
			return Identity{}, ErrInvalidRole
		}
		role = r
	}
	grantsAdmin := (p.IsAdmin != nil && *p.IsAdmin) || role == RoleAdmin
	if grantsAdmin && !s.isBootstrap(actor.ID) {
		return Identity{}, ErrAdminGrantForbidden
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return Identity{}, ErrMissingName
	}

	var updated Identity
	err := s.store.Atomic(ctx, func(tx Tx) error {
		ident, err := tx.FindIdentity(ctx, id)
		if err != nil {
			return err
		}
		var changes []string
		if p.Name != nil {
			ident.Name = strings.TrimSpace(*p.Name)
			changes = append(changes, "name="+ident.Name)
		}
		if role != "" {
			ident.Role = role
			changes = append(changes, "role="+string(role))
			if role == RoleAdmin && p.IsAdmin == nil {
				ident.IsAdmin = true
			}
		}
		if p.IsAdmin != nil {
			if !*p.IsAdmin && s.isBootstrap(id) {
				return ErrBootstrapProtected
			}
			ident.IsAdmin = *p.IsAdmin
			changes = append(changes, fmt.Sprintf("is_admin=%t", ident.IsAdmin))
		}
		if ident.IsAdmin {
			ident.Role = RoleAdmin
		} else if ident.Role == RoleAdmin {
			ident.Role = RoleSpeakerOutreach
		}
		if err := tx.SaveIdentity(ctx, ident); err != nil {
			return err
		}
		updated = ident
		return tx.AppendAudit(ctx, audit.NewEntry(actor.Name, audit.ActionUpdateUser,
			fmt.Sprintf("Updated %s (%s): %s", ident.Name, ident.ID, strings.Join(changes, ", ")), ""))
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: update: %w", err)
	}
	s.logger.Info("member updated", "member_id", id, "actor", actor.ID)
	return updated, nil
}

// UpdateGamification lets a member overwrite their own counters.
func (s *Service) UpdateGamification(ctx context.Context, actor auth.Member, p GamificationPatch) (Identity, error) {
	if (p.XP != nil && *p.XP < 0) || (p.Streak != nil && *p.Streak < 0) {
		return Identity{}, ErrInvalidCounters
	}
	if p.LastLoginDate != nil && *p.LastLoginDate != "" {
		if _, err := time.Parse(dateLayout, *p.LastLoginDate); err != nil {
			return Identity{}, ErrInvalidDate
		}
	}
	var updated Identity
	err := s.store.Atomic(ctx, func(tx Tx) error {
		ident, err := tx.FindIdentity(ctx, NormalizeID(actor.ID))
		if err != nil {
			return err
		}
		if p.XP != nil {
			ident.XP = *p.XP
		}
		if p.Streak != nil {
			ident.Streak = *p.Streak
		}
		if p.LastLoginDate != nil {
			ident.LastLoginDate = *p.LastLoginDate
		}
		updated = ident
		return tx.SaveIdentity(ctx, ident)
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: gamification: %w", err)
	}
	return updated, nil
}

func (s *Service) isBootstrap(id string) bool {
	return s.bootstrapID != "" && NormalizeID(id) == s.bootstrapID
}
