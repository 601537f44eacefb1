package identity

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roster is the first-run seed file.
//
//	members:
//	  - id: b25349
//	    name: Asha
//	    role: ADMIN
//	    admin: true
type Roster struct {
	Members []RosterMember `yaml:"members"`
}

type RosterMember struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Admin bool   `yaml:"admin"`
}

// LoadRoster reads and validates a roster file.
func LoadRoster(path string) (Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("identity: read roster: %w", err)
	}
	return ParseRoster(raw)
}

// ParseRoster decodes roster YAML. Duplicate identifiers (after normalization) are rejected.
func ParseRoster(raw []byte) (Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return Roster{}, fmt.Errorf("identity: parse roster: %w", err)
	}
	seen := make(map[string]struct{}, len(roster.Members))
	for i, m := range roster.Members {
		id := NormalizeID(m.ID)
		if id == "" {
			return Roster{}, fmt.Errorf("identity: roster entry %d: %w", i, ErrMissingID)
		}
		if m.Name == "" {
			return Roster{}, fmt.Errorf("identity: roster entry %q: %w", id, ErrMissingName)
		}
		if _, ok := ParseRole(m.Role); !ok {
			return Roster{}, fmt.Errorf("identity: roster entry %q: %w", id, ErrInvalidRole)
		}
		if _, dup := seen[id]; dup {
			return Roster{}, fmt.Errorf("identity: roster entry %q: %w", id, ErrAlreadyAuthorized)
		}
		seen[id] = struct{}{}
		roster.Members[i].ID = id
	}
	return roster, nil
}

// Seed inserts the roster when the directory is empty and returns how many
// members were added. The bootstrap identity, when listed, is always an admin.
func (s *Service) Seed(ctx context.Context, roster Roster) (int, error) {
	count, err := s.store.CountIdentities(ctx)
	if err != nil {
		return 0, fmt.Errorf("identity: seed: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	now := s.now().UTC()
	err = s.store.Atomic(ctx, func(tx Tx) error {
		for _, m := range roster.Members {
			role, _ := ParseRole(m.Role)
			ident := Identity{
				ID:      NormalizeID(m.ID),
				Name:    m.Name,
				IsAdmin: m.Admin || role == RoleAdmin,
				Role:    role,
				AddedBy: "seed",
				AddedAt: now,
			}
			if ident.ID == s.bootstrapID {
				ident.IsAdmin = true
				ident.Role = RoleAdmin
			}
			if ident.IsAdmin {
				ident.Role = RoleAdmin
			}
			if err := tx.InsertIdentity(ctx, ident); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("identity: seed: %w", err)
	}
	s.logger.Info("identity directory seeded", "members", len(roster.Members))
	return len(roster.Members), nil
}

