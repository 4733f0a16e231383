// Package directory resolves the live Discord guild roster: who is a member,
// what they are called right now, and who holds a given role.
package directory

import (
	"context"

	"clan-tracker/internal/spreadsheet"
)

// Directory is the collaborator contract for guild membership lookups.
// Implementations return current display names; callers must never cache
// results across operations.
type Directory interface {
	// ListMembers returns every non-bot member of the guild.
	ListMembers(ctx context.Context, guildID string) ([]spreadsheet.DirectoryMember, error)
	// FilterWithRole returns the subset of ids that hold the role.
	FilterWithRole(ctx context.Context, guildID string, ids []string, roleID string) ([]string, error)
}
