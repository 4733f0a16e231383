package commands

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clan-tracker/internal/config"
	"clan-tracker/internal/database"
	"clan-tracker/internal/repository"
	"clan-tracker/internal/spreadsheet"
)

type fakeDirectory struct {
	roles map[string][]string // roleID -> holder IDs
}

func (f *fakeDirectory) ListMembers(_ context.Context, _ string) ([]spreadsheet.DirectoryMember, error) {
	return nil, nil
}

func (f *fakeDirectory) FilterWithRole(_ context.Context, _ string, ids []string, roleID string) ([]string, error) {
	holders := make(map[string]bool)
	for _, id := range f.roles[roleID] {
		holders[id] = true
	}
	var out []string
	for _, id := range ids {
		if holders[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func newTestRegistry(t *testing.T) (*Registry, *repository.MemberRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	members := repository.NewMemberRepository(db, zerolog.Nop())

	guilds := &config.Guilds{Guilds: map[string]config.GuildConfig{
		"guild-1": {
			Roles: config.RoleIDs{ClanStaff: "staff-role", MemberPerms: "member-role", Guest: "guest-role"},
		},
	}}
	dir := &fakeDirectory{roles: map[string][]string{
		"staff-role":  {"staff-user"},
		"member-role": {"staff-user", "member-user"},
	}}

	return NewRegistry(members, dir, guilds, zerolog.Nop()), members
}

func registerEcho(r *Registry, name string, capability Capability) *int {
	calls := new(int)
	r.Register(Command{
		Name:       name,
		Capability: capability,
		Handler: func(ctx context.Context, inv Invocation) (any, error) {
			*calls++
			return "ok", nil
		},
	})
	return calls
}

func TestDispatchRunsHandler(t *testing.T) {
	registry, _ := newTestRegistry(t)
	calls := registerEcho(registry, "ping", CapabilityMember)

	result, err := registry.Dispatch(context.Background(), "ping", Invocation{
		GuildID:         "guild-1",
		CallerDiscordID: "member-user",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, *calls)
}

func TestDispatchUnknownCommandIsSilent(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Dispatch(context.Background(), "nope", Invocation{
		GuildID:         "guild-1",
		CallerDiscordID: "member-user",
	})
	assert.ErrorIs(t, err, ErrSilent)
}

func TestDispatchCallerWithoutCapabilityIsSilent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	calls := registerEcho(registry, "staff-only", CapabilityStaff)

	_, err := registry.Dispatch(context.Background(), "staff-only", Invocation{
		GuildID:         "guild-1",
		CallerDiscordID: "member-user",
	})
	assert.ErrorIs(t, err, ErrSilent)
	assert.Equal(t, 0, *calls, "handler must never see a blocked invocation")
}

func TestDispatchStaffPassesCapabilityCheck(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registerEcho(registry, "staff-only", CapabilityStaff)

	_, err := registry.Dispatch(context.Background(), "staff-only", Invocation{
		GuildID:         "guild-1",
		CallerDiscordID: "staff-user",
	})
	assert.NoError(t, err)
}

func TestDispatchDisabledGuildIsSilent(t *testing.T) {
	registry, members := newTestRegistry(t)
	calls := registerEcho(registry, "ping", CapabilityMember)

	require.NoError(t, members.SetCommandsEnabled(context.Background(), "guild-1", false))

	_, err := registry.Dispatch(context.Background(), "ping", Invocation{
		GuildID:         "guild-1",
		CallerDiscordID: "member-user",
	})
	assert.ErrorIs(t, err, ErrSilent)
	assert.Equal(t, 0, *calls)
}

func TestDispatchUnknownGuildIsSilent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registerEcho(registry, "ping", CapabilityMember)

	_, err := registry.Dispatch(context.Background(), "ping", Invocation{
		GuildID:         "guild-unconfigured",
		CallerDiscordID: "member-user",
	})
	assert.ErrorIs(t, err, ErrSilent)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registerEcho(registry, "ping", CapabilityMember)

	assert.Panics(t, func() {
		registerEcho(registry, "ping", CapabilityMember)
	})
}
