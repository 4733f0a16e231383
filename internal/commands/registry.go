// Package commands is the dispatch table for user-invokable operations. Every
// operation is registered once at startup with the capability it requires;
// dispatch enforces the per-guild kill switch and the caller's capability
// before any handler runs.
package commands

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"clan-tracker/internal/config"
	"clan-tracker/internal/directory"
	"clan-tracker/internal/repository"
)

// Capability is the permission tier a command requires.
type Capability string

const (
	// CapabilityMember is anyone holding the member-perms role.
	CapabilityMember Capability = "member"
	// CapabilityStaff is anyone holding the clan-staff role.
	CapabilityStaff Capability = "staff"
)

// ErrSilent marks a dispatch that must fail without any user-visible output:
// commands disabled for the guild, unknown command, or a caller without the
// required capability. Callers respond with nothing at all.
var ErrSilent = errors.New("command suppressed")

// Invocation is one command call.
type Invocation struct {
	GuildID         string
	CallerDiscordID string
	Args            map[string]string
}

// Handler executes one command. The returned value is rendered by the caller.
type Handler func(ctx context.Context, inv Invocation) (any, error)

// Command is one registered operation.
type Command struct {
	Name        string
	Capability  Capability
	Description string
	Handler     Handler
}

// Registry maps command names to their records and gates dispatch.
type Registry struct {
	commands  map[string]Command
	members   *repository.MemberRepository
	directory directory.Directory
	guilds    *config.Guilds
	logger    zerolog.Logger
}

func NewRegistry(
	members *repository.MemberRepository,
	dir directory.Directory,
	guilds *config.Guilds,
	logger zerolog.Logger,
) *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		members:   members,
		directory: dir,
		guilds:    guilds,
		logger:    logger,
	}
}

// Register adds a command. Registering the same name twice is a programming
// error and panics at startup.
func (r *Registry) Register(cmd Command) {
	if _, exists := r.commands[cmd.Name]; exists {
		panic("command already registered: " + cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Commands lists every registered command.
func (r *Registry) Commands() []Command {
	list := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	return list
}

// SetEnabled flips the per-guild kill switch.
func (r *Registry) SetEnabled(ctx context.Context, guildID string, enabled bool) error {
	return r.members.SetCommandsEnabled(ctx, guildID, enabled)
}

// Dispatch runs one command. Disabled guilds, unknown commands and callers
// without the required capability all fail silently with ErrSilent; handlers
// never see those invocations.
func (r *Registry) Dispatch(ctx context.Context, name string, inv Invocation) (any, error) {
	cmd, ok := r.commands[name]
	if !ok {
		r.logger.Debug().Str("command", name).Msg("unknown command")
		return nil, ErrSilent
	}

	enabled, err := r.members.GetCommandsEnabled(ctx, inv.GuildID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		r.logger.Debug().Str("command", name).Str("guild_id", inv.GuildID).Msg("commands disabled")
		return nil, ErrSilent
	}

	allowed, err := r.hasCapability(ctx, inv, cmd.Capability)
	if err != nil {
		return nil, err
	}
	if !allowed {
		r.logger.Debug().
			Str("command", name).
			Str("caller", inv.CallerDiscordID).
			Str("capability", string(cmd.Capability)).
			Msg("caller lacks capability")
		return nil, ErrSilent
	}

	return cmd.Handler(ctx, inv)
}

func (r *Registry) hasCapability(ctx context.Context, inv Invocation, required Capability) (bool, error) {
	cfg, ok := r.guilds.Get(inv.GuildID)
	if !ok {
		return false, nil
	}

	roleID := cfg.Roles.MemberPerms
	if required == CapabilityStaff {
		roleID = cfg.Roles.ClanStaff
	}

	holders, err := r.directory.FilterWithRole(ctx, inv.GuildID, []string{inv.CallerDiscordID}, roleID)
	if err != nil {
		return false, err
	}
	return len(holders) == 1, nil
}
