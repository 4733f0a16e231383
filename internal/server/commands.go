package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clan-tracker/internal/commands"
	"clan-tracker/internal/domain"
)

// registerCommands wires every user-invokable operation into the dispatch
// table with its required capability. The bot front-end calls these through
// the dispatch endpoint; capability and kill-switch checks happen there, not
// in the direct routes.
func (s *Server) registerCommands() {
	s.registry.Register(commands.Command{
		Name:        "daily",
		Capability:  commands.CapabilityMember,
		Description: "Claim the daily clan points",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			result, err := s.points.Daily(ctx, inv.GuildID, inv.CallerDiscordID)
			if err != nil {
				return nil, err
			}
			return toModifyResponse(result), nil
		},
	})

	s.registry.Register(commands.Command{
		Name:        "balance",
		Capability:  commands.CapabilityMember,
		Description: "Show a member's clan point balance",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			target := inv.Args["target"]
			if target == "" {
				target = inv.CallerDiscordID
			}
			balance, err := s.points.Balance(ctx, inv.GuildID, target)
			if err != nil {
				return nil, err
			}
			return map[string]any{"discord_id": target, "balance": balance}, nil
		},
	})

	s.registry.Register(commands.Command{
		Name:        "leaderboard",
		Capability:  commands.CapabilityMember,
		Description: "Show the clan point leaderboard",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			entries, err := s.points.AllTimeLeaderboard(ctx, inv.GuildID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"entries": entries}, nil
		},
	})

	s.registry.Register(commands.Command{
		Name:        "add",
		Capability:  commands.CapabilityStaff,
		Description: "Add clan points to one or more members",
		Handler:     s.modifyHandler(domain.ActionAdd),
	})

	s.registry.Register(commands.Command{
		Name:        "remove",
		Capability:  commands.CapabilityStaff,
		Description: "Remove clan points from one or more members",
		Handler:     s.modifyHandler(domain.ActionRemove),
	})

	s.registry.Register(commands.Command{
		Name:        "undo",
		Capability:  commands.CapabilityStaff,
		Description: "Undo a clan point transaction",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			undoneID, err := s.points.Undo(ctx, inv.GuildID, inv.Args["transaction_id"], inv.CallerDiscordID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"undone_transaction_id": undoneID}, nil
		},
	})

	s.registry.Register(commands.Command{
		Name:        "history",
		Capability:  commands.CapabilityStaff,
		Description: "Show a member's clan point history",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			target := inv.Args["target"]
			if target == "" {
				target = inv.CallerDiscordID
			}
			transactions, err := s.points.History(ctx, inv.GuildID, target,
				time.Time{}, time.Now(), false, 25)
			if err != nil {
				return nil, err
			}
			return map[string]any{"transactions": transactions}, nil
		},
	})

	s.registry.Register(commands.Command{
		Name:        "validate",
		Capability:  commands.CapabilityStaff,
		Description: "Validate the clan spreadsheet against the guild roster",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			return s.spreadsheet.Validate(ctx, inv.GuildID)
		},
	})

	s.registry.Register(commands.Command{
		Name:        "populate",
		Capability:  commands.CapabilityStaff,
		Description: "Write resolved Discord IDs into the spreadsheet",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			return s.spreadsheet.Populate(ctx, inv.GuildID)
		},
	})

	s.registry.Register(commands.Command{
		Name:        "competition",
		Capability:  commands.CapabilityStaff,
		Description: "Preview competition points without awarding",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			competitionID, err := strconv.Atoi(inv.Args["competition_id"])
			if err != nil || competitionID < 1 {
				return nil, domain.NewUserError("a valid competition id is required")
			}
			return s.temple.Preview(ctx, inv.GuildID, competitionID)
		},
	})

	s.registry.Register(commands.Command{
		Name:        "award",
		Capability:  commands.CapabilityStaff,
		Description: "Award competition points to the clan",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			competitionID, err := strconv.Atoi(inv.Args["competition_id"])
			if err != nil || competitionID < 1 {
				return nil, domain.NewUserError("a valid competition id is required")
			}
			result, modify, err := s.temple.Award(ctx, inv.GuildID, competitionID, inv.CallerDiscordID)
			if err != nil {
				return nil, err
			}
			resp := map[string]any{"result": result}
			if modify != nil {
				resp["ledger"] = toModifyResponse(modify)
			}
			return resp, nil
		},
	})

	s.registry.Register(commands.Command{
		Name:        "inactive",
		Capability:  commands.CapabilityStaff,
		Description: "List members inactive for a number of days",
		Handler: func(ctx context.Context, inv commands.Invocation) (any, error) {
			days, _ := strconv.Atoi(inv.Args["days"])
			return s.activity.InactiveMembers(ctx, inv.GuildID, days)
		},
	})
}

func (s *Server) modifyHandler(actionType domain.ActionType) commands.Handler {
	return func(ctx context.Context, inv commands.Invocation) (any, error) {
		targets := splitList(inv.Args["targets"])
		amounts, err := parseAmounts(inv.Args["amounts"])
		if err != nil {
			return nil, err
		}
		result, err := s.points.Modify(ctx, inv.GuildID, actionType, targets, amounts,
			inv.Args["reason"], inv.CallerDiscordID)
		if err != nil {
			return nil, err
		}
		return toModifyResponse(result), nil
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAmounts(raw string) ([]int, error) {
	parts := splitList(raw)
	amounts := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return nil, domain.NewUserError("amounts must be non-negative numbers")
		}
		amounts = append(amounts, v)
	}
	return amounts, nil
}

type dispatchRequest struct {
	CallerDiscordID string            `json:"caller_discord_id"`
	Args            map[string]string `json:"args"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	name := chi.URLParam(r, "name")

	var req dispatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.registry.Dispatch(r.Context(), name, commands.Invocation{
		GuildID:         guildID,
		CallerDiscordID: req.CallerDiscordID,
		Args:            req.Args,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
