package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"clan-tracker/internal/config"
	"clan-tracker/internal/constants"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/spreadsheet"
)

const memberPageSize = 1000

type guildMember struct {
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
	User  struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Bot        bool   `json:"bot"`
	} `json:"user"`
}

// DiscordClient talks to the Discord REST API with a bot token.
type DiscordClient struct {
	token   string
	baseURL string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewDiscordClient(cfg *config.Config, logger zerolog.Logger) *DiscordClient {
	return &DiscordClient{
		token:   cfg.DiscordBotToken,
		baseURL: "https://discord.com/api/v10",
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

// ListMembers pages through the guild member list and returns every non-bot
// member with their effective display name (nickname first, then global name,
// then username).
func (c *DiscordClient) ListMembers(ctx context.Context, guildID string) ([]spreadsheet.DirectoryMember, error) {
	var members []spreadsheet.DirectoryMember

	after := ""
	for {
		page, err := c.fetchMemberPage(ctx, guildID, after)
		if err != nil {
			c.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to list guild members")
			return nil, domain.ErrUnableToAccessMembers
		}
		if len(page) == 0 {
			break
		}

		for _, m := range page {
			after = m.User.ID
			if m.User.Bot {
				continue
			}
			members = append(members, spreadsheet.DirectoryMember{
				ID:          m.User.ID,
				DisplayName: displayName(m),
			})
		}

		if len(page) < memberPageSize {
			break
		}
	}

	return members, nil
}

// FilterWithRole returns the subset of ids whose member currently holds the
// role. IDs that are no longer in the guild are dropped silently.
func (c *DiscordClient) FilterWithRole(ctx context.Context, guildID string, ids []string, roleID string) ([]string, error) {
	holders := make(map[string]bool)

	after := ""
	for {
		page, err := c.fetchMemberPage(ctx, guildID, after)
		if err != nil {
			c.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to check member roles")
			return nil, domain.ErrUnableToAccessMembers
		}
		if len(page) == 0 {
			break
		}

		for _, m := range page {
			after = m.User.ID
			for _, r := range m.Roles {
				if r == roleID {
					holders[m.User.ID] = true
					break
				}
			}
		}

		if len(page) < memberPageSize {
			break
		}
	}

	var filtered []string
	for _, id := range ids {
		if holders[id] {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

func (c *DiscordClient) fetchMemberPage(ctx context.Context, guildID, after string) ([]guildMember, error) {
	uri := fmt.Sprintf("%s/guilds/%s/members?limit=%d", c.baseURL, guildID, memberPageSize)
	if after != "" {
		uri += "&after=" + after
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bot "+c.token)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("discord request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("discord request returned status %d", resp.StatusCode())
	}

	var page []guildMember
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("failed to decode member list: %w", err)
	}
	return page, nil
}

func displayName(m guildMember) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}
