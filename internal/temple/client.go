// Package temple integrates TempleOSRS competitions: fetching results and
// converting them into capped clan-point awards.
package temple

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"clan-tracker/internal/config"
	"clan-tracker/internal/constants"
	"clan-tracker/internal/domain"
)

type competitionResponse struct {
	Data struct {
		Info struct {
			Name             string `json:"name"`
			SkillCompetition int    `json:"skill_competition"`
		} `json:"info"`
		Participants []struct {
			Username              string  `json:"username"`
			PlayerNameCapitalized string  `json:"player_name_with_capitalization"`
			Gain                  float64 `json:"gain"`
		} `json:"participants"`
	} `json:"data"`
}

type Client struct {
	baseURL string
	client  *fasthttp.Client
	limiter *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.TempleBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/constants.TempleRequestsPerMinute), 1),
	}
}

// GetCompetition fetches one competition. Participants keep the API's order:
// placement is the 1-based position as returned, never re-sorted. A non-2xx
// response is a hard failure and is not retried.
func (c *Client) GetCompetition(ctx context.Context, competitionID int) (*domain.CompetitionData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("%s/api/competition_info_v2.php?id=%d", c.baseURL, competitionID)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("temple request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, domain.ErrCompetitionFetchFailed
	}

	var parsed competitionResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode competition response: %w", err)
	}

	data := &domain.CompetitionData{
		CompetitionName:    parsed.Data.Info.Name,
		IsSkillCompetition: parsed.Data.Info.SkillCompetition == 1,
	}
	for i, p := range parsed.Data.Participants {
		data.Participants = append(data.Participants, domain.Participant{
			Username:    p.Username,
			DisplayName: p.PlayerNameCapitalized,
			Gain:        p.Gain,
			Placement:   i + 1,
		})
	}
	return data, nil
}
