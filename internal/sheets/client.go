// Package sheets is a thin client for the Google Sheets values API. The core
// only ever reads and writes single-column ranges.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"

	"clan-tracker/internal/config"
	"clan-tracker/internal/constants"
)

// API is the collaborator contract the spreadsheet layer depends on.
type API interface {
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]string) error
}

type Client struct {
	token   string
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		token:   cfg.SheetsAPIToken,
		baseURL: "https://sheets.googleapis.com/v4/spreadsheets",
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

func (c *Client) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	uri := fmt.Sprintf("%s/%s/values/%s", c.baseURL, spreadsheetID, url.PathEscape(rng))

	body, err := c.do(ctx, fasthttp.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("failed to decode values response: %w", err)
	}
	return vr.Values, nil
}

func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	uri := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED",
		c.baseURL, spreadsheetID, url.PathEscape(rng))

	payload, err := json.Marshal(valueRange{Values: values})
	if err != nil {
		return fmt.Errorf("failed to encode values payload: %w", err)
	}

	if _, err := c.do(ctx, fasthttp.MethodPut, uri, payload); err != nil {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, uri string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("sheets request returned status %d", resp.StatusCode())
	}

	return append([]byte(nil), resp.Body()...), nil
}
