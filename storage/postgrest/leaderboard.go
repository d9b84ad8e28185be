// Package postgrest reads from the Supabase PostgREST endpoint.
package postgrest

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
)

type (
	Client struct {
		client *resty.Client
	}

	apiError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	leaderboardRow struct {
		UserID   string  `json:"user_id"`
		Username *string `json:"username"`
		TotalXP  int64   `json:"total_xp"`
		Level    int     `json:"level"`
	}
)

var _ gamification.LeaderboardSource = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(conf.PostgREST.URL, "/")).
		SetTimeout(conf.PostgREST.Timeout).
		SetHeader("apikey", conf.PostgREST.APIKey).
		SetAuthToken(conf.PostgREST.APIKey).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})
	return &Client{client: client}
}

// Leaderboard reads the leaderboard view ordered by XP, then username.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]gamification.LeaderboardEntry, error) {
	var rows []leaderboardRow
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": "user_id,username,total_xp,level",
			"order":  "total_xp.desc,username.asc",
			"limit":  strconv.Itoa(limit),
		}).
		SetResult(&rows).
		Get("/leaderboard")
	if err != nil {
		return nil, errors.Wrap(err, "postgrest")
	}
	if res.IsError() {
		msg := res.Status()
		if ae, ok := res.Error().(*apiError); ok && ae.Message != "" {
			msg = ae.Message
		}
		return nil, errors.Errorf("postgrest: %d: %s", res.StatusCode(), msg)
	}

	entries := make([]gamification.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		e := gamification.LeaderboardEntry{UserID: row.UserID, TotalXP: row.TotalXP, Level: row.Level}
		if row.Username != nil {
			e.Username = *row.Username
		}
		entries = append(entries, e)
	}
	return entries, nil
}
