package postgrest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig()
	conf.PostgREST.URL = srv.URL + "/rest/v1/"
	conf.PostgREST.APIKey = "anon"
	conf.PostgREST.Timeout = time.Second
	return NewClient(conf)
}

func TestClient_Leaderboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/leaderboard", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "user_id,username,total_xp,level", q.Get("select"))
		assert.Equal(t, "total_xp.desc,username.asc", q.Get("order"))
		assert.Equal(t, "2", q.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"user_id": "u2", "username": "bob", "total_xp": 300, "level": 3},
			{"user_id": "u1", "username": null, "total_xp": 100, "level": 2}
		]`))
	})

	entries, err := c.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []gamification.LeaderboardEntry{
		{UserID: "u2", Username: "bob", TotalXP: 300, Level: 3},
		{UserID: "u1", TotalXP: 100, Level: 2},
	}, entries)
}

func TestClient_Leaderboard_errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"code": "PGRST301", "message": "JWT expired"}`, wantErr: "JWT expired"},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: `{}`, wantErr: "503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Leaderboard(context.Background(), 10)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
