package sqlxrepos

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/elimu/core"
)

const (
	userID   = "7c3d3a26-6b49-4a57-8f38-0d3cf2ac1b10"
	courseID = "9a1f1d27-61f5-4f0a-9e2b-6ad6d4ffbb5e"
	unitID   = "0b6a5c0e-3f12-4fe0-8a53-1e0f3f5a2b77"
	couponID = "d5c5e4a4-7c0c-4a8b-b3a1-24f6c8f50c4e"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestOrderBy(t *testing.T) {
	allowed := map[string]string{"title": "title", "created_at": "created_at"}
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "fallback", want: " ORDER BY created_at DESC"},
		{
			name:     "unknown fields dropped",
			ordering: []core.DBOrdering{{Field: "password_hash"}},
			want:     " ORDER BY created_at DESC",
		},
		{
			name:     "multiple",
			ordering: []core.DBOrdering{{Field: "title", Ascending: true}, {Field: "created_at"}},
			want:     " ORDER BY title ASC, created_at DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderBy(tt.ordering, allowed, "created_at DESC"); got != tt.want {
				t.Errorf("orderBy() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestWhere(t *testing.T) {
	w := new(where)
	if got := w.String(); got != "" {
		t.Errorf("empty where = %q; want empty", got)
	}
	w.add("a = ?", 1)
	w.add("(b ILIKE ? OR c ILIKE ?)", "x", "x")
	if got, want := w.String(), " WHERE a = ? AND (b ILIKE ? OR c ILIKE ?)"; got != want {
		t.Errorf("where = %q; want %q", got, want)
	}
	if len(w.args) != 3 {
		t.Errorf("len(args) = %d; want 3", len(w.args))
	}
}
