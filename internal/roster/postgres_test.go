package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	isTutor bool
	err     error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.isTutor
	return nil
}

type table map[[2]string]row

func (t table) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	key := [2]string{args[0].(string), args[1].(string)}
	if r, ok := t[key]; ok {
		return r
	}
	return row{err: pgx.ErrNoRows}
}

func TestResolveRole(t *testing.T) {
	boom := errors.New("connection reset")
	r := &PostgresResolver{db: table{
		{"s1", "tutor"}:   {isTutor: true},
		{"s1", "student"}: {isTutor: false},
		{"s1", "broken"}:  {err: boom},
	}}

	tests := []struct {
		name    string
		user    string
		claimed bool
		want    bool
		wantErr error
	}{
		{name: "registered tutor", user: "tutor", want: true},
		{name: "student claiming tutor", user: "student", claimed: true, want: false},
		{name: "unknown user", user: "ghost", claimed: true, want: false},
		{name: "query failure", user: "broken", wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveRole(context.Background(), "s1", tt.user, tt.claimed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
