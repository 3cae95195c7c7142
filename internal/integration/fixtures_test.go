package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/invitations"
	"github.com/frankbot/frank/internal/meeting"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// When lines in the shapes the mail client produces.
const (
	singleWhen  = "When: Wednesday, April 20, 2016 9:00 PM-10:00 PM (UTC-05:00)\nWhere: Rice Hall\n"
	weeklyWhen  = "When: Occurs every Tuesday from 4:00 PM to 4:30 PM effective 4/19/2016. (UTC-04:00)\n"
	monthlyWhen = "When: Occurs every month on day 15 from 10:00 AM to 11:00 AM effective 1/15/2020.\n"
)

func invite(from, to, subject, body string) invitations.InboundMessage {
	return invitations.InboundMessage{From: from, To: to, Subject: subject, Body: body}
}

func newAssembler(pool *pgxpool.Pool) *invitations.Assembler {
	return invitations.NewAssembler(
		invitations.NewPostgresStore(pool),
		errorlog.NewWriter(pool),
		meeting.NewParser(time.UTC),
		nil,
	)
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(), fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	require.NoError(t, err)
	return n
}

// seedProfiles stores profiles for userIDs and returns their ids.
func seedProfiles(t *testing.T, pool *pgxpool.Pool, userIDs ...string) map[string]int64 {
	t.Helper()
	ids := make(map[string]int64, len(userIDs))
	for _, userID := range userIDs {
		var id int64
		err := pool.QueryRow(context.Background(),
			`INSERT INTO profiles (userid) VALUES ($1) RETURNING id`, userID).Scan(&id)
		require.NoError(t, err)
		ids[userID] = id
	}
	return ids
}

// storedUserIDs returns every profile userid, sorted.
func storedUserIDs(t *testing.T, pool *pgxpool.Pool) []string {
	t.Helper()
	rows, err := pool.Query(context.Background(), `SELECT userid FROM profiles ORDER BY userid`)
	require.NoError(t, err)
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	require.NoError(t, err)
	return userIDs
}
