package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/invitations"
	"github.com/frankbot/frank/internal/meeting"
	"github.com/frankbot/frank/internal/retention"
	"github.com/stretchr/testify/require"
)

func TestIntegration_IngestStoresInvitation(t *testing.T) {
	pool := newTestDB(t)
	ctx := context.Background()

	inv, err := newAssembler(pool).Ingest(ctx, invitations.IncomingRoute, invite(
		"err8n@eservices.virginia.edu",
		"daf2c@virginia.edu, gva9b@eservices.virginia.edu",
		"Meeting with daf2c@",
		weeklyWhen,
	))
	require.NoError(t, err)

	require.Equal(t, []string{"daf2c", "err8n", "gva9b"}, storedUserIDs(t, pool))
	require.Equal(t, 2, countRows(t, pool, "attendees"))

	got, err := invitations.NewPostgresStore(pool).GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "err8n", got.Owner.UserID)
	require.Equal(t, []string{"daf2c", "gva9b"}, got.AttendeeUserIDs())
	require.Equal(t, meeting.Weekly{Weekday: meeting.Tuesday}, got.Recurrence)
	require.Equal(t, 30, got.DurationMinutes)
	require.Equal(t, invitations.StatusDone, got.Status)
	require.True(t, got.MeetingDate.Equal(inv.MeetingDate))
	_, offset := got.MeetingDate.Zone()
	require.Equal(t, -4*3600, offset)

	var rule string
	require.NoError(t, pool.QueryRow(ctx, `SELECT rrule FROM invitations WHERE id = $1`, inv.ID).Scan(&rule))
	require.Contains(t, rule, "BYDAY=TU")
}

func TestIntegration_MalformedInvitationPersistsNothing(t *testing.T) {
	pool := newTestDB(t)

	for _, body := range []string{"No schedule in here.", ""} {
		_, err := newAssembler(pool).Ingest(context.Background(), invitations.IncomingRoute,
			invite("err8n@eservices.virginia.edu", "daf2c@virginia.edu", "", body))
		require.ErrorIs(t, err, meeting.ErrMalformedInvitation)
	}

	require.Zero(t, countRows(t, pool, "profiles"))
	require.Zero(t, countRows(t, pool, "invitations"))
	require.Zero(t, countRows(t, pool, "error_reports"))
}

func TestIntegration_ProfilesAreSharedAcrossIngestions(t *testing.T) {
	pool := newTestDB(t)
	ids := seedProfiles(t, pool, "err8n")
	ctx := context.Background()
	a := newAssembler(pool)

	msg := invite("err8n@eservices.virginia.edu", "daf2c@virginia.edu", "", singleWhen)
	first, err := a.Ingest(ctx, invitations.IncomingRoute, msg)
	require.NoError(t, err)
	second, err := a.Ingest(ctx, invitations.IncomingRoute, msg)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, ids["err8n"], first.Owner.ID)
	require.Equal(t, ids["err8n"], second.Owner.ID)
	require.Equal(t, first.Attendees[0].ID, second.Attendees[0].ID)
	require.Equal(t, []string{"daf2c", "err8n"}, storedUserIDs(t, pool))
}

func TestIntegration_LongMentionIsStored(t *testing.T) {
	pool := newTestDB(t)
	long := strings.Repeat("a", 70)

	inv, err := newAssembler(pool).Ingest(context.Background(), invitations.IncomingRoute, invite(
		"err8n@eservices.virginia.edu",
		"daf2c@virginia.edu",
		"Slides",
		singleWhen+"Deck: https://example.org/"+long+"@cdn/deck.pdf\n",
	))
	require.NoError(t, err)
	require.Equal(t, []string{"daf2c", long}, inv.AttendeeUserIDs())
	require.Contains(t, storedUserIDs(t, pool), long)
	require.Zero(t, countRows(t, pool, "error_reports"))
}

func TestIntegration_ConcurrentIngestionsCreateOneProfile(t *testing.T) {
	pool := newTestDB(t)
	ctx := context.Background()
	a := newAssembler(pool)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.Ingest(ctx, invitations.IncomingRoute, invite(
				fmt.Sprintf("owner%c@virginia.edu", 'a'+i),
				"newbie@virginia.edu",
				"Kickoff with shared@",
				"When: Friday, January 8, 2021 11:30 AM-1:15 PM (UTC+01:00)\n",
			))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE userid IN ('newbie', 'shared')`).Scan(&n))
	require.Equal(t, 2, n)
	require.Equal(t, workers, countRows(t, pool, "invitations"))
	require.Equal(t, workers*2, countRows(t, pool, "attendees"))
}

// Each pair of requests creates the same two new profiles in opposite
// resolution order: one is sent by x and mentions y, the other the reverse.
func TestIntegration_CrossedNewProfilesDoNotDeadlock(t *testing.T) {
	pool := newTestDB(t)
	ctx := context.Background()
	a := newAssembler(pool)

	const pairs = 6
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, pairs*2)
	for i := 0; i < pairs; i++ {
		x := fmt.Sprintf("zed%c", 'a'+i)
		y := fmt.Sprintf("amy%c", 'a'+i)
		for _, pair := range [][2]string{{x, y}, {y, x}} {
			wg.Add(1)
			go func(sender, mentioned string) {
				defer wg.Done()
				<-start
				_, err := a.Ingest(ctx, invitations.IncomingRoute, invite(
					sender+"@virginia.edu",
					"",
					"Pairing with "+mentioned+"@",
					singleWhen,
				))
				errs <- err
			}(pair[0], pair[1])
		}
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, pairs*2, countRows(t, pool, "profiles"))
	require.Equal(t, pairs*2, countRows(t, pool, "invitations"))
	require.Zero(t, countRows(t, pool, "error_reports"))
}

func TestIntegration_ErrorReportsAndRetention(t *testing.T) {
	pool := newTestDB(t)
	ctx := context.Background()

	w := errorlog.NewWriter(pool)
	require.NoError(t, w.Record(ctx, errorlog.Report{
		Message: "error creating invitation",
		Route:   invitations.IncomingRoute,
		Stack:   errorlog.Stacktrace(),
		Meta:    map[string]any{"error": "boom"},
	}))
	require.NoError(t, w.Record(ctx, errorlog.Report{Message: "old", Route: "test", Stack: "-"}))
	_, err := pool.Exec(ctx, `UPDATE error_reports SET created_at = NOW() - INTERVAL '100 days' WHERE message = 'old'`)
	require.NoError(t, err)

	reports, err := errorlog.NewReader(pool).ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, "error creating invitation", reports[0].Message)
	require.Equal(t, "boom", reports[0].Meta["error"])

	deleted, err := retention.DeleteOldErrorReports(ctx, pool, 90)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	require.NoError(t, retention.RunRetentionJob(ctx, pool, 90))
	require.Equal(t, 1, countRows(t, pool, "error_reports"))
}
