package envelope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwner(t *testing.T) {
	owner, err := Owner("err8n@eservices.virginia.edu")
	require.NoError(t, err)
	require.Equal(t, "err8n", owner)

	owner, err = Owner(`"Eric Rochester" <err8n@virginia.edu>`)
	require.NoError(t, err)
	require.Equal(t, "err8n", owner)

	_, err = Owner("   ")
	require.ErrorIs(t, err, ErrMissingSender)
}

func TestRecipients_DisplayNamesAndOrder(t *testing.T) {
	header := `frankbot@cloudmailin.com, "Davis Ferrell" <daf2c@virginia.edu>, "Guinevere Aguilar" <gva9b@eservices.virginia.edu>`

	require.Equal(t, []string{"frankbot", "daf2c", "gva9b"}, Recipients(header))
}

func TestRecipients_KeepsDuplicates(t *testing.T) {
	header := "daf2c@virginia.edu, gva9b@virginia.edu, daf2c@eservices.virginia.edu"

	require.Equal(t, []string{"daf2c", "gva9b", "daf2c"}, Recipients(header))
}

func TestRecipients_SkipsMalformedEntries(t *testing.T) {
	header := "daf2c@virginia.edu, not an address, <<broken, gva9b@virginia.edu"

	require.Equal(t, []string{"daf2c", "gva9b"}, Recipients(header))
}

func TestRecipients_QuotedCommaSurvivesFallback(t *testing.T) {
	header := `"Doe, Jane" <jd@virginia.edu>, not an address, daf2c@virginia.edu`

	require.Equal(t, []string{"jd", "daf2c"}, Recipients(header))
}

func TestSplitAddressList(t *testing.T) {
	require.Equal(t,
		[]string{`"Doe, Jane" <jd@x>`, ` <a,b@x>`, ` "q\"," <c@x>`},
		splitAddressList(`"Doe, Jane" <jd@x>, <a,b@x>, "q\"," <c@x>`))
}

func TestRecipients_Empty(t *testing.T) {
	require.Empty(t, Recipients(""))
	require.Empty(t, Recipients("  "))
}

func TestMentions_SkipsKnownAndKeepsOrder(t *testing.T) {
	seen := map[string]struct{}{"daf2c": {}, "gva9b": {}}

	found := Mentions("Meeting with daf2c@, abc1d@ and xy@ then abc1d@ again", seen)
	require.Equal(t, []string{"abc1d", "xy"}, found)

	require.Contains(t, seen, "abc1d")
	require.Contains(t, seen, "xy")
	require.Len(t, seen, 4)
}

func TestMentions_Pattern(t *testing.T) {
	tests := map[string][]string{
		"Meeting with daf2c@":            {"daf2c"},
		"Meeting with daf2c@ and others": {"daf2c"},
		"mail john.smith@example.com":    {"smith"},
		"ABCdef@":                        {"def"},
		"a1b2c@":                         {"b2c"},
		"no mentions here":               nil,
		"trailing digit abc1@":           nil,
	}

	for text, want := range tests {
		got := Mentions(text, map[string]struct{}{})
		require.Equal(t, want, got, "text %q", text)
	}
}

func TestMentions_SubjectThenBodyShareSeen(t *testing.T) {
	seen := map[string]struct{}{}

	fromSubject := Mentions("Sync with abc1d@", seen)
	fromBody := Mentions("abc1d@ and efg2h@ will attend", seen)

	require.Equal(t, []string{"abc1d"}, fromSubject)
	require.Equal(t, []string{"efg2h"}, fromBody)
}

func TestMentions_LongRunIsKeptWhole(t *testing.T) {
	long := strings.Repeat("a", 70)

	found := Mentions("see https://example.org/"+long+"@cdn/asset.png", map[string]struct{}{})
	require.Equal(t, []string{long}, found)
}
