package scout

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

func TestTierFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform  Platform
		followers int64
		want      string
	}{
		{PlatformTikTok, 1_000_001, "Mega"},
		{PlatformTikTok, 1_000_000, "Mid/Macro"},
		{PlatformTikTok, 100_000, "Mid/Macro"},
		{PlatformTikTok, 10_000, "Micro"},
		{PlatformTikTok, 9_999, "Nano"},
		{PlatformInstagram, 1_000_000, "Mega"},
		{PlatformInstagram, 100_000, "Macro"},
		{PlatformInstagram, 10_000, "Mid"},
		{PlatformInstagram, 1_000, "Micro"},
		{PlatformInstagram, 999, "Nano"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.platform, tt.followers), "%s %d", tt.platform, tt.followers)
	}
}

func TestNewCreatorExtractsFromBio(t *testing.T) {
	t.Parallel()

	c := NewCreator(SourceItem{
		Platform:  PlatformTikTok,
		Username:  "dinda",
		Bio:       "Endorse: Dinda@Mail.com | WA 0812-3456-7890",
		Followers: 25_000,
	})
	assert.Equal(t, "dinda@mail.com", c.Email)
	assert.Equal(t, "6281234567890", c.Phone)
	assert.Equal(t, "Micro", c.Tier)
	assert.Equal(t, "dinda", c.KOLName)
	assert.Equal(t, "https://tiktok.com/@dinda", c.ProfileURL)
	assert.Equal(t, "New", c.Status)
	assert.Equal(t, "Custom", c.Segment)
}

func TestNewCreatorPrefersSourceContacts(t *testing.T) {
	t.Parallel()

	c := NewCreator(SourceItem{
		Platform:    PlatformInstagram,
		Username:    "rani",
		DisplayName: "  Rani S  ",
		Bio:         "bio@old.com 081211112222",
		Email:       "Rani@Brand.ID",
		Phone:       "+62 813-9999-8888",
	})
	assert.Equal(t, "rani@brand.id", c.Email)
	assert.Equal(t, "6281399998888", c.Phone)
	assert.Equal(t, "Rani S", c.KOLName)
	assert.Equal(t, "https://www.instagram.com/rani", c.ProfileURL)

	na := NewCreator(SourceItem{Platform: PlatformInstagram, Username: "x", Bio: "a@b.co", Email: "N/A", Phone: "n/a"})
	assert.Equal(t, "a@b.co", na.Email)
	assert.Empty(t, na.Phone)
}

func TestNewProfiles(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	profiles, err := NewProfiles([]SourceItem{
		{Platform: PlatformTikTok, Username: "a"},
		{Platform: PlatformTikTok, Username: "b"},
	}, "job-9", &seqIDs{}, now)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "id-1", profiles[0].ID)
	assert.Equal(t, "job-9", profiles[1].JobID)
	assert.Equal(t, now, profiles[1].CreatedAt)
}

func TestUniqueByUsername(t *testing.T) {
	t.Parallel()

	got := UniqueByUsername([]SourceItem{
		{Username: "Alice", Bio: "first"},
		{Username: "alice", Bio: "second"},
		{Username: ""},
		{Username: "bob"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Bio)
	assert.Equal(t, "bob", got[1].Username)
}

func TestFillMissingContacts(t *testing.T) {
	t.Parallel()

	update, ok := FillMissingContacts(Creator{Bio: "mail me x@y.co or 081234567890", Email: "keep@me.com"})
	require.True(t, ok)
	assert.Empty(t, update.Email)
	assert.Equal(t, "6281234567890", update.Phone)

	_, ok = FillMissingContacts(Creator{Bio: "nothing here"})
	assert.False(t, ok)

	_, ok = FillMissingContacts(Creator{Bio: "x@y.co", Email: "a@b.co", Phone: "62811"})
	assert.False(t, ok)
}
