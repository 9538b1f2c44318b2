package scout

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/kolscout/internal/contact"
)

const (
	defaultStatus  = "New"
	defaultSegment = "Custom"
	missingValue   = "N/A"
)

// TierFor buckets a creator by follower count. TikTok and Instagram use the
// cut-offs their scraping tools have always used, which differ slightly.
func TierFor(platform Platform, followers int64) string {
	if platform == PlatformInstagram {
		switch {
		case followers >= 1_000_000:
			return "Mega"
		case followers >= 100_000:
			return "Macro"
		case followers >= 10_000:
			return "Mid"
		case followers >= 1_000:
			return "Micro"
		default:
			return "Nano"
		}
	}
	switch {
	case followers > 1_000_000:
		return "Mega"
	case followers >= 100_000:
		return "Mid/Macro"
	case followers >= 10_000:
		return "Micro"
	default:
		return "Nano"
	}
}

// ProfileURL returns the canonical public URL for a username.
func ProfileURL(platform Platform, username string) string {
	if platform == PlatformInstagram {
		return "https://www.instagram.com/" + username
	}
	return "https://tiktok.com/@" + username
}

// NewCreator converts a scraped item into stored columns. Contact details the
// source extracted itself win over what the bio yields; both go through the
// same extractor so the stored format is always canonical.
func NewCreator(item SourceItem) Creator {
	info := contact.Extract(item.Bio)
	if email := contact.Extract(sourceValue(item.Email)).Email; email != "" {
		info.Email = email
	}
	if phone := contact.Extract(sourceValue(item.Phone)).Phone; phone != "" {
		info.Phone = phone
	}

	name := strings.TrimSpace(item.DisplayName)
	if name == "" {
		name = item.Username
	}
	profileURL := item.ProfileURL
	if profileURL == "" && item.Username != "" {
		profileURL = ProfileURL(item.Platform, item.Username)
	}

	return Creator{
		Platform:    item.Platform,
		Username:    item.Username,
		KOLName:     name,
		Followers:   item.Followers,
		AvgViews:    item.AvgViews,
		Status:      defaultStatus,
		Tier:        TierFor(item.Platform, item.Followers),
		AvatarURL:   item.AvatarURL,
		Phone:       info.Phone,
		Email:       info.Email,
		ER:          item.ER,
		ProfileURL:  profileURL,
		Verified:    item.Verified,
		Category:    item.Category,
		Segment:     defaultSegment,
		Bio:         item.Bio,
		TotalLikes:  item.TotalLikes,
		TotalVideos: item.TotalVideos,
	}
}

// NewProfiles builds history rows for a job from scraped items.
func NewProfiles(items []SourceItem, jobID string, ids IDGenerator, now time.Time) ([]Profile, error) {
	out := make([]Profile, 0, len(items))
	for _, item := range items {
		id, err := ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate profile id: %w", err)
		}
		out = append(out, Profile{
			ID:        id,
			JobID:     jobID,
			Creator:   NewCreator(item),
			CreatedAt: now,
		})
	}
	return out, nil
}

// UniqueByUsername drops repeated creators from a batch, keeping the first
// occurrence. Search actors return one item per video, so a prolific creator
// shows up many times in one run. Items without a username are dropped.
func UniqueByUsername(items []SourceItem) []SourceItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]SourceItem, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Username))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// FillMissingContacts re-runs extraction over the stored bio and returns only
// the fields that were empty and are now found.
func FillMissingContacts(c Creator) (ContactUpdate, bool) {
	if c.Email != "" && c.Phone != "" {
		return ContactUpdate{}, false
	}
	info := contact.Extract(c.Bio)
	var update ContactUpdate
	if c.Phone == "" && info.Phone != "" {
		update.Phone = info.Phone
	}
	if c.Email == "" && info.Email != "" {
		update.Email = info.Email
	}
	return update, !update.Empty()
}

func sourceValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, missingValue) {
		return ""
	}
	return v
}
