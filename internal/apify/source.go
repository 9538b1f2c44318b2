package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JakeFAU/kolscout/internal/scout"
)

// Default actor IDs for the scrapers the service runs.
const (
	DefaultTikTokSearchActor    = "GdWCkxBtKWOsKjdch"
	DefaultInstagramExpandActor = "r4hZOdD5FiHYo1bYa"
	DefaultTikTokAnalyzeActor   = "0FXVyOXXEmdGcV88a"
)

// analyzeVideosPerProfile is how many recent videos engagement is computed over.
const analyzeVideosPerProfile = 5

type tiktokSearchInput struct {
	ResultsPerPage        int      `json:"resultsPerPage"`
	ProfileScrapeSections []string `json:"profileScrapeSections"`
	ProfileSorting        string   `json:"profileSorting"`
	ExcludePinnedPosts    bool     `json:"excludePinnedPosts"`
	SearchSection         string   `json:"searchSection"`
	SearchQueries         []string `json:"searchQueries"`
	MaxProfilesPerQuery   int      `json:"maxProfilesPerQuery"`
	ScrapeRelatedVideos   bool     `json:"scrapeRelatedVideos"`
	ShouldDownloadVideos  bool     `json:"shouldDownloadVideos"`
	ShouldDownloadCovers  bool     `json:"shouldDownloadCovers"`
}

type instagramExpandInput struct {
	OperationMode      string `json:"operationMode"`
	StartUsernames     string `json:"startUsernames"`
	SearchDepth        string `json:"searchDepth"`
	MaxCountExpansion  int    `json:"maxCountExpansion"`
	ExtractEmail       bool   `json:"extractEmail"`
	ExtractPhoneNumber bool   `json:"extractPhoneNumber"`
	AnalyzeQuality     bool   `json:"analyzeQuality"`
	ClearSavedData     bool   `json:"clearSavedData"`
	EnableOfflineMode  bool   `json:"enableOfflineMode"`
}

type tiktokAnalyzeInput struct {
	Profiles                    []string `json:"profiles"`
	ProfileScrapeSections       []string `json:"profileScrapeSections"`
	ResultsPerPage              int      `json:"resultsPerPage"`
	ExcludePinnedPosts          bool     `json:"excludePinnedPosts"`
	ShouldDownloadVideos        bool     `json:"shouldDownloadVideos"`
	ShouldDownloadCovers        bool     `json:"shouldDownloadCovers"`
	ShouldDownloadSubtitles     bool     `json:"shouldDownloadSubtitles"`
	ShouldDownloadSlideshowImgs bool     `json:"shouldDownloadSlideshowImages"`
	ShouldDownloadAvatars       bool     `json:"shouldDownloadAvatars"`
}

// authorMeta is the creator block the TikTok actor attaches to every video.
type authorMeta struct {
	Name      string `json:"name"`
	NickName  string `json:"nickName"`
	Signature string `json:"signature"`
	Avatar    string `json:"avatar"`
	Verified  bool   `json:"verified"`
	Fans      int64  `json:"fans"`
	Heart     int64  `json:"heart"`
	Video     int64  `json:"video"`
}

type tiktokVideo struct {
	AuthorMeta   *authorMeta `json:"authorMeta"`
	PlayCount    *int64      `json:"playCount"`
	DiggCount    *int64      `json:"diggCount"`
	CommentCount int64       `json:"commentCount"`
	ShareCount   int64       `json:"shareCount"`
}

// tiktokProfileItem covers both shapes the analyze actor emits: profile
// objects carrying a videos array, and flat per-video items.
type tiktokProfileItem struct {
	tiktokVideo
	Name     string `json:"name"`
	UniqueID string `json:"uniqueId"`
	Author   *struct {
		UniqueID string `json:"uniqueId"`
	} `json:"author"`
	Videos []tiktokVideo `json:"videos"`
}

// instagramRow is one labelled row of the network-expansion actor.
type instagramRow struct {
	Account    string  `json:"Account"`
	FullName   string  `json:"Full Name"`
	Biography  string  `json:"Biography"`
	Picture    string  `json:"Profile Picture URL"`
	Verified   bool    `json:"Is Verified"`
	Followers  flexInt `json:"Followers Count"`
	PostsCount flexInt `json:"Posts Count"`
	Email      string  `json:"Email"`
	Phone      string  `json:"Phone"`
	Category   string  `json:"Business Category"`
	AvgViews   flexInt `json:"Avg Views"`
	MedianER   string  `json:"Median ER"`
}

// Source implements scout.ProfileSource on top of a Client.
type Source struct {
	client *Client
}

// NewSource wraps a client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// SearchTikTok runs the TikTok search actor for one query.
func (s *Source) SearchTikTok(ctx context.Context, query string, limit int) (scout.SourceBatch, error) {
	input := tiktokSearchInput{
		ResultsPerPage:        limit,
		ProfileScrapeSections: []string{"videos"},
		ProfileSorting:        "latest",
		SearchQueries:         []string{query},
		MaxProfilesPerQuery:   limit,
	}
	run, raw, err := s.client.Call(ctx, s.client.cfg.TikTokSearchActor, input)
	if err != nil {
		return scout.SourceBatch{}, err
	}
	items, err := DecodeTikTokSearch(raw)
	if err != nil {
		return scout.SourceBatch{}, err
	}
	return scout.SourceBatch{RunID: run.ID, Items: items, Raw: raw}, nil
}

// ExpandInstagram runs the Instagram network-expansion actor from seed usernames.
func (s *Source) ExpandInstagram(ctx context.Context, usernames []string, limit int) (scout.SourceBatch, error) {
	input := instagramExpandInput{
		OperationMode:      "networkExpansion",
		StartUsernames:     strings.Join(usernames, "\n"),
		SearchDepth:        "1",
		MaxCountExpansion:  limit,
		ExtractEmail:       true,
		ExtractPhoneNumber: true,
		AnalyzeQuality:     true,
		ClearSavedData:     true,
	}
	run, raw, err := s.client.Call(ctx, s.client.cfg.InstagramExpandActor, input)
	if err != nil {
		return scout.SourceBatch{}, err
	}
	items, err := DecodeInstagramExpand(raw)
	if err != nil {
		return scout.SourceBatch{}, err
	}
	return scout.SourceBatch{RunID: run.ID, Items: items, Raw: raw}, nil
}

// AnalyzeTikTok scrapes the latest videos of each username and computes
// engagement.
func (s *Source) AnalyzeTikTok(ctx context.Context, usernames []string) (scout.EngagementBatch, error) {
	input := tiktokAnalyzeInput{
		Profiles:              usernames,
		ProfileScrapeSections: []string{"videos"},
		ResultsPerPage:        analyzeVideosPerProfile,
	}
	run, raw, err := s.client.Call(ctx, s.client.cfg.TikTokAnalyzeActor, input)
	if err != nil {
		return scout.EngagementBatch{}, err
	}
	results, err := DecodeTikTokAnalyze(raw)
	if err != nil {
		return scout.EngagementBatch{}, err
	}
	return scout.EngagementBatch{RunID: run.ID, Results: results, Raw: raw}, nil
}

// DecodeTikTokSearch maps search actor output (one item per video) onto
// source items. Items without an author are skipped.
func DecodeTikTokSearch(raw []byte) ([]scout.SourceItem, error) {
	var videos []tiktokVideo
	if err := json.Unmarshal(raw, &videos); err != nil {
		return nil, fmt.Errorf("apify: decode tiktok search items: %w", err)
	}
	out := make([]scout.SourceItem, 0, len(videos))
	for _, v := range videos {
		if v.AuthorMeta == nil || v.AuthorMeta.Name == "" {
			continue
		}
		a := v.AuthorMeta
		out = append(out, scout.SourceItem{
			Platform:    scout.PlatformTikTok,
			Username:    a.Name,
			DisplayName: a.NickName,
			Bio:         a.Signature,
			AvatarURL:   a.Avatar,
			Followers:   a.Fans,
			AvgViews:    deref(v.PlayCount),
			TotalLikes:  a.Heart,
			TotalVideos: a.Video,
			Verified:    a.Verified,
		})
	}
	return out, nil
}

// DecodeInstagramExpand maps the labelled expansion rows onto source items.
func DecodeInstagramExpand(raw []byte) ([]scout.SourceItem, error) {
	var rows []instagramRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("apify: decode instagram items: %w", err)
	}
	out := make([]scout.SourceItem, 0, len(rows))
	for _, r := range rows {
		username := instagramUsername(r.Account)
		if username == "" {
			continue
		}
		out = append(out, scout.SourceItem{
			Platform:    scout.PlatformInstagram,
			Username:    username,
			DisplayName: r.FullName,
			Bio:         r.Biography,
			AvatarURL:   r.Picture,
			ProfileURL:  r.Account,
			Followers:   int64(r.Followers),
			AvgViews:    int64(r.AvgViews),
			TotalVideos: int64(r.PostsCount),
			ER:          parsePercent(r.MedianER),
			Verified:    r.Verified,
			Category:    r.Category,
			Email:       r.Email,
			Phone:       r.Phone,
		})
	}
	return out, nil
}

// DecodeTikTokAnalyze groups analyze output by lower-cased username and
// computes engagement. A profile seen without videos gets a zero result.
func DecodeTikTokAnalyze(raw []byte) (map[string]scout.Engagement, error) {
	var items []tiktokProfileItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("apify: decode tiktok analyze items: %w", err)
	}
	grouped := make(map[string][]scout.VideoStats)
	for _, item := range items {
		username := strings.ToLower(item.username())
		if username == "" {
			continue
		}
		videos := grouped[username]
		switch {
		case item.Videos != nil:
			for _, v := range item.Videos {
				videos = append(videos, v.stats())
			}
		case item.PlayCount != nil || item.DiggCount != nil:
			videos = append(videos, item.stats())
		}
		grouped[username] = videos
	}
	out := make(map[string]scout.Engagement, len(grouped))
	for username, videos := range grouped {
		out[username] = scout.AnalyzeEngagement(videos)
	}
	return out, nil
}

func (i tiktokProfileItem) username() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.UniqueID != "":
		return i.UniqueID
	case i.AuthorMeta != nil && i.AuthorMeta.Name != "":
		return i.AuthorMeta.Name
	case i.Author != nil:
		return i.Author.UniqueID
	default:
		return ""
	}
}

func (v tiktokVideo) stats() scout.VideoStats {
	return scout.VideoStats{
		Plays:    deref(v.PlayCount),
		Likes:    deref(v.DiggCount),
		Comments: v.CommentCount,
		Shares:   v.ShareCount,
	}
}

func instagramUsername(account string) string {
	u := strings.TrimSpace(account)
	for _, prefix := range []string{"https://www.instagram.com/", "https://instagram.com/", "http://www.instagram.com/", "http://instagram.com/"} {
		u = strings.TrimPrefix(u, prefix)
	}
	return strings.Trim(u, "/@ ")
}

func parsePercent(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
	if err != nil {
		return 0
	}
	return v
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// flexInt accepts JSON numbers and numeric strings; anything else ("N/A")
// decodes to zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil //nolint:nilerr // unparseable counts are treated as unknown
	}
	*f = flexInt(math.Round(v))
	return nil
}
