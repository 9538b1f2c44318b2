package enrich_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kolscout/internal/enrich"
	"github.com/JakeFAU/kolscout/internal/headless/detector"
	"github.com/JakeFAU/kolscout/internal/metrics"
	"github.com/JakeFAU/kolscout/internal/scout"
)

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, req enrich.FetchRequest) (enrich.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req.URL)
	if s.err != nil {
		return enrich.FetchResponse{}, s.err
	}
	body, ok := s.pages[req.URL]
	if !ok {
		return enrich.FetchResponse{URL: req.URL, StatusCode: http.StatusNotFound}, nil
	}
	return enrich.FetchResponse{URL: req.URL, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func (s *stubFetcher) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type countingLimiter struct {
	mu sync.Mutex
	n  int
}

func (c *countingLimiter) Wait(context.Context, string) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func TestResolveBiosFillsOnlyEmptyBios(t *testing.T) {
	t.Parallel()
	metrics.Init()

	static := &stubFetcher{pages: map[string]string{
		"https://tiktok.com/@dinda": `<html><head><meta property="og:description" content="Endorse WA 081234567890"></head></html>`,
	}}
	limiter := &countingLimiter{}
	r := enrich.NewResolver(enrich.Config{Concurrency: 2}, static, nil, nil, limiter, nil)

	in := []scout.SourceItem{
		{Platform: scout.PlatformTikTok, Username: "dinda"},
		{Platform: scout.PlatformTikTok, Username: "kept", Bio: "already here"},
		{Platform: scout.PlatformTikTok, Username: "ghost"},
		{Platform: scout.PlatformTikTok},
	}
	out := r.ResolveBios(context.Background(), in)

	require.Len(t, out, 4)
	assert.Equal(t, "Endorse WA 081234567890", out[0].Bio)
	assert.Equal(t, "already here", out[1].Bio)
	assert.Empty(t, out[2].Bio)
	assert.Empty(t, in[0].Bio, "input must not be mutated")
	assert.ElementsMatch(t, []string{"https://tiktok.com/@dinda", "https://tiktok.com/@ghost"}, static.called())
	assert.Equal(t, 2, limiter.n)
}

func TestResolveBiosPromotesShells(t *testing.T) {
	t.Parallel()
	metrics.Init()

	url := "https://www.instagram.com/rani"
	static := &stubFetcher{pages: map[string]string{url: `<div id="root"></div><script>` + string(make([]byte, 10)) + `</script>`}}
	rendered := &stubFetcher{pages: map[string]string{url: `<h2 data-e2e="user-bio">mail rani@x.id</h2>`}}
	r := enrich.NewResolver(enrich.Config{}, static, rendered, detector.NewHeuristic(0), nil, nil)

	out := r.ResolveBios(context.Background(), []scout.SourceItem{
		{Platform: scout.PlatformInstagram, Username: "rani", ProfileURL: url},
	})
	assert.Equal(t, "mail rani@x.id", out[0].Bio)
	assert.Equal(t, []string{url}, rendered.called())
}

func TestResolveBiosSwallowsErrors(t *testing.T) {
	t.Parallel()
	metrics.Init()

	static := &stubFetcher{err: errors.New("connection reset")}
	r := enrich.NewResolver(enrich.Config{}, static, nil, nil, nil, nil)
	out := r.ResolveBios(context.Background(), []scout.SourceItem{{Platform: scout.PlatformTikTok, Username: "a"}})
	assert.Empty(t, out[0].Bio)
}

func TestParseBioPreference(t *testing.T) {
	t.Parallel()

	bio, err := enrich.ParseBio([]byte(`<meta name="description" content="generic">
		<meta property="og:description" content="  og text  ">`))
	require.NoError(t, err)
	assert.Equal(t, "og text", bio)

	bio, err = enrich.ParseBio([]byte(`<meta name="description" content="fallback"><meta property="og:description" content="">`))
	require.NoError(t, err)
	assert.Equal(t, "fallback", bio)

	bio, err = enrich.ParseBio([]byte(`<p>nothing</p>`))
	require.NoError(t, err)
	assert.Empty(t, bio)
}
