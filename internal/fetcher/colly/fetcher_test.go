package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/kolscout/internal/enrich"
)

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "kolscout-test", RespectRobots: false, Timeout: time.Second})
	collector := f.buildCollector(enrich.FetchRequest{URL: "https://tiktok.com/@a"}, time.Unix(0, 0), &enrich.FetchResponse{}, new(error))
	if collector.UserAgent != "kolscout-test" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if !collector.IgnoreRobotsTxt {
		t.Fatal("expected robots txt to be ignored")
	}
	if !collector.AllowURLRevisit {
		t.Fatal("expected revisits to be allowed")
	}
	if collector.MaxBodySize != maxProfileBytes {
		t.Fatalf("expected body cap %d, got %d", maxProfileBytes, collector.MaxBodySize)
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	req := enrich.FetchRequest{
		URL:     "https://www.instagram.com/rani",
		Headers: http.Header{"Accept-Language": {"id-ID"}},
	}
	var result enrich.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &fetchErr)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	if collyReq.Headers.Get("Accept-Language") != "id-ID" {
		t.Fatalf("expected header propagation, got %+v", collyReq.Headers)
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("<html></html>"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://www.instagram.com/rani")},
	})
	if result.StatusCode != http.StatusOK || string(result.Body) != "<html></html>" || result.UsedHeadless {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Headers.Get("X-Resp") != "ok" {
		t.Fatalf("expected headers copied, got %+v", result.Headers)
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}

	hooks.onError(&colly.Response{StatusCode: http.StatusNotFound}, errors.New("Not Found"))
	if !errors.Is(fetchErr, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", fetchErr)
	}

	fetchErr = nil
	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Headers:    &http.Header{},
		Request:    &colly.Request{URL: mustParseURL(t, "https://www.instagram.com/accounts/login/?next=/rani/")},
	})
	if !errors.Is(fetchErr, ErrLoginWall) {
		t.Fatalf("expected ErrLoginWall, got %v", fetchErr)
	}
}

func TestIsLoginWall(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://www.instagram.com/accounts/login/": true,
		"https://www.tiktok.com/login?redirect=x":   true,
		"https://www.tiktok.com/@loginqueen":        false,
		"https://www.instagram.com/rani/":           false,
	}
	for raw, want := range cases {
		if got := isLoginWall(mustParseURL(t, raw)); got != want {
			t.Fatalf("isLoginWall(%q) = %v, want %v", raw, got, want)
		}
	}
	if isLoginWall(nil) {
		t.Fatal("nil url is not a login wall")
	}
}

func TestFetchAgainstServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<meta property="og:description" content="hi">`))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second})
	for i := 0; i < 2; i++ {
		resp, err := f.Fetch(context.Background(), enrich.FetchRequest{URL: srv.URL + "/@dinda"})
		if err != nil {
			t.Fatalf("Fetch() #%d error = %v", i, err)
		}
		if resp.StatusCode != http.StatusOK || len(resp.Body) == 0 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	}
	if _, err := f.Fetch(context.Background(), enrich.FetchRequest{URL: srv.URL + "/missing"}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound for 404, got %v", err)
	}
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(enrich.FetchRequest{}, collyReq)
	if len(*collyReq.Headers) != 0 {
		t.Fatalf("expected no headers to be copied, got %+v", *collyReq.Headers)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
