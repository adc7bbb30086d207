package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/config"
)

const fixtureHTML = `<html><body>
<div class="build-section">
  <h2>Feudal Rush Build Orders</h2>
  <div class="build-card">
    <h3>Scout Rush</h3>
    <p>A beginner friendly opening, rushing with scouts. Feudal Age 510.</p>
  </div>
  <div class="build-card">
    <h3>Archer Rush</h3>
    <p>Advanced timing attack. Feudal Age 540.</p>
  </div>
  <div class="build-card">
    <p>A card that lost its heading somewhere.</p>
  </div>
</div>
<div class="guide-section">
  <h2>Fast Castle Guides</h2>
  <div class="build-card">
    <h3>Fast Castle Boom</h3>
    <p>Straight to Castle Age 1020, then boom on three town centers.</p>
  </div>
</div>
<div class="misc-section">
  <h2>General Tips</h2>
  <div class="build-card"><h3>Hotkeys Matter</h3></div>
</div>
</body></html>`

func parseFixture(t *testing.T, html string) []builds.Build {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return ParseDocument(doc)
}

func TestParseDocument(t *testing.T) {
	records := parseFixture(t, fixtureHTML)

	if len(records) != 3 {
		t.Fatalf("parsed %d builds, want 3 (nameless card and unknown section skipped)", len(records))
	}

	scout := records[0]
	if scout.Name != "Scout Rush" || scout.BuildType != builds.FeudalRush {
		t.Errorf("first record = %q/%s", scout.Name, scout.BuildType)
	}
	if scout.Difficulty != builds.Beginner {
		t.Errorf("Scout Rush difficulty = %s, want beginner (keyword in description)", scout.Difficulty)
	}
	if scout.FeudalAgeTime == nil || *scout.FeudalAgeTime != 510 {
		t.Errorf("Scout Rush feudal time = %v, want 510", scout.FeudalAgeTime)
	}
	if scout.CastleAgeTime != nil {
		t.Errorf("Scout Rush castle time should be absent, got %d", *scout.CastleAgeTime)
	}

	archer := records[1]
	if archer.Difficulty != builds.Advanced {
		t.Errorf("Archer Rush difficulty = %s, want advanced", archer.Difficulty)
	}

	fc := records[2]
	if fc.Name != "Fast Castle Boom" || fc.BuildType != builds.FastCastle {
		t.Errorf("third record = %q/%s", fc.Name, fc.BuildType)
	}
	if fc.Difficulty != builds.Intermediate {
		t.Errorf("no keyword should default to intermediate, got %s", fc.Difficulty)
	}
	if fc.CastleAgeTime == nil || *fc.CastleAgeTime != 1020 {
		t.Errorf("Fast Castle Boom castle time = %v, want 1020", fc.CastleAgeTime)
	}
}

func TestParseDocumentEmptyPage(t *testing.T) {
	records := parseFixture(t, `<html><body><p>maintenance</p></body></html>`)
	if len(records) != 0 {
		t.Fatalf("parsed %d builds from an empty page", len(records))
	}
}

func TestFetchBuilds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("missing browser User-Agent, got %q", ua)
		}
		w.Write([]byte(fixtureHTML))
	}))
	defer srv.Close()

	client := NewClient(&config.AppConfig{ScrapeBaseURL: srv.URL, ScrapeTimeout: 5 * time.Second})
	records, err := client.FetchBuilds(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("fetched %d builds, want 3", len(records))
	}
}

func TestFetchBuildsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(&config.AppConfig{ScrapeBaseURL: srv.URL, ScrapeTimeout: 5 * time.Second})
	if _, err := client.FetchBuilds(context.Background()); err == nil {
		t.Fatal("non-200 response must fail the whole fetch")
	}
}

func TestFetchBuildsUnreachable(t *testing.T) {
	client := NewClient(&config.AppConfig{ScrapeBaseURL: "http://127.0.0.1:1", ScrapeTimeout: time.Second})
	if _, err := client.FetchBuilds(context.Background()); err == nil {
		t.Fatal("unreachable upstream must fail the fetch")
	}
}
