// Package scraper fetches build-order guides from aoecompanion.com and
// normalizes them into Build records. The site is an untrusted upstream: it
// may be slow, unreachable, or reorganized at any time, so the contract is
// simply "a list of well-formed records, or an error".
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
	"github.com/ShawnEdgell/aoe-builds-api/internal/config"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var (
	sectionClassRe = regexp.MustCompile(`section|build`)
	itemClassRe    = regexp.MustCompile(`build|card|item`)
	descClassRe    = regexp.MustCompile(`desc`)

	feudalTimeRe   = regexp.MustCompile(`Feudal Age (\d+)`)
	castleTimeRe   = regexp.MustCompile(`Castle Age (\d+)`)
	imperialTimeRe = regexp.MustCompile(`Imperial Age (\d+)`)
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg *config.AppConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.ScrapeTimeout},
		baseURL:    cfg.ScrapeBaseURL,
	}
}

// FetchBuilds downloads the guide page and extracts every recognizable
// build. Transport, HTTP status and parse-root failures fail the whole
// fetch; a single malformed guide entry is skipped with a warning instead,
// so one broken card cannot take the dataset down.
func (c *Client) FetchBuilds(ctx context.Context) ([]builds.Build, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", c.baseURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guide page request failed with status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse guide page HTML: %w", err)
	}

	records := ParseDocument(doc)
	slog.Info("Scraping completed", "builds_found", len(records), "duration", time.Since(start))
	return records, nil
}

// ParseDocument extracts builds from an already-parsed guide page. Split
// out from FetchBuilds so fixture HTML can exercise it directly.
func ParseDocument(doc *goquery.Document) []builds.Build {
	var records []builds.Build

	doc.Find("div").FilterFunction(classMatches(sectionClassRe)).Each(func(_ int, section *goquery.Selection) {
		title := section.Find("h2, h3, h4").First()
		if title.Length() == 0 {
			return
		}
		buildType, ok := determineBuildType(title.Text())
		if !ok {
			return
		}

		section.Find("div, article").FilterFunction(classMatches(itemClassRe)).Each(func(_ int, item *goquery.Selection) {
			b, ok := extractBuild(item, buildType)
			if !ok {
				slog.Warn("Skipping malformed guide entry", "build_type", buildType)
				return
			}
			records = append(records, b)
		})
	})

	return records
}

func classMatches(re *regexp.Regexp) func(int, *goquery.Selection) bool {
	return func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		return re.MatchString(strings.ToLower(class))
	}
}

func determineBuildType(titleText string) (builds.BuildType, bool) {
	title := strings.ToLower(strings.TrimSpace(titleText))
	switch {
	case strings.Contains(title, "feudal rush"):
		return builds.FeudalRush, true
	case strings.Contains(title, "fast castle"):
		return builds.FastCastle, true
	case strings.Contains(title, "dark age rush"), strings.Contains(title, "drush"):
		return builds.DarkAgeRush, true
	case strings.Contains(title, "water"):
		return builds.WaterMaps, true
	}
	return "", false
}

func extractBuild(item *goquery.Selection, buildType builds.BuildType) (builds.Build, bool) {
	name := strings.TrimSpace(item.Find("h3, h4, h5, strong, b").First().Text())
	if name == "" {
		return builds.Build{}, false
	}

	desc := item.Find("p").First()
	if desc.Length() == 0 {
		desc = item.Find("div").FilterFunction(classMatches(descClassRe)).First()
	}
	description := strings.TrimSpace(desc.Text())

	return builds.Build{
		Name:            name,
		Difficulty:      determineDifficulty(name, description),
		Description:     description,
		BuildType:       buildType,
		FeudalAgeTime:   extractAgeTime(feudalTimeRe, description),
		CastleAgeTime:   extractAgeTime(castleTimeRe, description),
		ImperialAgeTime: extractAgeTime(imperialTimeRe, description),
	}, true
}

func determineDifficulty(name, description string) builds.Difficulty {
	text := strings.ToLower(description + " " + name)
	switch {
	case strings.Contains(text, "beginner"):
		return builds.Beginner
	case strings.Contains(text, "advanced"):
		return builds.Advanced
	}
	return builds.Intermediate
}

func extractAgeTime(re *regexp.Regexp, description string) *int {
	m := re.FindStringSubmatch(description)
	if m == nil {
		return nil
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil || seconds < 0 {
		return nil
	}
	return &seconds
}
