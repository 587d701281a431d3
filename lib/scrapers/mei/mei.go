// Package mei scrapes fellowship and grant listings from Columbia's
// Middle East Institute site. Both listing pages are public; internal
// detail pages are followed for full descriptions and deadlines.
package mei

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oppfinder-backend/lib/deadline"
	"oppfinder-backend/lib/htmlutil"
	"oppfinder-backend/lib/opportunity"
	"oppfinder-backend/lib/oppstore"
	"oppfinder-backend/lib/pagecache"
	"oppfinder-backend/lib/tags"
	"oppfinder-backend/lib/telemetry"
	"oppfinder-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/mei")

const DefaultBaseURL = "https://www.mei.columbia.edu"
const defaultUserAgent = "Columbia Opportunity Finder (student project)"

const sourceLabel = "Middle East Institute"

// link path fragments that are site navigation, not opportunities
var skipHrefs = []string{"/about", "/people", "/events", "/news", "/contact", "/academics"}

type Options struct {
	BaseURL   string
	UserAgent string
	Cache     pagecache.Cache
	CacheTTL  time.Duration
	Timeout   time.Duration
}

type Scraper struct {
	baseURL string
	http    *resty.Client
	cache   pagecache.Cache
	ttl     time.Duration
	ruleset tags.Ruleset
}

func New(opts Options) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = pagecache.DefaultTTL
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	client := resty.New()
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)
	telemetry.InstrumentResty(client, "scrapers/mei/http")

	return &Scraper{
		baseURL: opts.BaseURL,
		http:    client,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		ruleset: tags.Default(),
	}
}

func (s *Scraper) Name() string {
	return "MEI"
}

func (s *Scraper) Owns(o opportunity.Opportunity) bool {
	return strings.Contains(o.SourceURL, "mei.columbia.edu")
}

func (s *Scraper) normalizeURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return s.baseURL + href
	}
	return s.baseURL + "/" + href
}

// fetch goes through the page cache so back-to-back runs do not
// re-download unchanged pages.
func (s *Scraper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if content, ok := s.cache.Get(ctx, url, s.ttl); ok {
		return goquery.NewDocumentFromReader(strings.NewReader(content))
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("unexpected status fetching %s: %s", url, res.Status())
	}

	err = s.cache.Set(ctx, url, string(res.Body()))
	if err != nil {
		slog.WarnContext(ctx, "failed to cache page", "url", url, "err", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(string(res.Body())))
}

func (s *Scraper) Scrape(ctx context.Context) ([]opportunity.Opportunity, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	internal, err := s.scrapeListing(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape listing page")
		return nil, err
	}
	external, err := s.scrapeExternalFellowships(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape external fellowships page")
		return nil, err
	}

	return oppstore.Dedupe(append(internal, external...)), nil
}

func (s *Scraper) scrapeListing(ctx context.Context) ([]opportunity.Opportunity, error) {
	pageURL := s.baseURL + "/fellowships-and-grants"
	slog.InfoContext(ctx, "scraping listing page", "url", pageURL)

	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var opps []opportunity.Opportunity
	seenHrefs := map[string]bool{}

	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}

		name := strings.TrimRight(htmlutil.Text(link), ":")
		if len(name) < 5 {
			return
		}
		if textutil.ContainsAny(href, skipHrefs...) {
			return
		}
		if seenHrefs[href] {
			return
		}
		seenHrefs[href] = true

		fullURL := s.normalizeURL(href)
		description := strings.TrimSpace(strings.TrimLeft(
			strings.TrimSpace(strings.Replace(htmlutil.Text(li), name, "", 1)),
			":",
		))
		var deadlineISO, deadlineDisplay string
		var funding []string

		// only internal detail pages are followed; external hosts get
		// whatever the listing row said
		if strings.HasPrefix(href, "/") && !strings.Contains(href, "mei.columbia.edu") {
			details, err := s.scrapeDetailPage(ctx, fullURL)
			if err != nil {
				slog.WarnContext(ctx, "skipping detail page", "url", fullURL, "err", err)
			} else {
				if details.fullText != "" {
					description = textutil.Truncate(details.fullText, 800)
				}
				deadlineISO = details.deadlineISO
				deadlineDisplay = details.deadlineDisplay
				funding = details.funding
			}
		}

		if deadlineDisplay == "" {
			deadlineISO, deadlineDisplay = deadline.Parse(description)
		}

		inferred := s.ruleset.Infer(name + " " + description)
		if len(funding) > 0 {
			if inferred == nil {
				inferred = opportunity.Tags{}
			}
			inferred[opportunity.CategoryFunding] = funding
		}

		opps = append(opps, opportunity.Opportunity{
			ID:              opportunity.GenerateID(name, "MEI"),
			Name:            name,
			Description:     description,
			URL:             fullURL,
			Source:          sourceLabel,
			SourceURL:       pageURL,
			Tags:            inferred,
			Deadline:        deadlineISO,
			DeadlineDisplay: deadlineDisplay,
			ScrapedAt:       time.Now().UTC(),
		})
	})

	slog.InfoContext(ctx, "scraped listing page", "found", len(opps))
	return opps, nil
}

type detailData struct {
	fullText        string
	deadlineISO     string
	deadlineDisplay string
	funding         []string
}

func (s *Scraper) scrapeDetailPage(ctx context.Context, url string) (detailData, error) {
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return detailData{}, err
	}

	main := doc.Find("main")
	if main.Length() == 0 {
		main = doc.Find("article")
	}
	if main.Length() == 0 {
		main = doc.Find("div.content")
	}
	if main.Length() == 0 {
		main = doc.Selection
	}

	var paragraphs []string
	main.Find("p, li, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		text := htmlutil.Text(sel)
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	fullText := strings.Join(paragraphs, "\n")

	iso, display := deadline.Parse(fullText)
	return detailData{
		fullText:        fullText,
		deadlineISO:     iso,
		deadlineDisplay: display,
		funding:         tags.ExtractFunding(fullText, 3),
	}, nil
}

func (s *Scraper) scrapeExternalFellowships(ctx context.Context) ([]opportunity.Opportunity, error) {
	pageURL := s.baseURL + "/external-fellowships"
	slog.InfoContext(ctx, "scraping external fellowships page", "url", pageURL)

	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	main := doc.Find("main")
	if main.Length() == 0 {
		main = doc.Find("article")
	}
	if main.Length() == 0 {
		main = doc.Selection
	}

	var opps []opportunity.Opportunity
	currentSection := "External"

	main.Find("h2, p").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "h2" {
			text := htmlutil.Text(sel)
			if len(text) > 3 {
				currentSection = text
			}
			return
		}

		link := sel.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return
		}
		if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "/external") &&
			textutil.ContainsAny(href, "/about", "/people", "/events", "/academics") {
			return
		}

		name := strings.TrimRight(htmlutil.Text(link), ":")
		if len(name) < 5 {
			return
		}

		fullText := htmlutil.Text(sel)
		description := fullText
		if idx := strings.Index(description, name); idx >= 0 {
			description = strings.TrimSpace(strings.TrimLeft(
				strings.TrimSpace(description[idx+len(name):]),
				":",
			))
		}
		description = textutil.Truncate(description, 500)

		// sections group fellowships by administering office; Columbia
		// links get a "Columbia - " prefix to keep sources distinct
		source := currentSection
		if strings.Contains(href, "columbia.edu") {
			source = "Columbia - " + currentSection
		}

		iso, display := deadline.Parse(description)

		opps = append(opps, opportunity.Opportunity{
			ID:              opportunity.GenerateID(name, source),
			Name:            name,
			Description:     description,
			URL:             s.normalizeURL(href),
			Source:          source,
			SourceURL:       pageURL,
			Tags:            s.ruleset.Infer(name + " " + description),
			Deadline:        iso,
			DeadlineDisplay: display,
			ScrapedAt:       time.Now().UTC(),
		})
	})

	slog.InfoContext(ctx, "scraped external fellowships page", "found", len(opps))
	return opps, nil
}
