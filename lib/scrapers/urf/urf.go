// Package urf scrapes Columbia's Undergraduate Research & Fellowships
// opportunity search. The search sits behind CAS login, so requests
// carry session cookies captured from a browser; detail pages supply
// descriptions, deadline/opens fields and an optional external program
// website that is followed once when URF itself lists no deadline.
package urf

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
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

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/urf")

const DefaultBaseURL = "https://urf.columbia.edu"
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

const searchPageCount = 7

var ErrNoCookies = fmt.Errorf(
	"no URF session cookies configured; log into URF in a browser and copy its cookies into the cookies file",
)
var ErrSessionExpired = fmt.Errorf("URF session expired or cookies invalid; got redirected to login")

type Options struct {
	BaseURL   string
	UserAgent string
	// session cookies by name, captured from a logged-in browser
	Cookies  map[string]string
	Cache    pagecache.Cache
	CacheTTL time.Duration
	Timeout  time.Duration
}

type Scraper struct {
	baseURL   string
	http      *resty.Client
	external  *resty.Client
	cache     pagecache.Cache
	ttl       time.Duration
	ruleset   tags.Ruleset
	hasAuth   bool
	searchURL string
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
	for name, value := range opts.Cookies {
		client.SetCookie(&http.Cookie{Name: name, Value: value})
	}
	telemetry.InstrumentResty(client, "scrapers/urf/http")

	// external program sites are slower and less important, give them
	// a shorter leash. some sit behind cloudflare, so the transport
	// carries browser-shaped headers.
	external := resty.New()
	external.SetHeader("user-agent", opts.UserAgent)
	external.SetTimeout(time.Second * 15)
	external.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(external.GetClient().Transport)
	telemetry.InstrumentResty(external, "scrapers/urf/external_http")

	return &Scraper{
		baseURL:   opts.BaseURL,
		http:      client,
		external:  external,
		cache:     opts.Cache,
		ttl:       opts.CacheTTL,
		ruleset:   tags.URF(),
		hasAuth:   len(opts.Cookies) > 0,
		searchURL: opts.BaseURL + "/opportunity/search",
	}
}

func (s *Scraper) Name() string {
	return "URF"
}

func (s *Scraper) Owns(o opportunity.Opportunity) bool {
	return o.Source == "URF"
}

// fetch retrieves a gated page with session cookies. Gated content is
// never cached on disk.
func (s *Scraper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, err
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil &&
		strings.Contains(res.RawResponse.Request.URL.String(), "cas.columbia.edu") {
		return nil, ErrSessionExpired
	}
	if res.IsError() {
		return nil, fmt.Errorf("unexpected status fetching %s: %s", url, res.Status())
	}
	return goquery.NewDocumentFromReader(strings.NewReader(string(res.Body())))
}

// basic listing info off a search result row; detail pages fill in the
// rest
type searchRow struct {
	Name        string
	URL         string
	Discipline  string
	Eligibility string
}

var opportunityHref = regexp.MustCompile(`/(fellowship|opportunity)/`)

// row selectors tried in order; the site's markup has shifted between
// Drupal view themes before
var rowSelectors = []string{
	".views-row",
	".view-content .views-row",
	".opportunity-row",
	"table.views-table tbody tr",
	".view-opportunity-search .views-row",
}

func (s *Scraper) scrapeSearchPage(ctx context.Context, page int) ([]searchRow, error) {
	url := s.searchURL
	if page > 0 {
		url = fmt.Sprintf("%s?page=%d", s.searchURL, page)
	}
	slog.InfoContext(ctx, "scraping search page", "page", page+1, "url", url)

	doc, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var items *goquery.Selection
	for _, selector := range rowSelectors {
		items = doc.Find(selector)
		if items.Length() > 0 {
			slog.DebugContext(ctx, "found search rows", "selector", selector, "count", items.Length())
			break
		}
	}

	var rows []searchRow
	if items == nil || items.Length() == 0 {
		// last resort: pull anything that links to an opportunity page
		doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			if !opportunityHref.MatchString(href) {
				return
			}
			name := htmlutil.Text(link)
			if len(name) <= 5 {
				return
			}
			rows = append(rows, searchRow{Name: name, URL: s.absoluteURL(href)})
		})
		slog.InfoContext(ctx, "fell back to link extraction", "found", len(rows))
		return rows, nil
	}

	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return opportunityHref.MatchString(href)
		}).First()
		if link.Length() == 0 {
			return
		}

		name := htmlutil.Text(link)
		href, _ := link.Attr("href")
		if len(name) < 5 {
			return
		}

		rows = append(rows, searchRow{
			Name:        name,
			URL:         s.absoluteURL(href),
			Discipline:  htmlutil.Text(item.Find("[class*='field-discipline']").First()),
			Eligibility: htmlutil.Text(item.Find("[class*='eligibility']").First()),
		})
	})

	slog.InfoContext(ctx, "scraped search page", "page", page+1, "found", len(rows))
	return rows, nil
}

func (s *Scraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return s.baseURL + href
	}
	return href
}

func (s *Scraper) scrapeAllPages(ctx context.Context) ([]searchRow, error) {
	var all []searchRow
	for page := 0; page < searchPageCount; page++ {
		rows, err := s.scrapeSearchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			slog.InfoContext(ctx, "empty search page, stopping pagination", "page", page+1)
			break
		}
		all = append(all, rows...)
	}
	slog.InfoContext(ctx, "finished search pagination", "total", len(all))
	return all, nil
}

type detailData struct {
	fullText        string
	deadlineISO     string
	deadlineDisplay string
	opensISO        string
	opensDisplay    string
	funding         []string
	externalURL     string
}

var opensTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)applications?\s+open[s:]?\s*(?:on\s+)?[A-Za-z]+\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`),
	regexp.MustCompile(`(?i)open[s]?\s+(?:on\s+)?[A-Za-z]+\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`),
	regexp.MustCompile(`(?i)available\s+(?:starting\s+)?[A-Za-z]+\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`),
}

func (s *Scraper) scrapeDetailPage(ctx context.Context, url string) (detailData, error) {
	ctx, span := tracer.Start(ctx, "scrapeDetailPage")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	doc, err := s.fetch(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch detail page")
		return detailData{}, err
	}

	var fullText string
	body := doc.Find("div.field-name-body")
	if body.Length() > 0 {
		fullText = htmlutil.Text(body)
	} else {
		main := doc.Find("main")
		if main.Length() == 0 {
			main = doc.Find("article")
		}
		if main.Length() == 0 {
			main = doc.Find(".node-content")
		}
		if main.Length() > 0 {
			htmlutil.StripChrome(main)
			fullText = htmlutil.Text(main)
		}
	}

	data := detailData{fullText: fullText}

	opensField := doc.Find("[class*='opens'], [class*='open-date'], [class*='start-date']").First()
	if opensField.Length() > 0 {
		data.opensISO, data.opensDisplay = deadline.ParseField(htmlutil.Text(opensField))
	}
	if data.opensDisplay == "" {
		for _, p := range opensTextPatterns {
			if match := p.FindString(fullText); match != "" {
				data.opensISO, data.opensDisplay = deadline.ParseField(match)
				break
			}
		}
	}

	deadlineField := doc.Find("[class*='deadline']").First()
	if deadlineField.Length() > 0 {
		data.deadlineISO, data.deadlineDisplay = deadline.Parse(htmlutil.Text(deadlineField))
	}
	if data.deadlineDisplay == "" {
		data.deadlineISO, data.deadlineDisplay = deadline.Parse(fullText)
	}

	data.funding = tags.ExtractFunding(fullText, 3)
	data.externalURL = s.findExternalURL(doc)

	// URF entries often say "see program website"; follow it once
	// before giving up on a deadline
	if data.deadlineDisplay == "" && data.externalURL != "" {
		slog.DebugContext(ctx, "following external program site", "url", data.externalURL)
		iso, display, funding := s.scrapeExternalPage(ctx, data.externalURL)
		data.deadlineISO = iso
		data.deadlineDisplay = display
		if len(data.funding) == 0 {
			data.funding = funding
		}
	}

	return data, nil
}

func (s *Scraper) findExternalURL(doc *goquery.Document) string {
	link := doc.Find("[class*='fellowship-website'] a[href], [class*='program-website'] a[href]").First()
	if href, ok := link.Attr("href"); ok {
		return href
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(htmlutil.Text(a))
		if !strings.Contains(text, "visit") || !strings.Contains(text, "website") {
			return true
		}
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "http") && !strings.Contains(href, "columbia.edu") {
			found = href
			return false
		}
		return true
	})
	return found
}

// scrapeExternalPage fetches a program's own site looking for a
// deadline. Failures degrade to nothing found; an unreachable external
// site never fails the URF record.
func (s *Scraper) scrapeExternalPage(ctx context.Context, url string) (iso, display string, funding []string) {
	content, ok := s.cache.Get(ctx, url, s.ttl)
	if !ok {
		res, err := s.external.R().
			SetContext(ctx).
			Get(url)
		if err != nil || res.IsError() {
			slog.WarnContext(ctx, "failed to fetch external site", "url", url)
			return "", "", nil
		}
		content = string(res.Body())
		err = s.cache.Set(ctx, url, content)
		if err != nil {
			slog.WarnContext(ctx, "failed to cache external site", "url", url, "err", err)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", "", nil
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return "", "", nil
	}
	htmlutil.StripChrome(body)
	text := htmlutil.Text(body)

	iso, display = deadline.Parse(text)
	return iso, display, tags.ExtractFunding(text, 3)
}

func (s *Scraper) Scrape(ctx context.Context) ([]opportunity.Opportunity, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	if !s.hasAuth {
		span.SetStatus(codes.Error, "missing cookies")
		return nil, ErrNoCookies
	}

	rows, err := s.scrapeAllPages(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape search pages")
		return nil, err
	}

	var opps []opportunity.Opportunity
	for i, row := range rows {
		slog.InfoContext(ctx, "fetching detail page",
			"progress", fmt.Sprintf("%d/%d", i+1, len(rows)),
			"name", textutil.Truncate(row.Name, 50),
		)

		description := row.Discipline

		details, err := s.scrapeDetailPage(ctx, row.URL)
		if err != nil {
			slog.WarnContext(ctx, "detail page failed, keeping row data", "url", row.URL, "err", err)
		}
		if details.fullText != "" {
			description = textutil.Truncate(details.fullText, 800)
		}

		inferred := s.ruleset.Infer(row.Name + " " + description + " " + row.Eligibility)
		fieldTags := tags.NormalizeDiscipline(row.Discipline)
		if len(fieldTags) > 0 {
			if inferred == nil {
				inferred = opportunity.Tags{}
			}
			for _, f := range fieldTags {
				inferred.Add(opportunity.CategoryField, f)
			}
		}
		if len(details.funding) > 0 {
			if inferred == nil {
				inferred = opportunity.Tags{}
			}
			inferred[opportunity.CategoryFunding] = details.funding
		}

		opps = append(opps, opportunity.Opportunity{
			ID:              opportunity.GenerateID(row.Name, "URF"),
			Name:            row.Name,
			Description:     description,
			URL:             row.URL,
			Source:          "URF",
			SourceURL:       s.searchURL,
			Tags:            inferred,
			Deadline:        details.deadlineISO,
			DeadlineDisplay: details.deadlineDisplay,
			Opens:           details.opensISO,
			OpensDisplay:    details.opensDisplay,
			Discipline:      row.Discipline,
			ScrapedAt:       time.Now().UTC(),
		})
	}

	return oppstore.Dedupe(opps), nil
}
