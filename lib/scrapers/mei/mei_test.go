package mei

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"oppfinder-backend/lib/opportunity"
	"oppfinder-backend/lib/pagecache"
	"oppfinder-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const listingPage = `<html><body>
<ul>
	<li><a href="/about">About</a></li>
	<li><a href="/fellowship-one">Graduate Research Fellowship</a>: support for graduate students</li>
	<li><a href="/fellowship-one">Graduate Research Fellowship</a>: duplicate row</li>
	<li><a href="https://external.example.org/travel">External Travel Grant</a>: Deadline: May 1, 2026</li>
	<li><a href="/x">Hi</a></li>
</ul>
</body></html>`

const detailPage = `<html><body>
<nav><a href="/events">Events</a></nav>
<main>
	<p>The Graduate Research Fellowship supports graduate students conducting research on the Middle East.</p>
	<p>A stipend of $5,000 is provided. Applications are due: March 6, 2026.</p>
</main>
</body></html>`

const externalPage = `<html><body>
<main>
	<h2>National Fellowships</h2>
	<p><a href="https://fellowships.example.org/prog">Example National Fellowship</a>: open to undergraduate students. Due: January 15, 2027.</p>
	<h2>University Programs</h2>
	<p><a href="https://www.columbia.edu/campus-fellowship">Campus Fellowship Program</a>: for U.S. citizens.</p>
	<p><a href="#top">Back to top</a></p>
	<p><a href="mailto:info@example.org">Contact us</a></p>
</main>
</body></html>`

func newTestServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/fellowships-and-grants":
			w.Write([]byte(listingPage))
		case "/fellowship-one":
			w.Write([]byte(detailPage))
		case "/external-fellowships":
			w.Write([]byte(externalPage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScrape(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/mei")()

	var requests atomic.Int64
	server := newTestServer(t, &requests)

	scraper := New(Options{
		BaseURL: server.URL,
		Cache:   pagecache.New(t.TempDir()),
	})

	opps, err := scraper.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 4)

	byName := map[string]opportunity.Opportunity{}
	for _, o := range opps {
		byName[o.Name] = o
	}

	internal := byName["Graduate Research Fellowship"]
	require.Equal(t, opportunity.GenerateID("Graduate Research Fellowship", "MEI"), internal.ID)
	require.Equal(t, "Middle East Institute", internal.Source)
	require.Equal(t, server.URL+"/fellowship-one", internal.URL)
	require.Equal(t, server.URL+"/fellowships-and-grants", internal.SourceURL)
	// detail page supplies description, deadline and funding
	require.Contains(t, internal.Description, "supports graduate students")
	require.Equal(t, "2026-03-06", internal.Deadline)
	require.Equal(t, "March 6, 2026", internal.DeadlineDisplay)
	require.Equal(t, []string{"$5,000"}, internal.Tags[opportunity.CategoryFunding])
	require.Contains(t, internal.Tags[opportunity.CategoryLevel], "graduate")
	require.False(t, internal.ScrapedAt.IsZero())

	// external host rows are not followed, deadline comes from the row text
	external := byName["External Travel Grant"]
	require.Equal(t, "https://external.example.org/travel", external.URL)
	require.Equal(t, "2026-05-01", external.Deadline)
	require.Equal(t, "Deadline: May 1, 2026", external.Description)
}

func TestScrapeExternalFellowshipsPage(t *testing.T) {
	var requests atomic.Int64
	server := newTestServer(t, &requests)

	scraper := New(Options{
		BaseURL: server.URL,
		Cache:   pagecache.New(t.TempDir()),
	})

	opps, err := scraper.Scrape(context.Background())
	require.NoError(t, err)

	byName := map[string]opportunity.Opportunity{}
	for _, o := range opps {
		byName[o.Name] = o
	}

	national := byName["Example National Fellowship"]
	require.Equal(t, "National Fellowships", national.Source)
	require.Equal(t, "https://fellowships.example.org/prog", national.URL)
	require.Equal(t, "2027-01-15", national.Deadline)
	require.Contains(t, national.Tags[opportunity.CategoryLevel], "undergraduate")

	campus := byName["Campus Fellowship Program"]
	require.Equal(t, "Columbia - University Programs", campus.Source)
	require.Equal(t, []string{"us_citizen"}, campus.Tags[opportunity.CategoryCitizenship])

	// anchors and mailto links never become records
	require.NotContains(t, byName, "Back to top")
	require.NotContains(t, byName, "Contact us")
}

func TestScrapeUsesCache(t *testing.T) {
	var requests atomic.Int64
	server := newTestServer(t, &requests)
	cache := pagecache.New(t.TempDir())

	scraper := New(Options{BaseURL: server.URL, Cache: cache})

	first, err := scraper.Scrape(context.Background())
	require.NoError(t, err)
	fetched := requests.Load()
	require.Greater(t, fetched, int64(0))

	second, err := scraper.Scrape(context.Background())
	require.NoError(t, err)
	require.Equal(t, fetched, requests.Load())
	require.Equal(t, len(first), len(second))
}

func TestScrapeListingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	scraper := New(Options{BaseURL: server.URL, Cache: pagecache.New(t.TempDir())})
	_, err := scraper.Scrape(context.Background())
	require.Error(t, err)
}

func TestOwns(t *testing.T) {
	scraper := New(Options{Cache: pagecache.New(t.TempDir())})
	require.Equal(t, "MEI", scraper.Name())

	require.True(t, scraper.Owns(opportunity.Opportunity{
		SourceURL: "https://www.mei.columbia.edu/fellowships-and-grants",
	}))
	require.False(t, scraper.Owns(opportunity.Opportunity{
		SourceURL: "https://www.urf.columbia.edu/urf/opportunity/search",
	}))
}
