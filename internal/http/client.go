package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/dacsang97/mdbind/pkg/utils"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIBase   = "https://api.mangadex.org"
	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 5.0
	defaultUserAgent = "mdbind/1.0 (+https://github.com/dacsang97/mdbind)"
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	APIBase   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, <= 0 disables pacing
	UserAgent string
	Trace     io.Writer
}

// Client represents an HTTP client for the MangaDex API. It carries no run
// state and may be shared. API calls are paced; image downloads from the
// at-home nodes go through a separate, unpaced client.
type Client struct {
	client  *resty.Client
	images  *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a new HTTP client
func NewClient(opts Options) *Client {
	base := strings.TrimSuffix(lo.Ternary(opts.APIBase != "", opts.APIBase, DefaultAPIBase), "/")
	timeout := lo.Ternary(opts.Timeout > 0, opts.Timeout, DefaultTimeout)
	userAgent := lo.Ternary(opts.UserAgent != "", opts.UserAgent, defaultUserAgent)

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetHeaders(map[string]string{
		"Accept":     "application/json",
		"User-Agent": userAgent,
	})

	images := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	images.SetHeaders(map[string]string{
		"Accept":     "image/*, */*;q=0.8",
		"User-Agent": userAgent,
	})

	c := &Client{client: client, images: images}

	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return c.limiter.Wait(req.Context())
		})
	}

	if opts.Trace != nil {
		trace := opts.Trace
		traceHook := func(_ *resty.Client, resp *resty.Response) error {
			fmt.Fprintf(trace, "[*] GET %s -> %d (%s)\n", resp.Request.URL, resp.StatusCode(), resp.Time().Round(time.Millisecond))
			return nil
		}
		client.OnAfterResponse(traceHook)
		images.OnAfterResponse(traceHook)
	}

	return c
}

// GetAggregate fetches the volume/chapter aggregate of a work. When languages
// is non-empty the service is asked to list only those translations.
func (c *Client) GetAggregate(ctx context.Context, workID string, languages []string) (models.AggregateResponse, error) {
	fail := func(op string, err error) (models.AggregateResponse, error) {
		return models.AggregateResponse{}, &models.CatalogFetchError{WorkID: workID, Op: op, Err: err}
	}

	query := url.Values{}
	for _, lang := range lo.Uniq(languages) {
		query.Add("translatedLanguage[]", lang)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		SetPathParam("id", workID).
		Get("/manga/{id}/aggregate")
	if err != nil {
		return fail("request", err)
	}

	var payload models.AggregateResponse
	if err := utils.HandleJSONResponse(resp, &payload, "API: unable to retrieve aggregate"); err != nil {
		return fail("response", err)
	}
	return payload, nil
}

// GetChapter fetches and validates the metadata of one chapter
func (c *Client) GetChapter(ctx context.Context, chapterID string) (models.ChapterMeta, error) {
	fail := func(op string, err error) (models.ChapterMeta, error) {
		return models.ChapterMeta{}, &models.MetadataFetchError{ChapterID: chapterID, Op: op, Err: err}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", chapterID).
		Get("/chapter/{id}")
	if err != nil {
		return fail("request", err)
	}

	var payload models.ChapterResponse
	if err := utils.HandleJSONResponse(resp, &payload, "API: unable to retrieve chapter"); err != nil {
		return fail("response", err)
	}

	meta, err := chapterMeta(payload)
	if err != nil {
		return fail("validate", err)
	}
	return meta, nil
}

// GetBytes downloads an absolute URL, typically a page image. It is not
// subject to the API rate limit.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if !utils.IsAbsoluteURL(rawURL) {
		return nil, fmt.Errorf("not an absolute URL: %q", rawURL)
	}

	resp, err := c.images.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, utils.WrapError(err, "download "+rawURL)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode(), rawURL)
	}
	if len(resp.Body()) == 0 {
		return nil, errors.New("empty response body")
	}
	return resp.Body(), nil
}

func chapterMeta(payload models.ChapterResponse) (models.ChapterMeta, error) {
	if payload.Result != "ok" {
		return models.ChapterMeta{}, resultError(payload.Result, payload.Errors)
	}
	if payload.Data == nil {
		return models.ChapterMeta{}, errors.New("missing data")
	}
	if payload.Data.ID == nil || *payload.Data.ID == "" {
		return models.ChapterMeta{}, errors.New("missing data.id")
	}
	attrs := payload.Data.Attributes
	if attrs == nil {
		return models.ChapterMeta{}, errors.New("missing data.attributes")
	}
	if attrs.TranslatedLanguage == nil || *attrs.TranslatedLanguage == "" {
		return models.ChapterMeta{}, errors.New("missing data.attributes.translatedLanguage")
	}

	return models.ChapterMeta{
		ID:          *payload.Data.ID,
		Language:    *attrs.TranslatedLanguage,
		Chapter:     lo.FromPtr(attrs.Chapter),
		Volume:      lo.FromPtr(attrs.Volume),
		Title:       lo.FromPtr(attrs.Title),
		Pages:       lo.FromPtr(attrs.Pages),
		ExternalURL: lo.FromPtr(attrs.ExternalURL),
	}, nil
}

func resultError(result string, apiErrors []models.APIError) error {
	if summary := models.APIErrorSummary(apiErrors); summary != "" {
		return fmt.Errorf("result %q: %s", result, summary)
	}
	return fmt.Errorf("result %q", result)
}
