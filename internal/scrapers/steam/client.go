// Package steam scrapes steam community pages for friend lists, group member
// lists and wishlists.
//
// Everything in here depends on the markup of a third party site, selectors are
// kept in one place per page so they are easy to update when the layout changes.
package steam

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"steamwishlist/internal/collector"
	"steamwishlist/internal/components/assert"
	"steamwishlist/internal/components/telemetry"
	"steamwishlist/internal/wishlist"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_friends       = "client.friends"
	report_client_group_members = "client.group-members"
	report_client_wishlist      = "client.wishlist"
)

const (
	DefaultBaseUrl   = "https://steamcommunity.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

var tracer = otel.Tracer("steamwishlist/scrapers/steam")

type ClientOptions struct {
	BaseUrl   string
	Timeout   time.Duration
	UserAgent string
	// Dump can be nil, if it isn't every http exchange is written to it.
	Dump telemetry.InstrumentOutput
}

// Client implements collector.Enumerator and collector.Fetcher.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	tel     telemetry.API
}

var _ collector.Enumerator = (*Client)(nil)
var _ collector.Fetcher = (*Client)(nil)

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")

	tel = telemetry.NewScopedAPI("steam_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %s", opts.BaseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	// steam answers the language of the request, keep the markup predictable
	httpClient.SetHeader("accept-language", "en-US,en;q=0.9")
	httpClient.SetCookie(&http.Cookie{Name: "Steam_Language", Value: "english"})

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		baseUrl: baseUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

func (c *Client) getDocument(ctx context.Context, endpoint *url.URL) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch: unexpected status %s", res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return doc, nil
}

// Members implements collector.Enumerator.
func (c *Client) Members(ctx context.Context, target string, mode collector.Mode) ([]wishlist.Member, error) {
	if mode == collector.ModeGroup {
		return c.GroupMembers(ctx, target)
	}
	return c.Friends(ctx, target)
}

func (c *Client) Friends(ctx context.Context, profileId string) ([]wishlist.Member, error) {
	ctx, span := tracer.Start(ctx, "client:Friends")
	defer span.End()

	endpoint := c.baseUrl.JoinPath(profilePath(profileId)...).JoinPath("friends")
	span.SetAttributes(attribute.String("url.full", endpoint.String()))
	c.tel.ReportDebug(report_client_friends, endpoint.String())

	doc, err := c.getDocument(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get friends page")
		c.tel.ReportBroken(report_client_friends, err, endpoint.String())
		return nil, err
	}

	return parseFriends(endpoint, doc, c.tel), nil
}

func (c *Client) GroupMembers(ctx context.Context, groupId string) ([]wishlist.Member, error) {
	ctx, span := tracer.Start(ctx, "client:GroupMembers")
	defer span.End()

	endpoint := c.baseUrl.JoinPath(groupPath(groupId)...).JoinPath("members")
	span.SetAttributes(attribute.String("url.full", endpoint.String()))
	c.tel.ReportDebug(report_client_group_members, endpoint.String())

	doc, err := c.getDocument(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get group members page")
		c.tel.ReportBroken(report_client_group_members, err, endpoint.String())
		return nil, err
	}

	return parseGroupMembers(endpoint, doc, c.tel), nil
}

// Wishlist implements collector.Fetcher.
func (c *Client) Wishlist(ctx context.Context, member wishlist.Member) ([]wishlist.Item, error) {
	ctx, span := tracer.Start(ctx, "client:Wishlist")
	defer span.End()

	endpoint := c.baseUrl.JoinPath(profilePath(member.ID)...).JoinPath("wishlist")
	span.SetAttributes(attribute.String("url.full", endpoint.String()))
	c.tel.ReportDebug(report_client_wishlist, endpoint.String())

	doc, err := c.getDocument(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get wishlist page")
		c.tel.ReportBroken(report_client_wishlist, err, endpoint.String())
		return nil, err
	}

	items := parseWishlist(endpoint, doc, c.tel)
	span.SetAttributes(attribute.Int("steamwishlist.items", len(items)))
	return items, nil
}
