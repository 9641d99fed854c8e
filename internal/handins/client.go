// client.go contains the login flow for handins, the rails app behind
// https://handins.ccs.neu.edu.

package handins

import (
	"bytes"
	"context"
	"fmt"
	"handins-grader/internal/components/assert"
	"handins-grader/internal/components/telemetry"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://handins.ccs.neu.edu"

const (
	report_client_new          = "client.new"
	report_client_authenticate = "client.authenticate"
)

var tracer = otel.Tracer("handins-grader/handins")

type ClientOptions struct {
	BaseUrl string
	// Timeout applies to each request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond limits how fast handins is hit, 0 means 2/s.
	RequestsPerSecond float64
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	// DumpDir, when set, receives every request and response as a text file.
	// Passwords and cookies are redacted.
	DumpDir string
}

// Client creates handins sessions. It holds no credentials or cookies itself,
// every call to Authenticate gets its own cookie jar.
type Client struct {
	baseUrl *url.URL
	opts    ClientOptions
	tel     telemetry.API
	dumper  *telemetry.Dumper
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil("tel", tel)
	assert.NonNegative("RequestsPerSecond", opts.RequestsPerSecond)

	tel = telemetry.NewScopedAPI("handins", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	opts.BaseUrl = strings.TrimSuffix(opts.BaseUrl, "/")
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		tel.ReportBroken(report_client_new, fmt.Errorf("parse base url: %w", err), opts.BaseUrl)
		return nil, err
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		err := fmt.Errorf("base url %q must be absolute", opts.BaseUrl)
		tel.ReportBroken(report_client_new, err)
		return nil, err
	}

	var dumper *telemetry.Dumper
	if opts.DumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			tel.ReportBroken(report_client_new, fmt.Errorf("create dump dir: %w", err), opts.DumpDir)
			return nil, err
		}
		dumper = telemetry.NewDumper(output)
	}

	return &Client{
		baseUrl: baseUrl,
		opts:    opts,
		tel:     tel,
		dumper:  dumper,
	}, nil
}

func (c *Client) BaseUrl() string {
	return c.baseUrl.String()
}

func (c *Client) newHttp() (*resty.Client, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(c.opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if c.opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.baseUrl.Hostname()))
	httpClient.SetTimeout(c.opts.Timeout)

	// burst of 1 so the login GET and POST are spaced out as well
	rateLimiter := rate.NewLimiter(rate.Limit(c.opts.RequestsPerSecond), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "handins-grader/handins/http", c.tel)
	if c.dumper != nil {
		c.dumper.Instrument(httpClient)
	}

	return httpClient, nil
}

// Credentials are handed to Authenticate and wiped right after, nothing
// keeps a reference to them.
type Credentials struct {
	Username string
	Password []byte
}

// Wipe zeroes the password bytes and forgets the username.
func (c *Credentials) Wipe() {
	for i := range c.Password {
		c.Password[i] = 0
	}
	c.Password = nil
	c.Username = ""
}

func csrfToken(doc *goquery.Document) string {
	return doc.Find("meta[name=csrf-token]").AttrOr("content", "")
}

func isLoginPage(doc *goquery.Document) bool {
	return doc.Find(`input[name="user[password]"]`).Length() > 0
}

// Authenticate logs into handins and returns a session that owns the
// resulting cookies. The credentials are only read, the caller is expected to
// Wipe them once this returns.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	ctx, span := tracer.Start(ctx, "client:Authenticate")
	defer span.End()

	fail := func(op string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		return &AuthError{Op: op, Err: err}
	}

	if creds.Username == "" || len(creds.Password) == 0 {
		return nil, fail("credentials", fmt.Errorf("username and password are required"))
	}

	httpClient, err := c.newHttp()
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("create http client: %w", err))
		return nil, fail("setup", err)
	}

	res, err := httpClient.R().
		SetContext(ctx).
		Get("/login/")
	if err != nil {
		c.tel.ReportWarning(report_client_authenticate, fmt.Errorf("login page request: %w", err))
		return nil, fail("fetch login page", err)
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status %s", res.Status())
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("login page request: %w", err))
		return nil, fail("fetch login page", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("parse login page: %w", err))
		return nil, fail("parse login page", err)
	}

	token := csrfToken(doc)
	if token == "" {
		err := fmt.Errorf("could not find csrf token")
		c.tel.ReportBroken(report_client_authenticate, err)
		return nil, fail("parse login page", err)
	}

	res, err = httpClient.R().
		SetContext(ctx).
		SetHeader("Referer", c.opts.BaseUrl+"/login/").
		SetFormData(map[string]string{
			"utf8":               "✓",
			"authenticity_token": token,
			"user[username]":     creds.Username,
			// the form encoder needs a string, this copy cannot be wiped
			"user[password]":     string(creds.Password),
			"commit":             "Log in",
		}).
		Post("/login/")
	if err != nil {
		c.tel.ReportWarning(report_client_authenticate, fmt.Errorf("login request: %w", err))
		return nil, fail("login request", err)
	}
	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("parse login response: %w", err))
		return nil, fail("parse login response", err)
	}

	if isLoginPage(doc) {
		return nil, fail("login request", ErrInvalidCredentials)
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status %s", res.Status())
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("login request: %w", err))
		return nil, fail("login request", err)
	}

	c.tel.ReportDebug("logged in")

	return &Session{
		baseUrl:   c.baseUrl,
		http:      httpClient,
		csrfToken: csrfToken(doc),
		tel:       c.tel,
	}, nil
}
