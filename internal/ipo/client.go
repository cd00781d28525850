// Package ipo talks to the Avaya IP Office WebManagement SDK endpoint.
//
// The appliance hands out short-lived cookie sessions (JSESSIONID plus an
// SDK token) from a Basic-Auth GET, accepts resource calls carrying those
// cookies, and expects an explicit DELETE to log out. Response bodies are
// inconsistently shaped JSON (occasionally XML) and are normalized by
// envelope.go; this file owns session lifetime and raw transport.
package ipo

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// managementPort is the appliance's fixed administrative listener. A var so
// tests can point the client at an ephemeral local listener.
var managementPort = "7070"

const (
	managementBasePath = "/WebManagement/ws/sdk"
	// Older firmware registers the security service one level up.
	logoutFallbackBasePath = "/WebManagement/ws"
	authenticatePath       = "/security/authenticate"

	sessionCookieName  = "JSESSIONID"
	sdkTokenNamePart   = "sdk-token"
	protectedUserName  = "nouser"
	userAgentHeader    = "Avaya-SDKUser"
	userClientHeader   = "Avaya-WebAdmin"
	resourceAcceptSpec = "application/json, application/xml, text/xml;q=0.9, */*;q=0.8"
)

// Credentials identifies one appliance and how to reach it. The password may
// be empty (codeless service accounts exist in the field); host and username
// may not.
type Credentials struct {
	Host             string
	Username         string
	Password         string
	AllowInsecureTLS bool
}

// Session is the opaque merged cookie set returned by Authenticate.
type Session struct {
	CookieHeader string
}

// RawResponse is the unparsed result of one resource call.
type RawResponse struct {
	Status      int
	Body        string
	ContentType string
}

// DeauthResult reports the best-effort logout outcome for diagnostics only.
type DeauthResult struct {
	OK     bool
	Status int
	Body   string
}

// Options configures transport timeouts and side-channel logging.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Wire           *WireLogger
	Logger         *slog.Logger
}

// Client issues authenticated calls against appliance management endpoints.
// It holds no per-appliance state; credentials are supplied per call.
type Client struct {
	client         *http.Client
	insecureClient *http.Client
	wire           *WireLogger
	logger         *slog.Logger
}

func NewClient(opts Options) *Client {
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = 5 * time.Second
	}
	request := opts.RequestTimeout
	if request <= 0 {
		request = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	newTransport := func(insecure bool) *http.Transport {
		t := &http.Transport{
			DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: request,
		}
		if insecure {
			// Opt-in only: most appliances ship self-signed certificates.
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return t
	}

	return &Client{
		client:         &http.Client{Transport: newTransport(false), Timeout: request},
		insecureClient: &http.Client{Transport: newTransport(true), Timeout: request},
		wire:           opts.Wire,
		logger:         logger,
	}
}

func (c *Client) httpClient(creds Credentials) *http.Client {
	if creds.AllowInsecureTLS {
		return c.insecureClient
	}
	return c.client
}

// BaseURL forces the fixed management port and base path onto the host.
// Any scheme, port, path, or query already present on the host is discarded.
func BaseURL(host string) string {
	return baseAddress(host) + managementBasePath
}

func baseAddress(host string) string {
	h := strings.TrimSpace(host)
	if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
		h = "https://" + h
	}
	name := h
	if u, err := url.Parse(h); err == nil && u.Hostname() != "" {
		name = u.Hostname()
	}
	return "https://" + net.JoinHostPort(name, managementPort)
}

func setCommonHeaders(req *http.Request) {
	req.Header.Set("X-User-Agent", userAgentHeader)
	req.Header.Set("X-User-Client", userClientHeader)
}

// Authenticate obtains a session cookie bundle for the given appliance.
// HTTP success alone is not enough: the merged cookie header must contain
// both the web session cookie and an SDK token, or the appliance has not
// actually granted a usable session.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	u := BaseURL(creds.Host) + authenticatePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Session{}, fmt.Errorf("build authenticate request: %w", err)
	}
	setCommonHeaders(req)
	req.Header.Set("Accept", "application/json, */*")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient(creds).Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("authenticate against %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Session{}, &AuthError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        string(body),
		}
	}

	header := MergeCookieHeader(resp.Header.Values("Set-Cookie"))
	if !hasRequiredTokens(header) {
		return Session{}, &AuthError{
			Status: resp.StatusCode,
			Reason: "response did not include both a session cookie and an SDK token",
		}
	}

	return Session{CookieHeader: header}, nil
}

// MergeCookieHeader reduces a list of Set-Cookie values to one Cookie header:
// session cookie first, SDK token second, remaining cookies in encounter
// order, one pair per name with the last-seen value winning.
func MergeCookieHeader(setCookies []string) string {
	pairs := cookiePairs(setCookies)

	names := make([]string, 0, len(pairs))
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key := strings.ToLower(p.name)
		if _, seen := values[key]; !seen {
			names = append(names, p.name)
		}
		values[key] = p.value
	}

	var session, token string
	rest := make([]string, 0, len(names))
	for _, name := range names {
		pair := name + "=" + values[strings.ToLower(name)]
		switch {
		case strings.EqualFold(name, sessionCookieName):
			session = pair
		case strings.Contains(strings.ToLower(name), sdkTokenNamePart):
			token = pair
		default:
			rest = append(rest, pair)
		}
	}

	ordered := make([]string, 0, len(names))
	if session != "" {
		ordered = append(ordered, session)
	}
	if token != "" {
		ordered = append(ordered, token)
	}
	ordered = append(ordered, rest...)

	return strings.Join(ordered, "; ")
}

type cookiePair struct {
	name  string
	value string
}

func cookiePairs(setCookies []string) []cookiePair {
	raw := setCookies
	// Some front ends fold every Set-Cookie into one comma-joined header.
	// Split heuristically; cookie values themselves rarely contain commas,
	// and expiry dates (which do) live after the first ";" we discard anyway.
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		var split []string
		for _, part := range strings.Split(raw[0], ",") {
			part = strings.TrimSpace(part)
			if eq := strings.Index(part, "="); eq > 0 && !strings.ContainsAny(part[:eq], " ;") {
				split = append(split, part)
			}
		}
		if len(split) > 1 {
			raw = split
		}
	}

	pairs := make([]cookiePair, 0, len(raw))
	for _, sc := range raw {
		first := strings.TrimSpace(strings.SplitN(sc, ";", 2)[0])
		eq := strings.Index(first, "=")
		if eq <= 0 {
			continue
		}
		pairs = append(pairs, cookiePair{name: first[:eq], value: first[eq+1:]})
	}
	return pairs
}

func hasRequiredTokens(cookieHeader string) bool {
	lower := strings.ToLower(cookieHeader)
	return strings.Contains(lower, strings.ToLower(sessionCookieName)+"=") &&
		strings.Contains(lower, sdkTokenNamePart)
}

// Deauthenticate logs the session out, trying the current firmware path and
// then the legacy one, stopping at the first HTTP success. Callers treat the
// result as diagnostic only; WithSession never escalates a logout failure.
func (c *Client) Deauthenticate(ctx context.Context, creds Credentials, sess Session) DeauthResult {
	base := baseAddress(creds.Host)
	candidates := []string{
		base + managementBasePath + authenticatePath,
		base + logoutFallbackBasePath + authenticatePath,
	}

	var last DeauthResult
	for _, u := range candidates {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
		if err != nil {
			continue
		}
		setCommonHeaders(req)
		req.Header.Set("Accept", "application/json, */*")
		req.Header.Set("Cookie", sess.CookieHeader)

		resp, err := c.httpClient(creds).Do(req)
		if err != nil {
			c.logger.Debug("appliance logout attempt failed", "url", u, "error", err)
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		last = DeauthResult{
			OK:     resp.StatusCode >= 200 && resp.StatusCode <= 299,
			Status: resp.StatusCode,
			Body:   string(body),
		}
		if last.OK {
			return last
		}
	}
	return last
}

// Request issues one authenticated call against a resource path and returns
// the raw status/body/content-type. Body shape is the caller's problem; see
// ParseEnvelope. A DELETE aimed at the NoUser sentinel account is refused
// before any network I/O.
func (c *Client) Request(ctx context.Context, creds Credentials, sess Session, path, method string, body any) (RawResponse, error) {
	if method == "" {
		method = http.MethodGet
	}

	if method == http.MethodDelete && targetsProtectedUser(path) {
		return RawResponse{}, &RequestError{Reason: "the NoUser account cannot be deleted"}
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := BaseURL(creds.Host) + path

	var reqBody io.Reader
	var loggedBody any
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return RawResponse{}, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
		loggedBody = body
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return RawResponse{}, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	setCommonHeaders(req)
	req.Header.Set("Accept", resourceAcceptSpec)
	req.Header.Set("Cookie", sess.CookieHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(creds).Do(req)
	if err != nil {
		go c.wire.Log(WireEntry{Time: time.Now(), Method: method, URL: u, RequestBody: loggedBody, Err: err.Error()})
		return RawResponse{}, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	raw := RawResponse{
		Status:      resp.StatusCode,
		Body:        string(respBody),
		ContentType: resp.Header.Get("Content-Type"),
	}

	go c.wire.Log(WireEntry{
		Time:         time.Now(),
		Method:       method,
		URL:          u,
		Status:       raw.Status,
		OK:           raw.Status >= 200 && raw.Status <= 299,
		RequestBody:  loggedBody,
		ResponseText: raw.Body,
	})

	if raw.Status < 200 || raw.Status > 299 {
		return RawResponse{}, &RequestError{Status: raw.Status, Body: raw.Body}
	}
	return raw, nil
}

func targetsProtectedUser(path string) bool {
	if u, err := url.Parse(path); err == nil {
		q := u.Query()
		if strings.EqualFold(q.Get("name"), protectedUserName) ||
			strings.EqualFold(q.Get("guid"), protectedUserName) {
			return true
		}
	}
	return false
}

// WithSession authenticates, runs work, and always attempts to log out
// afterwards. The work outcome is what the caller sees: logout failures are
// logged at debug and discarded, and an authentication failure returns
// immediately with no work run and no logout attempted.
func WithSession[T any](ctx context.Context, c *Client, creds Credentials, work func(Session) (T, error)) (T, error) {
	var zero T

	sess, err := c.Authenticate(ctx, creds)
	if err != nil {
		return zero, err
	}

	result, workErr := work(sess)

	if out := c.Deauthenticate(ctx, creds, sess); !out.OK {
		c.logger.Debug("appliance logout failed after session work",
			"host", creds.Host, "status", out.Status)
	}

	return result, workErr
}
