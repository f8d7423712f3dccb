package ambee

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

var errClosed = errors.New("client is closed")

// Request performs a GET against the Ambee API for the given resource path,
// for example "latest" or "weather/latest", and returns the decoded envelope.
//
// Every failure is an *Error; see Kind for the classification.
func (c *Client) Request(ctx context.Context, uri string) (Envelope, error) {
	ctx, span := c.inst.startSpan(ctx, uri)
	defer span.End()

	start := time.Now()
	env, err := c.do(ctx, uri)
	duration := time.Since(start)
	c.inst.record(ctx, span, uri, duration, err)

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("uri", uri).
			Dur("duration", duration).
			Msg("ambee request failed")
		return nil, err
	}

	c.logger.Debug().
		Str("uri", uri).
		Dur("duration", duration).
		Msg("ambee request completed")
	return env, nil
}

func (c *Client) do(ctx context.Context, uri string) (Envelope, error) {
	session, err := c.session()
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: "error occurred while communicating with the Ambee API", Err: err}
	}

	reqURL, err := c.endpoint(uri)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: "building request url", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: "creating request", Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := session.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &Error{
			Kind:       KindAuthentication,
			StatusCode: resp.StatusCode,
			Message:    "the provided Ambee API key is not valid",
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	isJSON := isJSONContent(resp.Header.Get("Content-Type"))

	if resp.StatusCode >= 400 && resp.StatusCode < 600 {
		apiErr := &Error{
			Kind:       KindAPI,
			StatusCode: resp.StatusCode,
			Message:    "error response from Ambee API",
		}
		var env Envelope
		if isJSON && json.Unmarshal(body, &env) == nil {
			apiErr.Body = env
		} else {
			apiErr.Text = string(body)
		}
		return nil, apiErr
	}

	if !isJSON {
		return nil, &Error{
			Kind:       KindAPI,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response from Ambee API",
			Text:       string(body),
		}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{
			Kind:       KindAPI,
			StatusCode: resp.StatusCode,
			Message:    "decoding response",
			Text:       string(body),
			Err:        err,
		}
	}

	if msg, ok := env.Message(); !ok || !strings.EqualFold(msg, "success") {
		return nil, &Error{
			Kind:       KindAPI,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response from Ambee API",
			Body:       env,
		}
	}

	return env, nil
}

// endpoint builds {baseURL}/{uri}/by-lat-lng?lat=..&lng=..
func (c *Client) endpoint(uri string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	p := strings.TrimSuffix(u.Path, "/")
	if uri = strings.Trim(uri, "/"); uri != "" {
		p += "/" + uri
	}
	u.Path = p + "/by-lat-lng"

	q := u.Query()
	q.Set("lat", strconv.FormatFloat(c.latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(c.longitude, 'f', -1, 64))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// classifyTransport maps a failed round trip or body read to an *Error.
// ctx is the request context carrying the timeout.
func classifyTransport(ctx context.Context, err error) *Error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:    KindTimeout,
			Message: "timeout occurred while connecting to the Ambee API",
			Err:     err,
		}
	}
	return &Error{
		Kind:    KindConnection,
		Message: "error occurred while communicating with the Ambee API",
		Err:     err,
	}
}

func isJSONContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// closeBody drains what is left of the body so the connection can be reused.
func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodySize)) //nolint:errcheck // best effort drain
	_ = body.Close()                                               //nolint:errcheck // nothing to do on failure
}
