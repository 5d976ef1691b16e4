// Package supabase talks to the Supabase REST and auth endpoints that hold
// user profiles, credit balances and shared transcripts.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/transcript"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidToken        = errors.New("invalid authentication token")
)

type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	logger     logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
		rdr = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: req.Method, Path: req.URL.Path, Code: resp.StatusCode, Body: string(msg)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return errors.Wrapf(err, "decode %s response", req.URL.Path)
	}
	return nil
}

type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("supabase: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func profileFilter(userID string) url.Values {
	return url.Values{
		"or":     {fmt.Sprintf("(user_id.eq.%s,anon_user_id.eq.%s)", userID, userID)},
		"select": {"*"},
	}
}

// GetProfile returns the profile owned by userID, matched on either the
// user_id or anon_user_id column. A missing profile is (nil, nil).
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/profiles", profileFilter(userID), nil)
	if err != nil {
		return nil, err
	}

	var profiles []models.Profile
	if err := c.do(req, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		c.logger.WithField("user_id", userID).Warn("Profile not found")
		return nil, nil
	}
	return &profiles[0], nil
}

func (c *Client) UpdateCredits(ctx context.Context, userID string, credits int) error {
	req, err := c.newRequest(ctx, http.MethodPatch, "/rest/v1/profiles", profileFilter(userID),
		map[string]int{"credits": credits})
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{"user_id": userID, "credits": credits}).Info("Credits updated")
	return nil
}

// DeductCredit lowers the balance by one and returns the new balance.
func (c *Client) DeductCredit(ctx context.Context, userID string) (int, error) {
	profile, err := c.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, ErrProfileNotFound
	}
	if profile.Credits <= 0 {
		return 0, ErrInsufficientCredits
	}

	balance := profile.Credits - 1
	if err := c.UpdateCredits(ctx, userID, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// ValidateToken resolves a user access token through the auth endpoint.
func (c *Client) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(token, "Bearer "))
	req.Header.Set("apikey", c.serviceKey)

	var user models.User
	if err := c.do(req, &user); err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

type videoContent struct {
	VideoID    string `json:"video_id"`
	Transcript string `json:"transcript"`
}

// GetTranscript reads the shared video_content table.
func (c *Client) GetTranscript(ctx context.Context, videoID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/video_content", url.Values{
		"video_id": {"eq." + videoID},
		"select":   {"transcript"},
	}, nil)
	if err != nil {
		return "", err
	}

	var rows []videoContent
	if err := c.do(req, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 || strings.TrimSpace(rows[0].Transcript) == "" {
		return "", transcript.ErrNotStored
	}
	return rows[0].Transcript, nil
}

func (c *Client) SaveTranscript(ctx context.Context, videoID, text string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/video_content", url.Values{
		"on_conflict": {"video_id"},
	}, videoContent{VideoID: videoID, Transcript: text})
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	return c.do(req, nil)
}

func (c *Client) DeleteTranscript(ctx context.Context, videoID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/rest/v1/video_content", url.Values{
		"video_id": {"eq." + videoID},
	}, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
