// Package youtube reads video metadata from the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

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

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string   `json:"title"`
			Description  string   `json:"description"`
			ChannelTitle string   `json:"channelTitle"`
			Tags         []string `json:"tags"`
			CategoryID   string   `json:"categoryId"`
			PublishedAt  string   `json:"publishedAt"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// GetMetadata fetches snippet, content details and statistics for one
// video. An unknown video is a 404 AppError.
func (c *Client) GetMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	const op = "youtube.GetMetadata"

	if c.apiKey == "" {
		return nil, apperrors.Unavailable(op, apperrors.ErrConfiguration, "YouTube API key not configured")
	}

	q := url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {videoID},
		"key":  {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Unavailable(op, err, "YouTube API request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WithFields(logrus.Fields{
			"video_id": videoID,
			"status":   resp.StatusCode,
		}).Error("YouTube API error")
		return nil, apperrors.E(op, fmt.Errorf("status %d: %s", resp.StatusCode, body),
			"YouTube API error", resp.StatusCode)
	}

	var list videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, errors.Wrap(err, "decode videos response")
	}
	if len(list.Items) == 0 {
		return nil, apperrors.NotFound(op, nil, "Video not found")
	}

	item := list.Items[0]
	seconds, err := ParseISODuration(item.ContentDetails.Duration)
	if err != nil {
		c.logger.WithError(err).WithField("video_id", videoID).Warn("Unparseable video duration")
	}

	meta := &models.VideoMetadata{
		VideoID:         videoID,
		Title:           item.Snippet.Title,
		ChannelTitle:    item.Snippet.ChannelTitle,
		Description:     item.Snippet.Description,
		Tags:            item.Snippet.Tags,
		CategoryID:      item.Snippet.CategoryID,
		PublishedAt:     item.Snippet.PublishedAt,
		ThumbnailURL:    thumbnail(item.Snippet.Thumbnails),
		ViewCount:       parseCount(item.Statistics.ViewCount),
		LikeCount:       parseCount(item.Statistics.LikeCount),
		CommentCount:    parseCount(item.Statistics.CommentCount),
		DurationSeconds: seconds,
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return meta, nil
}

func thumbnail(thumbs map[string]struct {
	URL string `json:"url"`
}) string {
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// Counts are decimal strings and may be absent when the owner hides them.
func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as PT1H2M3S to seconds.
func ParseISODuration(s string) (int, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, errors.Errorf("invalid ISO-8601 duration %q", s)
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, errors.Wrapf(err, "duration %q", s)
		}
		total += n * unit
	}
	return total, nil
}
