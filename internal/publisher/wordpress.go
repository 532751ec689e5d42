package publisher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/postflow/internal/models"
)

// wordpressPublisher posts articles through the WordPress REST API using
// an application password. The connection's AccountID holds the site
// base URL and AccountUsername the login name.
type wordpressPublisher struct {
	media  MediaStore
	client *http.Client
}

func NewWordpressPublisher(media MediaStore) Publisher {
	return &wordpressPublisher{
		media:  media,
		client: &http.Client{},
	}
}

func (w *wordpressPublisher) Platform() string {
	return models.PlatformWordpress
}

type wordpressMediaResponse struct {
	ID int64 `json:"id"`
}

type wordpressPostResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

func (w *wordpressPublisher) Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*Result, error) {
	siteURL := strings.TrimRight(conn.AccountID, "/")
	auth := basicAuth(conn.AccountUsername, accessToken)

	var featuredMediaID int64
	if post.FeaturedImage != "" {
		mediaID, err := w.uploadFeaturedImage(ctx, siteURL, auth, post.FeaturedImage)
		if err != nil {
			return nil, err
		}
		featuredMediaID = mediaID
	}

	payload := map[string]interface{}{
		"title":   post.Title,
		"content": post.Body,
		"status":  "publish",
	}
	if post.Excerpt != "" {
		payload["excerpt"] = post.Excerpt
	}
	if featuredMediaID != 0 {
		payload["featured_media"] = featuredMediaID
	}

	var created wordpressPostResponse
	err := doJSON(ctx, w.client, http.MethodPost, siteURL+"/wp-json/wp/v2/posts",
		map[string]string{"Authorization": auth}, payload, &created)
	if err != nil {
		return nil, err
	}

	return &Result{
		ExternalID: fmt.Sprintf("%d", created.ID),
		URL:        created.Link,
	}, nil
}

func (w *wordpressPublisher) uploadFeaturedImage(ctx context.Context, siteURL, auth, key string) (int64, error) {
	data, contentType, err := w.media.GetObject(ctx, key)
	if err != nil {
		return 0, &PublishError{Kind: KindUnknown, Message: "featured image fetch: " + err.Error()}
	}

	filename := key
	if kind, err := filetype.Match(data); err == nil && kind.Extension != "unknown" {
		filename = key + "." + kind.Extension
		if contentType == "" {
			contentType = kind.MIME.Value
		}
	}

	headers := map[string]string{
		"Authorization":       auth,
		"Content-Type":        contentType,
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	}

	var uploaded wordpressMediaResponse
	err = doUpload(ctx, w.client, siteURL+"/wp-json/wp/v2/media", headers, data, &uploaded)
	if err != nil {
		return 0, err
	}
	return uploaded.ID, nil
}

// FetchMetrics is unsupported: self-hosted WordPress exposes no
// engagement API comparable to the social graphs.
func (w *wordpressPublisher) FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*Metrics, error) {
	return nil, ErrMetricsUnsupported
}

func basicAuth(username, password string) string {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + credentials
}
