package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/postflow/internal/models"
)

const instagramCaptionLimit = 2200

// instagramPublisher publishes through the Graph content-publishing
// flow: create a media container, then publish it. The two calls make
// up one logical attempt; a failure anywhere charges one attempt.
type instagramPublisher struct {
	media  MediaStore
	client *http.Client
}

func NewInstagramPublisher(media MediaStore) Publisher {
	return &instagramPublisher{
		media:  media,
		client: &http.Client{},
	}
}

func (ig *instagramPublisher) Platform() string {
	return models.PlatformInstagram
}

type instagramIDResponse struct {
	ID string `json:"id"`
}

func (ig *instagramPublisher) Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*Result, error) {
	if post.FeaturedImage == "" {
		return nil, &PublishError{
			Kind:    KindValidation,
			Message: "instagram requires an image",
		}
	}

	caption := post.Title
	if post.Excerpt != "" {
		caption = post.Title + "\n\n" + post.Excerpt
	}
	caption = truncateRunes(caption, instagramCaptionLimit)

	containerForm := url.Values{}
	containerForm.Set("image_url", ig.media.PublicURL(post.FeaturedImage))
	containerForm.Set("caption", caption)
	containerForm.Set("access_token", accessToken)

	var container instagramIDResponse
	endpoint := fmt.Sprintf("%s/%s/media", FACEBOOK_GRAPH_URL, conn.AccountID)
	if err := doForm(ctx, ig.client, http.MethodPost, endpoint, nil, containerForm, &container); err != nil {
		return nil, err
	}

	publishForm := url.Values{}
	publishForm.Set("creation_id", container.ID)
	publishForm.Set("access_token", accessToken)

	var published instagramIDResponse
	endpoint = fmt.Sprintf("%s/%s/media_publish", FACEBOOK_GRAPH_URL, conn.AccountID)
	if err := doForm(ctx, ig.client, http.MethodPost, endpoint, nil, publishForm, &published); err != nil {
		return nil, err
	}

	return &Result{
		ExternalID: published.ID,
		URL:        "https://www.instagram.com/p/" + published.ID,
	}, nil
}

type instagramMetricsResponse struct {
	LikeCount     int64 `json:"like_count"`
	CommentsCount int64 `json:"comments_count"`
}

func (ig *instagramPublisher) FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*Metrics, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=like_count,comments_count&access_token=%s",
		FACEBOOK_GRAPH_URL, externalID, url.QueryEscape(accessToken))

	var resp instagramMetricsResponse
	err := doJSON(ctx, ig.client, http.MethodGet, endpoint, nil, nil, &resp)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Likes:    resp.LikeCount,
		Comments: resp.CommentsCount,
	}
	m.Engagement = m.Likes + m.Comments
	return m, nil
}
