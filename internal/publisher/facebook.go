package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/postflow/internal/models"
)

const FACEBOOK_GRAPH_URL = "https://graph.facebook.com/v19.0"

// facebookPublisher posts to a page feed. The connection's AccountID is
// the page id and the access token a page token.
type facebookPublisher struct {
	media  MediaStore
	client *http.Client
}

func NewFacebookPublisher(media MediaStore) Publisher {
	return &facebookPublisher{
		media:  media,
		client: &http.Client{},
	}
}

func (f *facebookPublisher) Platform() string {
	return models.PlatformFacebook
}

type facebookPostResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (f *facebookPublisher) Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*Result, error) {
	message := post.Title
	if post.Excerpt != "" {
		message = post.Title + "\n\n" + post.Excerpt
	} else if post.Body != "" {
		message = post.Title + "\n\n" + truncateRunes(post.Body, 2000)
	}

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", FACEBOOK_GRAPH_URL, conn.AccountID)
	if post.FeaturedImage != "" {
		// Photo posts attach the image by public URL.
		endpoint = fmt.Sprintf("%s/%s/photos", FACEBOOK_GRAPH_URL, conn.AccountID)
		form.Set("url", f.media.PublicURL(post.FeaturedImage))
		form.Set("caption", message)
		form.Del("message")
	}

	var created facebookPostResponse
	err := doForm(ctx, f.client, http.MethodPost, endpoint, nil, form, &created)
	if err != nil {
		return nil, err
	}

	externalID := created.PostID
	if externalID == "" {
		externalID = created.ID
	}

	return &Result{
		ExternalID: externalID,
		URL:        "https://www.facebook.com/" + externalID,
	}, nil
}

type facebookMetricsResponse struct {
	Reactions struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"reactions"`
	Comments struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
	Shares struct {
		Count int64 `json:"count"`
	} `json:"shares"`
}

func (f *facebookPublisher) FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*Metrics, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=reactions.summary(true),comments.summary(true),shares&access_token=%s",
		FACEBOOK_GRAPH_URL, externalID, url.QueryEscape(accessToken))

	var resp facebookMetricsResponse
	err := doJSON(ctx, f.client, http.MethodGet, endpoint, nil, nil, &resp)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Likes:    resp.Reactions.Summary.TotalCount,
		Comments: resp.Comments.Summary.TotalCount,
		Shares:   resp.Shares.Count,
	}
	m.Engagement = m.Likes + m.Comments + m.Shares
	return m, nil
}
