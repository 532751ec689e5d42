package publisher

import (
	"context"
	"net/http"

	"github.com/maheshrc27/postflow/internal/models"
)

const (
	LINKEDIN_API_URL  = "https://api.linkedin.com/v2"
	linkedinRuneLimit = 3000
)

type linkedinPublisher struct {
	client *http.Client
}

func NewLinkedinPublisher() Publisher {
	return &linkedinPublisher{
		client: &http.Client{},
	}
}

func (l *linkedinPublisher) Platform() string {
	return models.PlatformLinkedin
}

type linkedinPostResponse struct {
	ID string `json:"id"`
}

func composeLinkedinText(post *models.ScheduledPost) string {
	text := post.Body
	if post.Excerpt != "" {
		text = post.Excerpt
	}
	if post.Title != "" {
		text = post.Title + "\n\n" + text
	}
	return truncateRunes(text, linkedinRuneLimit)
}

func (l *linkedinPublisher) Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*Result, error) {
	payload := map[string]interface{}{
		"author":         "urn:li:person:" + conn.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": composeLinkedinText(post),
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	headers := map[string]string{
		"Authorization":             "Bearer " + accessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}

	var created linkedinPostResponse
	err := doJSON(ctx, l.client, http.MethodPost, LINKEDIN_API_URL+"/ugcPosts", headers, payload, &created)
	if err != nil {
		return nil, err
	}

	return &Result{
		ExternalID: created.ID,
		URL:        "https://www.linkedin.com/feed/update/" + created.ID,
	}, nil
}

type linkedinMetricsResponse struct {
	LikesSummary struct {
		TotalLikes int64 `json:"totalLikes"`
	} `json:"likesSummary"`
	CommentsSummary struct {
		TotalComments int64 `json:"aggregatedTotalComments"`
	} `json:"commentsSummary"`
}

func (l *linkedinPublisher) FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*Metrics, error) {
	endpoint := LINKEDIN_API_URL + "/socialActions/" + externalID
	headers := map[string]string{
		"Authorization":             "Bearer " + accessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}

	var resp linkedinMetricsResponse
	err := doJSON(ctx, l.client, http.MethodGet, endpoint, headers, nil, &resp)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Likes:    resp.LikesSummary.TotalLikes,
		Comments: resp.CommentsSummary.TotalComments,
	}
	m.Engagement = m.Likes + m.Comments
	return m, nil
}
