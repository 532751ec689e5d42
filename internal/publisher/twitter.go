package publisher

import (
	"context"
	"net/http"

	"github.com/maheshrc27/postflow/internal/models"
)

const (
	TWITTER_API_URL = "https://api.twitter.com/2"
	tweetRuneLimit  = 280
)

type twitterPublisher struct {
	client *http.Client
}

func NewTwitterPublisher() Publisher {
	return &twitterPublisher{
		client: &http.Client{},
	}
}

func (t *twitterPublisher) Platform() string {
	return models.PlatformTwitter
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// composeTweet shapes post content into the 280-rune budget, preferring
// the excerpt over the raw body.
func composeTweet(post *models.ScheduledPost) string {
	text := post.Excerpt
	if text == "" {
		text = post.Body
	}
	if text == "" {
		text = post.Title
	}
	return truncateRunes(text, tweetRuneLimit)
}

func (t *twitterPublisher) Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*Result, error) {
	payload := map[string]interface{}{
		"text": composeTweet(post),
	}

	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var created tweetResponse
	err := doJSON(ctx, t.client, http.MethodPost, TWITTER_API_URL+"/tweets", headers, payload, &created)
	if err != nil {
		return nil, err
	}

	return &Result{
		ExternalID: created.Data.ID,
		URL:        "https://twitter.com/i/web/status/" + created.Data.ID,
	}, nil
}

type tweetMetricsResponse struct {
	Data struct {
		PublicMetrics struct {
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			LikeCount       int64 `json:"like_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

func (t *twitterPublisher) FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*Metrics, error) {
	endpoint := TWITTER_API_URL + "/tweets/" + externalID + "?tweet.fields=public_metrics"
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var resp tweetMetricsResponse
	err := doJSON(ctx, t.client, http.MethodGet, endpoint, headers, nil, &resp)
	if err != nil {
		return nil, err
	}

	pm := resp.Data.PublicMetrics
	m := &Metrics{
		Impressions: pm.ImpressionCount,
		Likes:       pm.LikeCount,
		Shares:      pm.RetweetCount,
		Comments:    pm.ReplyCount,
	}
	m.Engagement = m.Likes + m.Shares + m.Comments
	return m, nil
}
