package transfer

type PostCreation struct {
	Title           string   `json:"title"`
	Body            string   `json:"body"`
	Excerpt         string   `json:"excerpt"`
	FeaturedImage   string   `json:"featured_image"`
	SourceArticleID int64    `json:"source_article_id"`
	Platforms       []string `json:"platforms"`
	ScheduledTime   string   `json:"scheduled_time"`
	MaxRetries      int      `json:"max_retries"`
}
