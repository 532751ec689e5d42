package scheduler

import "github.com/maheshrc27/postflow/internal/models"

// resolveStatus aggregates per-platform outcomes into the post-level
// status after a claim cycle's join barrier:
//
//   - completed: every target platform has a published URL
//   - failed: nothing left to retry and at least one platform gave up
//   - pending: at least one platform keeps retry budget; the post is
//     requeued for a later claim
func resolveStatus(post *models.ScheduledPost) string {
	if post.AllPublished() {
		return models.PostStatusCompleted
	}
	if len(post.PendingPlatforms()) == 0 {
		return models.PostStatusFailed
	}
	return models.PostStatusPending
}
