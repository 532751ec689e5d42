package queue

import (
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func EnqueueAnalyticsSync(asynqClient *asynq.Client, payload AnalyticsSyncPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeAnalyticsSync, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.Queue(QueueAnalytics), asynq.MaxRetry(3))
	if err != nil {
		return err
	}

	log.Printf("Analytics sync scheduled: %+v", payload)
	return nil
}
