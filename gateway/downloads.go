package gateway

import (
	"context"
	"fmt"
	"net/http"
)

type downloadRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

// DownloadResult returns the raw result document of one task.
func (g *Gateway) DownloadResult(ctx context.Context, taskID int64) ([]byte, error) {
	var body []byte
	if _, err := g.client.DoJSON(ctx, http.MethodGet, fmt.Sprintf(downloadPath, taskID), nil, &body); err != nil {
		return nil, fmt.Errorf("[gateway DownloadResult] task %d: %w", taskID, notFound(err))
	}
	return body, nil
}

// DownloadResults returns the combined result document of several tasks.
func (g *Gateway) DownloadResults(ctx context.Context, taskIDs []int64) ([]byte, error) {
	if len(taskIDs) == 0 {
		return nil, fmt.Errorf("[gateway DownloadResults] %w: no task ids", ErrInvalidTask)
	}
	var body []byte
	if _, err := g.client.DoJSON(ctx, http.MethodPost, DownloadManyPath, downloadRequest{TaskIDs: taskIDs}, &body); err != nil {
		return nil, fmt.Errorf("[gateway DownloadResults] %w", notFound(err))
	}
	return body, nil
}
