package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-session-client/restclient"
)

// SubmitTask validates req and queues it: prompt tasks on the LLM queue,
// message tasks on the custom LLM queue.
func (g *Gateway) SubmitTask(ctx context.Context, req TaskRequest) (*QueuedTask, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[gateway SubmitTask] %w", err)
	}

	path := LLMTaskPath
	if req.Kind() == KindMessages {
		path = CustomLLMTaskPath
	}

	var out QueuedTask
	if _, err := g.client.DoJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, fmt.Errorf("[gateway SubmitTask] %w", err)
	}
	g.logger.Info().Str("name", req.Name).Str("kind", string(req.Kind())).Int64("task_id", out.TaskID).Msg("task queued")
	return &out, nil
}

// LLMCreateTask queues a prompt task and reports whether the gateway answered
// 200. Rejections are (false, nil); only an invalid request, a transport failure
// or a lost session surface as errors.
func (g *Gateway) LLMCreateTask(ctx context.Context, req TaskRequest) (bool, error) {
	if req.Kind() != KindPrompt {
		return false, fmt.Errorf("[gateway LLMCreateTask] %w: messages belong on the custom queue", ErrInvalidTask)
	}
	return g.createTask(ctx, "LLMCreateTask", LLMTaskPath, req)
}

// LLMCustomCreateTask is LLMCreateTask for the custom queue, which accepts
// either variant.
func (g *Gateway) LLMCustomCreateTask(ctx context.Context, req TaskRequest) (bool, error) {
	return g.createTask(ctx, "LLMCustomCreateTask", CustomLLMTaskPath, req)
}

func (g *Gateway) createTask(ctx context.Context, op, path string, req TaskRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("[gateway %s] %w", op, err)
	}

	resp, err := g.client.DoJSON(ctx, http.MethodPost, path, req, nil)
	if err != nil {
		var se *restclient.StatusError
		if !errors.As(err, &se) || se.Unauthorized() {
			return false, fmt.Errorf("[gateway %s] %w", op, err)
		}
		g.logger.Warn().Str("path", path).Int("status", se.StatusCode).Msg("task rejected")
		return false, nil
	}
	return resp.StatusCode == http.StatusOK, nil
}

// LLMBatchCreateTask queues one task per prompt and returns their ids in order.
func (g *Gateway) LLMBatchCreateTask(ctx context.Context, batch BatchRequest) ([]int64, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("[gateway LLMBatchCreateTask] %w", err)
	}

	var out queuedBatch
	if _, err := g.client.DoJSON(ctx, http.MethodPost, LLMBatchTaskPath, batch, &out); err != nil {
		return nil, fmt.Errorf("[gateway LLMBatchCreateTask] %w", err)
	}
	return out.TaskIDs, nil
}

func (g *Gateway) TaskStatus(ctx context.Context, taskID int64) (TaskStatus, error) {
	var out TaskStatus
	if _, err := g.client.DoJSON(ctx, http.MethodGet, fmt.Sprintf(taskStatusPath, taskID), nil, &out); err != nil {
		return TaskStatus{}, fmt.Errorf("[gateway TaskStatus] task %d: %w", taskID, notFound(err))
	}
	return out, nil
}

// notFound maps a 404 StatusError onto ErrNotFound, keeping the status error in the chain.
func notFound(err error) error {
	var se *restclient.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
