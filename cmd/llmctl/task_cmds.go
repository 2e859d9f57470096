package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-session-client/gateway"
)

func newTaskCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Queue LLM tasks and fetch their results",
	}
	cmd.AddCommand(
		newTaskSubmitCmd(get),
		newTaskBatchCmd(get),
		newTaskStatusCmd(get),
		newTaskDownloadCmd(get),
	)
	return cmd
}

func newTaskSubmitCmd(get func() *app) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "submit <file|->",
		Short: "Queue the task, or list of tasks, described by a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			reqs, err := decodeTasks(data)
			if err != nil {
				return err
			}

			// validate everything before queueing anything
			for i, r := range reqs {
				if err := r.Validate(); err != nil {
					return fmt.Errorf("task %d: %w", i, err)
				}
			}

			queued := make([]*gateway.QueuedTask, 0, len(reqs))
			for _, r := range reqs {
				q, err := a.gateway.SubmitTask(cmd.Context(), r)
				if err != nil {
					return err
				}
				queued = append(queued, q)
				fmt.Fprintf(cmd.OutOrStdout(), "queued %q as task %d\n", r.Name, q.TaskID)
			}

			if wait <= 0 {
				return nil
			}
			for _, q := range queued {
				st, err := waitForTask(cmd, a, q.TaskID, wait)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "task %d %s %s\n", q.TaskID, st.Status, st.Description)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll every interval until the tasks finish (0 returns immediately)")
	return cmd
}

func newTaskBatchCmd(get func() *app) *cobra.Command {
	var batch gateway.BatchRequest
	var task string
	cmd := &cobra.Command{
		Use:   "batch <prompt>...",
		Short: "Queue one prompt task per argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch.Prompts = args
			batch.LLMTaskType = gateway.LLMTaskType(task)
			ids, err := get().gateway.LLMBatchCreateTask(cmd.Context(), batch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"task_ids": ids})
		},
	}
	cmd.Flags().StringVar(&batch.Name, "name", "batch", "task name")
	cmd.Flags().StringVar(&batch.ModelName, "model", "", "model name")
	cmd.Flags().StringVar(&task, "type", string(gateway.ChatCompletion), "llm task type")
	batch.TaskType = gateway.WorkTypeGPU
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newTaskStatusCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the status of a queued task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := get().gateway.TaskStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newTaskDownloadCmd(get func() *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <task-id>...",
		Short: "Download task results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			var body []byte
			var err error
			if len(ids) == 1 {
				body, err = a.gateway.DownloadResult(cmd.Context(), ids[0])
			} else {
				body, err = a.gateway.DownloadResults(cmd.Context(), ids)
			}
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(out, body, 0o600)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// decodeTasks accepts a single task object or an array of them.
func decodeTasks(data []byte) ([]gateway.TaskRequest, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var reqs []gateway.TaskRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("invalid task list: %w", err)
		}
		return reqs, nil
	}
	var req gateway.TaskRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	return []gateway.TaskRequest{req}, nil
}

func waitForTask(cmd *cobra.Command, a *app, id int64, every time.Duration) (gateway.TaskStatus, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		st, err := a.gateway.TaskStatus(cmd.Context(), id)
		if err != nil || st.Done() {
			return st, err
		}
		select {
		case <-cmd.Context().Done():
			return st, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
