package gateway

import (
	"fmt"
	"strings"
)

// Validate checks a task request before it is sent. The gateway would reject
// the same requests, this just fails earlier with a clearer message.
func (r TaskRequest) Validate() error {
	if err := validateCommon(r.Name, r.TaskType, r.ModelName, r.LLMTaskType); err != nil {
		return err
	}

	hasPrompt := strings.TrimSpace(r.Prompt) != ""
	hasMessages := len(r.Messages) > 0
	switch {
	case hasPrompt && hasMessages:
		return fmt.Errorf("%w: prompt and messages are mutually exclusive", ErrInvalidTask)
	case !hasPrompt && !hasMessages:
		return fmt.Errorf("%w: one of prompt or messages is required", ErrInvalidTask)
	}

	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidTask, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d has no content", ErrInvalidTask, i)
		}
	}
	return nil
}

func (b BatchRequest) Validate() error {
	if err := validateCommon(b.Name, b.TaskType, b.ModelName, b.LLMTaskType); err != nil {
		return err
	}
	if len(b.Prompts) == 0 {
		return fmt.Errorf("%w: at least one prompt is required", ErrInvalidTask)
	}
	for i, p := range b.Prompts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: prompt %d is empty", ErrInvalidTask, i)
		}
	}
	return nil
}

func validateCommon(name string, work WorkType, model string, taskType LLMTaskType) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTask)
	}
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("%w: model_name is required", ErrInvalidTask)
	}
	if !taskType.Valid() {
		return fmt.Errorf("%w: llm_task_type must be one of chat_completion, completion or create_embedding, got %q", ErrInvalidTask, taskType)
	}
	if work != "" && work != WorkTypeGPU && work != WorkTypeCPU {
		return fmt.Errorf("%w: task_type must be 'gpu' or 'cpu'", ErrInvalidTask)
	}
	return nil
}
