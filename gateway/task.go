package gateway

// WorkType selects the worker pool a task is queued on.
type WorkType string

const (
	WorkTypeGPU WorkType = "gpu"
	WorkTypeCPU WorkType = "cpu"
)

// LLMTaskType is the kind of model call the worker performs.
type LLMTaskType string

const (
	ChatCompletion  LLMTaskType = "chat_completion"
	Completion      LLMTaskType = "completion"
	CreateEmbedding LLMTaskType = "create_embedding"
)

func (t LLMTaskType) Valid() bool {
	switch t {
	case ChatCompletion, Completion, CreateEmbedding:
		return true
	}
	return false
}

// Role of a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TaskKind tells the two task request variants apart.
type TaskKind string

const (
	// KindPrompt carries a single prompt and goes to the plain LLM queue.
	KindPrompt TaskKind = "prompt"
	// KindMessages carries a chat transcript and goes to the custom LLM queue.
	KindMessages TaskKind = "messages"
)

// TaskRequest is the body of a task submission. Exactly one of Prompt or
// Messages is set; Kind reports which.
type TaskRequest struct {
	Name        string      `json:"name"`
	TaskType    WorkType    `json:"task_type,omitempty"`
	ModelName   string      `json:"model_name"`
	LLMTaskType LLMTaskType `json:"llm_task_type"`
	Prompt      string      `json:"prompt,omitempty"`
	Messages    []Message   `json:"messages,omitempty"`
}

// Kind returns KindMessages when messages are present, KindPrompt otherwise.
func (r TaskRequest) Kind() TaskKind {
	if len(r.Messages) > 0 {
		return KindMessages
	}
	return KindPrompt
}

// NewPromptTask builds a prompt variant queued on the GPU pool.
func NewPromptTask(name, model string, taskType LLMTaskType, prompt string) TaskRequest {
	return TaskRequest{
		Name:        name,
		TaskType:    WorkTypeGPU,
		ModelName:   model,
		LLMTaskType: taskType,
		Prompt:      prompt,
	}
}

// NewMessagesTask builds a chat transcript variant queued on the GPU pool.
func NewMessagesTask(name, model string, taskType LLMTaskType, messages ...Message) TaskRequest {
	return TaskRequest{
		Name:        name,
		TaskType:    WorkTypeGPU,
		ModelName:   model,
		LLMTaskType: taskType,
		Messages:    messages,
	}
}

// BatchRequest queues one prompt task per entry of Prompts.
type BatchRequest struct {
	Name        string      `json:"name"`
	TaskType    WorkType    `json:"task_type,omitempty"`
	ModelName   string      `json:"model_name"`
	LLMTaskType LLMTaskType `json:"llm_task_type"`
	Prompts     []string    `json:"prompts"`
}

// QueuedTask is the gateway's acknowledgement of a queued task.
type QueuedTask struct {
	TaskID  int64  `json:"task_id"`
	Message string `json:"message"`
}

type queuedBatch struct {
	TaskIDs []int64 `json:"task_ids"`
	Message string  `json:"message"`
}

// TaskStatus is the worker-reported state of a queued task.
type TaskStatus struct {
	Status      string `json:"status"`
	Description string `json:"desc"`
}

// Done reports whether the worker finished with the task, successfully or not.
func (s TaskStatus) Done() bool {
	return s.Status == "completed" || s.Status == "failed"
}
