package database

import "time"

// Priority levels for tasks.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task assignees. A task assigned to AssigneeBot may be linked to at most one
// active OpenClaw job.
const (
	AssigneeMe  = "me"
	AssigneeBot = "openclaw_bot"
)

// Column roles give well-known columns a stable identity that survives
// renaming. The reconciler resolves target columns by role first and falls
// back to title matching for boards created before roles existed.
const (
	RoleBacklog    = "backlog"
	RoleInProgress = "in_progress"
	RoleDone       = "done"
)

// OpenClaw job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	WorkspaceID string    `json:"workspaceId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Columns     []Column  `json:"columns,omitempty"`
}

type Column struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Role      string `json:"role,omitempty"`
	BoardID   string `json:"boardId"`
	Order     int    `json:"order"`
	TaskCount int    `json:"taskCount,omitempty"`
	Tasks     []Task `json:"tasks,omitempty"`
}

type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Priority      string     `json:"priority"`
	Labels        []string   `json:"labels"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	Assignee      string     `json:"assignee"`
	ColumnID      string     `json:"columnId"`
	Order         int        `json:"order"`
	OpenClawJobID *string    `json:"openclawJobId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TaskActivity is an append-only audit entry. Entries are never mutated and
// are only removed when their task is deleted.
type TaskActivity struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type OpenClawConfig struct {
	ID             string    `json:"id"`
	WorkspaceID    string    `json:"workspaceId"`
	Mode           string    `json:"mode"` // "mock" or "real"
	BaseURL        string    `json:"baseUrl"`
	HealthPath     string    `json:"healthPath"`
	TokenEncrypted string    `json:"-"` // never round-tripped to the client
	LastStatus     *string   `json:"lastStatus"`
	LastLatencyMs  *int      `json:"lastLatencyMs"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type OpenClawJob struct {
	ID           string    `json:"id"`
	JobID        string    `json:"jobId"`
	TaskID       string    `json:"taskId"`
	Status       string    `json:"status"`
	LastResponse *string   `json:"lastResponse,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CommandLog struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Command     string    `json:"command"`
	Input       *string   `json:"input,omitempty"`
	Output      *string   `json:"output,omitempty"`
	Status      string    `json:"status"` // "success" or "error"
	DurationMs  int       `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
