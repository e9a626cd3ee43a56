package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
	"github.com/openclaw/clawboard/services"
)

var validPriorities = map[string]bool{
	database.PriorityLow:    true,
	database.PriorityMedium: true,
	database.PriorityHigh:   true,
}

var validAssignees = map[string]bool{
	database.AssigneeMe:  true,
	database.AssigneeBot: true,
}

// TaskHandler handles task CRUD, moves, and the bot-assignment pipeline
type TaskHandler struct {
	store      *database.Store
	hub        *services.Hub
	client     openclaw.Client
	reconciler *openclaw.Reconciler
}

func NewTaskHandler(store *database.Store, hub *services.Hub, client openclaw.Client, reconciler *openclaw.Reconciler) *TaskHandler {
	return &TaskHandler{
		store:      store,
		hub:        hub,
		client:     client,
		reconciler: reconciler,
	}
}

func (h *TaskHandler) notify(workspaceID, boardID, event string) {
	h.hub.Broadcast(workspaceID, services.WebSocketMessage{
		Type:    event,
		BoardID: boardID,
	})
}

func (h *TaskHandler) notifyTask(r *http.Request, workspaceID, taskID, event string) {
	boardID, err := h.store.BoardForTask(r.Context(), taskID)
	if err != nil {
		return
	}
	h.notify(workspaceID, boardID, event)
}

type taskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	Labels      []string `json:"labels"`
	DueDate     *string  `json:"dueDate"`
	Assignee    *string  `json:"assignee"`
}

func parseDueDate(raw *string) (*time.Time, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// CreateTask appends a task to a column. Assigning it to the bot kicks off
// an OpenClaw job immediately.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	params := database.CreateTaskParams{
		Title:    strings.TrimSpace(*req.Title),
		Priority: database.PriorityMedium,
		Labels:   req.Labels,
		Assignee: database.AssigneeMe,
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.Priority != nil {
		if !validPriorities[*req.Priority] {
			writeError(w, http.StatusBadRequest, "Invalid priority")
			return
		}
		params.Priority = *req.Priority
	}
	if req.Assignee != nil {
		if !validAssignees[*req.Assignee] {
			writeError(w, http.StatusBadRequest, "Invalid assignee")
			return
		}
		params.Assignee = *req.Assignee
	}
	dueDate, ok := parseDueDate(req.DueDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid dueDate")
		return
	}
	params.DueDate = dueDate

	columnID := mux.Vars(r)["columnId"]
	task, err := h.store.CreateTask(r.Context(), ws.ID, columnID, params)
	if err != nil {
		writeStoreError(w, err, "Failed to create task")
		return
	}

	if task.Assignee == database.AssigneeBot {
		h.ensureJob(r, ws.ID, task)
	}

	h.notifyTask(r, ws.ID, task.ID, "task.created")
	writeJSON(w, http.StatusCreated, task)
}

// taskDetail bundles a task with its activity feed and linked job.
type taskDetail struct {
	*database.Task
	Activities []database.TaskActivity `json:"activities"`
	Job        *database.OpenClawJob   `json:"job,omitempty"`
}

// GetTask returns one task with activities and its linked job, if any.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID := mux.Vars(r)["taskId"]
	task, err := h.store.GetTask(r.Context(), ws.ID, taskID)
	if err != nil {
		writeStoreError(w, err, "Failed to load task")
		return
	}

	activities, err := h.store.GetActivities(r.Context(), ws.ID, taskID)
	if err != nil {
		writeStoreError(w, err, "Failed to load task")
		return
	}

	detail := taskDetail{Task: task, Activities: activities}
	if job, err := h.store.GetJobForTask(r.Context(), taskID); err == nil {
		detail.Job = job
	}

	writeJSON(w, http.StatusOK, detail)
}

// UpdateTask applies a partial update. Reassigning to the bot kicks off an
// OpenClaw job if the task has none.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	var req taskRequest
	merged, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(merged, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	params := database.UpdateTaskParams{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "Title cannot be empty")
			return
		}
		params.Title = &title
	}
	if req.Description != nil {
		params.Description = req.Description
	}
	if req.Priority != nil {
		if !validPriorities[*req.Priority] {
			writeError(w, http.StatusBadRequest, "Invalid priority")
			return
		}
		params.Priority = req.Priority
	}
	if _, set := raw["labels"]; set {
		params.Labels = req.Labels
		params.LabelsSet = true
	}
	if _, set := raw["dueDate"]; set {
		dueDate, ok := parseDueDate(req.DueDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid dueDate")
			return
		}
		params.DueDate = dueDate
		params.DueDateSet = true
	}
	if req.Assignee != nil {
		if !validAssignees[*req.Assignee] {
			writeError(w, http.StatusBadRequest, "Invalid assignee")
			return
		}
		params.Assignee = req.Assignee
	}

	taskID := mux.Vars(r)["taskId"]
	task, err := h.store.UpdateTask(r.Context(), ws.ID, taskID, params)
	if err != nil {
		writeStoreError(w, err, "Failed to update task")
		return
	}

	if req.Assignee != nil && *req.Assignee == database.AssigneeBot {
		h.ensureJob(r, ws.ID, task)
	}

	h.notifyTask(r, ws.ID, task.ID, "task.updated")
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task and compacts its column.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID := mux.Vars(r)["taskId"]
	boardID, _ := h.store.BoardForTask(r.Context(), taskID)
	if err := h.store.DeleteTask(r.Context(), ws.ID, taskID); err != nil {
		writeStoreError(w, err, "Failed to delete task")
		return
	}

	if boardID != "" {
		h.notify(ws.ID, boardID, "task.deleted")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MoveTask relocates a task to a position in a column, shifting siblings to
// keep orders dense.
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ColumnID    *string `json:"columnId"`
		TargetIndex *int    `json:"targetIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.ColumnID == nil || req.TargetIndex == nil {
		writeError(w, http.StatusBadRequest, "columnId and targetIndex are required")
		return
	}

	taskID := mux.Vars(r)["taskId"]
	task, err := h.store.MoveTask(r.Context(), ws.ID, taskID, *req.ColumnID, *req.TargetIndex)
	if err != nil {
		writeStoreError(w, err, "Failed to move task")
		return
	}

	h.notifyTask(r, ws.ID, task.ID, "task.moved")
	writeJSON(w, http.StatusOK, task)
}

// GetActivity returns a task's activity feed, newest first.
func (h *TaskHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID := mux.Vars(r)["taskId"]
	activities, err := h.store.GetActivities(r.Context(), ws.ID, taskID)
	if err != nil {
		writeStoreError(w, err, "Failed to load activity")
		return
	}

	writeJSON(w, http.StatusOK, activities)
}

// CancelJob cancels a task's active OpenClaw job and hands the task back.
func (h *TaskHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID := mux.Vars(r)["taskId"]
	if _, err := h.store.GetTask(r.Context(), ws.ID, taskID); err != nil {
		writeStoreError(w, err, "Failed to load task")
		return
	}

	job, err := h.store.GetJobForTask(r.Context(), taskID)
	if err != nil {
		writeStoreError(w, err, "No job linked to task")
		return
	}

	if _, err := h.client.CancelJob(r.Context(), ws.ID, job.JobID); err != nil {
		writeStoreError(w, err, "Failed to cancel job")
		return
	}

	if err := h.reconciler.ApplyStatus(r.Context(), job, database.JobCancelled, nil, nil); err != nil {
		writeStoreError(w, err, "Failed to record cancellation")
		return
	}

	h.notifyTask(r, ws.ID, taskID, "task.updated")
	writeJSON(w, http.StatusOK, job)
}

// ensureJob creates an OpenClaw job for a bot-assigned task that has no
// active one. Best effort: a backend failure is logged on the task activity
// feed rather than failing the task write.
func (h *TaskHandler) ensureJob(r *http.Request, workspaceID string, task *database.Task) {
	if existing, err := h.store.GetJobForTask(r.Context(), task.ID); err == nil {
		switch existing.Status {
		case database.JobPending, database.JobRunning:
			return
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		log.Printf("Error checking existing job for task %s: %v", task.ID, err)
		return
	}

	payload := openclaw.JobPayload{
		Type:   task.Title,
		TaskID: task.ID,
		Params: map[string]any{
			"priority": task.Priority,
			"labels":   task.Labels,
			"context":  task.Description,
		},
	}

	job, err := h.client.CreateJob(r.Context(), workspaceID, payload)
	if err != nil {
		log.Printf("Error creating OpenClaw job for task %s: %v", task.ID, err)
		if aerr := h.store.AppendActivity(r.Context(), task.ID, "job_error", fmt.Sprintf("Failed to create OpenClaw job: %v", err)); aerr != nil {
			log.Printf("Error appending activity: %v", aerr)
		}
		return
	}

	// Recorded as pending first; any further status the backend already
	// reported is applied as a normal transition below.
	record, err := h.store.CreateOpenClawJob(r.Context(), job.JobID, task.ID, database.JobPending)
	if err != nil {
		log.Printf("Error recording OpenClaw job %s: %v", job.JobID, err)
		return
	}

	details := fmt.Sprintf("Task assigned to OpenClaw bot, job %s created", job.JobID)
	if err := h.store.AppendActivity(r.Context(), task.ID, "job_created", details); err != nil {
		log.Printf("Error appending activity: %v", err)
	}

	if job.Status != "" && job.Status != database.JobPending {
		var result *string
		if job.Result != nil {
			if encoded, err := json.Marshal(job.Result); err == nil {
				s := string(encoded)
				result = &s
			}
		}
		if err := h.reconciler.ApplyStatus(r.Context(), record, job.Status, result, nil); err != nil {
			log.Printf("Error applying job status for %s: %v", job.JobID, err)
		}
	}
}
