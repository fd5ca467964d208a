package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// maxRequestBodySize limits the size of incoming request bodies (4MB).
const maxRequestBodySize = 4 * 1024 * 1024

// Handlers contains the HTTP handler methods for the API.
type Handlers struct {
	ctrl *orchestrator.Controller
}

// NewHandlers creates a handler set backed by the given controller.
func NewHandlers(ctrl *orchestrator.Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// CreateRunRequest is the body for POST /api/v1/runs.
type CreateRunRequest struct {
	Goal        string         `json:"goal"`
	Constraints map[string]any `json:"constraints,omitempty"`
	// Tasks overrides the stock business-building template when present.
	Tasks []TaskDTO `json:"tasks,omitempty"`
}

// TaskDTO is the wire form of a task definition.
type TaskDTO struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	DependsOn       []string       `json:"depends_on,omitempty"`
	Agent           string         `json:"agent,omitempty"`
	PromptID        string         `json:"prompt_id,omitempty"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	ToolPermissions []string       `json:"tool_permissions,omitempty"`
}

// RunResponse is the run projection returned by run endpoints.
type RunResponse struct {
	Run      models.Run `json:"run"`
	Progress float64    `json:"progress"`
}

// HandleCreateRun handles POST /api/v1/runs.
func (h *Handlers) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	limited := io.LimitReader(r.Body, maxRequestBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		WriteError(w, fmt.Errorf("read request body: %w", ErrInvalidInput))
		return
	}
	if len(body) > maxRequestBodySize {
		WriteError(w, fmt.Errorf("request body too large (max %d bytes): %w", maxRequestBodySize, ErrInvalidInput))
		return
	}

	var req CreateRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, fmt.Errorf("invalid JSON: %w", ErrInvalidInput))
		return
	}
	if req.Goal == "" {
		WriteError(w, fmt.Errorf("goal is required: %w", ErrInvalidInput))
		return
	}

	var tasks []*models.Task
	if len(req.Tasks) > 0 {
		tasks, err = tasksFromDTOs(req.Tasks)
		if err != nil {
			WriteError(w, err)
			return
		}
	}

	run, err := h.ctrl.CreateRun(req.Goal, req.Constraints, tasks)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, RunResponse{Run: *run})
}

// HandleListRuns handles GET /api/v1/runs.
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ctrl.ListRuns()
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"runs": runs})
}

// HandleGetRun handles GET /api/v1/runs/{id}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	run, err := h.ctrl.GetRun(runID)
	if err != nil {
		WriteError(w, err)
		return
	}
	progress, err := h.ctrl.Progress(runID)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RunResponse{Run: *run, Progress: progress})
}

// HandleListTasks handles GET /api/v1/runs/{id}/tasks.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := h.ctrl.Tasks(r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"tasks": views})
}

// HandleStep handles POST /api/v1/runs/{id}/step: execute one ready task.
func (h *Handlers) HandleStep(w http.ResponseWriter, r *http.Request) {
	result, err := h.ctrl.ExecuteNext(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// HandleBatch handles POST /api/v1/runs/{id}/batch: execute up to the
// policy's parallelism limit of independent ready tasks.
func (h *Handlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	results, err := h.ctrl.ExecuteBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"results": results})
}

// HandleApprove handles POST /api/v1/runs/{id}/tasks/{task}/approve.
func (h *Handlers) HandleApprove(w http.ResponseWriter, r *http.Request) {
	result, err := h.ctrl.Approve(r.Context(), r.PathValue("id"), r.PathValue("task"))
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// HandleReject handles POST /api/v1/runs/{id}/tasks/{task}/reject.
func (h *Handlers) HandleReject(w http.ResponseWriter, r *http.Request) {
	result, err := h.ctrl.Reject(r.PathValue("id"), r.PathValue("task"))
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// HandleCancel handles POST /api/v1/runs/{id}/cancel.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if err := h.ctrl.CancelRun(runID); err != nil {
		WriteError(w, err)
		return
	}
	run, err := h.ctrl.GetRun(runID)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RunResponse{Run: *run})
}

// HandlePermissions handles GET /api/v1/permissions.
func (h *Handlers) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"agents": h.ctrl.PermissionTable()})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok"})
}

func tasksFromDTOs(dtos []TaskDTO) ([]*models.Task, error) {
	seen := make(map[string]bool, len(dtos))
	tasks := make([]*models.Task, 0, len(dtos))
	now := time.Now().UTC()

	for _, dto := range dtos {
		if dto.ID == "" {
			return nil, fmt.Errorf("task.id is required: %w", ErrInvalidInput)
		}
		if seen[dto.ID] {
			return nil, fmt.Errorf("duplicate task.id %s: %w", dto.ID, ErrInvalidInput)
		}
		seen[dto.ID] = true
		if dto.Title == "" {
			return nil, fmt.Errorf("task %s: title is required: %w", dto.ID, ErrInvalidInput)
		}

		taskType := models.TaskType(dto.Type)
		if dto.Type != "" && !taskType.Valid() {
			return nil, fmt.Errorf("task %s: unknown type %q: %w", dto.ID, dto.Type, ErrInvalidInput)
		}

		tasks = append(tasks, &models.Task{
			ID:              dto.ID,
			Type:            taskType,
			Title:           dto.Title,
			Description:     dto.Description,
			Status:          models.TaskStatusPending,
			DependsOn:       dto.DependsOn,
			AgentName:       dto.Agent,
			PromptID:        dto.PromptID,
			Inputs:          dto.Inputs,
			ToolPermissions: dto.ToolPermissions,
			CreatedAt:       now,
		})
	}
	return tasks, nil
}
