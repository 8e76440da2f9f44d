package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
	"github.com/b2bcrm/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTaskTitleLength = 200

type TaskService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	audit    *AuditLogService
	logger   *zap.Logger
}

func NewTaskService(
	taskRepo *repository.TaskRepository,
	userRepo *repository.UserRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		audit:    audit,
		logger:   logger,
	}
}

// Create records a task assigned to the creating user. Tasks are
// personal; managers reach into them through the manager endpoints.
func (s *TaskService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateTaskRequest) (*domain.TaskDTO, error) {
	var messages []string

	if req.Title == "" {
		messages = append(messages, "title must not be empty")
	} else if len(req.Title) > maxTaskTitleLength {
		messages = append(messages, fmt.Sprintf("title must be at most %d characters", maxTaskTitleLength))
	}

	status := domain.TaskStatusPending
	if req.Status != "" {
		parsed, ok := domain.ParseTaskStatus(req.Status)
		if !ok {
			messages = append(messages, fmt.Sprintf("unknown task status %q", req.Status))
		} else {
			status = parsed
		}
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := parseDateTime(*req.DueDate)
		if err != nil {
			messages = append(messages, "due date is not a valid timestamp")
		} else if parsed.Before(time.Now().UTC().Add(-dueDateSkew)) {
			messages = append(messages, "due date must not be in the past")
		} else {
			dueDate = &parsed
		}
	}

	var reminderAt *time.Time
	if req.ReminderAt != nil && *req.ReminderAt != "" {
		parsed, err := parseDateTime(*req.ReminderAt)
		if err != nil {
			messages = append(messages, "reminder is not a valid timestamp")
		} else {
			reminderAt = &parsed
		}
	}

	if len(messages) > 0 {
		return nil, validationError(messages)
	}

	task := &domain.TaskItem{
		Title:            req.Title,
		Description:      req.Description,
		Status:           status,
		DueDate:          dueDate,
		ReminderAt:       reminderAt,
		RelatedDealID:    req.RelatedDealID,
		AssignedToUserID: actor.UserID,
		CreatedByUserID:  actor.UserID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionCreate,
		TableName: "Tasks",
		RecordID:  strconv.Itoa(task.ID),
		NewValue:  taskSnapshot(task),
	})

	return mapper.TaskToDTO(task), nil
}

// Update edits the non-status fields of the actor's own task.
func (s *TaskService) Update(ctx context.Context, actor *auth.UserContext, id int, req *domain.UpdateTaskRequest) (Outcome, *domain.TaskDTO, error) {
	task, err := s.loadAssigned(ctx, actor, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	before := taskSnapshot(task)
	changed, err := s.applyEdit(task, req.Title, req.Description, req.DueDate, req.ReminderAt)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}
	if req.RelatedDealID != nil && (task.RelatedDealID == nil || *task.RelatedDealID != *req.RelatedDealID) {
		task.RelatedDealID = req.RelatedDealID
		task.RelatedDeal = nil
		changed = true
	}

	if !changed {
		return OutcomeUnchanged, mapper.TaskToDTO(task), nil
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Tasks",
		RecordID:  strconv.Itoa(task.ID),
		OldValue:  before,
		NewValue:  taskSnapshot(task),
	})

	return OutcomeChanged, mapper.TaskToDTO(task), nil
}

// UpdateStatus sets the status of the actor's own task. Any of the
// known statuses may be set directly; there is no enforced ordering.
func (s *TaskService) UpdateStatus(ctx context.Context, actor *auth.UserContext, id int, statusValue string) (Outcome, *domain.TaskDTO, error) {
	status, ok := domain.ParseTaskStatus(statusValue)
	if !ok {
		return OutcomeUnchanged, nil, validationError([]string{fmt.Sprintf("unknown task status %q", statusValue)})
	}

	task, err := s.loadAssigned(ctx, actor, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if task.Status == status {
		return OutcomeUnchanged, mapper.TaskToDTO(task), nil
	}

	before := taskSnapshot(task)
	task.Status = status

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update task status: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Tasks",
		RecordID:  strconv.Itoa(task.ID),
		OldValue:  before,
		NewValue:  taskSnapshot(task),
	})

	return OutcomeChanged, mapper.TaskToDTO(task), nil
}

// SoftDelete hides the actor's own task.
func (s *TaskService) SoftDelete(ctx context.Context, actor *auth.UserContext, id int) error {
	task, err := s.loadAssigned(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.deleteTask(ctx, actor.UserID, task)
}

// ManagerUpdate is the team-scoped edit. A manager may touch any field
// including status, and may reassign the task to another team member.
func (s *TaskService) ManagerUpdate(ctx context.Context, actor *auth.UserContext, id int, req *domain.ManagerUpdateTaskRequest) (Outcome, *domain.TaskDTO, error) {
	task, err := s.loadTeamTask(ctx, actor, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	before := taskSnapshot(task)
	changed, err := s.applyEdit(task, req.Title, req.Description, req.DueDate, req.ReminderAt)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if req.Status != nil {
		status, ok := domain.ParseTaskStatus(*req.Status)
		if !ok {
			return OutcomeUnchanged, nil, validationError([]string{fmt.Sprintf("unknown task status %q", *req.Status)})
		}
		if task.Status != status {
			task.Status = status
			changed = true
		}
	}

	if req.AssignedToUserID != nil && *req.AssignedToUserID != task.AssignedToUserID {
		inTeam, err := s.userRepo.IsTeamMember(ctx, actor.UserID, *req.AssignedToUserID)
		if err != nil {
			return OutcomeUnchanged, nil, fmt.Errorf("failed to verify team membership: %w", err)
		}
		if !inTeam {
			return OutcomeUnchanged, nil, fmt.Errorf("%w: target user is not in your team", ErrPermissionDenied)
		}
		task.AssignedToUserID = *req.AssignedToUserID
		task.AssignedTo = nil
		changed = true
	}

	if !changed {
		return OutcomeUnchanged, mapper.TaskToDTO(task), nil
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Tasks",
		RecordID:  strconv.Itoa(task.ID),
		OldValue:  before,
		NewValue:  taskSnapshot(task),
	})

	return OutcomeChanged, mapper.TaskToDTO(task), nil
}

// ManagerSoftDelete hides a team member's task.
func (s *TaskService) ManagerSoftDelete(ctx context.Context, actor *auth.UserContext, id int) error {
	task, err := s.loadTeamTask(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.deleteTask(ctx, actor.UserID, task)
}

// Get returns a task the actor may see: the assignee or a manager over
// the assignee.
func (s *TaskService) Get(ctx context.Context, actor *auth.UserContext, id int) (*domain.TaskDTO, error) {
	task, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.AssignedToUserID != actor.UserID {
		if !actor.IsManager() {
			return nil, ErrPermissionDenied
		}
		inTeam, err := s.userRepo.IsTeamMember(ctx, actor.UserID, task.AssignedToUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify team membership: %w", err)
		}
		if !inTeam {
			return nil, ErrPermissionDenied
		}
	}
	return mapper.TaskToDTO(task), nil
}

// ListMine returns the actor's open and done tasks.
func (s *TaskService) ListMine(ctx context.Context, actor *auth.UserContext) ([]*domain.TaskDTO, error) {
	tasks, err := s.taskRepo.ListForAssignee(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return mapper.TasksToDTOs(tasks), nil
}

// ListDueSoon returns the actor's unfinished tasks due within the
// given window.
func (s *TaskService) ListDueSoon(ctx context.Context, actor *auth.UserContext, window time.Duration) ([]*domain.TaskDTO, error) {
	cutoff := time.Now().UTC().Add(window)
	tasks, err := s.taskRepo.ListDueSoon(ctx, actor.UserID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}
	return mapper.TasksToDTOs(tasks), nil
}

// ListTeam returns all tasks assigned to the acting manager's team.
func (s *TaskService) ListTeam(ctx context.Context, actor *auth.UserContext) ([]*domain.TaskDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	tasks, err := s.taskRepo.ListForTeam(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team tasks: %w", err)
	}
	return mapper.TasksToDTOs(tasks), nil
}

func (s *TaskService) deleteTask(ctx context.Context, actorID int, task *domain.TaskItem) error {
	before := taskSnapshot(task)
	task.IsDeleted = true

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actorID,
		Action:    domain.AuditActionDelete,
		TableName: "Tasks",
		RecordID:  strconv.Itoa(task.ID),
		OldValue:  before,
	})

	return nil
}

// applyEdit applies the shared non-status fields and reports whether
// anything changed.
func (s *TaskService) applyEdit(task *domain.TaskItem, title, description, dueDate, reminderAt *string) (bool, error) {
	var messages []string
	changed := false

	if title != nil && *title != task.Title {
		if *title == "" {
			messages = append(messages, "title must not be empty")
		} else if len(*title) > maxTaskTitleLength {
			messages = append(messages, fmt.Sprintf("title must be at most %d characters", maxTaskTitleLength))
		} else {
			task.Title = *title
			changed = true
		}
	}
	if description != nil && *description != task.Description {
		task.Description = *description
		changed = true
	}
	if dueDate != nil {
		if *dueDate == "" {
			if task.DueDate != nil {
				task.DueDate = nil
				changed = true
			}
		} else {
			parsed, err := parseDateTime(*dueDate)
			if err != nil {
				messages = append(messages, "due date is not a valid timestamp")
			} else if parsed.Before(time.Now().UTC().Add(-dueDateSkew)) {
				messages = append(messages, "due date must not be in the past")
			} else if task.DueDate == nil || !task.DueDate.Equal(parsed) {
				task.DueDate = &parsed
				changed = true
			}
		}
	}
	if reminderAt != nil {
		if *reminderAt == "" {
			if task.ReminderAt != nil {
				task.ReminderAt = nil
				changed = true
			}
		} else {
			parsed, err := parseDateTime(*reminderAt)
			if err != nil {
				messages = append(messages, "reminder is not a valid timestamp")
			} else if task.ReminderAt == nil || !task.ReminderAt.Equal(parsed) {
				task.ReminderAt = &parsed
				changed = true
			}
		}
	}

	if len(messages) > 0 {
		return false, validationError(messages)
	}
	return changed, nil
}

func (s *TaskService) loadActive(ctx context.Context, id int) (*domain.TaskItem, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task.IsDeleted {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *TaskService) loadAssigned(ctx context.Context, actor *auth.UserContext, id int) (*domain.TaskItem, error) {
	task, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.AssignedToUserID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	return task, nil
}

// loadTeamTask loads a task whose assignee reports to the acting
// manager.
func (s *TaskService) loadTeamTask(ctx context.Context, actor *auth.UserContext, id int) (*domain.TaskItem, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	task, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	inTeam, err := s.userRepo.IsTeamMember(ctx, actor.UserID, task.AssignedToUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	if !inTeam {
		return nil, ErrPermissionDenied
	}
	return task, nil
}
