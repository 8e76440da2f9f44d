package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// TaskRepository handles task data access
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *domain.TaskItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// GetByID retrieves a task by ID, including soft-deleted rows
func (r *TaskRepository) GetByID(ctx context.Context, id int) (*domain.TaskItem, error) {
	var task domain.TaskItem
	err := r.db.WithContext(ctx).Preload("AssignedTo").First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Save persists all fields of an existing task
func (r *TaskRepository) Save(ctx context.Context, task *domain.TaskItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// ListForAssignee retrieves active tasks assigned to the user
func (r *TaskRepository) ListForAssignee(ctx context.Context, userID int) ([]domain.TaskItem, error) {
	var tasks []domain.TaskItem
	err := r.db.WithContext(ctx).
		Where("assigned_to_user_id = ? AND is_deleted = ?", userID, false).
		Order("due_date IS NULL, due_date, created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// ListDueSoon retrieves the user's active unfinished tasks due before
// the cutoff
func (r *TaskRepository) ListDueSoon(ctx context.Context, userID int, cutoff time.Time) ([]domain.TaskItem, error) {
	var tasks []domain.TaskItem
	err := r.db.WithContext(ctx).
		Where("assigned_to_user_id = ? AND is_deleted = ?", userID, false).
		Where("status <> ?", domain.TaskStatusDone).
		Where("due_date IS NOT NULL AND due_date <= ?", cutoff).
		Order("due_date").
		Find(&tasks).Error
	return tasks, err
}

// ListForTeam retrieves active tasks assigned to members of the
// manager's team
func (r *TaskRepository) ListForTeam(ctx context.Context, managerID int) ([]domain.TaskItem, error) {
	var tasks []domain.TaskItem
	err := r.db.WithContext(ctx).
		Preload("AssignedTo").
		Joins("JOIN users ON users.id = tasks.assigned_to_user_id").
		Where("users.manager_id = ? AND users.is_deleted = ?", managerID, false).
		Where("tasks.is_deleted = ?", false).
		Order("tasks.due_date IS NULL, tasks.due_date").
		Find(&tasks).Error
	return tasks, err
}
