package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API requests and responses. Timestamps are ISO 8601 strings.

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// LoginRequest carries user credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and the authenticated user
type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      UserDTO `json:"user"`
}

type UserDTO struct {
	ID                  int        `json:"id"`
	UserCode            string     `json:"userCode"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	FullName            string     `json:"fullName"`
	Phone               string     `json:"phone,omitempty"`
	Role                string     `json:"role"`
	ManagerID           *int       `json:"managerId,omitempty"`
	ManagerName         string     `json:"managerName,omitempty"`
	Status              UserStatus `json:"status"`
	ForceChangePassword bool       `json:"forceChangePassword"`
	IsDeleted           bool       `json:"isDeleted"`
	LastLoginAt         *string    `json:"lastLoginAt,omitempty"`
	CreatedAt           string     `json:"createdAt"`
	UpdatedAt           string     `json:"updatedAt"`
}

type CreateUserRequest struct {
	UserCode  string `json:"userCode" validate:"required,max=20"`
	Username  string `json:"username" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8"`
	FullName  string `json:"fullName" validate:"required,max=200"`
	Phone     string `json:"phone" validate:"max=50"`
	Role      string `json:"role" validate:"required"`
	ManagerID *int   `json:"managerId"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	FullName  *string `json:"fullName" validate:"omitempty,max=200"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	ManagerID *int    `json:"managerId"`
}

type ChangeRoleRequest struct {
	Role      string `json:"role" validate:"required"`
	ManagerID *int   `json:"managerId"`
}

type CustomerDTO struct {
	ID               int    `json:"id"`
	CustomerCode     string `json:"customerCode"`
	CompanyName      string `json:"companyName"`
	Industry         string `json:"industry,omitempty"`
	Scale            string `json:"scale,omitempty"`
	Address          string `json:"address,omitempty"`
	ContactName      string `json:"contactName,omitempty"`
	ContactTitle     string `json:"contactTitle,omitempty"`
	ContactEmail     string `json:"contactEmail,omitempty"`
	ContactPhone     string `json:"contactPhone,omitempty"`
	Notes            string `json:"notes,omitempty"`
	IsVIP            bool   `json:"isVip"`
	AssignedToUserID *int   `json:"assignedToUserId,omitempty"`
	AssignedToName   string `json:"assignedToName,omitempty"`
	IsDeleted        bool   `json:"isDeleted"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type CreateCustomerRequest struct {
	CompanyName  string `json:"companyName" validate:"required,max=200"`
	Industry     string `json:"industry" validate:"max=100"`
	Scale        string `json:"scale" validate:"max=50"`
	Address      string `json:"address" validate:"max=500"`
	ContactName  string `json:"contactName" validate:"max=200"`
	ContactTitle string `json:"contactTitle" validate:"max=100"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email,max=255"`
	ContactPhone string `json:"contactPhone" validate:"max=50"`
	Notes        string `json:"notes"`
}

type UpdateCustomerRequest struct {
	CompanyName  *string `json:"companyName" validate:"omitempty,max=200"`
	Industry     *string `json:"industry" validate:"omitempty,max=100"`
	Scale        *string `json:"scale" validate:"omitempty,max=50"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	ContactName  *string `json:"contactName" validate:"omitempty,max=200"`
	ContactTitle *string `json:"contactTitle" validate:"omitempty,max=100"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email,max=255"`
	ContactPhone *string `json:"contactPhone" validate:"omitempty,max=50"`
	Notes        *string `json:"notes"`
}

type ReassignCustomerRequest struct {
	AssignedToUserID int `json:"assignedToUserId" validate:"required,gt=0"`
}

type DealDTO struct {
	ID              int             `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	CustomerID      int             `json:"customerId"`
	CustomerName    string          `json:"customerName,omitempty"`
	Stage           string          `json:"stage"`
	Value           decimal.Decimal `json:"value"`
	Deadline        *string         `json:"deadline,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	OwnerUserID     *int            `json:"ownerUserId,omitempty"`
	CreatedByUserID int             `json:"createdByUserId"`
	IsDeleted       bool            `json:"isDeleted"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type CreateDealRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	CustomerID  int             `json:"customerId" validate:"required,gt=0"`
	Stage       string          `json:"stage" validate:"max=100"`
	Value       decimal.Decimal `json:"value" validate:"required"`
	Deadline    *string         `json:"deadline"`
	Notes       string          `json:"notes"`
}

type UpdateDealRequest struct {
	Title       *string          `json:"title" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Value       *decimal.Decimal `json:"value"`
	Deadline    *string          `json:"deadline"`
	Notes       *string          `json:"notes"`
}

type UpdateDealStageRequest struct {
	Stage string `json:"stage" validate:"required,max=100"`
}

// PipelineStageSummary aggregates deal counts and value per stage
type PipelineStageSummary struct {
	Stage      string          `json:"stage"`
	DealCount  int64           `json:"dealCount"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type ContractDTO struct {
	ID               int            `json:"id"`
	Title            string         `json:"title"`
	ContractContent  string         `json:"contractContent,omitempty"`
	DealID           int            `json:"dealId"`
	DealTitle        string         `json:"dealTitle,omitempty"`
	ApprovalStatus   ApprovalStatus `json:"approvalStatus"`
	PaymentStatus    PaymentStatus  `json:"paymentStatus"`
	PaymentMethod    string         `json:"paymentMethod,omitempty"`
	PaymentAt        *string        `json:"paymentAt,omitempty"`
	CreatedByUserID  int            `json:"createdByUserId"`
	CreatedByName    string         `json:"createdByName,omitempty"`
	ApprovedByUserID *int           `json:"approvedByUserId,omitempty"`
	ApprovedByName   string         `json:"approvedByName,omitempty"`
	ApprovedAt       *string        `json:"approvedAt,omitempty"`
	FilePath         string         `json:"filePath,omitempty"`
	IsSensitive      bool           `json:"isSensitive"`
	IsDeleted        bool           `json:"isDeleted"`
	CreatedAt        string         `json:"createdAt"`
	UpdatedAt        string         `json:"updatedAt"`
}

type CreateContractRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	ContractContent string `json:"contractContent" validate:"max=5000"`
	DealID          int    `json:"dealId" validate:"required,gt=0"`
	IsSensitive     bool   `json:"isSensitive"`
}

type UpdateContractRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=200"`
	ContractContent *string `json:"contractContent" validate:"omitempty,max=5000"`
	IsSensitive     *bool   `json:"isSensitive"`
}

// MarkPaidRequest carries the payment method. The admin credential pair
// is only consulted for the cash path.
type MarkPaidRequest struct {
	Method        string `json:"method" validate:"required,max=50"`
	AdminUserCode string `json:"adminUserCode"`
	AdminPassword string `json:"adminPassword"`
}

type TaskDTO struct {
	ID               int        `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           TaskStatus `json:"status"`
	DueDate          *string    `json:"dueDate,omitempty"`
	ReminderAt       *string    `json:"reminderAt,omitempty"`
	AssignedToUserID int        `json:"assignedToUserId"`
	AssignedToName   string     `json:"assignedToName,omitempty"`
	CreatedByUserID  int        `json:"createdByUserId"`
	RelatedDealID    *int       `json:"relatedDealId,omitempty"`
	IsDeleted        bool       `json:"isDeleted"`
	CreatedAt        string     `json:"createdAt"`
	UpdatedAt        string     `json:"updatedAt"`
}

type CreateTaskRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description"`
	Status        string  `json:"status" validate:"max=20"`
	DueDate       *string `json:"dueDate"`
	ReminderAt    *string `json:"reminderAt"`
	RelatedDealID *int    `json:"relatedDealId"`
}

type UpdateTaskRequest struct {
	Title         *string `json:"title" validate:"omitempty,max=200"`
	Description   *string `json:"description"`
	DueDate       *string `json:"dueDate"`
	ReminderAt    *string `json:"reminderAt"`
	RelatedDealID *int    `json:"relatedDealId"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,max=20"`
}

// ManagerUpdateTaskRequest is the manager-scoped edit, which may also
// set the status or reassign the task within the manager's team
type ManagerUpdateTaskRequest struct {
	Title            *string `json:"title" validate:"omitempty,max=200"`
	Description      *string `json:"description"`
	Status           *string `json:"status" validate:"omitempty,max=20"`
	DueDate          *string `json:"dueDate"`
	ReminderAt       *string `json:"reminderAt"`
	AssignedToUserID *int    `json:"assignedToUserId"`
}

type TicketDTO struct {
	ID              uuid.UUID    `json:"id"`
	Subject         string       `json:"subject"`
	Body            string       `json:"body,omitempty"`
	Status          TicketStatus `json:"status"`
	CustomerID      int          `json:"customerId"`
	CustomerName    string       `json:"customerName,omitempty"`
	CreatedByUserID int          `json:"createdByUserId"`
	ClosedAt        *string      `json:"closedAt,omitempty"`
	CreatedAt       string       `json:"createdAt"`
	UpdatedAt       string       `json:"updatedAt"`
}

type CreateTicketRequest struct {
	Subject    string `json:"subject" validate:"required,max=200"`
	Body       string `json:"body"`
	CustomerID int    `json:"customerId" validate:"required,gt=0"`
}

type AuditLogDTO struct {
	LogID     int64       `json:"logId"`
	UserID    *int        `json:"userId,omitempty"`
	UserName  string      `json:"userName,omitempty"`
	Action    AuditAction `json:"action"`
	TableName string      `json:"tableName"`
	RecordID  string      `json:"recordId"`
	OldValue  *string     `json:"oldValue,omitempty"`
	NewValue  *string     `json:"newValue,omitempty"`
	IPAddress string      `json:"ipAddress,omitempty"`
	CreatedAt string      `json:"createdAt"`
}

// AuditLogFilter narrows audit log listings
type AuditLogFilter struct {
	UserID    *int
	Action    string
	TableName string
	Limit     int
	Offset    int
}
