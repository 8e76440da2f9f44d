package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the closed set of roles a user can hold. The numeric values
// match the seeded rows in the roles table.
type Role int

const (
	RoleEmployee Role = 1
	RoleManager  Role = 2
	RoleAdmin    Role = 3
)

// IsValid checks if the Role is a valid enum value
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// String returns the display name of the role
func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "Employee"
	case RoleManager:
		return "Manager"
	case RoleAdmin:
		return "Admin"
	}
	return "Unknown"
}

// ParseRole resolves a role display name to its enum value
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee, true
	case "manager":
		return RoleManager, true
	case "admin":
		return RoleAdmin, true
	}
	return 0, false
}

// UserStatus represents the account status of a user
type UserStatus string

const (
	UserStatusActive UserStatus = "Active"
	UserStatusLocked UserStatus = "Locked"
)

// IsValid checks if the UserStatus is a valid enum value
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusLocked:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID                  int        `gorm:"primaryKey;autoIncrement"`
	UserCode            string     `gorm:"type:varchar(20);not null;unique;column:user_code"`
	Username            string     `gorm:"type:varchar(100);not null;unique"`
	Email               string     `gorm:"type:varchar(255);not null;unique"`
	PasswordHash        string     `gorm:"type:varchar(255);not null;column:password_hash"`
	FullName            string     `gorm:"type:varchar(200);not null;column:full_name"`
	Phone               string     `gorm:"type:varchar(50)"`
	RoleID              int        `gorm:"not null;index;column:role_id"`
	ManagerID           *int       `gorm:"index;column:manager_id"`
	Manager             *User      `gorm:"foreignKey:ManagerID"`
	Status              UserStatus `gorm:"type:varchar(20);not null;default:'Active';index"`
	ForceChangePassword bool       `gorm:"not null;default:false;column:force_change_password"`
	TwoFAEnabled        bool       `gorm:"not null;default:false;column:two_fa_enabled"`
	IsDeleted           bool       `gorm:"not null;default:false;column:is_deleted;index"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// RoleOf resolves the user's role enum. All role checks go through this
// resolver rather than comparing RoleID directly.
func RoleOf(u *User) Role {
	return Role(u.RoleID)
}

// IsAdmin reports whether the user holds the Admin role
func (u *User) IsAdmin() bool {
	return RoleOf(u) == RoleAdmin
}

// IsManager reports whether the user holds the Manager role
func (u *User) IsManager() bool {
	return RoleOf(u) == RoleManager
}

// Customer represents a business customer record
type Customer struct {
	ID               int       `gorm:"primaryKey;autoIncrement"`
	CustomerCode     string    `gorm:"type:varchar(20);not null;unique;column:customer_code"`
	CompanyName      string    `gorm:"type:varchar(200);not null;index;column:company_name"`
	Industry         string    `gorm:"type:varchar(100)"`
	Scale            string    `gorm:"type:varchar(50)"`
	Address          string    `gorm:"type:varchar(500)"`
	ContactName      string    `gorm:"type:varchar(200);column:contact_name"`
	ContactTitle     string    `gorm:"type:varchar(100);column:contact_title"`
	ContactEmail     string    `gorm:"type:varchar(255);column:contact_email"`
	ContactPhone     string    `gorm:"type:varchar(50);column:contact_phone"`
	Notes            string    `gorm:"type:text"`
	IsVIP            bool      `gorm:"not null;default:false;column:is_vip"`
	AssignedToUserID *int      `gorm:"index;column:assigned_to_user_id"`
	AssignedTo       *User     `gorm:"foreignKey:AssignedToUserID"`
	IsDeleted        bool      `gorm:"not null;default:false;column:is_deleted;index"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// DealStage is a free-text pipeline label. Unlike the other status
// dimensions it is deliberately an open string: any non-empty value is
// accepted, and "Closed Won"/"Closed Lost" are conventions rather than
// enforced terminal states.
type DealStage = string

const (
	DealStageLead       DealStage = "Lead"
	DealStageClosedWon  DealStage = "Closed Won"
	DealStageClosedLost DealStage = "Closed Lost"
)

// Deal represents a sales opportunity attached to a customer.
// A deal carries no owner field: ownership is always derived through
// Customer.AssignedToUserID via OwnerID.
type Deal struct {
	ID              int             `gorm:"primaryKey;autoIncrement"`
	Title           string          `gorm:"type:varchar(200);not null"`
	Description     string          `gorm:"type:text"`
	CustomerID      int             `gorm:"not null;index;column:customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID"`
	Stage           DealStage       `gorm:"type:varchar(100);not null;default:'Lead';index"`
	Value           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Deadline        *time.Time      `gorm:"type:date"`
	Notes           string          `gorm:"type:text"`
	CreatedByUserID int             `gorm:"not null;column:created_by_user_id"`
	CreatedBy       *User           `gorm:"foreignKey:CreatedByUserID"`
	IsDeleted       bool            `gorm:"not null;default:false;column:is_deleted;index"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// OwnerID resolves the owning employee through the customer assignment.
// Returns nil when the customer is not loaded or unassigned. Callers
// must resolve ownership through this accessor on a freshly loaded
// customer, never through a cached copy, so reassignment takes effect
// immediately.
func (d *Deal) OwnerID() *int {
	if d.Customer == nil {
		return nil
	}
	return d.Customer.AssignedToUserID
}

// ApprovalStatus represents the approval axis of a contract
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "Pending"
	ApprovalStatusApproved ApprovalStatus = "Approved"
	ApprovalStatusRejected ApprovalStatus = "Rejected"
)

// IsValid checks if the ApprovalStatus is a valid enum value
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

// PaymentStatus represents the payment axis of a contract.
// Overdue is a declared state with no producing transition in any
// operation here: it is only ever reachable through direct data
// seeding. A time-based sweep was never implemented upstream.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusOverdue PaymentStatus = "Overdue"
)

// IsValid checks if the PaymentStatus is a valid enum value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// PaymentMethod identifies how a contract was settled
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodCard         PaymentMethod = "Card"
)

// IsCash reports whether the method is the cash path, which requires an
// inline admin re-authentication before the payment transition commits
func (m PaymentMethod) IsCash() bool {
	return strings.EqualFold(string(m), string(PaymentMethodCash))
}

// Contract represents an agreement attached to a deal, with two
// independent state dimensions: the approval axis and the payment axis
type Contract struct {
	ID               int            `gorm:"primaryKey;autoIncrement"`
	Title            string         `gorm:"type:varchar(200);not null"`
	ContractContent  string         `gorm:"type:varchar(5000);column:contract_content"`
	DealID           int            `gorm:"not null;index;column:deal_id"`
	Deal             *Deal          `gorm:"foreignKey:DealID"`
	ApprovalStatus   ApprovalStatus `gorm:"type:varchar(20);not null;default:'Pending';index;column:approval_status"`
	PaymentStatus    PaymentStatus  `gorm:"type:varchar(20);not null;default:'Pending';index;column:payment_status"`
	PaymentMethod    string         `gorm:"type:varchar(50);column:payment_method"`
	PaymentAt        *time.Time     `gorm:"column:payment_at"`
	CreatedByUserID  int            `gorm:"not null;index;column:created_by_user_id"`
	CreatedBy        *User          `gorm:"foreignKey:CreatedByUserID"`
	ApprovedByUserID *int           `gorm:"column:approved_by_user_id"`
	ApprovedBy       *User          `gorm:"foreignKey:ApprovedByUserID"`
	ApprovedAt       *time.Time     `gorm:"column:approved_at"`
	FilePath         string         `gorm:"type:varchar(500);column:file_path"`
	FileHash         string         `gorm:"type:varchar(128);column:file_hash"`
	IsSensitive      bool           `gorm:"not null;default:false;column:is_sensitive"`
	IsDeleted        bool           `gorm:"not null;default:false;column:is_deleted;index"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In-Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// IsValid checks if the TaskStatus is a valid enum value
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus resolves a status literal case-insensitively to its
// canonical form. Returns false for anything outside the closed set.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TaskStatusPending, true
	case "in-progress":
		return TaskStatusInProgress, true
	case "done":
		return TaskStatusDone, true
	}
	return "", false
}

// TaskItem represents a work item assigned to a user
type TaskItem struct {
	ID               int        `gorm:"primaryKey;autoIncrement"`
	Title            string     `gorm:"type:varchar(200);not null"`
	Description      string     `gorm:"type:text"`
	Status           TaskStatus `gorm:"type:varchar(20);not null;default:'Pending';index"`
	DueDate          *time.Time `gorm:"column:due_date"`
	ReminderAt       *time.Time `gorm:"column:reminder_at"`
	AssignedToUserID int        `gorm:"not null;index;column:assigned_to_user_id"`
	AssignedTo       *User      `gorm:"foreignKey:AssignedToUserID"`
	CreatedByUserID  int        `gorm:"not null;column:created_by_user_id"`
	CreatedBy        *User      `gorm:"foreignKey:CreatedByUserID"`
	RelatedDealID    *int       `gorm:"index;column:related_deal_id"`
	RelatedDeal      *Deal      `gorm:"foreignKey:RelatedDealID"`
	IsDeleted        bool       `gorm:"not null;default:false;column:is_deleted;index"`
	CreatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the default table name
func (TaskItem) TableName() string {
	return "tasks"
}

// TicketStatus represents the status of a support ticket
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "Open"
	TicketStatusClosed TicketStatus = "Closed"
)

// SupportTicket represents a customer support request
type SupportTicket struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Subject         string       `gorm:"type:varchar(200);not null"`
	Body            string       `gorm:"type:text"`
	Status          TicketStatus `gorm:"type:varchar(20);not null;default:'Open';index"`
	CustomerID      int          `gorm:"not null;index;column:customer_id"`
	Customer        *Customer    `gorm:"foreignKey:CustomerID"`
	CreatedByUserID int          `gorm:"not null;column:created_by_user_id"`
	CreatedBy       *User        `gorm:"foreignKey:CreatedByUserID"`
	ClosedAt        *time.Time   `gorm:"column:closed_at"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate  AuditAction = "Create"
	AuditActionUpdate  AuditAction = "Update"
	AuditActionDelete  AuditAction = "Delete"
	AuditActionLogin   AuditAction = "Login"
	AuditActionLogout  AuditAction = "Logout"
	AuditActionRestore AuditAction = "Restore"
	AuditActionError   AuditAction = "Error"
)

// IsValid checks if the AuditAction is a valid enum value
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete,
		AuditActionLogin, AuditActionLogout, AuditActionRestore, AuditActionError:
		return true
	}
	return false
}

// AuditLog is an immutable append-only trail entry. Rows are written
// once per mutation and never updated or deleted.
type AuditLog struct {
	LogID     int64       `gorm:"primaryKey;autoIncrement;column:log_id"`
	UserID    *int        `gorm:"index;column:user_id"`
	User      *User       `gorm:"foreignKey:UserID"`
	Action    AuditAction `gorm:"type:varchar(20);not null;index"`
	TableName string      `gorm:"type:varchar(100);not null;index;column:table_name"`
	RecordID  string      `gorm:"type:varchar(100);not null;column:record_id"`
	OldValue  *string     `gorm:"type:text;column:old_value"`
	NewValue  *string     `gorm:"type:text;column:new_value"`
	IPAddress string      `gorm:"type:varchar(64);column:ip_address"`
	CreatedAt time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}
