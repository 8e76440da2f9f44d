package mapper_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
)

func TestUserToDTO(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	lastLogin := time.Date(2026, 3, 1, 13, 30, 0, 0, loc)
	managerID := 4

	user := &domain.User{
		ID:           10,
		UserCode:     "EMP010",
		Username:     "kari",
		Email:        "kari@example.com",
		PasswordHash: "$2a$10$secret",
		FullName:     "Kari Nordmann",
		RoleID:       int(domain.RoleEmployee),
		ManagerID:    &managerID,
		Manager:      &domain.User{ID: 4, FullName: "Ola Ledersen"},
		Status:       domain.UserStatusActive,
		LastLoginAt:  &lastLogin,
		CreatedAt:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}

	dto := mapper.UserToDTO(user)
	assert.Equal(t, "Employee", dto.Role)
	assert.Equal(t, "Ola Ledersen", dto.ManagerName)
	assert.Equal(t, "2026-01-15T09:00:00Z", dto.CreatedAt)

	// Non-UTC timestamps are normalized before formatting
	require.NotNil(t, dto.LastLoginAt)
	assert.Equal(t, "2026-03-01T12:30:00Z", *dto.LastLoginAt)
}

func TestDealToDTO_OwnerFollowsCustomer(t *testing.T) {
	assignee := 7
	deal := &domain.Deal{
		ID:         3,
		Title:      "Ventilation upgrade",
		CustomerID: 5,
		Customer: &domain.Customer{
			ID:               5,
			CompanyName:      "Luftig AS",
			AssignedToUserID: &assignee,
		},
		Stage:           domain.DealStageLead,
		Value:           decimal.NewFromInt(42000),
		CreatedByUserID: 9,
	}

	dto := mapper.DealToDTO(deal)
	require.NotNil(t, dto.OwnerUserID)
	assert.Equal(t, assignee, *dto.OwnerUserID)
	assert.Equal(t, "Luftig AS", dto.CustomerName)

	// Without the customer loaded there is no owner to report
	deal.Customer = nil
	dto = mapper.DealToDTO(deal)
	assert.Nil(t, dto.OwnerUserID)
}

func TestContractToDTO(t *testing.T) {
	approvedAt := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	approverID := 2

	contract := &domain.Contract{
		ID:               1,
		Title:            "Service agreement",
		DealID:           3,
		Deal:             &domain.Deal{ID: 3, Title: "Ventilation upgrade"},
		ApprovalStatus:   domain.ApprovalStatusApproved,
		PaymentStatus:    domain.PaymentStatusPending,
		CreatedByUserID:  9,
		ApprovedByUserID: &approverID,
		ApprovedBy:       &domain.User{ID: 2, FullName: "Ola Ledersen"},
		ApprovedAt:       &approvedAt,
	}

	dto := mapper.ContractToDTO(contract)
	assert.Equal(t, "Ventilation upgrade", dto.DealTitle)
	assert.Equal(t, "Ola Ledersen", dto.ApprovedByName)
	require.NotNil(t, dto.ApprovedAt)
	assert.Equal(t, "2026-04-02T08:00:00Z", *dto.ApprovedAt)
}

func TestCustomersToDTOs(t *testing.T) {
	customers := []domain.Customer{
		{ID: 1, CustomerCode: "CUST0001", CompanyName: "Alfa AS"},
		{ID: 2, CustomerCode: "CUST0002", CompanyName: "Beta AS"},
	}

	dtos := mapper.CustomersToDTOs(customers)
	require.Len(t, dtos, 2)
	assert.Equal(t, "Alfa AS", dtos[0].CompanyName)
	assert.Equal(t, "CUST0002", dtos[1].CustomerCode)
}

func TestAuditLogToDTO(t *testing.T) {
	userID := 3
	old := `{"title":"Old"}`
	entry := &domain.AuditLog{
		LogID:     99,
		UserID:    &userID,
		User:      &domain.User{ID: 3, FullName: "Kari Nordmann"},
		Action:    domain.AuditActionUpdate,
		TableName: "Deals",
		RecordID:  "12",
		OldValue:  &old,
		IPAddress: "203.0.113.9",
		CreatedAt: time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC),
	}

	dto := mapper.AuditLogToDTO(entry)
	assert.Equal(t, int64(99), dto.LogID)
	assert.Equal(t, "Kari Nordmann", dto.UserName)
	assert.Equal(t, "2026-05-05T05:05:05Z", dto.CreatedAt)
	require.NotNil(t, dto.OldValue)
	assert.Equal(t, old, *dto.OldValue)
}
