package mapper

import (
	"time"

	"github.com/b2bcrm/crm-api/internal/domain"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// UserToDTO converts a User to its API shape. The password hash never
// leaves the service layer.
func UserToDTO(user *domain.User) *domain.UserDTO {
	dto := &domain.UserDTO{
		ID:                  user.ID,
		UserCode:            user.UserCode,
		Username:            user.Username,
		Email:               user.Email,
		FullName:            user.FullName,
		Phone:               user.Phone,
		Role:                domain.RoleOf(user).String(),
		ManagerID:           user.ManagerID,
		Status:              user.Status,
		ForceChangePassword: user.ForceChangePassword,
		IsDeleted:           user.IsDeleted,
		LastLoginAt:         formatTimePtr(user.LastLoginAt),
		CreatedAt:           formatTime(user.CreatedAt),
		UpdatedAt:           formatTime(user.UpdatedAt),
	}
	if user.Manager != nil {
		dto.ManagerName = user.Manager.FullName
	}
	return dto
}

func UsersToDTOs(users []domain.User) []*domain.UserDTO {
	dtos := make([]*domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = UserToDTO(&users[i])
	}
	return dtos
}

func CustomerToDTO(customer *domain.Customer) *domain.CustomerDTO {
	dto := &domain.CustomerDTO{
		ID:               customer.ID,
		CustomerCode:     customer.CustomerCode,
		CompanyName:      customer.CompanyName,
		Industry:         customer.Industry,
		Scale:            customer.Scale,
		Address:          customer.Address,
		ContactName:      customer.ContactName,
		ContactTitle:     customer.ContactTitle,
		ContactEmail:     customer.ContactEmail,
		ContactPhone:     customer.ContactPhone,
		Notes:            customer.Notes,
		IsVIP:            customer.IsVIP,
		AssignedToUserID: customer.AssignedToUserID,
		IsDeleted:        customer.IsDeleted,
		CreatedAt:        formatTime(customer.CreatedAt),
		UpdatedAt:        formatTime(customer.UpdatedAt),
	}
	if customer.AssignedTo != nil {
		dto.AssignedToName = customer.AssignedTo.FullName
	}
	return dto
}

func CustomersToDTOs(customers []domain.Customer) []*domain.CustomerDTO {
	dtos := make([]*domain.CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = CustomerToDTO(&customers[i])
	}
	return dtos
}

// DealToDTO converts a Deal. The owner is resolved from the loaded
// customer assignment, so callers must preload the customer.
func DealToDTO(deal *domain.Deal) *domain.DealDTO {
	dto := &domain.DealDTO{
		ID:              deal.ID,
		Title:           deal.Title,
		Description:     deal.Description,
		CustomerID:      deal.CustomerID,
		Stage:           deal.Stage,
		Value:           deal.Value,
		Deadline:        formatTimePtr(deal.Deadline),
		Notes:           deal.Notes,
		OwnerUserID:     deal.OwnerID(),
		CreatedByUserID: deal.CreatedByUserID,
		IsDeleted:       deal.IsDeleted,
		CreatedAt:       formatTime(deal.CreatedAt),
		UpdatedAt:       formatTime(deal.UpdatedAt),
	}
	if deal.Customer != nil {
		dto.CustomerName = deal.Customer.CompanyName
	}
	return dto
}

func DealsToDTOs(deals []domain.Deal) []*domain.DealDTO {
	dtos := make([]*domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = DealToDTO(&deals[i])
	}
	return dtos
}

func ContractToDTO(contract *domain.Contract) *domain.ContractDTO {
	dto := &domain.ContractDTO{
		ID:               contract.ID,
		Title:            contract.Title,
		ContractContent:  contract.ContractContent,
		DealID:           contract.DealID,
		ApprovalStatus:   contract.ApprovalStatus,
		PaymentStatus:    contract.PaymentStatus,
		PaymentMethod:    contract.PaymentMethod,
		PaymentAt:        formatTimePtr(contract.PaymentAt),
		CreatedByUserID:  contract.CreatedByUserID,
		ApprovedByUserID: contract.ApprovedByUserID,
		ApprovedAt:       formatTimePtr(contract.ApprovedAt),
		FilePath:         contract.FilePath,
		IsSensitive:      contract.IsSensitive,
		IsDeleted:        contract.IsDeleted,
		CreatedAt:        formatTime(contract.CreatedAt),
		UpdatedAt:        formatTime(contract.UpdatedAt),
	}
	if contract.Deal != nil {
		dto.DealTitle = contract.Deal.Title
	}
	if contract.CreatedBy != nil {
		dto.CreatedByName = contract.CreatedBy.FullName
	}
	if contract.ApprovedBy != nil {
		dto.ApprovedByName = contract.ApprovedBy.FullName
	}
	return dto
}

func ContractsToDTOs(contracts []domain.Contract) []*domain.ContractDTO {
	dtos := make([]*domain.ContractDTO, len(contracts))
	for i := range contracts {
		dtos[i] = ContractToDTO(&contracts[i])
	}
	return dtos
}

func TaskToDTO(task *domain.TaskItem) *domain.TaskDTO {
	dto := &domain.TaskDTO{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		Status:           task.Status,
		DueDate:          formatTimePtr(task.DueDate),
		ReminderAt:       formatTimePtr(task.ReminderAt),
		AssignedToUserID: task.AssignedToUserID,
		CreatedByUserID:  task.CreatedByUserID,
		RelatedDealID:    task.RelatedDealID,
		IsDeleted:        task.IsDeleted,
		CreatedAt:        formatTime(task.CreatedAt),
		UpdatedAt:        formatTime(task.UpdatedAt),
	}
	if task.AssignedTo != nil {
		dto.AssignedToName = task.AssignedTo.FullName
	}
	return dto
}

func TasksToDTOs(tasks []domain.TaskItem) []*domain.TaskDTO {
	dtos := make([]*domain.TaskDTO, len(tasks))
	for i := range tasks {
		dtos[i] = TaskToDTO(&tasks[i])
	}
	return dtos
}

func TicketToDTO(ticket *domain.SupportTicket) *domain.TicketDTO {
	dto := &domain.TicketDTO{
		ID:              ticket.ID,
		Subject:         ticket.Subject,
		Body:            ticket.Body,
		Status:          ticket.Status,
		CustomerID:      ticket.CustomerID,
		CreatedByUserID: ticket.CreatedByUserID,
		ClosedAt:        formatTimePtr(ticket.ClosedAt),
		CreatedAt:       formatTime(ticket.CreatedAt),
		UpdatedAt:       formatTime(ticket.UpdatedAt),
	}
	if ticket.Customer != nil {
		dto.CustomerName = ticket.Customer.CompanyName
	}
	return dto
}

func TicketsToDTOs(tickets []domain.SupportTicket) []*domain.TicketDTO {
	dtos := make([]*domain.TicketDTO, len(tickets))
	for i := range tickets {
		dtos[i] = TicketToDTO(&tickets[i])
	}
	return dtos
}

func AuditLogToDTO(entry *domain.AuditLog) *domain.AuditLogDTO {
	dto := &domain.AuditLogDTO{
		LogID:     entry.LogID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		TableName: entry.TableName,
		RecordID:  entry.RecordID,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		IPAddress: entry.IPAddress,
		CreatedAt: formatTime(entry.CreatedAt),
	}
	if entry.User != nil {
		dto.UserName = entry.User.FullName
	}
	return dto
}

func AuditLogsToDTOs(entries []domain.AuditLog) []*domain.AuditLogDTO {
	dtos := make([]*domain.AuditLogDTO, len(entries))
	for i := range entries {
		dtos[i] = AuditLogToDTO(&entries[i])
	}
	return dtos
}
