package service

import "github.com/b2bcrm/crm-api/internal/domain"

// Snapshot copies for audit serialization. Association pointers are
// stripped so the marshaled graph stays acyclic, and credentials never
// reach the audit stream.

func userSnapshot(u *domain.User) domain.User {
	cp := *u
	cp.Manager = nil
	cp.PasswordHash = ""
	return cp
}

func customerSnapshot(c *domain.Customer) domain.Customer {
	cp := *c
	cp.AssignedTo = nil
	return cp
}

func dealSnapshot(d *domain.Deal) domain.Deal {
	cp := *d
	cp.Customer = nil
	cp.CreatedBy = nil
	return cp
}

func contractSnapshot(c *domain.Contract) domain.Contract {
	cp := *c
	cp.Deal = nil
	cp.CreatedBy = nil
	cp.ApprovedBy = nil
	return cp
}

func taskSnapshot(t *domain.TaskItem) domain.TaskItem {
	cp := *t
	cp.AssignedTo = nil
	cp.CreatedBy = nil
	cp.RelatedDeal = nil
	return cp
}

func ticketSnapshot(t *domain.SupportTicket) domain.SupportTicket {
	cp := *t
	cp.Customer = nil
	cp.CreatedBy = nil
	return cp
}
