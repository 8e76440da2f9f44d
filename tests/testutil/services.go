package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/internal/storage"
)

// Services bundles the fully wired service layer over a test database
type Services struct {
	Audit    *service.AuditLogService
	User     *service.UserService
	Customer *service.CustomerService
	Deal     *service.DealService
	Contract *service.ContractService
	Task     *service.TaskService
	Ticket   *service.TicketService
}

// NewServices wires the service graph the same way cmd/api does,
// backed by local document storage under a per-test temp directory
func NewServices(t *testing.T, db *gorm.DB) *Services {
	t.Helper()

	log := Logger()
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	contractRepo := repository.NewContractRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	audit := service.NewAuditLogService(auditRepo, log)

	files, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	return &Services{
		Audit:    audit,
		User:     service.NewUserService(userRepo, audit, bcrypt.MinCost, log),
		Customer: service.NewCustomerService(customerRepo, userRepo, audit, log),
		Deal:     service.NewDealService(dealRepo, customerRepo, audit, log),
		Contract: service.NewContractService(contractRepo, dealRepo, userRepo, audit, files, log),
		Task:     service.NewTaskService(taskRepo, userRepo, audit, log),
		Ticket:   service.NewTicketService(ticketRepo, customerRepo, audit, log),
	}
}
