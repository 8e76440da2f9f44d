package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/mapper"
	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/b2bcrm/crm-api/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ContractService struct {
	contractRepo *repository.ContractRepository
	dealRepo     *repository.DealRepository
	userRepo     *repository.UserRepository
	audit        *AuditLogService
	files        storage.Storage
	logger       *zap.Logger
}

func NewContractService(
	contractRepo *repository.ContractRepository,
	dealRepo *repository.DealRepository,
	userRepo *repository.UserRepository,
	audit *AuditLogService,
	files storage.Storage,
	logger *zap.Logger,
) *ContractService {
	return &ContractService{
		contractRepo: contractRepo,
		dealRepo:     dealRepo,
		userRepo:     userRepo,
		audit:        audit,
		files:        files,
		logger:       logger,
	}
}

// Create drafts a contract against a deal the actor owns. New contracts
// always start with pending approval and pending payment.
func (s *ContractService) Create(ctx context.Context, actor *auth.UserContext, req *domain.CreateContractRequest) (*domain.ContractDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, req.DealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load deal: %w", err)
	}
	if deal.IsDeleted {
		return nil, ErrNotFound
	}
	if ownerID := deal.OwnerID(); ownerID == nil || *ownerID != actor.UserID {
		return nil, ErrPermissionDenied
	}

	contract := &domain.Contract{
		Title:           req.Title,
		ContractContent: req.ContractContent,
		DealID:          deal.ID,
		ApprovalStatus:  domain.ApprovalStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedByUserID: actor.UserID,
		IsSensitive:     req.IsSensitive,
	}

	if err := s.contractRepo.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	contract.Deal = deal

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionCreate,
		TableName: "Contracts",
		RecordID:  strconv.Itoa(contract.ID),
		NewValue:  contractSnapshot(contract),
	})

	return mapper.ContractToDTO(contract), nil
}

// Update edits the draft. Only the creator may edit, and only while the
// contract is still pending approval.
func (s *ContractService) Update(ctx context.Context, actor *auth.UserContext, id int, req *domain.UpdateContractRequest) (Outcome, *domain.ContractDTO, error) {
	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}
	if err := s.requireEditableBy(contract, actor); err != nil {
		return OutcomeUnchanged, nil, err
	}

	before := contractSnapshot(contract)
	changed := false

	if req.Title != nil && *req.Title != contract.Title {
		contract.Title = *req.Title
		changed = true
	}
	if req.ContractContent != nil && *req.ContractContent != contract.ContractContent {
		contract.ContractContent = *req.ContractContent
		changed = true
	}
	if req.IsSensitive != nil && *req.IsSensitive != contract.IsSensitive {
		contract.IsSensitive = *req.IsSensitive
		changed = true
	}

	if !changed {
		return OutcomeUnchanged, mapper.ContractToDTO(contract), nil
	}

	if err := s.contractRepo.Save(ctx, contract); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to update contract: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Contracts",
		RecordID:  strconv.Itoa(contract.ID),
		OldValue:  before,
		NewValue:  contractSnapshot(contract),
	})

	return OutcomeChanged, mapper.ContractToDTO(contract), nil
}

// SoftDelete withdraws a pending draft. The creator-while-pending rule
// applies, so approved contracts are permanent records.
func (s *ContractService) SoftDelete(ctx context.Context, actor *auth.UserContext, id int) error {
	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireEditableBy(contract, actor); err != nil {
		return err
	}

	before := contractSnapshot(contract)
	contract.IsDeleted = true

	if err := s.contractRepo.Save(ctx, contract); err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionDelete,
		TableName: "Contracts",
		RecordID:  strconv.Itoa(contract.ID),
		OldValue:  before,
	})

	return nil
}

// Approve stamps the contract as approved by the acting manager or
// admin. Re-approving or approving a rejected contract simply re-stamps
// the decision; the audit trail carries the full history of flips.
func (s *ContractService) Approve(ctx context.Context, actor *auth.UserContext, id int) (*domain.ContractDTO, error) {
	return s.decide(ctx, actor, id, domain.ApprovalStatusApproved)
}

// Reject stamps the contract as rejected. Like Approve, it is valid
// from any approval state.
func (s *ContractService) Reject(ctx context.Context, actor *auth.UserContext, id int) (*domain.ContractDTO, error) {
	return s.decide(ctx, actor, id, domain.ApprovalStatusRejected)
}

func (s *ContractService) decide(ctx context.Context, actor *auth.UserContext, id int, status domain.ApprovalStatus) (*domain.ContractDTO, error) {
	if !actor.CanApprove() {
		return nil, ErrPermissionDenied
	}

	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	before := contractSnapshot(contract)
	now := time.Now().UTC()
	approverID := actor.UserID

	contract.ApprovalStatus = status
	contract.ApprovedByUserID = &approverID
	contract.ApprovedAt = &now
	contract.ApprovedBy = nil

	if err := s.contractRepo.Save(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to record approval decision: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Contracts",
		RecordID:  strconv.Itoa(contract.ID),
		OldValue:  before,
		NewValue:  contractSnapshot(contract),
	})

	return mapper.ContractToDTO(contract), nil
}

// MarkPaid records payment on an approved contract. Cash payments carry
// fraud risk, so they require a second set of admin credentials checked
// inline; the audit entry is then attributed to that admin.
func (s *ContractService) MarkPaid(ctx context.Context, actor *auth.UserContext, id int, req *domain.MarkPaidRequest) (Outcome, *domain.ContractDTO, error) {
	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return OutcomeUnchanged, nil, err
	}

	if contract.CreatedByUserID != actor.UserID && !actor.CanApprove() {
		return OutcomeUnchanged, nil, ErrPermissionDenied
	}

	if contract.ApprovalStatus != domain.ApprovalStatusApproved {
		return OutcomeUnchanged, nil, fmt.Errorf("%w: contract must be approved before payment", ErrInvalidInput)
	}

	if contract.PaymentStatus == domain.PaymentStatusPaid {
		// Already settled. Reporting unchanged lets the handler answer
		// with the existing state instead of an error.
		return OutcomeUnchanged, mapper.ContractToDTO(contract), nil
	}

	method := domain.PaymentMethod(req.Method)
	auditUserID := actor.UserID

	if method.IsCash() {
		admin, err := s.verifyAdmin(ctx, req.AdminUserCode, req.AdminPassword)
		if err != nil {
			return OutcomeUnchanged, nil, err
		}
		auditUserID = admin.ID
	}

	before := contractSnapshot(contract)
	now := time.Now().UTC()

	contract.PaymentStatus = domain.PaymentStatusPaid
	contract.PaymentMethod = string(method)
	contract.PaymentAt = &now

	if err := s.contractRepo.Save(ctx, contract); err != nil {
		return OutcomeUnchanged, nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &auditUserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Contracts",
		RecordID:  strconv.Itoa(contract.ID),
		OldValue:  before,
		NewValue:  contractSnapshot(contract),
	})

	return OutcomeChanged, mapper.ContractToDTO(contract), nil
}

// AttachDocument stores the signed document and pins its hash on the
// contract. The creator-while-pending rule applies.
func (s *ContractService) AttachDocument(ctx context.Context, actor *auth.UserContext, id int, filename, contentType string, data io.Reader) (*domain.ContractDTO, error) {
	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditableBy(contract, actor); err != nil {
		return nil, err
	}

	hasher := sha256.New()
	path, _, err := s.files.Upload(ctx, filename, contentType, io.TeeReader(data, hasher))
	if err != nil {
		return nil, fmt.Errorf("failed to store contract document: %w", err)
	}

	before := contractSnapshot(contract)
	contract.FilePath = path
	contract.FileHash = hex.EncodeToString(hasher.Sum(nil))

	if err := s.contractRepo.Save(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	s.audit.Log(ctx, LogEntry{
		UserID:    &actor.UserID,
		Action:    domain.AuditActionUpdate,
		TableName: "Contracts",
		RecordID:  strconv.Itoa(contract.ID),
		OldValue:  before,
		NewValue:  contractSnapshot(contract),
	})

	return mapper.ContractToDTO(contract), nil
}

// DownloadDocument streams the stored document for a contract the actor
// may see.
func (s *ContractService) DownloadDocument(ctx context.Context, actor *auth.UserContext, id int) (io.ReadCloser, string, error) {
	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if contract.CreatedByUserID != actor.UserID && !actor.CanApprove() {
		return nil, "", ErrPermissionDenied
	}
	if contract.FilePath == "" {
		return nil, "", ErrNotFound
	}
	rc, err := s.files.Download(ctx, contract.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open contract document: %w", err)
	}
	return rc, contract.FilePath, nil
}

// Get returns a contract visible to the actor: the creator, or any
// manager or admin.
func (s *ContractService) Get(ctx context.Context, actor *auth.UserContext, id int) (*domain.ContractDTO, error) {
	contract, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.CreatedByUserID != actor.UserID && !actor.CanApprove() {
		return nil, ErrPermissionDenied
	}
	return mapper.ContractToDTO(contract), nil
}

// ListMine returns contracts the actor created.
func (s *ContractService) ListMine(ctx context.Context, actor *auth.UserContext) ([]*domain.ContractDTO, error) {
	contracts, err := s.contractRepo.ListByCreator(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return mapper.ContractsToDTOs(contracts), nil
}

// ListPending returns the approval queue for managers and admins.
func (s *ContractService) ListPending(ctx context.Context, actor *auth.UserContext) ([]*domain.ContractDTO, error) {
	if !actor.CanApprove() {
		return nil, ErrPermissionDenied
	}
	contracts, err := s.contractRepo.ListPendingApproval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending contracts: %w", err)
	}
	return mapper.ContractsToDTOs(contracts), nil
}

// ListTeam returns contracts created by the acting manager's team.
func (s *ContractService) ListTeam(ctx context.Context, actor *auth.UserContext) ([]*domain.ContractDTO, error) {
	if !actor.IsManager() {
		return nil, ErrPermissionDenied
	}
	contracts, err := s.contractRepo.ListForTeam(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team contracts: %w", err)
	}
	return mapper.ContractsToDTOs(contracts), nil
}

func (s *ContractService) loadActive(ctx context.Context, id int) (*domain.Contract, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	if contract.IsDeleted {
		return nil, ErrNotFound
	}
	return contract, nil
}

func (s *ContractService) requireEditableBy(contract *domain.Contract, actor *auth.UserContext) error {
	if contract.CreatedByUserID != actor.UserID {
		return ErrPermissionDenied
	}
	if contract.ApprovalStatus != domain.ApprovalStatusPending {
		return fmt.Errorf("%w: contract is no longer pending", ErrPermissionDenied)
	}
	return nil
}

// verifyAdmin checks the inline admin credentials presented for a cash
// payment. Every failure maps to the same error so the response does
// not reveal whether the user code exists.
func (s *ContractService) verifyAdmin(ctx context.Context, userCode, password string) (*domain.User, error) {
	if userCode == "" || password == "" {
		return nil, fmt.Errorf("%w: cash payments require admin credentials", ErrInvalidCredentials)
	}

	admin, err := s.userRepo.GetByUserCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load admin account: %w", err)
	}

	if domain.RoleOf(admin) != domain.RoleAdmin || admin.Status != domain.UserStatusActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}
