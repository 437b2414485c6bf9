package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// UserService manages client contacts and provider staff accounts.
type UserService struct {
	store      repository.Store
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store      repository.Store
	BcryptCost int
	Logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: deps.Store, bcryptCost: deps.BcryptCost, logger: logger}
}

// UserInput carries the fields of a new account.
type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// UserUpdateInput carries optional account changes. Role only applies to staff.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	Active   *bool
}

// CreateContact registers a CLIENT_CONTACT under a visible client organization.
func (s *UserService) CreateContact(ctx context.Context, principal *domain.Principal, clientID string, input UserInput) (*domain.User, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	client, err := loadVisibleClient(ctx, s.store, principal, clientID)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:                 strings.TrimSpace(input.Name),
		Email:                normalizeEmail(input.Email),
		Role:                 domain.RoleClientContact,
		Active:               true,
		ClientOrganizationID: &client.ID,
	}
	if err := s.create(ctx, user, input.Password); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateContact edits a contact of a visible client organization.
func (s *UserService) UpdateContact(ctx context.Context, principal *domain.Principal, contactID string, input UserUpdateInput) (*domain.User, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	user, err := s.loadContact(ctx, s.store, principal, contactID)
	if err != nil {
		return nil, err
	}
	input.Role = nil
	return user, s.update(ctx, user, input)
}

// DeleteContact removes a contact with no ticket activity and deactivates
// one that has any.
func (s *UserService) DeleteContact(ctx context.Context, principal *domain.Principal, contactID string) (domain.DeletionOutcome, error) {
	if !principal.IsStaff() {
		return "", apperrors.NewForbidden("staff role required")
	}
	return s.deleteOrDeactivate(ctx, func(tx repository.Store) (*domain.User, error) {
		return s.loadContact(ctx, tx, principal, contactID)
	})
}

// ListContacts lists the contacts of a visible client organization.
func (s *UserService) ListContacts(ctx context.Context, principal *domain.Principal, clientID string) ([]domain.User, error) {
	client, err := loadVisibleClient(ctx, s.store, principal, clientID)
	if err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx, repository.UserFilter{
		ClientID: &client.ID,
		Roles:    []domain.Role{domain.RoleClientContact},
	})
}

// CreateStaff registers a staff account under the admin's provider.
func (s *UserService) CreateStaff(ctx context.Context, principal *domain.Principal, input UserInput) (*domain.User, error) {
	if principal.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if !input.Role.IsStaff() {
		return nil, apperrors.NewValidationError("role must be a staff role", map[string]any{"fields": map[string]any{"role": "invalid"}})
	}
	providerID, err := resolveProviderID(ctx, s.store, principal)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:                   strings.TrimSpace(input.Name),
		Email:                  normalizeEmail(input.Email),
		Role:                   input.Role,
		Active:                 true,
		ProviderOrganizationID: &providerID,
	}
	if err := s.create(ctx, user, input.Password); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateStaff edits a staff account of the admin's provider.
func (s *UserService) UpdateStaff(ctx context.Context, principal *domain.Principal, userID string, input UserUpdateInput) (*domain.User, error) {
	if principal.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	user, err := s.loadStaff(ctx, s.store, principal, userID)
	if err != nil {
		return nil, err
	}
	if input.Role != nil && !input.Role.IsStaff() {
		return nil, apperrors.NewValidationError("role must be a staff role", map[string]any{"fields": map[string]any{"role": "invalid"}})
	}
	if user.ID == principal.ID && input.Active != nil && !*input.Active {
		return nil, apperrors.NewValidationError("cannot deactivate your own account", nil)
	}
	return user, s.update(ctx, user, input)
}

// DeleteStaff removes a staff account with no ticket activity and
// deactivates one that has any.
func (s *UserService) DeleteStaff(ctx context.Context, principal *domain.Principal, userID string) (domain.DeletionOutcome, error) {
	if principal.Role != domain.RoleAdmin {
		return "", apperrors.NewForbidden("admin role required")
	}
	if userID == principal.ID {
		return "", apperrors.NewValidationError("cannot delete your own account", nil)
	}
	return s.deleteOrDeactivate(ctx, func(tx repository.Store) (*domain.User, error) {
		return s.loadStaff(ctx, tx, principal, userID)
	})
}

// ListStaff lists the staff of the caller's provider.
func (s *UserService) ListStaff(ctx context.Context, principal *domain.Principal, active *bool) ([]domain.User, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	providerID, err := resolveProviderID(ctx, s.store, principal)
	if err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx, repository.UserFilter{
		ProviderID: &providerID,
		Roles:      domain.StaffRoles,
		Active:     active,
	})
}

func (s *UserService) create(ctx context.Context, user *domain.User, password string) error {
	fields := map[string]any{}
	if user.Name == "" {
		fields["name"] = "required"
	}
	if !strings.Contains(user.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		fields["password"] = "must be at least 8 characters long"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid user", map[string]any{"fields": fields})
	}

	if err := s.ensureEmailFree(ctx, user.Email, ""); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.store.Users().Create(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *UserService) update(ctx context.Context, user *domain.User, input UserUpdateInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.NewValidationError("name is required", nil)
		}
		user.Name = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if !strings.Contains(email, "@") {
			return apperrors.NewValidationError("email must be a valid email address", nil)
		}
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return err
		}
		user.Email = email
	}
	if input.Password != nil && *input.Password != "" {
		if err := auth.CheckPasswordPolicy(*input.Password); err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Active != nil {
		user.Active = *input.Active
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *UserService) deleteOrDeactivate(ctx context.Context, load func(tx repository.Store) (*domain.User, error)) (domain.DeletionOutcome, error) {
	var (
		outcome domain.DeletionOutcome
		userID  string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := load(tx)
		if err != nil {
			return err
		}
		userID = user.ID
		deps, err := tx.Users().CountDependents(ctx, user.ID)
		if err != nil {
			return err
		}
		if deps.Total() == 0 {
			outcome = domain.DeletionOutcomeDeleted
			return tx.Users().Delete(ctx, user.ID)
		}
		user.Active = false
		outcome = domain.DeletionOutcomeDeactivated
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("user removed", zap.String("user_id", userID), zap.String("outcome", string(outcome)))
	return outcome, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err == nil && existing.ID != exceptID {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

func (s *UserService) loadContact(ctx context.Context, store repository.Store, principal *domain.Principal, id string) (*domain.User, error) {
	user, err := store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "contact")
	}
	if user.Role != domain.RoleClientContact || user.ClientOrganizationID == nil {
		return nil, apperrors.NewNotFound("contact", nil)
	}
	if _, err := loadVisibleClient(ctx, store, principal, *user.ClientOrganizationID); err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.NewNotFound("contact", nil)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) loadStaff(ctx context.Context, store repository.Store, principal *domain.Principal, id string) (*domain.User, error) {
	providerID, err := resolveProviderID(ctx, store, principal)
	if err != nil {
		return nil, err
	}
	user, err := store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "staff member")
	}
	if !user.Role.IsStaff() || !sameID(user.ProviderOrganizationID, providerID) {
		return nil, apperrors.NewNotFound("staff member", nil)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
