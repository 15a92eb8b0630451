package identity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/domain/identity"
	"github.com/conexapi/backend/internal/domain/shared"
)

// UserService handles administrative user management.
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user management service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Create creates a user with an explicit role.
func (s *UserService) Create(ctx context.Context, email, password, role string) (*UserInfo, error) {
	userRole := identity.Role(role)
	if role == "" {
		userRole = identity.RoleRegular
	}
	if !userRole.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be regular or admin")
	}

	user, err := identity.NewUser(email, password, userRole)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	info := toUserInfo(user)
	return &info, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, userID string) (*UserInfo, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}

// List returns a page of users and the total count.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]UserInfo, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	infos := make([]UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, toUserInfo(user))
	}
	return infos, total, nil
}

// Update modifies a user's email, role, or active state.
func (s *UserService) Update(ctx context.Context, userID string, input UpdateUserInput) (*UserInfo, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != "" {
		if err := user.ChangeEmail(input.Email); err != nil {
			return nil, err
		}
	}
	if input.Role != "" {
		role := identity.Role(input.Role)
		if !role.IsValid() {
			return nil, shared.NewDomainError("INVALID_ROLE", "Role must be regular or admin")
		}
		user.Role = role
	}
	if input.IsActive != nil {
		if *input.IsActive {
			user.IsActive = true
		} else {
			user.Deactivate()
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	info := toUserInfo(user)
	return &info, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.String("user_id", userID))
	return nil
}

// parseUserID parses a user id from its string form.
func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_ID", "User id must be a valid UUID")
	}
	return id, nil
}
