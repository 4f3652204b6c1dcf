package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

const (
	minPasswordLength = 6
	auditService      = "user-service"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

type UserQuery struct {
	Search   string
	Role     string
	IsActive *bool
	Page     int
	Limit    int
}

type UserList struct {
	Users      []*models.User `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type UserService struct {
	users      repository.UserRepository
	sessions   repository.SessionStore
	cache      repository.UserCache
	audit      repository.AuditLogger
	tokens     *auth.TokenIssuer
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// NewUserService wires the account operations. cache and audit may be nil.
func NewUserService(repos *repository.Repositories, tokens *auth.TokenIssuer, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{
		users:      repos.Users,
		sessions:   repos.Sessions,
		cache:      repos.Cache,
		audit:      repos.Audit,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.Named("user-service"),
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) newUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, errs.Validation("Name, email, and password are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, errs.Validation("Invalid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, errs.Validation("Password must be at least 6 characters")
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !models.ValidRole(in.Role) {
		return nil, errs.Validation("Invalid role")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, errs.Validation("User already exists with this email")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, errs.Internal("failed to look up user", err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, errs.Internal("failed to hash password", err)
	}

	now := s.now()
	user := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, errs.Validation("User already exists with this email")
		}
		return nil, errs.Internal("failed to create user", err)
	}
	return user, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.String("user_id", user.ID.Hex()), zap.String("role", user.Role))
	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errs.Validation("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.Auth("Invalid credentials")
	}
	if err != nil {
		return nil, errs.Internal("failed to look up user", err)
	}
	if !user.IsActive {
		return nil, errs.Auth("Account is deactivated")
	}

	ok, err := auth.CheckPassword(user.Password, password)
	if err != nil {
		return nil, errs.Internal("failed to verify password", err)
	}
	if !ok {
		return nil, errs.Auth("Invalid credentials")
	}
	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, errs.Internal("failed to issue token", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, errs.Auth("Not authorized, no token")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, errs.Auth("Not authorized, token failed")
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, errs.Internal("failed to check token", err)
	}
	if revoked {
		return nil, nil, errs.Auth("Token has been revoked")
	}

	user, err := s.cachedUser(ctx, claims.UserID())
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, errs.Auth("Account is deactivated")
	}
	return user, claims, nil
}

func (s *UserService) cachedUser(ctx context.Context, id string) (*models.User, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetUserCache(ctx, id); err == nil {
			if oid, err := primitive.ObjectIDFromHex(cached.ID); err == nil {
				return &models.User{
					ID:       oid,
					Name:     cached.Name,
					Email:    cached.Email,
					Role:     cached.Role,
					IsActive: cached.IsActive,
				}, nil
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("User cache read failed", zap.String("user_id", id), zap.Error(err))
		}
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.Auth("Not authorized, token failed")
	}
	user, err := s.users.GetByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.Auth("User not found")
	}
	if err != nil {
		return nil, errs.Internal("failed to load user", err)
	}

	if s.cache != nil {
		if err := s.cache.CacheUser(ctx, repository.NewCachedUser(user)); err != nil {
			s.logger.Warn("User cache write failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

func (s *UserService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, id.Hex()); err != nil {
		s.logger.Warn("User cache invalidation failed", zap.String("user_id", id.Hex()), zap.Error(err))
	}
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.sessions.Revoke(ctx, claims.ID, claims.TTL(s.now())); err != nil {
		return errs.Internal("failed to revoke token", err)
	}
	s.logger.Info("User logged out", zap.String("user_id", claims.UserID()))
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id, "User not found")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "User not found", "failed to load user")
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < minPasswordLength {
		return errs.Validation("New password must be at least 6 characters")
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := auth.CheckPassword(user.Password, current)
	if err != nil {
		return errs.Internal("failed to verify password", err)
	}
	if !ok {
		return errs.Validation("Current password is incorrect")
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return errs.Internal("failed to hash password", err)
	}
	user.Password = hash
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return storeErr(err, "User not found", "failed to update password")
	}
	return nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.load(ctx, userID)
}

func (s *UserService) UpdateProfilePhoto(ctx context.Context, userID, photoURL string) (*models.User, error) {
	photoURL = strings.TrimSpace(photoURL)
	if photoURL == "" {
		return nil, errs.Validation("photoURL is required")
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.ProfilePhoto = photoURL
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr(err, "User not found", "failed to update user")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, q UserQuery) (*UserList, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Search:   q.Search,
		Role:     q.Role,
		IsActive: q.IsActive,
		Skip:     skipFor(page, limit),
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, errs.Internal("failed to list users", err)
	}
	return &UserList{Users: users, Pagination: newPagination(page, limit, total)}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.load(ctx, id)
}

// Create adds an account on behalf of an admin.
func (s *UserService) Create(ctx context.Context, in RegisterInput, actor *models.User) (*models.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "create_user", user.ID, actor, map[string]any{"email": user.Email, "role": user.Role})
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, patch UserPatch, actor *models.User) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email != user.Email {
			if !emailPattern.MatchString(email) {
				return nil, errs.Validation("Invalid email")
			}
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, errs.Validation("Email is already taken")
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, errs.Internal("failed to look up user", err)
			}
			user.Email = email
			changes["email"] = email
		}
	}
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
		changes["name"] = user.Name
	}
	if patch.Role != nil {
		if !models.ValidRole(*patch.Role) {
			return nil, errs.Validation("Invalid role")
		}
		user.Role = *patch.Role
		changes["role"] = user.Role
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
		changes["isActive"] = user.IsActive
	}

	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, errs.Validation("Email is already taken")
		}
		return nil, storeErr(err, "User not found", "failed to update user")
	}
	s.invalidate(ctx, user.ID)
	s.record(ctx, "update_user", user.ID, actor, changes)
	return user, nil
}

// SoftDelete deactivates the account. Existing tokens stop working on the
// next request because authentication checks isActive.
func (s *UserService) SoftDelete(ctx context.Context, id string, actor *models.User) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = false
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return storeErr(err, "User not found", "failed to delete user")
	}
	s.invalidate(ctx, user.ID)
	s.record(ctx, "deactivate_user", user.ID, actor, nil)
	return nil
}

func (s *UserService) HardDelete(ctx context.Context, id string, actor *models.User) error {
	oid, err := parseID(id, "User not found")
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, oid); err != nil {
		return storeErr(err, "User not found", "failed to delete user")
	}
	s.invalidate(ctx, oid)
	s.record(ctx, "delete_user", oid, actor, nil)
	return nil
}

// AuditTrail returns the most recent admin actions on a user.
func (s *UserService) AuditTrail(ctx context.Context, id string, limit int64) ([]*repository.AuditLog, error) {
	if s.audit == nil {
		return []*repository.AuditLog{}, nil
	}
	oid, err := parseID(id, "User not found")
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	logs, err := s.audit.GetAuditLogs(ctx, oid.Hex(), limit)
	if err != nil {
		return nil, errs.Internal("failed to load audit log", err)
	}
	if logs == nil {
		logs = []*repository.AuditLog{}
	}
	return logs, nil
}

func (s *UserService) record(ctx context.Context, action string, entity primitive.ObjectID, actor *models.User, data map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &repository.AuditLog{
		Service:  auditService,
		Action:   action,
		EntityID: entity.Hex(),
		Data:     data,
	}
	if actor != nil {
		entry.ActorID = actor.ID.Hex()
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}
