package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"revenuehub/internal/access"
	geo "revenuehub/internal/geo/models"
	"revenuehub/internal/identity/models"
	"revenuehub/internal/identity/secrets"
	"revenuehub/internal/identity/store"
	"revenuehub/internal/identity/token"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/requestcontext"
)

var tracer = otel.Tracer("revenuehub/identity")

// Store persists users.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f store.Filter) ([]*models.User, error)
	RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, apply func(*models.User)) (*models.User, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(sub token.Subject, now time.Time) (*token.Issued, error)
}

// RevocationList records token ids revoked at logout.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// DistrictChecker rejects unknown or inactive districts.
type DistrictChecker interface {
	RequireActive(ctx context.Context, name string) (*geo.District, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service implements sign-in, sign-out and user administration.
type Service struct {
	users          Store
	tokens         TokenIssuer
	revocations    RevocationList
	regions        access.RegionResolver
	districts      DistrictChecker
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithDistrictChecker makes user creation reject unknown or inactive districts.
func WithDistrictChecker(checker DistrictChecker) Option {
	return func(s *Service) {
		s.districts = checker
	}
}

func New(users Store, tokens TokenIssuer, revocations RevocationList, regions access.RegionResolver, opts ...Option) *Service {
	s := &Service{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		regions:     regions,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is returned to a user who signed in successfully.
type LoginResult struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

// Login checks the credentials and issues an access token. Unknown emails and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "identity.Login")
	defer span.End()

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.Event{Action: audit.ActionLoginFailed, EntityType: "user", Details: "unknown email " + models.NormalizeEmail(email)})
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.Verify(password, u.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			s.emitForUser(ctx, audit.ActionLoginFailed, u, "wrong password")
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !u.IsActive() {
		s.emitForUser(ctx, audit.ActionLoginFailed, u, "account "+string(u.Status))
		return nil, dErrors.New(dErrors.CodeForbidden, "account is "+string(u.Status))
	}

	now := requestcontext.Now(ctx)
	issued, err := s.tokens.Issue(token.Subject{
		UserID:   u.ID,
		Role:     u.Role,
		District: u.District,
		Region:   u.Region,
	}, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	if err := s.users.RecordLogin(ctx, u.ID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to record login time",
			"user_id", u.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	u.RecordLogin(now)
	span.SetAttributes(attribute.String("role", string(u.Role)))

	s.emitForUser(ctx, audit.ActionLoginSucceeded, u, "")
	return &LoginResult{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		User:      u,
	}, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context) error {
	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	ttl := requestcontext.TokenExpiry(ctx).Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.emit(ctx, audit.Event{
		Action:     audit.ActionLogout,
		EntityType: "user",
		EntityID:   requestcontext.UserID(ctx).String(),
		District:   requestcontext.District(ctx),
	})
	return nil
}

// Me returns the caller's own profile.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	p := access.PrincipalFrom(ctx)
	if p == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	ctx, span := tracer.Start(ctx, "identity.ChangePassword")
	defer span.End()

	p := access.PrincipalFrom(ctx)
	if p == nil {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := secrets.CheckStrength(next); err != nil {
		return err
	}
	hash, err := secrets.Hash(next)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid new password")
	}
	now := requestcontext.Now(ctx)
	u, err := s.users.Execute(ctx, p.UserID,
		func(u *models.User) error {
			if err := secrets.Verify(current, u.PasswordHash); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
					return dErrors.New(dErrors.CodeValidation, "current password is incorrect")
				}
				return err
			}
			return nil
		},
		func(u *models.User) {
			u.ApplyPassword(hash, now)
		},
	)
	if err != nil {
		return wrapUserErr(err)
	}
	s.emitForUser(ctx, audit.ActionPasswordChanged, u, "")
	return nil
}

// CreateUserInput describes a new account. An empty Password provisions a
// temporary one that is returned once.
type CreateUserInput struct {
	Email    string
	Name     string
	Role     id.Role
	District string
	Region   string
	Phone    string
	Password string
}

// CreatedUser carries the new account and, when one was generated, its
// temporary password.
type CreatedUser struct {
	User              *models.User `json:"user"`
	TemporaryPassword string       `json:"temporary_password,omitempty"`
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*CreatedUser, error) {
	ctx, span := tracer.Start(ctx, "identity.CreateUser")
	defer span.End()

	p, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if err := checkGrant(p, in.Role); err != nil {
		return nil, err
	}
	district, region, err := s.placement(ctx, scope, in.Role, in.District, in.Region)
	if err != nil {
		return nil, err
	}

	password := in.Password
	temporary := ""
	if password == "" {
		if password, err = secrets.GenerateTemporary(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate password")
		}
		temporary = password
	} else if err := secrets.CheckStrength(password); err != nil {
		return nil, err
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid password")
	}

	u, err := models.NewUser(id.UserID(uuid.New()), in.Email, in.Name, in.Role, district, region, hash, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.InvariantToValidation(err)
	}
	u.Phone = strings.TrimSpace(in.Phone)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.emitForUser(ctx, audit.ActionUserCreated, u, "role "+string(u.Role))
	return &CreatedUser{User: u, TemporaryPassword: temporary}, nil
}

// privilegedRoles may only be granted by a super admin.
var privilegedRoles = map[id.Role]bool{
	id.RoleSuperAdmin:     true,
	id.RoleMonitoringBody: true,
	id.RoleRegionalAdmin:  true,
	id.RoleAuditor:        true,
}

func checkGrant(p *access.Principal, role id.Role) error {
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	if privilegedRoles[role] && p.Role != id.RoleSuperAdmin {
		return dErrors.New(dErrors.CodeForbidden, "only a super admin may grant the "+string(role)+" role")
	}
	return nil
}

// placement decides where a user with role sits. Unrestricted roles have no
// district, regional admins a region, everyone else a district inside the
// caller's jurisdiction.
func (s *Service) placement(ctx context.Context, scope access.Scope, role id.Role, district, region string) (string, string, error) {
	district = strings.TrimSpace(district)
	region = strings.TrimSpace(region)
	switch {
	case access.IsUnrestricted(role):
		return "", "", nil
	case role == id.RoleRegionalAdmin:
		if region == "" {
			return "", "", dErrors.New(dErrors.CodeValidation, "region is required for a regional admin")
		}
		in := s.regions.DistrictsIn(region)
		if len(in) == 0 {
			return "", "", dErrors.New(dErrors.CodeValidation, "unknown region")
		}
		canonical, _ := s.regions.RegionOf(in[0])
		return "", canonical, nil
	}
	assigned, err := scope.AssignDistrict(district)
	if err != nil {
		return "", "", err
	}
	if s.districts != nil {
		d, err := s.districts.RequireActive(ctx, assigned)
		if err != nil {
			return "", "", err
		}
		assigned = d.Name
	}
	r, _ := s.regions.RegionOf(assigned)
	return assigned, r, nil
}

// ListFilter narrows ListUsers. Zero values match everything.
type ListFilter struct {
	Role   id.Role
	Status models.UserStatus
	Search string
}

// ListUsers returns the users inside the caller's jurisdiction.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]*models.User, error) {
	ctx, span := tracer.Start(ctx, "identity.ListUsers")
	defer span.End()

	_, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, store.Filter{
		Districts: scope.Districts(),
		Role:      filter.Role,
		Status:    filter.Status,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	visible := access.Filter(scope, users)
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return visible, nil
	}
	out := make([]*models.User, 0, len(visible))
	for _, u := range visible {
		if strings.Contains(strings.ToLower(u.Name+" "+u.Email), search) {
			out = append(out, u)
		}
	}
	return out, nil
}

// ChangeStatus activates, deactivates or suspends a user in the caller's
// jurisdiction. Callers cannot change their own status.
func (s *Service) ChangeStatus(ctx context.Context, userID id.UserID, status models.UserStatus) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "identity.ChangeStatus")
	defer span.End()

	p, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if p.UserID == userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot change your own status")
	}
	now := requestcontext.Now(ctx)
	u, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			if err := ensureManages(p, scope, u); err != nil {
				return err
			}
			if err := u.CanChangeStatus(status); err != nil {
				return dErrors.InvariantToValidation(err)
			}
			return nil
		},
		func(u *models.User) {
			u.ApplyStatus(status, now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	s.emitForUser(ctx, audit.ActionUserStatusChanged, u, "status "+string(status))
	return u, nil
}

// ChangeRole moves a user to another role. The grant rules of CreateUser apply
// to the new role.
func (s *Service) ChangeRole(ctx context.Context, userID id.UserID, role id.Role) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "identity.ChangeRole")
	defer span.End()

	p, scope, err := access.ResolveScope(ctx, s.regions)
	if err != nil {
		return nil, err
	}
	if p.UserID == userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot change your own role")
	}
	if err := checkGrant(p, role); err != nil {
		return nil, err
	}
	var previous id.Role
	now := requestcontext.Now(ctx)
	u, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			if err := ensureManages(p, scope, u); err != nil {
				return err
			}
			if err := u.CanChangeRole(role); err != nil {
				return dErrors.InvariantToValidation(err)
			}
			if !access.IsUnrestricted(role) && role != id.RoleRegionalAdmin && u.District == "" {
				return dErrors.New(dErrors.CodeValidation, "user has no district for role "+string(role))
			}
			if role == id.RoleRegionalAdmin && u.Region == "" {
				return dErrors.New(dErrors.CodeValidation, "user has no region for role "+string(role))
			}
			previous = u.Role
			return nil
		},
		func(u *models.User) {
			u.ApplyRole(role, now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	s.emitForUser(ctx, audit.ActionUserRoleChanged, u, string(previous)+" -> "+string(role))
	return u, nil
}

// ensureManages rejects targets outside the caller's jurisdiction and
// privileged accounts managed by anyone but a super admin.
func ensureManages(p *access.Principal, scope access.Scope, target *models.User) error {
	if privilegedRoles[target.Role] && p.Role != id.RoleSuperAdmin {
		return dErrors.New(dErrors.CodeForbidden, "only a super admin may manage "+string(target.Role)+" accounts")
	}
	if scope.Unrestricted() {
		return nil
	}
	return scope.Ensure(target.District)
}

func (s *Service) emitForUser(ctx context.Context, action audit.Action, u *models.User, details string) {
	event := audit.Event{
		Action:     action,
		EntityType: "user",
		EntityID:   u.ID.String(),
		District:   u.District,
		Details:    details,
	}
	if access.PrincipalFrom(ctx) == nil {
		event.ActorID = u.ID.String()
		event.ActorRole = string(u.Role)
	}
	s.emit(ctx, event)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"entity_id", event.EntityID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func wrapUserErr(err error) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "user already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "user operation failed")
	}
}
