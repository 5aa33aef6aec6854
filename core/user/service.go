package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const passwordResetTemplate = "password_reset"

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrInvalidReset   = errors.New("invalid password reset link")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user
		// (excluding excludedUsers) already has the given username or email.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		// GetUser returns ErrNotFound when no user matches.
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo            Repository
		mailSvc         core.EmailService
		tokens          *tokenGenerator
		frontendBaseURL string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:            repo,
		mailSvc:         mailSvc,
		tokens:          newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		frontendBaseURL: conf.FrontendBaseURL,
	}
}

// CheckUniqueness turns repository uniqueness errors into a core.ValidationError on the offending field.
func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create stores a new active User. nu must have been validated.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.CheckUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, ordering...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = now
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

// PasswordResetToken returns the encoded uid and the reset token of usr.
func (svc *Service) PasswordResetToken(usr User) (uid, token string, err error) {
	token, err = svc.tokens.makeToken(usr)
	if err != nil {
		return "", "", errors.Wrap(err, "making password reset token")
	}
	return EncodeUID(usr), token, nil
}

// RequestPasswordReset emails a password reset link to the active user owning email.
// Unknown emails are silently ignored.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if !usr.IsActive {
		return nil
	}

	uid, token, err := svc.PasswordResetToken(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:              []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:         "Password Reset",
		TemplateName:    passwordResetTemplate,
		FrontendBaseURL: svc.frontendBaseURL,
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   uid,
			"Token": token,
		},
	})
	return nil
}

// ResetPassword sets a new password for the user encoded in rp.UID when rp.Token is valid.
// rp must have been validated.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	invalid := core.NewValidationError(ErrInvalidReset, core.FieldError{Field: "token", Error: ErrInvalidReset.Error()})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, invalid
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalid
		}
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, invalid
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return User{}, invalid
	}
	return svc.SetPassword(ctx, usr, rp.Password)
}
