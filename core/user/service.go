package user

import (
	"context"
	"net/mail"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	errWrongPassword      = "current password is incorrect"
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when another User (not in excludedUsers) has this email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		// CreateUser returns ErrEmailExists when the email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser saves name, email, bio, avatar, password hash, last login and updated at.
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		SetAvatar(ctx context.Context, usr User, path string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secret:  []byte(conf.SecretKey),
			timeout: conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		return trapEmailExistsErr(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := core.NowFunc()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, trapEmailExistsErr(err, "creating user")
	}
	return usr, nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = core.NowFunc()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.Name = up.Name
	usr.Email = up.Email
	usr.Bio = up.Bio
	usr.UpdatedAt = core.NowFunc()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, trapEmailExistsErr(err, "updating user")
	}
	return usr, nil
}

func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := usr.CheckPassword(cp.CurrentPassword); err != nil {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "current_password", Error: errWrongPassword})
	}
	return svc.SetPassword(ctx, usr, cp.Password)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating password")
}

func (svc *service) SetAvatar(ctx context.Context, usr User, path string) (User, error) {
	usr.Avatar = path
	usr.UpdatedAt = core.NowFunc()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating avatar")
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{Name: usr.Name, UID: EncodeUID(usr), Token: token},
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalid := core.NewValidationError(errInvalidToken)

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalid
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = validatePasswordPolicy(rp.Password, usr.Name, usr.Email); err != nil {
		return err
	}
	_, err = svc.SetPassword(ctx, usr, rp.Password)
	return err
}

// trapEmailExistsErr maps ErrEmailExists to a field ValidationError.
func trapEmailExistsErr(err error, msg string) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return errors.Wrap(err, msg)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, errInvalidToken
	}
	return id, nil
}
