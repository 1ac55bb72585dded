package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
)

var (
	// errors
	ErrNotFound           = core.NewError(core.ErrNotFound, "Usuario no encontrado")
	ErrEmailExists        = core.NewError(core.ErrConflict, "El email ya existe")
	ErrInvalidCredentials = core.NewError(core.ErrUnauthenticated, "Credenciales inválidas")
	ErrDeleteSelf         = core.NewError(core.ErrForbidden, "No puedes eliminar tu propia cuenta")
	ErrInvalidResetLink   = core.NewValidationError(errors.New("El enlace de restablecimiento no es válido o ha expirado"))
	ErrRoleInUse          = core.NewFieldError("role", "No se puede cambiar el rol: el usuario tiene cursos o matrículas asignados")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// QueryUsers returns one page of the users matching filter and the total number of matches.
		QueryUsers(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]User, int, error)
		// ListUsersByRole returns all users with the role, ordered by name.
		ListUsersByRole(ctx context.Context, role Role) ([]User, error)
		CountUsersByRole(ctx context.Context, role Role) (int, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		SetUserPassword(ctx context.Context, id int, hash []byte, exec ...core.DBExecutor) error
		// HasAssignments tells whether the user teaches a course or is enrolled in one.
		HasAssignments(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error)
		DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service struct {
		db       core.DB
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		tokenGen *resetTokenGenerator
		conf     *core.Config
	}
)

func NewService(conf *core.Config, db core.DB, repo Repository, mailSvc core.EmailService, validate *validator.Validate) *Service {
	core.MustNotBeNil(map[string]interface{}{
		"conf":     conf,
		"db":       db,
		"repo":     repo,
		"mailSvc":  mailSvc,
		"validate": validate,
	})
	return &Service{
		db:       db,
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		tokenGen: newResetTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		conf:     conf,
	}
}

// CheckUniqueness returns ErrEmailExists when another user than exclUsers already uses email.
func (svc *Service) CheckUniqueness(email string, exclUsers ...User) error {
	usr, err := svc.repo.GetUserByEmail(context.Background(), core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	for _, excl := range exclUsers {
		if excl.ID == usr.ID {
			return nil
		}
	}
	return ErrEmailExists
}

// Authenticate returns the user owning the credentials, or ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Code:      codeFor(nu.Role, nu.Code),
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]User, query.Pagination, error) {
	users, total, err := svc.repo.QueryUsers(ctx, filter, ords, page)
	if err != nil {
		return nil, query.Pagination{}, errors.Wrap(err, "querying users")
	}
	return users, query.NewPagination(total, page), nil
}

func (svc *Service) ListByRole(ctx context.Context, role Role) ([]User, error) {
	return svc.repo.ListUsersByRole(ctx, role)
}

func (svc *Service) CountByRole(ctx context.Context, role Role) (int, error) {
	return svc.repo.CountUsersByRole(ctx, role)
}

// Update applies a validated UpdateUser to usr. A role change away from ALUMNO clears the code.
// The role of a user who teaches a course or is enrolled in one cannot change (ErrRoleInUse).
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	roleChanged := usr.Role != uu.Role
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.Code = codeFor(uu.Role, uu.Code)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}

	var updated User
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		// enrollments reference students and courses reference teachers
		if roleChanged {
			assigned, err := svc.repo.HasAssignments(ctx, usr.ID, tx)
			if err != nil {
				return err
			}
			if assigned {
				return ErrRoleInUse
			}
		}

		var err error
		if updated, err = svc.repo.UpdateUser(ctx, usr, tx); err != nil {
			return err
		}
		if uu.Password != "" {
			return errors.Wrap(svc.repo.SetUserPassword(ctx, usr.ID, usr.PasswordHash, tx), "setting password")
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}

// ChangePassword sets a new password after checking the current one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.CurrentPassword); err != nil {
		return core.NewFieldError("currentPassword", "la contraseña actual es incorrecta")
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.SetUserPassword(ctx, usr.ID, usr.PasswordHash), "setting password")
}

// Delete removes the user. actorID is the caller: nobody can delete their own account.
func (svc *Service) Delete(ctx context.Context, actorID, id int) error {
	if actorID == id {
		return ErrDeleteSelf
	}
	return svc.repo.DeleteUser(ctx, id)
}

// RequestPasswordReset emails a reset link to the user owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

// ResetPassword sets the new password if the uid and token of the reset link are valid.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return ErrInvalidResetLink
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetLink
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokenGen.verifyToken(usr, rp.Token); err != nil {
		return ErrInvalidResetLink
	}

	// password policy against the user attributes
	rp.usr = usr
	if err = svc.validate.Struct(rp); err != nil {
		return err
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.SetUserPassword(ctx, usr.ID, usr.PasswordHash), "setting password")
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Restablecimiento de contraseña",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Email": usr.Email,
			"UID":   EncodeUID(usr),
			"Token": svc.tokenGen.makeToken(usr),
		},
	})
}

func (svc *Service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Bienvenido a " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"Role":  usr.Role.Label(),
			"Email": usr.Email,
		},
	})
}
