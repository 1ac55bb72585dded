package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/sistemanotas/notas/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "DOCENTE"
	RoleStudent Role = "ALUMNO"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Label is the human readable role name used in emails and exports.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleTeacher:
		return "Docente"
	case RoleStudent:
		return "Alumno"
	}
	return string(r)
}

type User struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         Role        `json:"role"`
	Code         null.String `json:"code"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// CheckInvariants reports whether the user may be persisted: a known role, and a code if and only if the
// user is a student.
func (u *User) CheckInvariants() error {
	if !u.Role.IsValid() {
		return core.NewFieldError("role", errInvalidRoleText)
	}
	hasCode := u.Code.Valid && u.Code.String != ""
	if u.IsStudent() && !hasCode {
		return core.NewFieldError("code", errCodeRequiredText)
	}
	if !u.IsStudent() && u.Code.Valid {
		return core.NewFieldError("code", errCodeNotAllowedText)
	}
	return nil
}

// Brief is the short user representation embedded in other resources.
type Brief struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email,omitempty"`
	Code  null.String `json:"code,omitempty"`
}

func (u User) Brief() Brief {
	return Brief{ID: u.ID, Name: u.Name, Email: u.Email, Code: u.Code}
}

// codeFor returns the code a user with the given role must carry.
func codeFor(role Role, code string) null.String {
	if role != RoleStudent {
		return null.String{}
	}
	return null.StringFrom(code)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,role"`
	Code     string `json:"code" validate:"required_if=Role ALUMNO"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Code = core.CleanString(nu.Code)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty values keep the current ones.
type UpdateUser struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     Role   `json:"role" validate:"omitempty,role"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Role == "" {
		uu.Role = origUsr.Role
	}

	uu.Code = core.CleanString(uu.Code)
	if uu.Role == RoleStudent && uu.Code == "" {
		uu.Code = origUsr.Code.String
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Role == RoleStudent && uu.Code == "" {
		return core.NewFieldError("code", errCodeRequiredText)
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

// ChangePassword is the payload of a self service password change.
type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`

	usr User // used by the password similarity check
}

func (cp *ChangePassword) Validate(usr User, validate *validator.Validate) error {
	cp.usr = usr
	return validate.Struct(cp)
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`

	usr User
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
