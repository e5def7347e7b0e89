package auth

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/users"
	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db/models"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/security"
)

const minPasswordLength = 12

// CreateAdminRequest describes a console admin provisioned by an operator.
type CreateAdminRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// normalized trims names and lowercases the email, failing with a
// validation error on the first unusable field.
func (r CreateAdminRequest) normalized() (CreateAdminRequest, error) {
	out := CreateAdminRequest{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.ToLower(strings.TrimSpace(r.Email)),
		Password:  r.Password,
	}
	var problem string
	switch {
	case !strings.Contains(out.Email, "@"):
		problem = "valid email is required"
	case out.FirstName == "":
		problem = "first name is required"
	case out.LastName == "":
		problem = "last name is required"
	case utf8.RuneCountInString(out.Password) < minPasswordLength:
		problem = fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	default:
		return out, nil
	}
	return out, pkgerrors.New(pkgerrors.CodeValidation, problem)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdminProvisioner creates admin accounts from opsctl. There is no HTTP sign-up.
type AdminProvisioner struct {
	tx          txRunner
	passwordCfg config.PasswordConfig
}

func NewAdminProvisioner(tx txRunner, passwordCfg config.PasswordConfig) (*AdminProvisioner, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &AdminProvisioner{tx: tx, passwordCfg: passwordCfg}, nil
}

// Create inserts an active admin. A taken email is a CodeConflict.
func (p *AdminProvisioner) Create(ctx context.Context, req CreateAdminRequest) (*users.Profile, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(req.Password, p.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	role := models.SystemRoleAdmin
	var profile *users.Profile
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		taken, err := repo.EmailTaken(ctx, req.Email)
		switch {
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		case taken:
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := repo.Create(ctx, users.NewUser{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			SystemRole:   &role,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		profile = users.ProfileOf(user)
		return nil
	})
	return profile, err
}
