package service

import (
	"errors"

	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

func requireSession(session *models.Session) error {
	if session == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "session required")
	}
	return nil
}

func requireTeacher(session *models.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !session.IsTeacher() {
		return appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}
	return nil
}

func requireStudent(session *models.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if session.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "student access required")
	}
	return nil
}

func requireAdmin(session *models.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !session.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	return nil
}

func requireSystem(session *models.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !session.IsSystem() {
		return appErrors.Clone(appErrors.ErrForbidden, "system administrator access required")
	}
	return nil
}

// storeError maps repository sentinels onto API errors.
func storeError(err error, action string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrRecordNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, action+": not found")
	case errors.Is(err, repository.ErrDuplicatePrincipal), errors.Is(err, repository.ErrSchoolAdminExists):
		return mapRegisterError(err)
	default:
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to "+action)
	}
}
