package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

const (
	joinCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	joinCodeLength   = 5
	joinCodeAttempts = 10
)

type classStore interface {
	ListClasses(ctx context.Context, tenantID string, allTenants bool) ([]models.RegisteredClass, error)
	Update(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
}

// ClassService manages registered classes and student membership.
type ClassService struct {
	store     classStore
	validator *validator.Validate
	logger    *zap.Logger
	codeGen   func() (string, error)
}

// NewClassService constructs a ClassService.
func NewClassService(store classStore, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{store: store, validator: validate, logger: logger, codeGen: randomJoinCode}
}

// List returns the registered classes of the session's tenant.
func (s *ClassService) List(ctx context.Context, session *models.Session) ([]models.RegisteredClass, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	classes, err := s.store.ListClasses(ctx, session.TenantID, session.IsSystem())
	if err != nil {
		return nil, storeError(err, "list classes")
	}
	return classes, nil
}

// Create registers a class with a join code unique within the tenant.
func (s *ClassService) Create(ctx context.Context, session *models.Session, req dto.CreateClassRequest) (*models.RegisteredClass, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid class payload")
	}

	var created models.RegisteredClass
	err := s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		code, err := s.uniqueJoinCode(tx)
		if err != nil {
			return err
		}
		created, err = tx.AddClass(models.RegisteredClass{
			Name:      req.Name,
			Subject:   req.Subject,
			JoinCode:  code,
			TeacherID: session.PrincipalID,
		})
		return err
	})
	if err != nil {
		return nil, storeError(err, "create class")
	}
	return &created, nil
}

// Join attaches the calling student to the class with the code.
func (s *ClassService) Join(ctx context.Context, session *models.Session, req dto.JoinClassRequest) (*models.ClassMembership, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	req.JoinCode = strings.ToUpper(strings.TrimSpace(req.JoinCode))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid join code")
	}

	var membership models.ClassMembership
	err := s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		class, err := tx.FindClassByJoinCode(req.JoinCode)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return appErrors.Clone(appErrors.ErrNotFound, "no class with this join code")
			}
			return err
		}
		membership, err = tx.AddMembership(models.ClassMembership{
			StudentID: session.PrincipalID,
			JoinCode:  class.JoinCode,
			ClassName: class.Name,
		})
		return err
	})
	if err != nil {
		return nil, storeError(err, "join class")
	}
	return &membership, nil
}

func (s *ClassService) uniqueJoinCode(tx *repository.RecordTx) (string, error) {
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := s.codeGen()
		if err != nil {
			return "", err
		}
		if _, err := tx.FindClassByJoinCode(code); errors.Is(err, repository.ErrRecordNotFound) {
			return code, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique join code")
}

func randomJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	var b strings.Builder
	for i := 0; i < joinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
