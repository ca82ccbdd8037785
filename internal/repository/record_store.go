package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/noah-isme/classroom-quest-api/internal/models"
)

var (
	// ErrRecordNotFound is returned when a lookup misses.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicatePrincipal is returned when the tenant already has a principal with the same key.
	ErrDuplicatePrincipal = errors.New("principal already registered")
	// ErrSchoolAdminExists is returned when a second admin override principal is registered.
	ErrSchoolAdminExists = errors.New("school admin already exists")
)

// StoreObserver receives the latency of store transactions.
type StoreObserver interface {
	ObserveStoreOperation(op string, err error, duration time.Duration)
}

// RecordStore exposes the typed collections kept in a BlobStore.
type RecordStore struct {
	blobs    BlobStore
	now      func() time.Time
	observer StoreObserver
}

// NewRecordStore wraps a blob store.
func NewRecordStore(blobs BlobStore) *RecordStore {
	return &RecordStore{blobs: blobs, now: time.Now}
}

// SetObserver installs a latency observer for Update and View.
func (s *RecordStore) SetObserver(observer StoreObserver) {
	s.observer = observer
}

// Update runs fn in a tenant scoped transaction. All writes made through tx commit together.
func (s *RecordStore) Update(ctx context.Context, tenantID string, fn func(tx *RecordTx) error) error {
	start := time.Now()
	err := s.blobs.Update(ctx, tenantID, func(blobTx BlobTx) error {
		return fn(&RecordTx{ctx: ctx, blob: blobTx, tenantID: tenantID, now: s.now})
	})
	s.observe("update", err, start)
	return err
}

// View runs fn against committed state without a write lock.
func (s *RecordStore) View(ctx context.Context, tenantID string, fn func(tx *RecordTx) error) error {
	start := time.Now()
	err := fn(&RecordTx{ctx: ctx, blob: readOnlyTx{store: s.blobs, tenantID: tenantID}, tenantID: tenantID, now: s.now})
	s.observe("view", err, start)
	return err
}

func (s *RecordStore) observe(op string, err error, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStoreOperation(op, err, time.Since(start))
	}
}

func listRecords[T any](ctx context.Context, blobs BlobStore, tenantID string, allTenants bool, c Collection) ([]T, error) {
	if !allTenants {
		payload, err := blobs.Load(ctx, tenantID, c)
		if err != nil {
			return nil, err
		}
		records, err := decodeRecords[T](c, payload)
		if err != nil {
			return nil, err
		}
		return lo.Ternary(records == nil, []T{}, records), nil
	}

	all, err := blobs.LoadAll(ctx, c)
	if err != nil {
		return nil, err
	}
	tenants := lo.Keys(all)
	slices.Sort(tenants)

	result := make([]T, 0)
	for _, tenant := range tenants {
		records, err := decodeRecords[T](c, all[tenant])
		if err != nil {
			return nil, err
		}
		result = append(result, records...)
	}
	return result, nil
}

// ListPrincipals returns principals in registration order.
func (s *RecordStore) ListPrincipals(ctx context.Context, tenantID string, allTenants bool) ([]models.Principal, error) {
	return listRecords[models.Principal](ctx, s.blobs, tenantID, allTenants, CollectionPrincipals)
}

// ListLessons returns lessons newest first.
func (s *RecordStore) ListLessons(ctx context.Context, tenantID string, allTenants bool) ([]models.LessonItem, error) {
	return listRecords[models.LessonItem](ctx, s.blobs, tenantID, allTenants, CollectionLessons)
}

// ListChallenges returns challenges newest first.
func (s *RecordStore) ListChallenges(ctx context.Context, tenantID string, allTenants bool) ([]models.ChallengeItem, error) {
	return listRecords[models.ChallengeItem](ctx, s.blobs, tenantID, allTenants, CollectionChallenges)
}

// ListActivities returns activity records newest first.
func (s *RecordStore) ListActivities(ctx context.Context, tenantID string, allTenants bool) ([]models.ActivityRecord, error) {
	return listRecords[models.ActivityRecord](ctx, s.blobs, tenantID, allTenants, CollectionActivities)
}

// ListClasses returns registered classes newest first.
func (s *RecordStore) ListClasses(ctx context.Context, tenantID string, allTenants bool) ([]models.RegisteredClass, error) {
	return listRecords[models.RegisteredClass](ctx, s.blobs, tenantID, allTenants, CollectionClasses)
}

// AddLesson prepends a lesson.
func (s *RecordStore) AddLesson(ctx context.Context, lesson models.LessonItem) (models.LessonItem, error) {
	err := s.Update(ctx, lesson.TenantID, func(tx *RecordTx) error {
		var err error
		lesson, err = tx.AddLesson(lesson)
		return err
	})
	return lesson, err
}

// RemoveLesson deletes a lesson. Missing ids are ignored.
func (s *RecordStore) RemoveLesson(ctx context.Context, tenantID, id string) error {
	return s.Update(ctx, tenantID, func(tx *RecordTx) error {
		return tx.RemoveLesson(id)
	})
}

// AddChallenge prepends a challenge.
func (s *RecordStore) AddChallenge(ctx context.Context, challenge models.ChallengeItem) (models.ChallengeItem, error) {
	err := s.Update(ctx, challenge.TenantID, func(tx *RecordTx) error {
		var err error
		challenge, err = tx.AddChallenge(challenge)
		return err
	})
	return challenge, err
}

// RemoveChallenge deletes a challenge. Missing ids are ignored.
func (s *RecordStore) RemoveChallenge(ctx context.Context, tenantID, id string) error {
	return s.Update(ctx, tenantID, func(tx *RecordTx) error {
		return tx.RemoveChallenge(id)
	})
}

// AddActivity prepends an activity record.
func (s *RecordStore) AddActivity(ctx context.Context, record models.ActivityRecord) (models.ActivityRecord, error) {
	err := s.Update(ctx, record.TenantID, func(tx *RecordTx) error {
		var err error
		record, err = tx.AddActivity(record)
		return err
	})
	return record, err
}

// UpdateActivityStatus sets the status of a record without checking the transition.
func (s *RecordStore) UpdateActivityStatus(ctx context.Context, tenantID, id string, status models.ActivityStatus) (*models.ActivityRecord, error) {
	var updated *models.ActivityRecord
	err := s.Update(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		updated, err = tx.UpdateActivityStatus(id, status)
		return err
	})
	return updated, err
}

// AddClass prepends a registered class.
func (s *RecordStore) AddClass(ctx context.Context, class models.RegisteredClass) (models.RegisteredClass, error) {
	err := s.Update(ctx, class.TenantID, func(tx *RecordTx) error {
		var err error
		class, err = tx.AddClass(class)
		return err
	})
	return class, err
}

// FindClassByJoinCode looks up a class within a tenant.
func (s *RecordStore) FindClassByJoinCode(ctx context.Context, tenantID, code string) (*models.RegisteredClass, error) {
	var class *models.RegisteredClass
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		class, err = tx.FindClassByJoinCode(code)
		return err
	})
	return class, err
}

// FindByCredentials returns the candidate principal for the login key of the role.
func (s *RecordStore) FindByCredentials(ctx context.Context, tenantID string, role models.UserRole, identifier string) (*models.Principal, error) {
	var principal *models.Principal
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		principal, err = tx.FindByCredentials(role, identifier)
		return err
	})
	return principal, err
}

// FindPrincipalByID looks up a principal by id.
func (s *RecordStore) FindPrincipalByID(ctx context.Context, tenantID, id string) (*models.Principal, error) {
	var principal *models.Principal
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		principal, err = tx.FindPrincipalByID(id)
		return err
	})
	return principal, err
}

// RegisterPrincipal appends a principal enforcing the per-tenant uniqueness rules.
func (s *RecordStore) RegisterPrincipal(ctx context.Context, candidate models.Principal) (models.Principal, error) {
	err := s.Update(ctx, candidate.TenantID, func(tx *RecordTx) error {
		var err error
		candidate, err = tx.RegisterPrincipal(candidate)
		return err
	})
	return candidate, err
}

// BulkRegister registers candidates one by one, counting failures instead of aborting.
func (s *RecordStore) BulkRegister(ctx context.Context, tenantID string, candidates []models.Principal) (models.BulkRegisterResult, error) {
	var result models.BulkRegisterResult
	err := s.Update(ctx, tenantID, func(tx *RecordTx) error {
		result = models.BulkRegisterResult{}
		for _, candidate := range candidates {
			candidate.TenantID = tenantID
			if _, err := tx.RegisterPrincipal(candidate); err != nil {
				if errors.Is(err, ErrDuplicatePrincipal) || errors.Is(err, ErrSchoolAdminExists) {
					result.FailCount++
					continue
				}
				return err
			}
			result.SuccessCount++
		}
		return nil
	})
	return result, err
}

// RemovePrincipal deletes a principal. Missing ids are ignored.
func (s *RecordStore) RemovePrincipal(ctx context.Context, tenantID, id string) error {
	return s.Update(ctx, tenantID, func(tx *RecordTx) error {
		return tx.RemovePrincipal(id)
	})
}

// HasSchoolAdmin reports whether the tenant has an admin override principal.
func (s *RecordStore) HasSchoolAdmin(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		exists, err = tx.HasSchoolAdmin()
		return err
	})
	return exists, err
}

// AdjustPoints adds delta to the first student with the display name.
func (s *RecordStore) AdjustPoints(ctx context.Context, tenantID, displayName string, delta int) (*models.Principal, error) {
	var updated *models.Principal
	err := s.Update(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		updated, err = tx.AdjustPoints(displayName, delta)
		return err
	})
	return updated, err
}

// BadgesForStudent returns the student's badges newest first.
func (s *RecordStore) BadgesForStudent(ctx context.Context, tenantID, studentID string) ([]models.BadgeItem, error) {
	var badges []models.BadgeItem
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		badges, err = tx.BadgesForStudent(studentID)
		return err
	})
	return badges, err
}

// PointHistoryForStudent returns the student's point transactions newest first.
func (s *RecordStore) PointHistoryForStudent(ctx context.Context, tenantID, studentID string) ([]models.PointHistoryItem, error) {
	var history []models.PointHistoryItem
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		history, err = tx.PointHistoryForStudent(studentID)
		return err
	})
	return history, err
}

// CurrentMembership returns the student's most recent class membership.
func (s *RecordStore) CurrentMembership(ctx context.Context, tenantID, studentID string) (*models.ClassMembership, error) {
	var membership *models.ClassMembership
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		membership, err = tx.CurrentMembership(studentID)
		return err
	})
	return membership, err
}

// CreateSession persists a session, optionally revoking the principal's other sessions.
func (s *RecordStore) CreateSession(ctx context.Context, session models.Session, revokeOthers bool) error {
	return s.Update(ctx, session.TenantID, func(tx *RecordTx) error {
		if revokeOthers {
			if err := tx.RevokePrincipalSessions(session.PrincipalID); err != nil {
				return err
			}
		}
		return tx.CreateSession(session)
	})
}

// FindSession looks up a session by id.
func (s *RecordStore) FindSession(ctx context.Context, tenantID, id string) (*models.Session, error) {
	var session *models.Session
	err := s.View(ctx, tenantID, func(tx *RecordTx) error {
		var err error
		session, err = tx.FindSession(id)
		return err
	})
	return session, err
}

// RevokeSession marks a session revoked.
func (s *RecordStore) RevokeSession(ctx context.Context, tenantID, id string) error {
	return s.Update(ctx, tenantID, func(tx *RecordTx) error {
		return tx.RevokeSession(id)
	})
}

// RecordTx is the typed view of one tenant's collections inside a transaction.
type RecordTx struct {
	ctx      context.Context
	blob     BlobTx
	tenantID string
	now      func() time.Time
}

// TenantID returns the tenant the transaction is scoped to.
func (t *RecordTx) TenantID() string {
	return t.tenantID
}

func readCollection[T any](t *RecordTx, c Collection) ([]T, error) {
	payload, err := t.blob.Get(t.ctx, c)
	if err != nil {
		return nil, err
	}
	return decodeRecords[T](c, payload)
}

func writeCollection[T any](t *RecordTx, c Collection, records []T) error {
	payload, err := encodeRecords(c, records)
	if err != nil {
		return err
	}
	return t.blob.Put(t.ctx, c, payload)
}

func prependRecord[T any](t *RecordTx, c Collection, record T) error {
	records, err := readCollection[T](t, c)
	if err != nil {
		return err
	}
	return writeCollection(t, c, append([]T{record}, records...))
}

func (t *RecordTx) stamp(id *string, at *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = t.now().UTC()
	}
}

// Principals returns the tenant's principals.
func (t *RecordTx) Principals() ([]models.Principal, error) {
	return readCollection[models.Principal](t, CollectionPrincipals)
}

// RegisterPrincipal appends candidate unless it collides on its key or is a second admin.
func (t *RecordTx) RegisterPrincipal(candidate models.Principal) (models.Principal, error) {
	principals, err := t.Principals()
	if err != nil {
		return models.Principal{}, err
	}

	candidate.TenantID = t.tenantID
	if lo.ContainsBy(principals, candidate.SameAccountKey) {
		return models.Principal{}, ErrDuplicatePrincipal
	}
	if candidate.IsAdminOverride && lo.ContainsBy(principals, func(p models.Principal) bool { return p.IsAdminOverride }) {
		return models.Principal{}, ErrSchoolAdminExists
	}

	t.stamp(&candidate.ID, &candidate.CreatedAt)
	if err := writeCollection(t, CollectionPrincipals, append(principals, candidate)); err != nil {
		return models.Principal{}, err
	}
	return candidate, nil
}

// FindByCredentials returns the principal holding the role's login key.
func (t *RecordTx) FindByCredentials(role models.UserRole, identifier string) (*models.Principal, error) {
	principals, err := t.Principals()
	if err != nil {
		return nil, err
	}
	probe := models.Principal{TenantID: t.tenantID, Role: role, DisplayName: identifier}
	if role == models.RoleStudent {
		probe.Student = &models.StudentProfile{StudentNumber: identifier}
	}
	found, ok := lo.Find(principals, probe.SameAccountKey)
	if !ok || identifier == "" {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// FindPrincipalByID looks up a principal by id.
func (t *RecordTx) FindPrincipalByID(id string) (*models.Principal, error) {
	principals, err := t.Principals()
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(principals, func(p models.Principal) bool { return p.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// RemovePrincipal deletes a principal by id.
func (t *RecordTx) RemovePrincipal(id string) error {
	principals, err := t.Principals()
	if err != nil {
		return err
	}
	kept := lo.Reject(principals, func(p models.Principal, _ int) bool { return p.ID == id })
	if len(kept) == len(principals) {
		return nil
	}
	return writeCollection(t, CollectionPrincipals, kept)
}

// HasSchoolAdmin reports whether any principal carries the admin override flag.
func (t *RecordTx) HasSchoolAdmin() (bool, error) {
	principals, err := t.Principals()
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(principals, func(p models.Principal) bool { return p.IsAdminOverride }), nil
}

// AdjustPoints adds delta to the first student with the display name.
func (t *RecordTx) AdjustPoints(displayName string, delta int) (*models.Principal, error) {
	return t.adjustPoints(func(p models.Principal) bool {
		return p.Role == models.RoleStudent && p.DisplayName == displayName
	}, delta)
}

// AdjustPointsByID adds delta to the student with the id.
func (t *RecordTx) AdjustPointsByID(studentID string, delta int) (*models.Principal, error) {
	return t.adjustPoints(func(p models.Principal) bool {
		return p.Role == models.RoleStudent && p.ID == studentID
	}, delta)
}

func (t *RecordTx) adjustPoints(match func(models.Principal) bool, delta int) (*models.Principal, error) {
	principals, err := t.Principals()
	if err != nil {
		return nil, err
	}
	_, idx, ok := lo.FindIndexOf(principals, match)
	if !ok {
		return nil, ErrRecordNotFound
	}

	student := principals[idx]
	profile := models.StudentProfile{}
	if student.Student != nil {
		profile = *student.Student
	}
	profile.Points += delta
	student.Student = &profile
	principals[idx] = student

	if err := writeCollection(t, CollectionPrincipals, principals); err != nil {
		return nil, err
	}
	return &student, nil
}

// Lessons returns the tenant's lessons newest first.
func (t *RecordTx) Lessons() ([]models.LessonItem, error) {
	return readCollection[models.LessonItem](t, CollectionLessons)
}

// AddLesson prepends a lesson.
func (t *RecordTx) AddLesson(lesson models.LessonItem) (models.LessonItem, error) {
	lesson.TenantID = t.tenantID
	t.stamp(&lesson.ID, &lesson.CreatedDate)
	return lesson, prependRecord(t, CollectionLessons, lesson)
}

// FindLesson looks up a lesson by id.
func (t *RecordTx) FindLesson(id string) (*models.LessonItem, error) {
	lessons, err := t.Lessons()
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(lessons, func(l models.LessonItem) bool { return l.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// RemoveLesson deletes a lesson by id.
func (t *RecordTx) RemoveLesson(id string) error {
	lessons, err := t.Lessons()
	if err != nil {
		return err
	}
	kept := lo.Reject(lessons, func(l models.LessonItem, _ int) bool { return l.ID == id })
	if len(kept) == len(lessons) {
		return nil
	}
	return writeCollection(t, CollectionLessons, kept)
}

// Challenges returns the tenant's challenges newest first.
func (t *RecordTx) Challenges() ([]models.ChallengeItem, error) {
	return readCollection[models.ChallengeItem](t, CollectionChallenges)
}

// AddChallenge prepends a challenge.
func (t *RecordTx) AddChallenge(challenge models.ChallengeItem) (models.ChallengeItem, error) {
	challenge.TenantID = t.tenantID
	t.stamp(&challenge.ID, &challenge.CreatedAt)
	return challenge, prependRecord(t, CollectionChallenges, challenge)
}

// FindChallenge looks up a challenge by id.
func (t *RecordTx) FindChallenge(id string) (*models.ChallengeItem, error) {
	challenges, err := t.Challenges()
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(challenges, func(c models.ChallengeItem) bool { return c.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// RemoveChallenge deletes a challenge by id.
func (t *RecordTx) RemoveChallenge(id string) error {
	challenges, err := t.Challenges()
	if err != nil {
		return err
	}
	kept := lo.Reject(challenges, func(c models.ChallengeItem, _ int) bool { return c.ID == id })
	if len(kept) == len(challenges) {
		return nil
	}
	return writeCollection(t, CollectionChallenges, kept)
}

// Activities returns the tenant's activity records newest first.
func (t *RecordTx) Activities() ([]models.ActivityRecord, error) {
	return readCollection[models.ActivityRecord](t, CollectionActivities)
}

// AddActivity prepends an activity record.
func (t *RecordTx) AddActivity(record models.ActivityRecord) (models.ActivityRecord, error) {
	record.TenantID = t.tenantID
	t.stamp(&record.ID, &record.Date)
	return record, prependRecord(t, CollectionActivities, record)
}

// FindActivity looks up an activity record by id.
func (t *RecordTx) FindActivity(id string) (*models.ActivityRecord, error) {
	records, err := t.Activities()
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(records, func(r models.ActivityRecord) bool { return r.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// UpdateActivityStatus overwrites the status of a record.
func (t *RecordTx) UpdateActivityStatus(id string, status models.ActivityStatus) (*models.ActivityRecord, error) {
	records, err := t.Activities()
	if err != nil {
		return nil, err
	}
	_, idx, ok := lo.FindIndexOf(records, func(r models.ActivityRecord) bool { return r.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	records[idx].Status = status
	if err := writeCollection(t, CollectionActivities, records); err != nil {
		return nil, err
	}
	updated := records[idx]
	return &updated, nil
}

// Classes returns the tenant's registered classes newest first.
func (t *RecordTx) Classes() ([]models.RegisteredClass, error) {
	return readCollection[models.RegisteredClass](t, CollectionClasses)
}

// AddClass prepends a registered class.
func (t *RecordTx) AddClass(class models.RegisteredClass) (models.RegisteredClass, error) {
	class.TenantID = t.tenantID
	if class.CreatedAt.IsZero() {
		class.CreatedAt = t.now().UTC()
	}
	return class, prependRecord(t, CollectionClasses, class)
}

// FindClassByJoinCode looks up a class by join code.
func (t *RecordTx) FindClassByJoinCode(code string) (*models.RegisteredClass, error) {
	classes, err := t.Classes()
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(classes, func(c models.RegisteredClass) bool { return c.JoinCode == code })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// AddMembership prepends a class membership.
func (t *RecordTx) AddMembership(membership models.ClassMembership) (models.ClassMembership, error) {
	membership.TenantID = t.tenantID
	if membership.JoinedAt.IsZero() {
		membership.JoinedAt = t.now().UTC()
	}
	return membership, prependRecord(t, CollectionMemberships, membership)
}

// CurrentMembership returns the newest membership of the student.
func (t *RecordTx) CurrentMembership(studentID string) (*models.ClassMembership, error) {
	memberships, err := readCollection[models.ClassMembership](t, CollectionMemberships)
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(memberships, func(m models.ClassMembership) bool { return m.StudentID == studentID })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// BadgesForStudent returns the student's badges newest first.
func (t *RecordTx) BadgesForStudent(studentID string) ([]models.BadgeItem, error) {
	badges, err := readCollection[models.BadgeItem](t, CollectionBadges)
	if err != nil {
		return nil, err
	}
	return lo.Filter(badges, func(b models.BadgeItem, _ int) bool { return b.StudentID == studentID }), nil
}

// AwardBadge prepends a badge unless the student already holds one with the same name.
// The returned flag reports whether a badge was added.
func (t *RecordTx) AwardBadge(badge models.BadgeItem) (models.BadgeItem, bool, error) {
	badges, err := readCollection[models.BadgeItem](t, CollectionBadges)
	if err != nil {
		return models.BadgeItem{}, false, err
	}
	held := lo.ContainsBy(badges, func(b models.BadgeItem) bool {
		return b.StudentID == badge.StudentID && b.Name == badge.Name
	})
	if held {
		return models.BadgeItem{}, false, nil
	}

	badge.TenantID = t.tenantID
	t.stamp(&badge.ID, &badge.Date)
	if err := writeCollection(t, CollectionBadges, append([]models.BadgeItem{badge}, badges...)); err != nil {
		return models.BadgeItem{}, false, err
	}
	return badge, true, nil
}

// PointHistoryForStudent returns the student's point transactions newest first.
func (t *RecordTx) PointHistoryForStudent(studentID string) ([]models.PointHistoryItem, error) {
	history, err := readCollection[models.PointHistoryItem](t, CollectionPointHistory)
	if err != nil {
		return nil, err
	}
	return lo.Filter(history, func(h models.PointHistoryItem, _ int) bool { return h.StudentID == studentID }), nil
}

// AddPointHistory prepends a point transaction.
func (t *RecordTx) AddPointHistory(item models.PointHistoryItem) (models.PointHistoryItem, error) {
	item.TenantID = t.tenantID
	t.stamp(&item.ID, &item.Date)
	return item, prependRecord(t, CollectionPointHistory, item)
}

// CreateSession stores a session and prunes the tenant's expired ones.
func (t *RecordTx) CreateSession(session models.Session) error {
	sessions, err := readCollection[models.Session](t, CollectionSessions)
	if err != nil {
		return err
	}
	now := t.now()
	live := lo.Filter(sessions, func(s models.Session, _ int) bool { return now.Before(s.ExpiresAt) })
	session.TenantID = t.tenantID
	return writeCollection(t, CollectionSessions, append(live, session))
}

// FindSession looks up a session by id.
func (t *RecordTx) FindSession(id string) (*models.Session, error) {
	sessions, err := readCollection[models.Session](t, CollectionSessions)
	if err != nil {
		return nil, err
	}
	found, ok := lo.Find(sessions, func(s models.Session) bool { return s.ID == id })
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &found, nil
}

// RevokeSession marks a session revoked. Unknown or already revoked sessions are ignored.
func (t *RecordTx) RevokeSession(id string) error {
	return t.revokeSessions(func(s models.Session) bool { return s.ID == id })
}

// RevokePrincipalSessions revokes every active session of a principal.
func (t *RecordTx) RevokePrincipalSessions(principalID string) error {
	return t.revokeSessions(func(s models.Session) bool { return s.PrincipalID == principalID })
}

func (t *RecordTx) revokeSessions(match func(models.Session) bool) error {
	sessions, err := readCollection[models.Session](t, CollectionSessions)
	if err != nil {
		return err
	}

	now := t.now().UTC()
	changed := false
	for i := range sessions {
		if sessions[i].RevokedAt == nil && match(sessions[i]) {
			sessions[i].RevokedAt = &now
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeCollection(t, CollectionSessions, sessions)
}
