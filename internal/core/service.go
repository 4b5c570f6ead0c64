package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"time"

	"wellscope/pkg/domain"
)

// Service exposes the typed operations request handlers consume. It is the
// only layer that composes document mutations; handlers never touch the
// store directly.
type Service struct {
	store   domain.DocumentStore
	metrics MetricsRecorder
	nowFn   func() time.Time
}

// NewService constructs a service backed by the supplied store. metrics may
// be nil.
func NewService(store domain.DocumentStore, metrics MetricsRecorder) *Service {
	return &Service{
		store:   store,
		metrics: metrics,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Store returns the underlying document store.
func (s *Service) Store() domain.DocumentStore { return s.store }

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func (s *Service) observe(ctx context.Context, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, operation, err == nil, s.nowFn().Sub(start))
}

func appendAudit(doc *domain.Document, actor string, action domain.Action, entity domain.EntityType, id string, now time.Time) {
	doc.Audits = append(doc.Audits, domain.AuditEntry{
		ID:         newID(),
		Actor:      actor,
		Action:     action,
		Entity:     entity,
		EntityID:   id,
		OccurredAt: now,
	})
}

// CreateOrganization persists a new organization.
func (s *Service) CreateOrganization(ctx context.Context, actor string, org domain.Organization) (created domain.Organization, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_organization", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if org.ID == "" {
			org.ID = newID()
		}
		for _, existing := range doc.Organizations {
			if existing.ID == org.ID {
				return domain.ConflictError{Entity: domain.EntityOrganization, ID: org.ID}
			}
		}
		org.CreatedAt = now
		org.UpdatedAt = now
		doc.Organizations = append(doc.Organizations, org)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityOrganization, org.ID, now)
		created = org
		return nil
	})
	return created, err
}

// ListOrganizations returns all organizations sorted by name.
func (s *Service) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	var out []domain.Organization
	err := s.store.View(ctx, func(doc domain.Document) error {
		out = append(out, doc.Organizations...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// CreateUser persists a new account.
func (s *Service) CreateUser(ctx context.Context, actor string, user domain.User) (created domain.User, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_user", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if user.ID == "" {
			user.ID = newID()
		}
		for _, existing := range doc.Users {
			if existing.ID == user.ID {
				return domain.ConflictError{Entity: domain.EntityUser, ID: user.ID}
			}
		}
		user.CreatedAt = now
		user.UpdatedAt = now
		doc.Users = append(doc.Users, user)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityUser, user.ID, now)
		created = user
		return nil
	})
	return created, err
}

// FindUserByUsername retrieves an account for the authentication routes.
func (s *Service) FindUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	var user domain.User
	found := false
	err := s.store.View(ctx, func(doc domain.Document) error {
		for _, u := range doc.Users {
			if u.Username == username {
				user = u
				found = true
				return nil
			}
		}
		return nil
	})
	return user, found, err
}

// CreateSession records an issued session.
func (s *Service) CreateSession(ctx context.Context, session domain.Session) (created domain.Session, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_session", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if session.ID == "" {
			session.ID = newID()
		}
		session.CreatedAt = now
		session.UpdatedAt = now
		doc.Sessions = append(doc.Sessions, session)
		created = session
		return nil
	})
	return created, err
}

// DeleteSession removes a session by token. Missing tokens are not an error;
// logout is idempotent.
func (s *Service) DeleteSession(ctx context.Context, token string) (err error) {
	defer func(start time.Time) { s.observe(ctx, "delete_session", start, err) }(s.nowFn())
	return s.store.Mutate(ctx, func(doc *domain.Document) error {
		kept := doc.Sessions[:0]
		for _, sess := range doc.Sessions {
			if sess.Token != token {
				kept = append(kept, sess)
			}
		}
		doc.Sessions = kept
		return nil
	})
}

// CreateWell persists a new well.
func (s *Service) CreateWell(ctx context.Context, actor string, well domain.Well) (created domain.Well, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_well", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if well.ID == "" {
			well.ID = newID()
		}
		for _, existing := range doc.Wells {
			if existing.ID == well.ID {
				return domain.ConflictError{Entity: domain.EntityWell, ID: well.ID}
			}
		}
		if well.Status == "" {
			well.Status = domain.WellStatusActive
		}
		well.CreatedAt = now
		well.UpdatedAt = now
		doc.Wells = append(doc.Wells, well)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityWell, well.ID, now)
		created = well
		return nil
	})
	return created, err
}

// UpdateWell mutates a well using the provided mutator function.
func (s *Service) UpdateWell(ctx context.Context, actor, id string, mutator func(*domain.Well) error) (updated domain.Well, err error) {
	defer func(start time.Time) { s.observe(ctx, "update_well", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		for i := range doc.Wells {
			if doc.Wells[i].ID != id {
				continue
			}
			if err := mutator(&doc.Wells[i]); err != nil {
				return err
			}
			now := s.nowFn()
			doc.Wells[i].ID = id
			doc.Wells[i].UpdatedAt = now
			appendAudit(doc, actor, domain.ActionUpdate, domain.EntityWell, id, now)
			updated = doc.Wells[i]
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityWell, ID: id}
	})
	return updated, err
}

// DeleteWell removes a well record.
func (s *Service) DeleteWell(ctx context.Context, actor, id string) (err error) {
	defer func(start time.Time) { s.observe(ctx, "delete_well", start, err) }(s.nowFn())
	return s.store.Mutate(ctx, func(doc *domain.Document) error {
		for i := range doc.Wells {
			if doc.Wells[i].ID != id {
				continue
			}
			doc.Wells = append(doc.Wells[:i], doc.Wells[i+1:]...)
			appendAudit(doc, actor, domain.ActionDelete, domain.EntityWell, id, s.nowFn())
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityWell, ID: id}
	})
}

// GetWell retrieves a well by id.
func (s *Service) GetWell(ctx context.Context, id string) (domain.Well, bool, error) {
	var well domain.Well
	found := false
	err := s.store.View(ctx, func(doc domain.Document) error {
		for _, w := range doc.Wells {
			if w.ID == id {
				well = w
				found = true
				return nil
			}
		}
		return nil
	})
	return well, found, err
}

// ListWells returns all wells sorted by name.
func (s *Service) ListWells(ctx context.Context) ([]domain.Well, error) {
	var out []domain.Well
	err := s.store.View(ctx, func(doc domain.Document) error {
		out = append(out, doc.Wells...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// CreateDataset persists a new dataset record.
func (s *Service) CreateDataset(ctx context.Context, actor string, dataset domain.Dataset) (created domain.Dataset, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_dataset", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if dataset.ID == "" {
			dataset.ID = newID()
		}
		for _, existing := range doc.Datasets {
			if existing.ID == dataset.ID {
				return domain.ConflictError{Entity: domain.EntityDataset, ID: dataset.ID}
			}
		}
		if dataset.Status == "" {
			dataset.Status = domain.DatasetStatusPending
		}
		if dataset.Revision == 0 {
			dataset.Revision = 1
		}
		dataset.CreatedAt = now
		dataset.UpdatedAt = now
		doc.Datasets = append(doc.Datasets, dataset)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityDataset, dataset.ID, now)
		created = dataset
		return nil
	})
	return created, err
}

// UpdateDataset mutates a dataset using the provided mutator function.
func (s *Service) UpdateDataset(ctx context.Context, actor, id string, mutator func(*domain.Dataset) error) (updated domain.Dataset, err error) {
	defer func(start time.Time) { s.observe(ctx, "update_dataset", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		for i := range doc.Datasets {
			if doc.Datasets[i].ID != id {
				continue
			}
			if err := mutator(&doc.Datasets[i]); err != nil {
				return err
			}
			now := s.nowFn()
			doc.Datasets[i].ID = id
			doc.Datasets[i].UpdatedAt = now
			appendAudit(doc, actor, domain.ActionUpdate, domain.EntityDataset, id, now)
			updated = doc.Datasets[i]
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityDataset, ID: id}
	})
	return updated, err
}

// ListDatasets returns all datasets sorted by most recent update.
func (s *Service) ListDatasets(ctx context.Context) ([]domain.Dataset, error) {
	var out []domain.Dataset
	err := s.store.View(ctx, func(doc domain.Document) error {
		out = append(out, doc.Datasets...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, err
}

// CreateScenario persists a new scenario referencing an existing dataset.
func (s *Service) CreateScenario(ctx context.Context, actor string, scenario domain.Scenario) (created domain.Scenario, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_scenario", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		datasetExists := false
		for _, ds := range doc.Datasets {
			if ds.ID == scenario.DatasetID {
				datasetExists = true
				break
			}
		}
		if !datasetExists {
			return domain.NotFoundError{Entity: domain.EntityDataset, ID: scenario.DatasetID}
		}
		now := s.nowFn()
		if scenario.ID == "" {
			scenario.ID = newID()
		}
		for _, existing := range doc.Scenarios {
			if existing.ID == scenario.ID {
				return domain.ConflictError{Entity: domain.EntityScenario, ID: scenario.ID}
			}
		}
		scenario.CreatedAt = now
		scenario.UpdatedAt = now
		doc.Scenarios = append(doc.Scenarios, scenario)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityScenario, scenario.ID, now)
		created = scenario
		return nil
	})
	return created, err
}

// DeleteScenario removes a scenario record.
func (s *Service) DeleteScenario(ctx context.Context, actor, id string) (err error) {
	defer func(start time.Time) { s.observe(ctx, "delete_scenario", start, err) }(s.nowFn())
	return s.store.Mutate(ctx, func(doc *domain.Document) error {
		for i := range doc.Scenarios {
			if doc.Scenarios[i].ID != id {
				continue
			}
			doc.Scenarios = append(doc.Scenarios[:i], doc.Scenarios[i+1:]...)
			appendAudit(doc, actor, domain.ActionDelete, domain.EntityScenario, id, s.nowFn())
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityScenario, ID: id}
	})
}

// ListScenarios returns all scenarios sorted by name.
func (s *Service) ListScenarios(ctx context.Context) ([]domain.Scenario, error) {
	var out []domain.Scenario
	err := s.store.View(ctx, func(doc domain.Document) error {
		out = append(out, doc.Scenarios...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// CreateModel persists a new forecast model record.
func (s *Service) CreateModel(ctx context.Context, actor string, model domain.Model) (created domain.Model, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_model", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if model.ID == "" {
			model.ID = newID()
		}
		if model.Status == "" {
			model.Status = domain.ModelStatusDraft
		}
		model.CreatedAt = now
		model.UpdatedAt = now
		doc.Models = append(doc.Models, model)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityModel, model.ID, now)
		created = model
		return nil
	})
	return created, err
}

// MarkModelTrained records a completed training run.
func (s *Service) MarkModelTrained(ctx context.Context, actor, id string) (updated domain.Model, err error) {
	defer func(start time.Time) { s.observe(ctx, "mark_model_trained", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		for i := range doc.Models {
			if doc.Models[i].ID != id {
				continue
			}
			now := s.nowFn()
			doc.Models[i].Status = domain.ModelStatusTrained
			doc.Models[i].TrainedAt = &now
			doc.Models[i].UpdatedAt = now
			appendAudit(doc, actor, domain.ActionUpdate, domain.EntityModel, id, now)
			updated = doc.Models[i]
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityModel, ID: id}
	})
	return updated, err
}

// CreateReport persists a rendered report record.
func (s *Service) CreateReport(ctx context.Context, actor string, report domain.Report) (created domain.Report, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_report", start, err) }(s.nowFn())
	err = s.store.Mutate(ctx, func(doc *domain.Document) error {
		now := s.nowFn()
		if report.ID == "" {
			report.ID = newID()
		}
		report.CreatedAt = now
		report.UpdatedAt = now
		doc.Reports = append(doc.Reports, report)
		appendAudit(doc, actor, domain.ActionCreate, domain.EntityReport, report.ID, now)
		created = report
		return nil
	})
	return created, err
}

// ListReports returns all reports sorted by generation time, newest first.
func (s *Service) ListReports(ctx context.Context) ([]domain.Report, error) {
	var out []domain.Report
	err := s.store.View(ctx, func(doc domain.Document) error {
		out = append(out, doc.Reports...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, err
}

// ListAudits returns the audit trail, newest first.
func (s *Service) ListAudits(ctx context.Context) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := s.store.View(ctx, func(doc domain.Document) error {
		out = append(out, doc.Audits...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, err
}
