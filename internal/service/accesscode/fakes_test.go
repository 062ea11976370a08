package accesscode_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/pkg/logger"
	"github.com/mesdirectives/access-api/pkg/metrics"
)

// Registered once: the prometheus default registry rejects duplicates.
var testMetrics = metrics.NewMetrics("test", "accesscode")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Output: io.Discard,
	})
}

type fakeCodeRepo struct {
	mu      sync.Mutex
	records []*model.AccessCode
	failAll bool
}

func (r *fakeCodeRepo) Create(_ context.Context, code *model.AccessCode) error {
	if r.failAll {
		return fmt.Errorf("storage down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *code
	r.records = append(r.records, &clone)
	return nil
}

func (r *fakeCodeRepo) FindByCode(_ context.Context, code string) ([]*model.AccessCode, error) {
	if r.failAll {
		return nil, fmt.Errorf("storage down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessCode
	for _, rec := range r.records {
		if rec.Code == code {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeCodeRepo) ListByOwner(_ context.Context, ownerUserID uuid.UUID) ([]*model.AccessCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessCode
	for _, rec := range r.records {
		if rec.OwnerUserID == ownerUserID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeCodeRepo) ActiveCodeExists(_ context.Context, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Code == code && !rec.Expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCodeRepo) UpdateExpiry(_ context.Context, id uuid.UUID, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.ExpiresAt = expiresAt
			return nil
		}
	}
	return fmt.Errorf("no such code")
}

func (r *fakeCodeRepo) MarkUsed(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			t := usedAt
			rec.UsedAt = &t
			return nil
		}
	}
	return fmt.Errorf("no such code")
}

func (r *fakeCodeRepo) DeleteByCode(_ context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.AccessCode
	var deleted int64
	for _, rec := range r.records {
		if rec.Code == code {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

type fakeShareRepo struct {
	mu      sync.Mutex
	records []*model.SharedProfile
}

func (r *fakeShareRepo) Create(_ context.Context, share *model.SharedProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *share
	r.records = append(r.records, &clone)
	return nil
}

func (r *fakeShareRepo) FindByCode(_ context.Context, code string) ([]*model.SharedProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SharedProfile
	for _, rec := range r.records {
		if rec.Code == code {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeShareRepo) DeleteByCode(_ context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.SharedProfile
	var deleted int64
	for _, rec := range r.records {
		if rec.Code == code {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]*model.Profile)}
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *profile
	r.profiles[profile.UserID] = &clone
	return nil
}

func (r *fakeProfileRepo) Get(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s not found", userID)
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, profile *model.Profile) error {
	return r.Create(nil, profile)
}

func (r *fakeProfileRepo) FindByMedicalAccessCode(_ context.Context, code string) ([]*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Profile
	for _, p := range r.profiles {
		if p.MedicalAccessCode != nil && *p.MedicalAccessCode == code {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeDirectiveRepo struct {
	mu         sync.Mutex
	directives map[uuid.UUID]*model.Directive
}

func newFakeDirectiveRepo() *fakeDirectiveRepo {
	return &fakeDirectiveRepo{directives: make(map[uuid.UUID]*model.Directive)}
}

func (r *fakeDirectiveRepo) Create(_ context.Context, directive *model.Directive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *directive
	r.directives[directive.ID] = &clone
	return nil
}

func (r *fakeDirectiveRepo) Get(_ context.Context, id uuid.UUID) (*model.Directive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.directives[id]
	if !ok {
		return nil, fmt.Errorf("directive %s not found", id)
	}
	clone := *d
	return &clone, nil
}

func (r *fakeDirectiveRepo) ListByOwner(_ context.Context, ownerUserID uuid.UUID) ([]*model.Directive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Directive
	for _, d := range r.directives {
		if d.OwnerUserID == ownerUserID {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeDirectiveRepo) FindByInstitutionCode(_ context.Context, code string) ([]*model.Directive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Directive
	for _, d := range r.directives {
		if d.InstitutionCode != nil && *d.InstitutionCode == code {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeDirectiveRepo) SetInstitutionCode(_ context.Context, id uuid.UUID, code *string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.directives[id]
	if !ok {
		return fmt.Errorf("directive %s not found", id)
	}
	d.InstitutionCode = code
	d.InstitutionCodeExpiresAt = expiresAt
	return nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *event
	r.events = append(r.events, &clone)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.events) {
		limit = len(r.events)
	}
	return r.events[:limit], nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*model.AccessLogEntry
}

func (r *fakeLogRepo) Create(_ context.Context, entry *model.AccessLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *fakeLogRepo) ListByUserSince(_ context.Context, userID uuid.UUID, since time.Time) ([]*model.AccessLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessLogEntry
	for _, e := range r.entries {
		if e.UserID == userID && e.CreatedAt.After(since) {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*model.AccessLogEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AccessLogEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			clone := *e
			out = append(out, &clone)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeLogRepo) ListActiveUsersSince(_ context.Context, since time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, e := range r.entries {
		if e.CreatedAt.After(since) && e.UserID != uuid.Nil {
			if _, ok := seen[e.UserID]; !ok {
				seen[e.UserID] = struct{}{}
				out = append(out, e.UserID)
			}
		}
	}
	return out, nil
}

func (r *fakeLogRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.AccessLogEntry
	var deleted int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return deleted, nil
}

func (r *fakeLogRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
