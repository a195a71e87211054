// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

var (
	_ repository.AppointmentRepository = (*AppointmentRepository)(nil)
	_ repository.SpecialistRepository  = (*SpecialistRepository)(nil)
	_ repository.AssistantRepository   = (*AssistantRepository)(nil)
	_ repository.PatientRepository     = (*PatientRepository)(nil)
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.OutboxRepository      = (*OutboxRepository)(nil)
)

type AppointmentRepository struct {
	mock.Mock
}

func (m *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Appointment)
	return a, args.Error(1)
}

func (m *AppointmentRepository) Update(ctx context.Context, a *model.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *AppointmentRepository) List(ctx context.Context, filter model.AppointmentFilter, paging model.Paging) ([]*model.Appointment, int, error) {
	args := m.Called(ctx, filter, paging)
	items, _ := args.Get(0).([]*model.Appointment)
	return items, args.Int(1), args.Error(2)
}

type SpecialistRepository struct {
	mock.Mock
}

func (m *SpecialistRepository) Create(ctx context.Context, s *model.Specialist) error {
	return m.Called(ctx, s).Error(0)
}

func (m *SpecialistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialist, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*model.Specialist)
	return s, args.Error(1)
}

func (m *SpecialistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Specialist, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*model.Specialist)
	return s, args.Error(1)
}

func (m *SpecialistRepository) List(ctx context.Context) ([]*model.Specialist, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]*model.Specialist)
	return items, args.Error(1)
}

func (m *SpecialistRepository) ListByAssistant(ctx context.Context, assistantID uuid.UUID) ([]*model.Specialist, error) {
	args := m.Called(ctx, assistantID)
	items, _ := args.Get(0).([]*model.Specialist)
	return items, args.Error(1)
}

func (m *SpecialistRepository) SetAssistants(ctx context.Context, specialistID uuid.UUID, assistantIDs []uuid.UUID) error {
	return m.Called(ctx, specialistID, assistantIDs).Error(0)
}

type AssistantRepository struct {
	mock.Mock
}

func (m *AssistantRepository) CreateWithUser(ctx context.Context, user *model.User, a *model.Assistant) error {
	return m.Called(ctx, user, a).Error(0)
}

func (m *AssistantRepository) Get(ctx context.Context, id uuid.UUID) (*model.Assistant, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Assistant)
	return a, args.Error(1)
}

func (m *AssistantRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Assistant, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(*model.Assistant)
	return a, args.Error(1)
}

func (m *AssistantRepository) List(ctx context.Context) ([]*model.Assistant, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]*model.Assistant)
	return items, args.Error(1)
}

func (m *AssistantRepository) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]*model.Assistant, error) {
	args := m.Called(ctx, specialistID)
	items, _ := args.Get(0).([]*model.Assistant)
	return items, args.Error(1)
}

func (m *AssistantRepository) SetSpecialists(ctx context.Context, assistantID uuid.UUID, specialistIDs []uuid.UUID) error {
	return m.Called(ctx, assistantID, specialistIDs).Error(0)
}

type PatientRepository struct {
	mock.Mock
}

func (m *PatientRepository) Create(ctx context.Context, p *model.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Patient)
	return p, args.Error(1)
}

func (m *PatientRepository) List(ctx context.Context, filter model.PatientFilter, paging model.Paging) ([]*model.Patient, int, error) {
	args := m.Called(ctx, filter, paging)
	items, _ := args.Get(0).([]*model.Patient)
	return items, args.Int(1), args.Error(2)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	return m.Called(ctx, id, deletedBy).Error(0)
}

func (m *UserRepository) Restore(ctx context.Context, id, restoredBy uuid.UUID) error {
	return m.Called(ctx, id, restoredBy).Error(0)
}

func (m *UserRepository) List(ctx context.Context, filter model.UserFilter, paging model.Paging) ([]*model.User, int, error) {
	args := m.Called(ctx, filter, paging)
	items, _ := args.Get(0).([]*model.User)
	return items, args.Int(1), args.Error(2)
}

func (m *UserRepository) Resolve(ctx context.Context, ids []uuid.UUID) ([]model.ResolvedUserRef, error) {
	args := m.Called(ctx, ids)
	refs, _ := args.Get(0).([]model.ResolvedUserRef)
	return refs, args.Error(1)
}

func (m *UserRepository) Exists(ctx context.Context, field model.AvailabilityField, value string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, field, value, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type OutboxRepository struct {
	mock.Mock
}

func (m *OutboxRepository) Create(ctx context.Context, e *model.OutboxEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]*model.OutboxEvent)
	return items, args.Error(1)
}

func (m *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, msg string, final bool) error {
	return m.Called(ctx, id, msg, final).Error(0)
}

func (m *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
