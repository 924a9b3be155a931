package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/repository"
)

// MockSink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Notify(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

// MockEnroller
type MockEnroller struct {
	mock.Mock
}

func (m *MockEnroller) EnsureMember(ctx context.Context, userID, templeID string) error {
	args := m.Called(ctx, userID, templeID)
	return args.Error(0)
}

// MockInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(userID string) {
	m.Called(userID)
}

// MockRegistrationRepo
type MockRegistrationRepo struct {
	mock.Mock
}

func (m *MockRegistrationRepo) Create(ctx context.Context, reg *domain.ServiceRegistration) (*domain.Service, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockRegistrationRepo) GetByID(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	args := m.Called(ctx, templeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceRegistration), args.Error(1)
}

func (m *MockRegistrationRepo) FindByUserAndService(ctx context.Context, templeID, userID, serviceID string) (*domain.ServiceRegistration, error) {
	args := m.Called(ctx, templeID, userID, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceRegistration), args.Error(1)
}

func (m *MockRegistrationRepo) ListByService(ctx context.Context, templeID, serviceID string) ([]domain.ServiceRegistration, error) {
	args := m.Called(ctx, templeID, serviceID)
	return args.Get(0).([]domain.ServiceRegistration), args.Error(1)
}

func (m *MockRegistrationRepo) ListByTemple(ctx context.Context, templeID string, status domain.RegistrationStatus) ([]domain.ServiceRegistration, error) {
	args := m.Called(ctx, templeID, status)
	return args.Get(0).([]domain.ServiceRegistration), args.Error(1)
}

func (m *MockRegistrationRepo) ListByUser(ctx context.Context, templeID, userID string) ([]domain.ServiceRegistration, error) {
	args := m.Called(ctx, templeID, userID)
	return args.Get(0).([]domain.ServiceRegistration), args.Error(1)
}

func (m *MockRegistrationRepo) UpdateStatus(ctx context.Context, u repository.StatusUpdate) (*repository.StatusChange, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.StatusChange), args.Error(1)
}

func (m *MockRegistrationRepo) Delete(ctx context.Context, templeID, id string) (*domain.ServiceRegistration, error) {
	args := m.Called(ctx, templeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceRegistration), args.Error(1)
}

func (m *MockRegistrationRepo) Recalculate(ctx context.Context, templeID, serviceID string) (*domain.Recalculation, error) {
	args := m.Called(ctx, templeID, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recalculation), args.Error(1)
}
