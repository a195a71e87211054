package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/mocks"
)

func strPtr(s string) *string { return &s }

func TestSearchBuildsPage(t *testing.T) {
	repo := new(mocks.PatientRepository)
	svc := NewService(repo)
	paging := model.Paging{Page: 1, Size: 10}
	p := &model.Patient{FullName: "Ana Lopez"}

	repo.On("List", mock.Anything, model.PatientFilter{Search: "ana"}, paging).
		Return([]*model.Patient{p}, 11, nil)

	page, err := svc.Search(context.Background(), "  ana ", paging)

	require.NoError(t, err)
	assert.Equal(t, []*model.Patient{p}, page.Content)
	assert.Equal(t, 11, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.Number)
}

func TestCreateNormalizesFields(t *testing.T) {
	repo := new(mocks.PatientRepository)
	svc := NewService(repo)
	actor := uuid.New()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Patient) bool {
		return p.FullName == "Ana Maria Lopez" &&
			p.Phone == nil &&
			*p.Email == "ana@example.com" &&
			*p.CreatedBy == actor
	})).Return(nil)

	got, err := svc.Create(context.Background(), &model.CreatePatientRequest{
		FullName: " Ana  Maria   Lopez ",
		Phone:    strPtr("   "),
		Email:    strPtr(" ana@example.com"),
	}, &actor)

	require.NoError(t, err)
	assert.Nil(t, got.BirthDate)
	repo.AssertExpectations(t)
}
