package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

// Search pages through patients whose name, phone or email matches text.
func (s *Service) Search(ctx context.Context, text string, paging model.Paging) (model.Page[*model.Patient], error) {
	items, total, err := s.repo.List(ctx, model.PatientFilter{Search: strings.TrimSpace(text)}, paging)
	if err != nil {
		return model.Page[*model.Patient]{}, err
	}
	return model.NewPage(items, total, paging.Page, paging.Size), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest, actor *uuid.UUID) (*model.Patient, error) {
	p := &model.Patient{
		FullName:  strings.Join(strings.Fields(req.FullName), " "),
		BirthDate: optional(req.BirthDate),
		Phone:     optional(req.Phone),
		Email:     optional(req.Email),
		Notes:     optional(req.Notes),
	}
	p.CreatedBy = actor

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// optional trims v and drops it when blank.
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
