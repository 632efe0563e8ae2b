package handler

import (
	"context"
	"errors"

	"phishsim/entity"
	"phishsim/pkg/errutil"
	"phishsim/pkg/validator"
	"phishsim/repo"

	"github.com/rs/zerolog/log"
)

type TenantHandler interface {
	CreateTenant(ctx context.Context, req *CreateTenantRequest, res *CreateTenantResponse) error
	GetTenant(ctx context.Context, req *GetTenantRequest, res *GetTenantResponse) error
}

type tenantHandler struct {
	tenantRepo repo.TenantRepo
}

func NewTenantHandler(tenantRepo repo.TenantRepo) TenantHandler {
	return &tenantHandler{
		tenantRepo,
	}
}

type CreateTenantRequest struct {
	Name *string `json:"name,omitempty"`
}

type CreateTenantResponse struct {
	Tenant *entity.Tenant `json:"tenant"`
}

var CreateTenantValidator = validator.MustForm(map[string]validator.Validator{
	"name": ResourceNameValidator(false),
})

func (h *tenantHandler) CreateTenant(ctx context.Context, req *CreateTenantRequest, res *CreateTenantResponse) error {
	if err := CreateTenantValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	tenant := entity.NewTenant(*req.Name)

	if _, err := h.tenantRepo.Create(ctx, tenant); err != nil {
		log.Ctx(ctx).Error().Msgf("create tenant err: %v", err)
		return err
	}

	res.Tenant = tenant

	return nil
}

type GetTenantRequest struct {
	ID *uint64 `json:"id,omitempty" schema:"id"`
}

func (r *GetTenantRequest) GetID() uint64 {
	if r != nil && r.ID != nil {
		return *r.ID
	}
	return 0
}

type GetTenantResponse struct {
	Tenant *entity.Tenant `json:"tenant"`
}

var GetTenantValidator = validator.MustForm(map[string]validator.Validator{
	"id": &validator.UInt64{},
})

func (h *tenantHandler) GetTenant(ctx context.Context, req *GetTenantRequest, res *GetTenantResponse) error {
	if err := GetTenantValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	tenant, err := h.tenantRepo.GetByID(ctx, req.GetID())
	if err != nil {
		if errors.Is(err, repo.ErrTenantNotFound) {
			return errutil.NotFoundError(err)
		}
		log.Ctx(ctx).Error().Msgf("get tenant err: %v", err)
		return err
	}

	res.Tenant = tenant

	return nil
}
