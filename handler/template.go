package handler

import (
	"context"

	"phishsim/entity"
	"phishsim/pkg/errutil"
	"phishsim/pkg/validator"
	"phishsim/repo"

	"github.com/rs/zerolog/log"
)

type TemplateHandler interface {
	CreateTemplate(ctx context.Context, req *CreateTemplateRequest, res *CreateTemplateResponse) error
	GetTemplates(ctx context.Context, req *GetTemplatesRequest, res *GetTemplatesResponse) error
}

type templateHandler struct {
	templateRepo repo.TemplateRepo
}

func NewTemplateHandler(templateRepo repo.TemplateRepo) TemplateHandler {
	return &templateHandler{
		templateRepo,
	}
}

type CreateTemplateRequest struct {
	TenantID *uint64 `json:"tenant_id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Subject  *string `json:"subject,omitempty"`
	Html     *string `json:"html,omitempty"`
}

func (r *CreateTemplateRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type CreateTemplateResponse struct {
	Template *entity.Template `json:"template"`
}

var CreateTemplateValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id": &validator.UInt64{},
	"name":      ResourceNameValidator(false),
	"subject": &validator.String{
		MinLen: 1,
		MaxLen: 255,
	},
	"html": HtmlValidator(false),
})

func (h *templateHandler) CreateTemplate(ctx context.Context, req *CreateTemplateRequest, res *CreateTemplateResponse) error {
	if err := CreateTemplateValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	template := entity.NewTemplate(req.GetTenantID(), *req.Name, *req.Subject, *req.Html)

	if _, err := h.templateRepo.Create(ctx, template); err != nil {
		log.Ctx(ctx).Error().Msgf("create template err: %v", err)
		return err
	}

	res.Template = template

	return nil
}

type GetTemplatesRequest struct {
	TenantID   *uint64            `json:"tenant_id,omitempty" schema:"tenant_id"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

func (r *GetTemplatesRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type GetTemplatesResponse struct {
	Templates  []*entity.Template `json:"templates"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

var GetTemplatesValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":  &validator.UInt64{},
	"pagination": PaginationValidator(),
})

func (h *templateHandler) GetTemplates(ctx context.Context, req *GetTemplatesRequest, res *GetTemplatesResponse) error {
	if err := GetTemplatesValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	templates, pagination, err := h.templateRepo.GetManyByTenantID(ctx, req.GetTenantID(), repo.ToPagination(req.Pagination))
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get templates err: %v", err)
		return err
	}

	res.Templates = templates
	res.Pagination = repo.ToEntityPagination(pagination)

	return nil
}
