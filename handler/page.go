package handler

import (
	"context"

	"phishsim/entity"
	"phishsim/pkg/errutil"
	"phishsim/pkg/validator"
	"phishsim/repo"

	"github.com/rs/zerolog/log"
)

type PageHandler interface {
	CreatePage(ctx context.Context, req *CreatePageRequest, res *CreatePageResponse) error
	GetPages(ctx context.Context, req *GetPagesRequest, res *GetPagesResponse) error
}

type pageHandler struct {
	pageRepo repo.PageRepo
}

func NewPageHandler(pageRepo repo.PageRepo) PageHandler {
	return &pageHandler{
		pageRepo,
	}
}

type CreatePageRequest struct {
	TenantID    *uint64 `json:"tenant_id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Html        *string `json:"html,omitempty"`
	RedirectURL *string `json:"redirect_url,omitempty"`
}

func (r *CreatePageRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

func (r *CreatePageRequest) GetRedirectURL() string {
	if r != nil && r.RedirectURL != nil {
		return *r.RedirectURL
	}
	return ""
}

type CreatePageResponse struct {
	Page *entity.Page `json:"page"`
}

var CreatePageValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id": &validator.UInt64{},
	"name":      ResourceNameValidator(false),
	"html":      HtmlValidator(false),
	"redirect_url": &validator.String{
		Optional: true,
		MaxLen:   2048,
	},
})

func (h *pageHandler) CreatePage(ctx context.Context, req *CreatePageRequest, res *CreatePageResponse) error {
	if err := CreatePageValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	page := entity.NewPage(req.GetTenantID(), *req.Name, *req.Html, req.GetRedirectURL())

	if _, err := h.pageRepo.Create(ctx, page); err != nil {
		log.Ctx(ctx).Error().Msgf("create page err: %v", err)
		return err
	}

	res.Page = page

	return nil
}

type GetPagesRequest struct {
	TenantID   *uint64            `json:"tenant_id,omitempty" schema:"tenant_id"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

func (r *GetPagesRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type GetPagesResponse struct {
	Pages      []*entity.Page     `json:"pages"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

var GetPagesValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":  &validator.UInt64{},
	"pagination": PaginationValidator(),
})

func (h *pageHandler) GetPages(ctx context.Context, req *GetPagesRequest, res *GetPagesResponse) error {
	if err := GetPagesValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	pages, pagination, err := h.pageRepo.GetManyByTenantID(ctx, req.GetTenantID(), repo.ToPagination(req.Pagination))
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get pages err: %v", err)
		return err
	}

	res.Pages = pages
	res.Pagination = repo.ToEntityPagination(pagination)

	return nil
}
