package repo

import (
	"context"
	"errors"

	"phishsim/entity"

	"gorm.io/gorm"
)

var (
	ErrPageNotFound = errors.New("page not found")
)

const pageCachePrefix = "page"

type Page struct {
	ID          *uint64
	TenantID    *uint64
	Name        *string
	Html        *string
	RedirectURL *string
	CreateTime  *uint64
	UpdateTime  *uint64
}

func (m *Page) TableName() string {
	return "page_tab"
}

func (m *Page) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type PageRepo interface {
	Create(ctx context.Context, page *entity.Page) (uint64, error)
	GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Page, error)
	GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Page, *Pagination, error)
	Close(ctx context.Context) error
}

type pageRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewPageRepo(_ context.Context, baseRepo BaseRepo, baseCache BaseCache) PageRepo {
	return &pageRepo{
		baseRepo:  baseRepo,
		baseCache: baseCache,
	}
}

func (r *pageRepo) Create(ctx context.Context, page *entity.Page) (uint64, error) {
	pageModel := ToPageModel(page)

	if err := r.baseRepo.Create(ctx, pageModel); err != nil {
		return 0, err
	}

	page.ID = pageModel.ID

	return pageModel.GetID(), nil
}

func (r *pageRepo) GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Page, error) {
	if v, ok := r.baseCache.Get(ctx, pageCachePrefix, tenantID, id); ok {
		return v.(*entity.Page), nil
	}

	page := new(Page)

	if err := r.baseRepo.Get(ctx, page, &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: id,
				Op:    OpEq,
			},
			{
				Field: "tenant_id",
				Value: tenantID,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}

	e := ToPage(page)
	r.baseCache.Set(ctx, pageCachePrefix, tenantID, id, e)

	return e, nil
}

func (r *pageRepo) GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Page, *Pagination, error) {
	res, pagination, err := r.baseRepo.GetMany(ctx, new(Page), &Filter{
		Conditions: []*Condition{
			{
				Field: "tenant_id",
				Value: tenantID,
				Op:    OpEq,
			},
		},
		Pagination: p,
	})
	if err != nil {
		return nil, nil, err
	}

	pages := make([]*entity.Page, len(res))
	for i, m := range res {
		pages[i] = ToPage(m.(*Page))
	}

	return pages, pagination, nil
}

func (r *pageRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToPage(page *Page) *entity.Page {
	return &entity.Page{
		ID:          page.ID,
		TenantID:    page.TenantID,
		Name:        page.Name,
		Html:        page.Html,
		RedirectURL: page.RedirectURL,
		CreateTime:  page.CreateTime,
		UpdateTime:  page.UpdateTime,
	}
}

func ToPageModel(page *entity.Page) *Page {
	return &Page{
		ID:          page.ID,
		TenantID:    page.TenantID,
		Name:        page.Name,
		Html:        page.Html,
		RedirectURL: page.RedirectURL,
		CreateTime:  page.CreateTime,
		UpdateTime:  page.UpdateTime,
	}
}
