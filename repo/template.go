package repo

import (
	"context"
	"errors"

	"phishsim/entity"

	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
)

const templateCachePrefix = "template"

type Template struct {
	ID         *uint64
	TenantID   *uint64
	Name       *string
	Subject    *string
	Html       *string
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *Template) TableName() string {
	return "template_tab"
}

func (m *Template) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type TemplateRepo interface {
	Create(ctx context.Context, template *entity.Template) (uint64, error)
	GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Template, error)
	GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Template, *Pagination, error)
	Close(ctx context.Context) error
}

type templateRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewTemplateRepo(_ context.Context, baseRepo BaseRepo, baseCache BaseCache) TemplateRepo {
	return &templateRepo{
		baseRepo:  baseRepo,
		baseCache: baseCache,
	}
}

func (r *templateRepo) Create(ctx context.Context, template *entity.Template) (uint64, error) {
	templateModel := ToTemplateModel(template)

	if err := r.baseRepo.Create(ctx, templateModel); err != nil {
		return 0, err
	}

	template.ID = templateModel.ID

	return templateModel.GetID(), nil
}

func (r *templateRepo) GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Template, error) {
	if v, ok := r.baseCache.Get(ctx, templateCachePrefix, tenantID, id); ok {
		return v.(*entity.Template), nil
	}

	template := new(Template)

	if err := r.baseRepo.Get(ctx, template, &Filter{
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
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	e := ToTemplate(template)
	r.baseCache.Set(ctx, templateCachePrefix, tenantID, id, e)

	return e, nil
}

func (r *templateRepo) GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Template, *Pagination, error) {
	res, pagination, err := r.baseRepo.GetMany(ctx, new(Template), &Filter{
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

	templates := make([]*entity.Template, len(res))
	for i, m := range res {
		templates[i] = ToTemplate(m.(*Template))
	}

	return templates, pagination, nil
}

func (r *templateRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToTemplate(template *Template) *entity.Template {
	return &entity.Template{
		ID:         template.ID,
		TenantID:   template.TenantID,
		Name:       template.Name,
		Subject:    template.Subject,
		Html:       template.Html,
		CreateTime: template.CreateTime,
		UpdateTime: template.UpdateTime,
	}
}

func ToTemplateModel(template *entity.Template) *Template {
	return &Template{
		ID:         template.ID,
		TenantID:   template.TenantID,
		Name:       template.Name,
		Subject:    template.Subject,
		Html:       template.Html,
		CreateTime: template.CreateTime,
		UpdateTime: template.UpdateTime,
	}
}
