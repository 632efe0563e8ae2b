package repo

import (
	"context"
	"errors"

	"phishsim/entity"
	"phishsim/pkg/goutil"

	"gorm.io/gorm"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
)

type Tenant struct {
	ID         *uint64
	Name       *string
	Status     *uint32
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *Tenant) TableName() string {
	return "tenant_tab"
}

func (m *Tenant) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type TenantRepo interface {
	Create(ctx context.Context, tenant *entity.Tenant) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*entity.Tenant, error)
	Close(ctx context.Context) error
}

type tenantRepo struct {
	baseRepo BaseRepo
}

func NewTenantRepo(_ context.Context, baseRepo BaseRepo) TenantRepo {
	return &tenantRepo{
		baseRepo: baseRepo,
	}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *entity.Tenant) (uint64, error) {
	tenantModel := ToTenantModel(tenant)

	if err := r.baseRepo.Create(ctx, tenantModel); err != nil {
		return 0, err
	}

	tenant.ID = tenantModel.ID

	return tenantModel.GetID(), nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id uint64) (*entity.Tenant, error) {
	tenant := new(Tenant)

	if err := r.baseRepo.Get(ctx, tenant, &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: id,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	return ToTenant(tenant), nil
}

func (r *tenantRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToTenant(tenant *Tenant) *entity.Tenant {
	var status entity.TenantStatus
	if tenant.Status != nil {
		status = entity.TenantStatus(*tenant.Status)
	}

	return &entity.Tenant{
		ID:         tenant.ID,
		Name:       tenant.Name,
		Status:     status,
		CreateTime: tenant.CreateTime,
		UpdateTime: tenant.UpdateTime,
	}
}

func ToTenantModel(tenant *entity.Tenant) *Tenant {
	return &Tenant{
		ID:         tenant.ID,
		Name:       tenant.Name,
		Status:     goutil.Uint32(uint32(tenant.Status)),
		CreateTime: tenant.CreateTime,
		UpdateTime: tenant.UpdateTime,
	}
}
