package repo

import (
	"context"
	"errors"

	"phishsim/entity"

	"gorm.io/gorm"
)

var (
	ErrGroupNotFound = errors.New("group not found")
)

type Group struct {
	ID         *uint64
	TenantID   *uint64
	Name       *string
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *Group) TableName() string {
	return "group_tab"
}

func (m *Group) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type GroupRepo interface {
	// Create stores the group and its targets in one transaction.
	Create(ctx context.Context, group *entity.Group) (uint64, error)
	GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Group, error)
	GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Group, *Pagination, error)
	Close(ctx context.Context) error
}

type groupRepo struct {
	baseRepo   BaseRepo
	targetRepo TargetRepo
}

func NewGroupRepo(_ context.Context, baseRepo BaseRepo, targetRepo TargetRepo) GroupRepo {
	return &groupRepo{
		baseRepo:   baseRepo,
		targetRepo: targetRepo,
	}
}

func (r *groupRepo) Create(ctx context.Context, group *entity.Group) (uint64, error) {
	groupModel := ToGroupModel(group)

	if err := r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		if err := r.baseRepo.Create(ctx, groupModel); err != nil {
			return err
		}

		group.ID = groupModel.ID

		if len(group.Targets) > 0 {
			if err := r.targetRepo.CreateMany(ctx, groupModel.GetID(), group.Targets); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return 0, err
	}

	return groupModel.GetID(), nil
}

func (r *groupRepo) GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Group, error) {
	group := new(Group)

	if err := r.baseRepo.Get(ctx, group, &Filter{
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
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	return ToGroup(group), nil
}

func (r *groupRepo) GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Group, *Pagination, error) {
	res, pagination, err := r.baseRepo.GetMany(ctx, new(Group), &Filter{
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

	groups := make([]*entity.Group, len(res))
	for i, m := range res {
		groups[i] = ToGroup(m.(*Group))
	}

	return groups, pagination, nil
}

func (r *groupRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToGroup(group *Group) *entity.Group {
	return &entity.Group{
		ID:         group.ID,
		TenantID:   group.TenantID,
		Name:       group.Name,
		CreateTime: group.CreateTime,
		UpdateTime: group.UpdateTime,
	}
}

func ToGroupModel(group *entity.Group) *Group {
	return &Group{
		ID:         group.ID,
		TenantID:   group.TenantID,
		Name:       group.Name,
		CreateTime: group.CreateTime,
		UpdateTime: group.UpdateTime,
	}
}
