package handler

import (
	"context"

	"phishsim/entity"
	"phishsim/pkg/errutil"
	"phishsim/pkg/validator"
	"phishsim/repo"

	"github.com/rs/zerolog/log"
)

type GroupHandler interface {
	CreateGroup(ctx context.Context, req *CreateGroupRequest, res *CreateGroupResponse) error
	GetGroups(ctx context.Context, req *GetGroupsRequest, res *GetGroupsResponse) error
}

type groupHandler struct {
	groupRepo  repo.GroupRepo
	targetRepo repo.TargetRepo
}

func NewGroupHandler(groupRepo repo.GroupRepo, targetRepo repo.TargetRepo) GroupHandler {
	return &groupHandler{
		groupRepo,
		targetRepo,
	}
}

type GroupTarget struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Position  *string `json:"position,omitempty"`
}

type CreateGroupRequest struct {
	TenantID *uint64        `json:"tenant_id,omitempty"`
	Name     *string        `json:"name,omitempty"`
	Targets  []*GroupTarget `json:"targets,omitempty"`
}

func (r *CreateGroupRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type CreateGroupResponse struct {
	Group *entity.Group `json:"group"`
}

var CreateGroupValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id": &validator.UInt64{},
	"name":      ResourceNameValidator(false),
	"targets": &validator.Slice{
		MinLen: 1,
		MaxLen: 10_000,
		Validator: validator.MustForm(map[string]validator.Validator{
			"first_name": &validator.String{
				Optional: true,
				MaxLen:   60,
			},
			"last_name": &validator.String{
				Optional: true,
				MaxLen:   60,
			},
			"email":    EmailValidator(false),
			"position": ResourceNameValidator(true),
		}),
	},
})

func (h *groupHandler) CreateGroup(ctx context.Context, req *CreateGroupRequest, res *CreateGroupResponse) error {
	if err := CreateGroupValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	group := entity.NewGroup(req.GetTenantID(), *req.Name)

	targets := make([]*entity.Target, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, &entity.Target{
			FirstName: t.FirstName,
			LastName:  t.LastName,
			Email:     t.Email,
			Position:  t.Position,
		})
	}
	group.Targets = targets

	if _, err := h.groupRepo.Create(ctx, group); err != nil {
		log.Ctx(ctx).Error().Msgf("create group err: %v", err)
		return err
	}

	res.Group = group

	return nil
}

type GetGroupsRequest struct {
	TenantID   *uint64            `json:"tenant_id,omitempty" schema:"tenant_id"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

func (r *GetGroupsRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type GetGroupsResponse struct {
	Groups     []*entity.Group    `json:"groups"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

var GetGroupsValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":  &validator.UInt64{},
	"pagination": PaginationValidator(),
})

func (h *groupHandler) GetGroups(ctx context.Context, req *GetGroupsRequest, res *GetGroupsResponse) error {
	if err := GetGroupsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	groups, pagination, err := h.groupRepo.GetManyByTenantID(ctx, req.GetTenantID(), repo.ToPagination(req.Pagination))
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get groups err: %v", err)
		return err
	}

	// attach target counts, the list view shows group sizes
	for _, group := range groups {
		count, err := h.targetRepo.Count(ctx, group.GetID())
		if err != nil {
			log.Ctx(ctx).Error().Msgf("count targets err: %v", err)
			return err
		}
		group.TargetCount = &count
	}

	res.Groups = groups
	res.Pagination = repo.ToEntityPagination(pagination)

	return nil
}
