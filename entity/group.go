package entity

import (
	"time"

	"phishsim/pkg/goutil"
)

// Group is a named target list. Targets belong to exactly one group.
type Group struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	Name       *string `json:"name,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
	UpdateTime *uint64 `json:"update_time,omitempty"`

	Targets     []*Target `json:"targets,omitempty"`
	TargetCount *uint64   `json:"target_count,omitempty"`
}

func NewGroup(tenantID uint64, name string) *Group {
	now := uint64(time.Now().Unix())

	return &Group{
		TenantID:   goutil.Uint64(tenantID),
		Name:       goutil.String(name),
		CreateTime: goutil.Uint64(now),
		UpdateTime: goutil.Uint64(now),
	}
}

func (e *Group) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Group) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *Group) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}
