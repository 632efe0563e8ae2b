package entity

import (
	"time"

	"phishsim/pkg/goutil"
)

type CampaignStatus uint32

const (
	CampaignStatusUnknown CampaignStatus = iota
	CampaignStatusDraft
	CampaignStatusScheduled
	CampaignStatusActive
	CampaignStatusCompleted
)

// Campaign ties a target group, an email template, a landing page and an
// SMTP profile together. Once launched it is mutated exclusively by the
// scheduler and the dispatch path.
type Campaign struct {
	ID            *uint64        `json:"id,omitempty"`
	TenantID      *uint64        `json:"tenant_id,omitempty"`
	Name          *string        `json:"name,omitempty"`
	GroupID       *uint64        `json:"group_id,omitempty"`
	TemplateID    *uint64        `json:"template_id,omitempty"`
	PageID        *uint64        `json:"page_id,omitempty"`
	SMTPProfileID *uint64        `json:"smtp_profile_id,omitempty"`
	Status        CampaignStatus `json:"status,omitempty"`
	ScheduledAt   *uint64        `json:"scheduled_at,omitempty"`
	EndTime       *uint64        `json:"end_time,omitempty"`
	CreateTime    *uint64        `json:"create_time,omitempty"`
	UpdateTime    *uint64        `json:"update_time,omitempty"`
}

func NewCampaign(tenantID uint64, name string, groupID, templateID, pageID, smtpProfileID uint64) *Campaign {
	now := uint64(time.Now().Unix())

	return &Campaign{
		TenantID:      goutil.Uint64(tenantID),
		Name:          goutil.String(name),
		GroupID:       goutil.Uint64(groupID),
		TemplateID:    goutil.Uint64(templateID),
		PageID:        goutil.Uint64(pageID),
		SMTPProfileID: goutil.Uint64(smtpProfileID),
		Status:        CampaignStatusDraft,
		CreateTime:    goutil.Uint64(now),
		UpdateTime:    goutil.Uint64(now),
	}
}

func (e *Campaign) Update(c *Campaign) bool {
	var hasChange bool

	if c.Status != CampaignStatusUnknown && e.Status != c.Status {
		hasChange = true
		e.Status = c.Status
	}

	if c.ScheduledAt != nil && e.GetScheduledAt() != *c.ScheduledAt {
		hasChange = true
		e.ScheduledAt = c.ScheduledAt
	}

	if c.EndTime != nil && e.GetEndTime() != *c.EndTime {
		hasChange = true
		e.EndTime = c.EndTime
	}

	if hasChange {
		e.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))
	}

	return hasChange
}

func (e *Campaign) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Campaign) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *Campaign) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Campaign) GetGroupID() uint64 {
	if e != nil && e.GroupID != nil {
		return *e.GroupID
	}
	return 0
}

func (e *Campaign) GetTemplateID() uint64 {
	if e != nil && e.TemplateID != nil {
		return *e.TemplateID
	}
	return 0
}

func (e *Campaign) GetPageID() uint64 {
	if e != nil && e.PageID != nil {
		return *e.PageID
	}
	return 0
}

func (e *Campaign) GetSMTPProfileID() uint64 {
	if e != nil && e.SMTPProfileID != nil {
		return *e.SMTPProfileID
	}
	return 0
}

func (e *Campaign) GetStatus() CampaignStatus {
	if e != nil {
		return e.Status
	}
	return CampaignStatusUnknown
}

func (e *Campaign) GetScheduledAt() uint64 {
	if e != nil && e.ScheduledAt != nil {
		return *e.ScheduledAt
	}
	return 0
}

func (e *Campaign) GetEndTime() uint64 {
	if e != nil && e.EndTime != nil {
		return *e.EndTime
	}
	return 0
}

// IsClaimable reports whether the scheduler may still claim the campaign
// for dispatch.
func (e *Campaign) IsClaimable() bool {
	status := e.GetStatus()
	return status == CampaignStatusDraft || status == CampaignStatusScheduled
}
