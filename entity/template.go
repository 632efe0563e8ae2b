package entity

import (
	"time"

	"phishsim/pkg/goutil"
)

// Template is the email the campaign sends out. Subject and Html may carry
// merge placeholders such as {{FirstName}} and {{TrackingURL}}.
type Template struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	Name       *string `json:"name,omitempty"`
	Subject    *string `json:"subject,omitempty"`
	Html       *string `json:"html,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
	UpdateTime *uint64 `json:"update_time,omitempty"`
}

func NewTemplate(tenantID uint64, name, subject, html string) *Template {
	now := uint64(time.Now().Unix())

	return &Template{
		TenantID:   goutil.Uint64(tenantID),
		Name:       goutil.String(name),
		Subject:    goutil.String(subject),
		Html:       goutil.String(html),
		CreateTime: goutil.Uint64(now),
		UpdateTime: goutil.Uint64(now),
	}
}

func (e *Template) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Template) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *Template) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Template) GetSubject() string {
	if e != nil && e.Subject != nil {
		return *e.Subject
	}
	return ""
}

func (e *Template) GetHtml() string {
	if e != nil && e.Html != nil {
		return *e.Html
	}
	return ""
}
