package entity

import (
	"time"

	"phishsim/pkg/goutil"
)

// Page is the landing page served when a target follows an instrumented
// link. RedirectURL, when set, is where a submitted form forwards to.
type Page struct {
	ID          *uint64 `json:"id,omitempty"`
	TenantID    *uint64 `json:"tenant_id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Html        *string `json:"html,omitempty"`
	RedirectURL *string `json:"redirect_url,omitempty"`
	CreateTime  *uint64 `json:"create_time,omitempty"`
	UpdateTime  *uint64 `json:"update_time,omitempty"`
}

func NewPage(tenantID uint64, name, html, redirectURL string) *Page {
	now := uint64(time.Now().Unix())

	return &Page{
		TenantID:    goutil.Uint64(tenantID),
		Name:        goutil.String(name),
		Html:        goutil.String(html),
		RedirectURL: goutil.String(redirectURL),
		CreateTime:  goutil.Uint64(now),
		UpdateTime:  goutil.Uint64(now),
	}
}

func (e *Page) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Page) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *Page) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Page) GetHtml() string {
	if e != nil && e.Html != nil {
		return *e.Html
	}
	return ""
}

func (e *Page) GetRedirectURL() string {
	if e != nil && e.RedirectURL != nil {
		return *e.RedirectURL
	}
	return ""
}
