package entity

import (
	"fmt"
	"time"

	"phishsim/pkg/goutil"
)

// SMTPProfile is the sending identity a campaign goes out through. One
// profile may serve many campaigns concurrently. When APIKey is set, the
// transactional API transport is used instead of raw SMTP.
type SMTPProfile struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	Name       *string `json:"name,omitempty"`
	Host       *string `json:"host,omitempty"`
	Port       *uint64 `json:"port,omitempty"`
	Username   *string `json:"username,omitempty"`
	Password   *string `json:"password,omitempty"`
	FromName   *string `json:"from_name,omitempty"`
	FromEmail  *string `json:"from_email,omitempty"`
	APIKey     *string `json:"api_key,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
	UpdateTime *uint64 `json:"update_time,omitempty"`
}

func NewSMTPProfile(tenantID uint64, name, host string, port uint64, fromName, fromEmail string) *SMTPProfile {
	now := uint64(time.Now().Unix())

	return &SMTPProfile{
		TenantID:   goutil.Uint64(tenantID),
		Name:       goutil.String(name),
		Host:       goutil.String(host),
		Port:       goutil.Uint64(port),
		FromName:   goutil.String(fromName),
		FromEmail:  goutil.String(fromEmail),
		CreateTime: goutil.Uint64(now),
		UpdateTime: goutil.Uint64(now),
	}
}

func (e *SMTPProfile) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *SMTPProfile) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *SMTPProfile) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *SMTPProfile) GetHost() string {
	if e != nil && e.Host != nil {
		return *e.Host
	}
	return ""
}

func (e *SMTPProfile) GetPort() uint64 {
	if e != nil && e.Port != nil {
		return *e.Port
	}
	return 0
}

func (e *SMTPProfile) GetUsername() string {
	if e != nil && e.Username != nil {
		return *e.Username
	}
	return ""
}

func (e *SMTPProfile) GetPassword() string {
	if e != nil && e.Password != nil {
		return *e.Password
	}
	return ""
}

func (e *SMTPProfile) GetFromName() string {
	if e != nil && e.FromName != nil {
		return *e.FromName
	}
	return ""
}

func (e *SMTPProfile) GetFromEmail() string {
	if e != nil && e.FromEmail != nil {
		return *e.FromEmail
	}
	return ""
}

func (e *SMTPProfile) GetAPIKey() string {
	if e != nil && e.APIKey != nil {
		return *e.APIKey
	}
	return ""
}

func (e *SMTPProfile) Addr() string {
	return fmt.Sprintf("%s:%d", e.GetHost(), e.GetPort())
}
