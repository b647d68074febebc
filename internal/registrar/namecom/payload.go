package namecom

import (
	"time"

	"teamdns/internal/registrar"
)

type domainPayload struct {
	DomainName       string     `json:"domainName"`
	Locked           bool       `json:"locked"`
	AutorenewEnabled bool       `json:"autorenewEnabled"`
	Nameservers      []string   `json:"nameservers"`
	CreateDate       *time.Time `json:"createDate"`
	ExpireDate       *time.Time `json:"expireDate"`
}

func (d domainPayload) toDomain() registrar.Domain {
	return registrar.Domain{
		Name:             d.DomainName,
		Locked:           d.Locked,
		AutorenewEnabled: d.AutorenewEnabled,
		Nameservers:      d.Nameservers,
		CreateDate:       d.CreateDate,
		ExpireDate:       d.ExpireDate,
	}
}

// recordPayload accepts "recordId" or "id", and "name" or "host".
type recordPayload struct {
	ID         int64  `json:"id"`
	RecordID   int64  `json:"recordId"`
	DomainName string `json:"domainName"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	FQDN       string `json:"fqdn"`
	Type       string `json:"type"`
	Answer     string `json:"answer"`
	TTL        int    `json:"ttl"`
	MXPriority *int   `json:"mxPriority"`
}

func (r recordPayload) toRecord(domain string) registrar.Record {
	id := r.RecordID
	if id == 0 {
		id = r.ID
	}
	host := r.Name
	if host == "" {
		host = r.Host
	}
	name := r.DomainName
	if name == "" {
		name = domain
	}
	return registrar.Record{
		ID:         id,
		DomainName: name,
		Name:       host,
		FQDN:       r.FQDN,
		Type:       r.Type,
		Content:    r.Answer,
		TTL:        r.TTL,
		Priority:   r.MXPriority,
	}
}

// recordWrite is the outbound body. Nil fields are omitted so a patch only
// carries what the caller set.
type recordWrite struct {
	Name       *string `json:"name,omitempty"`
	Type       *string `json:"type,omitempty"`
	Answer     *string `json:"answer,omitempty"`
	TTL        *int    `json:"ttl,omitempty"`
	MXPriority *int    `json:"mxPriority,omitempty"`
}
