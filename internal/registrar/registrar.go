// Package registrar defines the gateway to the external DNS registrar and
// the decorators that add retry, circuit breaking and instrumentation
// around it. Adapters translate one intent into exactly one outbound call.
package registrar

import (
	"context"
	"time"
)

// DefaultTTL applies when a create request omits the TTL.
const DefaultTTL = 3600

// Gateway is the registrar surface the orchestrator depends on.
type Gateway interface {
	ListDomains(ctx context.Context) ([]Domain, error)
	GetDomain(ctx context.Context, name string) (*Domain, error)
	ListRecords(ctx context.Context, domain string) ([]Record, error)
	GetRecord(ctx context.Context, domain string, recordID int64) (*Record, error)
	CreateRecord(ctx context.Context, domain string, in CreateRecordInput) (*Record, error)
	UpdateRecord(ctx context.Context, domain string, recordID int64, patch RecordPatch) (*Record, error)
	DeleteRecord(ctx context.Context, domain string, recordID int64) error
}

// Domain is a domain in the registrar portfolio.
type Domain struct {
	Name             string
	Locked           bool
	AutorenewEnabled bool
	Nameservers      []string
	CreateDate       *time.Time
	ExpireDate       *time.Time
}

// Record is a DNS record as the registrar reports it. ID is the registrar's
// own identifier.
type Record struct {
	ID         int64
	DomainName string
	Name       string
	FQDN       string
	Type       string
	Content    string
	TTL        int
	Priority   *int
}

type CreateRecordInput struct {
	Name     string
	Type     string
	Content  string
	TTL      int
	Priority *int
}

// RecordPatch is sparse: nil fields are not sent and keep their registrar value.
type RecordPatch struct {
	Content  *string
	TTL      *int
	Priority *int
}

func (p RecordPatch) IsEmpty() bool {
	return p.Content == nil && p.TTL == nil && p.Priority == nil
}
