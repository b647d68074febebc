// Package fake is an in-memory registrar used by tests and by
// REGISTRAR_MODE=fake. It keeps name.com semantics: record ids are
// assigned by the registrar and unknown ids answer 404.
package fake

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"teamdns/internal/registrar"
)

type Registrar struct {
	mu       sync.Mutex
	domains  map[string]registrar.Domain
	records  map[string]map[int64]registrar.Record
	nextID   int64
	calls    map[string]int
	failures map[string][]error
	latency  time.Duration
}

func New() *Registrar {
	return &Registrar{
		domains:  make(map[string]registrar.Domain),
		records:  make(map[string]map[int64]registrar.Record),
		nextID:   1,
		calls:    make(map[string]int),
		failures: make(map[string][]error),
	}
}

var _ registrar.Gateway = (*Registrar)(nil)

// AddDomain places a domain in the portfolio.
func (f *Registrar) AddDomain(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = strings.ToLower(name)
	now := time.Now().UTC()
	expires := now.AddDate(1, 0, 0)
	f.domains[name] = registrar.Domain{
		Name:        name,
		Nameservers: []string{"ns1.name.com", "ns2.name.com"},
		CreateDate:  &now,
		ExpireDate:  &expires,
	}
	if f.records[name] == nil {
		f.records[name] = make(map[int64]registrar.Record)
	}
}

// FailNext queues errs for the next calls of op, one per call.
func (f *Registrar) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// SetLatency delays every call; the delay honours context cancellation.
func (f *Registrar) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// Calls reports how many times op was invoked, including failed calls.
func (f *Registrar) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls counts every invocation across operations.
func (f *Registrar) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Registrar) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	latency := f.latency
	var injected error
	if queued := f.failures[op]; len(queued) > 0 {
		injected = queued[0]
		f.failures[op] = queued[1:]
	}
	f.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return &registrar.Error{Op: op, Timeout: true}
		case <-time.After(latency):
		}
	}
	return injected
}

func notFound(op, msg string) error {
	return &registrar.Error{Op: op, Status: http.StatusNotFound, Message: msg}
}

func (f *Registrar) ListDomains(ctx context.Context) ([]registrar.Domain, error) {
	if err := f.enter(ctx, "list_domains"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]registrar.Domain, 0, len(f.domains))
	for _, d := range f.domains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Registrar) GetDomain(ctx context.Context, name string) (*registrar.Domain, error) {
	if err := f.enter(ctx, "get_domain"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.domains[strings.ToLower(name)]
	if !ok {
		return nil, notFound("get_domain", "Domain Not Found")
	}
	return &d, nil
}

func (f *Registrar) ListRecords(ctx context.Context, domain string) ([]registrar.Record, error) {
	if err := f.enter(ctx, "list_records"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	recs, ok := f.records[strings.ToLower(domain)]
	if !ok {
		return nil, notFound("list_records", "Domain Not Found")
	}
	out := make([]registrar.Record, 0, len(recs))
	for _, r := range recs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Registrar) GetRecord(ctx context.Context, domain string, recordID int64) (*registrar.Record, error) {
	if err := f.enter(ctx, "get_record"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[strings.ToLower(domain)][recordID]
	if !ok {
		return nil, notFound("get_record", "Record Not Found")
	}
	return &r, nil
}

func (f *Registrar) CreateRecord(ctx context.Context, domain string, in registrar.CreateRecordInput) (*registrar.Record, error) {
	if err := f.enter(ctx, "create_record"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	domain = strings.ToLower(domain)
	recs, ok := f.records[domain]
	if !ok {
		return nil, notFound("create_record", "Domain Not Found")
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = registrar.DefaultTTL
	}
	r := registrar.Record{
		ID:         f.nextID,
		DomainName: domain,
		Name:       in.Name,
		FQDN:       fqdn(in.Name, domain),
		Type:       strings.ToUpper(in.Type),
		Content:    in.Content,
		TTL:        ttl,
		Priority:   copyInt(in.Priority),
	}
	f.nextID++
	recs[r.ID] = r
	return &r, nil
}

func (f *Registrar) UpdateRecord(ctx context.Context, domain string, recordID int64, patch registrar.RecordPatch) (*registrar.Record, error) {
	if err := f.enter(ctx, "update_record"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	domain = strings.ToLower(domain)
	r, ok := f.records[domain][recordID]
	if !ok {
		return nil, notFound("update_record", "Record Not Found")
	}
	if patch.Content != nil {
		r.Content = *patch.Content
	}
	if patch.TTL != nil {
		r.TTL = *patch.TTL
	}
	if patch.Priority != nil {
		r.Priority = copyInt(patch.Priority)
	}
	f.records[domain][recordID] = r
	return &r, nil
}

func (f *Registrar) DeleteRecord(ctx context.Context, domain string, recordID int64) error {
	if err := f.enter(ctx, "delete_record"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	domain = strings.ToLower(domain)
	if _, ok := f.records[domain][recordID]; !ok {
		return notFound("delete_record", "Record Not Found")
	}
	delete(f.records[domain], recordID)
	return nil
}

func fqdn(name, domain string) string {
	if name == "" || name == "@" {
		return domain + "."
	}
	return name + "." + domain + "."
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
