package models

import (
	"slices"
	"strings"
	"time"

	"teamdns/internal/registrar"
	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
)

const (
	maxDomainNameLength = 253
	maxRecordNameLength = 253
	maxContentLength    = 4096
	minTTL              = 60
	maxTTL              = 86400
	maxPriority         = 65535
)

// RecordTypes are the record types the registrar accepts.
var RecordTypes = []string{"A", "AAAA", "ANAME", "CNAME", "MX", "NS", "SRV", "TXT", "CAA"}

// Domain is a registrar domain tracked locally for ownership. TeamID never
// changes once set.
type Domain struct {
	ID           id.DomainID
	Name         string
	RegistrarRef string
	TeamID       id.TeamID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeDomainName lower-cases and strips the trailing root dot.
func NormalizeDomainName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

func NewDomain(domainID id.DomainID, name string, teamID id.TeamID, registrarRef string, now time.Time) (*Domain, error) {
	name = NormalizeDomainName(name)
	if err := ValidateDomainName(name); err != nil {
		return nil, err
	}
	if teamID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "domain team is required")
	}
	return &Domain{
		ID:           domainID,
		Name:         name,
		RegistrarRef: registrarRef,
		TeamID:       teamID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateDomainName checks an already normalized name.
func ValidateDomainName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "domain name is required")
	}
	if len(name) > maxDomainNameLength {
		return dErrors.New(dErrors.CodeValidation, "domain name is too long")
	}
	if !strings.Contains(name, ".") || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return dErrors.New(dErrors.CodeValidation, "domain name is malformed")
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.') {
			return dErrors.New(dErrors.CodeValidation, "domain name contains invalid characters")
		}
	}
	return nil
}

// DomainDetails joins the local ownership row with the registrar's view.
type DomainDetails struct {
	Domain    *Domain
	Registrar *registrar.Domain
	Records   []registrar.Record
}

type AttachDomainRequest struct {
	Name string `json:"name"`
}

func (r *AttachDomainRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = NormalizeDomainName(r.Name)
}

func (r *AttachDomainRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return ValidateDomainName(r.Name)
}

type CreateRecordRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	TTL      *int   `json:"ttl,omitempty"`
	Priority *int   `json:"priority,omitempty"`
}

func (r *CreateRecordRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "@" {
		r.Name = ""
	}
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	r.Content = strings.TrimSpace(r.Content)
}

func (r *CreateRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Name) > maxRecordNameLength {
		return dErrors.New(dErrors.CodeValidation, "record name is too long")
	}
	if !slices.Contains(RecordTypes, r.Type) {
		return dErrors.New(dErrors.CodeValidation, "record type must be one of "+strings.Join(RecordTypes, ", "))
	}
	if err := validateContent(r.Content); err != nil {
		return err
	}
	if err := validateTTL(r.TTL); err != nil {
		return err
	}
	return validatePriority(r.Priority)
}

// ToInput applies the default TTL.
func (r *CreateRecordRequest) ToInput() registrar.CreateRecordInput {
	ttl := registrar.DefaultTTL
	if r.TTL != nil {
		ttl = *r.TTL
	}
	return registrar.CreateRecordInput{
		Name:     r.Name,
		Type:     r.Type,
		Content:  r.Content,
		TTL:      ttl,
		Priority: r.Priority,
	}
}

// UpdateRecordRequest is a sparse patch: nil fields keep their registrar value.
type UpdateRecordRequest struct {
	Content  *string `json:"content,omitempty"`
	TTL      *int    `json:"ttl,omitempty"`
	Priority *int    `json:"priority,omitempty"`
}

func (r *UpdateRecordRequest) Normalize() {
	if r == nil || r.Content == nil {
		return
	}
	trimmed := strings.TrimSpace(*r.Content)
	r.Content = &trimmed
}

func (r *UpdateRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Content == nil && r.TTL == nil && r.Priority == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of content, ttl or priority is required")
	}
	if r.Content != nil {
		if err := validateContent(*r.Content); err != nil {
			return err
		}
	}
	if err := validateTTL(r.TTL); err != nil {
		return err
	}
	return validatePriority(r.Priority)
}

func (r *UpdateRecordRequest) ToPatch() registrar.RecordPatch {
	return registrar.RecordPatch{Content: r.Content, TTL: r.TTL, Priority: r.Priority}
}

func validateContent(content string) error {
	if content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if len(content) > maxContentLength {
		return dErrors.New(dErrors.CodeValidation, "content is too long")
	}
	return nil
}

func validateTTL(ttl *int) error {
	if ttl != nil && (*ttl < minTTL || *ttl > maxTTL) {
		return dErrors.New(dErrors.CodeValidation, "ttl must be between 60 and 86400")
	}
	return nil
}

func validatePriority(p *int) error {
	if p != nil && (*p < 0 || *p > maxPriority) {
		return dErrors.New(dErrors.CodeValidation, "priority must be between 0 and 65535")
	}
	return nil
}

type DomainResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegistrarDomainResponse struct {
	Locked           bool       `json:"locked"`
	AutorenewEnabled bool       `json:"autorenew_enabled"`
	Nameservers      []string   `json:"nameservers"`
	CreateDate       *time.Time `json:"create_date,omitempty"`
	ExpireDate       *time.Time `json:"expire_date,omitempty"`
}

type DomainDetailResponse struct {
	DomainResponse
	Registrar   *RegistrarDomainResponse `json:"registrar,omitempty"`
	Records     []RecordResponse         `json:"records"`
	RecordCount int                      `json:"record_count"`
}

type RecordResponse struct {
	ID         int64  `json:"id"`
	DomainName string `json:"domain_name"`
	Name       string `json:"name"`
	FQDN       string `json:"fqdn,omitempty"`
	Type       string `json:"type"`
	Content    string `json:"content"`
	TTL        int    `json:"ttl"`
	Priority   *int   `json:"priority,omitempty"`
}

func ToDomainResponse(d *Domain) DomainResponse {
	return DomainResponse{
		ID:        d.ID.String(),
		Name:      d.Name,
		TeamID:    d.TeamID.String(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func ToRecordResponse(r *registrar.Record) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		DomainName: r.DomainName,
		Name:       r.Name,
		FQDN:       r.FQDN,
		Type:       r.Type,
		Content:    r.Content,
		TTL:        r.TTL,
		Priority:   r.Priority,
	}
}

func ToRecordResponses(records []registrar.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for i := range records {
		out = append(out, ToRecordResponse(&records[i]))
	}
	return out
}

func ToDomainDetailResponse(d *DomainDetails) DomainDetailResponse {
	resp := DomainDetailResponse{
		DomainResponse: ToDomainResponse(d.Domain),
		Records:        ToRecordResponses(d.Records),
	}
	resp.RecordCount = len(resp.Records)
	if d.Registrar != nil {
		resp.Registrar = &RegistrarDomainResponse{
			Locked:           d.Registrar.Locked,
			AutorenewEnabled: d.Registrar.AutorenewEnabled,
			Nameservers:      d.Registrar.Nameservers,
			CreateDate:       d.Registrar.CreateDate,
			ExpireDate:       d.Registrar.ExpireDate,
		}
	}
	return resp
}
