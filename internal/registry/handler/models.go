package handler

import (
	"strings"
	"time"

	"apeguard/internal/registry/service"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/audit"
)

// KeyRequest carries a registry key in its text form. Keys are passed
// through untouched; the registry's key policy decides what is valid.
type KeyRequest struct {
	Key string `json:"key"`
}

// IdentityRequest names an identity to allow, disallow, hand over to or make
// the new owner.
type IdentityRequest struct {
	Identity string `json:"identity"`
}

func (r *IdentityRequest) Normalize() {
	r.Identity = strings.TrimSpace(r.Identity)
}

func (r *IdentityRequest) Validate() error {
	if r.Identity == "" {
		return dErrors.New(dErrors.CodeValidation, "identity is required")
	}
	if _, err := domain.ParseAddress(r.Identity); err != nil {
		return dErrors.New(dErrors.CodeValidation, "identity must be a 0x-prefixed 20-byte hex address")
	}
	return nil
}

// Address returns the validated identity.
func (r *IdentityRequest) Address() domain.Address {
	addr, _ := domain.ParseAddress(r.Identity)
	return addr
}

// LinkRequest names the two keys of a link.
type LinkRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

type AddKeyResponse struct {
	Key string `json:"key"`
	ID  int    `json:"id"`
}

type KeyAtResponse struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
}

type RegistriesResponse struct {
	Registries []service.RegistryInfo `json:"registries"`
}

type RelationsResponse struct {
	Relations []service.RelationInfo `json:"relations"`
}

type OwnsResponse struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Linked bool   `json:"linked"`
}

type LinkedAtResponse struct {
	Side   service.Side `json:"side"`
	Key    string       `json:"key"`
	Index  int          `json:"index"`
	Linked string       `json:"linked"`
}

type AuditEventResponse struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Target      string    `json:"target"`
	Key         string    `json:"key,omitempty"`
	Counterpart string    `json:"counterpart,omitempty"`
	Caller      string    `json:"caller"`
	RequestID   string    `json:"request_id,omitempty"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
}

type AuditTrailResponse struct {
	Events []AuditEventResponse `json:"events"`
}

func toAuditTrailResponse(events []audit.Event) AuditTrailResponse {
	out := make([]AuditEventResponse, len(events))
	for i, e := range events {
		out[i] = AuditEventResponse{
			ID:          e.ID.String(),
			Category:    string(e.Category),
			Timestamp:   e.Timestamp,
			Action:      e.Action,
			Target:      e.Target,
			Key:         e.Key,
			Counterpart: e.Counterpart,
			Caller:      e.Caller,
			RequestID:   e.RequestID,
			Outcome:     e.Outcome,
			Reason:      e.Reason,
		}
	}
	return AuditTrailResponse{Events: out}
}
