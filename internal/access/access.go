// Package access decides what a principal may do with a listing. Decisions are
// pure functions of their inputs and are evaluated on every request.
package access

import "promptmart/internal/models"

// Action is an operation attempted on a listing.
type Action string

const (
	View     Action = "view"
	Mutate   Action = "mutate"
	Purchase Action = "purchase"
	Download Action = "download"
)

// Decision is the outcome of a gate check. Code is a models.Code* constant when
// the action is denied.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

// Err converts a denial into the matching application error. It returns nil
// for allowed decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &models.AppError{Code: d.Code, Message: d.Reason}
}

// Decide evaluates action for p against listing. entitlement is p's purchase
// record for the listing, or nil when there is none.
func Decide(p models.Principal, listing *models.Listing, action Action, entitlement *models.Purchase) Decision {
	if listing == nil {
		return deny(models.CodeNotFound, "listing not found")
	}
	isAuthor := p.Authenticated() && p.UserID == listing.AuthorID

	switch action {
	case View:
		if CanView(p, listing) {
			return allow
		}
		return deny(models.CodeForbidden, "listing is not available")

	case Mutate:
		if !p.Authenticated() {
			return deny(models.CodeUnauthorized, "authentication required")
		}
		if isAuthor {
			return allow
		}
		return deny(models.CodeForbidden, "only the author can modify this listing")

	case Purchase:
		if !p.Authenticated() {
			return deny(models.CodeUnauthorized, "authentication required")
		}
		if !listing.IsPaid() {
			return deny(models.CodeInvalidOperation, "listing is free")
		}
		if isAuthor {
			return deny(models.CodeForbidden, "cannot purchase your own listing")
		}
		if entitlement.Completed() {
			return deny(models.CodeConflict, "listing already purchased")
		}
		if !CanView(p, listing) {
			return deny(models.CodeForbidden, "listing is not available")
		}
		return allow

	case Download:
		if !listing.IsPaid() || isAuthor || entitlement.Completed() {
			return allow
		}
		return deny(models.CodeForbidden, "purchase required")
	}

	return deny(models.CodeInvalidOperation, "unknown action")
}

// CanView reports whether the listing is visible to p.
func CanView(p models.Principal, listing *models.Listing) bool {
	if listing == nil {
		return false
	}
	return listing.IsPublic || p.IsAdmin() || (p.Authenticated() && p.UserID == listing.AuthorID)
}

// HasAccess reports whether p may read the full content of listing.
func HasAccess(p models.Principal, listing *models.Listing, entitlement *models.Purchase) bool {
	return Decide(p, listing, Download, entitlement).Allowed
}
