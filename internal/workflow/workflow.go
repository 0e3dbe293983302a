// Package workflow implements the document status machine.
package workflow

import (
	"fmt"
	"time"

	"github.com/complyx/complyx/pkg/schema"
)

// Action names a status transition.
type Action string

const (
	ActionSubmitReview Action = "submit-review"
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionPublish      Action = "publish"
	ActionArchive      Action = "archive"
	ActionExpire       Action = "expire"
)

// UserActions are the transitions a user may request through the API.
var UserActions = []Action{ActionSubmitReview, ActionApprove, ActionReject, ActionPublish, ActionArchive}

// AuditAction maps a transition to the audit log action it records.
func (a Action) AuditAction() schema.AuditAction {
	switch a {
	case ActionSubmitReview:
		return schema.ActionSubmitReview
	case ActionApprove:
		return schema.ActionApprove
	case ActionReject:
		return schema.ActionReject
	case ActionPublish:
		return schema.ActionPublish
	case ActionArchive:
		return schema.ActionArchive
	case ActionExpire:
		return schema.ActionExpire
	}
	return ""
}

// ParseAction resolves a transition by name.
func ParseAction(s string) (Action, bool) {
	if _, ok := table[Action(s)]; ok {
		return Action(s), true
	}
	return "", false
}

// Actor is whoever requests a transition. System actors only drive expiry.
type Actor struct {
	User   *schema.User
	System bool
	// Caps are the actor's effective capabilities on the document.
	Caps schema.CapabilitySet
}

// SystemActor is the actor used by the expiry sweeper.
var SystemActor = Actor{System: true}

func (a Actor) role() string {
	if a.System {
		return "system"
	}
	if a.User == nil {
		return "anonymous"
	}
	return string(a.User.Role)
}

func (a Actor) is(roles ...schema.Role) bool {
	if a.User == nil || !a.User.IsActive {
		return false
	}
	for _, r := range roles {
		if a.User.Role == r {
			return true
		}
	}
	return false
}

func (a Actor) owns(doc *schema.Document) bool {
	return a.User != nil && a.User.IsActive && doc.OwnerID == a.User.ID
}

// TransitionError reports a refused transition. It matches schema.ErrInvalidTransition.
type TransitionError struct {
	From   schema.Status
	Role   string
	Action Action
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s from %s by %s: %s", e.Action, e.From, e.Role, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == schema.ErrInvalidTransition
}

type rule struct {
	to      schema.Status
	allowed func(Actor, *schema.Document) bool
}

func managerOrAdmin(a Actor, _ *schema.Document) bool {
	return a.is(schema.RoleManager, schema.RoleAdmin)
}
func adminOnly(a Actor, _ *schema.Document) bool  { return a.is(schema.RoleAdmin) }
func systemOnly(a Actor, _ *schema.Document) bool { return a.System }

// reviewers hold approve and do not own the document. Admins are exempt.
func reviewers(a Actor, doc *schema.Document) bool {
	if a.is(schema.RoleAdmin) {
		return true
	}
	return a.User != nil && a.User.IsActive && !a.owns(doc) && a.Caps.Has(schema.CapApprove)
}

func submitters(a Actor, doc *schema.Document) bool {
	return a.owns(doc) || a.is(schema.RoleManager, schema.RoleAdmin) ||
		(a.User != nil && a.User.IsActive && a.Caps.Has(schema.CapEdit))
}

// table[action][from] holds the target state and who may take the edge.
var table = map[Action]map[schema.Status]rule{
	ActionSubmitReview: {
		schema.StatusDraft:   {schema.StatusUnderReview, submitters},
		schema.StatusExpired: {schema.StatusUnderReview, submitters},
	},
	ActionApprove: {
		schema.StatusUnderReview: {schema.StatusApproved, reviewers},
	},
	ActionReject: {
		schema.StatusUnderReview: {schema.StatusDraft, reviewers},
	},
	ActionPublish: {
		schema.StatusApproved:    {schema.StatusPublished, managerOrAdmin},
		schema.StatusUnderReview: {schema.StatusPublished, adminOnly},
	},
	ActionArchive: {
		schema.StatusPublished: {schema.StatusArchived, managerOrAdmin},
		schema.StatusExpired:   {schema.StatusArchived, managerOrAdmin},
		schema.StatusDraft:     {schema.StatusArchived, adminOnly},
		schema.StatusApproved:  {schema.StatusArchived, adminOnly},
	},
	ActionExpire: {
		schema.StatusApproved:  {schema.StatusExpired, systemOnly},
		schema.StatusPublished: {schema.StatusExpired, systemOnly},
	},
}

// Check validates a transition and returns the target status.
func Check(doc *schema.Document, action Action, actor Actor) (schema.Status, error) {
	edges, ok := table[action]
	if !ok {
		return "", &TransitionError{From: doc.Status, Role: actor.role(), Action: action, Reason: "unknown action"}
	}
	r, ok := edges[doc.Status]
	if !ok {
		return "", &TransitionError{From: doc.Status, Role: actor.role(), Action: action, Reason: "not permitted from this state"}
	}
	if !r.allowed(actor, doc) {
		return "", &TransitionError{From: doc.Status, Role: actor.role(), Action: action, Reason: "role may not perform this transition"}
	}
	return r.to, nil
}

// Apply checks and performs a transition in place, stamping the timestamps it implies.
func Apply(doc *schema.Document, action Action, actor Actor, now time.Time) (schema.Status, error) {
	to, err := Check(doc, action, actor)
	if err != nil {
		return "", err
	}

	from := doc.Status
	at := now
	switch action {
	case ActionSubmitReview:
		if from == schema.StatusExpired {
			doc.ExpiresAt = nil
		}
	case ActionApprove:
		doc.ApprovedAt = &at
		if actor.User != nil {
			doc.ApprovedByID = actor.User.ID
		}
	case ActionReject:
		doc.ApprovedAt = nil
		doc.ApprovedByID = ""
	case ActionPublish:
		doc.PublishedAt = &at
	case ActionArchive:
		doc.ArchivedAt = &at
	}

	doc.Status = to
	doc.UpdatedAt = now
	if actor.User != nil {
		doc.ModifiedByID = actor.User.ID
	}
	return from, nil
}

// Available lists the user actions the actor could take on doc right now.
func Available(doc *schema.Document, actor Actor) []Action {
	var out []Action
	for _, a := range UserActions {
		if _, err := Check(doc, a, actor); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// Terminal reports whether no transition leaves status.
func Terminal(status schema.Status) bool {
	for _, edges := range table {
		if _, ok := edges[status]; ok {
			return false
		}
	}
	return true
}

// CanEditMetadata reports whether user may change a document's metadata in
// its current status. Capability checks happen separately.
func CanEditMetadata(doc *schema.Document, user *schema.User) error {
	switch doc.Status {
	case schema.StatusDraft, schema.StatusUnderReview:
		return nil
	case schema.StatusApproved, schema.StatusPublished:
		if user.IsAdmin() {
			return nil
		}
	}
	role := "anonymous"
	if user != nil {
		role = string(user.Role)
	}
	return &TransitionError{From: doc.Status, Role: role, Action: "edit", Reason: "metadata is locked in this state"}
}

// CanDelete reports whether a document in its current status may be deleted by user.
func CanDelete(doc *schema.Document, user *schema.User) error {
	if doc.Status == schema.StatusArchived && !user.IsAdmin() {
		role := "anonymous"
		if user != nil {
			role = string(user.Role)
		}
		return &TransitionError{From: doc.Status, Role: role, Action: "delete", Reason: "archived documents may only be deleted by an admin"}
	}
	return nil
}
