package auth

import (
	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// Operation is an action checked by the PermissionEngine.
type Operation string

const (
	OpTicketCreate     Operation = "ticket.create"
	OpTicketView       Operation = "ticket.view"
	OpTicketUpdate     Operation = "ticket.update"
	OpTicketDelete     Operation = "ticket.delete"
	OpTicketAssign     Operation = "ticket.assign"
	OpTicketComment    Operation = "ticket.comment"
	OpQuoteCreate      Operation = "quote.create"
	OpAttachmentUpload Operation = "attachment.upload"
	OpAttachmentDelete Operation = "attachment.delete"
	OpUserManage       Operation = "user.manage"
	OpAuditView        Operation = "audit.view"
)

var requiredCapability = map[Operation]Capability{
	OpTicketCreate:     CapTicketCreate,
	OpTicketView:       CapTicketView,
	OpTicketUpdate:     CapTicketUpdate,
	OpTicketDelete:     CapTicketDelete,
	OpTicketAssign:     CapTicketAssign,
	OpTicketComment:    CapTicketView,
	OpQuoteCreate:      CapQuoteCreate,
	OpAttachmentUpload: CapAttachmentUpload,
	OpAttachmentDelete: CapAttachmentDelete,
	OpUserManage:       CapUsersManage,
	OpAuditView:        CapTicketView,
}

// Resource is the object an operation targets. Only the field relevant to
// the operation needs to be set.
type Resource struct {
	Ticket     *domain.Ticket
	Attachment *domain.Attachment
	User       *domain.UserProfile
}

// TicketResource wraps a ticket.
func TicketResource(t *domain.Ticket) Resource { return Resource{Ticket: t} }

// AttachmentResource wraps an attachment together with its ticket.
func AttachmentResource(t *domain.Ticket, a *domain.Attachment) Resource {
	return Resource{Ticket: t, Attachment: a}
}

// UserResource wraps a user profile.
func UserResource(u *domain.UserProfile) Resource { return Resource{User: u} }

// PermissionEngine makes every authorization decision. It has no side effects.
type PermissionEngine struct {
	catalog *RoleCatalog
}

// NewPermissionEngine constructs the engine.
func NewPermissionEngine(catalog *RoleCatalog) *PermissionEngine {
	if catalog == nil {
		catalog = NewRoleCatalog()
	}
	return &PermissionEngine{catalog: catalog}
}

// Catalog exposes the role registry.
func (e *PermissionEngine) Catalog() *RoleCatalog {
	return e.catalog
}

// CanPerform decides whether actor may run op against res.
func (e *PermissionEngine) CanPerform(actor domain.Actor, op Operation, res Resource) bool {
	if !actor.IsActive || actor.ID == "" {
		return false
	}
	class, ok := e.catalog.Classification(actor.Role)
	if !ok {
		return false
	}
	if class == domain.ClassificationAdmin {
		return true
	}
	capability, known := requiredCapability[op]
	if !known || !e.catalog.HasCapability(actor.Role, capability) {
		return false
	}

	switch op {
	case OpTicketCreate:
		return true
	case OpTicketView, OpTicketComment, OpAuditView:
		return e.canViewTicket(actor, class, res.Ticket)
	case OpTicketUpdate:
		return e.canUpdateTicket(actor, class, res.Ticket)
	case OpTicketDelete:
		if !e.canUpdateTicket(actor, class, res.Ticket) {
			return false
		}
		if class == domain.ClassificationStaff {
			return res.Ticket.CreatedBy == actor.ID
		}
		return true
	case OpTicketAssign, OpQuoteCreate:
		return class == domain.ClassificationManager && e.canViewTicket(actor, class, res.Ticket)
	case OpAttachmentUpload:
		return e.canViewTicket(actor, class, res.Ticket)
	case OpAttachmentDelete:
		return res.Attachment != nil && res.Attachment.UploadedBy == actor.ID
	case OpUserManage:
		return false
	}
	return false
}

func (e *PermissionEngine) canViewTicket(actor domain.Actor, class domain.Classification, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	if ticket.CreatedBy == actor.ID || ticket.IsAssignedTo(actor.ID) {
		return true
	}
	return class == domain.ClassificationManager && actor.InDepartment(ticket.DepartmentCode)
}

func (e *PermissionEngine) canUpdateTicket(actor domain.Actor, class domain.Classification, ticket *domain.Ticket) bool {
	if ticket == nil || ticket.IsClosed() {
		return false
	}
	return e.canViewTicket(actor, class, ticket)
}
