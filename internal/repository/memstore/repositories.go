package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
)

type userRepository struct{ run runner }

func (r *userRepository) Create(_ context.Context, user *domain.UserProfile) error {
	return r.run(func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return repository.ErrDuplicate
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, user *domain.UserProfile) error {
	return r.run(func(st *state) error {
		if _, ok := st.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	var out domain.UserProfile
	err := r.run(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	var out domain.UserProfile
	err := r.run(func(st *state) error {
		for _, user := range st.users {
			if strings.EqualFold(user.Email, email) {
				out = user
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type departmentRepository struct{ run runner }

func (r *departmentRepository) GetByCode(_ context.Context, code domain.DepartmentCode) (*domain.Department, error) {
	var out domain.Department
	err := r.run(func(st *state) error {
		dept, ok := st.departments[code]
		if !ok {
			return repository.ErrNotFound
		}
		out = dept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *departmentRepository) List(_ context.Context) ([]domain.Department, error) {
	var out []domain.Department
	err := r.run(func(st *state) error {
		for _, dept := range st.departments {
			out = append(out, dept)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

type ticketRepository struct{ run runner }

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(st *state) error {
		if _, ok := st.tickets[ticket.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, existing := range st.tickets {
			if existing.Code == ticket.Code {
				return repository.ErrDuplicate
			}
		}
		ticket.UpdatedAt = ticket.CreatedAt
		st.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(st *state) error {
		existing, ok := st.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := *ticket
		updated.Code = existing.Code
		updated.Type = existing.Type
		updated.DepartmentCode = existing.DepartmentCode
		updated.CreatedBy = existing.CreatedBy
		updated.CreatedAt = existing.CreatedAt
		st.tickets[ticket.ID] = updated
		return nil
	})
}

func (r *ticketRepository) Delete(_ context.Context, id string) error {
	return r.run(func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.tickets, id)
		delete(st.sla, id)
		for key, attachment := range st.attachments {
			if attachment.TicketID == id {
				delete(st.attachments, key)
			}
		}
		events := st.events[:0:0]
		for _, event := range st.events {
			if event.TicketID != id {
				events = append(events, event)
			}
		}
		st.events = events
		quotes := st.quotes[:0:0]
		for _, quote := range st.quotes {
			if quote.TicketID != id {
				quotes = append(quotes, quote)
			}
		}
		st.quotes = quotes
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out domain.Ticket
	err := r.run(func(st *state) error {
		ticket, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByIDForUpdate is GetByID: WithinTx already holds the store lock.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	var out domain.Ticket
	err := r.run(func(st *state) error {
		for _, ticket := range st.tickets {
			if ticket.Code == code {
				out = ticket
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var matched []domain.Ticket
	err := r.run(func(st *state) error {
		for _, ticket := range st.tickets {
			if matchesTicket(ticket, filter) {
				matched = append(matched, ticket)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Code > matched[j].Code
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func matchesTicket(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.DepartmentCode != nil && ticket.DepartmentCode != *filter.DepartmentCode {
		return false
	}
	if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
		return false
	}
	if filter.AssignedTo != nil && !ticket.IsAssignedTo(*filter.AssignedTo) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Types) > 0 && !containsType(filter.Types, ticket.Type) {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && !ticket.CreatedAt.Before(*filter.CreatedTo) {
		return false
	}
	if filter.VisibleToUser != nil {
		user := *filter.VisibleToUser
		visible := ticket.CreatedBy == user || ticket.IsAssignedTo(user)
		if !visible && filter.VisibleDepartment != nil {
			visible = ticket.DepartmentCode == *filter.VisibleDepartment
		}
		if !visible {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsType(list []domain.TicketType, v domain.TicketType) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type eventRepository struct{ run runner }

func (r *eventRepository) Create(_ context.Context, event *domain.TicketEvent) error {
	return r.run(func(st *state) error {
		for _, existing := range st.events {
			if existing.ID == event.ID {
				return repository.ErrDuplicate
			}
		}
		st.events = append(st.events, *event)
		return nil
	})
}

func (r *eventRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketEvent, error) {
	var out []domain.TicketEvent
	err := r.run(func(st *state) error {
		for _, event := range st.events {
			if event.TicketID == ticketID {
				out = append(out, event)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *eventRepository) ListResponses(_ context.Context, filter repository.ResponseFilter) ([]repository.ResponseSample, error) {
	var out []repository.ResponseSample
	err := r.run(func(st *state) error {
		for _, event := range st.events {
			if event.ResponseTimeSeconds == nil || event.ResponseDirection == nil {
				continue
			}
			if !inWindow(event.CreatedAt, filter.From, filter.To) {
				continue
			}
			ticket, ok := st.tickets[event.TicketID]
			if !ok {
				continue
			}
			if filter.AuthorID != nil && event.AuthorID != *filter.AuthorID {
				continue
			}
			if filter.DepartmentCode != nil && ticket.DepartmentCode != *filter.DepartmentCode {
				continue
			}
			if filter.TicketID != nil && event.TicketID != *filter.TicketID {
				continue
			}
			if filter.Direction != nil && *event.ResponseDirection != *filter.Direction {
				continue
			}
			out = append(out, repository.ResponseSample{
				EventID:        event.ID,
				TicketID:       event.TicketID,
				AuthorID:       event.AuthorID,
				DepartmentCode: ticket.DepartmentCode,
				Direction:      *event.ResponseDirection,
				Seconds:        *event.ResponseTimeSeconds,
				CreatedAt:      event.CreatedAt,
			})
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

type slaRepository struct{ run runner }

func (r *slaRepository) Create(_ context.Context, record *domain.SLARecord) error {
	return r.run(func(st *state) error {
		if _, ok := st.sla[record.TicketID]; ok {
			return repository.ErrDuplicate
		}
		st.sla[record.TicketID] = *record
		return nil
	})
}

func (r *slaRepository) Update(_ context.Context, record *domain.SLARecord) error {
	return r.run(func(st *state) error {
		if _, ok := st.sla[record.TicketID]; !ok {
			return repository.ErrNotFound
		}
		st.sla[record.TicketID] = *record
		return nil
	})
}

func (r *slaRepository) GetByTicket(_ context.Context, ticketID string) (*domain.SLARecord, error) {
	var out domain.SLARecord
	err := r.run(func(st *state) error {
		record, ok := st.sla[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		out = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *slaRepository) ListByTickets(_ context.Context, ticketIDs []string) (map[string]domain.SLARecord, error) {
	out := make(map[string]domain.SLARecord, len(ticketIDs))
	err := r.run(func(st *state) error {
		for _, id := range ticketIDs {
			if record, ok := st.sla[id]; ok {
				out[id] = record
			}
		}
		return nil
	})
	return out, err
}

type sequenceRepository struct{ run runner }

func (r *sequenceRepository) Next(_ context.Context, ticketType domain.TicketType, dept domain.DepartmentCode, day time.Time) (int, error) {
	key := sequenceKey{ticketType: ticketType, dept: dept, day: day.Format("2006-01-02")}
	var next int
	err := r.run(func(st *state) error {
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return next, err
}

type attachmentRepository struct{ run runner }

func (r *attachmentRepository) Create(_ context.Context, attachment *domain.Attachment) error {
	return r.run(func(st *state) error {
		if _, ok := st.tickets[attachment.TicketID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := st.attachments[attachment.ID]; ok {
			return repository.ErrDuplicate
		}
		st.attachments[attachment.ID] = *attachment
		return nil
	})
}

func (r *attachmentRepository) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	var out domain.Attachment
	err := r.run(func(st *state) error {
		attachment, ok := st.attachments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = attachment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *attachmentRepository) Delete(_ context.Context, id string) error {
	return r.run(func(st *state) error {
		if _, ok := st.attachments[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.attachments, id)
		return nil
	})
}

func (r *attachmentRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := r.run(func(st *state) error {
		for _, attachment := range st.attachments {
			if attachment.TicketID == ticketID {
				out = append(out, attachment)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type quoteRepository struct{ run runner }

func (r *quoteRepository) Create(_ context.Context, quote *domain.Quote) error {
	return r.run(func(st *state) error {
		st.quotes = append(st.quotes, *quote)
		return nil
	})
}

func (r *quoteRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Quote, error) {
	var out []domain.Quote
	err := r.run(func(st *state) error {
		for _, quote := range st.quotes {
			if quote.TicketID == ticketID {
				out = append(out, quote)
			}
		}
		return nil
	})
	return out, err
}

// auditRepository only appends. Entries are copied in and out so callers
// cannot alter stored snapshots.
type auditRepository struct{ run runner }

func (r *auditRepository) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	stored := *entry
	stored.Before = append([]byte(nil), entry.Before...)
	stored.After = append([]byte(nil), entry.After...)
	return r.run(func(st *state) error {
		st.audit = append(st.audit, stored)
		return nil
	})
}

func (r *auditRepository) ListByRecord(_ context.Context, tableName, recordID string) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	err := r.run(func(st *state) error {
		for _, entry := range st.audit {
			if entry.TableName == tableName && entry.RecordID == recordID {
				copied := entry
				copied.Before = append([]byte(nil), entry.Before...)
				copied.After = append([]byte(nil), entry.After...)
				out = append(out, copied)
			}
		}
		return nil
	})
	return out, err
}
