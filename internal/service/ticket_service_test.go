package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/store"
	"github.com/spec-kit/ticketapp/pkg/util"
)

func newTicketService(t *testing.T, st store.Store) *TicketService {
	t.Helper()

	return NewTicketService(TicketDependencies{
		Store:      st,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
}

func openTicket(title string) TicketForm {
	return TicketForm{
		Title:    title,
		Status:   domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium,
	}
}

func TestCreateAndListScoped(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	created, err := svc.Create("u1", openTicket("Bug"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	mine := svc.List("u1")
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)
	assert.Equal(t, "u1", mine[0].UserID)

	assert.Empty(t, svc.List("u2"), "list must exclude other users' tickets")
}

func TestListPreservesStorageOrder(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		_, err := svc.Create("u1", openTicket(title))
		require.NoError(t, err)
	}

	listed := svc.List("u1")
	require.Len(t, listed, 3)
	for i, title := range titles {
		assert.Equal(t, title, listed[i].Title)
	}
}

func TestValidate(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	cases := []struct {
		name    string
		form    TicketForm
		field   string
		message string
	}{
		{
			name:    "blank title",
			form:    TicketForm{Title: "   ", Status: domain.TicketStatusOpen},
			field:   "title",
			message: "Title is required.",
		},
		{
			name:    "missing status",
			form:    TicketForm{Title: "Bug"},
			field:   "status",
			message: "Status is required.",
		},
		{
			name:    "unknown status",
			form:    TicketForm{Title: "Bug", Status: "reopened"},
			field:   "status",
			message: "Status must be 'open', 'in_progress', or 'closed'.",
		},
		{
			name:    "oversized description",
			form:    TicketForm{Title: "Bug", Status: domain.TicketStatusOpen, Description: strings.Repeat("x", 501)},
			field:   "description",
			message: "Description must be less than 500 characters.",
		},
		{
			name:    "oversized multibyte description",
			form:    TicketForm{Title: "Bug", Status: domain.TicketStatusOpen, Description: strings.Repeat("日", 501)},
			field:   "description",
			message: "Description must be less than 500 characters.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := svc.Validate(tc.form)
			assert.Equal(t, tc.message, errs[tc.field])
		})
	}

	t.Run("valid form", func(t *testing.T) {
		form := TicketForm{
			Title:       "Bug",
			Description: strings.Repeat("x", 500),
			Status:      domain.TicketStatusInProgress,
		}
		assert.True(t, svc.Validate(form).Empty())
	})

	t.Run("multibyte description counts characters", func(t *testing.T) {
		// 300 characters but 900 UTF-8 bytes; the limit is on characters.
		form := TicketForm{
			Title:       "Bug",
			Description: strings.Repeat("日", 300),
			Status:      domain.TicketStatusOpen,
		}
		assert.True(t, svc.Validate(form).Empty())
	})
}

func TestCreateValidationDoesNotTouchStorage(t *testing.T) {
	st := store.NewMemory()
	svc := newTicketService(t, st)

	_, err := svc.Create("u1", TicketForm{Status: domain.TicketStatusOpen})
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, util.ToDomainError(err).Code)

	_, ok, getErr := st.Get(store.SlotTickets)
	require.NoError(t, getErr)
	assert.False(t, ok)
}

func TestCreateDefaultsPriority(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	created, err := svc.Create("u1", TicketForm{Title: "Bug", Status: domain.TicketStatusOpen})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, created.Priority)
}

func TestUpdateEditsInPlace(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	sibling, err := svc.Create("u1", openTicket("sibling"))
	require.NoError(t, err)
	target, err := svc.Create("u1", openTicket("target"))
	require.NoError(t, err)

	before := svc.List("u1")
	require.Len(t, before, 2)

	time.Sleep(10 * time.Millisecond)
	updated, err := svc.Update(target.ID, TicketForm{
		Title:       "renamed",
		Description: "now with details",
		Status:      domain.TicketStatusClosed,
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, target.ID, updated.ID)
	assert.Equal(t, "u1", updated.UserID)
	assert.True(t, updated.CreatedAt.Equal(target.CreatedAt), "update must preserve createdAt")
	assert.True(t, updated.UpdatedAt.After(target.UpdatedAt), "update must bump updatedAt")
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)

	after := svc.List("u1")
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0], "sibling tickets must be untouched")
	assert.Equal(t, sibling.ID, after[0].ID)
	assert.Equal(t, "renamed", after[1].Title)
}

func TestUpdateMissingTicket(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	_, err := svc.Update("nope", openTicket("Bug"))
	require.Error(t, err)
	assert.Equal(t, util.CodeNotFound, util.ToDomainError(err).Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	keep, err := svc.Create("u1", openTicket("keep"))
	require.NoError(t, err)
	drop, err := svc.Create("u1", openTicket("drop"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(drop.ID))
	listed := svc.List("u1")
	require.Len(t, listed, 1)
	assert.Equal(t, keep.ID, listed[0].ID)

	// Deleting an absent id is a no-op, not an error.
	require.NoError(t, svc.Delete(drop.ID))
	require.NoError(t, svc.Delete("never-existed"))
	assert.Len(t, svc.List("u1"), 1)
}

func TestDeleteAbsentIdEmitsNothing(t *testing.T) {
	st := store.NewMemory()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	svc := NewTicketService(TicketDependencies{
		Store:      st,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    metrics,
	})

	var deletions int
	dispatcher.Subscribe(events.EventTicketDeleted, func(ctx context.Context, e events.Event) error {
		deletions++
		return nil
	})

	created, err := svc.Create("u1", openTicket("keep"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete("never-existed"))
	assert.Equal(t, 0, deletions, "a no-op delete must not emit an event")
	assert.Equal(t, int64(0), metrics.OperationCount("tickets", "delete"))

	require.NoError(t, svc.Delete(created.ID))
	assert.Equal(t, 1, deletions)
	assert.Equal(t, int64(1), metrics.OperationCount("tickets", "delete"))
}

func TestStats(t *testing.T) {
	svc := newTicketService(t, store.NewMemory())

	forms := []TicketForm{
		{Title: "a", Status: domain.TicketStatusOpen},
		{Title: "b", Status: domain.TicketStatusOpen},
		{Title: "c", Status: domain.TicketStatusInProgress},
		{Title: "d", Status: domain.TicketStatusClosed},
	}
	for _, form := range forms {
		_, err := svc.Create("u1", form)
		require.NoError(t, err)
	}
	_, err := svc.Create("u2", openTicket("other user"))
	require.NoError(t, err)

	stats := svc.Stats("u1")
	assert.Equal(t, TicketStats{Total: 4, Open: 2, Resolved: 1}, stats)
}

func TestCorruptTicketsSlotTreatedAsEmpty(t *testing.T) {
	st := store.NewMemory()
	svc := newTicketService(t, st)

	require.NoError(t, st.Set(store.SlotTickets, "][ garbage"))
	assert.Empty(t, svc.List("u1"))

	created, err := svc.Create("u1", openTicket("fresh start"))
	require.NoError(t, err)

	listed := svc.List("u1")
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

// TestSignUpLoginCreateScenario walks the whole flow against one shared store.
func TestSignUpLoginCreateScenario(t *testing.T) {
	st := store.NewMemory()
	authSvc := newAuthService(t, st)
	ticketSvc := newTicketService(t, st)

	_, err := authSvc.SignUp(SignUpInput{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "password1",
		ConfirmPassword: "password1",
	})
	require.NoError(t, err)

	session, err := authSvc.LogIn("a@x.com", "password1")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)

	_, err = ticketSvc.Create(session.UserID, TicketForm{
		Title:    "Bug",
		Status:   domain.TicketStatusOpen,
		Priority: domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	listed := ticketSvc.List(session.UserID)
	require.Len(t, listed, 1)
	assert.Equal(t, "Bug", listed[0].Title)
	assert.Equal(t, session.UserID, listed[0].UserID)
	assert.Equal(t, domain.TicketPriorityHigh, listed[0].Priority)
}
