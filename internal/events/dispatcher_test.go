package events_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/events"
)

var _ = Describe("Dispatcher", func() {
	var (
		dispatcher events.Dispatcher
		ctx        context.Context
	)

	BeforeEach(func() {
		dispatcher = events.NewInMemoryDispatcher()
		ctx = context.Background()
	})

	It("should deliver events only to handlers of the matching type", func() {
		var created, deleted int
		dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
			created++
			return nil
		})
		dispatcher.Subscribe(events.EventTicketDeleted, func(context.Context, events.Event) error {
			deleted++
			return nil
		})

		Expect(dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated})).To(Succeed())
		Expect(created).To(Equal(1))
		Expect(deleted).To(BeZero())
	})

	It("should stop delivering after unsubscribe", func() {
		calls := 0
		unsubscribe := dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
			calls++
			return nil
		})

		Expect(dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated})).To(Succeed())
		unsubscribe()
		unsubscribe()
		Expect(dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated})).To(Succeed())
		Expect(calls).To(Equal(1))
	})

	It("should run every handler and report failures", func() {
		boom := errors.New("boom")
		second := false
		dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
			return boom
		})
		dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
			second = true
			return nil
		})

		err := dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated})
		Expect(err).To(MatchError(boom))
		Expect(second).To(BeTrue())
	})
})
