package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/policy"
	"github.com/complyx/complyx/internal/workflow"
	"github.com/complyx/complyx/pkg/schema"
)

// Transition applies a user-requested status change.
func (s *Service) Transition(ctx context.Context, c Caller, id string, action workflow.Action, comment string) (*schema.Document, error) {
	ctx, end := s.span(ctx, "document.transition", c,
		attribute.String("document.id", id),
		attribute.String("transition.action", string(action)),
	)
	defer end()

	doc, err := s.transition(ctx, c, id, action, comment)
	s.metrics.ObserveTransition(string(action), err)
	return doc, err
}

func (s *Service) transition(ctx context.Context, c Caller, id string, action workflow.Action, comment string) (*schema.Document, error) {
	if action == workflow.ActionExpire {
		return nil, &workflow.TransitionError{Action: action, Role: roleOf(c.User), Reason: "expiry is driven by the scheduler"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, grants, err := s.loadFor(c, id, schema.CapRead)
	if err != nil {
		return nil, err
	}
	caps, _ := policy.Effective(c.User, doc, grants, s.clock())

	from, err := workflow.Apply(doc, action, workflow.Actor{User: c.User, Caps: caps}, s.clock())
	if err != nil {
		var te *workflow.TransitionError
		if errors.As(err, &te) {
			s.logger.Debug("transition refused",
				zap.String("document_id", id),
				zap.String("action", string(action)),
				zap.String("reason", te.Reason),
			)
		}
		return nil, err
	}
	if err := s.store.PutDocument(doc); err != nil {
		return nil, err
	}

	details := map[string]string{"from": string(from), "to": string(doc.Status)}
	if comment != "" {
		details["comment"] = comment
	}
	if err := s.record(ctx, c, id, action.AuditAction(), details); err != nil {
		return nil, err
	}

	s.logger.Info("document transitioned",
		zap.String("document_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(doc.Status)),
		zap.String("by", c.User.ID),
	)
	return s.decorate(doc), nil
}

// ExpireDue moves every approved or published document whose expiry has
// elapsed to expired, on behalf of the system actor. It returns how many
// documents were expired.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	ctx, end := s.span(ctx, "document.expire_due", Caller{})
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.store.ListDocuments()
	if err != nil {
		return 0, err
	}

	now := s.clock()
	expired := 0
	var errs []error
	for i := range docs {
		doc := &docs[i]
		if !doc.IsExpiredAt(now) {
			continue
		}
		if _, err := workflow.Check(doc, workflow.ActionExpire, workflow.SystemActor); err != nil {
			continue
		}

		from, _ := workflow.Apply(doc, workflow.ActionExpire, workflow.SystemActor, now)
		doc.ModifiedByID = schema.SystemActor
		if err := s.store.PutDocument(doc); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.record(ctx, Caller{}, doc.ID, schema.ActionExpire, map[string]any{
			"from":       from,
			"to":         doc.Status,
			"expires_at": doc.ExpiresAt,
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		s.metrics.ObserveTransition(string(workflow.ActionExpire), nil)
		expired++
	}

	if expired > 0 {
		s.logger.Info("documents expired", zap.Int("count", expired))
	}
	return expired, errors.Join(errs...)
}

func roleOf(u *schema.User) string {
	if u == nil {
		return "anonymous"
	}
	return string(u.Role)
}
