package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/planrelay/configs"
	"github.com/navid-fn/planrelay/internal/crm"
	"github.com/navid-fn/planrelay/internal/events"
	"github.com/navid-fn/planrelay/internal/model"
	"github.com/navid-fn/planrelay/internal/requestid"
)

// ContactStore is the part of the CRM the relay uses. *crm.Client implements it.
type ContactStore interface {
	Credentials() crm.Credentials
	SearchContacts(ctx context.Context, query string) ([]crm.Contact, error)
	CreateContact(ctx context.Context, input crm.ContactInput) (*crm.Contact, error)
	UpdateContact(ctx context.Context, contactID string, input crm.ContactInput) (*crm.Contact, error)
	AddTags(ctx context.Context, contactID string, tags []string) error
	RemoveTags(ctx context.Context, contactID string, tags []string) error
	ListCustomFields(ctx context.Context) ([]crm.CustomField, error)
}

type Options struct {
	// Tag marks plan delivery on the contact.
	Tag string

	// RefreshTag removes Tag before adding it again.
	RefreshTag bool

	// FieldMode is configs.FieldModeID or configs.FieldModeKey.
	FieldMode string
}

// Delivery is the outcome of a submission.
type Delivery struct {
	ContactID  string `json:"contact_id"`
	Created    bool   `json:"created"`
	TagRemoved bool   `json:"tag_removed"`
	TagAdded   bool   `json:"tag_added"`
}

type PlanService struct {
	store     ContactStore
	fields    *FieldCache
	publisher events.Publisher
	opts      Options
	logger    *logrus.Logger
}

func NewPlanService(store ContactStore, publisher events.Publisher, opts Options, logger *logrus.Logger) *PlanService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if opts.FieldMode == "" {
		opts.FieldMode = configs.FieldModeID
	}
	return &PlanService{
		store:     store,
		fields:    NewFieldCache(store.ListCustomFields),
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Submit validates the submission, upserts the submitter as a contact and
// tags it. Steps run in order and the first fatal failure ends the
// submission as a *StepError; nothing is retried. When the failure happens
// after the contact was written, the returned Delivery carries its id.
//
// Two concurrent submissions for the same new email can both miss the lookup
// and both create a contact. The CRM call used here has no upsert-by-email,
// so this is not guarded against.
func (s *PlanService) Submit(ctx context.Context, sub model.PlanSubmission) (*Delivery, error) {
	sub = sub.Normalize()
	log := s.logger.WithFields(logrus.Fields{
		"request_id": requestid.From(ctx),
		"email":      sub.Email,
	})

	if err := sub.Validate(); err != nil {
		log.Warn("rejecting submission without identity")
		return nil, NewStepError(StepValidate, CodeMissingIdentity, err)
	}

	for _, d := range sub.Dropped() {
		log.WithFields(logrus.Fields{"field": d.Key, "value": d.Value}).Warn("dropping unusable plan parameter")
	}

	if err := s.store.Credentials().Validate(); err != nil {
		log.WithError(err).Error("crm credentials are not configured")
		return nil, NewStepError(StepConfig, CodeMissingConfiguration, err)
	}

	delivery, err := s.deliver(ctx, sub, log)
	s.publish(ctx, sub, delivery, err, log)
	if err != nil {
		return delivery, err
	}

	log.WithFields(logrus.Fields{
		"contact_id":  delivery.ContactID,
		"created":     delivery.Created,
		"tag_removed": delivery.TagRemoved,
	}).Info("plan delivered")
	return delivery, nil
}

func (s *PlanService) deliver(ctx context.Context, sub model.PlanSubmission, log *logrus.Entry) (*Delivery, error) {
	existing, err := s.findContact(ctx, sub.Email)
	if err != nil {
		logUpstream(log, StepLookup, err)
		return nil, NewStepError(StepLookup, CodeLookupFailed, err)
	}

	fields, err := s.customFields(ctx, sub.PlanParameters, log)
	if err != nil {
		logUpstream(log, StepCustomFields, err)
		return nil, NewStepError(StepCustomFields, CodeFieldSchemaFailed, err)
	}

	input := crm.ContactInput{
		Name:         sub.FullName,
		Email:        sub.Email,
		CustomFields: fields,
	}

	delivery := &Delivery{}
	if existing != nil {
		log.WithField("contact_id", existing.ID).Debug("updating existing contact")
		updated, err := s.store.UpdateContact(ctx, existing.ID, input)
		if err != nil {
			logUpstream(log, StepUpsert, err)
			return nil, NewStepError(StepUpsert, CodeUpdateFailed, err)
		}
		delivery.ContactID = existing.ID
		if updated != nil && updated.ID != "" {
			delivery.ContactID = updated.ID
		}
	} else {
		log.Debug("creating contact")
		created, err := s.store.CreateContact(ctx, input)
		if err != nil {
			logUpstream(log, StepUpsert, err)
			return nil, NewStepError(StepUpsert, CodeCreateFailed, err)
		}
		delivery.Created = true
		if created != nil {
			delivery.ContactID = created.ID
		}
	}

	if delivery.ContactID == "" {
		log.Error("crm response carried no contact id")
		return delivery, NewStepError(StepUpsert, CodeContactUnresolved, ErrContactUnresolved)
	}
	log = log.WithField("contact_id", delivery.ContactID)

	tags := []string{s.opts.Tag}
	if s.opts.RefreshTag {
		if err := s.store.RemoveTags(ctx, delivery.ContactID, tags); err != nil {
			logUpstream(log.WithField("code", CodeTagRemoveFailed), StepTagRemove, err)
		} else {
			delivery.TagRemoved = true
		}
	}

	if err := s.store.AddTags(ctx, delivery.ContactID, tags); err != nil {
		logUpstream(log, StepTagAdd, err)
		return delivery, NewStepError(StepTagAdd, CodeTagAddFailed, err)
	}
	delivery.TagAdded = true

	return delivery, nil
}

// findContact returns the contact whose email equals email ignoring case, or
// nil. The CRM search is fuzzy, so near-matches are discarded here.
func (s *PlanService) findContact(ctx context.Context, email string) (*crm.Contact, error) {
	contacts, err := s.store.SearchContacts(ctx, email)
	if err != nil {
		return nil, err
	}
	return matchContact(contacts, email), nil
}

func matchContact(contacts []crm.Contact, email string) *crm.Contact {
	want := normalizeEmail(email)
	if want == "" {
		return nil
	}
	for i := range contacts {
		if contacts[i].ID != "" && normalizeEmail(contacts[i].Email) == want {
			return &contacts[i]
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *PlanService) customFields(ctx context.Context, params model.PlanParameters, log *logrus.Entry) ([]crm.CustomFieldValue, error) {
	values := params.FieldValues()
	if len(values) == 0 {
		return nil, nil
	}

	out := make([]crm.CustomFieldValue, 0, len(values))
	if s.opts.FieldMode == configs.FieldModeKey {
		for _, v := range values {
			out = append(out, crm.CustomFieldValue{Key: v.Key, Value: v.Value})
		}
		return out, nil
	}

	ids, err := s.fields.GetOrFetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		id, ok := ids[v.Key]
		if !ok {
			log.WithField("field", v.Key).Warn("custom field not found in crm schema, skipping")
			continue
		}
		out = append(out, crm.CustomFieldValue{ID: id, Value: v.Value})
	}
	return out, nil
}

func (s *PlanService) publish(ctx context.Context, sub model.PlanSubmission, delivery *Delivery, err error, log *logrus.Entry) {
	event := events.NewPlanDelivery(requestid.From(ctx), sub.Email)
	if delivery != nil {
		event.ContactID = delivery.ContactID
		event.Created = delivery.Created
		event.TagRemoved = delivery.TagRemoved
	}
	if err != nil {
		event.Error = err.Error()
		if stepErr, ok := AsStepError(err); ok {
			event.Step = string(stepErr.Step)
		}
	} else {
		event.Delivered = true
	}

	if perr := s.publisher.Publish(ctx, event); perr != nil {
		log.WithError(perr).Warn("failed to publish delivery event")
	}
}

// logUpstream logs a failed CRM call with the upstream status and body when
// the CRM answered at all.
func logUpstream(log *logrus.Entry, step Step, err error) {
	entry := log.WithField("step", step).WithError(err)
	if apiErr, ok := crm.AsAPIError(err); ok {
		entry = entry.WithFields(logrus.Fields{
			"status": apiErr.StatusCode,
			"body":   string(apiErr.Body),
		})
	}
	if step == StepTagRemove {
		entry.Warn("crm call failed")
		return
	}
	entry.Error("crm call failed")
}
