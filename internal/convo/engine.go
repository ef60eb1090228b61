package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cliniccall/cliniccall-ai/internal/directory"
	"github.com/cliniccall/cliniccall-ai/internal/intent"
	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/internal/notify"
	"github.com/cliniccall/cliniccall-ai/internal/observability/metrics"
	"github.com/cliniccall/cliniccall-ai/internal/patients"
	"github.com/cliniccall/cliniccall-ai/internal/triage"
	"github.com/cliniccall/cliniccall-ai/internal/urgent"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

var engineTracer = otel.Tracer("cliniccall.internal.convo")

const (
	maxProviderChoices = 3
	maxSlotChoices     = 5

	urgentReply = "Your message may describe a medical emergency. If this is life-threatening, call 911 or go to the nearest emergency room now. I've alerted our clinical team and someone will follow up with you as soon as possible."

	handoffReply = "I can't change existing appointments from chat yet. Please call the clinic front desk and they'll take care of it right away."
)

// Notifier sends booking confirmations. Satisfied by notify.Service.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, c notify.BookingConfirmation) error
}

// Reply is the assistant's answer for one turn.
type Reply struct {
	ConversationID string        `json:"conversation_id"`
	Stage          Stage         `json:"stage"`
	Message        string        `json:"message"`
	Intent         intent.Intent `json:"intent,omitempty"`
	Department     string        `json:"department,omitempty"`
	Urgent         bool          `json:"urgent,omitempty"`
	UrgentCaseID   string        `json:"urgent_case_id,omitempty"`
	AppointmentID  string        `json:"appointment_id,omitempty"`

	// Candidate lists echoed when the assistant is asking for a numbered
	// choice, so non-chat clients can render them structurally.
	// Generation identifies the version of the list; it changes whenever
	// the list is refreshed, so clients can discard a stale rendering.
	SuggestedProviders []directory.Provider `json:"suggested_providers,omitempty"`
	SuggestedSlots     []ledger.Slot        `json:"suggested_slots,omitempty"`
	Generation         int                  `json:"generation,omitempty"`
}

// PatientInfo carries contact details supplied out-of-band with a chat
// message, e.g. from an authenticated session or the voice agent.
type PatientInfo struct {
	Name  string
	Phone string
	Email string
}

// Engine drives the booking conversation across its stages.
type Engine struct {
	classifier intent.Classifier
	triager    triage.Service
	searcher   directory.Searcher
	ledger     *ledger.Ledger
	patients   patients.Repository
	urgent     *urgent.Store
	notifier   Notifier
	store      Store
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
}

// EngineDeps bundles the engine's collaborators.
type EngineDeps struct {
	Classifier intent.Classifier
	Triager    triage.Service
	Searcher   directory.Searcher
	Ledger     *ledger.Ledger
	Patients   patients.Repository
	Urgent     *urgent.Store
	Notifier   Notifier
	Store      Store
	Metrics    *metrics.ChatMetrics
}

// NewEngine wires up a conversation engine.
func NewEngine(deps EngineDeps, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		classifier: deps.Classifier,
		triager:    deps.Triager,
		searcher:   deps.Searcher,
		ledger:     deps.Ledger,
		patients:   deps.Patients,
		urgent:     deps.Urgent,
		notifier:   deps.Notifier,
		store:      deps.Store,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Handle processes one patient message and advances the conversation.
// An empty conversationID starts a new conversation.
func (e *Engine) Handle(ctx context.Context, conversationID, message string, info PatientInfo) (Reply, error) {
	start := time.Now()
	ctx, span := engineTracer.Start(ctx, "convo.handle")
	defer span.End()

	conv, err := e.loadOrCreate(ctx, conversationID)
	if err != nil {
		return Reply{}, err
	}
	span.SetAttributes(
		attribute.String("cliniccall.conversation_id", conv.ID),
		attribute.String("cliniccall.stage", string(conv.Stage)),
	)

	e.absorbPatientInfo(conv, message, info)

	reply := e.step(ctx, conv, message)

	conv.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("convo: save conversation: %w", err)
	}

	e.metrics.ObserveTurnLatency(string(reply.Stage), time.Since(start).Seconds())
	return reply, nil
}

func (e *Engine) loadOrCreate(ctx context.Context, id string) (*Conversation, error) {
	if id != "" {
		conv, err := e.store.Get(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrConversationNotFound) {
			return nil, fmt.Errorf("convo: load conversation: %w", err)
		}
	}
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		Stage:     StageStart,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// absorbPatientInfo records contact details from both the structured
// request and the free-text message. Once set, details are kept.
func (e *Engine) absorbPatientInfo(conv *Conversation, message string, info PatientInfo) {
	if info.Name != "" {
		conv.PatientName = info.Name
	}
	if info.Phone != "" {
		conv.PatientPhone = info.Phone
	}
	if info.Email != "" {
		conv.PatientEmail = info.Email
	}
	if conv.PatientPhone == "" {
		if phone, ok := extractPhone(message); ok {
			conv.PatientPhone = phone
		}
	}
	if conv.PatientEmail == "" {
		if email, ok := extractEmail(message); ok {
			conv.PatientEmail = email
		}
	}
}

func (e *Engine) step(ctx context.Context, conv *Conversation, message string) Reply {
	// Urgent symptoms preempt every stage, and URGENT is terminal.
	if conv.Stage == StageUrgent {
		return e.reply(conv, urgentReply, true)
	}
	if conv.Stage != StageStart && conv.Stage != StageCollectingSymptom {
		cls, err := e.classifier.Classify(ctx, message)
		if err != nil {
			e.logger.Error("convo: classification failed", "error", err)
		} else if cls.Intent == intent.IntentUrgent {
			return e.escalate(ctx, conv, message)
		}
	}

	switch conv.Stage {
	case StageBooked:
		// A booked conversation starts over on the next message.
		conv.resetBookingState()
		return e.stepStart(ctx, conv, message)
	case StageStart, StageCollectingSymptom:
		return e.stepStart(ctx, conv, message)
	case StageCollectingZip:
		return e.stepCollectZip(ctx, conv, message)
	case StageProviderSelection:
		return e.stepProviderSelection(ctx, conv, message)
	case StageSlotSelection:
		return e.stepSlotSelection(ctx, conv, message)
	case StageConfirmation:
		return e.stepConfirmation(ctx, conv, message)
	default:
		conv.resetBookingState()
		return e.stepStart(ctx, conv, message)
	}
}

func (e *Engine) stepStart(ctx context.Context, conv *Conversation, message string) Reply {
	cls, err := e.classifier.Classify(ctx, message)
	if err != nil {
		// Classifiers degrade internally; an error here means even the
		// fallback misfired, so treat the message as unclear.
		e.logger.Error("convo: classification failed", "error", err)
		cls = intent.Classification{Intent: intent.IntentUnknown}
	}

	switch cls.Intent {
	case intent.IntentUrgent:
		return e.escalate(ctx, conv, message)
	case intent.IntentReschedule, intent.IntentCancel:
		e.metrics.ObserveMessage(string(cls.Intent))
		conv.Stage = StageStart
		return e.reply(conv, handoffReply, false)
	case intent.IntentBook:
		e.metrics.ObserveMessage(string(intent.IntentBook))
		conv.Intent = intent.IntentBook
		if cls.Department != "" {
			conv.Department = cls.Department
			conv.Stage = StageCollectingZip
			return e.reply(conv, fmt.Sprintf("Got it, a %s appointment. What's your ZIP code so I can find providers near you?", conv.Department), false)
		}
		conv.Stage = StageCollectingSymptom
		return e.reply(conv, "I can help with that. Which kind of care do you need: "+strings.Join(intent.Departments, ", ")+"?", false)
	default:
		e.metrics.ObserveMessage(string(intent.IntentUnknown))
		if conv.Stage == StageCollectingSymptom {
			return e.reply(conv, "Sorry, I didn't catch that. Which department do you need: "+strings.Join(intent.Departments, ", ")+"?", false)
		}
		conv.Stage = StageStart
		return e.reply(conv, "I can help you book a medical appointment. Tell me what kind of care you need, for example \"I need a dermatology appointment\".", false)
	}
}

func (e *Engine) stepCollectZip(ctx context.Context, conv *Conversation, message string) Reply {
	zip, ok := extractZip(message)
	if !ok {
		return e.reply(conv, "Please share a 5-digit ZIP code so I can look for providers near you.", false)
	}
	conv.PostalCode = zip

	providers, match, err := e.searcher.Search(ctx, conv.Department, zip)
	if err != nil {
		e.logger.Error("convo: directory search failed", "error", err, "department", conv.Department)
	}
	if len(providers) == 0 {
		// Fall back to the in-house provider so the booking can proceed.
		if name := defaultProviderFor(conv.Department); name != "" {
			providers = []directory.Provider{{Name: name}}
			match = ""
		}
	}
	if len(providers) == 0 {
		return e.reply(conv, fmt.Sprintf("I couldn't find any %s providers near %s. Could you try a different ZIP code?", conv.Department, zip), false)
	}
	if len(providers) > maxProviderChoices {
		providers = providers[:maxProviderChoices]
	}

	conv.Providers = providers
	conv.ProviderMatch = match
	conv.Generation++
	conv.Stage = StageProviderSelection
	return e.reply(conv, providerPrompt(conv), false)
}

func (e *Engine) stepProviderSelection(ctx context.Context, conv *Conversation, message string) Reply {
	n, ok := extractOrdinal(message)
	if !ok || n < 1 || n > len(conv.Providers) {
		return e.reply(conv, fmt.Sprintf("Please pick a provider by number, 1 through %d.", len(conv.Providers)), false)
	}

	provider := conv.Providers[n-1]
	conv.SelectedProvider = provider.Name

	slots := e.ledger.SlotsForProvider(ctx, conv.Department, provider.Name, maxSlotChoices)
	if len(slots) == 0 {
		conv.SelectedProvider = ""
		conv.Generation++
		return e.reply(conv, fmt.Sprintf("%s has no open times right now. %s", provider.Name, providerPrompt(conv)), false)
	}

	conv.Slots = slots
	conv.Generation++
	conv.Stage = StageSlotSelection
	return e.reply(conv, slotPrompt(conv), false)
}

func (e *Engine) stepSlotSelection(_ context.Context, conv *Conversation, message string) Reply {
	n, ok := extractOrdinal(message)
	if !ok || n < 1 || n > len(conv.Slots) {
		return e.reply(conv, fmt.Sprintf("Please pick a time by number, 1 through %d.", len(conv.Slots)), false)
	}

	slot := conv.Slots[n-1]
	conv.PendingSlotID = slot.ID
	conv.Stage = StageConfirmation
	return e.reply(conv, fmt.Sprintf("You picked %s with %s. Shall I book it? (yes/no)", formatSlotTime(slot.StartTime), conv.SelectedProvider), false)
}

func (e *Engine) stepConfirmation(ctx context.Context, conv *Conversation, message string) Reply {
	if isNegative(message) {
		conv.PendingSlotID = ""
		conv.Stage = StageSlotSelection
		return e.reply(conv, "No problem. "+slotPrompt(conv), false)
	}

	// Either an explicit yes, or the follow-up turn that supplies the
	// contact details we asked for.
	wantsBook := isAffirmative(message) ||
		(conv.AwaitingContact && conv.PatientPhone != "" && conv.PatientName != "")
	if conv.AwaitingContact && conv.PatientName == "" {
		if name := nameFromMessage(message); name != "" {
			conv.PatientName = name
			wantsBook = conv.PatientPhone != ""
		}
	}
	if !wantsBook {
		return e.reply(conv, "Just to confirm: should I book that time? (yes/no)", false)
	}

	if conv.PatientPhone == "" || conv.PatientName == "" {
		conv.AwaitingContact = true
		return e.reply(conv, "Before I book, what's your full name and phone number?", false)
	}
	conv.AwaitingContact = false

	return e.book(ctx, conv)
}

func (e *Engine) book(ctx context.Context, conv *Conversation) Reply {
	patient, err := e.resolvePatient(ctx, conv)
	if err != nil {
		e.logger.Error("convo: patient resolution failed", "error", err)
		return e.reply(conv, "I couldn't save your details. Could you share your full name and phone number again?", false)
	}
	conv.PatientID = patient.ID

	reason := fmt.Sprintf("%s appointment via chat assistant", conv.Department)
	appt, err := e.ledger.Reserve(ctx, conv.PendingSlotID, patient.ID, reason)
	if err != nil {
		if errors.Is(err, ledger.ErrSlotAlreadyBooked) {
			return e.handleConflict(ctx, conv)
		}
		e.logger.Error("convo: reserve failed", "error", err, "slot_id", conv.PendingSlotID)
		conv.PendingSlotID = ""
		conv.Stage = StageSlotSelection
		return e.reply(conv, "Something went wrong booking that time. "+slotPrompt(conv), false)
	}

	slot, ok := conv.pendingSlot()
	if !ok {
		slot, _ = e.ledger.Slot(appt.SlotID)
	}

	conv.AppointmentID = appt.ID
	conv.PendingSlotID = ""
	conv.Stage = StageBooked
	e.metrics.ObserveBooking(conv.Department)

	if e.notifier != nil {
		// Confirmation delivery is best-effort; the booking stands
		// regardless.
		if err := e.notifier.SendBookingConfirmation(ctx, notify.BookingConfirmation{
			PatientName:  conv.PatientName,
			PatientEmail: conv.PatientEmail,
			Department:   conv.Department,
			Provider:     conv.SelectedProvider,
			StartTime:    slot.StartTime,
		}); err != nil {
			e.logger.Error("convo: booking confirmation failed", "error", err, "appointment_id", appt.ID)
		}
	}

	msg := fmt.Sprintf("You're all set! Your %s appointment with %s is booked for %s.", conv.Department, conv.SelectedProvider, formatSlotTime(slot.StartTime))
	if conv.PatientEmail != "" {
		msg += " A confirmation email is on its way."
	}
	r := e.reply(conv, msg, false)
	r.AppointmentID = appt.ID
	return r
}

// handleConflict refreshes the slot list after losing a race for a slot.
// The old ordinals are invalidated by bumping the generation.
func (e *Engine) handleConflict(ctx context.Context, conv *Conversation) Reply {
	e.metrics.ObserveReserveConflict()
	conv.PendingSlotID = ""
	conv.Slots = e.ledger.SlotsForProvider(ctx, conv.Department, conv.SelectedProvider, maxSlotChoices)
	conv.Generation++

	if len(conv.Slots) == 0 {
		conv.Stage = StageProviderSelection
		conv.Generation++
		return e.reply(conv, "Sorry, that time was just taken and "+conv.SelectedProvider+" has no other openings. "+providerPrompt(conv), false)
	}
	conv.Stage = StageSlotSelection
	return e.reply(conv, "Sorry, that time was just taken. "+slotPrompt(conv), false)
}

func (e *Engine) resolvePatient(ctx context.Context, conv *Conversation) (*patients.Patient, error) {
	if conv.PatientID != "" {
		if p, err := e.patients.GetByID(ctx, conv.PatientID); err == nil {
			return p, nil
		}
	}
	if p, err := e.patients.GetByPhone(ctx, conv.PatientPhone); err == nil {
		return p, nil
	} else if !errors.Is(err, patients.ErrPatientNotFound) {
		return nil, err
	}
	return e.patients.Create(ctx, &patients.CreatePatientRequest{
		Name:  conv.PatientName,
		Phone: conv.PatientPhone,
		Email: conv.PatientEmail,
	})
}

func (e *Engine) escalate(ctx context.Context, conv *Conversation, message string) Reply {
	res, err := e.triager.Triage(ctx, message)
	if err != nil {
		e.logger.Error("convo: triage failed", "error", err)
		res = triage.FallbackTriage(message)
	}
	c := e.urgent.Create(ctx, conv.PatientID, res, message)
	conv.UrgentCaseID = c.ID
	conv.Stage = StageUrgent
	e.metrics.ObserveMessage(string(intent.IntentUrgent))
	e.logger.Warn("convo: conversation escalated",
		"conversation_id", conv.ID,
		"urgent_case_id", c.ID,
		"severity", string(res.Severity),
	)
	return e.reply(conv, urgentReply, true)
}

func (e *Engine) reply(conv *Conversation, message string, urgentFlag bool) Reply {
	r := Reply{
		ConversationID: conv.ID,
		Stage:          conv.Stage,
		Message:        message,
		Intent:         conv.Intent,
		Department:     conv.Department,
		Urgent:         urgentFlag,
		UrgentCaseID:   conv.UrgentCaseID,
	}
	switch conv.Stage {
	case StageProviderSelection:
		r.SuggestedProviders = conv.Providers
		r.Generation = conv.Generation
	case StageSlotSelection:
		r.SuggestedSlots = conv.Slots
		r.Generation = conv.Generation
	}
	return r
}

func providerPrompt(conv *Conversation) string {
	var b strings.Builder
	switch conv.ProviderMatch {
	case directory.MatchNearby:
		fmt.Fprintf(&b, "I didn't find %s providers in %s itself, but here are some nearby:\n", conv.Department, conv.PostalCode)
	case directory.MatchBroader:
		fmt.Fprintf(&b, "Here are providers in your area:\n")
	default:
		fmt.Fprintf(&b, "Here are %s providers near %s:\n", conv.Department, conv.PostalCode)
	}
	for i, p := range conv.Providers {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		if p.City != "" {
			fmt.Fprintf(&b, " (%s, %s)", p.City, p.State)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Which one would you like? Reply with a number.")
	return b.String()
}

func slotPrompt(conv *Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the next openings with %s:\n", conv.SelectedProvider)
	for i, s := range conv.Slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatSlotTime(s.StartTime))
	}
	b.WriteString("Which time works? Reply with a number.")
	return b.String()
}

func formatSlotTime(t time.Time) string {
	return t.Format("Monday, January 2 at 3:04 PM")
}

// nameFromMessage strips contact details and punctuation from a
// free-text reply, leaving what should be the patient's name.
func nameFromMessage(message string) string {
	s := phonePattern.ReplaceAllString(message, "")
	s = emailPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, " ,.;:-")
	for _, prefix := range []string{"my name is ", "i'm ", "i am ", "this is ", "it's "} {
		if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimSpace(s)
	if s == "" || isAffirmative(s) {
		return ""
	}
	return s
}

func defaultProviderFor(department string) string {
	for _, dp := range ledger.DefaultProviders {
		if strings.EqualFold(dp.Department, department) {
			return dp.Provider
		}
	}
	return ""
}
