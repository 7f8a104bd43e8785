package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/leadintake/internal/events"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// LeadNotifierConsumer is the ledger name used to dedupe redelivered events.
const LeadNotifierConsumer = "lead_notifier"

// LeadNotifier handles lead.created.v1 outbox entries by emailing the sales inbox.
type LeadNotifier struct {
	email  EmailSender
	ledger events.DeliveryLedger
	to     string
	logger *logging.Logger
}

// NewLeadNotifier returns a notifier. An empty recipient disables emails but
// events are still acknowledged.
func NewLeadNotifier(email EmailSender, ledger events.DeliveryLedger, to string, logger *logging.Logger) *LeadNotifier {
	if ledger == nil {
		ledger = events.NewMemoryLedger()
	}
	return &LeadNotifier{
		email:  email,
		ledger: ledger,
		to:     strings.TrimSpace(to),
		logger: logger.Component("lead_notifier"),
	}
}

// Handle implements events.DeliveryHandler. Unknown event types are acknowledged.
func (n *LeadNotifier) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if entry.Type != events.EventLeadCreated {
		return nil
	}
	var evt events.LeadCreatedV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		n.logger.Error("dropping malformed lead event", "error", err, "event_id", entry.ID)
		return nil
	}
	if evt.EventID == "" {
		evt.EventID = entry.ID.String()
	}
	if n.email == nil || n.to == "" {
		n.logger.Debug("sales notification disabled", "lead_id", evt.LeadID)
		return nil
	}

	first, err := n.ledger.Claim(ctx, LeadNotifierConsumer, evt.EventID)
	if err != nil {
		return fmt.Errorf("notify: claim event: %w", err)
	}
	if !first {
		n.logger.Info("lead notification already sent", "event_id", evt.EventID, "lead_id", evt.LeadID)
		return nil
	}

	msg, err := leadEmail(n.to, evt)
	if err != nil {
		_ = n.ledger.Release(ctx, LeadNotifierConsumer, evt.EventID)
		return err
	}
	if err := n.email.Send(ctx, msg); err != nil {
		if rerr := n.ledger.Release(ctx, LeadNotifierConsumer, evt.EventID); rerr != nil {
			n.logger.Error("failed to release notification claim", "error", rerr, "event_id", evt.EventID)
		}
		return fmt.Errorf("notify: send lead email: %w", err)
	}
	n.logger.Info("sales team notified", "lead_id", evt.LeadID, "correlation_id", evt.CorrelationID)
	return nil
}

var leadEmailHTML = template.Must(template.New("lead").Parse(`<h2>New {{.Qualification}} lead from {{.Source}}</h2>
<table>
{{range .Rows}}<tr><th align="left">{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{with .Message}}<p>{{.}}</p>{{end}}`))

type emailRow struct {
	Label string
	Value string
}

func leadEmail(to string, evt events.LeadCreatedV1) (EmailMessage, error) {
	who := evt.Name
	if who == "" {
		who = firstNonEmpty(evt.Email, evt.Phone, "Unknown")
	}

	rows := []emailRow{
		{"Name", evt.Name},
		{"Email", evt.Email},
		{"Phone", evt.Phone},
		{"Lead source", evt.LeadSource},
		{"Score", fmt.Sprintf("%d (%s, %s priority)", evt.Score, evt.Qualification, evt.Priority)},
		{"Received", evt.CreatedAt.UTC().Format(time.RFC1123)},
		{"Lead ID", evt.LeadID},
	}
	keys := make([]string, 0, len(evt.Raw))
	for k := range evt.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, emailRow{k, fmt.Sprint(evt.Raw[k])})
	}

	var text strings.Builder
	fmt.Fprintf(&text, "New lead from %s\n\n", evt.Source)
	for _, r := range rows {
		if r.Value != "" {
			fmt.Fprintf(&text, "%s: %s\n", r.Label, r.Value)
		}
	}
	if evt.Message != "" {
		fmt.Fprintf(&text, "\n%s\n", evt.Message)
	}

	var html strings.Builder
	err := leadEmailHTML.Execute(&html, struct {
		Source        string
		Qualification string
		Message       string
		Rows          []emailRow
	}{evt.Source, evt.Qualification, evt.Message, rows})
	if err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render lead email: %w", err)
	}

	return EmailMessage{
		To:      to,
		ReplyTo: evt.Email,
		Subject: fmt.Sprintf("[%s] New lead: %s (%s)", evt.Qualification, who, evt.Source),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
