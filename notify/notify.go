package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

// Message is a rendered operator notification ready for a transport.
type Message struct {
	To      string
	Subject string
	Body    string
}

var subjectByKind = map[core.NotificationKind]string{
	core.NotificationEndpointFailing:  "Webhook deliveries to your endpoint are failing",
	core.NotificationEndpointDisabled: "Your webhook endpoint has been disabled",
	core.NotificationStillDisabled:    "Reminder: your webhook endpoint is still disabled",
}

var bodyTemplates = template.Must(template.New("notifications").Parse(`
{{- define "webhook.endpoint.failing" -}}
Deliveries to your webhook endpoint {{.Endpoint.URL}} have been failing and
are being retried with increasing delays.
{{if .Event}}
Oldest affected event: {{.Event.EventID}} (attempt {{.Event.RetryCounter}}).
Last error: {{.Event.ErrorMessage}}
{{end}}
If the failures continue the endpoint will be disabled automatically.
{{- end}}

{{- define "webhook.endpoint.disabled" -}}
Your webhook endpoint {{.Endpoint.URL}} has been disabled after repeated
delivery failures.
{{if .Event}}
Final event: {{.Event.EventID}}.
Last error: {{.Event.ErrorMessage}}
{{end}}
No further deliveries will be attempted until you re-enable the endpoint.
Events received while it is disabled are kept and will be retried once the
endpoint is enabled again.
{{- end}}

{{- define "webhook.endpoint.still_disabled" -}}
Your webhook endpoint {{.Endpoint.URL}} has now been disabled for
{{.DaysSince}} day{{if ne .DaysSince 1}}s{{end}}.

Re-enable it to resume delivery of the events that accumulated in the
meantime.
{{- end}}
`))

// Render produces the message for one notification. The recipient is the
// endpoint owner's email.
func Render(notification core.Notification) (Message, error) {
	subject, ok := subjectByKind[notification.Kind]
	if !ok {
		return Message{}, fmt.Errorf("notify: unknown notification kind %q", notification.Kind)
	}
	var body bytes.Buffer
	if err := bodyTemplates.ExecuteTemplate(&body, string(notification.Kind), notification); err != nil {
		return Message{}, fmt.Errorf("notify: render %s: %w", notification.Kind, err)
	}
	return Message{
		To:      strings.TrimSpace(notification.Endpoint.OwnerEmail),
		Subject: subject,
		Body:    strings.TrimSpace(body.String()) + "\n",
	}, nil
}

func formatDate(at time.Time) string {
	return at.UTC().Format(time.RFC1123Z)
}
