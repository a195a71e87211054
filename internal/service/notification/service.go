package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-dashboard-api/internal/email"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/messaging"
)

// Notification kinds, also the metric label.
const (
	KindCreated     = "created"
	KindRescheduled = "rescheduled"
	KindCanceled    = "canceled"
)

const (
	statusSent    = "sent"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

var kinds = map[string]string{
	model.EventAppointmentCreated:     KindCreated,
	model.EventAppointmentRescheduled: KindRescheduled,
	model.EventAppointmentCanceled:    KindCanceled,
}

var subjects = map[string]string{
	KindCreated:     "Tu cita ha sido agendada",
	KindRescheduled: "Tu cita ha sido reprogramada",
	KindCanceled:    "Tu cita ha sido cancelada",
}

var bodyTemplate = template.Must(template.New("appointment").Parse(`<p>Hola {{.PatientName}},</p>
{{if eq .Kind "canceled"}}<p>Tu cita con {{.SpecialistName}} del {{.Date}} a las {{.Time}} fue cancelada.</p>
{{if .Reason}}<p>Motivo: {{.Reason}}</p>
{{end}}{{else if eq .Kind "rescheduled"}}<p>Tu cita con {{.SpecialistName}} se movio al {{.Date}} a las {{.Time}}.</p>
{{else}}<p>Tu cita con {{.SpecialistName}} quedo agendada el {{.Date}} a las {{.Time}}.</p>
{{end}}<p>Duracion: {{.Duration}} minutos.</p>`))

type bodyData struct {
	Kind           string
	PatientName    string
	SpecialistName string
	Date           string
	Time           string
	Duration       int
	Reason         string
}

// Service mails patients about their appointment changes.
type Service struct {
	mailer email.Service
	loc    *time.Location
	sent   *prometheus.CounterVec
}

func NewService(mailer email.Service, loc *time.Location, sent *prometheus.CounterVec) *Service {
	return &Service{mailer: mailer, loc: loc, sent: sent}
}

// Subscribe handles every message published on channel until ctx is done.
func (s *Service) Subscribe(ctx context.Context, broker messaging.MessageBroker, channel string) error {
	if err := broker.Subscribe(ctx, channel, s.Handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("appointment notifications subscribed")
	return nil
}

// Handle sends the email for one appointment event. Event types without a
// notification and patients without an email address are skipped.
func (s *Service) Handle(ctx context.Context, msg messaging.Message) error {
	kind, ok := kinds[msg.Type]
	if !ok {
		return nil
	}

	var evt model.AppointmentEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		s.count(kind, statusFailed)
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}
	if evt.PatientEmail == "" {
		s.count(kind, statusSkipped)
		log.Debug().Str("appointment_id", evt.AppointmentID.String()).Msg("patient has no email, skipping notification")
		return nil
	}

	body, err := s.render(kind, evt)
	if err != nil {
		s.count(kind, statusFailed)
		return err
	}
	if err := s.mailer.Send(ctx, evt.PatientEmail, subjects[kind], body); err != nil {
		s.count(kind, statusFailed)
		return fmt.Errorf("failed to notify appointment %s: %w", evt.AppointmentID, err)
	}

	s.count(kind, statusSent)
	log.Info().
		Str("appointment_id", evt.AppointmentID.String()).
		Str("kind", kind).
		Msg("appointment notification sent")
	return nil
}

func (s *Service) render(kind string, evt model.AppointmentEvent) (string, error) {
	start := evt.StartAt.In(s.loc)
	data := bodyData{
		Kind:           kind,
		PatientName:    evt.PatientName,
		SpecialistName: evt.SpecialistName,
		Date:           start.Format("02/01/2006"),
		Time:           start.Format("15:04"),
		Duration:       int(evt.EndAt.Sub(evt.StartAt).Minutes()),
		Reason:         evt.Reason,
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render notification: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) count(kind, status string) {
	if s.sent != nil {
		s.sent.WithLabelValues(kind, status).Inc()
	}
}
