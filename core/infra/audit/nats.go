package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rolefirst/guardrail/core/infra/logging"
)

// SubjectDecision is the subject every decision record is published on.
const SubjectDecision = "guardrail.audit.decision"

// NATSSink publishes each record to the audit subject so external consumers
// (SIEM forwarders, alerting) can subscribe without touching the gateway.
type NATSSink struct {
	nc *nats.Conn
}

func NewNATSSink(url string) (*NATSSink, error) {
	opts := []nats.Option{
		nats.Name("guardrail-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Error("audit", "nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("audit", "nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSSink{nc: nc}, nil
}

func (s *NATSSink) Append(_ context.Context, rec Record) error {
	rec.Reason = MaskPII(rec.Reason)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	return s.nc.Publish(SubjectDecision, data)
}

func (s *NATSSink) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
