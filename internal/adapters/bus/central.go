package bus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

const centralTopic = "central"

// statusPayload is a worker's report of a backend operation outcome.
type statusPayload struct {
	ZoneID string `json:"zone_id"`
	Status string `json:"status"`
	Serial uint32 `json:"serial"`
	Action string `json:"action"`
}

// CentralConsumer feeds worker status reports into the convergence logic.
type CentralConsumer struct {
	bus      *RedisBus
	reporter ports.StatusReporter
	logger   *slog.Logger
}

// NewCentralConsumer wires the central topic consumer.
func NewCentralConsumer(b *RedisBus, reporter ports.StatusReporter, logger *slog.Logger) *CentralConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CentralConsumer{bus: b, reporter: reporter, logger: logger}
}

// Run consumes the central topic until the context is cancelled.
func (c *CentralConsumer) Run(ctx context.Context) error {
	return c.bus.Serve(ctx, centralTopic, map[string]Handler{
		"update_status": c.handleUpdateStatus,
	})
}

func (c *CentralConsumer) handleUpdateStatus(ctx context.Context, payload json.RawMessage) (any, error) {
	var p statusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return nil, c.reporter.UpdateStatus(ctx, p.ZoneID, p.Status, p.Serial, domain.Action(p.Action))
}
