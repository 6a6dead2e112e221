package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

const workerTopic = "worker"

// zonePayload is the wire form of a zone dispatched to the worker pool.
// The worker reconstructs backend state from it without a database read.
type zonePayload struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	PoolID   string   `json:"pool_id"`
	Serial   uint32   `json:"serial"`
	Action   string   `json:"action"`
	Masters  []string `json:"masters,omitempty"`
	Hard     bool     `json:"hard,omitempty"`
	Servers  []string `json:"servers,omitempty"`
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty"`
}

type serialReply struct {
	Status string `json:"status"`
	Serial uint32 `json:"serial"`
}

type shardPayload struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Worker is the WorkerClient implementation speaking over the bus to the
// nameserver-facing worker pool.
type Worker struct {
	bus         *RedisBus
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewWorker wires a worker client with the given synchronous call timeout.
func NewWorker(b *RedisBus, callTimeout time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Worker{bus: b, callTimeout: callTimeout, logger: logger}
}

func zoneToPayload(zone *domain.Zone) zonePayload {
	return zonePayload{
		ID:      zone.ID,
		Name:    zone.Name,
		Type:    string(zone.Type),
		PoolID:  zone.PoolID,
		Serial:  zone.Serial,
		Action:  string(zone.Action),
		Masters: zone.Masters,
	}
}

// UpdateZone casts a create-or-update of the zone on its backends.
func (w *Worker) UpdateZone(ctx context.Context, zone *domain.Zone) error {
	return w.bus.Cast(ctx, workerTopic, "update_zone", zoneToPayload(zone))
}

// DeleteZone casts removal of the zone from its backends.
func (w *Worker) DeleteZone(ctx context.Context, zone *domain.Zone, hard bool) error {
	p := zoneToPayload(zone)
	p.Hard = hard
	return w.bus.Cast(ctx, workerTopic, "delete_zone", p)
}

// PerformZoneXfr casts an AXFR of a secondary zone from its masters.
func (w *Worker) PerformZoneXfr(ctx context.Context, zone *domain.Zone, servers []string) error {
	p := zoneToPayload(zone)
	p.Servers = servers
	return w.bus.Cast(ctx, workerTopic, "perform_zone_xfr", p)
}

// GetSerialNumber synchronously asks a worker for the serial the given
// nameserver currently publishes for the zone.
func (w *Worker) GetSerialNumber(ctx context.Context, zone *domain.Zone, host string, port int) (string, uint32, error) {
	p := zoneToPayload(zone)
	p.Host = host
	p.Port = port
	var reply serialReply
	if err := w.bus.Call(ctx, workerTopic, "get_serial_number", p, &reply, w.callTimeout); err != nil {
		return "", 0, err
	}
	return reply.Status, reply.Serial, nil
}

// RecoverShard casts a consistency sweep of the shard range, fired when a
// partition change hands this instance shards another member may have
// abandoned mid-task.
func (w *Worker) RecoverShard(ctx context.Context, begin, end int) error {
	return w.bus.Cast(ctx, workerTopic, "recover_shard", shardPayload{Begin: begin, End: end})
}
