package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

// Backend report statuses.
const (
	ReportSuccess = "SUCCESS"
	ReportError   = "ERROR"
	ReportNoZone  = "NO_ZONE"
)

// UpdateStatus is the convergence point for backend reports. The rules:
//
//   - a non-success report parks the zone in ERROR (action unchanged);
//   - a successful DELETE removes the row, cascading recordsets/records;
//   - a successful create/update converges the zone to (NONE, ACTIVE)
//     only if the reported serial covers the zone's stored serial and no
//     later edit is still awaiting its serial bump. A report older than
//     the newest edit never advances the zone; it stays PENDING for the
//     next cycle.
//
// NO_ZONE for a pending delete means the backend already dropped the zone
// and counts as success.
func (s *Service) UpdateStatus(ctx context.Context, zoneID string, status string, serial uint32, action domain.Action) error {
	zone, err := s.storage.GetZone(ctx, zoneID)
	if err != nil {
		if errors.Is(err, domain.ErrZoneNotFound) {
			// Already purged; the report outlived the zone.
			s.logger.Debug("status report for missing zone", "zone_id", zoneID)
			return nil
		}
		return err
	}

	success := status == ReportSuccess ||
		(status == ReportNoZone && action == domain.ActionDelete)
	if !success {
		s.logger.Warn("backend reported failure", "zone_id", zoneID, "zone", zone.Name,
			"status", status, "action", string(action))
		metrics.StatusReports.WithLabelValues("error").Inc()
		return s.storage.MarkZoneError(ctx, zoneID)
	}

	if action == domain.ActionDelete {
		metrics.StatusReports.WithLabelValues("deleted").Inc()
		if err := s.storage.DeleteZone(ctx, zoneID, true); err != nil {
			if errors.Is(err, domain.ErrZoneNotFound) {
				return nil
			}
			return err
		}
		return nil
	}

	if zone.IncrementSerial {
		// An edit landed after this dispatch and its serial bump has not
		// been applied yet, so the report cannot cover it. The zone and
		// its records stay PENDING until the bump's own report arrives.
		s.logger.Debug("report predates a pending serial bump", "zone_id", zoneID,
			"zone", zone.Name, "reported_serial", serial)
		metrics.StatusReports.WithLabelValues("stale").Inc()
		return nil
	}

	if err := s.convergeRecords(ctx, zone, serial); err != nil {
		return err
	}

	converged, err := s.storage.ConvergeZone(ctx, zoneID, serial)
	if err != nil {
		return err
	}
	if !converged {
		// Stale relative to a newer edit, or already active. Benign.
		s.logger.Debug("stale status report", "zone_id", zoneID, "zone", zone.Name,
			"reported_serial", serial, "zone_serial", zone.Serial)
		metrics.StatusReports.WithLabelValues("stale").Inc()
		return nil
	}
	metrics.StatusReports.WithLabelValues("converged").Inc()
	return nil
}

// convergeRecords settles every pending record whose requested serial is
// covered by the report: deletes are removed, everything else becomes
// (NONE, ACTIVE). Records edited after the report's serial stay PENDING.
func (s *Service) convergeRecords(ctx context.Context, zone *domain.Zone, reportedSerial uint32) error {
	recs, err := s.storage.FindRecords(ctx, domain.Criterion{
		"zone_id": zone.ID,
		"status":  string(domain.StatusPending),
		"serial":  "<=" + strconv.FormatUint(uint64(reportedSerial), 10),
	}, ports.FindOptions{})
	if err != nil {
		return err
	}
	for i := range recs {
		rec := &recs[i]
		if rec.Action == domain.ActionDelete {
			if err := s.storage.DeleteRecord(ctx, rec.ID); err != nil &&
				!errors.Is(err, domain.ErrRecordNotFound) {
				return err
			}
			continue
		}
		rec.Action = domain.ActionNone
		rec.Status = domain.StatusActive
		if _, err := s.storage.UpdateRecord(ctx, rec); err != nil &&
			!errors.Is(err, domain.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}
