package services

import (
	"context"
	"io"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
	"github.com/poyrazK/zoneplane/internal/zonefile"
)

// ImportZone creates a zone and its recordsets from a parsed master file.
// The SOA is rebuilt from the import's timers rather than copied; apex NS
// entries are skipped because the pool's nameservers are authoritative.
func (s *Service) ImportZone(ctx context.Context, tenantID, poolID string, imp *zonefile.Import) (*domain.Zone, error) {
	zone := &domain.Zone{
		TenantID: tenantID,
		PoolID:   poolID,
		Name:     imp.Name,
		Email:    imp.Email,
		Type:     domain.ZoneTypePrimary,
		TTL:      imp.TTL,
		Refresh:  imp.Refresh,
		Retry:    imp.Retry,
		Expire:   imp.Expire,
		Minimum:  imp.Minimum,
	}
	zone, err := s.CreateZone(ctx, zone)
	if err != nil {
		return nil, err
	}

	type key struct {
		name string
		t    domain.RecordType
	}
	groups := make(map[key]*domain.RecordSet)
	var order []key
	for _, e := range imp.Entries {
		if e.Type == domain.TypeNS && e.Name == zone.Name {
			continue
		}
		k := key{e.Name, e.Type}
		rs, ok := groups[k]
		if !ok {
			ttl := e.TTL
			rs = &domain.RecordSet{
				TenantID: tenantID,
				ZoneID:   zone.ID,
				Name:     e.Name,
				Type:     e.Type,
				TTL:      &ttl,
			}
			groups[k] = rs
			order = append(order, k)
		}
		rs.Records = append(rs.Records, domain.Record{Data: e.Data})
	}
	for _, k := range order {
		if _, err := s.CreateRecordSet(ctx, groups[k]); err != nil {
			s.logger.Warn("skipping recordset on import",
				"zone", zone.Name, "name", k.name, "type", string(k.t), "error", err)
		}
	}
	return s.storage.GetZone(ctx, zone.ID)
}

// ExportZone renders the zone as an RFC 1035 master file.
func (s *Service) ExportZone(ctx context.Context, zoneID string, w io.Writer) error {
	zone, err := s.storage.GetZone(ctx, zoneID)
	if err != nil {
		return err
	}
	sets, err := s.storage.FindRecordSets(ctx, domain.Criterion{"zone_id": zoneID}, ports.FindOptions{Limit: 10000})
	if err != nil {
		return err
	}
	pool, err := s.storage.GetPool(ctx, zone.PoolID)
	if err != nil {
		return err
	}
	primaryNS := ""
	if len(pool.Nameservers) > 0 {
		primaryNS = pool.Nameservers[0]
	}
	return zonefile.Render(w, zone, sets, primaryNS)
}
