// Package zonefile parses and renders RFC 1035 master zone files for the
// zone import/export endpoints.
package zonefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

// ErrNoSOA is returned when an imported zone file carries no SOA record.
var ErrNoSOA = errors.New("zone file has no SOA record")

// Entry is one record line of a zone file, name fully qualified.
type Entry struct {
	Name string
	Type domain.RecordType
	TTL  int
	Data string
}

// Import is the parsed form of a zone file: the zone attributes recovered
// from the SOA plus every non-SOA entry grouped by (name, type).
type Import struct {
	Name    string
	Email   string
	TTL     int
	Refresh int
	Retry   int
	Expire  int
	Minimum int
	Entries []Entry
}

// Parser reads master zone files. Origin may be preset; a $ORIGIN
// directive in the file wins.
type Parser struct {
	Origin     string
	DefaultTTL int
}

// NewParser creates a parser with the standard default TTL.
func NewParser() *Parser {
	return &Parser{DefaultTTL: 3600}
}

// Parse reads a master zone file and returns the structured import. The
// grammar handled: comments, $ORIGIN/$TTL directives, parenthesized
// multi-line records, blank-name continuation lines and the optional
// class field.
func (p *Parser) Parse(r io.Reader) (*Import, error) {
	scanner := bufio.NewScanner(r)
	// DNSKEY and TXT records can run long.
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	imp := &Import{}
	var lastName string
	var inParen bool
	var parenLines []string
	var leadingWS bool

	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}

		if !inParen {
			if strings.TrimSpace(line) == "" {
				continue
			}
			leadingWS = line[0] == ' ' || line[0] == '\t'
			if strings.Contains(line, "(") {
				inParen = true
				parenLines = append(parenLines, strings.Replace(line, "(", " ", 1))
				if !strings.Contains(line, ")") {
					continue
				}
			}
		} else {
			parenLines = append(parenLines, line)
			if !strings.Contains(line, ")") {
				continue
			}
			inParen = false
		}

		full := line
		if len(parenLines) > 0 {
			full = strings.ReplaceAll(strings.Join(parenLines, " "), ")", " ")
			parenLines = nil
		}
		trimmed := strings.TrimSpace(full)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "$") {
			p.directive(trimmed, imp)
			continue
		}

		entry, ok := p.parseEntry(trimmed, leadingWS, &lastName)
		if !ok {
			continue
		}
		if entry.Type == domain.TypeSOA {
			p.applySOA(imp, entry)
			continue
		}
		imp.Entries = append(imp.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if imp.Name == "" {
		imp.Name = p.Origin
	}
	if imp.Refresh == 0 {
		return nil, ErrNoSOA
	}
	if imp.TTL == 0 {
		imp.TTL = p.DefaultTTL
	}
	return imp, nil
}

func (p *Parser) directive(line string, imp *Import) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return
	}
	switch strings.ToUpper(parts[0]) {
	case "$ORIGIN":
		p.Origin = parts[1]
		if !strings.HasSuffix(p.Origin, ".") {
			p.Origin += "."
		}
	case "$TTL":
		if ttl, err := strconv.Atoi(parts[1]); err == nil {
			p.DefaultTTL = ttl
		}
	}
}

func (p *Parser) parseEntry(line string, leadingWS bool, lastName *string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Entry{}, false
	}

	var name string
	if leadingWS {
		name = *lastName
	} else {
		name = fields[0]
		fields = fields[1:]
		if name == "@" {
			name = p.Origin
		} else if !strings.HasSuffix(name, ".") && p.Origin != "" {
			name = name + "." + p.Origin
		}
		*lastName = name
	}

	ttl := p.DefaultTTL
	var rtype domain.RecordType
	var data []string
	for i, f := range fields {
		upper := strings.ToUpper(f)
		if n, err := strconv.Atoi(f); err == nil {
			ttl = n
			continue
		}
		if upper == "IN" || upper == "CS" || upper == "CH" || upper == "HS" {
			continue
		}
		rtype = domain.RecordType(upper)
		data = fields[i+1:]
		break
	}
	if rtype == "" || name == "" {
		return Entry{}, false
	}
	return Entry{Name: name, Type: rtype, TTL: ttl, Data: strings.Join(data, " ")}, true
}

// applySOA recovers the zone attributes from the SOA rdata:
// "mname rname serial refresh retry expire minimum".
func (p *Parser) applySOA(imp *Import, entry Entry) {
	imp.Name = entry.Name
	imp.TTL = entry.TTL
	parts := strings.Fields(entry.Data)
	if len(parts) < 7 {
		return
	}
	imp.Email = rnameToEmail(parts[1])
	imp.Refresh = atoiOr(parts[3], 3600)
	imp.Retry = atoiOr(parts[4], 600)
	imp.Expire = atoiOr(parts[5], 86400)
	imp.Minimum = atoiOr(parts[6], 3600)
}

func rnameToEmail(rname string) string {
	rname = strings.TrimSuffix(rname, ".")
	return strings.Replace(rname, ".", "@", 1)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// Render writes the zone as a master file: SOA first, then the remaining
// recordsets in canonical name order.
func Render(w io.Writer, zone *domain.Zone, sets []domain.RecordSet, primaryNS string) error {
	if _, err := fmt.Fprintf(w, "$ORIGIN %s\n$TTL %d\n\n", zone.Name, zone.TTL); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s %d IN SOA %s\n", zone.Name, zone.TTL, zone.SOAData(primaryNS)); err != nil {
		return err
	}

	sorted := make([]domain.RecordSet, len(sets))
	copy(sorted, sets)
	sort.Slice(sorted, func(i, j int) bool {
		cmp := CompareNames(sorted[i].Name, sorted[j].Name)
		if cmp == 0 {
			return sorted[i].Type < sorted[j].Type
		}
		return cmp < 0
	})

	for _, rs := range sorted {
		if rs.Type == domain.TypeSOA {
			continue
		}
		ttl := zone.TTL
		if rs.TTL != nil {
			ttl = *rs.TTL
		}
		for _, rec := range rs.Records {
			if _, err := fmt.Fprintf(w, "%s %d IN %s %s\n", rs.Name, ttl, rs.Type, rec.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// CompareNames orders domain names canonically (RFC 4034 section 6.1):
// by label from the root down, case-insensitive.
func CompareNames(a, b string) int {
	a = strings.TrimSuffix(strings.ToLower(a), ".")
	b = strings.TrimSuffix(strings.ToLower(b), ".")
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	aLabels := strings.Split(a, ".")
	bLabels := strings.Split(b, ".")
	i, j := len(aLabels)-1, len(bLabels)-1
	for i >= 0 && j >= 0 {
		if aLabels[i] != bLabels[j] {
			if aLabels[i] < bLabels[j] {
				return -1
			}
			return 1
		}
		i--
		j--
	}
	if len(aLabels) < len(bLabels) {
		return -1
	}
	return 1
}
