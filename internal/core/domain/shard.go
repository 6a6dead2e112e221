package domain

import (
	"strconv"
	"strings"
)

// ShardSpace is the size of the fixed shard partition space. Shards are
// the first three hex nibbles of an entity's id, so the space is 16^3.
// Sharding partitions periodic work across instances; it is not a data
// placement key.
const ShardSpace = 4096

// ShardForID derives the stable shard of an entity from its UUID.
func ShardForID(id string) int {
	hexID := strings.ReplaceAll(id, "-", "")
	if len(hexID) < 3 {
		return 0
	}
	n, err := strconv.ParseInt(hexID[:3], 16, 32)
	if err != nil {
		return 0
	}
	return int(n)
}

// DeletedSentinel is the value written to the deleted column when a row is
// soft-deleted: the id with hyphens stripped.
func DeletedSentinel(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
