package coordination

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

func TestPartitionCoversSpaceExactly(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7, 16, 100} {
		members := make([]string, n)
		for i := range members {
			members[i] = fmt.Sprintf("member-%03d", i)
		}
		ranges := Partition(members, domain.ShardSpace)
		if len(ranges) != n {
			t.Fatalf("n=%d: expected %d ranges, got %d", n, n, len(ranges))
		}

		covered := make([]bool, domain.ShardSpace)
		for member, r := range ranges {
			if r.Empty() {
				t.Fatalf("n=%d: member %s got empty range", n, member)
			}
			for s := r.Start; s <= r.End; s++ {
				if covered[s] {
					t.Fatalf("n=%d: shard %d assigned twice", n, s)
				}
				covered[s] = true
			}
		}
		for s, ok := range covered {
			if !ok {
				t.Fatalf("n=%d: shard %d unassigned", n, s)
			}
		}
	}
}

func TestPartitionWidthsDifferByAtMostOne(t *testing.T) {
	members := []string{"a", "b", "c", "d", "e"}
	ranges := Partition(members, domain.ShardSpace)
	min, max := domain.ShardSpace, 0
	for _, r := range ranges {
		w := r.End - r.Start + 1
		if w < min {
			min = w
		}
		if w > max {
			max = w
		}
	}
	if max-min > 1 {
		t.Errorf("Range widths differ by %d, want at most 1", max-min)
	}
}

func TestPartitionDeterministicOverOrder(t *testing.T) {
	a := Partition([]string{"x", "y", "z"}, domain.ShardSpace)
	b := Partition([]string{"z", "x", "y"}, domain.ShardSpace)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Partition depends on member order: %+v vs %+v", a, b)
	}
}

func TestPartitionSingleMemberOwnsEverything(t *testing.T) {
	ranges := Partition([]string{"only"}, domain.ShardSpace)
	r := ranges["only"]
	if r.Start != 0 || r.End != domain.ShardSpace-1 {
		t.Errorf("Expected [0, %d], got [%d, %d]", domain.ShardSpace-1, r.Start, r.End)
	}
}

func TestPartitionEmptyMembership(t *testing.T) {
	if ranges := Partition(nil, domain.ShardSpace); len(ranges) != 0 {
		t.Errorf("Expected no ranges, got %+v", ranges)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: 100, End: 200}
	if !r.Contains(100) || !r.Contains(200) || !r.Contains(150) {
		t.Error("Expected range to contain its bounds and interior")
	}
	if r.Contains(99) || r.Contains(201) {
		t.Error("Expected range to exclude values outside its bounds")
	}
}
