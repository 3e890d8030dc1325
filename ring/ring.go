// Package ring holds the static membership of a Chord ring and the cyclic
// arithmetic over its identifier space [0, 2^M).
package ring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// MaxBits bounds M so that 2^M fits in an ID.
const MaxBits = 63

var (
	ErrInvalidBits       = errors.New("ring: identifier bits must be in [1, 63]")
	ErrTooFewMembers     = errors.New("ring: at least 2 members are required")
	ErrDuplicateMember   = errors.New("ring: duplicate member")
	ErrMemberOutOfRange  = errors.New("ring: member outside identifier space")
	ErrInvalidMemberList = errors.New("ring: invalid member list")
)

// ID is a position on the identifier circle.
type ID uint64

// Topology is an immutable, ordered set of ring members.
type Topology struct {
	bits    uint
	size    uint64
	members []ID
	index   map[ID]int
}

// New builds a topology over [0, 2^bits). Members may be given in any order.
func New(bits uint, members []ID) (*Topology, error) {
	if bits < 1 || bits > MaxBits {
		return nil, ErrInvalidBits
	}
	if len(members) < 2 {
		return nil, ErrTooFewMembers
	}
	size := uint64(1) << bits

	sorted := make([]ID, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := make(map[ID]int, len(sorted))
	for i, m := range sorted {
		if uint64(m) >= size {
			return nil, fmt.Errorf("%w: %d >= %d", ErrMemberOutOfRange, m, size)
		}
		if _, ok := index[m]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMember, m)
		}
		index[m] = i
	}

	return &Topology{
		bits:    bits,
		size:    size,
		members: sorted,
		index:   index,
	}, nil
}

// Parse reads a comma separated member list such as "2,7,11".
func Parse(s string) ([]ID, error) {
	var ids []ID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := cast.ToUint64E(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMemberList, part)
		}
		ids = append(ids, ID(v))
	}
	if len(ids) == 0 {
		return nil, ErrInvalidMemberList
	}
	return ids, nil
}

// Bits returns M.
func (t *Topology) Bits() uint { return t.bits }

// Size returns 2^M.
func (t *Topology) Size() uint64 { return t.size }

// Len returns the number of members.
func (t *Topology) Len() int { return len(t.members) }

// Members returns the members in ascending order.
func (t *Topology) Members() []ID {
	out := make([]ID, len(t.members))
	copy(out, t.members)
	return out
}

// Contains reports whether id is a ring member.
func (t *Topology) Contains(id ID) bool {
	_, ok := t.index[id]
	return ok
}

// Successor returns the smallest member >= x, wrapping to the smallest
// member overall when none qualifies.
func (t *Topology) Successor(x ID) ID {
	i := sort.Search(len(t.members), func(i int) bool { return t.members[i] >= x })
	if i == len(t.members) {
		return t.members[0]
	}
	return t.members[i]
}

// Next returns the member that follows id on the ring. id must be a member.
func (t *Topology) Next(id ID) (ID, bool) {
	i, ok := t.index[id]
	if !ok {
		return 0, false
	}
	return t.members[(i+1)%len(t.members)], true
}

// Add returns (id + offset) mod 2^M.
func (t *Topology) Add(id ID, offset uint64) ID {
	return ID((uint64(id) + offset%t.size) % t.size)
}

// Valid converts a caller supplied key into an ID when it lies in [0, 2^M).
func (t *Topology) Valid(key int64) (ID, bool) {
	if key < 0 || uint64(key) >= t.size {
		return 0, false
	}
	return ID(key), true
}

func (t *Topology) String() string {
	parts := make([]string, len(t.members))
	for i, m := range t.members {
		parts[i] = cast.ToString(uint64(m))
	}
	return fmt.Sprintf("M=%d [%s]", t.bits, strings.Join(parts, ","))
}

// Between reports whether x lies in the open interval (a, b) walking the
// circle forward from a. When b <= a the interval wraps through zero.
func Between(x, a, b ID) bool {
	if a < b {
		return a < x && x < b
	}
	return x > a || x < b
}

// BetweenRightIncl reports whether x lies in the half-open interval (a, b].
func BetweenRightIncl(x, a, b ID) bool {
	return Between(x, a, b) || x == b
}
