package router

import (
	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

// FingerTable holds M entries; entry i is the first member at or after
// self + 2^i on the ring.
type FingerTable []ring.ID

func NewFingerTable(self ring.ID, topo *ring.Topology) FingerTable {
	ft := make(FingerTable, topo.Bits())
	for i := range ft {
		ft[i] = topo.Successor(Start(topo, self, i))
	}
	return ft
}

// Start returns (self + 2^i) mod 2^M.
func Start(topo *ring.Topology, self ring.ID, i int) ring.ID {
	return topo.Add(self, uint64(1)<<uint(i))
}

// Successor is the immediate ring successor, finger 0.
func (ft FingerTable) Successor() ring.ID {
	return ft[0]
}
