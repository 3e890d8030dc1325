package transport

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	deb "runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

const (
	GB uint64 = 1024 * 1024 * 1024
	MB uint64 = 1024 * 1024
	KB uint64 = 1024

	gcTimeFormat = "2006/01/02 15:04:05.000"
)

var delims = []byte("\r\n")

type infoPair struct {
	Key   string
	Value interface{}
}

func getMemoryHuman(m uint64) string {
	switch {
	case m > GB:
		return fmt.Sprintf("%0.3fG", float64(m)/float64(GB))
	case m > MB:
		return fmt.Sprintf("%0.3fM", float64(m)/float64(MB))
	case m > KB:
		return fmt.Sprintf("%0.3fK", float64(m)/float64(KB))
	default:
		return fmt.Sprintf("%d", m)
	}
}

func (s *Server) dumpInfo(section string) []byte {
	buf := &bytes.Buffer{}
	switch strings.ToLower(section) {
	case "":
		s.dumpServer(buf)
		buf.Write(delims)
		s.dumpChord(buf)
		buf.Write(delims)
		s.dumpMem(buf)
		buf.Write(delims)
		s.dumpGC(buf)
	case "server":
		s.dumpServer(buf)
	case "chord":
		s.dumpChord(buf)
	case "mem":
		s.dumpMem(buf)
	case "gc":
		s.dumpGC(buf)
	default:
		buf.WriteString(fmt.Sprintf("# %s\r\n", section))
	}
	return buf.Bytes()
}

func (s *Server) dumpServer(buf *bytes.Buffer) {
	buf.WriteString("# Server\r\n")
	dumpPairs(buf,
		infoPair{"os", runtime.GOOS},
		infoPair{"process_id", os.Getpid()},
		infoPair{"go_version", runtime.Version()},
		infoPair{"connected_clients", s.clients.Load()},
		infoPair{"commands_processed", s.processed.Load()},
	)
}

func joinIDs(ids []ring.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = cast.ToString(uint64(id))
	}
	return strings.Join(parts, ",")
}

func (s *Server) dumpChord(buf *bytes.Buffer) {
	buf.WriteString("# Chord\r\n")
	topo := s.h.Topology()
	dumpPairs(buf,
		infoPair{"node_id", uint64(s.h.ID())},
		infoPair{"ring_bits", topo.Bits()},
		infoPair{"ring_members", joinIDs(topo.Members())},
		infoPair{"successor", uint64(s.h.Successor())},
		infoPair{"fingers", joinIDs(s.h.Fingers())},
	)
}

func (s *Server) dumpMem(buf *bytes.Buffer) {
	buf.WriteString("# Mem\r\n")

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	dumpPairs(buf,
		infoPair{"mem_alloc", getMemoryHuman(mem.Alloc)},
		infoPair{"mem_sys", getMemoryHuman(mem.Sys)},
		infoPair{"mem_total", getMemoryHuman(mem.TotalAlloc)},
		infoPair{"mem_heap_alloc", getMemoryHuman(mem.HeapAlloc)},
		infoPair{"mem_heap_inuse", getMemoryHuman(mem.HeapInuse)},
		infoPair{"mem_heap_objects", mem.HeapObjects},
	)
}

func (s *Server) dumpGC(buf *bytes.Buffer) {
	buf.WriteString("# GC\r\n")

	count := 5

	var st deb.GCStats
	st.Pause = make([]time.Duration, count)
	deb.ReadGCStats(&st)

	h := make([]string, 0, count)
	for i := 0; i < count && i < len(st.Pause); i++ {
		h = append(h, st.Pause[i].String())
	}

	dumpPairs(buf,
		infoPair{"gc_last_time", st.LastGC.Format(gcTimeFormat)},
		infoPair{"gc_num", st.NumGC},
		infoPair{"gc_pause_total", st.PauseTotal.String()},
		infoPair{"gc_pause_history", strings.Join(h, ",")},
	)
}

func dumpPairs(buf *bytes.Buffer, pairs ...infoPair) {
	for _, v := range pairs {
		buf.WriteString(fmt.Sprintf("%s:%v\r\n", v.Key, v.Value))
	}
}
