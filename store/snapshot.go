package store

import (
	"errors"
	"io"

	"github.com/tidwall/sds"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

// Persist writes every pair of s to wr as an sds stream of alternating
// key/value byte strings.
func Persist(wr io.Writer, s Store) (int, error) {
	sw := sds.NewWriter(wr)
	n := 0
	err := s.Iterate(func(key ring.ID, value []byte) error {
		if err := sw.WriteBytes(EncodeKey(key)); err != nil {
			return err
		}
		if err := sw.WriteBytes(value); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, sw.Flush()
}

// Restore loads a stream produced by Persist into s.
func Restore(rd io.Reader, s Store) (int, error) {
	sr := sds.NewReader(rd)
	n := 0
	for {
		key, err := sr.ReadBytes()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return n, err
		}
		value, err := sr.ReadBytes()
		if err != nil {
			return n, err
		}
		id, err := DecodeKey(key)
		if err != nil {
			return n, err
		}
		if err := s.StoreItem(id, value); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
