package activation

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/qnet-project/qnet-core/qerrors"
)

// SnapshotBloom persists the registry's bloom filter to path via a
// memory-mapped file, so a restarting node can skip replaying every
// historical activation transaction just to repopulate layer 1 of the
// lookup cascade. Grounded on the teacher's go.mod dependency on
// edsrzf/mmap-go, otherwise unused in this module once the teacher's
// devp2p/discovery code (its only consumer) is out of scope.
func (r *Registry) SnapshotBloom(path string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.bloom.MarshalBinary()
	if err != nil {
		return qerrors.Wrap(err, "marshal bloom filter")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return qerrors.Wrap(err, "open bloom snapshot")
	}
	defer f.Close()

	if err := f.Truncate(int64(len(data))); err != nil {
		return qerrors.Wrap(err, "truncate bloom snapshot")
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return qerrors.Wrap(err, "mmap bloom snapshot")
	}
	defer m.Unmap()
	copy(m, data)
	return m.Flush()
}

// LoadBloomSnapshot maps the snapshot at path read-only and returns a copy
// of its raw bytes; it does not rebuild a bloom filter from them.
func LoadBloomSnapshot(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.Wrap(err, "open bloom snapshot")
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, qerrors.Wrap(err, "mmap bloom snapshot")
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}
