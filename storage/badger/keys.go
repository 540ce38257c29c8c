package badger

import (
	"encoding/binary"
	"strings"

	"github.com/poiesic/spamsense/storage"
)

// Key prefixes for different data types
const (
	checkpointPrefix  = "chkpt"
	trainingSetPrefix = "trset"
)

// makeCheckpointKey generates a key for generation checkpoints.
func makeCheckpointKey(key string) []byte {
	return []byte(checkpointPrefix + ":" + key)
}

// checkTrainingSetName rejects names that would make one set's prefix a
// prefix of another's.
func checkTrainingSetName(name string) error {
	if name == "" || strings.Contains(name, ":") {
		return storage.ErrInvalidKey
	}
	return nil
}

// makeTrainingSetPrefix generates the prefix shared by all rows of a training set.
// Format: prefix:name:
func makeTrainingSetPrefix(name string) []byte {
	return []byte(trainingSetPrefix + ":" + name + ":")
}

// makeTrainingRowKey generates a key for one row of a training set.
// Format: prefix:name:index
func makeTrainingRowKey(name string, index int) []byte {
	prefix := makeTrainingSetPrefix(name)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort matches row order
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}
