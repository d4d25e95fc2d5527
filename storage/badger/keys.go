package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	signalPrefix        = "sigrec"
	signalDatePrefix    = "sigrecd"
	candidatePrefix     = "candrec"
	candidateDatePrefix = "candrecd"
)

// makeSignalKey generates a key for a signal by id.
func makeSignalKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", signalPrefix, id))
}

// makeSignalDateKey generates a composite key for the signal date index.
// Format: prefix:timestamp:id
func makeSignalDateKey(timestamp time.Time, id string) []byte {
	prefix := signalDatePrefix + ":"
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makePartialSignalDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialSignalDateKey(timestamp time.Time) []byte {
	prefix := signalDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeCandidateKey generates a key for a candidate cluster by id.
func makeCandidateKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", candidatePrefix, id))
}

// makeCandidateDateKey generates a composite key for the candidate
// creation-time index. Format: prefix:createdAt:id
func makeCandidateDateKey(createdAt time.Time, id string) []byte {
	prefix := candidateDatePrefix + ":"
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}
