package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Tail reads the last n events from the JSONL file at path.
// Malformed lines are skipped; a missing file is an error so callers can
// tell the user where the log was expected.
func Tail(path string, n int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []Event
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if n <= 0 || len(ring) < n {
			ring = append(ring, ev)
			continue
		}
		copy(ring, ring[1:])
		ring[n-1] = ev
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return ring, nil
}
