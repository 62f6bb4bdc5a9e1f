package sim

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"firec2-sim/internal/telemetry"
)

// ReplayStateLog replays node state rows from r to writer. A speed >0
// paces playback against the recorded timestamps (1.0 = recorded pace);
// speed <= 0 inserts no delay.
func ReplayStateLog(r io.Reader, writer NodeStateWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var row telemetry.NodeStateRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		pace(&prev, row.Timestamp, speed)
		if err := writer.WriteState(row); err != nil {
			return err
		}
	}
}

// ReplayCovertLog replays covert event rows from r to writer.
func ReplayCovertLog(r io.Reader, writer CovertEventWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var row telemetry.CovertEventRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		pace(&prev, row.Timestamp, speed)
		if err := writer.WriteCovertEvent(row); err != nil {
			return err
		}
	}
}

func pace(prev *time.Time, at time.Time, speed float64) {
	if !prev.IsZero() && speed > 0 {
		diff := at.Sub(*prev)
		if speed != 1 {
			diff = time.Duration(float64(diff) / speed)
		}
		if diff > 0 {
			time.Sleep(diff)
		}
	}
	*prev = at
}

// replayItem is one recorded row with its dispatch retained.
type replayItem struct {
	at    time.Time
	write func() error
}

// ReplayRun replays a recorded run directory through writer, state and
// covert streams merged in timestamp order. Missing stream files are
// skipped, so a directory recorded by an older build still replays.
func ReplayRun(dir string, writer *MultiWriter, speed float64) error {
	var items []replayItem

	err := readLog(filepath.Join(dir, NodeStateLogName), func(dec *json.Decoder) error {
		var row telemetry.NodeStateRow
		if err := dec.Decode(&row); err != nil {
			return err
		}
		items = append(items, replayItem{at: row.Timestamp, write: func() error {
			return writer.WriteState(row)
		}})
		return nil
	})
	if err != nil {
		return err
	}

	err = readLog(filepath.Join(dir, CovertEventLogName), func(dec *json.Decoder) error {
		var row telemetry.CovertEventRow
		if err := dec.Decode(&row); err != nil {
			return err
		}
		items = append(items, replayItem{at: row.Timestamp, write: func() error {
			return writer.WriteCovertEvent(row)
		}})
		return nil
	})
	if err != nil {
		return err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.Before(items[j].at)
	})

	var prev time.Time
	for _, it := range items {
		pace(&prev, it.at, speed)
		if err := it.write(); err != nil {
			return err
		}
	}
	return nil
}

// readLog streams decode over one JSONL file; a missing file is not an
// error.
func readLog(path string, decodeOne func(*json.Decoder) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for dec.More() {
		if err := decodeOne(dec); err != nil {
			return err
		}
	}
	return nil
}
