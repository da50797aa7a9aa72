package history

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/mqttsh/internal/format"
	"github.com/rustyeddy/mqttsh/internal/msg"
)

// ExportFormat selects the export encoding for History.Export.
type ExportFormat int

const (
	ExportJSON ExportFormat = iota
	ExportCSV
	ExportText
)

type exportRecord struct {
	ID        uint64 `json:"id"`
	Topic     string `json:"topic"`
	QoS       byte   `json:"qos"`
	Retain    bool   `json:"retain"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// Export renders the current buffer contents (oldest first) in the given
// format.
func (h *History) Export(ef ExportFormat) ([]byte, error) {
	messages := h.Snapshot()

	switch ef {
	case ExportJSON:
		return exportJSON(messages)
	case ExportCSV:
		return exportCSV(messages)
	default:
		return exportText(messages), nil
	}
}

func exportJSON(messages []msg.Message) ([]byte, error) {
	records := make([]exportRecord, len(messages))
	for i, m := range messages {
		records[i] = toRecord(m)
	}
	return json.MarshalIndent(records, "", "  ")
}

func exportCSV(messages []msg.Message) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"id", "topic", "qos", "retain", "timestamp", "payload"}); err != nil {
		return nil, err
	}
	for _, m := range messages {
		r := toRecord(m)
		row := []string{
			strconv.FormatUint(r.ID, 10),
			r.Topic,
			strconv.Itoa(int(r.QoS)),
			strconv.FormatBool(r.Retain),
			r.Timestamp,
			r.Payload,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func exportText(messages []msg.Message) []byte {
	var b strings.Builder
	st := format.DefaultState()
	for _, m := range messages {
		fmt.Fprintln(&b, format.Render(m, st))
	}
	return []byte(b.String())
}

func toRecord(m msg.Message) exportRecord {
	return exportRecord{
		ID:        m.ID,
		Topic:     m.Topic,
		QoS:       m.QoS,
		Retain:    m.Retain,
		Timestamp: m.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:   m.Payload.String(),
	}
}
