package probe

import (
	"PerfSpectra/internal/model"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// SummaryMessage is the decoded form of a published group summary.
type SummaryMessage struct {
	Group       string
	URL         string
	GeneratedAt time.Time
	Stats       model.GroupSummary
}

// SummaryPayload builds the google.protobuf.Struct published for one group.
// url names the audit that triggered the publication and is omitted when empty.
func SummaryPayload(group, url string, summary model.GroupSummary, generatedAt time.Time) (*structpb.Struct, error) {
	ts := timestamppb.New(generatedAt)
	if err := ts.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid summary time: %w", err)
	}

	stats := make(map[string]any, len(summary))
	for name, s := range summary {
		stats[name] = map[string]any{
			"count":  s.Count,
			"min":    s.Min,
			"p10":    s.P10,
			"median": s.Median,
			"mean":   s.Mean,
			"p90":    s.P90,
			"p99":    s.P99,
			"max":    s.Max,
		}
	}

	fields := map[string]any{
		"group":        group,
		"generated_at": ts.AsTime().Format(time.RFC3339Nano),
		"stats":        stats,
	}
	if url != "" {
		fields["url"] = url
	}

	payload, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build summary payload: %w", err)
	}
	return payload, nil
}

// DecodeSummary parses a summary message published by PublishSummary.
func DecodeSummary(data []byte) (*SummaryMessage, error) {
	var payload structpb.Struct
	if err := protojson.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode summary payload: %w", err)
	}
	fields := payload.GetFields()

	generatedAt, err := time.Parse(time.RFC3339Nano, fields["generated_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid generated_at: %w", err)
	}

	msg := &SummaryMessage{
		Group:       fields["group"].GetStringValue(),
		URL:         fields["url"].GetStringValue(),
		GeneratedAt: generatedAt,
		Stats:       make(model.GroupSummary),
	}
	for name, v := range fields["stats"].GetStructValue().GetFields() {
		s := v.GetStructValue().GetFields()
		msg.Stats[name] = model.Statistics{
			Count:  int(s["count"].GetNumberValue()),
			Min:    s["min"].GetNumberValue(),
			P10:    s["p10"].GetNumberValue(),
			Median: s["median"].GetNumberValue(),
			Mean:   s["mean"].GetNumberValue(),
			P90:    s["p90"].GetNumberValue(),
			P99:    s["p99"].GetNumberValue(),
			Max:    s["max"].GetNumberValue(),
		}
	}
	return msg, nil
}
