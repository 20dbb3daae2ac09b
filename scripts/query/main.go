package main

import (
	"PerfSpectra/internal/api"
	"PerfSpectra/internal/config"
	"PerfSpectra/internal/query"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"
)

func main() {
	mode := flag.String("mode", "api", "Query mode: 'api' to query via HTTP API, 'direct' to query the configured store directly.")
	group := flag.String("group", "default", "Group to query.")
	metric := flag.String("metric", "firstmeaningfulpaint", "Metric to query (identifier or normalized name).")
	since := flag.String("since", "", "Only rows at or after this RFC3339 time.")
	limit := flag.Int("limit", 20, "Maximum number of rows.")
	apiAddr := flag.String("api", "http://localhost:8080", "Base URL of the HTTP API.")
	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	var (
		points []api.HistoryPoint
		err    error
	)
	switch *mode {
	case "api":
		points, err = queryViaAPI(*apiAddr, *group, *metric, *since, *limit)
	case "direct":
		points, err = queryDirect(*group, *metric, *since, *limit)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tBACKEND\tCOUNT\tMEDIAN\tMEAN\tP90\tP99")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%g\t%g\t%g\n", p.Time.Format(time.RFC3339), p.Backend, p.Count, p.Median, p.Mean, p.P90, p.P99)
	}
	w.Flush()
}

func queryViaAPI(base, group, metric, since string, limit int) ([]api.HistoryPoint, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if since != "" {
		q.Set("since", since)
	}
	endpoint := fmt.Sprintf("%s/api/v1/history/%s/%s?%s", base, url.PathEscape(group), url.PathEscape(metric), q.Encode())

	resp, err := http.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned %s: %s", resp.Status, body)
	}

	var points []api.HistoryPoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return points, nil
}

func queryDirect(group, metric, since string, limit int) ([]api.HistoryPoint, error) {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, err := query.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	req := query.HistoryRequest{Group: group, Metric: metric, Limit: limit}
	if since != "" {
		if req.Since, err = time.Parse(time.RFC3339, since); err != nil {
			return nil, fmt.Errorf("invalid since: %w", err)
		}
	}

	rows, err := q.History(ctx, req)
	if err != nil {
		return nil, err
	}
	points := make([]api.HistoryPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, api.HistoryPoint{Time: r.Time, Backend: r.Backend, Statistics: r.Statistics})
	}
	return points, nil
}
