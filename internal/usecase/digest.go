package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// buildRunDigest renders a run summary as a short Markdown message.
func buildRunDigest(r RunReport) string {
	s := r.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "*News ingest run* `%s`\n", s.RunID)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintf(&b, "Processed: %d (valid %d, duplicate %d, rejected %d)\n",
		s.Total, s.Valid, s.Duplicate, s.Rejected)
	fmt.Fprintf(&b, "Stored: %d new, %d updated\n", r.Inserted, r.Updated)
	fmt.Fprintf(&b, "Batches: %d attempted, %d failed\n", s.BatchesAttempted, s.BatchesFailed)
	fmt.Fprintf(&b, "Duration: %s\n", s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond))

	if len(s.RejectReasons) > 0 {
		reasons := make([]string, 0, len(s.RejectReasons))
		for reason := range s.RejectReasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool {
			ri, rj := s.RejectReasons[reasons[i]], s.RejectReasons[reasons[j]]
			if ri != rj {
				return ri > rj
			}
			return reasons[i] < reasons[j]
		})
		b.WriteString("Rejections:\n")
		for _, reason := range reasons {
			fmt.Fprintf(&b, "- %s: %d\n", reason, s.RejectReasons[reason])
		}
	}

	if s.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", s.Error)
	}
	return b.String()
}
