// Package fingerprint computes the change-detection digest of a snapshot.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/law-makers/reviewwatch/pkg/models"
)

// Of returns the digest of the snapshot's reviews and final result. A nil
// snapshot has the empty fingerprint. ExtractTime never contributes.
//
// The digest is md5 over the reviews encoded as JSON with sorted keys,
// ", " and ": " separators and no ASCII escaping, followed by the final
// result. That is byte-for-byte what earlier versions of the monitor stored,
// so existing state files keep matching.
func Of(s *models.Snapshot) string {
	if s == nil {
		return ""
	}
	sum := md5.Sum([]byte(Canonical(s)))
	return hex.EncodeToString(sum[:])
}

// Canonical returns the exact byte string that Of hashes.
func Canonical(s *models.Snapshot) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, r := range s.Reviews {
		if i > 0 {
			b.WriteString(", ")
		}
		// Keys in sorted order.
		b.WriteString(`{"expert_name": `)
		writeString(&b, r.ExpertName)
		b.WriteString(`, "overall_evaluation": `)
		writeString(&b, r.OverallEvaluation)
		b.WriteString(`, "review_result": `)
		writeString(&b, r.ReviewResult)
		b.WriteString(`, "review_time": `)
		writeString(&b, r.ReviewTime)
		b.WriteByte('}')
	}
	b.WriteByte(']')
	b.WriteString(s.FinalResult)
	return b.String()
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
