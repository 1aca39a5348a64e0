package inspect

import (
	"encoding/base64"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/rzbill/txlog/pkg/txlog"
)

// decodedTransaction returns a map with id, time and one of data_json,
// data_text, or data_b64.
func decodedTransaction(tx txlog.Transaction[[]byte]) map[string]any {
	out := map[string]any{
		"id":   tx.ID,
		"time": tx.Time.UTC().Format(time.RFC3339Nano),
	}
	data := tx.Data
	// Try JSON first if it looks like JSON
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		var v any
		if json.Unmarshal(data, &v) == nil {
			out["data_json"] = v
			return out
		}
	}
	// Then UTF-8 text
	if utf8.Valid(data) {
		out["data_text"] = string(data)
		return out
	}
	// Fallback to base64
	out["data_b64"] = base64.StdEncoding.EncodeToString(data)
	return out
}

func decodedCommit(c txlog.CommitInfo[[]byte]) map[string]any {
	txs := make([]map[string]any, len(c.Transactions))
	for i, tx := range c.Transactions {
		txs[i] = decodedTransaction(tx)
	}

	return map[string]any{
		"id":           c.ID,
		"time":         c.Time.UTC().Format(time.RFC3339Nano),
		"transactions": txs,
	}
}
