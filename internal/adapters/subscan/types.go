package subscan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// envelope wraps every Subscan response.
//
//	{"code": 0, "message": "Success", "generated_at": 1700000000, "data": {...}}
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type rewardSlashRequest struct {
	Row     int    `json:"row"`
	Page    int    `json:"page"`
	Address string `json:"address"`
}

// rewardItem is one entry of data.list. Account, params, block and
// extrinsic/event positions are not decoded.
type rewardItem struct {
	Amount         decimal.Decimal `json:"amount"`
	BlockTimestamp int64           `json:"block_timestamp"`
	EventID        string          `json:"event_id"`
	ModuleID       string          `json:"module_id"`
	ExtrinsicHash  string          `json:"extrinsic_hash"`
	Stash          string          `json:"stash"`
}

type priceConverterRequest struct {
	Time  int64  `json:"time"`
	Value int    `json:"value"`
	From  string `json:"from"`
	Quote string `json:"quote"`
}

type priceConverterData struct {
	Output json.Number `json:"output"`
}

// keyed decodes a JSON array or object into a map keyed by integer index.
// isNull reports a JSON null; ok=false means raw is not a collection.
func keyed(raw json.RawMessage) (m map[int]json.RawMessage, isNull, ok bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, true, true, nil
	}
	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, false, true, err
		}
		m = make(map[int]json.RawMessage, len(arr))
		for i, v := range arr {
			m[i] = v
		}
		return m, false, true, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, false, true, err
		}
		m = make(map[int]json.RawMessage, len(obj))
		for k, v := range obj {
			i, err := strconv.Atoi(k)
			if err != nil {
				return nil, false, false, nil
			}
			m[i] = v
		}
		return m, false, true, nil
	default:
		return nil, false, false, nil
	}
}

func errorf(code int, msg string) error {
	return fmt.Errorf("subscan error %d: %s", code, msg)
}
