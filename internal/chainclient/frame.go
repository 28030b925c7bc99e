package chainclient

import (
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/virtengine/virtengine-sub011/internal/domain"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// parseFrame tolerantly parses one inbound subscription frame (spec §4.6
// "parse JSON; extract nested TxResult; for each event inside, map the raw
// type to the canonical event type using a static map; if unknown, drop
// silently"). gjson lets this walk an envelope shape that varies across RPC
// node versions without a brittle intermediate struct, matching the
// teacher's own tolerant-parsing style in infrastructure/chain's stack
// parsers.
func parseFrame(raw []byte, chainID string) []domain.ChainEvent {
	root := gjson.ParseBytes(raw)

	txResult := root.Get("result.data.value.TxResult")
	if !txResult.Exists() {
		return nil
	}

	height := uint64(txResult.Get("height").Int())
	txHash := txResult.Get("hash").String()
	if txHash == "" {
		txHash = txResult.Get("tx").String()
	}

	events := txResult.Get("result.events").Array()
	out := make([]domain.ChainEvent, 0, len(events))
	for idx, ev := range events {
		action := attributeValue(ev, "action")
		if action == "" {
			continue
		}
		eventType, ok := domain.RawTypeToEventType[action]
		if !ok {
			continue
		}

		out = append(out, domain.ChainEvent{
			EventID:     signing.EventID(chainID, height, idx, eventType),
			Type:        eventType,
			BlockHeight: height,
			TxIndex:     idx,
			TxHash:      txHash,
			Attributes:  attributesMap(ev),
		})
	}
	return out
}

// attributeValue returns the value of the first attribute in event whose
// key matches name.
func attributeValue(event gjson.Result, name string) string {
	for _, attr := range event.Get("attributes").Array() {
		if attr.Get("key").String() == name {
			return attr.Get("value").String()
		}
	}
	return ""
}

// attributesMap flattens an event's attributes array into a key->value map.
func attributesMap(event gjson.Result) map[string]string {
	attrs := event.Get("attributes").Array()
	out := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		key := attr.Get("key").String()
		if key == "" {
			continue
		}
		out[key] = attr.Get("value").String()
	}
	return out
}

// subscriptionEnvelope is the outbound subscribe request (spec §6
// "Subscription envelope wraps each query as tm.event='Tx' AND <query>").
type subscriptionEnvelope struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	Params  map[string]string `json:"params"`
}

func newSubscription(id int, query string) subscriptionEnvelope {
	return subscriptionEnvelope{
		JSONRPC: "2.0",
		ID:      "sub-" + strconv.Itoa(id),
		Method:  "subscribe",
		Params:  map[string]string{"query": "tm.event='Tx' AND " + query},
	}
}
