package auth

import (
	"bytes"
	"sort"

	"sealvault-node/types"

	jsoniter "github.com/json-iterator/go"
)

/**
 * BuildPayload produces the canonical byte form of an authorization
 * payload. Field order is fixed — operation, recordId, extra keys in
 * sorted order, timestamp, network — so independent signer and verifier
 * implementations agree byte for byte. Any post-signing mutation of a
 * field changes the canonical bytes and fails verification.
 */
func BuildPayload(operation string, recordId string, extra map[string]string, timestamp int64, network string) ([]byte, error) {
	if operation == "" {
		return nil, types.Wrapf(types.ErrMissingField, "operation")
	}
	if recordId == "" {
		return nil, types.Wrapf(types.ErrMissingField, "recordId")
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		// a reserved name would emit a duplicate JSON field and break
		// canonical byte agreement between signer and verifier.
		switch k {
		case "operation", "recordId", "timestamp", "network":
			return nil, types.Wrapf(types.ErrBuildPayload, "reserved field %s", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeField(&buf, "operation", operation, false); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "recordId", recordId, true); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := writeField(&buf, k, extra[k], true); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(',')
	buf.WriteString(`"timestamp":`)
	ts, err := jsoniter.Marshal(timestamp)
	if err != nil {
		return nil, types.Wrap(types.ErrBuildPayload, err)
	}
	buf.Write(ts)
	if err := writeField(&buf, "network", network, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value string, comma bool) error {
	if comma {
		buf.WriteByte(',')
	}
	k, err := jsoniter.Marshal(key)
	if err != nil {
		return types.Wrap(types.ErrBuildPayload, err)
	}
	v, err := jsoniter.Marshal(value)
	if err != nil {
		return types.Wrap(types.ErrBuildPayload, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
