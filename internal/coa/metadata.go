package coa

import (
	"encoding/json"
	"fmt"
)

// DecodeMetadata parses the stored account metadata blob into the typed
// struct. An empty blob yields the zero Metadata (no dimensions, no
// features). Unknown nature-control values are rejected here so the rest
// of the engine never sees an unvalidated enum.
func DecodeMetadata(raw []byte) (Metadata, error) {
	var meta Metadata
	if len(raw) == 0 {
		meta.NatureControl = NatureControlNone
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("coa: decode metadata: %w", err)
	}
	if meta.NatureControl == "" {
		meta.NatureControl = NatureControlNone
	}
	switch meta.NatureControl {
	case NatureControlNone, NatureControlWarn, NatureControlBlock:
	default:
		return Metadata{}, fmt.Errorf("coa: invalid nature control %q", meta.NatureControl)
	}
	return meta, nil
}
