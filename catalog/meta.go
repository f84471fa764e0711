package catalog

import (
	"fmt"
	"time"
)

// Product meta keys written on push.
const (
	MetaHTSCode         = "_hts_code"
	MetaHTSConfidence   = "_hts_confidence"
	MetaHTSUpdated      = "_hts_updated"
	MetaCountryOfOrigin = "_country_of_origin"
)

// MetaEntry is one product meta_data key/value pair.
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HTSMeta builds the meta entries for an approved code. confidence is a
// fraction and is written as a percentage ("92.0%"). countryOfOrigin is
// omitted when empty.
func HTSMeta(code string, confidence float64, at time.Time, countryOfOrigin string) []MetaEntry {
	meta := []MetaEntry{
		{Key: MetaHTSCode, Value: code},
		{Key: MetaHTSConfidence, Value: fmt.Sprintf("%.1f%%", confidence*100)},
		{Key: MetaHTSUpdated, Value: at.UTC().Format(time.RFC3339)},
	}
	if countryOfOrigin != "" {
		meta = append(meta, MetaEntry{Key: MetaCountryOfOrigin, Value: countryOfOrigin})
	}
	return meta
}
