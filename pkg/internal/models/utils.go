package models

import jsoniter "github.com/json-iterator/go"

// FitStruct coerces a loosely typed payload (usually a decoded JSON map)
// into the given struct via a marshal round trip.
func FitStruct(src any, out any) {
	raw, _ := jsoniter.Marshal(src)
	_ = jsoniter.Unmarshal(raw, out)
}
