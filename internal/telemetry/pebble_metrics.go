package telemetry

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/cockroachdb/pebble"
)

// PebbleMetrics is a compact view of the numbers greylock-compact's
// metrics subcommand reports. Grounded on the pack's
// server/pkg/store/metrics.go reflective walk of pebble.Metrics(),
// adapted from a monitor's fixed field set to a generic named-metric map
// so both stores' metrics can be reported without duplicating field
// lists.
type PebbleMetrics map[string]float64

// SnapshotPebbleMetrics flattens a *pebble.Metrics into a dotted-path map
// of the exported integer and float fields of it and of the structs nested
// in it (through pointers and interfaces). Array, slice and map fields are
// not descended into, so their numbers do not appear in the map.
func SnapshotPebbleMetrics(m *pebble.Metrics) PebbleMetrics {
	out := make(PebbleMetrics)
	if m == nil {
		return out
	}
	flattenStruct("", reflect.ValueOf(m), out)
	return out
}

// Find returns the value of a key that the regular expression pattern
// matches (case-sensitive), tried against both the dotted key and its
// underscored form, or 0 if none matches. When several keys match, which
// one is returned is not defined, since the map is walked in random order.
func (m PebbleMetrics) Find(pattern string) float64 {
	re := regexp.MustCompile(pattern)
	for k, v := range m {
		if re.MatchString(k) || re.MatchString(strings.ReplaceAll(k, ".", "_")) {
			return v
		}
	}
	return 0
}

func flattenStruct(prefix string, v reflect.Value, out map[string]float64) {
	if !v.IsValid() {
		return
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanInterface() {
			continue
		}
		name := t.Field(i).Name
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		fv := f
		for fv.Kind() == reflect.Interface {
			if fv.IsNil() {
				fv = reflect.Value{}
				break
			}
			fv = fv.Elem()
		}
		switch fv.Kind() {
		case reflect.Struct:
			flattenStruct(key, fv, out)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out[key] = float64(fv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out[key] = float64(fv.Uint())
		case reflect.Float32, reflect.Float64:
			out[key] = fv.Float()
		}
	}
}
