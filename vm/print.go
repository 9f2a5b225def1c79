package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gloudx/longtable/value"
)

// printValue renders v for the `print` builtin. This is a placeholder
// until the printer package's canonical writer is wired in here; it
// need not round-trip, only read legibly at a REPL.
func printValue(v value.Value) string {
	switch v.Kind() {
	case value.KindNil:
		return "nil"
	case value.KindBool:
		return strconv.FormatBool(v.AsBool())
	case value.KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case value.KindFloat:
		s := strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case value.KindString:
		return strconv.Quote(v.AsString())
	case value.KindSymbol:
		return v.SymbolName()
	case value.KindKeyword:
		return ":" + v.SymbolName()
	case value.KindEntityRef:
		ref := v.AsEntity()
		return fmt.Sprintf("#entity[%d:%d]", ref.Index, ref.Generation)
	case value.KindVec:
		var b strings.Builder
		b.WriteByte('[')
		first := true
		v.AsVec().ForEach(func(item value.Value) bool {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(printValue(item))
			return true
		})
		b.WriteByte(']')
		return b.String()
	case value.KindSet:
		var b strings.Builder
		b.WriteString("#{")
		first := true
		v.AsSet().ForEach(func(item value.Value) bool {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(printValue(item))
			return true
		})
		b.WriteByte('}')
		return b.String()
	case value.KindMap:
		var b strings.Builder
		b.WriteByte('{')
		first := true
		v.AsMap().ForEach(func(k, val value.Value) bool {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(printValue(k))
			b.WriteByte(' ')
			b.WriteString(printValue(val))
			return true
		})
		b.WriteByte('}')
		return b.String()
	case value.KindFn:
		name := v.AsFn().Name
		if name == "" {
			name = "anonymous"
		}
		return "#fn[" + name + "]"
	default:
		return "#unknown"
	}
}
