package mysql

import (
	"strconv"
)

// Text resultset row decoding (spec.md §4.1): every column is either the
// lenenc NULL marker or a lenenc-length-prefixed string, parsed into its
// logical type using ColumnMetadata. Grounded on spec.md §4.1/§3 directly.

func decodeTextRow(body []byte, cols []ColumnMetadata) ([]FieldView, error) {
	r := newByteReader(body)
	values := make([]FieldView, len(cols))
	for i, col := range cols {
		raw, isNull, err := r.readLenEncString()
		if err != nil {
			return nil, err
		}
		if isNull {
			values[i] = nullFieldView(col.Logical)
			continue
		}
		v, err := parseTextValue(raw, &col)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	if err := r.extraBytesError(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseTextValue(raw []byte, col *ColumnMetadata) (FieldView, error) {
	s := string(raw)
	switch col.Logical {
	case LogicalInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return FieldView{}, newProtocolError(ErrProtocolValue, "invalid integer text value %q: %v", s, err)
		}
		return FieldView{Logical: LogicalInt64, Int64: v}, nil
	case LogicalUint64, LogicalYear, LogicalBit:
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return FieldView{}, newProtocolError(ErrProtocolValue, "invalid unsigned integer text value %q: %v", s, err)
		}
		return FieldView{Logical: col.Logical, Uint64: v}, nil
	case LogicalFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return FieldView{}, newProtocolError(ErrProtocolValue, "invalid float text value %q: %v", s, err)
		}
		return FieldView{Logical: LogicalFloat64, Float64: v}, nil
	default:
		// decimal, string, bytes, date/time/datetime, enum, set, json all
		// travel as their raw text form in the text protocol; callers that
		// need a parsed Date/Time/DateTime use the binary protocol via a
		// prepared statement instead (spec.md §4.1 text-row note).
		return FieldView{Logical: col.Logical, Bytes: append([]byte(nil), raw...)}, nil
	}
}
