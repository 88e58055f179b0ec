package mysql

// Binary resultset row encoding/decoding (spec.md §4.1's binary row
// format: leading 0x00 marker, null bitmap with a 2-bit offset, then one
// length-marker-prefixed value per non-null column). Date/time
// length-marker switch (0/4/7/11 for DATE/DATETIME, 0/8/12 for TIME)
// cross-checked against ziutek-mymysql/native/codecs.go's
// readNtime/readNdatetime.

func binaryNullBitmapSize(numCols int) int {
	return (numCols + 7 + 2) / 8
}

// decodeBinaryRow decodes one binary-protocol row given its column
// metadata, returning io.EOF's sibling state only via the caller
// (resultset.go); this function only ever decodes a row it's handed.
func decodeBinaryRow(body []byte, cols []ColumnMetadata) ([]FieldView, error) {
	r := newByteReader(body)
	marker, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if marker != 0x00 {
		return nil, newProtocolError(ErrProtocolValue, "expected binary row marker 0x00, got 0x%02x", marker)
	}

	bitmapLen := binaryNullBitmapSize(len(cols))
	bitmap, err := r.readBytes(bitmapLen)
	if err != nil {
		return nil, err
	}

	values := make([]FieldView, len(cols))
	for i, col := range cols {
		bitPos := i + 2
		isNull := bitmap[bitPos/8]&(1<<uint(bitPos%8)) != 0
		if isNull {
			values[i] = nullFieldView(col.Logical)
			continue
		}
		v, err := decodeBinaryValue(r, &col)
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

func decodeBinaryValue(r *byteReader, col *ColumnMetadata) (FieldView, error) {
	switch col.Type {
	case TypeTiny:
		b, err := r.readByte()
		if err != nil {
			return FieldView{}, err
		}
		if col.IsUnsigned() {
			return FieldView{Logical: LogicalUint64, Uint64: uint64(b)}, nil
		}
		return FieldView{Logical: LogicalInt64, Int64: int64(int8(b))}, nil
	case TypeShort, TypeYear:
		v, err := r.readUint16()
		if err != nil {
			return FieldView{}, err
		}
		if col.Type == TypeYear {
			return FieldView{Logical: LogicalYear, Uint64: uint64(v)}, nil
		}
		if col.IsUnsigned() {
			return FieldView{Logical: LogicalUint64, Uint64: uint64(v)}, nil
		}
		return FieldView{Logical: LogicalInt64, Int64: int64(int16(v))}, nil
	case TypeLong, TypeInt24:
		v, err := r.readUint32()
		if err != nil {
			return FieldView{}, err
		}
		if col.IsUnsigned() {
			return FieldView{Logical: LogicalUint64, Uint64: uint64(v)}, nil
		}
		return FieldView{Logical: LogicalInt64, Int64: int64(int32(v))}, nil
	case TypeLongLong:
		v, err := r.readUint64()
		if err != nil {
			return FieldView{}, err
		}
		if col.IsUnsigned() {
			return FieldView{Logical: LogicalUint64, Uint64: v}, nil
		}
		return FieldView{Logical: LogicalInt64, Int64: int64(v)}, nil
	case TypeFloat:
		v, err := r.readFloat32()
		if err != nil {
			return FieldView{}, err
		}
		return FieldView{Logical: LogicalFloat64, Float64: float64(v)}, nil
	case TypeDouble:
		v, err := r.readFloat64()
		if err != nil {
			return FieldView{}, err
		}
		return FieldView{Logical: LogicalFloat64, Float64: v}, nil
	case TypeDate:
		d, err := decodeBinaryDate(r)
		if err != nil {
			return FieldView{}, err
		}
		return FieldView{Logical: LogicalDate, Date: d}, nil
	case TypeTimestamp, TypeDatetime:
		dt, err := decodeBinaryDateTime(r)
		if err != nil {
			return FieldView{}, err
		}
		return FieldView{Logical: LogicalDateTime, DateTime: dt}, nil
	case TypeTime:
		t, err := decodeBinaryTime(r)
		if err != nil {
			return FieldView{}, err
		}
		return FieldView{Logical: LogicalTime, Time: t}, nil
	case TypeBit:
		b, err := r.readNotNullLenEncString()
		if err != nil {
			return FieldView{}, err
		}
		var v uint64
		for _, by := range b {
			v = v<<8 | uint64(by)
		}
		return FieldView{Logical: LogicalBit, Uint64: v}, nil
	default:
		b, err := r.readNotNullLenEncString()
		if err != nil {
			return FieldView{}, err
		}
		return FieldView{Logical: col.Logical, Bytes: append([]byte(nil), b...)}, nil
	}
}

// validateDateComponents enforces the Codec section's out-of-range
// date-component rule (month<=12, day<=31) shared by DATE and DATETIME.
func validateDateComponents(month, day uint8) error {
	if month > 12 {
		return newProtocolError(ErrProtocolValue, "DATE/DATETIME month component %d out of range", month)
	}
	if day > 31 {
		return newProtocolError(ErrProtocolValue, "DATE/DATETIME day component %d out of range", day)
	}
	return nil
}

// validateTimeOfDayComponents enforces spec.md §4.1's hours<24, mins<60,
// secs<60 rule, shared by DATETIME and TIME.
func validateTimeOfDayComponents(hour, minute, second uint8) error {
	if hour >= 24 {
		return newProtocolError(ErrProtocolValue, "time-of-day hour component %d out of range", hour)
	}
	if minute >= 60 {
		return newProtocolError(ErrProtocolValue, "time-of-day minute component %d out of range", minute)
	}
	if second >= 60 {
		return newProtocolError(ErrProtocolValue, "time-of-day second component %d out of range", second)
	}
	return nil
}

// validateMicros enforces spec.md §4.1's micros<1_000_000 rule.
func validateMicros(micro uint32) error {
	if micro >= 1_000_000 {
		return newProtocolError(ErrProtocolValue, "microsecond component %d out of range", micro)
	}
	return nil
}

func decodeBinaryDate(r *byteReader) (Date, error) {
	n, err := r.readByte()
	if err != nil {
		return Date{}, err
	}
	var d Date
	switch n {
	case 0:
		return d, nil
	case 4:
		b, err := r.readBytes(4)
		if err != nil {
			return d, err
		}
		d.Year = uint16(b[0]) | uint16(b[1])<<8
		d.Month = b[2]
		d.Day = b[3]
		if err := validateDateComponents(d.Month, d.Day); err != nil {
			return Date{}, err
		}
		return d, nil
	default:
		return d, newProtocolError(ErrProtocolValue, "unexpected DATE length marker %d", n)
	}
}

func decodeBinaryDateTime(r *byteReader) (DateTime, error) {
	n, err := r.readByte()
	if err != nil {
		return DateTime{}, err
	}
	var dt DateTime
	if n == 0 {
		return dt, nil
	}
	if n != 4 && n != 7 && n != 11 {
		return dt, newProtocolError(ErrProtocolValue, "unexpected DATETIME length marker %d", n)
	}
	b, err := r.readBytes(4)
	if err != nil {
		return dt, err
	}
	dt.Year = uint16(b[0]) | uint16(b[1])<<8
	dt.Month = b[2]
	dt.Day = b[3]
	if err := validateDateComponents(dt.Month, dt.Day); err != nil {
		return DateTime{}, err
	}
	if n >= 7 {
		b, err := r.readBytes(3)
		if err != nil {
			return dt, err
		}
		dt.Hour, dt.Minute, dt.Second = b[0], b[1], b[2]
		if err := validateTimeOfDayComponents(dt.Hour, dt.Minute, dt.Second); err != nil {
			return DateTime{}, err
		}
	}
	if n == 11 {
		b, err := r.readUint32()
		if err != nil {
			return dt, err
		}
		dt.Micro = b
		if err := validateMicros(dt.Micro); err != nil {
			return DateTime{}, err
		}
	}
	return dt, nil
}

func decodeBinaryTime(r *byteReader) (Time, error) {
	n, err := r.readByte()
	if err != nil {
		return Time{}, err
	}
	var t Time
	if n == 0 {
		return t, nil
	}
	if n != 8 && n != 12 {
		return t, newProtocolError(ErrProtocolValue, "unexpected TIME length marker %d", n)
	}
	neg, err := r.readByte()
	if err != nil {
		return t, err
	}
	t.Negative = neg != 0
	days, err := r.readUint32()
	if err != nil {
		return t, err
	}
	t.Days = days
	if days >= 35 {
		return t, newProtocolError(ErrProtocolValue, "TIME days component %d exceeds protocol maximum", days)
	}
	b, err := r.readBytes(3)
	if err != nil {
		return t, err
	}
	t.Hour, t.Minute, t.Second = b[0], b[1], b[2]
	if err := validateTimeOfDayComponents(t.Hour, t.Minute, t.Second); err != nil {
		return Time{}, err
	}
	if n == 12 {
		micro, err := r.readUint32()
		if err != nil {
			return t, err
		}
		t.Micro = micro
		if err := validateMicros(t.Micro); err != nil {
			return Time{}, err
		}
	}
	return t, nil
}

func encodeBinaryDate(w *byteWriter, d Date) {
	if d == (Date{}) {
		w.writeByte(0)
		return
	}
	w.writeByte(4)
	w.writeUint16(d.Year)
	w.writeByte(d.Month)
	w.writeByte(d.Day)
}

func encodeBinaryDateTime(w *byteWriter, dt DateTime) {
	switch {
	case dt == (DateTime{}):
		w.writeByte(0)
	case dt.Micro != 0:
		w.writeByte(11)
		w.writeUint16(dt.Year)
		w.writeByte(dt.Month)
		w.writeByte(dt.Day)
		w.writeByte(dt.Hour)
		w.writeByte(dt.Minute)
		w.writeByte(dt.Second)
		w.writeUint32(dt.Micro)
	case dt.Hour != 0 || dt.Minute != 0 || dt.Second != 0:
		w.writeByte(7)
		w.writeUint16(dt.Year)
		w.writeByte(dt.Month)
		w.writeByte(dt.Day)
		w.writeByte(dt.Hour)
		w.writeByte(dt.Minute)
		w.writeByte(dt.Second)
	default:
		w.writeByte(4)
		w.writeUint16(dt.Year)
		w.writeByte(dt.Month)
		w.writeByte(dt.Day)
	}
}

func encodeBinaryTime(w *byteWriter, t Time) {
	if t == (Time{}) {
		w.writeByte(0)
		return
	}
	if t.Micro != 0 {
		w.writeByte(12)
	} else {
		w.writeByte(8)
	}
	if t.Negative {
		w.writeByte(1)
	} else {
		w.writeByte(0)
	}
	w.writeUint32(t.Days)
	w.writeByte(t.Hour)
	w.writeByte(t.Minute)
	w.writeByte(t.Second)
	if t.Micro != 0 {
		w.writeUint32(t.Micro)
	}
}
