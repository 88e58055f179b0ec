package mysql

import "fmt"

// LogicalType is the client-facing classification of a column, derived from
// the wire protocol's raw type code plus its flags and collation (spec.md
// §3 "ColumnMetadata... logical_type is derived, not stored independently").
// No teacher file in the pack owns this derivation (go/sqltypes is absent);
// built directly from spec.md §3's type table.
type LogicalType int

const (
	LogicalUnknown LogicalType = iota
	LogicalInt64
	LogicalUint64
	LogicalFloat64
	LogicalDecimal
	LogicalString
	LogicalBytes
	LogicalDate
	LogicalTime
	LogicalDateTime
	LogicalYear
	LogicalBit
	LogicalEnum
	LogicalSet
	LogicalJSON
	LogicalNull
)

func (t LogicalType) String() string {
	switch t {
	case LogicalInt64:
		return "int64"
	case LogicalUint64:
		return "uint64"
	case LogicalFloat64:
		return "float64"
	case LogicalDecimal:
		return "decimal"
	case LogicalString:
		return "string"
	case LogicalBytes:
		return "bytes"
	case LogicalDate:
		return "date"
	case LogicalTime:
		return "time"
	case LogicalDateTime:
		return "datetime"
	case LogicalYear:
		return "year"
	case LogicalBit:
		return "bit"
	case LogicalEnum:
		return "enum"
	case LogicalSet:
		return "set"
	case LogicalJSON:
		return "json"
	case LogicalNull:
		return "null"
	default:
		return "unknown"
	}
}

// ColumnMetadata is the decoded, client-facing form of a ColumnDefinition41
// packet (spec.md §3).
type ColumnMetadata struct {
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	CharsetID    uint16
	ColumnLength uint32
	Type         uint8
	Flags        uint16
	Decimals     uint8
	Logical      LogicalType
}

// IsUnsigned reports whether the column carries the unsigned flag.
func (c *ColumnMetadata) IsUnsigned() bool { return c.Flags&FlagUnsigned != 0 }

// deriveLogicalType implements spec.md §3's column_type derivation: blob
// family columns are LogicalBytes unless their collation differs from the
// binary collation id, in which case they're LogicalString; ENUM/SET flags
// reclassify a string-family type; NEWDECIMAL surfaces as LogicalDecimal.
func deriveLogicalType(wireType uint8, flags uint16, charsetID uint16) LogicalType {
	switch wireType {
	case TypeTiny, TypeShort, TypeLong, TypeInt24, TypeLongLong, TypeYear:
		if wireType == TypeYear {
			return LogicalYear
		}
		if flags&FlagUnsigned != 0 {
			return LogicalUint64
		}
		return LogicalInt64
	case TypeFloat, TypeDouble:
		return LogicalFloat64
	case TypeDecimal, TypeNewDecimal:
		return LogicalDecimal
	case TypeNull:
		return LogicalNull
	case TypeTimestamp, TypeDatetime:
		return LogicalDateTime
	case TypeDate:
		return LogicalDate
	case TypeTime:
		return LogicalTime
	case TypeBit:
		return LogicalBit
	case TypeJSON:
		return LogicalJSON
	case TypeEnum:
		return LogicalEnum
	case TypeSet:
		return LogicalSet
	case TypeVarchar, TypeVarString, TypeString:
		if flags&FlagEnum != 0 {
			return LogicalEnum
		}
		if flags&FlagSet != 0 {
			return LogicalSet
		}
		return LogicalString
	case TypeTinyBlob, TypeMediumBlob, TypeLongBlob, TypeBlob:
		if charsetID == binaryCollationID {
			return LogicalBytes
		}
		return LogicalString
	case TypeGeometry:
		return LogicalBytes
	default:
		return LogicalUnknown
	}
}

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// Time is a MySQL TIME value: an interval, not a time-of-day, so it carries
// a sign and may exceed 24 hours (spec.md §4.1's TIME length-marker table).
type Time struct {
	Negative bool
	Days     uint32
	Hour     uint8
	Minute   uint8
	Second   uint8
	Micro    uint32
}

// DateTime is a MySQL DATETIME/TIMESTAMP value.
type DateTime struct {
	Date
	Hour   uint8
	Minute uint8
	Second uint8
	Micro  uint32
}

// FieldView is a tagged union over every scalar kind a row value can hold
// (spec.md §3). Exactly one of the typed fields is meaningful, selected by
// Logical; IsNull short-circuits all of them. Built directly from spec.md
// §3 (no surviving teacher sqltypes.Value to ground against).
type FieldView struct {
	Logical  LogicalType
	IsNull   bool
	Int64    int64
	Uint64   uint64
	Float64  float64
	Bytes    []byte // backs LogicalString/LogicalBytes/LogicalDecimal/LogicalEnum/LogicalSet/LogicalJSON
	Date     Date
	Time     Time
	DateTime DateTime
}

// String renders the value for diagnostics, not for SQL text construction;
// this module deliberately exposes no query-building/escaping helpers
// (spec.md Non-goals).
func (f FieldView) String() string {
	if f.IsNull {
		return "NULL"
	}
	switch f.Logical {
	case LogicalInt64:
		return fmt.Sprintf("%d", f.Int64)
	case LogicalUint64, LogicalYear, LogicalBit:
		return fmt.Sprintf("%d", f.Uint64)
	case LogicalFloat64:
		return fmt.Sprintf("%v", f.Float64)
	case LogicalString, LogicalDecimal, LogicalEnum, LogicalSet, LogicalJSON:
		return string(f.Bytes)
	case LogicalBytes:
		return fmt.Sprintf("%x", f.Bytes)
	case LogicalDate:
		return fmt.Sprintf("%04d-%02d-%02d", f.Date.Year, f.Date.Month, f.Date.Day)
	case LogicalTime:
		sign := ""
		if f.Time.Negative {
			sign = "-"
		}
		return fmt.Sprintf("%s%dd %02d:%02d:%02d.%06d", sign, f.Time.Days, f.Time.Hour, f.Time.Minute, f.Time.Second, f.Time.Micro)
	case LogicalDateTime:
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d",
			f.DateTime.Year, f.DateTime.Month, f.DateTime.Day,
			f.DateTime.Hour, f.DateTime.Minute, f.DateTime.Second, f.DateTime.Micro)
	case LogicalNull:
		return "NULL"
	default:
		return fmt.Sprintf("%v", f.Bytes)
	}
}

func nullFieldView(logical LogicalType) FieldView {
	return FieldView{Logical: logical, IsNull: true}
}
