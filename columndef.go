package mysql

// ColumnDefinition41 decoding (spec.md §4.1's column-definition table).
// No single teacher file owns this derivation in the retrieval pack
// (go/sqltypes is absent); built directly from spec.md §3/§4.1, with the
// blob-vs-string-by-collation and enum/set-by-flag rules in value.go's
// deriveLogicalType.

// decodeColumnDefinition41 parses one ColumnDefinition41 packet body into
// a ColumnMetadata, deriving Logical per spec.md §3.
func decodeColumnDefinition41(body []byte) (*ColumnMetadata, error) {
	r := newByteReader(body)

	catalog, err := r.readNotNullLenEncString()
	if err != nil {
		return nil, err
	}
	_ = catalog // always "def"; not surfaced

	schema, err := r.readNotNullLenEncString()
	if err != nil {
		return nil, err
	}
	table, err := r.readNotNullLenEncString()
	if err != nil {
		return nil, err
	}
	orgTable, err := r.readNotNullLenEncString()
	if err != nil {
		return nil, err
	}
	name, err := r.readNotNullLenEncString()
	if err != nil {
		return nil, err
	}
	orgName, err := r.readNotNullLenEncString()
	if err != nil {
		return nil, err
	}

	fixedLen, err := r.readNotNullLenEncInt()
	if err != nil {
		return nil, err
	}
	if fixedLen != 0x0c {
		return nil, newProtocolError(ErrProtocolValue, "column definition fixed-length field is %d, want 12", fixedLen)
	}

	charset, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	colLen, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	wireType, err := r.readByte()
	if err != nil {
		return nil, err
	}
	flags, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	decimals, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if _, err := r.readBytes(2); err != nil { // filler
		return nil, err
	}

	cm := &ColumnMetadata{
		Schema:       string(schema),
		Table:        string(table),
		OrgTable:     string(orgTable),
		Name:         string(name),
		OrgName:      string(orgName),
		CharsetID:    charset,
		ColumnLength: colLen,
		Type:         wireType,
		Flags:        flags,
		Decimals:     decimals,
	}
	cm.Logical = deriveLogicalType(wireType, flags, charset)
	return cm, nil
}
