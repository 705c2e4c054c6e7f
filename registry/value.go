package registry

// ValueType is the WMI numeric type code StdRegProv reports for a
// registry value.
type ValueType int

const (
	TypeString       ValueType = 1 // REG_SZ
	TypeExpandString ValueType = 2 // REG_EXPAND_SZ
	TypeBinary       ValueType = 3 // REG_BINARY
	TypeDWord        ValueType = 4 // REG_DWORD
	TypeMultiString  ValueType = 7 // REG_MULTI_SZ
	TypeQWord        ValueType = 11 // REG_QWORD
)

// Value is a tagged variant over the six registry value kinds (§3).
// Exactly one of the typed fields is meaningful, selected by Type.
type Value struct {
	Type ValueType

	String       string
	ExpandString string
	MultiString  []string
	Binary       []byte
	DWord        uint32
	QWord        uint64
}

// StringValue builds a REG_SZ value.
func StringValue(s string) Value { return Value{Type: TypeString, String: s} }

// ExpandStringValue builds a REG_EXPAND_SZ value.
func ExpandStringValue(s string) Value { return Value{Type: TypeExpandString, ExpandString: s} }

// MultiStringValue builds a REG_MULTI_SZ value.
func MultiStringValue(ss []string) Value { return Value{Type: TypeMultiString, MultiString: ss} }

// BinaryValue builds a REG_BINARY value.
func BinaryValue(b []byte) Value { return Value{Type: TypeBinary, Binary: b} }

// DWordValue builds a REG_DWORD value.
func DWordValue(v uint32) Value { return Value{Type: TypeDWord, DWord: v} }

// QWordValue builds a REG_QWORD value.
func QWordValue(v uint64) Value { return Value{Type: TypeQWord, QWord: v} }
