package registry

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/smnsjas/go-winrm/internal/dictify"
	"github.com/smnsjas/go-winrm/wsman"
)

const methodNamespace = "p"

// Client invokes StdRegProv methods over a WSMan client (§4.6).
type Client struct {
	ws *wsman.Client
}

// New wraps ws as a registry client.
func New(ws *wsman.Client) *Client {
	return &Client{ws: ws}
}

func (c *Client) invoke(ctx context.Context, method string, params [][2]string) (map[string]any, error) {
	body := buildInput(method, params)
	respBody, err := c.ws.Invoke(ctx, wsman.ResourceURIStdRegProv, nil, method, body)
	if err != nil {
		return nil, err
	}
	return dictify.Dictify(respBody)
}

func buildInput(method string, params [][2]string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<%s:%s_INPUT xmlns:%s="%s">`, methodNamespace, method, methodNamespace, wsman.ResourceURIStdRegProv)
	for _, kv := range params {
		buf.WriteString(`<`)
		buf.WriteString(methodNamespace)
		buf.WriteString(`:`)
		buf.WriteString(kv[0])
		buf.WriteString(`>`)
		if err := xml.EscapeText(&buf, []byte(kv[1])); err != nil {
			// EscapeText only fails on Write errors from the underlying
			// writer, which bytes.Buffer never returns.
			panic(err)
		}
		buf.WriteString(`</`)
		buf.WriteString(methodNamespace)
		buf.WriteString(`:`)
		buf.WriteString(kv[0])
		buf.WriteString(`>`)
	}
	fmt.Fprintf(&buf, `</%s:%s_INPUT>`, methodNamespace, method)
	return buf.Bytes()
}

func treeParam(k Key) [2]string {
	return [2]string{"hDefKey", strconv.FormatUint(uint64(k.Tree), 10)}
}

func pathParam(k Key) [2]string {
	return [2]string{"sSubKeyName", k.Path}
}

func nameParam(name string) [2]string {
	return [2]string{"sValueName", name}
}

// CreateKey creates k, including any missing intermediate keys.
func (c *Client) CreateKey(ctx context.Context, k Key) error {
	_, err := c.invoke(ctx, "CreateKey", [][2]string{treeParam(k), pathParam(k)})
	return err
}

// DeleteKey deletes k. k must have no subkeys.
func (c *Client) DeleteKey(ctx context.Context, k Key) error {
	_, err := c.invoke(ctx, "DeleteKey", [][2]string{treeParam(k), pathParam(k)})
	return err
}

// DeleteValue deletes the named value under k.
func (c *Client) DeleteValue(ctx context.Context, k Key, name string) error {
	_, err := c.invoke(ctx, "DeleteValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	return err
}

// ValueInfo names one value and its reported type.
type ValueInfo struct {
	Name string
	Type ValueType
}

// EnumValues lists the values stored directly under k.
func (c *Client) EnumValues(ctx context.Context, k Key) ([]ValueInfo, error) {
	out, err := c.invoke(ctx, "EnumValues", [][2]string{treeParam(k), pathParam(k)})
	if err != nil {
		return nil, err
	}
	names := dictify.StringSlice(out["sNames"])
	types := out["Types"]

	typeList := func() []int64 {
		switch t := types.(type) {
		case nil:
			return nil
		case []any:
			vals := make([]int64, len(t))
			for i, v := range t {
				vals[i] = dictify.Int64(v)
			}
			return vals
		default:
			return []int64{dictify.Int64(t)}
		}
	}()

	infos := make([]ValueInfo, len(names))
	for i, name := range names {
		info := ValueInfo{Name: name}
		if i < len(typeList) {
			info.Type = ValueType(typeList[i])
		}
		infos[i] = info
	}
	return infos, nil
}

// EnumKey lists the subkeys stored directly under k.
func (c *Client) EnumKey(ctx context.Context, k Key) ([]string, error) {
	out, err := c.invoke(ctx, "EnumKey", [][2]string{treeParam(k), pathParam(k)})
	if err != nil {
		return nil, err
	}
	return dictify.StringSlice(out["sNames"]), nil
}

// GetStringValue reads a REG_SZ value.
func (c *Client) GetStringValue(ctx context.Context, k Key, name string) (string, error) {
	out, err := c.invoke(ctx, "GetStringValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	if err != nil {
		return "", err
	}
	return dictify.String(out["sValue"]), nil
}

// SetStringValue writes a REG_SZ value.
func (c *Client) SetStringValue(ctx context.Context, k Key, name, value string) error {
	_, err := c.invoke(ctx, "SetStringValue", [][2]string{treeParam(k), pathParam(k), nameParam(name), {"sValue", value}})
	return err
}

// GetExpandedStringValue reads a REG_EXPAND_SZ value.
func (c *Client) GetExpandedStringValue(ctx context.Context, k Key, name string) (string, error) {
	out, err := c.invoke(ctx, "GetExpandedStringValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	if err != nil {
		return "", err
	}
	return dictify.String(out["sValue"]), nil
}

// SetExpandedStringValue writes a REG_EXPAND_SZ value.
func (c *Client) SetExpandedStringValue(ctx context.Context, k Key, name, value string) error {
	_, err := c.invoke(ctx, "SetExpandedStringValue", [][2]string{treeParam(k), pathParam(k), nameParam(name), {"sValue", value}})
	return err
}

// GetMultiStringValue reads a REG_MULTI_SZ value.
func (c *Client) GetMultiStringValue(ctx context.Context, k Key, name string) ([]string, error) {
	out, err := c.invoke(ctx, "GetMultiStringValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	if err != nil {
		return nil, err
	}
	return dictify.StringSlice(out["sValue"]), nil
}

// SetMultiStringValue writes a REG_MULTI_SZ value.
func (c *Client) SetMultiStringValue(ctx context.Context, k Key, name string, values []string) error {
	params := [][2]string{treeParam(k), pathParam(k), nameParam(name)}
	for _, v := range values {
		params = append(params, [2]string{"sValue", v})
	}
	_, err := c.invoke(ctx, "SetMultiStringValue", params)
	return err
}

// GetBinaryValue reads a REG_BINARY value.
func (c *Client) GetBinaryValue(ctx context.Context, k Key, name string) ([]byte, error) {
	out, err := c.invoke(ctx, "GetBinaryValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	if err != nil {
		return nil, err
	}
	var items []any
	switch v := out["uValue"].(type) {
	case nil:
	case []any:
		items = v
	default:
		items = []any{v}
	}
	result := make([]byte, len(items))
	for i, v := range items {
		result[i] = byte(dictify.Int64(v))
	}
	return result, nil
}

// SetBinaryValue writes a REG_BINARY value.
func (c *Client) SetBinaryValue(ctx context.Context, k Key, name string, value []byte) error {
	params := [][2]string{treeParam(k), pathParam(k), nameParam(name)}
	for _, b := range value {
		params = append(params, [2]string{"uValue", strconv.Itoa(int(b))})
	}
	_, err := c.invoke(ctx, "SetBinaryValue", params)
	return err
}

// GetDWORDValue reads a REG_DWORD value.
func (c *Client) GetDWORDValue(ctx context.Context, k Key, name string) (uint32, error) {
	out, err := c.invoke(ctx, "GetDWORDValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	if err != nil {
		return 0, err
	}
	return uint32(dictify.Int64(out["uValue"])), nil
}

// SetDWORDValue writes a REG_DWORD value.
func (c *Client) SetDWORDValue(ctx context.Context, k Key, name string, value uint32) error {
	_, err := c.invoke(ctx, "SetDWORDValue", [][2]string{treeParam(k), pathParam(k), nameParam(name), {"uValue", strconv.FormatUint(uint64(value), 10)}})
	return err
}

// GetQWORDValue reads a REG_QWORD value.
func (c *Client) GetQWORDValue(ctx context.Context, k Key, name string) (uint64, error) {
	out, err := c.invoke(ctx, "GetQWORDValue", [][2]string{treeParam(k), pathParam(k), nameParam(name)})
	if err != nil {
		return 0, err
	}
	return uint64(dictify.Int64(out["uValue"])), nil
}

// SetQWORDValue writes a REG_QWORD value.
func (c *Client) SetQWORDValue(ctx context.Context, k Key, name string, value uint64) error {
	_, err := c.invoke(ctx, "SetQWORDValue", [][2]string{treeParam(k), pathParam(k), nameParam(name), {"uValue", strconv.FormatUint(value, 10)}})
	return err
}

// GetValue reads the value named name under k, dispatching on t.
func (c *Client) GetValue(ctx context.Context, k Key, name string, t ValueType) (Value, error) {
	switch t {
	case TypeString:
		s, err := c.GetStringValue(ctx, k, name)
		return StringValue(s), err
	case TypeExpandString:
		s, err := c.GetExpandedStringValue(ctx, k, name)
		return ExpandStringValue(s), err
	case TypeMultiString:
		ss, err := c.GetMultiStringValue(ctx, k, name)
		return MultiStringValue(ss), err
	case TypeBinary:
		b, err := c.GetBinaryValue(ctx, k, name)
		return BinaryValue(b), err
	case TypeDWord:
		v, err := c.GetDWORDValue(ctx, k, name)
		return DWordValue(v), err
	case TypeQWord:
		v, err := c.GetQWORDValue(ctx, k, name)
		return QWordValue(v), err
	default:
		return Value{}, fmt.Errorf("registry: unsupported value type %d", t)
	}
}

// Values returns a read-only name→value view of everything stored
// directly under k, built from one EnumValues plus one Get per
// reported name (§4.6 "values view" convenience).
func (c *Client) Values(ctx context.Context, k Key) (map[string]Value, error) {
	infos, err := c.EnumValues(ctx, k)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(infos))
	for _, info := range infos {
		v, err := c.GetValue(ctx, k, info.Name, info.Type)
		if err != nil {
			return nil, err
		}
		out[info.Name] = v
	}
	return out, nil
}
