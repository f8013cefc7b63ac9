package raw

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Serialize renders a direct object in PDF syntax. Streams are rendered with
// their Length filled in.
func Serialize(o Object) []byte {
	var b bytes.Buffer
	Append(&b, o)
	return b.Bytes()
}

// Append writes the PDF syntax of o to b.
func Append(b *bytes.Buffer, o Object) {
	switch v := o.(type) {
	case NameObj:
		b.WriteString("/" + nameLiteral(v.Val))
	case NumberObj:
		if v.IsInt {
			b.WriteString(strconv.FormatInt(v.I, 10))
		} else {
			b.WriteString(FormatReal(v.F))
		}
	case BoolObj:
		if v.V {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case NullObj:
		b.WriteString("null")
	case StringObj:
		if v.Hex {
			b.WriteByte('<')
			b.WriteString(strings.ToUpper(hex.EncodeToString(v.Bytes)))
			b.WriteByte('>')
			return
		}
		b.Write(escapeLiteralString(v.Bytes))
	case *ArrayObj:
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			Append(b, it)
		}
		b.WriteByte(']')
	case *DictObj:
		b.WriteString("<<")
		for _, k := range v.Keys() {
			b.WriteString("/" + nameLiteral(k) + " ")
			Append(b, v.KV[k])
		}
		b.WriteString(">>")
	case *StreamObj:
		d := v.Dict
		if d == nil {
			d = Dict()
		}
		d.Set("Length", Int(int64(len(v.Data))))
		Append(b, d)
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
	case RefObj:
		fmt.Fprintf(b, "%d %d R", v.R.Num, v.R.Gen)
	default:
		b.WriteString("null")
	}
}

// FormatReal prints f with at most four decimals and no exponent, the
// precision used for every coordinate written by this package.
func FormatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	r := math.Round(f*10000) / 10000
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func nameLiteral(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.' || ch == '+' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}

func escapeLiteralString(rawBytes []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range rawBytes {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
