package hclscript

import (
	"math/big"

	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/rotisserie/eris"
	"github.com/zclconf/go-cty/cty"
)

func toCty(v value.Value) cty.Value {
	switch v := v.(type) {
	case value.String:
		return cty.StringVal(string(v))
	case value.Int:
		return cty.NumberIntVal(int64(v))
	case value.Float:
		return cty.NumberFloatVal(float64(v))
	case value.Bool:
		return cty.BoolVal(bool(v))
	case value.List:
		if len(v) == 0 {
			return cty.EmptyTupleVal
		}
		items := make([]cty.Value, len(v))
		for idx, item := range v {
			items[idx] = toCty(item)
		}
		return cty.TupleVal(items)
	case *value.Map:
		if v.Len() == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, v.Len())
		for _, key := range v.Keys() {
			item, _ := v.Get(key)
			attrs[key] = toCty(item)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

// fromCty converts an evaluated HCL value. Object attributes come out sorted by name.
func fromCty(v cty.Value) (value.Value, error) {
	if v.IsNull() {
		return nil, eris.New("null values are not supported")
	}
	if !v.IsWhollyKnown() {
		return nil, eris.New("unknown values are not supported")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return value.String(v.AsString()), nil
	case ty == cty.Bool:
		return value.Bool(v.True()), nil
	case ty == cty.Number:
		number := v.AsBigFloat()
		if number.IsInt() {
			if i, accuracy := number.Int64(); accuracy == big.Exact {
				return value.Int(i), nil
			}
		}
		f, _ := number.Float64()
		return value.Float(f), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		result := make(value.List, 0)
		for it := v.ElementIterator(); it.Next(); {
			_, item := it.Element()
			converted, err := fromCty(item)
			if err != nil {
				return nil, err
			}
			result = append(result, converted)
		}
		return result, nil
	case ty.IsMapType() || ty.IsObjectType():
		result := value.NewMap(0)
		for it := v.ElementIterator(); it.Next(); {
			key, item := it.Element()
			converted, err := fromCty(item)
			if err != nil {
				return nil, eris.Wrapf(err, "invalid value for %s", key.AsString())
			}
			result.Set(key.AsString(), converted)
		}
		return result, nil
	}

	return nil, eris.Errorf("unsupported type %s", ty.FriendlyName())
}
