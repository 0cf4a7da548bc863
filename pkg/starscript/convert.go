package starscript

import (
	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

func valueToStarlark(v value.Value) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case value.String:
		return starlark.String(v), nil
	case value.Int:
		return starlark.MakeInt64(int64(v)), nil
	case value.Float:
		return starlark.Float(v), nil
	case value.Bool:
		return starlark.Bool(v), nil
	case value.List:
		items := make([]starlark.Value, len(v))
		for idx, raw := range v {
			item, err := valueToStarlark(raw)
			if err != nil {
				return nil, err
			}
			items[idx] = item
		}

		return starlark.NewList(items), nil
	case *value.Map:
		dict := starlark.NewDict(v.Len())
		for _, key := range v.Keys() {
			raw, _ := v.Get(key)
			item, err := valueToStarlark(raw)
			if err != nil {
				return nil, err
			}

			err = dict.SetKey(starlark.String(key), item)
			if err != nil {
				return nil, err
			}
		}

		return dict, nil
	}

	return nil, eris.Errorf("encountered unsupported value of kind %s", v.Kind())
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func starlarkToValue(v starlark.Value) (value.Value, error) {
	switch v := v.(type) {
	case starlark.String:
		return value.String(v.GoString()), nil
	case starlark.Int:
		parsed, ok := v.Int64()
		if !ok {
			return nil, eris.Errorf("integer %s is out of range", v.String())
		}
		return value.Int(parsed), nil
	case starlark.Float:
		return value.Float(v), nil
	case starlark.Bool:
		return value.Bool(v), nil
	case *starlark.Dict:
		result := value.NewMap(v.Len())
		for _, item := range v.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, eris.Errorf("found key type %s in dict but only strings are supported", item[0].Type())
			}

			converted, err := starlarkToValue(item[1])
			if err != nil {
				return nil, eris.Wrapf(err, "invalid value for key %s", key.GoString())
			}
			result.Set(key.GoString(), converted)
		}

		return result, nil
	case starlarkIterable:
		items := make(value.List, 0, v.Len())
		iter := v.Iterate()
		defer iter.Done()

		var item starlark.Value
		for iter.Next(&item) {
			converted, err := starlarkToValue(item)
			if err != nil {
				return nil, err
			}
			items = append(items, converted)
		}

		return items, nil
	}

	return nil, eris.Errorf("values of type %s can't be used here", v.Type())
}
