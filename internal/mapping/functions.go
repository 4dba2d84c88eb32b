package mapping

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jmespath-community/go-jmespath/pkg/functions"
)

// Functions beyond the JMESPath standard library that mapping files may call.
// items, zip, from_items and group_by are already built into the library.
//
//	to_object(pairs)            [[k, v], ...] -> {k: v, ...}
//	unique(array)               first occurrence of each element, in order
//	exclude(object, keys)       object without the listed keys
//	group_dict_by(object, &e)   {e([k, v]): {k: v, ...}, ...}
var customFunctions = []functions.FunctionEntry{
	{
		Name: "to_object",
		Arguments: []functions.ArgSpec{
			{Types: []functions.JpType{functions.JpArray}},
		},
		Handler: jpfToObject,
	},
	{
		Name: "unique",
		Arguments: []functions.ArgSpec{
			{Types: []functions.JpType{functions.JpArray}},
		},
		Handler: jpfUnique,
	},
	{
		Name: "exclude",
		Arguments: []functions.ArgSpec{
			{Types: []functions.JpType{functions.JpObject}},
			{Types: []functions.JpType{functions.JpArray}},
		},
		Handler: jpfExclude,
	},
	{
		Name: "group_dict_by",
		Arguments: []functions.ArgSpec{
			{Types: []functions.JpType{functions.JpObject}},
			{Types: []functions.JpType{functions.JpExpref}},
		},
		Handler: jpfGroupDictBy,
	},
}

func jpfToObject(arguments []any) (any, error) {
	pairs := arguments[0].([]any)
	out := make(map[string]any, len(pairs))
	for i, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("to_object: element %d is not a [key, value] pair", i)
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("to_object: key of element %d is not a string", i)
		}
		out[key] = pair[1]
	}
	return out, nil
}

func jpfUnique(arguments []any) (any, error) {
	arr := arguments[0].([]any)
	seen := make(map[string]bool, len(arr))
	out := make([]any, 0, len(arr))
	for _, v := range arr {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unique: %w", err)
		}
		if seen[string(b)] {
			continue
		}
		seen[string(b)] = true
		out = append(out, v)
	}
	return out, nil
}

func jpfExclude(arguments []any) (any, error) {
	obj := arguments[0].(map[string]any)
	drop := make(map[string]bool)
	for _, k := range arguments[1].([]any) {
		if s, ok := k.(string); ok {
			drop[s] = true
		}
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if !drop[k] {
			out[k] = v
		}
	}
	return out, nil
}

// jpfGroupDictBy groups the [key, value] pairs of an object with the built-in
// group_by and turns every group back into an object. The argument list is
// passed through unchanged apart from the object, so the expression reference
// reaches group_by exactly as the interpreter supplied it.
func jpfGroupDictBy(arguments []any) (any, error) {
	groupBy := builtin("group_by")
	if groupBy == nil {
		return nil, fmt.Errorf("group_dict_by: group_by is not available")
	}

	args := make([]any, len(arguments))
	copy(args, arguments)

	objAt := -1
	for i, a := range args {
		if _, ok := a.(map[string]any); ok {
			objAt = i
			break
		}
	}
	if objAt < 0 {
		return nil, fmt.Errorf("group_dict_by: first argument must be an object")
	}
	obj := args[objAt].(map[string]any)
	if len(obj) == 0 {
		return obj, nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]any, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, []any{k, obj[k]})
	}
	args[objAt] = pairs

	grouped, err := groupBy(args)
	if err != nil {
		return nil, fmt.Errorf("group_dict_by: %w", err)
	}
	groups, ok := grouped.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("group_dict_by: unexpected group_by result %T", grouped)
	}

	out := make(map[string]any, len(groups))
	for name, members := range groups {
		list, _ := members.([]any)
		inner := make(map[string]any, len(list))
		for _, m := range list {
			pair := m.([]any)
			inner[pair[0].(string)] = pair[1]
		}
		out[name] = inner
	}
	return out, nil
}

// builtin returns the handler of a default library function.
func builtin(name string) func([]any) (any, error) {
	for _, f := range functions.GetDefaultFunctions() {
		if f.Name == name {
			return f.Handler
		}
	}
	return nil
}
