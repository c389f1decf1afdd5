// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"fmt"

	"axonflow/assistant/tools/base"
)

// ParamValue is a tagged union over the value kinds a tool parameter can
// hold. Argument maps are converted into ParamValues and checked against
// the descriptor schema before any backend is touched.
type ParamValue struct {
	Kind base.ParamType
	Str  string
	Num  float64
	Bool bool
	Arr  []ParamValue
	Obj  map[string]ParamValue
}

// FromInterface converts a decoded JSON value into a ParamValue.
func FromInterface(v interface{}) (ParamValue, error) {
	switch x := v.(type) {
	case string:
		return ParamValue{Kind: base.ParamString, Str: x}, nil
	case float64:
		return ParamValue{Kind: base.ParamNumber, Num: x}, nil
	case int:
		return ParamValue{Kind: base.ParamNumber, Num: float64(x)}, nil
	case int64:
		return ParamValue{Kind: base.ParamNumber, Num: float64(x)}, nil
	case bool:
		return ParamValue{Kind: base.ParamBoolean, Bool: x}, nil
	case []interface{}:
		arr := make([]ParamValue, 0, len(x))
		for i, elem := range x {
			pv, err := FromInterface(elem)
			if err != nil {
				return ParamValue{}, fmt.Errorf("array element %d: %w", i, err)
			}
			arr = append(arr, pv)
		}
		return ParamValue{Kind: base.ParamArray, Arr: arr}, nil
	case map[string]interface{}:
		obj := make(map[string]ParamValue, len(x))
		for k, elem := range x {
			pv, err := FromInterface(elem)
			if err != nil {
				return ParamValue{}, fmt.Errorf("object key %q: %w", k, err)
			}
			obj[k] = pv
		}
		return ParamValue{Kind: base.ParamObject, Obj: obj}, nil
	default:
		return ParamValue{}, fmt.Errorf("unsupported argument type %T", v)
	}
}

// Interface converts a ParamValue back into its plain Go form.
func (p ParamValue) Interface() interface{} {
	switch p.Kind {
	case base.ParamString:
		return p.Str
	case base.ParamNumber:
		return p.Num
	case base.ParamBoolean:
		return p.Bool
	case base.ParamArray:
		out := make([]interface{}, 0, len(p.Arr))
		for _, elem := range p.Arr {
			out = append(out, elem.Interface())
		}
		return out
	case base.ParamObject:
		out := make(map[string]interface{}, len(p.Obj))
		for k, elem := range p.Obj {
			out[k] = elem.Interface()
		}
		return out
	default:
		return nil
	}
}

// ValidateArgs checks an argument map against a tool descriptor: required
// parameters must be present, every supplied value must convert cleanly,
// and kinds must match the declared parameter types. Unknown argument
// names are rejected so typos fail loudly instead of being dropped.
func ValidateArgs(desc base.ToolDescriptor, args map[string]interface{}) error {
	for _, spec := range desc.Parameters {
		if _, ok := args[spec.Name]; !ok && spec.Required {
			return fmt.Errorf("tool %s: missing required parameter %q", desc.Name, spec.Name)
		}
	}

	for name, raw := range args {
		spec, ok := desc.Param(name)
		if !ok {
			return fmt.Errorf("tool %s: unknown parameter %q", desc.Name, name)
		}
		pv, err := FromInterface(raw)
		if err != nil {
			return fmt.Errorf("tool %s: parameter %q: %w", desc.Name, name, err)
		}
		if pv.Kind != spec.Type {
			return fmt.Errorf("tool %s: parameter %q: expected %s, got %s",
				desc.Name, name, spec.Type, pv.Kind)
		}
	}
	return nil
}
