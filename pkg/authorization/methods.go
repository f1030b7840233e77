package authorization

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/constant"
)

// MethodMask is a bit set over HTTP method ordinals. A requirement's mask
// declares which request methods the requirement applies to. The mask is
// advisory metadata for callers, it never gates the chain evaluator itself.
type MethodMask uint32

const NoMethods MethodMask = 0

var methodOrdinals = map[string]uint{
	http.MethodGet:     0,
	http.MethodHead:    1,
	http.MethodPost:    2,
	http.MethodPut:     3,
	http.MethodPatch:   4,
	http.MethodDelete:  5,
	http.MethodConnect: 6,
	http.MethodOptions: 7,
	http.MethodTrace:   8,
}

// AnyMethod covers every known HTTP method.
var AnyMethod = func() MethodMask {
	var mask MethodMask
	for _, ordinal := range methodOrdinals {
		mask |= 1 << ordinal
	}
	return mask
}()

// MethodBit returns the mask bit for a single HTTP method, zero for methods
// outside the known set.
func MethodBit(method string) MethodMask {
	ordinal, found := methodOrdinals[strings.ToUpper(method)]
	if !found {
		return NoMethods
	}
	return 1 << ordinal
}

// Contains checks whether the mask has the bit for the given method set.
func (m MethodMask) Contains(method string) bool {
	bit := MethodBit(method)
	return bit != NoMethods && m&bit != 0
}

// ParseMethods builds a mask from a list of method names. An empty list or the
// ANY keyword yields AnyMethod, matching a requirement given without a method
// restriction.
func ParseMethods(methods []string) (MethodMask, error) {
	if len(methods) == 0 {
		return AnyMethod, nil
	}

	var mask MethodMask
	for _, method := range methods {
		if strings.EqualFold(method, constant.AnyMethod) {
			return AnyMethod, nil
		}

		bit := MethodBit(method)
		if bit == NoMethods {
			return NoMethods, fmt.Errorf("%w: %s", apperrors.ErrInvalidMethod, method)
		}
		mask |= bit
	}

	return mask, nil
}
