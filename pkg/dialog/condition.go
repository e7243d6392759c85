package dialog

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/schema"
)

// Branch operators.
const (
	OpTruthy = "truthy"
	OpExists = "exists"
)

func validOp(op string) bool {
	switch op {
	case OpTruthy, OpExists, "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// evaluate applies op to a blackboard value. Ordering operators compare numbers only.
func evaluate(op string, v any, present bool, want any) bool {
	switch op {
	case OpExists:
		return present
	case OpTruthy:
		return present && truthy(v)
	}
	if !present {
		return op == "!="
	}

	a, errA := number(v)
	b, errB := number(want)
	if errA == nil && errB == nil {
		switch op {
		case "==":
			return a == b
		case "!=":
			return a != b
		case "<":
			return a < b
		case "<=":
			return a <= b
		case ">":
			return a > b
		case ">=":
			return a >= b
		}
	}

	switch op {
	case "==":
		return fmt.Sprint(v) == fmt.Sprint(want)
	case "!=":
		return fmt.Sprint(v) != fmt.Sprint(want)
	}
	return false
}

func number(v any) (float64, error) {
	f, err := schema.Default().Box(schema.Float, v)
	if err != nil {
		return 0, err
	}
	return f.(float64), nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, err := number(v); err == nil {
		return f != 0
	}
	return true
}
