package policy

import (
	"net/netip"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

// Context carries the request attributes (source IP, requested region and
// so on) that condition blocks are evaluated against.
type Context map[string]string

// evalConditions evaluates every operator/key in the block against the
// request context. All entries must hold for the statement to apply. A
// context key absent from the request fails its condition rather than
// raising an error. Returns the operator and key of the first failed
// condition for trace reporting.
func evalConditions(block iam.ConditionBlock, ctx Context) (op string, key string, ok bool) {
	for op, keys := range block {
		for key, expected := range keys {
			actual, present := ctx[key]
			if !present {
				return op, key, false
			}
			if !evalOperator(op, expected, actual) {
				return op, key, false
			}
		}
	}
	return "", "", true
}

func evalOperator(op string, expected []string, actual string) bool {
	switch op {
	case iam.OpStringEquals:
		for _, want := range expected {
			if actual == want {
				return true
			}
		}
		return false
	case iam.OpStringNotEquals:
		for _, want := range expected {
			if actual == want {
				return false
			}
		}
		return true
	case iam.OpStringLike:
		for _, pattern := range expected {
			if Match(pattern, actual) {
				return true
			}
		}
		return false
	case iam.OpIPAddress:
		return ipInAny(expected, actual)
	case iam.OpNotIPAddress:
		addr, err := netip.ParseAddr(actual)
		if err != nil {
			return false
		}
		for _, cidr := range expected {
			if prefix, err := netip.ParsePrefix(cidr); err == nil && prefix.Contains(addr) {
				return false
			}
		}
		return true
	}
	// Unknown operators are rejected at document validation time.
	return false
}

func ipInAny(cidrs []string, candidate string) bool {
	addr, err := netip.ParseAddr(candidate)
	if err != nil {
		return false
	}
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			// A bare address is treated as a /32 or /128.
			single, aerr := netip.ParseAddr(cidr)
			if aerr == nil && single == addr {
				return true
			}
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
