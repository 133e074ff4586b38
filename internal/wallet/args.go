package wallet

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PackArgs orders named invocation args by the method's ABI inputs and coerces
// each value into the Go type go-ethereum expects for that input.
func PackArgs(method abi.Method, args map[string]any) ([]any, error) {
	out := make([]any, 0, len(method.Inputs))
	for _, in := range method.Inputs {
		raw, ok := args[in.Name]
		if !ok {
			return nil, fmt.Errorf("%s: missing argument %q", method.Name, in.Name)
		}
		v, err := coerce(in.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %q: %w", method.Name, in.Name, err)
		}
		out = append(out, v)
	}
	if len(args) > len(method.Inputs) {
		for name := range args {
			if !hasInput(method, name) {
				return nil, fmt.Errorf("%s: unknown argument %q", method.Name, name)
			}
		}
	}
	return out, nil
}

func hasInput(method abi.Method, name string) bool {
	for _, in := range method.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

func coerce(t abi.Type, raw any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		switch v := raw.(type) {
		case common.Address:
			return v, nil
		case string:
			if !common.IsHexAddress(v) {
				return nil, fmt.Errorf("invalid address %q", v)
			}
			return common.HexToAddress(v), nil
		}
	case abi.UintTy, abi.IntTy:
		n, err := toBig(raw)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)
	case abi.BoolTy:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(v)
		}
	case abi.StringTy:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case abi.FixedBytesTy:
		if t.Size == 32 {
			switch v := raw.(type) {
			case [32]byte:
				return v, nil
			case string:
				if !strings.HasPrefix(v, "0x") || len(v) != 66 {
					return nil, fmt.Errorf("invalid bytes32 %q", v)
				}
				return common.HexToHash(v), nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported value %T for %s", raw, t.String())
}

func toBig(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint8:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	}
	return nil, fmt.Errorf("unsupported integer %T", raw)
}

// sizedInt narrows n to the native type go-ethereum packs for t. Integers wider
// than 64 bits stay *big.Int.
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value for %s", t.String())
	}
	limit := t.Size
	if t.T == abi.IntTy {
		limit--
	}
	if n.BitLen() > limit {
		return nil, fmt.Errorf("value overflows %s", t.String())
	}
	if t.Size > 64 {
		return n, nil
	}
	if t.T == abi.UintTy {
		u := n.Uint64()
		switch t.Size {
		case 8:
			return uint8(u), nil
		case 16:
			return uint16(u), nil
		case 32:
			return uint32(u), nil
		case 64:
			return u, nil
		}
	} else {
		i := n.Int64()
		switch t.Size {
		case 8:
			return int8(i), nil
		case 16:
			return int16(i), nil
		case 32:
			return int32(i), nil
		case 64:
			return i, nil
		}
	}
	return nil, fmt.Errorf("unsupported width %s", t.String())
}
