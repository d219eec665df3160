package util

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeString ABI-encodes a single string argument, the form a contract
// constructor taking a base URI expects.
func EncodeString(str string) ([]byte, error) {
	return EncodeArguments([]string{"string"}, []string{str})
}

// EncodeAddresses ABI-encodes a list of addresses as consecutive address arguments.
func EncodeAddresses(addresses ...common.Address) ([]byte, error) {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}

	arguments := make(abi.Arguments, len(addresses))
	values := make([]interface{}, len(addresses))
	for i, addr := range addresses {
		arguments[i] = abi.Argument{Type: addressType}
		values[i] = addr
	}
	return arguments.Pack(values...)
}

// EncodeArguments ABI-encodes values as constructor or call arguments of the given
// Solidity types. Values are given as strings: hex for addresses and bytes,
// decimal or 0x-prefixed hex for integers, true/false for bools.
func EncodeArguments(types []string, values []string) ([]byte, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("got %d types but %d values", len(types), len(values))
	}

	arguments := make(abi.Arguments, len(types))
	packed := make([]interface{}, len(types))
	for i, t := range types {
		typ, err := abi.NewType(strings.TrimSpace(t), "", nil)
		if err != nil {
			return nil, fmt.Errorf("argument %d: invalid type %q: %w", i, t, err)
		}

		value, err := convertArgument(typ, strings.TrimSpace(values[i]))
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, t, err)
		}

		arguments[i] = abi.Argument{Type: typ}
		packed[i] = value
	}

	return arguments.Pack(packed...)
}

func convertArgument(typ abi.Type, value string) (interface{}, error) {
	switch typ.T {
	case abi.StringTy:
		return value, nil

	case abi.AddressTy:
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid address %q", value)
		}
		return common.HexToAddress(value), nil

	case abi.BoolTy:
		return strconv.ParseBool(value)

	case abi.BytesTy:
		return hexutil.Decode(value)

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(value)
		if err != nil {
			return nil, err
		}
		if len(b) != typ.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", typ.Size, len(b))
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(value, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		if typ.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for unsigned type", n)
		}
		if n.BitLen() > typ.Size {
			return nil, fmt.Errorf("value %s overflows %s", n, typ.String())
		}
		if typ.T == abi.IntTy {
			limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
			if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
				return nil, fmt.Errorf("value %s overflows %s", n, typ.String())
			}
		}
		// Only 8, 16, 32 and 64 bit integers map to native Go kinds; the rest pack from *big.Int.
		if typ.GetType() == reflect.TypeOf(n) {
			return n, nil
		}
		if typ.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(typ.GetType()).Interface(), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(typ.GetType()).Interface(), nil
	}

	return nil, fmt.Errorf("unsupported argument type %s", typ.String())
}
