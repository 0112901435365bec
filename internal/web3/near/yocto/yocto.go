// Package yocto parses and formats NEAR token amounts expressed in
// yoctoNEAR (10^-24 NEAR). Amounts are u128 on chain and always handled as
// big integers.
package yocto

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	gethmath "github.com/ethereum/go-ethereum/common/math"
)

// Decimals 是 1 NEAR 对应的 yoctoNEAR 位数。
const Decimals = 24

var (
	maxU128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	oneNEAR  = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	maxExact = float64(1 << 53)
)

// Parse 解析十进制（或 0x 十六进制）字符串表示的 u128 金额。
func Parse(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("金额不能为空")
	}
	v, ok := gethmath.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("无效的金额 %q", s)
	}
	if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("金额 %s 超出 u128 范围", s)
	}
	return v, nil
}

// FromAny 接受字符串、json.Number 与整数值。浮点数仅在可精确表示时接受。
func FromAny(v any) (*big.Int, error) {
	switch t := v.(type) {
	case string:
		return Parse(t)
	case json.Number:
		return Parse(t.String())
	case *big.Int:
		if t == nil {
			return nil, fmt.Errorf("金额不能为空")
		}
		return Parse(t.String())
	case int:
		return Parse(fmt.Sprint(t))
	case int64:
		return Parse(fmt.Sprint(t))
	case uint64:
		return Parse(fmt.Sprint(t))
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > maxExact {
			return nil, fmt.Errorf("金额 %v 无法精确表示，请使用字符串", t)
		}
		return Parse(fmt.Sprintf("%.0f", t))
	case nil:
		return nil, fmt.Errorf("金额不能为空")
	default:
		return nil, fmt.Errorf("不支持的金额类型 %T", v)
	}
}

// Sub 计算 a - b，两者均为十进制字符串。
func Sub(a, b string) (string, error) {
	x, err := Parse(a)
	if err != nil {
		return "", err
	}
	y, err := Parse(b)
	if err != nil {
		return "", err
	}
	return new(big.Int).Sub(x, y).String(), nil
}

// FormatNEAR 把 yoctoNEAR 转成带小数点的 NEAR 字符串，并去掉末尾的 0。
func FormatNEAR(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)
	whole, frac := new(big.Int).QuoRem(abs, oneNEAR, new(big.Int))

	out := whole.String()
	if frac.Sign() != 0 {
		digits := frac.String()
		digits = strings.Repeat("0", Decimals-len(digits)) + digits
		out += "." + strings.TrimRight(digits, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}
