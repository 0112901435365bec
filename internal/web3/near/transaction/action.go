package transaction

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"NEAR-Swarm/internal/web3/near/yocto"
)

// DefaultFunctionCallGas 是未指定 gas 时函数调用附带的 30 TGas。
const DefaultFunctionCallGas uint64 = 30_000_000_000_000

// Action 是交易中的一个动作，按 NEAR 的枚举顺序编码。
type Action interface {
	Kind() string
	encode(e *encoder) error
}

// 动作在 borsh 枚举中的序号。
const (
	tagCreateAccount  uint8 = 0
	tagDeployContract uint8 = 1
	tagFunctionCall   uint8 = 2
	tagTransfer       uint8 = 3
	tagDeleteAccount  uint8 = 7
)

// CreateAccount 创建交易接收方账户。
type CreateAccount struct{}

func (CreateAccount) Kind() string { return "create_account" }

func (CreateAccount) encode(e *encoder) error {
	e.u8(tagCreateAccount)
	return nil
}

// DeployContract 部署合约字节码。
type DeployContract struct {
	Code []byte
}

func (DeployContract) Kind() string { return "deploy_contract" }

func (a DeployContract) encode(e *encoder) error {
	e.u8(tagDeployContract)
	e.bytes(a.Code)
	return nil
}

// FunctionCall 调用合约方法。
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int
}

func (FunctionCall) Kind() string { return "function_call" }

func (a FunctionCall) encode(e *encoder) error {
	e.u8(tagFunctionCall)
	e.string(a.MethodName)
	e.bytes(a.Args)
	e.u64(a.Gas)
	return e.u128(a.Deposit)
}

// Transfer 转账 Deposit yoctoNEAR。
type Transfer struct {
	Deposit *big.Int
}

func (Transfer) Kind() string { return "transfer" }

func (a Transfer) encode(e *encoder) error {
	e.u8(tagTransfer)
	return e.u128(a.Deposit)
}

// DeleteAccount 删除接收方账户并把余额转给 BeneficiaryID。
type DeleteAccount struct {
	BeneficiaryID string
}

func (DeleteAccount) Kind() string { return "delete_account" }

func (a DeleteAccount) encode(e *encoder) error {
	e.u8(tagDeleteAccount)
	e.string(a.BeneficiaryID)
	return nil
}

// ParseActions 把调用方传入的无类型动作列表转换为 Action。元素可以是已构造的
// Action，也可以是形如 {"type": "transfer", "deposit": "1"} 的映射。
func ParseActions(raw []any) ([]Action, error) {
	actions := make([]Action, 0, len(raw))
	for i, item := range raw {
		action, err := parseAction(item)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个动作无效: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func parseAction(item any) (Action, error) {
	switch v := item.(type) {
	case Action:
		return v, nil
	case map[string]any:
		return parseActionMap(v)
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, err
		}
		return parseActionMap(m)
	default:
		return nil, fmt.Errorf("不支持的动作类型 %T", item)
	}
}

func parseActionMap(m map[string]any) (Action, error) {
	kind, _ := m["type"].(string)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "create_account":
		return CreateAccount{}, nil
	case "deploy_contract":
		code, _ := m["code"].(string)
		decoded, err := base64.StdEncoding.DecodeString(code)
		if err != nil || len(decoded) == 0 {
			return nil, fmt.Errorf("deploy_contract 需要 base64 编码的 code")
		}
		return DeployContract{Code: decoded}, nil
	case "function_call":
		method, _ := m["method_name"].(string)
		if strings.TrimSpace(method) == "" {
			return nil, fmt.Errorf("function_call 需要 method_name")
		}
		args, err := encodeArgs(m["args"])
		if err != nil {
			return nil, err
		}
		gas, err := parseGas(m["gas"])
		if err != nil {
			return nil, err
		}
		deposit := new(big.Int)
		if raw, ok := m["deposit"]; ok && raw != nil {
			if deposit, err = yocto.FromAny(raw); err != nil {
				return nil, err
			}
		}
		return FunctionCall{MethodName: method, Args: args, Gas: gas, Deposit: deposit}, nil
	case "transfer":
		deposit, err := yocto.FromAny(m["deposit"])
		if err != nil {
			return nil, fmt.Errorf("transfer 金额无效: %w", err)
		}
		return Transfer{Deposit: deposit}, nil
	case "delete_account":
		beneficiary, _ := m["beneficiary_id"].(string)
		if strings.TrimSpace(beneficiary) == "" {
			return nil, fmt.Errorf("delete_account 需要 beneficiary_id")
		}
		return DeleteAccount{BeneficiaryID: beneficiary}, nil
	case "":
		return nil, fmt.Errorf("动作缺少 type 字段")
	default:
		return nil, fmt.Errorf("不支持的动作 %q", kind)
	}
}

func encodeArgs(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return []byte("{}"), nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("序列化 args 失败: %w", err)
		}
		return encoded, nil
	}
}

func parseGas(raw any) (uint64, error) {
	switch v := raw.(type) {
	case nil:
		return DefaultFunctionCallGas, nil
	case string:
		gas, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("无效的 gas %q", v)
		}
		return gas, nil
	case json.Number:
		return parseGas(v.String())
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("无效的 gas %v", v)
		}
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("无效的 gas %d", v)
		}
		return uint64(v), nil
	case uint64:
		return v, nil
	default:
		return 0, fmt.Errorf("不支持的 gas 类型 %T", raw)
	}
}
