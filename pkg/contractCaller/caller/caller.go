package caller

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nftkit/allowlist-go/pkg/merkle"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ChainBackend is the subset of an RPC client the caller needs. *ethclient.Client satisfies it.
type ChainBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

var _ ChainBackend = (*ethclient.Client)(nil)

// ContractCaller reads from an allow-list mint contract and packs calldata for
// transactions that an external signer sends.
type ContractCaller struct {
	backend  ChainBackend
	contract common.Address
	abi      abi.ABI
	logger   *zap.Logger
}

func NewContractCaller(
	backend ChainBackend,
	contract common.Address,
	logger *zap.Logger,
) (*ContractCaller, error) {
	if backend == nil {
		return nil, fmt.Errorf("chain backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := abi.JSON(strings.NewReader(AllowListMintABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse allow-list contract ABI: %w", err)
	}

	return &ContractCaller{
		backend:  backend,
		contract: contract,
		abi:      parsed,
		logger:   logger,
	}, nil
}

// ContractAddress returns the contract this caller talks to.
func (cc *ContractCaller) ContractAddress() common.Address {
	return cc.contract
}

// ChainID returns the chain id reported by the backend.
func (cc *ContractCaller) ChainID(ctx context.Context) (*big.Int, error) {
	chainId, err := cc.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return chainId, nil
}

// call packs method, runs an eth_call at the latest block and unpacks a single return value.
func (cc *ContractCaller) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	data, err := cc.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", method)
	}

	out, err := cc.backend.CallContract(ctx, ethereum.CallMsg{To: &cc.contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s on %s", method, cc.contract.Hex())
	}

	values, err := cc.abi.Unpack(method, out)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s result", method)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values, expected 1", method, len(values))
	}
	return values[0], nil
}

func (cc *ContractCaller) GetName(ctx context.Context) (string, error) {
	v, err := cc.call(ctx, "name")
	if err != nil {
		return "", err
	}
	name, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("name returned %T", v)
	}
	return name, nil
}

func (cc *ContractCaller) GetSymbol(ctx context.Context) (string, error) {
	v, err := cc.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("symbol returned %T", v)
	}
	return symbol, nil
}

// GetBalanceOf returns the token balance of owner.
func (cc *ContractCaller) GetBalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	v, err := cc.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned %T", v)
	}
	return balance, nil
}

// GetMerkleRoot returns the allow-list root configured on the contract.
func (cc *ContractCaller) GetMerkleRoot(ctx context.Context) (common.Hash, error) {
	v, err := cc.call(ctx, "merkleRoot")
	if err != nil {
		return common.Hash{}, err
	}
	root, ok := v.([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("merkleRoot returned %T", v)
	}
	return common.Hash(root), nil
}

// IsValid asks the contract to verify proof for leaf against its stored root.
func (cc *ContractCaller) IsValid(ctx context.Context, proof merkle.Proof, leaf common.Hash) (bool, error) {
	v, err := cc.call(ctx, "isValid", proof.Bytes32(), [32]byte(leaf))
	if err != nil {
		return false, err
	}
	valid, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("isValid returned %T", v)
	}
	return valid, nil
}

// GetAccountBalance returns the native balance of account in wei.
func (cc *ContractCaller) GetAccountBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := cc.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get balance for %s", account.Hex())
	}
	return balance, nil
}

func (cc *ContractCaller) PackMint(quantity *big.Int) ([]byte, error) {
	if quantity == nil || quantity.Sign() <= 0 {
		return nil, fmt.Errorf("mint quantity must be positive")
	}
	return cc.abi.Pack("mint", quantity)
}

func (cc *ContractCaller) PackMintAllowList(proof merkle.Proof, quantity *big.Int) ([]byte, error) {
	if quantity == nil || quantity.Sign() <= 0 {
		return nil, fmt.Errorf("mint quantity must be positive")
	}
	return cc.abi.Pack("mintAllowList", proof.Bytes32(), quantity)
}

func (cc *ContractCaller) PackWithdraw() ([]byte, error) {
	return cc.abi.Pack("withdraw")
}

// BuildMintCall returns the unsigned public mint call. value is the total price in wei.
func (cc *ContractCaller) BuildMintCall(from common.Address, quantity *big.Int, value *big.Int) (*ethereum.CallMsg, error) {
	data, err := cc.PackMint(quantity)
	if err != nil {
		return nil, err
	}
	return cc.buildCall(from, value, data), nil
}

// BuildMintAllowListCall returns the unsigned allow-list mint call for an external signer.
func (cc *ContractCaller) BuildMintAllowListCall(
	from common.Address,
	proof merkle.Proof,
	quantity *big.Int,
	value *big.Int,
) (*ethereum.CallMsg, error) {
	data, err := cc.PackMintAllowList(proof, quantity)
	if err != nil {
		return nil, err
	}

	cc.logger.Sugar().Debugw("Built mintAllowList call",
		zap.String("from", from.Hex()),
		zap.String("contract", cc.contract.Hex()),
		zap.Int("proofLength", len(proof)),
		zap.String("quantity", quantity.String()),
	)
	return cc.buildCall(from, value, data), nil
}

// BuildWithdrawCall returns the unsigned owner withdrawal call.
func (cc *ContractCaller) BuildWithdrawCall(from common.Address) (*ethereum.CallMsg, error) {
	data, err := cc.PackWithdraw()
	if err != nil {
		return nil, err
	}
	return cc.buildCall(from, nil, data), nil
}

func (cc *ContractCaller) buildCall(from common.Address, value *big.Int, data []byte) *ethereum.CallMsg {
	if value == nil {
		value = big.NewInt(0)
	}
	to := cc.contract
	return &ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: new(big.Int).Set(value),
		Data:  data,
	}
}

// EstimateGas asks the node how much gas msg would use. A revert, for example an
// invalid proof, surfaces here as an error.
func (cc *ContractCaller) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := cc.backend.EstimateGas(ctx, msg)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to estimate gas for call to %s", cc.contract.Hex())
	}
	return gas, nil
}
