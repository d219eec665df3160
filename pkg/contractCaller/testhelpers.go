package contractCaller

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nftkit/allowlist-go/pkg/merkle"
)

// MockContractCallerStub is an in-memory IContractCaller for tests. IsValid
// verifies proofs against Root with keccak256, the way the contract does.
type MockContractCallerStub struct {
	mu sync.Mutex

	Address  common.Address
	Chain    *big.Int
	Name     string
	Symbol   string
	Root     common.Hash
	Balances map[common.Address]*big.Int
	Gas      uint64

	// Err, when set, is returned from every chain read.
	Err error

	// Calls records the method names invoked, in order.
	Calls []string
}

var _ IContractCaller = (*MockContractCallerStub)(nil)

func (m *MockContractCallerStub) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, method)
	return m.Err
}

func (m *MockContractCallerStub) ContractAddress() common.Address {
	return m.Address
}

func (m *MockContractCallerStub) ChainID(ctx context.Context) (*big.Int, error) {
	if err := m.record("chainId"); err != nil {
		return nil, err
	}
	if m.Chain == nil {
		return big.NewInt(31337), nil
	}
	return m.Chain, nil
}

func (m *MockContractCallerStub) GetName(ctx context.Context) (string, error) {
	return m.Name, m.record("name")
}

func (m *MockContractCallerStub) GetSymbol(ctx context.Context) (string, error) {
	return m.Symbol, m.record("symbol")
}

func (m *MockContractCallerStub) GetBalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	if err := m.record("balanceOf"); err != nil {
		return nil, err
	}
	if b, ok := m.Balances[owner]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (m *MockContractCallerStub) GetMerkleRoot(ctx context.Context) (common.Hash, error) {
	return m.Root, m.record("merkleRoot")
}

func (m *MockContractCallerStub) IsValid(ctx context.Context, proof merkle.Proof, leaf common.Hash) (bool, error) {
	if err := m.record("isValid"); err != nil {
		return false, err
	}
	return merkle.Verify(proof, leaf, m.Root), nil
}

func (m *MockContractCallerStub) GetAccountBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return m.GetBalanceOf(ctx, account)
}

func (m *MockContractCallerStub) PackMint(quantity *big.Int) ([]byte, error) {
	return []byte("mint"), nil
}

func (m *MockContractCallerStub) PackMintAllowList(proof merkle.Proof, quantity *big.Int) ([]byte, error) {
	return []byte("mintAllowList"), nil
}

func (m *MockContractCallerStub) PackWithdraw() ([]byte, error) {
	return []byte("withdraw"), nil
}

func (m *MockContractCallerStub) BuildMintCall(from common.Address, quantity *big.Int, value *big.Int) (*ethereum.CallMsg, error) {
	return &ethereum.CallMsg{From: from, To: &m.Address, Value: value, Data: []byte("mint")}, nil
}

func (m *MockContractCallerStub) BuildMintAllowListCall(from common.Address, proof merkle.Proof, quantity *big.Int, value *big.Int) (*ethereum.CallMsg, error) {
	if !merkle.Verify(proof, merkle.HashKeccak256.Sum(from.Bytes()), m.Root) {
		return nil, fmt.Errorf("proof does not verify against %s", m.Root.Hex())
	}
	return &ethereum.CallMsg{From: from, To: &m.Address, Value: value, Data: []byte("mintAllowList")}, nil
}

func (m *MockContractCallerStub) BuildWithdrawCall(from common.Address) (*ethereum.CallMsg, error) {
	return &ethereum.CallMsg{From: from, To: &m.Address, Data: []byte("withdraw")}, nil
}

func (m *MockContractCallerStub) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return m.Gas, m.record("estimateGas")
}
