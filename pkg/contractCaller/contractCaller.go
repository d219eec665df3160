package contractCaller

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nftkit/allowlist-go/pkg/contractCaller/caller"
	"github.com/nftkit/allowlist-go/pkg/merkle"
)

// IContractCaller is the read and calldata surface of an allow-list mint contract.
// Nothing here signs or sends transactions.
type IContractCaller interface {
	ContractAddress() common.Address
	ChainID(ctx context.Context) (*big.Int, error)

	GetName(ctx context.Context) (string, error)
	GetSymbol(ctx context.Context) (string, error)
	GetBalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	GetMerkleRoot(ctx context.Context) (common.Hash, error)
	IsValid(ctx context.Context, proof merkle.Proof, leaf common.Hash) (bool, error)
	GetAccountBalance(ctx context.Context, account common.Address) (*big.Int, error)

	PackMint(quantity *big.Int) ([]byte, error)
	PackMintAllowList(proof merkle.Proof, quantity *big.Int) ([]byte, error)
	PackWithdraw() ([]byte, error)

	BuildMintCall(from common.Address, quantity *big.Int, value *big.Int) (*ethereum.CallMsg, error)
	BuildMintAllowListCall(from common.Address, proof merkle.Proof, quantity *big.Int, value *big.Int) (*ethereum.CallMsg, error)
	BuildWithdrawCall(from common.Address) (*ethereum.CallMsg, error)

	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

var _ IContractCaller = (*caller.ContractCaller)(nil)
