package server

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/nftkit/allowlist-go/pkg/allowlist"
	"github.com/nftkit/allowlist-go/pkg/merkle"
	"github.com/nftkit/allowlist-go/pkg/util"
)

func (s *Server) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg, RequestID: c.GetString(ctxRequestID)})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.store != nil {
		if err := s.store.HealthCheck(); err != nil {
			s.fail(c, http.StatusServiceUnavailable, "snapshot store unavailable: "+err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRoot(c *gin.Context) {
	cfg := s.list.Config()
	resp := RootResponse{
		Root:           s.list.Root().Hex(),
		Members:        s.list.Len(),
		Depth:          s.list.Depth(),
		HashFunction:   cfg.HashFunction.String(),
		LeafOrder:      cfg.LeafOrder.String(),
		OddLayerPolicy: cfg.OddLayerPolicy.String(),
		SortRule:       merkle.SortRule,
		CacheKey:       s.list.CacheKey(),
	}

	if s.caller != nil {
		resp.Contract = s.caller.ContractAddress().Hex()
		onChain, err := s.caller.GetMerkleRoot(c.Request.Context())
		if err != nil {
			s.logger.Sugar().Warnw("Failed to read on-chain merkle root", "error", err)
			resp.OnChainError = err.Error()
		} else {
			matches := onChain == s.list.Root()
			resp.OnChainRoot = onChain.Hex()
			resp.MatchesOnChain = &matches
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMembers(c *gin.Context) {
	members := util.Map(s.list.Members(), func(m common.Address, _ uint64) string {
		return m.Hex()
	})
	c.JSON(http.StatusOK, MembersResponse{Root: s.list.Root().Hex(), Members: members})
}

// lookupRoot returns the served list or a cached list with the given root.
func (s *Server) lookupRoot(root common.Hash) (*allowlist.AllowList, bool) {
	if root == s.list.Root() {
		return s.list, true
	}
	if s.cache != nil {
		if al := s.cache.GetByRoot(root); al != nil {
			return al, true
		}
	}
	return nil, false
}

// selectList returns the served list, or a cached one when ?root= names another root.
func (s *Server) selectList(c *gin.Context) (*allowlist.AllowList, bool) {
	rootParam := c.Query("root")
	if rootParam == "" {
		return s.list, true
	}

	root, err := merkle.ParseHash(rootParam)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "invalid root: "+err.Error())
		return nil, false
	}
	if al, ok := s.lookupRoot(root); ok {
		return al, true
	}

	s.fail(c, http.StatusNotFound, "unknown root "+root.Hex())
	return nil, false
}

func (s *Server) handleProof(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		s.fail(c, http.StatusBadRequest, "invalid address: "+raw)
		return
	}
	addr := common.HexToAddress(raw)

	list, ok := s.selectList(c)
	if !ok {
		return
	}

	proof, err := list.Proof(addr)
	if err != nil {
		if errors.Is(err, merkle.ErrNotFound) {
			s.fail(c, http.StatusNotFound, addr.Hex()+" is not on the allow-list")
			return
		}
		_ = c.Error(err)
		s.fail(c, http.StatusInternalServerError, "failed to build proof")
		return
	}

	c.JSON(http.StatusOK, ProofResponse{
		Address: addr.Hex(),
		Leaf:    list.Leaf(addr).Hex(),
		Root:    list.Root().Hex(),
		Proof:   proof.Hex(),
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Address == "" && req.Leaf == "" {
		s.fail(c, http.StatusBadRequest, "address or leaf is required")
		return
	}
	if req.Address != "" && !common.IsHexAddress(req.Address) {
		s.fail(c, http.StatusBadRequest, "invalid address: "+req.Address)
		return
	}

	// A root naming a cached list verifies under that list's rules. Unknown
	// roots fall back to the served list's hash function.
	list := s.list
	root := s.list.Root()
	if req.Root != "" {
		parsed, err := merkle.ParseHash(req.Root)
		if err != nil {
			c.JSON(http.StatusOK, VerifyResponse{Valid: false, Error: "root: " + err.Error()})
			return
		}
		root = parsed
		if known, ok := s.lookupRoot(root); ok {
			list = known
		}
	}

	var leaf common.Hash
	if req.Address != "" {
		leaf = list.Leaf(common.HexToAddress(req.Address))
	} else {
		parsed, err := merkle.ParseHash(req.Leaf)
		if err != nil {
			c.JSON(http.StatusOK, VerifyResponse{Valid: false, Root: root.Hex(), Error: "leaf: " + err.Error()})
			return
		}
		leaf = parsed
	}

	proof, err := merkle.ParseHexProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusOK, VerifyResponse{Valid: false, Leaf: leaf.Hex(), Root: root.Hex(), Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		Valid: merkle.VerifyWith(list.Config().HashFunction, proof, leaf, root),
		Leaf:  leaf.Hex(),
		Root:  root.Hex(),
	})
}
