package caller

// AllowListMintABI covers the read, mint and withdraw surface of an allow-list mint
// contract whose isValid checks proofs with sorted-pair hashing.
const AllowListMintABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"merkleRoot","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"isValid","stateMutability":"view","inputs":[{"name":"proof","type":"bytes32[]"},{"name":"leaf","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"quantity","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"mintAllowList","stateMutability":"payable","inputs":[{"name":"proof","type":"bytes32[]"},{"name":"quantity","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`
