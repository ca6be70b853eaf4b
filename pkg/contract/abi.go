package contract

// RegistryABI is the ABI of the deployed registry contract.
const RegistryABI = `[
  {"type":"function","name":"register","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"username","type":"string"}],"outputs":[]},
  {"type":"function","name":"login","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getUsernames","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"getAddressByUsername","stateMutability":"view",
   "inputs":[{"name":"username","type":"string"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getUsername","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"createPost","stateMutability":"nonpayable",
   "inputs":[{"name":"author","type":"address"},{"name":"postId","type":"string"},{"name":"contentHash","type":"string"}],"outputs":[]},
  {"type":"function","name":"getPostsByUser","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"getPost","stateMutability":"view",
   "inputs":[{"name":"postId","type":"string"}],
   "outputs":[{"name":"author","type":"address"},{"name":"contentHash","type":"string"},{"name":"timestamp","type":"uint256"},{"name":"likes","type":"uint256"}]},
  {"type":"function","name":"likePost","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"postId","type":"string"}],"outputs":[]},
  {"type":"function","name":"getPostLikes","stateMutability":"view",
   "inputs":[{"name":"postId","type":"string"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"sendFollowRequest","stateMutability":"nonpayable",
   "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"}],"outputs":[]},
  {"type":"function","name":"acceptFollowRequest","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"from","type":"address"}],"outputs":[]},
  {"type":"function","name":"getPendingRequests","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getFollowers","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getFollowing","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"updateMessagesHash","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"hash","type":"string"}],"outputs":[]},
  {"type":"function","name":"getMessagesHash","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"updateProfile","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"bio","type":"string"},{"name":"avatarHash","type":"string"},{"name":"notificationsHash","type":"string"}],"outputs":[]},
  {"type":"function","name":"getProfile","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"username","type":"string"},{"name":"bio","type":"string"},{"name":"avatarHash","type":"string"},{"name":"notificationsHash","type":"string"}]}
]`
