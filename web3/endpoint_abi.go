package web3

// EndpointV2ABI is the subset of the LayerZero EndpointV2 ABI used by the
// tool, plus the custom errors that the endpoint and the ULN message
// libraries revert with when a configuration is rejected.
const EndpointV2ABI = `[
  {
    "type": "function",
    "name": "getConfig",
    "stateMutability": "view",
    "inputs": [
      {"name": "_oapp", "type": "address", "internalType": "address"},
      {"name": "_lib", "type": "address", "internalType": "address"},
      {"name": "_eid", "type": "uint32", "internalType": "uint32"},
      {"name": "_configType", "type": "uint32", "internalType": "uint32"}
    ],
    "outputs": [
      {"name": "config", "type": "bytes", "internalType": "bytes"}
    ]
  },
  {
    "type": "function",
    "name": "setConfig",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_oapp", "type": "address", "internalType": "address"},
      {"name": "_lib", "type": "address", "internalType": "address"},
      {
        "name": "_params",
        "type": "tuple[]",
        "internalType": "struct SetConfigParam[]",
        "components": [
          {"name": "eid", "type": "uint32", "internalType": "uint32"},
          {"name": "configType", "type": "uint32", "internalType": "uint32"},
          {"name": "config", "type": "bytes", "internalType": "bytes"}
        ]
      }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "isSupportedEid",
    "stateMutability": "view",
    "inputs": [
      {"name": "_eid", "type": "uint32", "internalType": "uint32"}
    ],
    "outputs": [
      {"name": "", "type": "bool", "internalType": "bool"}
    ]
  },
  {
    "type": "function",
    "name": "eid",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {"name": "", "type": "uint32", "internalType": "uint32"}
    ]
  },
  {"type": "error", "name": "LZ_Unauthorized", "inputs": []},
  {"type": "error", "name": "LZ_UnsupportedEid", "inputs": []},
  {"type": "error", "name": "LZ_OnlyRegisteredLib", "inputs": []},
  {"type": "error", "name": "LZ_OnlyRegisteredOrDefaultLib", "inputs": []},
  {"type": "error", "name": "LZ_ULN_Unsorted", "inputs": []},
  {"type": "error", "name": "LZ_ULN_AtLeastOneDVN", "inputs": []},
  {"type": "error", "name": "LZ_ULN_InvalidRequiredDVNCount", "inputs": []},
  {"type": "error", "name": "LZ_ULN_InvalidOptionalDVNCount", "inputs": []},
  {"type": "error", "name": "LZ_ULN_InvalidOptionalDVNThreshold", "inputs": []},
  {"type": "error", "name": "LZ_ULN_InvalidConfirmations", "inputs": []},
  {
    "type": "error",
    "name": "LZ_ULN_InvalidConfigType",
    "inputs": [{"name": "configType", "type": "uint32", "internalType": "uint32"}]
  },
  {
    "type": "error",
    "name": "LZ_ULN_UnsupportedEid",
    "inputs": [{"name": "eid", "type": "uint32", "internalType": "uint32"}]
  }
]`
