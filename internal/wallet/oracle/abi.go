package oracle

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"walletverify/internal/wallet/models"
)

// GetHashSignature is the read method of the fingerprint registry contract.
const GetHashSignature = "getHash(address)"

const getHashMethod = "getHash"

// registryABIJSON is the part of the registry contract's ABI this service calls.
const registryABIJSON = `[{
	"type": "function",
	"name": "getHash",
	"stateMutability": "view",
	"inputs": [{"name": "user", "type": "address"}],
	"outputs": [{"name": "", "type": "string"}]
}]`

// maxFingerprintBytes bounds the decoded string returned by the node.
const maxFingerprintBytes = 4096

var registryABI = mustParseABI(registryABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse registry abi: %v", err))
	}
	return parsed
}

// GetHashSelector returns the 4-byte selector of getHash(address).
func GetHashSelector() []byte {
	return bytes.Clone(registryABI.Methods[getHashMethod].ID)
}

// EncodeGetHashCall returns the eth_call input for getHash(address).
func EncodeGetHashCall(address models.Address) ([]byte, error) {
	if !common.IsHexAddress(address.String()) {
		return nil, fmt.Errorf("encode address %q: not a 20 byte hex address", address)
	}
	data, err := registryABI.Pack(getHashMethod, common.HexToAddress(address.String()))
	if err != nil {
		return nil, fmt.Errorf("pack getHash: %w", err)
	}
	return data, nil
}

var errNotGetHash = errors.New("abi: calldata is not a getHash call")

// DecodeGetHashCall is the inverse of EncodeGetHashCall. The dev ledger node
// uses it to route eth_call.
func DecodeGetHashCall(data []byte) (models.Address, error) {
	method := registryABI.Methods[getHashMethod]
	if len(data) < len(method.ID) || !bytes.Equal(data[:len(method.ID)], method.ID) {
		return "", errNotGetHash
	}
	args, err := method.Inputs.Unpack(data[len(method.ID):])
	if err != nil {
		return "", fmt.Errorf("unpack getHash input: %w", err)
	}
	addr, ok := args[0].(common.Address)
	if !ok {
		return "", errNotGetHash
	}
	return models.ParseAddress(addr.Hex())
}

// DecodeString decodes getHash return data. Empty data decodes to the empty
// string: that is what a node returns when the target has no code.
func DecodeString(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	out, err := registryABI.Unpack(getHashMethod, data)
	if err != nil {
		return "", fmt.Errorf("unpack getHash output: %w", err)
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("abi: getHash returned %T, want string", out[0])
	}
	if len(s) > maxFingerprintBytes {
		return "", fmt.Errorf("abi: string length %d exceeds %d", len(s), maxFingerprintBytes)
	}
	return s, nil
}

// EncodeString ABI-encodes s as getHash return data. The dev ledger node uses
// it to answer eth_call.
func EncodeString(s string) ([]byte, error) {
	data, err := registryABI.Methods[getHashMethod].Outputs.Pack(s)
	if err != nil {
		return nil, fmt.Errorf("pack getHash output: %w", err)
	}
	return data, nil
}
