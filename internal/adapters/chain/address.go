package chain

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto/blake2b"
	"github.com/mr-tron/base58"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// GenericSubstratePrefix is the SS58 prefix accepted on every network.
const GenericSubstratePrefix = 42

const (
	publicKeyLen = 32
	checksumLen  = 2
)

var ss58Pre = []byte("SS58PRE")

// Address is a decoded SS58 account address.
type Address struct {
	Prefix    uint16
	PublicKey []byte
}

// Hex renders the account public key as 0x-prefixed hex.
func (a Address) Hex() string {
	return hexutil.Encode(a.PublicKey)
}

// DecodeAddress parses an SS58 account address and verifies its checksum.
func DecodeAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", domain.ErrInvalidAddress, err)
	}
	if len(raw) < 1 {
		return Address{}, fmt.Errorf("%w: empty", domain.ErrInvalidAddress)
	}

	var prefix uint16
	prefixLen := 1
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
	case raw[0] < 128:
		if len(raw) < 2 {
			return Address{}, fmt.Errorf("%w: truncated prefix", domain.ErrInvalidAddress)
		}
		prefixLen = 2
		prefix = uint16(raw[0]&0x3f)<<2 | uint16(raw[1]>>6) | uint16(raw[1]&0x3f)<<8
	default:
		return Address{}, fmt.Errorf("%w: reserved prefix byte %d", domain.ErrInvalidAddress, raw[0])
	}

	if len(raw) != prefixLen+publicKeyLen+checksumLen {
		return Address{}, fmt.Errorf("%w: unexpected length %d", domain.ErrInvalidAddress, len(raw))
	}

	body := raw[:len(raw)-checksumLen]
	sum := blake2b.Sum512(append(append([]byte{}, ss58Pre...), body...))
	if !bytes.Equal(sum[:checksumLen], raw[len(raw)-checksumLen:]) {
		return Address{}, fmt.Errorf("%w: checksum mismatch", domain.ErrInvalidAddress)
	}

	return Address{
		Prefix:    prefix,
		PublicKey: append([]byte{}, raw[prefixLen:prefixLen+publicKeyLen]...),
	}, nil
}
