// Package p2p implements the wire protocol and transport abstraction
// spec.md §6 and §9 describe: a small tagged sum type carried
// identically over TCP, UDP, or any other byte-oriented transport, and
// a length-prefixed framing layer that fixes the "one frame per read"
// bug spec.md §9 flags in the reference implementation.
package p2p

import (
	"errors"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
)

// Message tags, grounded on original_source/src/node/message.rs's
// NetworkMessage enum (Hello/GetAddr/Addr/SyncRequest/Block/
// Transaction/Ping/Pong).
const (
	TagHello byte = iota + 1
	TagGetAddr
	TagAddr
	TagSyncRequest
	TagBlock
	TagTransaction
	TagPing
	TagPong
)

// ProtocolVersion is the single u32 spec.md §6 says every Hello
// carries; a mismatch is a terminal error (PROTOCOL_MISMATCH).
const ProtocolVersion uint32 = 1

// MaxAddrEntries caps a single Addr message's address list.
const MaxAddrEntries = 32

var (
	ErrUnknownTag    = errors.New("p2p: unknown message tag")
	ErrTooManyAddrs  = errors.New("p2p: addr message exceeds MaxAddrEntries")
	ErrTruncatedBody = errors.New("p2p: truncated message body")
)

// Message is a tagged union over the seven wire messages. Only the
// fields relevant to Tag are populated; callers construct with the
// matching *Message helper below (HelloMessage, PingMessage, ...).
type Message struct {
	Tag byte

	// Hello
	Version uint32
	Height  uint64
	Agent   string

	// Addr
	Addresses []string

	// SyncRequest
	FromHeight uint64

	// Block
	Block *consensus.Block

	// Transaction
	Transaction *consensus.Transaction
}

func HelloMessage(height uint64, agent string) Message {
	return Message{Tag: TagHello, Version: ProtocolVersion, Height: height, Agent: agent}
}

func GetAddrMessage() Message { return Message{Tag: TagGetAddr} }

func AddrMessage(addrs []string) Message { return Message{Tag: TagAddr, Addresses: addrs} }

func SyncRequestMessage(fromHeight uint64) Message {
	return Message{Tag: TagSyncRequest, FromHeight: fromHeight}
}

func BlockMessage(b consensus.Block) Message { return Message{Tag: TagBlock, Block: &b} }

func TransactionMessage(tx consensus.Transaction) Message {
	return Message{Tag: TagTransaction, Transaction: &tx}
}

func PingMessage() Message { return Message{Tag: TagPing} }
func PongMessage() Message { return Message{Tag: TagPong} }

// EncodeMessage serializes m's payload using the same canonical
// little-endian primitives as the consensus layer (spec.md §4.1's
// encoding rationale extended to the wire), never a general-purpose
// format.
func EncodeMessage(m Message) ([]byte, error) {
	switch m.Tag {
	case TagHello:
		b := consensus.AppendU32LE(nil, m.Version)
		b = consensus.AppendU64LE(b, m.Height)
		b = consensus.AppendVarBytes(b, []byte(m.Agent))
		return b, nil

	case TagGetAddr, TagPing, TagPong:
		return nil, nil

	case TagAddr:
		if len(m.Addresses) > MaxAddrEntries {
			return nil, ErrTooManyAddrs
		}
		b := consensus.AppendU32LE(nil, uint32(len(m.Addresses)))
		for _, a := range m.Addresses {
			b = consensus.AppendVarBytes(b, []byte(a))
		}
		return b, nil

	case TagSyncRequest:
		return consensus.AppendU64LE(nil, m.FromHeight), nil

	case TagBlock:
		if m.Block == nil {
			return nil, errors.New("p2p: nil block in Block message")
		}
		return consensus.SerializeBlock(*m.Block), nil

	case TagTransaction:
		if m.Transaction == nil {
			return nil, errors.New("p2p: nil transaction in Transaction message")
		}
		return consensus.SerializeTransaction(*m.Transaction), nil

	default:
		return nil, ErrUnknownTag
	}
}

// DecodeMessage parses payload according to tag.
func DecodeMessage(tag byte, payload []byte) (Message, error) {
	switch tag {
	case TagHello:
		off := 0
		version, err := consensus.ReadU32LE(payload, &off)
		if err != nil {
			return Message{}, err
		}
		height, err := consensus.ReadU64LE(payload, &off)
		if err != nil {
			return Message{}, err
		}
		agent, err := consensus.ReadVarBytes(payload, &off)
		if err != nil {
			return Message{}, err
		}
		if off != len(payload) {
			return Message{}, ErrTruncatedBody
		}
		return Message{Tag: TagHello, Version: version, Height: height, Agent: string(agent)}, nil

	case TagGetAddr, TagPing, TagPong:
		if len(payload) != 0 {
			return Message{}, ErrTruncatedBody
		}
		return Message{Tag: tag}, nil

	case TagAddr:
		off := 0
		count, err := consensus.ReadU32LE(payload, &off)
		if err != nil {
			return Message{}, err
		}
		if count > MaxAddrEntries {
			return Message{}, ErrTooManyAddrs
		}
		addrs := make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			a, err := consensus.ReadVarBytes(payload, &off)
			if err != nil {
				return Message{}, err
			}
			addrs = append(addrs, string(a))
		}
		if off != len(payload) {
			return Message{}, ErrTruncatedBody
		}
		return Message{Tag: TagAddr, Addresses: addrs}, nil

	case TagSyncRequest:
		off := 0
		fromHeight, err := consensus.ReadU64LE(payload, &off)
		if err != nil {
			return Message{}, err
		}
		if off != len(payload) {
			return Message{}, ErrTruncatedBody
		}
		return Message{Tag: TagSyncRequest, FromHeight: fromHeight}, nil

	case TagBlock:
		b, err := consensus.DeserializeBlock(payload)
		if err != nil {
			return Message{}, err
		}
		return Message{Tag: TagBlock, Block: &b}, nil

	case TagTransaction:
		tx, consumed, err := consensus.DeserializeTransaction(payload)
		if err != nil {
			return Message{}, err
		}
		if consumed != len(payload) {
			return Message{}, ErrTruncatedBody
		}
		return Message{Tag: TagTransaction, Transaction: &tx}, nil

	default:
		return Message{}, ErrUnknownTag
	}
}
