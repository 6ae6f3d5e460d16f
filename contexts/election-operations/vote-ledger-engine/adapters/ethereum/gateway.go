package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// votingContractABI must match the deployed voting contract.
const votingContractABI = `[
  {"type":"event","name":"VoteCast","inputs":[
    {"name":"voterHash","type":"bytes32","indexed":false},
    {"name":"electionId","type":"string","indexed":false},
    {"name":"candidateId","type":"string","indexed":false}]},
  {"type":"function","name":"castVote","stateMutability":"nonpayable","inputs":[
    {"name":"voterHash","type":"bytes32"},
    {"name":"electionId","type":"string"},
    {"name":"candidateId","type":"string"}],"outputs":[]},
  {"type":"function","name":"startElection","stateMutability":"nonpayable","inputs":[
    {"name":"electionId","type":"string"}],"outputs":[]},
  {"type":"function","name":"endElection","stateMutability":"nonpayable","inputs":[
    {"name":"electionId","type":"string"}],"outputs":[]},
  {"type":"function","name":"hasVoted","stateMutability":"view","inputs":[
    {"name":"electionId","type":"string"},
    {"name":"voterHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isElectionActive","stateMutability":"view","inputs":[
    {"name":"electionId","type":"string"}],"outputs":[{"name":"","type":"bool"}]}
]`

const (
	readAttempts     = 3
	readRetryDelay   = time.Second
	confirmPollDelay = 4 * time.Second
	defaultChunkSize = 2000
)

// Gateway talks JSON-RPC to the voting contract. Submissions go through the
// admin signing key; all reads are retried with a short fixed delay before
// reporting the ledger unreachable.
type Gateway struct {
	client    *ethclient.Client
	votingABI abi.ABI
	contract  common.Address
	key       *ecdsa.PrivateKey
	from      common.Address
	chainID   *big.Int
	chunkSize uint64
	logger    *slog.Logger
}

type Config struct {
	RPCURL          string
	ContractAddress string
	AdminPrivateKey string
	ChunkSize       uint64
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(votingContractABI))
	if err != nil {
		return nil, fmt.Errorf("parse voting abi: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.AdminPrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse admin key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	return &Gateway{
		client:    client,
		votingABI: parsedABI,
		contract:  common.HexToAddress(cfg.ContractAddress),
		key:       key,
		from:      crypto.PubkeyToAddress(key.PublicKey),
		chainID:   chainID,
		chunkSize: chunkSize,
		logger:    logger,
	}, nil
}

func (g *Gateway) CurrentHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := g.retryRead(ctx, "block_number", func() error {
		var innerErr error
		height, innerErr = g.client.BlockNumber(ctx)
		return innerErr
	})
	if err != nil {
		return 0, domainerrors.ErrLedgerUnreachable
	}
	return height, nil
}

func (g *Gateway) SubmitVote(
	ctx context.Context,
	voterHash string,
	electionID string,
	candidateID string,
) (ports.PendingTx, error) {
	data, err := g.votingABI.Pack("castVote", common.HexToHash(voterHash), electionID, candidateID)
	if err != nil {
		return ports.PendingTx{}, err
	}
	return g.submit(ctx, data)
}

func (g *Gateway) SubmitLifecycle(
	ctx context.Context,
	electionID string,
	action ports.LifecycleAction,
) (ports.PendingTx, error) {
	method := "startElection"
	if action == ports.LifecycleEnd {
		method = "endElection"
	}
	data, err := g.votingABI.Pack(method, electionID)
	if err != nil {
		return ports.PendingTx{}, err
	}
	return g.submit(ctx, data)
}

// submit signs and broadcasts once. It is never retried: a second broadcast
// of a vote is a double-vote hazard, so any ambiguity is left to
// AwaitConfirmation.
func (g *Gateway) submit(ctx context.Context, data []byte) (ports.PendingTx, error) {
	nonce, err := g.client.PendingNonceAt(ctx, g.from)
	if err != nil {
		return ports.PendingTx{}, domainerrors.ErrLedgerUnreachable
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return ports.PendingTx{}, domainerrors.ErrLedgerUnreachable
	}
	gasLimit, err := g.client.EstimateGas(ctx, goethereum.CallMsg{
		From: g.from,
		To:   &g.contract,
		Data: data,
	})
	if err != nil {
		// Estimation failure usually means the contract would revert, e.g.
		// an on-chain duplicate; nothing was broadcast.
		return ports.PendingTx{}, domainerrors.ErrSubmissionFailed
	}

	tx := types.NewTransaction(nonce, g.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		return ports.PendingTx{}, err
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return ports.PendingTx{}, domainerrors.ErrSubmissionFailed
	}
	return ports.PendingTx{Reference: signed.Hash().Hex()}, nil
}

func (g *Gateway) AwaitConfirmation(ctx context.Context, tx ports.PendingTx) (uint64, error) {
	txHash := common.HexToHash(tx.Reference)
	ticker := time.NewTicker(confirmPollDelay)
	defer ticker.Stop()

	for {
		receipt, err := g.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return 0, domainerrors.ErrSubmissionFailed
			}
			return receipt.BlockNumber.Uint64(), nil
		case errors.Is(err, goethereum.NotFound):
			// Still pending; keep polling.
		default:
			g.logger.Warn("receipt poll failed",
				"event", "ledger_receipt_poll_failed",
				"module", "election-operations/vote-ledger-engine",
				"layer", "adapter",
				"tx_reference", tx.Reference,
				"error", err.Error(),
			)
		}

		select {
		case <-ctx.Done():
			// The transaction was broadcast and may confirm after the
			// caller gives up. Only a ledger read can resolve it.
			return 0, domainerrors.ErrSubmissionUncertain
		case <-ticker.C:
		}
	}
}

func (g *Gateway) HasVoted(ctx context.Context, electionID string, voterHash string) (bool, error) {
	data, err := g.votingABI.Pack("hasVoted", electionID, common.HexToHash(voterHash))
	if err != nil {
		return false, err
	}
	return g.callBool(ctx, "hasVoted", data)
}

func (g *Gateway) IsElectionActive(ctx context.Context, electionID string) (bool, error) {
	data, err := g.votingABI.Pack("isElectionActive", electionID)
	if err != nil {
		return false, err
	}
	return g.callBool(ctx, "isElectionActive", data)
}

func (g *Gateway) callBool(ctx context.Context, method string, data []byte) (bool, error) {
	var raw []byte
	err := g.retryRead(ctx, method, func() error {
		var innerErr error
		raw, innerErr = g.client.CallContract(ctx, goethereum.CallMsg{
			To:   &g.contract,
			Data: data,
		}, nil)
		return innerErr
	})
	if err != nil {
		return false, domainerrors.ErrLedgerUnreachable
	}
	values, err := g.votingABI.Unpack(method, raw)
	if err != nil {
		return false, err
	}
	result, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected %s return type %T", method, values[0])
	}
	return result, nil
}

func (g *Gateway) VoteEventsInRange(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
) ([]ports.VoteCastEvent, error) {
	if toBlock < fromBlock {
		return nil, nil
	}
	eventID := g.votingABI.Events["VoteCast"].ID
	items := make([]ports.VoteCastEvent, 0)

	// Upstream providers cap the span of a single log query, so the range
	// is scanned in bounded chunks. A failed chunk is skipped: the caller
	// treats the result as a lower bound rather than losing the whole scan.
	for _, chunk := range chunkRanges(fromBlock, toBlock, g.chunkSize) {
		logs, err := g.client.FilterLogs(ctx, goethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(chunk.from),
			ToBlock:   new(big.Int).SetUint64(chunk.to),
			Addresses: []common.Address{g.contract},
			Topics:    [][]common.Hash{{eventID}},
		})
		if err != nil {
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			g.logger.Warn("log chunk query failed, skipping",
				"event", "ledger_chunk_query_failed",
				"module", "election-operations/vote-ledger-engine",
				"layer", "adapter",
				"from_block", chunk.from,
				"to_block", chunk.to,
				"error", err.Error(),
			)
			continue
		}
		for _, entry := range logs {
			event, err := g.decodeVoteCast(entry)
			if err != nil {
				g.logger.Warn("vote cast log decode failed, skipping",
					"event", "ledger_log_decode_failed",
					"module", "election-operations/vote-ledger-engine",
					"layer", "adapter",
					"block_number", entry.BlockNumber,
					"error", err.Error(),
				)
				continue
			}
			items = append(items, event)
		}
	}
	return items, nil
}

func (g *Gateway) decodeVoteCast(entry types.Log) (ports.VoteCastEvent, error) {
	values, err := g.votingABI.Unpack("VoteCast", entry.Data)
	if err != nil {
		return ports.VoteCastEvent{}, err
	}
	voterHash, ok := values[0].([32]byte)
	if !ok {
		return ports.VoteCastEvent{}, fmt.Errorf("unexpected voterHash type %T", values[0])
	}
	electionID, ok := values[1].(string)
	if !ok {
		return ports.VoteCastEvent{}, fmt.Errorf("unexpected electionId type %T", values[1])
	}
	candidateID, ok := values[2].(string)
	if !ok {
		return ports.VoteCastEvent{}, fmt.Errorf("unexpected candidateId type %T", values[2])
	}
	return ports.VoteCastEvent{
		VoterHash:   common.Hash(voterHash).Hex(),
		ElectionID:  electionID,
		CandidateID: candidateID,
		BlockNumber: entry.BlockNumber,
		TxReference: entry.TxHash.Hex(),
	}, nil
}

// retryRead retries an idempotent read a fixed number of times with a short
// delay, so reads terminate in bounded time.
func (g *Gateway) retryRead(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		g.logger.Warn("ledger read attempt failed",
			"event", "ledger_read_retry",
			"module", "election-operations/vote-ledger-engine",
			"layer", "adapter",
			"op", op,
			"attempt", attempt,
			"error", lastErr.Error(),
		)
		if attempt == readAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readRetryDelay):
		}
	}
	return lastErr
}

type blockRange struct {
	from uint64
	to   uint64
}

// chunkRanges partitions [from, to] into inclusive ranges of at most size
// blocks.
func chunkRanges(from uint64, to uint64, size uint64) []blockRange {
	if size == 0 {
		size = defaultChunkSize
	}
	ranges := make([]blockRange, 0)
	for start := from; start <= to; {
		end := start + size - 1
		if end > to || end < start {
			end = to
		}
		ranges = append(ranges, blockRange{from: start, to: end})
		if end == ^uint64(0) {
			break
		}
		start = end + 1
	}
	return ranges
}

var _ ports.LedgerGateway = (*Gateway)(nil)
