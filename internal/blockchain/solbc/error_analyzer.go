package solbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int
	Name string
	Msg  string
}

// RPCError extracts the JSON-RPC error from err, if any.
func RPCError(err error) (*jsonrpc.RPCError, bool) {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// IsSimulationFailure reports whether the node rejected the transaction in preflight.
func IsSimulationFailure(err error) bool {
	rpcErr, ok := RPCError(err)
	return ok && strings.Contains(rpcErr.Message, "Transaction simulation failed")
}

// IsBlockhashNotFound reports whether the node did not know the transaction's blockhash.
// Usually means the node lags behind the one that served the blockhash.
func IsBlockhashNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Blockhash not found") || strings.Contains(msg, "BlockhashNotFound")
}

// SimulationLogs returns program logs attached to a preflight failure.
func SimulationLogs(err error) []string {
	rpcErr, ok := RPCError(err)
	if !ok || rpcErr.Data == nil {
		return nil
	}
	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	rawLogs, ok := dataMap["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(rawLogs))
	for _, entry := range rawLogs {
		if s, ok := entry.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

// LogFields builds zap fields describing a send failure: the error itself plus
// the Anchor error and the tail of the simulation logs when present.
func LogFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if rpcErr, ok := RPCError(err); ok {
		fields = append(fields, zap.Int("rpc_code", rpcErr.Code))
	}

	logs := SimulationLogs(err)
	if len(logs) == 0 {
		return fields
	}
	for _, line := range logs {
		if strings.Contains(line, "AnchorError occurred") {
			anchorErr := ParseAnchorErrorLog(line)
			fields = append(fields,
				zap.Int("anchor_code", anchorErr.Code),
				zap.String("anchor_name", anchorErr.Name),
				zap.String("anchor_msg", anchorErr.Msg))
			break
		}
	}
	const tail = 5
	if len(logs) > tail {
		logs = logs[len(logs)-tail:]
	}
	return append(fields, zap.Strings("simulation_logs", logs))
}

// ParseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func ParseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) == 2 {
		numParts := strings.Split(parts[1], ".")
		fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}
	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) == 2 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}
	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) == 2 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}

	return result
}
