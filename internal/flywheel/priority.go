// internal/flywheel/priority.go
package flywheel

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// PriorityConfig - директивы compute budget для локально собранных транзакций.
type PriorityConfig struct {
	ComputeUnits uint32 // Number of compute units
	PriorityFee  uint64 // Priority fee in micro-lamports
}

// Instructions возвращает инструкции compute budget; пустой конфиг - без инструкций.
func (c PriorityConfig) Instructions() []solana.Instruction {
	var instructions []solana.Instruction

	if c.ComputeUnits > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(c.ComputeUnits).Build())
	}
	if c.PriorityFee > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(c.PriorityFee).Build())
	}

	return instructions
}
