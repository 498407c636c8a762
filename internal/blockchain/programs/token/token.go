// internal/blockchain/programs/token/token.go
package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ProgramID - классическая программа SPL Token.
	ProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	// Program2022ID - программа Token-2022, ею выпускаются новые токены pump.fun.
	Program2022ID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	// AssociatedProgramID - программа ассоциированных токен-аккаунтов.
	AssociatedProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

var ErrUnknownTokenProgram = errors.New("account is not owned by a token program")

const (
	instructionTransferChecked  = 12
	instructionCreateIdempotent = 1
)

// IsTokenProgram сообщает, является ли программа одной из токен-программ.
func IsTokenProgram(program solana.PublicKey) bool {
	return program.Equals(ProgramID) || program.Equals(Program2022ID)
}

// ProgramForOwner возвращает токен-программу по владельцу аккаунта минта.
func ProgramForOwner(owner solana.PublicKey) (solana.PublicKey, error) {
	if !IsTokenProgram(owner) {
		return solana.PublicKey{}, fmt.Errorf("%w: owner %s", ErrUnknownTokenProgram, owner)
	}
	return owner, nil
}

// FindAssociatedTokenAddress выводит ATA владельца для минта под заданной токен-программой.
func FindAssociatedTokenAddress(owner, mint, program solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		owner[:],
		program[:],
		mint[:],
	}, AssociatedProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// NewCreateIdempotentInstruction создаёт ATA, если его ещё нет; при существующем аккаунте не падает.
func NewCreateIdempotentInstruction(payer, associated, owner, mint, program solana.PublicKey) solana.Instruction {
	keys := solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: associated, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: program, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(AssociatedProgramID, keys, []byte{instructionCreateIdempotent})
}

// NewTransferCheckedInstruction переводит amount минимальных единиц с проверкой минта и decimals.
// Одна и та же раскладка работает для Token и Token-2022.
func NewTransferCheckedInstruction(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8, program solana.PublicKey) solana.Instruction {
	data := make([]byte, 10)
	data[0] = instructionTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	keys := solana.AccountMetaSlice{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(program, keys, data)
}
